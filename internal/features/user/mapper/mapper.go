package mapper

import (
	"debate-platform-backend/internal/features/user/models"
	vmodels "debate-platform-backend/internal/features/verification/models"
)

// ToUserResponse maps User plus its verification data to UserResponse.
func ToUserResponse(user *models.User, overview *vmodels.Overview) *models.UserResponse {
	if overview == nil {
		overview = vmodels.NewOverview(user.ID)
	}
	return &models.UserResponse{
		ID:                 user.ID,
		Username:           user.Username,
		FirstName:          user.FirstName,
		LastName:           user.LastName,
		Bio:                user.Bio,
		PhotoURL:           user.PhotoURL,
		Role:               user.Role,
		Status:             user.Status,
		VerificationStatus: overview.VerificationStatus,
		SocialLinks:        overview.SocialLinks,
		CreatedAt:          user.CreatedAt,
		UpdatedAt:          user.UpdatedAt,
	}
}

// ToOverview extracts the verification part of a user view.
func ToOverview(resp *models.UserResponse) *vmodels.Overview {
	return &vmodels.Overview{
		UserID:             resp.ID,
		VerificationStatus: resp.VerificationStatus,
		SocialLinks:        resp.SocialLinks,
	}
}
