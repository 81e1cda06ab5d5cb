package models

import "github.com/golang-jwt/jwt/v5"

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string `json:"refresh_token" example:"3f1d5c7a-9a2b-4f63-8e0e-2c7b1d6f4a90"`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int64  `json:"expires_in" example:"900"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Claims of an access token. sub carries the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
