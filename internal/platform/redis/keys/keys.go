// Package keys is the redis document layout shared by every repository.
// Multi-document transactions touch keys owned by several features, so the
// layout lives in one place.
package keys

import "fmt"

const (
	UsersIndex           = "users"
	VerificationRequests = "verification_requests"
	VerificationEvents   = "verification:events"
	Topics               = "topics"
	TopicsByName         = "topics:by_name"
	TopicNames           = "topics:names"
)

func User(id int64) string             { return fmt.Sprintf("user:%d", id) }
func UserVerification(id int64) string { return fmt.Sprintf("user:%d:verification", id) }
func UserSocialLinks(id int64) string  { return fmt.Sprintf("user:%d:social_links", id) }
func UserPhoto(id int64) string        { return fmt.Sprintf("user:%d:photo", id) }

func VerificationRequest(id string) string { return "verification_request:" + id }

func VerificationCode(userID int64, platform string) string {
	return fmt.Sprintf("verification_code:%d:%s", userID, platform)
}

func Notification(userID int64, id string) string {
	return fmt.Sprintf("notification:%d:%s", userID, id)
}
func Notifications(userID int64) string       { return fmt.Sprintf("notifications:%d", userID) }
func UnreadNotifications(userID int64) string { return fmt.Sprintf("notifications:%d:unread", userID) }

func RefreshToken(token string) string { return "refresh_token:" + token }

// TelegramPush marks a stream entry already pushed to Telegram.
func TelegramPush(streamID string) string { return "telegram_push:" + streamID }
