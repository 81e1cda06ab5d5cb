package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// Максимальные длины для различных полей
	MaxUsernameLength   = 32
	MaxNameLength       = 64
	MaxBioLength        = 500
	MaxTopicNameLength  = 80
	MaxTopicDescLength  = 500
	MaxReasonLength     = 300
	MaxProfileURLLength = 2048

	MinUsernameLength = 5
)

// username: буквы, цифры, подчеркивания, 5-32 символа
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{5,32}$`)

// Имя: буквы, пробелы, дефисы и апострофы
var nameRegex = regexp.MustCompile(`^[\p{L}\s\-']+$`)

var strict = bluemonday.StrictPolicy()

// SanitizeText strips markup and surrounding whitespace from user text.
func SanitizeText(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// ValidateUsername проверяет username (ведущий @ допускается)
func ValidateUsername(username string) error {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must contain only letters, numbers, and underscores, %d-%d characters", MinUsernameLength, MaxUsernameLength)
	}
	return nil
}

// ValidateName проверяет имя или фамилию
func ValidateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%s cannot exceed %d characters", field, MaxNameLength)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%s contains invalid characters", field)
	}
	return nil
}

func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return fmt.Errorf("bio cannot exceed %d characters", MaxBioLength)
	}
	return nil
}

func ValidateTopicName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxTopicNameLength {
		return fmt.Errorf("name cannot exceed %d characters", MaxTopicNameLength)
	}
	return nil
}

func ValidateTopicDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxTopicDescLength {
		return fmt.Errorf("description cannot exceed %d characters", MaxTopicDescLength)
	}
	return nil
}

func ValidateReason(reason string) error {
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return fmt.Errorf("reason cannot exceed %d characters", MaxReasonLength)
	}
	return nil
}

// ValidateUserStatus проверяет статус пользователя
func ValidateUserStatus(status string) error {
	switch strings.TrimSpace(status) {
	case "active", "banned":
		return nil
	case "":
		return fmt.Errorf("status cannot be empty")
	default:
		return fmt.Errorf("invalid status: %s. Valid statuses: [active banned]", status)
	}
}
