package errors

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxCaptionLength bounds the text of a single annotation or caption.
const MaxCaptionLength = 500

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidURL, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidURL, "URL must use http or https scheme")
	}

	return nil
}

// ValidateEmail checks that s is a bare email address (no display name).
func ValidateEmail(s string) error {
	if s == "" {
		return New(ErrCodeInvalidEmail, "email cannot be empty")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return New(ErrCodeInvalidEmail, "invalid email address: %q", s)
	}
	return nil
}

// ValidateCaption checks annotation and caption text.
// Newlines and tabs are allowed; other control characters are not.
func ValidateCaption(s string) error {
	if utf8.RuneCountInString(s) > MaxCaptionLength {
		return New(ErrCodeInvalidInput, "text too long (max %d characters)", MaxCaptionLength)
	}
	for _, r := range s {
		if r == '\n' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "text contains invalid control characters")
		}
	}
	return nil
}

// hexColorRegex matches CSS hex colors as produced by a color picker.
var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidateColor checks for a #rgb or #rrggbb color.
func ValidateColor(s string) error {
	if !hexColorRegex.MatchString(s) {
		return New(ErrCodeInvalidColor, "invalid color: %q (expected #rgb or #rrggbb)", s)
	}
	return nil
}

// dataURLRegex matches the header of a base64 image data URL.
var dataURLRegex = regexp.MustCompile(`^data:image/[a-z0-9.+-]+;base64,`)

// ValidateDataURL checks that s is a base64 image data URL.
func ValidateDataURL(s string) error {
	if s == "" {
		return New(ErrCodeInvalidFormat, "image cannot be empty")
	}
	if !dataURLRegex.MatchString(s) {
		return New(ErrCodeInvalidFormat, "image must be a base64 data URL")
	}
	return nil
}
