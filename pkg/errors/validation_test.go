package errors

import (
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://i.imgflip.com/30b1gx.jpg", false},
		{"http", "http://example.com/path", false},

		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
		{"file", "file:///etc/passwd", true},
		{"javascript", "javascript:alert(1)", true},
		{"no scheme", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidURL) {
				t.Errorf("ValidateURL(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "alice@example.com", false},
		{"plus tag", "alice+memes@example.com", false},

		{"empty", "", true},
		{"no at", "alice.example.com", true},
		{"display name", "Alice <alice@example.com>", true},
		{"surrounding spaces", " alice@example.com ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCaption(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", false},
		{"simple", "ONE DOES NOT SIMPLY", false},
		{"multi line", "top\nbottom", false},
		{"unicode", "très bien 🎉", false},

		{"control char", "foo\x01bar", true},
		{"null byte", "foo\x00bar", true},
		{"too long", strings.Repeat("a", MaxCaptionLength+1), true},
		{"emoji at limit", strings.Repeat("😂", MaxCaptionLength), false},
		{"emoji over limit", strings.Repeat("😂", MaxCaptionLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCaption(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCaption(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateColor(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"#ffffff", false},
		{"#FF6B35", false},
		{"#fff", false},

		{"", true},
		{"ffffff", true},
		{"#ffff", true},
		{"#gggggg", true},
		{"red", true},
	}

	for _, tt := range tests {
		err := ValidateColor(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateColor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateDataURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"png", "data:image/png;base64,iVBORw0KGgo=", false},
		{"jpeg", "data:image/jpeg;base64,/9j/4AAQ", false},

		{"empty", "", true},
		{"not data", "https://example.com/a.png", true},
		{"not image", "data:text/plain;base64,aGk=", true},
		{"not base64", "data:image/png,raw", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDataURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDataURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
