package compose

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	errs "github.com/matzehuels/memeforge/pkg/errors"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatPNG, false},
		{"png", FormatPNG, false},
		{"JPEG", FormatJPEG, false},
		{" jpg ", FormatJPEG, false},
		{"gif", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	img := solid(40, 30, color.RGBA{200, 10, 10, 255})

	tests := []struct {
		format Format
		prefix string
	}{
		{FormatPNG, "data:image/png;base64,"},
		{FormatJPEG, "data:image/jpeg;base64,"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			url, err := Encode(img, tt.format, DefaultJPEGQuality)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(url, tt.prefix) {
				t.Fatalf("Encode() prefix = %.24q, want %q", url, tt.prefix)
			}
			mime, data, err := DecodeDataURL(url)
			if err != nil {
				t.Fatal(err)
			}
			if mime != tt.format.MIME() {
				t.Errorf("mime = %q, want %q", mime, tt.format.MIME())
			}
			decoded, err := imaging.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatal(err)
			}
			if decoded.Bounds() != img.Bounds() {
				t.Errorf("decoded bounds = %v, want %v", decoded.Bounds(), img.Bounds())
			}
		})
	}
}

func TestEncodePNGIsLossless(t *testing.T) {
	img := solid(8, 8, color.RGBA{1, 2, 3, 255})
	data, err := EncodeBytes(img, FormatPNG, 0)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := decoded.At(3, 3).RGBA()
	if r>>8 != 1 || g>>8 != 2 || b>>8 != 3 {
		t.Errorf("pixel = (%d, %d, %d), want (1, 2, 3)", r>>8, g>>8, b>>8)
	}
}

func TestJPEGQualityAffectsSize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := range 64 {
		for x := range 64 {
			img.Set(x, y, color.RGBA{uint8(x * 4), uint8(y * 4), uint8((x ^ y) * 4), 255})
		}
	}
	low, err := EncodeBytes(img, FormatJPEG, 10)
	if err != nil {
		t.Fatal(err)
	}
	high, err := EncodeBytes(img, FormatJPEG, 95)
	if err != nil {
		t.Fatal(err)
	}
	if len(low) >= len(high) {
		t.Errorf("quality 10 produced %d bytes, quality 95 produced %d", len(low), len(high))
	}
}

func TestEncodeErrors(t *testing.T) {
	if _, err := Encode(nil, FormatPNG, 0); !errs.Is(err, errs.ErrCodeNoBaseImage) {
		t.Errorf("Encode(nil) error = %v, want NO_BASE_IMAGE", err)
	}
	if _, err := Encode(solid(1, 1, color.White), "gif", 0); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("Encode(gif) error = %v, want UNSUPPORTED", err)
	}
}

func TestDecodeDataURLErrors(t *testing.T) {
	tests := []string{
		"",
		"not a url",
		"data:text/plain;base64,aGk=",
		"data:image/png;base64,%%%",
	}
	for _, in := range tests {
		if _, _, err := DecodeDataURL(in); !errs.Is(err, errs.ErrCodeInvalidFormat) {
			t.Errorf("DecodeDataURL(%q) error = %v, want INVALID_FORMAT", in, err)
		}
	}
}

func TestEncodeDataURL(t *testing.T) {
	if got := EncodeDataURL("image/png", []byte("hi")); got != "data:image/png;base64,aGk=" {
		t.Errorf("EncodeDataURL() = %q", got)
	}
}
