package compose

import (
	"bytes"
	"encoding/base64"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	errs "github.com/matzehuels/memeforge/pkg/errors"
)

// Format is an output image encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// DefaultJPEGQuality matches the 0.8 quality of the browser download path.
const DefaultJPEGQuality = 80

// ParseFormat parses "png", "jpeg" or "jpg". Empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	}
	return "", errs.New(errs.ErrCodeUnsupported, "unsupported image format %q (use png or jpeg)", s)
}

// MIME returns the media type for the format.
func (f Format) MIME() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// EncodeBytes encodes img. quality applies to JPEG only; values outside
// 1..100 use DefaultJPEGQuality.
func EncodeBytes(img image.Image, format Format, quality int) ([]byte, error) {
	if img == nil {
		return nil, errs.New(errs.ErrCodeNoBaseImage, "nothing to encode")
	}
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatJPEG:
		if quality < 1 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatPNG, "":
		err = imaging.Encode(&buf, img, imaging.PNG)
	default:
		return nil, errs.New(errs.ErrCodeUnsupported, "unsupported image format %q", string(format))
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "encode %s", format.MIME())
	}
	return buf.Bytes(), nil
}

// Encode encodes img as a base64 data URL.
func Encode(img image.Image, format Format, quality int) (string, error) {
	data, err := EncodeBytes(img, format, quality)
	if err != nil {
		return "", err
	}
	return EncodeDataURL(format.MIME(), data), nil
}

// EncodeDataURL builds a base64 data URL.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 image data URL into its media type and bytes.
func DecodeDataURL(s string) (mime string, data []byte, err error) {
	if err := errs.ValidateDataURL(s); err != nil {
		return "", nil, err
	}
	header, payload, _ := strings.Cut(s, ",")
	mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode data URL payload")
	}
	return mime, data, nil
}
