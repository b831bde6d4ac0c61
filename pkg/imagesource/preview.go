package imagesource

import (
	"image"

	"github.com/disintegration/imaging"
)

// Default preview bounds used by the editor.
const (
	PreviewMaxWidth  = 700
	PreviewMaxHeight = 500
)

// FitPreview scales (w, h) down to fit maxW x maxH, keeping the aspect
// ratio. The width is fitted first, then the height. Images already inside
// the bounds keep their size.
func FitPreview(w, h, maxW, maxH float64) (float64, float64) {
	if w > maxW {
		h = h * maxW / w
		w = maxW
	}
	if h > maxH {
		w = w * maxH / h
		h = maxH
	}
	return w, h
}

// Preview returns the preview size of b within the given bounds.
func (b *BaseImage) Preview(maxW, maxH float64) (float64, float64) {
	return FitPreview(float64(b.Width), float64(b.Height), maxW, maxH)
}

// Thumbnail scales img down to fit w x h. Smaller images are returned as is.
func Thumbnail(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() <= w && b.Dy() <= h {
		return img
	}
	return imaging.Fit(img, w, h, imaging.Lanczos)
}
