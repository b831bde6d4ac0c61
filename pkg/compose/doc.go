// Package compose flattens a base image and its text annotations into the
// final meme image.
//
// Annotations are edited against a scaled preview of the base image. The
// [Compositor] re-renders them at the base image's native resolution:
// positions and sizes are scaled per axis, font sizes by the smaller of the
// two factors so text is never distorted. Each annotation is drawn about its
// own centre with its rotation, as a black round-joined outline under a fill
// in the annotation's colour.
//
// Rendering is deterministic: the same base image, annotation values and
// preview size always produce the same pixels.
//
// # Usage
//
//	c := compose.New(compose.Options{})
//	img, err := c.Render(ctx, base, annotations, 700, 500)
//	if err != nil {
//	    return err
//	}
//	dataURL, err := compose.Encode(img, compose.FormatPNG, 0)
package compose
