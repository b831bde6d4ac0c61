// Package imagesource loads the base image a meme is drawn on.
//
// A [Source] names where the image comes from: a bundled template, a remote
// URL, an inline data URL or a local file. [Loader] fetches and decodes it
// into a [BaseImage]. Remote bytes are cached through [cache.Cache] and
// concurrent loads of the same URL share one request.
//
// Any failure is reported with code IMAGE_LOAD_FAILED and the user message
// "Failed to load image. Please try another image."; the underlying cause is
// kept for logging.
//
// [FitPreview] computes the on-screen size the editor works in. Annotation
// geometry is expressed in that preview space and scaled back to the native
// image size when compositing.
package imagesource
