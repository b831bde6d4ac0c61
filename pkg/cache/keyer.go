package cache

// Keyer generates cache keys for the different cached artifacts.
type Keyer interface {
	// HTTPKey generates a key for a raw HTTP response body.
	HTTPKey(namespace, key string) string

	// ImageKey generates a key for the bytes of a base image source.
	ImageKey(source string) string

	// RenderKey generates a key for a rendered meme.
	RenderKey(draftHash string, opts RenderKeyOpts) string
}

// RenderKeyOpts holds the encoder settings that change a rendered artifact.
type RenderKeyOpts struct {
	Format  string `json:"format"`
	Quality int    `json:"quality,omitempty"`
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// ImageKey hashes the source so URLs and data URLs make safe keys.
func (DefaultKeyer) ImageKey(source string) string {
	return hashKey("image", source)
}

// RenderKey hashes the draft hash together with the encoder options.
func (DefaultKeyer) RenderKey(draftHash string, opts RenderKeyOpts) string {
	return hashKey("render", draftHash, opts)
}
