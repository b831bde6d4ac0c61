package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// The server uses it to keep its keys apart from other tenants of a shared
// Redis instance.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "memeforge:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// ImageKey generates a prefixed key for base image caching.
func (k *ScopedKeyer) ImageKey(source string) string {
	return k.prefix + k.inner.ImageKey(source)
}

// RenderKey generates a prefixed key for rendered meme caching.
func (k *ScopedKeyer) RenderKey(draftHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(draftHash, opts)
}
