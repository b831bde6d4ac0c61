package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memeforge/pkg/observability"
)

// logHooks reports observability events to the server log. Loads, renders
// and feed mutations log at info; cache and HTTP traffic at debug.
type logHooks struct {
	logger *log.Logger
}

// registerLogHooks routes every observability event category to l.
func registerLogHooks(l *log.Logger) {
	h := logHooks{logger: l}
	observability.SetRenderHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
	observability.SetFeedHooks(h)
}

func (h logHooks) OnLoadStart(_ context.Context, kind, source string) {
	h.logger.Debug("load started", "kind", kind, "source", source)
}

func (h logHooks) OnLoadComplete(_ context.Context, kind, source string, width, height int, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("load failed", "kind", kind, "source", source, "duration", d, "error", err)
		return
	}
	h.logger.Info("loaded", "kind", kind, "source", source, "size", sizeString(width, height), "duration", d)
}

func (h logHooks) OnRenderStart(_ context.Context, annotations int) {
	h.logger.Debug("render started", "annotations", annotations)
}

func (h logHooks) OnRenderComplete(_ context.Context, width, height int, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("render failed", "duration", d, "error", err)
		return
	}
	h.logger.Info("rendered", "size", sizeString(width, height), "duration", d)
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Warn("http error", "method", method, "host", host, "path", path, "error", err)
}

func (h logHooks) OnPublish(_ context.Context, memeID string, size int, err error) {
	if err != nil {
		h.logger.Warn("publish failed", "size", size, "error", err)
		return
	}
	h.logger.Info("published", "meme", memeID, "size", size)
}

func (h logHooks) OnUpvote(_ context.Context, memeID string, added bool) {
	h.logger.Info("upvote", "meme", memeID, "added", added)
}

func (h logHooks) OnDelete(_ context.Context, memeID string) {
	h.logger.Info("deleted", "meme", memeID)
}

func sizeString(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}
