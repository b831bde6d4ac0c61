package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memeforge/pkg/observability"
)

func TestRegisterLogHooks(t *testing.T) {
	defer observability.Reset()

	var buf bytes.Buffer
	registerLogHooks(log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel}))
	ctx := context.Background()

	observability.Render().OnLoadComplete(ctx, "template", "Drake", 1200, 1200, time.Second, nil)
	observability.Render().OnRenderComplete(ctx, 1200, 1200, time.Second, errors.New("boom"))
	observability.Feed().OnPublish(ctx, "meme-1", 2048, nil)
	observability.Cache().OnCacheHit(ctx, "image")

	out := buf.String()
	for _, want := range []string{"loaded", "1200x1200", "render failed", "boom", "published", "meme-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "cache hit") {
		t.Error("cache events should log at debug level")
	}
}
