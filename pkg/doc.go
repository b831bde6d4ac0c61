// Package pkg provides the core libraries for Memeforge, a meme creator.
//
// # Overview
//
// Memeforge places styled, rotatable text boxes over a base image, renders
// the result at the image's native resolution and publishes it to a shared
// feed. The pkg directory is organized into four main areas:
//
//  1. Editing - [overlay] and [editor] (annotation state and gestures)
//  2. Rendering - [imagesource], [compose] and [pipeline] (load, composite, encode)
//  3. Feed - [feed], [publish] and [auth] (memes, upvotes, sign-in)
//  4. Infrastructure - [cache], [session], [config], [httputil], [observability]
//
// # Architecture
//
// The typical data flow through Memeforge:
//
//	Template / URL / file / data URL
//	         ↓
//	    [imagesource] (fetch + decode, preview size)
//	         ↓
//	    [overlay] (annotations edited in preview space)
//	         ↓
//	    [compose] (scale to native size, draw outlined text)
//	         ↓
//	    PNG/JPEG data URL → [publish] → [feed]
//
// # Quick Start
//
// Render a draft:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Draft: pipeline.Draft{
//	        Source: "template:Drake",
//	        Annotations: []overlay.Annotation{{
//	            ID: 1, X: 20, Y: 20, Width: 300, Height: 80,
//	            Text: "Writing tests", Style: overlay.DefaultStyle(),
//	        }},
//	    },
//	})
//	// res.DataURL is "data:image/png;base64,..."
//
// Drive the editor with pointer events:
//
//	sess := editor.New(editor.Options{Runner: runner})
//	_ = sess.Load(ctx, imagesource.FromTemplate(templates.All()[0]))
//	sess.PointerDown(100, 100) // empty space: adds a caption
//	sess.PointerUp()
//
// # Main Packages
//
// [overlay] - The annotation engine: create, drag, resize from any corner,
// rotate with snapping, delete, and style updates. Pure state, no I/O.
//
// [editor] - One editing session: the engine plus the current base image,
// with last-started-wins image loads and a one-shot publish.
//
// [imagesource] - Image sources (templates, URLs, files, data URLs), the
// loader with caching and retries, and preview fitting.
//
// [compose] - The compositor. Maps preview-space annotations onto the
// full-resolution image and draws word-wrapped, outlined text.
//
// [pipeline] - Drafts and the render runner shared by the CLI and the API.
//
// [feed] - Memes, upvotes and the feed rules, with in-memory and MongoDB
// stores and in-memory and Redis event brokers.
//
// [api] - The HTTP API and its client.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test -run Example                 # Examples only
//	go test -tags integration ./pkg/...  # Include Redis and MongoDB tests
//
// [overlay]: https://pkg.go.dev/github.com/matzehuels/memeforge/pkg/overlay
// [editor]: https://pkg.go.dev/github.com/matzehuels/memeforge/pkg/editor
// [imagesource]: https://pkg.go.dev/github.com/matzehuels/memeforge/pkg/imagesource
// [compose]: https://pkg.go.dev/github.com/matzehuels/memeforge/pkg/compose
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/memeforge/pkg/pipeline
// [feed]: https://pkg.go.dev/github.com/matzehuels/memeforge/pkg/feed
// [publish]: https://pkg.go.dev/github.com/matzehuels/memeforge/pkg/publish
// [auth]: https://pkg.go.dev/github.com/matzehuels/memeforge/pkg/auth
// [api]: https://pkg.go.dev/github.com/matzehuels/memeforge/pkg/api
// [cache]: https://pkg.go.dev/github.com/matzehuels/memeforge/pkg/cache
// [session]: https://pkg.go.dev/github.com/matzehuels/memeforge/pkg/session
// [config]: https://pkg.go.dev/github.com/matzehuels/memeforge/pkg/config
// [httputil]: https://pkg.go.dev/github.com/matzehuels/memeforge/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/memeforge/pkg/observability
package pkg
