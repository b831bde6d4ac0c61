package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/memeforge/pkg/auth"
	"github.com/matzehuels/memeforge/pkg/buildinfo"
	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/feed"
	"github.com/matzehuels/memeforge/pkg/overlay"
	"github.com/matzehuels/memeforge/pkg/pipeline"
	"github.com/matzehuels/memeforge/pkg/templates"
)

// Client talks to a memeforge server. Calls are not retried: publish,
// delete and upvote must not run twice.
type Client struct {
	base    string
	token   string
	http    *http.Client
	headers map[string]string
}

// NewClient creates a client for the server at baseURL. token may be empty
// for anonymous calls.
func NewClient(baseURL, token string) *Client {
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
		headers: map[string]string{"User-Agent": buildinfo.UserAgent()},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.base }

// RequestCode asks the server to email a sign-in code.
func (c *Client) RequestCode(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/code", CodeRequest{Email: email}, nil)
}

// Verify exchanges a code for a session token.
func (c *Client) Verify(ctx context.Context, email, code string) (*VerifyResponse, error) {
	var out VerifyResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/verify", VerifyRequest{Email: email, Code: code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the caller's identity.
func (c *Client) Me(ctx context.Context) (auth.Identity, error) {
	var out auth.Identity
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out)
	return out, err
}

// Logout ends the caller's session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Templates lists the server's templates.
func (c *Client) Templates(ctx context.Context) ([]templates.Template, error) {
	var out []templates.Template
	err := c.do(ctx, http.MethodGet, "/api/templates", nil, &out)
	return out, err
}

// Render renders a draft on the server.
func (c *Client) Render(ctx context.Context, opts pipeline.Options) (*RenderResponse, error) {
	var out RenderResponse
	if err := c.do(ctx, http.MethodPost, "/api/render", opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Feed lists memes in the given order.
func (c *Client) Feed(ctx context.Context, sort feed.Sort) (*FeedResponse, error) {
	var out FeedResponse
	q := url.Values{"sort": {string(sort)}}
	if err := c.do(ctx, http.MethodGet, "/api/memes?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Meme returns one meme with its image.
func (c *Client) Meme(ctx context.Context, id string) (*MemeView, error) {
	var out MemeView
	if err := c.do(ctx, http.MethodGet, "/api/memes/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Publish publishes a draft or an encoded image.
func (c *Client) Publish(ctx context.Context, req PublishRequest) (*MemeView, error) {
	var out MemeView
	if err := c.do(ctx, http.MethodPost, "/api/memes", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateMeme uploads an encoded meme, so a Client can stand in as the
// store behind a local publish.Publisher. Only the image and captions are
// sent; the server assigns the id and the author.
func (c *Client) CreateMeme(ctx context.Context, m feed.Meme) (feed.Meme, error) {
	view, err := c.Publish(ctx, PublishRequest{
		ImageBase64: m.ImageBase64,
		Annotations: []overlay.Annotation{{Text: m.TopText}, {Text: m.BottomText}},
	})
	if err != nil {
		return feed.Meme{}, err
	}
	return view.Meme, nil
}

// ToggleUpvote adds or removes the caller's upvote.
func (c *Client) ToggleUpvote(ctx context.Context, id string) (*UpvoteResponse, error) {
	var out UpvoteResponse
	if err := c.do(ctx, http.MethodPost, "/api/memes/"+url.PathEscape(id)+"/upvote", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete deletes one of the caller's memes.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/memes/"+url.PathEscape(id), nil, nil)
}

// Events streams feed events until ctx is done or the server closes the
// stream. fn is called for every event.
func (c *Client) Events(ctx context.Context, fn func(feed.Event)) error {
	resp, err := c.send(ctx, http.MethodGet, "/api/events", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var e feed.Event
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			continue
		}
		fn(e)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return sc.Err()
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidFormat, err, "invalid response from %s", path)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "could not reach %s", c.base)
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// checkStatus turns an error response back into a coded error.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	var body ErrorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Code == "" {
		return errs.New(errs.ErrCodeNetwork, "server returned %s", resp.Status)
	}
	return errs.New(errs.Code(body.Code), "%s", body.Message)
}

// String describes the client for logs.
func (c *Client) String() string {
	return fmt.Sprintf("api.Client(%s)", c.base)
}
