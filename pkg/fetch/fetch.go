// Package fetch downloads remote dataset files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies the tool to data publishers.
const DefaultUserAgent = "asf-mission-data-tool"

// FetchError reports a non-success response from the remote.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status code %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Download is a fully buffered remote file.
type Download struct {
	URL         string
	FileName    string
	ContentType string
	Content     []byte
}

// Options configures a Fetcher. Zero values mean no timeout and no rate
// limit.
type Options struct {
	Timeout   time.Duration
	Rate      rate.Limit
	Burst     int
	UserAgent string
}

// Fetcher performs blocking GET requests.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// New creates a Fetcher. A nil client uses a fresh http.Client.
func New(client *http.Client, opts Options) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	limit := opts.Rate
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Fetcher{
		client:    client,
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: ua,
	}
}

// Fetch downloads target. Any status outside 2xx yields a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*Download, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	name := FileNameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = FileNameFromURL(target)
	}
	if name == "" {
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("cannot derive file name")}
	}

	return &Download{
		URL:         target,
		FileName:    name,
		ContentType: resp.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// FileNameFromDisposition extracts the filename hint of a
// Content-Disposition header. Malformed headers fall back to the text
// after "filename=".
func FileNameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name := params["filename"]; name != "" {
			return sanitize(name)
		}
	}
	idx := strings.LastIndex(header, "filename=")
	if idx < 0 {
		return ""
	}
	name := header[idx+len("filename="):]
	if semi := strings.IndexByte(name, ';'); semi >= 0 {
		name = name[:semi]
	}
	return sanitize(strings.Trim(strings.TrimSpace(name), `"`))
}

// FileNameFromURL returns the trailing path segment of target.
func FileNameFromURL(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		segs := strings.Split(target, "/")
		return sanitize(segs[len(segs)-1])
	}
	p := u.Path
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	return sanitize(path.Base(p))
}

// sanitize keeps only the base name, NFC-normalised, so a hint cannot
// address anything outside the dataset prefix.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(strings.TrimSpace(name))
	switch name {
	case ".", "..", "/":
		return ""
	}
	return norm.NFC.String(name)
}
