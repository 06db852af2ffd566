package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/config"
)

// Request describes one remote document: a schedule list or a vCard stream.
type Request struct {
	URL  string
	User string
	Pass string

	// Accept lists the media types the caller can decode, e.g.
	// config.AcceptSchedules. It is sent as the Accept header, and a response
	// declaring another Content-Type is refused. A response without a
	// Content-Type is let through to the decoder. Empty disables the check.
	Accept []string
}

// Fetcher retrieves remote documents.
// This interface allows for mocking in tests and decoupling from the network layer.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (io.ReadCloser, error)
}

// HTTPFetcher implements Fetcher using the standard net/http library.
type HTTPFetcher struct {
	Client *http.Client

	// MaxBytes caps the body; reading past it fails with an OutOfRange error.
	// Zero means config.MaxHTTPResponseSize.
	MaxBytes int64
}

// NewHTTPFetcher creates an HTTPFetcher with the configured timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
	}
}

// Fetch downloads r.URL.
// Only http and https are accepted and the query string is kept out of the
// logs, since it may carry tokens. The media type is checked against r.Accept
// before the body is handed out.
func (f *HTTPFetcher) Fetch(ctx context.Context, r Request) (io.ReadCloser, error) {
	// Parse the URL to validate it and sanitize it for logs.
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInvalidArgument, config.ErrInvalidURL)
	}

	// Security check: strictly HTTP or HTTPS.
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "%s: %s", config.ErrProtocol, u.Scheme)
	}

	// Construct a safe URL for logging (stripping query parameters which might contain tokens).
	safeURL := u.Scheme + "://" + u.Host + u.Path

	// Create a logger with context fields.
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, safeURL),
	)
	log.Debug(config.MsgFetchStart)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrRequestBuild, err)
	}
	// Use the centralized User-Agent string from config to ensure consistency.
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	if len(r.Accept) > 0 {
		req.Header.Set(config.HeaderAccept, strings.Join(r.Accept, ", "))
	}
	if r.User != "" || r.Pass != "" {
		req.SetBasicAuth(r.User, r.Pass)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close() // Don't leak the connection on error.
		log.Warn(config.MsgFetchStatus, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, fmt.Errorf("%s: %d %s", config.ErrStatus, resp.StatusCode, resp.Status)
	}

	// An HTML login or error page served with 200 is refused here rather than
	// failing later as a decode error.
	if mediaType, ok := acceptable(resp.Header.Get(config.HeaderContentType), r.Accept); !ok {
		_ = resp.Body.Close()
		log.Warn(config.MsgFetchMediaType, slog.String(config.LogKeyMediaType, mediaType))
		return nil, apperr.Newf(apperr.KindInvalidArgument, "%s: %q", config.ErrContentType, mediaType)
	}

	log.Info(config.MsgFetchBody, slog.Int64(config.LogKeyLength, resp.ContentLength))

	// Return a ReadCloser that fails past the size limit to protect against
	// large payloads.
	limit := f.MaxBytes
	if limit <= 0 {
		limit = config.MaxHTTPResponseSize
	}
	return &cappedBody{body: resp.Body, remaining: limit, limit: limit}, nil
}

// acceptable reports whether the Content-Type header names one of accept.
// It returns the parsed media type for logging.
func acceptable(contentType string, accept []string) (string, bool) {
	if len(accept) == 0 || contentType == "" {
		return contentType, true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType, false
	}
	for _, want := range accept {
		if strings.EqualFold(mediaType, want) {
			return mediaType, true
		}
	}
	return mediaType, false
}

// cappedBody reads at most limit bytes of body. Unlike io.LimitReader it
// fails on an oversized document instead of truncating it.
type cappedBody struct {
	body      io.ReadCloser
	remaining int64
	limit     int64
}

func (c *cappedBody) Read(p []byte) (int, error) {
	if c.remaining <= 0 {
		// One more byte tells EOF at exactly limit apart from an overflow.
		var extra [1]byte
		if n, _ := c.body.Read(extra[:]); n > 0 {
			return 0, apperr.Newf(apperr.KindOutOfRange, "%s: %d bytes", config.ErrBodyTooLarge, c.limit)
		}
		return 0, io.EOF
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.body.Read(p)
	c.remaining -= int64(n)
	return n, err
}

func (c *cappedBody) Close() error {
	return c.body.Close()
}
