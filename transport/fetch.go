// Package transport provides the network and file system collaborators of a
// signing session: fetching documents and signature images, submitting the
// signed document and saving it locally.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/digitorus/pdfplace/images"
)

// DefaultMaxBytes limits the size of fetched resources.
const DefaultMaxBytes = 64 << 20

// ErrTooLarge is returned when a resource exceeds the configured size limit.
var ErrTooLarge = errors.New("resource exceeds size limit")

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.URL, e.StatusCode)
}

// HTTPFetcher loads resources from http(s) URLs, data URLs and the local
// file system.
type HTTPFetcher struct {
	Client *http.Client
	// Cache, when set, keeps fetched http(s) resources by URL.
	Cache Cache
	// BaseDir resolves relative file paths.
	BaseDir string
	// MaxBytes limits the size of a resource; zero means DefaultMaxBytes.
	MaxBytes int64
	// Token is sent as a bearer token with http(s) requests when set.
	Token string
}

// NewHTTPFetcher returns a fetcher with the given request timeout and an
// in-memory cache.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{Timeout: timeout},
		Cache:  NewMemoryCache(),
	}
}

func (f *HTTPFetcher) maxBytes() int64 {
	if f.MaxBytes > 0 {
		return f.MaxBytes
	}
	return DefaultMaxBytes
}

// Fetch returns the bytes at location.
func (f *HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, errors.New("empty location")
	}
	if images.IsDataURL(location) {
		data, _, err := images.ParseDataURL(location)
		return data, err
	}

	u, err := url.Parse(location)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return f.fetchHTTP(ctx, u.String())
		case "file":
			return f.readFile(u.Path)
		}
	}
	return f.readFile(location)
}

func (f *HTTPFetcher) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	if f.Cache != nil {
		if data, ok := f.Cache.Get(location); ok {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{URL: location, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	data, err := readLimited(resp.Body, f.maxBytes())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}

	if f.Cache != nil {
		f.Cache.Put(location, data)
	}
	return data, nil
}

func (f *HTTPFetcher) readFile(path string) ([]byte, error) {
	if !filepath.IsAbs(path) && f.BaseDir != "" {
		path = filepath.Join(f.BaseDir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()
	return readLimited(file, f.maxBytes())
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Fetcher loads raw bytes from a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// ImageLoader fetches and decodes signature images.
type ImageLoader struct {
	Fetcher Fetcher
}

// Load fetches location and decodes it as a JPEG or PNG image.
func (l *ImageLoader) Load(ctx context.Context, location string) (*images.Image, error) {
	data, err := l.Fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	return images.Decode(filepath.Base(location), data)
}
