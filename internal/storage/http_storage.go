package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/anime-shed/certscan-go/internal/frame"
)

const (
	fetchAttempts        = 3
	defaultMaxImageBytes = 10 << 20
)

// ImageFetcher retrieves one picture from a snapshot location
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)
}

// StatusError is a non-200 response from a snapshot source
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	if e.Code >= 500 {
		return fmt.Sprintf("server error: status code %d", e.Code)
	}
	return fmt.Sprintf("client error: status code %d", e.Code)
}

// HTTPStatus exposes the response code to acquisition error classification
func (e *StatusError) HTTPStatus() int {
	return e.Code
}

// HTTPFetcherOptions tunes the snapshot HTTP client
type HTTPFetcherOptions struct {
	Timeout            time.Duration
	RetryBackoff       time.Duration
	MaxImageBytes      int64
	MaxPixels          int
	InsecureSkipVerify bool
}

// DefaultHTTPFetcherOptions returns the settings used for IP camera snapshots
func DefaultHTTPFetcherOptions() HTTPFetcherOptions {
	return HTTPFetcherOptions{
		Timeout:       30 * time.Second,
		RetryBackoff:  time.Second,
		MaxImageBytes: defaultMaxImageBytes,
		MaxPixels:     frame.DefaultMaxPixels,
	}
}

// HTTPImageFetcher pulls snapshot pictures over HTTP with retry on
// transient failures
type HTTPImageFetcher struct {
	client  *http.Client
	backoff   time.Duration
	maxSize   int64
	maxPixels int
}

// NewHTTPImageFetcher creates a fetcher with default options
func NewHTTPImageFetcher() *HTTPImageFetcher {
	return NewHTTPImageFetcherWithOptions(DefaultHTTPFetcherOptions())
}

// NewHTTPImageFetcherWithOptions creates a fetcher tuned for repeated small
// downloads from the same host
func NewHTTPImageFetcherWithOptions(opts HTTPFetcherOptions) *HTTPImageFetcher {
	def := DefaultHTTPFetcherOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = def.RetryBackoff
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = def.MaxImageBytes
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = def.MaxPixels
	}

	transport := &http.Transport{
		// A snapshot source is polled continuously, keep its connection warm
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DisableCompression:     false,
		MaxResponseHeaderBytes: 4096,

		// IP cameras commonly ship self-signed certificates
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.InsecureSkipVerify,
		},
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		backoff:   opts.RetryBackoff,
		maxSize:   opts.MaxImageBytes,
		maxPixels: opts.MaxPixels,
	}
}

// FetchImage downloads and decodes one picture. 4xx responses fail at once,
// 5xx responses and transport errors are retried with linear backoff.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, */*")
	req.Header.Set("User-Agent", "certscan-go/1.0")

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		resp, err := h.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		} else if resp.StatusCode == http.StatusOK {
			return h.decode(resp)
		} else {
			resp.Body.Close()
			lastErr = &StatusError{Code: resp.StatusCode}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				break
			}
		}

		if attempt < fetchAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * h.backoff):
			}
		}
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", fetchAttempts, lastErr)
}

func (h *HTTPImageFetcher) decode(resp *http.Response) (image.Image, error) {
	defer resp.Body.Close()
	img, _, err := frame.DecodeImage(io.LimitReader(resp.Body, h.maxSize), h.maxPixels)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
