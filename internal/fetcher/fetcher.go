// Package fetcher retrieves product pages over one shared HTTP session with
// bounded concurrency.
package fetcher

import (
	"context"
	"net/http"
)

// Response is the raw outcome of one GET.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Getter performs a single GET with extra request headers merged in.
// A non-2xx status is not an error at this level; only transport failures are.
type Getter interface {
	Get(ctx context.Context, url string, header map[string]string) (*Response, error)
}

// GetterFunc adapts a function to the Getter interface.
type GetterFunc func(ctx context.Context, url string, header map[string]string) (*Response, error)

// Get calls f.
func (f GetterFunc) Get(ctx context.Context, url string, header map[string]string) (*Response, error) {
	return f(ctx, url, header)
}
