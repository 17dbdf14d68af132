package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/yourusername/vidharvest/internal/domain"
)

// HTTPGetter implements domain.HTTPClient on a single shared http.Client.
// Its configuration is fixed at construction and never changed while workers run.
type HTTPGetter struct {
	client *http.Client
}

// NewHTTPGetter creates a getter from the http configuration
func NewHTTPGetter(config domain.HTTPConfig) *HTTPGetter {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.MaxConnsPerHost > 0 {
		transport.MaxConnsPerHost = config.MaxConnsPerHost
		transport.MaxIdleConnsPerHost = config.MaxConnsPerHost
	}

	return &HTTPGetter{
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}
}

// NewHTTPGetterWithClient wraps an existing client
func NewHTTPGetterWithClient(client *http.Client) *HTTPGetter {
	return &HTTPGetter{client: client}
}

// Get issues a GET request with the given headers
func (g *HTTPGetter) Get(ctx context.Context, url string, headers http.Header) (int, io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, resp.Body, nil
}
