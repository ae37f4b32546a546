package venue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	xhttp "MarketLens/pkg/http"
)

// RESTClient is the shared HTTP layer for venue adapters: one reusable
// client per venue, every response classified into an adapter Error.
type RESTClient struct {
	venue string
	base  string
	hc    *xhttp.Client
}

// NewRESTClient builds a venue REST client with a per-call timeout.
func NewRESTClient(venueName, baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		venue: venueName,
		base:  baseURL,
		hc:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// GetJSON issues a GET under the venue base URL and decodes the JSON body
// into dest. Schema drift (unexpected body shape) surfaces as a
// malformed-response error rather than a crash further up.
func (c *RESTClient) GetJSON(ctx context.Context, op, path string, params map[string][]string, dest interface{}) error {
	resp, err := c.hc.SendRequest(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.base + path,
		QueryParams: params,
	})
	if err != nil {
		return c.classifyTransport(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return NewError(ErrRateLimited, c.venue, op, errors.New(resp.Status))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		io.Copy(io.Discard, resp.Body)
		return NewError(ErrAuth, c.venue, op, errors.New(resp.Status))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		io.Copy(io.Discard, resp.Body)
		return NewError(ErrMalformed, c.venue, op, errors.New(resp.Status))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return NewError(ErrMalformed, c.venue, op, err)
	}
	return nil
}

func (c *RESTClient) classifyTransport(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrTimeout, c.venue, op, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NewError(ErrTimeout, c.venue, op, err)
	}
	return NewError(ErrNetwork, c.venue, op, err)
}
