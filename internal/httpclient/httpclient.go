// Package httpclient implements the "HTTP client contract" from spec.md §6
// (client.Request(ctx, Request) (Response, error)) on top of resty, the same
// construction idiom internal/provider/openai/openai.go uses:
// resty.New().SetTimeout(...) plus explicit per-call overrides, rather than
// raw net/http.
package httpclient

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sanix-darker/loadgun/internal/errs"
)

// Request is the outbound side of the client contract.
type Request struct {
	Method        string
	URL           string
	Headers       http.Header
	Body          io.Reader
	ContentLength int64
}

// Response is the inbound side of the client contract.
type Response struct {
	Status     int
	StatusText string
	Proto      string
	Headers    http.Header
	Body       []byte
}

// Client wraps a resty.Client configured once at startup and shared
// (immutable) across every endpoint driver, per spec.md §5 "Shared
// resources".
type Client struct {
	resty *resty.Client
}

// Options configures client construction.
type Options struct {
	Timeout            time.Duration
	MaxIdleConns       int
	DisableCompression bool
}

// New builds a Client with the given global options.
func New(opts Options) *Client {
	rc := resty.New().
		SetTimeout(opts.Timeout).
		SetTransport(&http.Transport{
			MaxIdleConns:       opts.MaxIdleConns,
			DisableCompression: opts.DisableCompression,
		})
	return &Client{resty: rc}
}

// maxResponseBody caps how much of a response body is buffered into memory,
// per spec.md §4.I "streams the body into memory up to a configurable
// per-request byte cap". A fixed generous default stands in for that
// configurability until the config surface grows a knob for it.
const maxResponseBody = 16 * 1024 * 1024

// Request issues req under ctx's deadline (the endpoint engine supplies a
// per-request timeout context per spec.md §4.G step 6) and returns the
// parsed Response, or a RecoverableError::HttpErr on transport failure.
func (c *Client) Request(ctx context.Context, req Request) (Response, error) {
	r := c.resty.R().SetContext(ctx).SetDoNotParseResponse(true)
	r.Method = req.Method
	r.URL = req.URL
	for k, vs := range req.Headers {
		for _, v := range vs {
			r.SetHeader(k, v)
		}
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	if req.ContentLength > 0 {
		r.SetHeader("Content-Length", strconv.FormatInt(req.ContentLength, 10))
	}

	resp, err := r.Send()
	if err != nil {
		return Response{}, errs.Recoverable(errs.RecoverableHTTPErr, err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	body, err := io.ReadAll(io.LimitReader(raw, maxResponseBody))
	if err != nil {
		return Response{}, errs.Recoverable(errs.RecoverableHTTPErr, err)
	}

	return Response{
		Status:     resp.StatusCode(),
		StatusText: resp.Status(),
		Proto:      resp.RawResponse.Proto,
		Headers:    resp.Header(),
		Body:       body,
	}, nil
}
