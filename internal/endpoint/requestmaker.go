package endpoint

import (
	"context"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/sanix-darker/loadgun/internal/body"
	"github.com/sanix-darker/loadgun/internal/httpclient"
	"github.com/sanix-darker/loadgun/internal/jsonvalue"
	"github.com/sanix-darker/loadgun/internal/provider"
)

// assembledTick is the output of building a template env from one tick's
// StreamItems: the env itself plus every AutoReturn the tick owns, which
// the response handler (or its failure path) must eventually finish.
type assembledTick struct {
	env         jsonvalue.Object
	autoReturns []*provider.AutoReturn
}

// buildEnv implements spec.md §4.G step 1: start with a fresh object; for
// each TemplateValue insert at key name; for each Declare insert the
// already-reduced value; collect the AutoReturns.
func buildEnv(items []StreamItem) assembledTick {
	env := jsonvalue.NewObject()
	var returns []*provider.AutoReturn
	for _, item := range items {
		switch item.Kind {
		case KindTemplateValue:
			env[item.Name] = item.Value
			if item.AutoReturn != nil {
				returns = append(returns, item.AutoReturn)
			}
		case KindDeclare:
			env[item.Name] = item.Value
			returns = append(returns, item.AutoReturns...)
		case KindNone:
			// pacing tick, nothing to insert
		}
	}
	return assembledTick{env: env, autoReturns: returns}
}

// renderedRequest is the output of spec.md §4.G steps 2-4.
type renderedRequest struct {
	req         httpclient.Request
	built       body.Built
	displayURL  string
	displayBody string
}

// render evaluates the endpoint's URL, header, and body templates against
// env, defaults the Host header from the rendered URL's authority, and
// records the rendered request-line/headers/body back into env so later
// templates (loggers, provides) can reference request.* (spec.md §4.G
// steps 2-5).
func (e *Endpoint) render(env jsonvalue.Object) (renderedRequest, error) {
	rawURL, err := e.URL.Evaluate(env)
	if err != nil {
		return renderedRequest{}, err
	}

	headers := textproto.MIMEHeader{}
	for _, h := range e.Headers {
		v, err := h.Template.Evaluate(env)
		if err != nil {
			return renderedRequest{}, err
		}
		headers.Set(h.Name, v)
	}

	built, err := body.Build(e.Body, env, headers, e.ConfigPath, true)
	if err != nil {
		return renderedRequest{}, err
	}

	if headers.Get("Host") == "" {
		if parsed, parseErr := url.Parse(rawURL); parseErr == nil && parsed.Host != "" {
			headers.Set("Host", parsed.Host)
		}
	}

	httpHeaders := make(http.Header, len(headers))
	for k, v := range headers {
		httpHeaders[k] = v
	}

	jsonvalue.SetPath(env, "request.start-line", e.Method+" "+rawURL)
	jsonvalue.SetPath(env, "request.url", rawURL)
	headerObj := jsonvalue.NewObject()
	for k, v := range headers {
		if len(v) == 1 {
			headerObj[k] = v[0]
		} else {
			arr := make([]jsonvalue.V, len(v))
			for i, s := range v {
				arr[i] = s
			}
			headerObj[k] = arr
		}
	}
	jsonvalue.SetPath(env, "request.headers", headerObj)
	jsonvalue.SetPath(env, "request.body", built.DisplayValue)

	return renderedRequest{
		req: httpclient.Request{
			Method:        e.Method,
			URL:           rawURL,
			Headers:       httpHeaders,
			Body:          built.Reader,
			ContentLength: built.Length,
		},
		built:       built,
		displayURL:  rawURL,
		displayBody: built.DisplayValue,
	}, nil
}

// submit issues the rendered request under the endpoint's timeout,
// implementing spec.md §4.G step 6.
func (e *Endpoint) submit(ctx context.Context, client *httpclient.Client, r renderedRequest) (httpclient.Response, time.Duration, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := client.Request(reqCtx, r.req)
	rtt := time.Since(start)
	return resp, rtt, err
}
