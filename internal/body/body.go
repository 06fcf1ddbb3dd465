// Package body implements the request body builder from spec.md §4.F: a
// template-driven producer of a streamed HTTP body plus its byte length,
// ported from pewpew's MultipartBody::as_hyper_body (original_source/src/
// request.rs) into io.Reader chains instead of a future-combinator graph,
// per spec.md §9's guidance to re-architect as explicit structured code.
package body

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"strings"

	"github.com/sanix-darker/loadgun/internal/errs"
	"github.com/sanix-darker/loadgun/internal/jsonvalue"
	"github.com/sanix-darker/loadgun/internal/pathutil"
	"github.com/sanix-darker/loadgun/internal/template"
)

// Built is the result of rendering a Template: the byte stream to send, its
// length, and (optionally) a human-readable copy for logging/templating
// into request.body.
type Built struct {
	Length       int64
	Reader       io.ReadCloser
	DisplayValue string // only populated when CopyValue was requested
}

// Part describes one multipart section.
type Part struct {
	Name     string
	IsFile   bool
	Template template.Template
	Headers  []HeaderTemplate
}

// HeaderTemplate is a templated header name/value pair.
type HeaderTemplate struct {
	Name     string
	Template template.Template
}

// Template is the sum type mirroring config::BodyTemplate: exactly one of
// None/String/File/Multipart is populated.
type Template struct {
	Kind      Kind
	String    template.Template
	FilePath  template.Template
	Multipart []Part
}

type Kind int

const (
	KindNone Kind = iota
	KindString
	KindFile
	KindMultipart
)

const alphanumerics = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func randomBoundary() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = alphanumerics[int(b)%len(alphanumerics)]
	}
	return string(buf), nil
}

// Build renders t against env, resolving file paths relative to configPath.
// For multipart bodies, headers is mutated in place to add/rewrite
// Content-Type with the boundary; a missing per-part Content-Disposition is
// written into that part's own headers, not into headers. headers uses
// textproto.MIMEHeader's canonical casing like net/http.Header does.
// copyValue requests the DisplayValue be populated for templating into
// request.body.
func Build(t Template, env jsonvalue.Object, headers textproto.MIMEHeader, configPath string, copyValue bool) (Built, error) {
	switch t.Kind {
	case KindNone:
		return Built{Reader: io.NopCloser(strings.NewReader(""))}, nil
	case KindString:
		return buildString(t.String, env, copyValue)
	case KindFile:
		return buildFile(t.FilePath, env, configPath, copyValue)
	case KindMultipart:
		return buildMultipart(t.Multipart, env, headers, configPath, copyValue)
	default:
		return Built{}, errs.Internal("body: unknown template kind")
	}
}

func buildString(tmpl template.Template, env jsonvalue.Object, copyValue bool) (Built, error) {
	rendered, err := tmpl.Evaluate(env)
	if err != nil {
		return Built{}, err
	}
	out := Built{Length: int64(len(rendered)), Reader: io.NopCloser(strings.NewReader(rendered))}
	if copyValue {
		out.DisplayValue = rendered
	}
	return out, nil
}

func buildFile(tmpl template.Template, env jsonvalue.Object, configPath string, copyValue bool) (Built, error) {
	rendered, err := tmpl.Evaluate(env)
	if err != nil {
		return Built{}, err
	}
	resolved := pathutil.Resolve(rendered, configPath)
	f, err := os.Open(resolved)
	if err != nil {
		return Built{}, errs.Recoverable(errs.RecoverableBodyErr, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return Built{}, errs.Recoverable(errs.RecoverableBodyErr, err)
	}
	out := Built{Length: info.Size(), Reader: f}
	if copyValue {
		out.DisplayValue = fmt.Sprintf("<<contents of file: %s>>", rendered)
	}
	return out, nil
}

func buildMultipart(parts []Part, env jsonvalue.Object, headers textproto.MIMEHeader, configPath string, copyValue bool) (Built, error) {
	boundary, err := randomBoundary()
	if err != nil {
		return Built{}, errs.Recoverable(errs.RecoverableBodyErr, err)
	}

	ct := headers.Get("Content-Type")
	isForm := true
	switch {
	case ct == "":
		headers.Set("Content-Type", "multipart/form-data;boundary="+boundary)
	case strings.HasPrefix(ct, "multipart/"):
		isForm = strings.HasPrefix(ct, "multipart/form-data")
		headers.Set("Content-Type", ct+";boundary="+boundary)
	default:
		headers.Set("Content-Type", ct+";boundary="+boundary)
		isForm = false
	}

	closingBoundary := []byte("\r\n--" + boundary + "--\r\n")

	var readers []io.Reader
	var closers []io.Closer
	var display strings.Builder
	var total int64

	for i, part := range parts {
		pieceHeaders, hasContentDisposition, renderedValue, err := renderPartHeaders(part, env)
		if err != nil {
			closeAll(closers)
			return Built{}, err
		}

		var piece strings.Builder
		if i == 0 {
			piece.WriteString("--" + boundary)
		} else {
			piece.WriteString("\r\n--" + boundary)
		}
		for _, h := range pieceHeaders {
			piece.WriteString("\r\n" + h.Name + ": " + h.Value)
		}
		if isForm && !hasContentDisposition {
			if part.IsFile {
				piece.WriteString(fmt.Sprintf("\r\ncontent-disposition: form-data; name=\"%s\"; filename=\"%s\"", part.Name, renderedValue))
			} else {
				piece.WriteString(fmt.Sprintf("\r\ncontent-disposition: form-data; name=\"%s\"", part.Name))
			}
		}
		piece.WriteString("\r\n\r\n")
		header := piece.String()

		if part.IsFile {
			resolved := pathutil.Resolve(renderedValue, configPath)
			f, openErr := os.Open(resolved)
			if openErr != nil {
				closeAll(closers)
				return Built{}, errs.Recoverable(errs.RecoverableBodyErr, openErr)
			}
			info, statErr := f.Stat()
			if statErr != nil {
				f.Close()
				closeAll(closers)
				return Built{}, errs.Recoverable(errs.RecoverableBodyErr, statErr)
			}
			readers = append(readers, strings.NewReader(header), f)
			closers = append(closers, f)
			total += int64(len(header)) + info.Size()
			if copyValue {
				display.WriteString(header)
				display.WriteString(fmt.Sprintf("<<contents of file: %s>>", renderedValue))
			}
		} else {
			full := header + renderedValue
			readers = append(readers, strings.NewReader(full))
			total += int64(len(full))
			if copyValue {
				display.WriteString(full)
			}
		}
	}

	total += int64(len(closingBoundary))
	readers = append(readers, bytes.NewReader(closingBoundary))
	if copyValue {
		display.Write(closingBoundary)
	}

	out := Built{
		Length: total,
		Reader: multiCloser{Reader: io.MultiReader(readers...), closers: closers},
	}
	if copyValue {
		out.DisplayValue = display.String()
	}
	return out, nil
}

type renderedHeader struct {
	Name  string
	Value string
}

func renderPartHeaders(part Part, env jsonvalue.Object) ([]renderedHeader, bool, string, error) {
	value, err := part.Template.Evaluate(env)
	if err != nil {
		return nil, false, "", err
	}
	var out []renderedHeader
	hasContentDisposition := false
	for _, h := range part.Headers {
		v, herr := h.Template.Evaluate(env)
		if herr != nil {
			return nil, false, "", herr
		}
		if strings.EqualFold(h.Name, "Content-Disposition") {
			hasContentDisposition = true
		}
		out = append(out, renderedHeader{Name: h.Name, Value: v})
	}
	return out, hasContentDisposition, value, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		c.Close()
	}
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m multiCloser) Close() error {
	var firstErr error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
