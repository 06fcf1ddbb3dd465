// Package runconfig compiles a YAML test declaration into the wired
// providers, loggers, and endpoint.Endpoint descriptors the core drives
// (spec.md §6 "Inbound configuration (opaque to the core)"). A full
// template-expression grammar is out of scope (spec.md §1); this loader
// recognizes a small, direct YAML shape and builds the same compiled
// structures a real compiler would hand the core, following
// internal/config's Store-backed config idiom rather than reaching for a
// parser-generator dependency.
package runconfig

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sanix-darker/loadgun/internal/body"
	"github.com/sanix-darker/loadgun/internal/channel"
	"github.com/sanix-darker/loadgun/internal/endpoint"
	"github.com/sanix-darker/loadgun/internal/fileprovider"
	"github.com/sanix-darker/loadgun/internal/jsonvalue"
	"github.com/sanix-darker/loadgun/internal/killer"
	"github.com/sanix-darker/loadgun/internal/logger"
	"github.com/sanix-darker/loadgun/internal/provider"
	"github.com/sanix-darker/loadgun/internal/template"
	"gopkg.in/yaml.v3"
)

// Doc is the top-level shape of a test declaration file.
type Doc struct {
	Providers map[string]ProviderDecl `yaml:"providers"`
	Loggers   map[string]LoggerDecl   `yaml:"loggers"`
	Endpoints []EndpointDecl          `yaml:"endpoints"`
}

// ProviderDecl declares one named provider; exactly one of its sub-fields
// is populated, mirroring config::Provider's sum-type shape (spec.md §6).
type ProviderDecl struct {
	File     *FileProviderDecl `yaml:"file"`
	Response *RespProviderDecl `yaml:"response"`
	Literals *LiteralsDecl     `yaml:"literals"`
	Range    *RangeDecl        `yaml:"range"`
}

type FileProviderDecl struct {
	Path       string   `yaml:"path"`
	Format     string   `yaml:"format"` // csv | json | line
	Repeat     bool     `yaml:"repeat"`
	Buffer     string   `yaml:"buffer"` // "auto" or an integer
	AutoReturn string   `yaml:"auto_return"`
	Headers    []string `yaml:"headers"`
	AutoHeader bool     `yaml:"auto_headers"`
	Delimiter  string   `yaml:"delimiter"`
	NDJSON     bool     `yaml:"ndjson"`
}

type RespProviderDecl struct {
	Buffer     string `yaml:"buffer"`
	AutoReturn string `yaml:"auto_return"`
}

type LiteralsDecl struct {
	Values     []any  `yaml:"values"`
	AutoReturn string `yaml:"auto_return"`
}

type RangeDecl struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
	Step  int `yaml:"step"`
}

// LoggerDecl declares one named logger (spec.md §4.D).
type LoggerDecl struct {
	To     string `yaml:"to"`
	Pretty bool   `yaml:"pretty"`
	Limit  int    `yaml:"limit"`
	Kill   bool   `yaml:"kill"`
}

// EndpointDecl declares one endpoint (spec.md §6 "Inbound configuration").
type EndpointDecl struct {
	ID                  string            `yaml:"id"`
	Method              string            `yaml:"method"`
	URL                 string            `yaml:"url"`
	Headers             map[string]string `yaml:"headers"`
	Body                *BodyDecl         `yaml:"body"`
	From                []string          `yaml:"from"` // providers zipped as inputs, in order
	Provides            map[string]string `yaml:"provides"`
	Logs                map[string]string `yaml:"logs"`
	OnDemand            bool              `yaml:"on_demand"`
	NoAutoReturns       bool              `yaml:"no_auto_returns"`
	MaxParallelRequests int               `yaml:"max_parallel_requests"`
	TimeoutMS           int               `yaml:"timeout_ms"`
}

type BodyDecl struct {
	String    string          `yaml:"string"`
	File      string          `yaml:"file"`
	Multipart []MultipartPart `yaml:"multipart"`
}

type MultipartPart struct {
	Name    string            `yaml:"name"`
	Value   string            `yaml:"value"`
	File    string            `yaml:"file"`
	Headers map[string]string `yaml:"headers"`
}

// Parse decodes raw YAML bytes into a Doc.
func Parse(raw []byte) (Doc, error) {
	var d Doc
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Doc{}, fmt.Errorf("runconfig: parsing test declaration: %w", err)
	}
	return d, nil
}

// Compiled is the wired-up result of building a Doc: every provider and
// logger's channel handle, plus the endpoint descriptors ready for
// endpoint.Run.
type Compiled struct {
	Providers map[string]*provider.Provider
	Loggers   map[string]*channel.Sender[jsonvalue.V]
	Endpoints []*endpoint.Endpoint
}

// Compile builds every provider, logger, and endpoint declared in d,
// resolving relative paths against configPath (spec.md §4.B/§4.D path
// resolution) and wiring each endpoint's `from`/`provides`/`logs` names to
// the shared provider/logger channel handles.
func Compile(ctx context.Context, d Doc, configPath string, k *killer.Killer) (*Compiled, error) {
	out := &Compiled{
		Providers: make(map[string]*provider.Provider, len(d.Providers)),
		Loggers:   make(map[string]*channel.Sender[jsonvalue.V], len(d.Loggers)),
	}

	for name, decl := range d.Providers {
		p, err := compileProvider(ctx, decl, configPath, k)
		if err != nil {
			return nil, fmt.Errorf("runconfig: provider %q: %w", name, err)
		}
		out.Providers[name] = p
	}

	for name, decl := range d.Loggers {
		tx, err := logger.Start(logger.Config{
			To:     decl.To,
			Pretty: decl.Pretty,
			Limit:  decl.Limit,
			Kill:   decl.Kill,
		}, configPath, k)
		if err != nil {
			return nil, fmt.Errorf("runconfig: logger %q: %w", name, err)
		}
		out.Loggers[name] = tx
	}

	for _, ed := range d.Endpoints {
		ep, err := compileEndpoint(ed, out, configPath)
		if err != nil {
			return nil, fmt.Errorf("runconfig: endpoint %q: %w", ed.ID, err)
		}
		out.Endpoints = append(out.Endpoints, ep)
	}

	return out, nil
}

func compileProvider(ctx context.Context, decl ProviderDecl, configPath string, k *killer.Killer) (*provider.Provider, error) {
	switch {
	case decl.File != nil:
		f := decl.File
		var delim rune
		if len(f.Delimiter) > 0 {
			delim = rune(f.Delimiter[0])
		}
		return provider.File(ctx, provider.FileConfig{
			Path:       f.Path,
			Format:     f.Format,
			Repeat:     f.Repeat,
			Buffer:     parseBuffer(f.Buffer),
			AutoReturn: parseSendBehavior(f.AutoReturn),
			CSV:        fileprovider.CSVHeaders{Names: f.Headers, Auto: f.AutoHeader},
			Delimiter:  delim,
			NDJSON:     f.NDJSON,
		}, configPath, k)
	case decl.Response != nil:
		r := decl.Response
		return provider.Response(provider.ResponseConfig{
			Buffer:     parseBuffer(r.Buffer),
			AutoReturn: parseSendBehavior(r.AutoReturn),
		}), nil
	case decl.Literals != nil:
		l := decl.Literals
		values := make([]jsonvalue.V, len(l.Values))
		for i, v := range l.Values {
			values[i] = v
		}
		return provider.Literals(ctx, values, parseSendBehavior(l.AutoReturn)), nil
	case decl.Range != nil:
		r := decl.Range
		return provider.Range(ctx, r.Start, r.End, r.Step), nil
	default:
		return nil, fmt.Errorf("no provider variant populated")
	}
}

func compileEndpoint(ed EndpointDecl, compiled *Compiled, configPath string) (*endpoint.Endpoint, error) {
	ep := &endpoint.Endpoint{
		ID:                  ed.ID,
		Method:              ed.Method,
		URL:                 template.Interpolated(ed.URL),
		MaxParallelRequests: ed.MaxParallelRequests,
		Timeout:             time.Duration(ed.TimeoutMS) * time.Millisecond,
		NoAutoReturns:       ed.NoAutoReturns,
		ConfigPath:          configPath,
	}

	for name, v := range ed.Headers {
		ep.Headers = append(ep.Headers, endpoint.HeaderTemplate{Name: name, Template: template.Interpolated(v)})
	}

	if ed.Body != nil {
		built, err := compileBody(ed.Body)
		if err != nil {
			return nil, err
		}
		ep.Body = built
	}

	for _, name := range ed.From {
		p, ok := compiled.Providers[name]
		if !ok {
			return nil, fmt.Errorf("endpoint %q: unknown provider %q in from", ed.ID, name)
		}
		in := endpoint.Input{
			Name:          name,
			Rx:            p.Rx.Clone(),
			AutoReturn:    p.AutoReturn,
			ReturnTo:      p.Tx,
			OnDemand:      p.OnDemand,
			OnDemandGated: ed.OnDemand,
		}
		ep.Inputs = append(ep.Inputs, in)
	}

	for name, path := range ed.Provides {
		p, ok := compiled.Providers[name]
		if !ok {
			return nil, fmt.Errorf("endpoint %q: unknown provider %q in provides", ed.ID, name)
		}
		behavior := provider.SendBlock
		if p.AutoReturn != nil {
			behavior = *p.AutoReturn
		}
		ep.Provides = append(ep.Provides, endpoint.Outgoing{
			Name:         name,
			Select:       compileSelect(path),
			Tx:           p.Tx,
			SendBehavior: behavior,
		})
	}

	for name, path := range ed.Logs {
		tx, ok := compiled.Loggers[name]
		if !ok {
			return nil, fmt.Errorf("endpoint %q: unknown logger %q in logs", ed.ID, name)
		}
		ep.Logs = append(ep.Logs, endpoint.Outgoing{
			Name:         name,
			Select:       compileSelect(path),
			Tx:           tx,
			SendBehavior: provider.SendBlock,
			Logger:       true,
		})
	}

	return ep, nil
}

func compileBody(b *BodyDecl) (body.Template, error) {
	switch {
	case len(b.Multipart) > 0:
		parts := make([]body.Part, 0, len(b.Multipart))
		for _, mp := range b.Multipart {
			part := body.Part{Name: mp.Name, IsFile: mp.File != ""}
			if mp.File != "" {
				part.Template = template.Interpolated(mp.File)
			} else {
				part.Template = template.Interpolated(mp.Value)
			}
			for name, v := range mp.Headers {
				part.Headers = append(part.Headers, body.HeaderTemplate{Name: name, Template: template.Interpolated(v)})
			}
			parts = append(parts, part)
		}
		return body.Template{Kind: body.KindMultipart, Multipart: parts}, nil
	case b.File != "":
		return body.Template{Kind: body.KindFile, FilePath: template.Interpolated(b.File)}, nil
	case b.String != "":
		return body.Template{Kind: body.KindString, String: template.Interpolated(b.String)}, nil
	default:
		return body.Template{Kind: body.KindNone}, nil
	}
}

// forEachPrefix marks a provides/logs path as spec.md §4.I's `for_each`
// fan-out capability: "for_each:response.body.items" yields one value per
// array element instead of the array as a whole. Without the prefix a path
// selects a single value (or nothing), per compileSelect's PathSelect case.
const forEachPrefix = "for_each:"

// compileSelect builds the template.Select a provides/logs path compiles
// to, recognizing the forEachPrefix tag.
func compileSelect(path string) template.Select {
	if rest, ok := strings.CutPrefix(path, forEachPrefix); ok {
		return template.ForEachSelect{Path: strings.TrimSpace(rest)}
	}
	return template.PathSelect{Path: path}
}

// parseBuffer turns a declared buffer size ("auto", an integer, or empty)
// into a channel.Limit2; empty, non-numeric, and zero all mean Auto.
func parseBuffer(raw string) channel.Limit2 {
	if raw == "" || raw == "auto" {
		return channel.AutoLimit()
	}
	n := 0
	for _, c := range raw {
		if c < '0' || c > '9' {
			return channel.AutoLimit()
		}
		n = n*10 + int(c-'0')
	}
	if n <= 0 {
		return channel.AutoLimit()
	}
	return channel.IntegerLimit(n)
}

// parseSendBehavior turns a declared auto_return string into a
// *provider.SendBehavior, or nil when unset (meaning "no auto-return").
func parseSendBehavior(raw string) *provider.SendBehavior {
	var b provider.SendBehavior
	switch raw {
	case "block":
		b = provider.SendBlock
	case "force":
		b = provider.SendForce
	case "if_not_full":
		b = provider.SendIfNotFull
	case "no_op":
		b = provider.SendNoOp
	default:
		return nil
	}
	return &b
}
