// Package fileprovider turns the three file formats spec.md §4.B describes
// (CSV, JSON, line) into a shared Reader contract: a restartable (if
// Repeat) or finite iterator of jsonvalue.V. Next does blocking file I/O on
// the calling goroutine; internal/provider.File calls it from a dedicated
// forwarding goroutine, so the disk reads never run on an endpoint's own
// goroutine (the Go analogue of pewpew's tokio_threadpool::blocking offload).
//
// Format-specific readers self-register with Register at init() time into a
// mutex-guarded factory map keyed by file format.
package fileprovider

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/sanix-darker/loadgun/internal/jsonvalue"
)

// CSVHeaders controls how CSV column names are derived.
type CSVHeaders struct {
	// Names, if non-empty, are used verbatim and no header row is consumed.
	Names []string
	// Auto, when Names is empty, consumes the first row as the header.
	// When both are unset, columns are named positionally ("0", "1", ...).
	Auto bool
}

// Options configures a file reader. Not every field applies to every
// format; unused fields are ignored.
type Options struct {
	Path    string
	Repeat  bool
	Comment io.Reader // unused placeholder kept out of the hot path

	Delimiter rune // CSV only, defaults to ','
	Headers   CSVHeaders

	NDJSON bool // JSON only: newline-delimited instead of a top-level array
}

// Reader yields values one at a time. Next returns io.EOF once the
// underlying data is exhausted and Repeat is false; with Repeat true, Next
// never returns io.EOF and instead restarts from the beginning.
type Reader interface {
	Next() (jsonvalue.V, error)
	Close() error
}

// Factory constructs a Reader for its format.
type Factory func(opts Options) (Reader, error)

// Registry is a thread-safe store of format factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var globalRegistry = NewRegistry()

// NewRegistry creates an empty Registry. Useful for testing.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a format factory under the given name. It panics if the
// name is already registered, preventing silent overwrites.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("fileprovider: factory already registered for %q", name))
	}
	r.factories[name] = f
}

// New constructs a Reader for the given format name.
func (r *Registry) New(format string, opts Options) (Reader, error) {
	r.mu.RLock()
	f, exists := r.factories[format]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("fileprovider: unknown format %q (registered: %v)", format, r.Names())
	}
	return f(opts)
}

// Names returns a sorted list of registered format names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Register adds a format factory to the global registry.
func Register(name string, f Factory) { globalRegistry.Register(name, f) }

// New constructs a Reader for the given format using the global registry.
func New(format string, opts Options) (Reader, error) { return globalRegistry.New(format, opts) }

// Names lists every globally registered format.
func Names() []string { return globalRegistry.Names() }
