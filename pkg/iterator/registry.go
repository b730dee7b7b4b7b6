package iterator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/samcharles93/gridscan/internal/backend"
	"github.com/samcharles93/gridscan/internal/backend/driver"
	"github.com/samcharles93/gridscan/internal/logger"
	"github.com/samcharles93/gridscan/pkg/filetype"
)

// Registry maps file types to live drivers. It is built once and read-only
// afterwards, so one Registry may open iterators from many goroutines.
type Registry struct {
	table backend.Table
	log   logger.Logger
}

type registryOptions struct {
	log      logger.Logger
	disabled []filetype.Type
}

// Option configures NewRegistry.
type Option func(*registryOptions)

// WithLogger sets the logger for diagnostics. The default discards them.
func WithLogger(log logger.Logger) Option {
	return func(o *registryOptions) { o.log = log }
}

// WithDisabled marks types unavailable on top of the build tags.
func WithDisabled(types ...filetype.Type) Option {
	return func(o *registryOptions) { o.disabled = append(o.disabled, types...) }
}

// NewRegistry builds a registry of every compiled-in driver.
func NewRegistry(opts ...Option) *Registry {
	o := registryOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Discard()
	}
	t := backend.New(o.log)
	t.Disable(o.disabled...)
	return &Registry{table: t, log: o.log}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the registry used by the package level Open and
// Deserialize. It is built on first use and logs through logger.Default.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(WithLogger(logger.Default()))
	})
	return defaultRegistry
}

// Open opens path with the default registry.
func Open(path string) (*Iterator, error) { return DefaultRegistry().Open(path) }

// Deserialize rebuilds an iterator with the default registry.
func Deserialize(text string) (*Iterator, error) { return DefaultRegistry().Deserialize(text) }

// Available lists the types this registry can read.
func (r *Registry) Available() []filetype.Type { return r.table.Available() }

// Status is nil when ft can be read and wraps ErrNotCompiledIn otherwise.
func (r *Registry) Status(ft filetype.Type) error {
	if !ft.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownFormat, ft)
	}
	if !r.table.Has(ft) {
		return fmt.Errorf("%w: %s", ErrNotCompiledIn, ft)
	}
	return nil
}

func (r *Registry) driver(ft filetype.Type) (driver.Driver, error) {
	d, ok := r.table.Driver(ft)
	if !ok {
		return nil, r.Status(ft)
	}
	return d, nil
}

// Open detects the encoding of path and returns an un-advanced iterator
// over it. Unrecognized and unavailable encodings are logged at warn level
// and reported as ErrUnknownFormat and ErrNotCompiledIn.
func (r *Registry) Open(path string) (*Iterator, error) {
	ft, err := filetype.Detect(path)
	if errors.Is(err, filetype.ErrUnknown) {
		r.log.Warn("unrecognized file format", "path", path)
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, err
	}
	d, err := r.driver(ft)
	if err != nil {
		r.log.Warn("file format not supported by this build", "path", path, "type", ft.String())
		return nil, err
	}
	cur, err := d.Open(path, ft)
	if err != nil {
		return nil, fmt.Errorf("open %s as %s: %w", path, ft, err)
	}
	r.log.Debug("opened iterator", "path", path, "type", ft.String(), "driver", d.Name())
	return newIterator(ft, cur, false), nil
}

// Deserialize rebuilds an iterator from a string produced by Serialize.
// A restored advanced iterator is positioned on an equivalent field.
func (r *Registry) Deserialize(text string) (*Iterator, error) {
	ft, rest, err := parseTag(text)
	if err != nil {
		r.log.Error("cannot parse iterator description", "error", err)
		return nil, err
	}
	d, err := r.driver(ft)
	if err != nil {
		r.log.Warn("iterator description names an unavailable format", "type", ft.String())
		return nil, err
	}
	desc, err := parseBody(text, ft, rest)
	if err != nil {
		r.log.Error("cannot parse iterator description", "error", err)
		return nil, err
	}
	cur, err := d.Restore(desc.ft, desc.advanced, desc.payload)
	if errors.Is(err, driver.ErrCorruptPayload) {
		r.log.Error("cannot restore iterator", "type", desc.ft.String(), "error", err)
		return nil, &DescriptionError{Text: text, Reason: "bad payload", Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("restore %s iterator: %w", desc.ft, err)
	}
	it := newIterator(desc.ft, cur, desc.advanced)
	if desc.advanced && !cur.Exhausted() {
		it.load()
	} else {
		it.reset()
	}
	return it, nil
}
