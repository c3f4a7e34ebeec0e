// Package registry stores pluggable implementations by name. Each capability
// kind gets its own Registry holding a factory per name plus a lazily built
// singleton.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/logging"
)

// Factory builds a new implementation instance.
type Factory[T any] func() (T, error)

// RegistrationError reports an implementation that could not be registered.
type RegistrationError struct {
	Kind contracts.Kind
	Err  error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s: %v", e.Kind, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

type entry[T any] struct {
	factory    Factory[T]
	descriptor Descriptor
	instance   T
	built      bool
}

// Registry maps names to factories and their singletons for one kind.
//
// Register and the construction path of Get are serialized by one mutex, so
// each name is constructed at most once. Factories run under that mutex and
// must not call back into the same registry.
type Registry[T any] struct {
	kind     contracts.Kind
	identify func(T) string
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry[T]
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report registration failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New returns an empty registry for kind. identify reads an instance's
// unique name.
func New[T any](kind contracts.Kind, identify func(T) string, opts ...Option) *Registry[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry[T]{
		kind:     kind,
		identify: identify,
		logger:   logging.OrDefault(o.logger).With("kind", string(kind)),
		entries:  make(map[string]*entry[T]),
	}
}

// NewParsers returns a parser registry.
func NewParsers(opts ...Option) *Registry[contracts.Parser] {
	return New(contracts.KindParser, contracts.Parser.Name, opts...)
}

// NewProviders returns an LLM provider registry.
func NewProviders(opts ...Option) *Registry[contracts.Provider] {
	return New(contracts.KindLLMProvider, contracts.Provider.ProviderName, opts...)
}

// NewAgents returns an agent registry.
func NewAgents(opts ...Option) *Registry[contracts.Agent] {
	return New(contracts.KindAgent, contracts.Agent.AgentName, opts...)
}

// NewPublishers returns a social-network publisher registry.
func NewPublishers(opts ...Option) *Registry[contracts.Publisher] {
	return New(contracts.KindSocialNetwork, contracts.Publisher.NetworkName, opts...)
}

// Kind returns the capability kind this registry holds.
func (r *Registry[T]) Kind() contracts.Kind {
	return r.kind
}

// Register builds a trial instance to learn its name and metadata, then
// stores factory under that name. Registering a name again replaces its
// factory; a singleton already built for that name stays cached.
//
// Failures are logged and returned; they never affect other entries.
func (r *Registry[T]) Register(factory Factory[T]) (string, error) {
	if factory == nil {
		return "", r.fail(errors.New("nil factory"))
	}

	trial, err := build(factory)
	if err != nil {
		return "", r.fail(err)
	}
	name, desc, err := r.inspect(trial)
	if err != nil {
		return "", r.fail(err)
	}
	if desc.Version != "" && !validVersion(desc.Version) {
		r.logger.Warn("implementation declares invalid version",
			"name", name, "version", desc.Version)
		desc.Version = UnknownVersion
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, exists := r.entries[name]; exists {
		r.logger.Info("replacing registered implementation", "name", name)
		e.factory = factory
		e.descriptor = desc
		return name, nil
	}
	r.entries[name] = &entry[T]{factory: factory, descriptor: desc}
	r.logger.Debug("registered implementation", "name", name)
	return name, nil
}

// MustRegister is Register for compile-time wiring, where failure is a
// programming error.
func (r *Registry[T]) MustRegister(factory Factory[T]) string {
	name, err := r.Register(factory)
	if err != nil {
		panic(err)
	}
	return name
}

// Get returns the singleton for name, constructing it on first use. It
// returns false for unknown names or when construction fails.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	e, ok := r.entries[name]
	if !ok {
		return zero, false
	}
	if e.built {
		return e.instance, true
	}

	inst, err := build(e.factory)
	if err != nil {
		r.logger.Warn("failed to construct implementation", "name", name, "err", err)
		return zero, false
	}
	e.instance = inst
	e.built = true
	r.logger.Debug("constructed implementation", "name", name)
	return inst, true
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[name]
	return ok
}

// Describe returns the descriptor captured when name was registered.
func (r *Registry[T]) Describe(name string) (Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return Descriptor{}, false
	}
	return e.descriptor, true
}

// List returns every descriptor, sorted by name.
func (r *Registry[T]) List() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns every registered name, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered names.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Materialized returns the singletons built so far, sorted by name.
func (r *Registry[T]) Materialized() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries))
	for name, e := range r.entries {
		if e.built {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]T, 0, len(names))
	for _, name := range names {
		out = append(out, r.entries[name].instance)
	}
	return out
}

func (r *Registry[T]) fail(err error) error {
	r.logger.Warn("registration failed", "err", err)
	return &RegistrationError{Kind: r.kind, Err: err}
}

// inspect reads the name and metadata of a trial instance.
func (r *Registry[T]) inspect(inst T) (name string, desc Descriptor, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reading identity panicked: %v", p)
		}
	}()
	name = r.identify(inst)
	if name == "" {
		return "", desc, errors.New("implementation has an empty name")
	}
	return name, describe(r.kind, name, inst), nil
}

func build[T any](factory Factory[T]) (inst T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("constructor panicked: %v", p)
		}
	}()
	inst, err = factory()
	if err != nil {
		return inst, fmt.Errorf("constructor failed: %w", err)
	}
	if any(inst) == nil {
		return inst, errors.New("constructor returned nil")
	}
	return inst, nil
}
