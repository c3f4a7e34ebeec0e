// Package manager owns the four capability registries and is the single
// entry point the HTTP layer, CLI and agents use to reach modules.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/discovery"
	"github.com/steveyegge/contentfactory/internal/logging"
	"github.com/steveyegge/contentfactory/internal/registry"
	"github.com/steveyegge/contentfactory/internal/schema"
)

// Manager aggregates one registry per capability kind. Build one at startup
// and pass it to everything that needs modules.
type Manager struct {
	Parsers   *registry.Registry[contracts.Parser]
	Providers *registry.Registry[contracts.Provider]
	Agents    *registry.Registry[contracts.Agent]
	Networks  *registry.Registry[contracts.Publisher]

	catalog *discovery.Catalog
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger shared by the registries and discovery.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithCatalog sets the compile-time module catalog used by discovery.
func WithCatalog(c *discovery.Catalog) Option {
	return func(m *Manager) { m.catalog = c }
}

// New returns a manager with four empty registries.
func New(opts ...Option) *Manager {
	m := &Manager{catalog: discovery.Default}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrDefault(m.logger)

	ropt := registry.WithLogger(m.logger)
	m.Parsers = registry.NewParsers(ropt)
	m.Providers = registry.NewProviders(ropt)
	m.Agents = registry.NewAgents(ropt)
	m.Networks = registry.NewPublishers(ropt)
	return m
}

// Stats counts registered names per kind.
type Stats struct {
	Parsers        int `json:"parsers"`
	LLMProviders   int `json:"llm_providers"`
	Agents         int `json:"agents"`
	SocialNetworks int `json:"social_networks"`
}

// Total is the number of registered implementations across all kinds.
func (s Stats) Total() int {
	return s.Parsers + s.LLMProviders + s.Agents + s.SocialNetworks
}

// Stats returns the size of each registry.
func (m *Manager) Stats() Stats {
	return Stats{
		Parsers:        m.Parsers.Len(),
		LLMProviders:   m.Providers.Len(),
		Agents:         m.Agents.Len(),
		SocialNetworks: m.Networks.Len(),
	}
}

// List returns the descriptors of one kind.
func (m *Manager) List(kind contracts.Kind) ([]registry.Descriptor, error) {
	switch kind {
	case contracts.KindParser:
		return m.Parsers.List(), nil
	case contracts.KindLLMProvider:
		return m.Providers.List(), nil
	case contracts.KindAgent:
		return m.Agents.List(), nil
	case contracts.KindSocialNetwork:
		return m.Networks.List(), nil
	}
	return nil, fmt.Errorf("unknown module kind %q", kind)
}

// Describe returns the descriptor of one implementation.
func (m *Manager) Describe(kind contracts.Kind, name string) (registry.Descriptor, bool) {
	switch kind {
	case contracts.KindParser:
		return m.Parsers.Describe(name)
	case contracts.KindLLMProvider:
		return m.Providers.Describe(name)
	case contracts.KindAgent:
		return m.Agents.Describe(name)
	case contracts.KindSocialNetwork:
		return m.Networks.Describe(name)
	}
	return registry.Descriptor{}, false
}

// DiscoveryReport holds the per-kind results of DiscoverAll.
type DiscoveryReport map[contracts.Kind]*discovery.Report

// Registered counts implementations registered across kinds.
func (r DiscoveryReport) Registered() int {
	n := 0
	for _, rep := range r {
		n += len(rep.Registered)
	}
	return n
}

// DiscoverAll runs discovery for every kind under root. Kinds run
// concurrently; a failure in one never stops the others.
func (m *Manager) DiscoverAll(ctx context.Context, root string) DiscoveryReport {
	opts := discovery.Options{Root: root, Catalog: m.catalog, Logger: m.logger}
	reports := make([]*discovery.Report, len(contracts.Kinds))

	var g errgroup.Group
	g.Go(func() error {
		reports[0] = discovery.Discover(ctx, m.Parsers, opts)
		return nil
	})
	g.Go(func() error {
		reports[1] = discovery.Discover(ctx, m.Providers, opts)
		return nil
	})
	g.Go(func() error {
		reports[2] = discovery.Discover(ctx, m.Agents, opts)
		return nil
	})
	g.Go(func() error {
		reports[3] = discovery.Discover(ctx, m.Networks, opts)
		return nil
	})
	_ = g.Wait()

	out := make(DiscoveryReport, len(contracts.Kinds))
	for i, kind := range contracts.Kinds {
		out[kind] = reports[i]
	}
	m.logger.Info("discovery finished", "root", root,
		"registered", out.Registered(), "stats", m.Stats())
	return out
}

// Dependencies exposes the registries to modules that use other modules.
func (m *Manager) Dependencies() contracts.Dependencies {
	return contracts.Dependencies{
		Parser:    m.Parsers.Get,
		Provider:  m.Providers.Get,
		Agent:     m.Agents.Get,
		Publisher: m.Networks.Get,
	}
}

// Initialize validates values against the implementation's config schema,
// hands it its dependencies, and calls its Initialize with defaults filled
// in.
func (m *Manager) Initialize(ctx context.Context, kind contracts.Kind, name string, values contracts.Values) error {
	switch kind {
	case contracts.KindParser:
		p, err := lookup(m.Parsers, name)
		if err != nil {
			return err
		}
		cfg, err := contracts.NewParserConfig(values)
		if err != nil {
			return err
		}
		return m.initialize(ctx, kind, name, p, values, func() error { return p.Initialize(ctx, cfg) })
	case contracts.KindLLMProvider:
		p, err := lookup(m.Providers, name)
		if err != nil {
			return err
		}
		cfg, err := contracts.NewLLMConfig(values)
		if err != nil {
			return err
		}
		return m.initialize(ctx, kind, name, p, values, func() error { return p.Initialize(ctx, cfg) })
	case contracts.KindAgent:
		a, err := lookup(m.Agents, name)
		if err != nil {
			return err
		}
		return m.initialize(ctx, kind, name, a, values, func() error { return a.Initialize(ctx, values.Clone()) })
	case contracts.KindSocialNetwork:
		p, err := lookup(m.Networks, name)
		if err != nil {
			return err
		}
		return m.initialize(ctx, kind, name, p, values, func() error { return p.Initialize(ctx, values.Clone()) })
	}
	return fmt.Errorf("unknown module kind %q", kind)
}

func (m *Manager) initialize(ctx context.Context, kind contracts.Kind, name string, impl any, values contracts.Values, run func() error) (err error) {
	if err := schema.Validate(contracts.ConfigSchemaOf(impl), values); err != nil {
		return fmt.Errorf("%w: %s %s: %v", contracts.ErrInvalidConfig, kind, name, err)
	}
	if da, ok := impl.(contracts.DependencyAware); ok {
		da.SetDependencies(m.Dependencies())
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("initializing %s %s panicked: %v", kind, name, p)
		}
	}()
	if err := run(); err != nil {
		return fmt.Errorf("initializing %s %s: %w", kind, name, err)
	}
	logging.FromContext(ctx).Debug("initialized module", "kind", string(kind), "name", name)
	return nil
}

// Settings maps implementation names to their config, per kind.
type Settings map[contracts.Kind]map[string]contracts.Values

// InitializeAll initializes every registered implementation, using settings
// where present and defaults otherwise. Failures are logged and returned
// together; one failure does not stop the rest.
func (m *Manager) InitializeAll(ctx context.Context, settings Settings) error {
	var errs []error
	for _, kind := range contracts.Kinds {
		descs, _ := m.List(kind)
		for _, d := range descs {
			values := settings[kind][d.Name]
			if err := m.Initialize(ctx, kind, d.Name, values); err != nil {
				m.logger.Warn("module initialization failed",
					"kind", string(kind), "name", d.Name, "err", err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Cleanup releases resources held by every constructed implementation.
func (m *Manager) Cleanup(ctx context.Context) error {
	var errs []error
	collect := func(v any) {
		if c, ok := v.(contracts.Cleaner); ok {
			if err := c.Cleanup(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, p := range m.Parsers.Materialized() {
		collect(p)
	}
	for _, p := range m.Providers.Materialized() {
		collect(p)
	}
	for _, a := range m.Agents.Materialized() {
		collect(a)
	}
	for _, n := range m.Networks.Materialized() {
		collect(n)
	}
	return errors.Join(errs...)
}

func lookup[T any](r *registry.Registry[T], name string) (T, error) {
	impl, ok := r.Get(name)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %q: %w", r.Kind(), name, contracts.ErrNotFound)
	}
	return impl, nil
}
