package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/steveyegge/contentfactory/internal/logging"
	"github.com/steveyegge/contentfactory/internal/registry"
)

// Options controls one discovery run.
type Options struct {
	// Root is the module tree root.
	Root string
	// Catalog supplies compiled-in modules. Nil means Default.
	Catalog *Catalog
	Logger  *slog.Logger
}

// ModuleError records why one module directory was not (fully) loaded.
type ModuleError struct {
	Module string
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %s: %v", e.Module, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }

// MarshalJSON renders the error as {"module", "error"}.
func (e *ModuleError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"module": e.Module, "error": e.Err.Error()})
}

// Report summarizes a discovery run for one kind.
type Report struct {
	Dir        string         `json:"dir"`
	Missing    bool           `json:"missing,omitempty"`
	Registered []string       `json:"registered"`
	Skipped    []string       `json:"skipped,omitempty"`
	Failed     []*ModuleError `json:"failed,omitempty"`
}

// Discover loads every module under opts.Root/<kind dir> and registers the
// exports that implement T. A missing directory is logged as a warning and
// yields an empty report.
func Discover[T any](ctx context.Context, reg *registry.Registry[T], opts Options) *Report {
	catalog := opts.Catalog
	if catalog == nil {
		catalog = Default
	}
	kindDir := reg.Kind().Dir()
	dir := filepath.Join(opts.Root, kindDir)
	logger := logging.OrDefault(opts.Logger).With("kind", string(reg.Kind()), "dir", dir)

	report := &Report{Dir: dir, Registered: []string{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("module directory does not exist, nothing to discover")
			report.Missing = true
			return report
		}
		logger.Warn("cannot read module directory", "err", err)
		report.Failed = append(report.Failed, &ModuleError{Module: kindDir, Err: err})
		return report
	}

	contract := reflect.TypeFor[T]()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			report.Skipped = append(report.Skipped, name)
			continue
		}
		if ctx.Err() != nil {
			report.Failed = append(report.Failed, &ModuleError{Module: name, Err: ctx.Err()})
			break
		}

		module := kindDir + "/" + name
		names, skipped, err := loadModule(reg, contract, catalog, filepath.Join(dir, name), module)
		report.Registered = append(report.Registered, names...)
		if skipped {
			report.Skipped = append(report.Skipped, name)
			logger.Info("module disabled by manifest", "module", module)
			continue
		}
		if err != nil {
			logger.Warn("failed to load module", "module", module, "err", err)
			report.Failed = append(report.Failed, &ModuleError{Module: module, Err: err})
			continue
		}
		logger.Debug("loaded module", "module", module, "registered", names)
	}

	return report
}

// loadModule registers every qualifying export of one module directory.
func loadModule[T any](reg *registry.Registry[T], contract reflect.Type, catalog *Catalog, dir, module string) (names []string, skipped bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while loading: %v", p)
		}
	}()

	manifest, err := LoadManifest(dir)
	if err != nil {
		return nil, false, err
	}
	if manifest != nil && !manifest.IsEnabled() {
		return nil, true, nil
	}

	exports, err := resolveExports(catalog, manifest, dir, module)
	if err != nil {
		return nil, false, err
	}

	var errs []error
	matched := 0
	for _, exp := range exports {
		if !satisfies(exp.Type, contract) {
			continue
		}
		matched++
		name, err := reg.Register(factoryFor[T](exp))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", exp.Name, err))
			continue
		}
		names = append(names, name)
	}

	if matched == 0 {
		return nil, false, fmt.Errorf("no exported type implements %s", contract)
	}
	return names, false, errors.Join(errs...)
}

func resolveExports(catalog *Catalog, manifest *Manifest, dir, module string) ([]Export, error) {
	if manifest != nil && manifest.Plugin != "" {
		return loadPlugin(filepath.Join(dir, manifest.Plugin), manifest.Symbols)
	}

	key := module
	if manifest != nil && manifest.Entry != "" {
		key = manifest.Entry
	}
	exports, ok := catalog.Lookup(key)
	if !ok || len(exports) == 0 {
		return nil, fmt.Errorf("no entry module: %q is not compiled in and has no plugin", key)
	}
	return exports, nil
}

func factoryFor[T any](exp Export) registry.Factory[T] {
	return func() (T, error) {
		var zero T
		v, err := exp.New()
		if err != nil {
			return zero, err
		}
		inst, ok := v.(T)
		if !ok {
			return zero, fmt.Errorf("%s produced %T", exp.Name, v)
		}
		return inst, nil
	}
}
