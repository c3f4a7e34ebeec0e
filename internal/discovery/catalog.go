package discovery

import (
	"reflect"
	"sort"
	"sync"
)

// Export is one constructor a module makes available.
type Export struct {
	// Name labels the export in logs: the symbol name or the product type.
	Name string
	// Type is the constructor's static product type.
	Type reflect.Type
	// New builds an instance.
	New func() (any, error)
}

// Catalog holds the constructors compiled into the binary, keyed by module
// path ("parsers/rss_parser").
type Catalog struct {
	mu      sync.RWMutex
	modules map[string][]Export
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{modules: make(map[string][]Export)}
}

// Default is the catalog filled by module packages' init functions.
var Default = NewCatalog()

// Provide adds fn to the Default catalog under module.
func Provide[T any](module string, fn func() (T, error)) {
	ProvideTo(Default, module, fn)
}

// ProvideTo adds fn to c under module.
func ProvideTo[T any](c *Catalog, module string, fn func() (T, error)) {
	typ := reflect.TypeFor[T]()
	c.Add(module, Export{
		Name: typ.String(),
		Type: typ,
		New: func() (any, error) {
			return fn()
		},
	})
}

// Add appends raw exports under module.
func (c *Catalog) Add(module string, exports ...Export) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modules[module] = append(c.modules[module], exports...)
}

// Lookup returns the exports registered under module.
func (c *Catalog) Lookup(module string) ([]Export, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	exports, ok := c.modules[module]
	if !ok {
		return nil, false
	}
	return append([]Export(nil), exports...), true
}

// Modules lists every module path in the catalog, sorted.
func (c *Catalog) Modules() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.modules))
	for m := range c.modules {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// satisfies reports whether exports of type typ qualify for a contract:
// the product must be concrete and implement it. Constructors returning the
// contract interface itself are the abstract base and do not qualify.
func satisfies(typ, contract reflect.Type) bool {
	if typ == nil || typ.Kind() == reflect.Interface {
		return false
	}
	return typ.Implements(contract)
}
