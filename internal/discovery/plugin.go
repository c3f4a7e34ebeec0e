package discovery

import (
	"errors"
	"fmt"
	"plugin"
	"reflect"
)

var errorType = reflect.TypeFor[error]()

// loadPlugin opens a Go plugin and returns its constructor symbols.
//
// A plugin is built with
//
//	go build -buildmode=plugin -o my_parser.so ./my_parser
//
// and exports either constructor functions
//
//	func New() (*Parser, error)
//	func New() *Parser
//
// or package-level variables holding a ready instance.
func loadPlugin(path string, symbols []string) ([]Export, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening plugin %s: %w", path, err)
	}
	if len(symbols) == 0 {
		symbols = []string{DefaultSymbol}
	}

	exports := make([]Export, 0, len(symbols))
	for _, name := range symbols {
		sym, err := p.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("plugin %s must export %q: %w", path, name, err)
		}
		exp, err := exportFromSymbol(name, sym)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", path, err)
		}
		exports = append(exports, exp)
	}
	return exports, nil
}

// exportFromSymbol turns a looked-up plugin symbol into an Export.
func exportFromSymbol(name string, sym any) (Export, error) {
	v := reflect.ValueOf(sym)
	if !v.IsValid() {
		return Export{}, fmt.Errorf("symbol %q is nil", name)
	}

	// Variables come back as pointers; a pointer to a func is a func var.
	if v.Kind() == reflect.Pointer && v.Elem().Kind() == reflect.Func {
		v = v.Elem()
	}

	if v.Kind() == reflect.Func {
		return exportFromFunc(name, v)
	}

	if v.Kind() == reflect.Pointer && !v.IsNil() {
		inst := v.Elem().Interface()
		if inst == nil {
			return Export{}, fmt.Errorf("symbol %q holds nil", name)
		}
		return Export{
			Name: name,
			Type: reflect.TypeOf(inst),
			New:  func() (any, error) { return inst, nil },
		}, nil
	}

	return Export{}, fmt.Errorf("symbol %q is %s, want a constructor or variable", name, v.Type())
}

func exportFromFunc(name string, fn reflect.Value) (Export, error) {
	t := fn.Type()
	if fn.IsNil() {
		return Export{}, fmt.Errorf("symbol %q is a nil func", name)
	}
	if t.NumIn() != 0 {
		return Export{}, fmt.Errorf("constructor %q must take no arguments", name)
	}
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return Export{}, fmt.Errorf("constructor %q must return (T) or (T, error)", name)
	}

	return Export{
		Name: name,
		Type: t.Out(0),
		New: func() (any, error) {
			out := fn.Call(nil)
			if len(out) == 2 && !out[1].IsNil() {
				return nil, out[1].Interface().(error)
			}
			if !out[0].IsValid() || isNilValue(out[0]) {
				return nil, errors.New("constructor returned nil")
			}
			return out[0].Interface(), nil
		},
	}, nil
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
