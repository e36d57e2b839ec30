package models

import (
	"fmt"
	"sync"

	"github.com/Maschette/ggeffects/core/model"
	"github.com/Maschette/ggeffects/pkg/errors"
)

// AdapterFactory inspects a model value and, when it recognises the type,
// returns the adapter exposing its prediction capabilities.
type AdapterFactory func(m any) (model.Adapter, bool)

var (
	registryMu sync.RWMutex
	factories  []AdapterFactory
)

// RegisterAdapter appends a factory to the registry. Factories are consulted
// in registration order. External packages can register adapters for their
// own model types.
func RegisterAdapter(f AdapterFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories = append(factories, f)
}

// AdapterFor resolves the adapter of a fitted model value. Types that
// implement model.Adapter themselves are accepted without registration.
// Anything else fails with UnsupportedModelError.
func AdapterFor(m any) (model.Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, f := range factories {
		if a, ok := f(m); ok {
			return a, nil
		}
	}
	if a, ok := m.(model.Adapter); ok {
		return a, nil
	}
	return nil, errors.NewUnsupportedModelError(fmt.Sprintf("%T", m))
}

func init() {
	RegisterAdapter(func(m any) (model.Adapter, bool) { a, ok := m.(*LM); return a, ok })
	RegisterAdapter(func(m any) (model.Adapter, bool) { a, ok := m.(*GLM); return a, ok })
	RegisterAdapter(func(m any) (model.Adapter, bool) { a, ok := m.(*Mixed); return a, ok })
	RegisterAdapter(func(m any) (model.Adapter, bool) { a, ok := m.(*ZeroInflated); return a, ok })
	RegisterAdapter(func(m any) (model.Adapter, bool) { a, ok := m.(*Cox); return a, ok })
	RegisterAdapter(func(m any) (model.Adapter, bool) { a, ok := m.(*Bayesian); return a, ok })
}
