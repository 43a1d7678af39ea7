package render

import (
	"context"
	"fmt"
)

// Factory creates renderers sharing one converter and page count cache.
type Factory struct {
	conv  Converter
	cache *PageCache
}

// NewFactory wires a factory. cache may be nil.
func NewFactory(conv Converter, cache *PageCache) *Factory {
	return &Factory{conv: conv, cache: cache}
}

// New returns a renderer for setup.
func (f *Factory) New(setup PageSetup) (Renderer, error) {
	if f == nil || f.conv == nil {
		return nil, fmt.Errorf("%w: no converter configured", ErrRendererInit)
	}
	if setup.Paper.Width <= 0 || setup.Paper.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid paper size %q", ErrRendererInit, setup.Paper.Name)
	}
	return newGotenberg(f.conv, f.cache, setup), nil
}

// Merge joins finished documents in order. password, when set, encrypts the
// merged file.
func (f *Factory) Merge(ctx context.Context, parts [][]byte, password string) ([]byte, error) {
	if f == nil || f.conv == nil {
		return nil, fmt.Errorf("%w: no converter configured", ErrRendererInit)
	}
	m, ok := f.conv.(Merger)
	if !ok {
		return nil, fmt.Errorf("%w: converter cannot merge documents", ErrRendererInit)
	}
	return m.Merge(ctx, parts, password)
}
