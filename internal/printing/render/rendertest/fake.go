// Package rendertest provides an in-memory Renderer whose page count grows
// with the number of table rows appended, for tests that must not reach
// Gotenberg.
package rendertest

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/odyssey-erp/docrender/internal/printing/render"
)

// Fake is a render.Renderer. Each "<tr" costs one slot of a page holding
// Capacity slots; a forced break starts a new page.
type Fake struct {
	Capacity int
	// Err, when set, fails every append.
	Err error

	Chunks    []string
	Breaks    int
	Counts    int
	Finalized bool
}

// New returns a fake with capacity rows per page.
func New(capacity int) *Fake {
	return &Fake{Capacity: capacity}
}

// AppendMarkup implements render.Renderer.
func (f *Fake) AppendMarkup(_ context.Context, markup string) error {
	if f.Finalized {
		return render.ErrFinalized
	}
	if f.Err != nil {
		return f.Err
	}
	f.Chunks = append(f.Chunks, markup)
	return nil
}

// ForcePageBreak implements render.Renderer.
func (f *Fake) ForcePageBreak(ctx context.Context) error {
	if err := f.AppendMarkup(ctx, render.PageBreak); err != nil {
		return err
	}
	f.Breaks++
	return nil
}

// PageCount implements render.Renderer.
func (f *Fake) PageCount(context.Context) (int, error) {
	f.Counts++
	capacity := f.Capacity
	if capacity <= 0 {
		capacity = 1 << 30
	}
	pages, used := 1, 0
	for _, c := range f.Chunks {
		if c == render.PageBreak {
			pages++
			used = 0
			continue
		}
		used += strings.Count(c, "<tr")
		for used > capacity {
			pages++
			used -= capacity
		}
	}
	return pages, nil
}

// SpeculativeCopy implements render.Renderer.
func (f *Fake) SpeculativeCopy() render.Renderer {
	cp := *f
	cp.Chunks = slices.Clone(f.Chunks)
	return &cp
}

// Finalize implements render.Renderer. The output is the joined markup.
func (f *Fake) Finalize(_ context.Context, _ string) ([]byte, error) {
	if f.Finalized {
		return nil, render.ErrFinalized
	}
	f.Finalized = true
	return []byte(f.Markup()), nil
}

// Markup joins every appended chunk.
func (f *Fake) Markup() string {
	return strings.Join(f.Chunks, "")
}

// BreakIndexes returns the chunk positions of forced breaks.
func (f *Fake) BreakIndexes() []int {
	var out []int
	for i, c := range f.Chunks {
		if c == render.PageBreak {
			out = append(out, i)
		}
	}
	return out
}

// Factory hands out fakes and remembers them.
type Factory struct {
	Capacity int
	Err      error

	mu      sync.Mutex
	Setups  []render.PageSetup
	Created []*Fake
	// Merges records the parts and password of every Merge call.
	Merges []Merge
}

// Merge is one recorded merge.
type Merge struct {
	Parts    [][]byte
	Password string
}

// New implements the renderer factory contract.
func (f *Factory) New(setup render.PageSetup) (render.Renderer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	r := New(f.Capacity)
	f.Setups = append(f.Setups, setup)
	f.Created = append(f.Created, r)
	return r, nil
}

// Last returns the most recently created fake.
func (f *Factory) Last() *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Created) == 0 {
		return nil
	}
	return f.Created[len(f.Created)-1]
}

// LastSetup returns the page setup of the most recent renderer.
func (f *Factory) LastSetup() render.PageSetup {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Setups) == 0 {
		return render.PageSetup{}
	}
	return f.Setups[len(f.Setups)-1]
}

// Merge joins the parts with a forced break between them.
func (f *Factory) Merge(_ context.Context, parts [][]byte, password string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Merges = append(f.Merges, Merge{Parts: parts, Password: password})
	return bytes.Join(parts, []byte(render.PageBreak)), nil
}
