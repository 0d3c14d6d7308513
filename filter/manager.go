package filter

import (
	"context"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Manager holds named filter presets
type Manager struct {
	compiler Compiler
	filters  map[string]CompiledFilter
	mu       sync.RWMutex
}

// ManagerOption configures a filter manager
type ManagerOption func(*Manager)

// WithCompiler sets a custom compiler
func WithCompiler(compiler Compiler) ManagerOption {
	return func(m *Manager) {
		m.compiler = compiler
	}
}

// NewManager creates a new filter manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		compiler: NewExprCompiler(WithCache(100)),
		filters:  make(map[string]CompiledFilter),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Compile compiles an ad-hoc expression with the manager's compiler
func (m *Manager) Compile(expression string) (CompiledFilter, error) {
	return m.compiler.Compile(expression)
}

// RegisterFilters compiles and registers presets. Nothing is registered if
// any expression fails to compile.
func (m *Manager) RegisterFilters(filters map[string]string) error {
	compiled := make(map[string]CompiledFilter, len(filters))
	for name, expression := range filters {
		f, err := m.compiler.Compile(expression)
		if err != nil {
			return fmt.Errorf("failed to compile filter '%s': %w", name, err)
		}
		compiled[name] = f
	}

	m.mu.Lock()
	maps.Copy(m.filters, compiled)
	m.mu.Unlock()
	return nil
}

// GetFilter returns a registered preset
func (m *Manager) GetFilter(name string) (CompiledFilter, error) {
	m.mu.RLock()
	f, ok := m.filters[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return f, nil
}

// ListFilters returns registered preset names in sorted order
func (m *Manager) ListFilters() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.filters))
}

// EvaluateAll applies every preset to subjects concurrently
func (m *Manager) EvaluateAll(ctx context.Context, subjects []Subject) (map[string][]Subject, error) {
	m.mu.RLock()
	filters := maps.Clone(m.filters)
	m.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string][]Subject, len(filters))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for name, f := range filters {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			matches := Apply(f, subjects)

			mu.Lock()
			results[name] = matches
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
