package filter

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*ExprCompiler)

// WithCache enables caching of compiled expressions
func WithCache(size int) ExprCompilerOption {
	return func(c *ExprCompiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		}
	}
}

// WithCustomFunctions adds helper functions available to every expression
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *ExprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// WithClock sets the time source used by date helpers
func WithClock(now func() time.Time) ExprCompilerOption {
	return func(c *ExprCompiler) {
		c.now = now
	}
}

// ExprCompiler compiles expr-lang expressions over Subject fields
type ExprCompiler struct {
	helperFuncs map[string]any
	cache       *lruCache
	now         func() time.Time
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) *ExprCompiler {
	c := &ExprCompiler{
		helperFuncs: make(map[string]any, 16),
		now:         time.Now,
	}
	custom := make(map[string]any)
	for _, opt := range opts {
		opt(c)
	}
	maps.Copy(custom, c.helperFuncs)
	addHelperFunctions(c.helperFuncs, c.now)
	maps.Copy(c.helperFuncs, custom)
	return c
}

// Compile compiles an expression into an executable filter
func (c *ExprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{Expression: expression, Reason: "empty expression"}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(c.helperFuncs),
		expr.AllowUndefinedVariables(), // movie fields are bound at run time
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{Expression: expression, Reason: "failed to compile expression", Err: err}
	}

	f := &exprFilter{expression: expression, program: program, helpers: c.helperFuncs}
	if c.cache != nil {
		c.cache.Put(expression, f)
	}
	return f, nil
}

// Clear removes all cached filters
func (c *ExprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *ExprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Len()
	}
	return 0
}

// Match evaluates the filter. Runtime errors count as no match.
func (f *exprFilter) Match(s Subject) bool {
	result, err := expr.Run(f.program, runtimeEnvironment(s, f.helpers))
	if err != nil {
		return false
	}
	return result.(bool)
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

func addHelperFunctions(env map[string]any, now func() time.Time) {
	env["contains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["startsWith"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["endsWith"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
	env["yearsSince"] = func(year int) int {
		return now().Year() - year
	}
	// bound per movie at run time
	env["hasGenre"] = func(string) bool { return false }
	env["hasAnyGenre"] = func(...string) bool { return false }
}

func runtimeEnvironment(s Subject, helpers map[string]any) map[string]any {
	env := make(map[string]any, len(helpers)+12)
	maps.Copy(env, helpers)

	m := s.Movie
	env["Movie"] = m
	env["ID"] = m.ID
	env["Title"] = m.Title
	env["Year"] = m.Year
	env["Rating"] = m.Rating
	env["Genres"] = m.Genres
	env["Description"] = m.Description
	env["Watched"] = s.Watched
	env["MyRating"] = s.MyRating
	env["Rated"] = s.MyRating > 0

	lowerGenres := make([]string, len(m.Genres))
	for i, g := range m.Genres {
		lowerGenres[i] = strings.ToLower(g)
	}
	env["hasGenre"] = func(genre string) bool {
		return slices.Contains(lowerGenres, strings.ToLower(genre))
	}
	env["hasAnyGenre"] = func(genres ...string) bool {
		for _, g := range genres {
			if slices.Contains(lowerGenres, strings.ToLower(g)) {
				return true
			}
		}
		return false
	}
	return env
}
