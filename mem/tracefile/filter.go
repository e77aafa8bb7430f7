package tracefile

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// A Filter decides which records reach the simulator. The expression is CEL
// over addr (int), kind ("load", "store" or "ifetch") and line (int), and
// must yield a bool.
type Filter struct {
	Expression string
	program    cel.Program
}

// NewFilter compiles an expression such as
// `kind != "ifetch" && addr >= 0x7fff0000`.
func NewFilter(expression string) (*Filter, error) {
	if expression == "" {
		return nil, fmt.Errorf("filter expression can't be empty")
	}

	env, err := cel.NewEnv(
		cel.Variable("addr", cel.IntType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("line", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compiling filter %q: %w", expression, issues.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter %q must evaluate to a bool, not %s",
			expression, ast.OutputType())
	}

	p, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("creating filter program: %w", err)
	}

	return &Filter{
		Expression: expression,
		program:    p,
	}, nil
}

// Match reports whether the record passes the filter.
func (f *Filter) Match(rec Record) (bool, error) {
	out, _, err := f.program.Eval(map[string]any{
		"addr": int64(rec.Address),
		"kind": rec.Kind.String(),
		"line": int64(rec.Line),
	})
	if err != nil {
		return false, fmt.Errorf("evaluating filter on line %d: %w", rec.Line, err)
	}

	match, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter returned %v, not a bool", out.Value())
	}

	return match, nil
}
