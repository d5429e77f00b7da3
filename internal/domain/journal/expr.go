package journal

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/types"
)

// AmountExpr is a CEL expression computing the posted amount from the
// document header. Variables are integers in minor units:
// total, sub_total, discount, tax, extra, due. Example: "total - due".
type AmountExpr struct {
	source  string
	program cel.Program
}

var amountVars = []string{"total", "sub_total", "discount", "tax", "extra", "due"}

// CompileAmount parses and type-checks src. The expression must yield an int.
func CompileAmount(src string) (*AmountExpr, error) {
	opts := make([]cel.EnvOption, 0, len(amountVars))
	for _, name := range amountVars {
		opts = append(opts, cel.Variable(name, cel.IntType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, iss := env.Compile(src)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile amount %q: %w", src, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.IntType) {
		return nil, fmt.Errorf("amount %q must evaluate to int, got %s", src, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program amount %q: %w", src, err)
	}
	return &AmountExpr{source: src, program: prg}, nil
}

// String returns the expression source.
func (e *AmountExpr) String() string {
	return e.source
}

// Eval computes the amount. A negative result is a validation error.
func (e *AmountExpr) Eval(a Amounts) (types.Money, error) {
	out, _, err := e.program.Eval(map[string]any{
		"total":     int64(types.ToMinorUnits(a.Total)),
		"sub_total": int64(types.ToMinorUnits(a.SubTotal)),
		"discount":  int64(types.ToMinorUnits(a.Discount)),
		"tax":       int64(types.ToMinorUnits(a.Tax)),
		"extra":     int64(types.ToMinorUnits(a.Extra)),
		"due":       int64(types.ToMinorUnits(a.Due)),
	})
	if err != nil {
		return types.Zero(), apperror.NewValidation("journal amount expression failed").
			WithDetail("expression", e.source).
			WithCause(err)
	}

	v, ok := out.Value().(int64)
	if !ok {
		return types.Zero(), apperror.NewValidation("journal amount expression returned a non-integer").
			WithDetail("expression", e.source)
	}
	minor := types.MinorUnits(v)
	if minor.IsNegative() {
		return types.Zero(), apperror.NewValidation("journal amount expression returned a negative amount").
			WithDetail("expression", e.source).
			WithDetail("amount", minor.Money().String())
	}
	return minor.Money(), nil
}

// Resolve returns the expression result, or a.Total when e is nil.
func (e *AmountExpr) Resolve(a Amounts) (types.Money, error) {
	if e == nil {
		return a.Total, nil
	}
	return e.Eval(a)
}
