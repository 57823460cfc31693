package rewards

import (
	"fmt"
	"strings"
	"time"

	"github.com/sparkcards/sparkcards/internal/services/study/storage"
	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Declarations returns the field declarations for reward event filtering.
func Declarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("deck_id", filtering.TypeString),
		filtering.DeclareIdent("sparks", filtering.TypeInt),
		filtering.DeclareIdent("created_at", filtering.TypeTimestamp),
	)
}

// Condition is a SQL WHERE fragment with positional ? parameters.
type Condition struct {
	Clause string
	Params []any
}

var fieldColumns = map[string]string{
	"deck_id":    "deck_id",
	"sparks":     "sparks",
	"created_at": "created_at",
}

// ParseFilter parses an AIP-160 filter over reward events, for example
// `deck_id = "deck-1" AND created_at > timestamp("2026-01-01T00:00:00Z")`.
// An empty filter yields an empty condition.
func ParseFilter(filter string) (Condition, error) {
	if strings.TrimSpace(filter) == "" {
		return Condition{}, nil
	}
	decls, err := Declarations()
	if err != nil {
		return Condition{}, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(filter, decls)
	if err != nil {
		return Condition{}, fmt.Errorf("parse filter: %w", err)
	}
	return translateExpr(parsed.CheckedExpr.GetExpr())
}

func translateExpr(e *expr.Expr) (Condition, error) {
	if e == nil {
		return Condition{}, nil
	}
	call, ok := e.ExprKind.(*expr.Expr_CallExpr)
	if !ok {
		return Condition{}, fmt.Errorf("unsupported expression type: %T", e.ExprKind)
	}
	switch fn := call.CallExpr.Function; fn {
	case "_&&_", "AND":
		return translateJunction(call.CallExpr.Args, "AND")
	case "_||_", "OR":
		return translateJunction(call.CallExpr.Args, "OR")
	case "_!_", "NOT":
		if len(call.CallExpr.Args) != 1 {
			return Condition{}, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := translateExpr(call.CallExpr.Args[0])
		if err != nil {
			return Condition{}, err
		}
		return Condition{Clause: "NOT " + inner.Clause, Params: inner.Params}, nil
	case "_==_", "=":
		return translateComparison(call.CallExpr.Args, "=")
	case "_!=_", "!=":
		return translateComparison(call.CallExpr.Args, "!=")
	case "_<_", "<":
		return translateComparison(call.CallExpr.Args, "<")
	case "_<=_", "<=":
		return translateComparison(call.CallExpr.Args, "<=")
	case "_>_", ">":
		return translateComparison(call.CallExpr.Args, ">")
	case "_>=_", ">=":
		return translateComparison(call.CallExpr.Args, ">=")
	default:
		return Condition{}, fmt.Errorf("unsupported function: %s", fn)
	}
}

func translateJunction(args []*expr.Expr, op string) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, fmt.Errorf("%s requires 2 arguments", op)
	}
	left, err := translateExpr(args[0])
	if err != nil {
		return Condition{}, err
	}
	right, err := translateExpr(args[1])
	if err != nil {
		return Condition{}, err
	}
	return Condition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: append(left.Params, right.Params...),
	}, nil
}

func translateComparison(args []*expr.Expr, op string) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, fmt.Errorf("comparison requires 2 arguments")
	}
	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return Condition{}, fmt.Errorf("expected identifier, got %T", args[0].GetExprKind())
	}
	field := ident.IdentExpr.GetName()
	column, ok := fieldColumns[field]
	if !ok {
		return Condition{}, fmt.Errorf("unknown field: %s", field)
	}
	value, err := extractValue(args[1])
	if err != nil {
		return Condition{}, err
	}
	return Condition{
		Clause: fmt.Sprintf("%s %s ?", column, op),
		Params: []any{value},
	}, nil
}

// extractValue returns the bound parameter. Timestamps become unix
// milliseconds, the stored form of created_at.
func extractValue(e *expr.Expr) (any, error) {
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_ConstExpr:
		switch c := kind.ConstExpr.GetConstantKind().(type) {
		case *expr.Constant_StringValue:
			return c.StringValue, nil
		case *expr.Constant_Int64Value:
			return c.Int64Value, nil
		case *expr.Constant_Uint64Value:
			return int64(c.Uint64Value), nil
		default:
			return nil, fmt.Errorf("unsupported constant type: %T", c)
		}
	case *expr.Expr_CallExpr:
		if kind.CallExpr.Function != "timestamp" || len(kind.CallExpr.Args) != 1 {
			return nil, fmt.Errorf("unsupported function in value position: %s", kind.CallExpr.Function)
		}
		arg, ok := kind.CallExpr.Args[0].GetConstExpr().GetConstantKind().(*expr.Constant_StringValue)
		if !ok {
			return nil, fmt.Errorf("timestamp argument must be a constant string")
		}
		ts, err := time.Parse(time.RFC3339Nano, arg.StringValue)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp format: %s", arg.StringValue)
		}
		return ts.UTC().UnixMilli(), nil
	default:
		return nil, fmt.Errorf("expected constant or timestamp, got %T", kind)
	}
}

// Query builds a store query from a filter and a limit.
func Query(filter string, limit int) (storage.RewardQuery, error) {
	condition, err := ParseFilter(filter)
	if err != nil {
		return storage.RewardQuery{}, err
	}
	return storage.RewardQuery{Condition: condition.Clause, Params: condition.Params, Limit: limit}, nil
}
