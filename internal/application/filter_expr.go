package application

import (
	"fmt"
	"strconv"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// filterRequest adapts a raw expression to filtering.Request.
type filterRequest string

func (r filterRequest) GetFilter() string { return string(r) }

func conferenceFilterDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("city", filtering.TypeString),
		filtering.DeclareIdent("topics", filtering.TypeList(filtering.TypeString)),
		filtering.DeclareIdent("month", filtering.TypeInt),
		filtering.DeclareIdent("maxAttendees", filtering.TypeInt),
	)
}

// ParseFilterExpression lowers an AIP-160 filter such as
// `city = "London" AND month > 3` into filter descriptors, preserving the
// order of the conjuncts. Topic membership is written `topics:"Go"`.
// Disjunction and negation are rejected.
func ParseFilterExpression(filter string) ([]FilterDescriptor, error) {
	if strings.TrimSpace(filter) == "" {
		return nil, nil
	}

	declarations, err := conferenceFilterDeclarations()
	if err != nil {
		return nil, fmt.Errorf("create filter declarations: %w", err)
	}

	parsed, err := filtering.ParseFilter(filterRequest(filter), declarations)
	if err != nil {
		return nil, &FilterError{Field: filter, Reason: err.Error()}
	}
	if parsed.CheckedExpr == nil {
		return nil, nil
	}

	var descriptors []FilterDescriptor
	if err := lowerExpr(parsed.CheckedExpr.GetExpr(), &descriptors); err != nil {
		return nil, err
	}
	return descriptors, nil
}

func lowerExpr(e *expr.Expr, out *[]FilterDescriptor) error {
	call := e.GetCallExpr()
	if call == nil {
		return &FilterError{Reason: fmt.Sprintf("unsupported expression %T", e.GetExprKind())}
	}

	switch call.GetFunction() {
	case filtering.FunctionAnd:
		for _, arg := range call.GetArgs() {
			if err := lowerExpr(arg, out); err != nil {
				return err
			}
		}
		return nil
	case filtering.FunctionEquals, filtering.FunctionHas:
		return lowerComparison(call, "=", out)
	case filtering.FunctionNotEquals, filtering.FunctionLessThan, filtering.FunctionLessEquals,
		filtering.FunctionGreaterThan, filtering.FunctionGreaterEquals:
		return lowerComparison(call, call.GetFunction(), out)
	}
	return &FilterError{Operator: call.GetFunction(), Reason: "only conjunctions of comparisons are supported"}
}

func lowerComparison(call *expr.Expr_Call, operator string, out *[]FilterDescriptor) error {
	args := call.GetArgs()
	if len(args) != 2 {
		return &FilterError{Operator: operator, Reason: "comparison requires two operands"}
	}

	ident := args[0].GetIdentExpr()
	if ident == nil {
		return &FilterError{Operator: operator, Reason: "left operand must be a field"}
	}
	if ident.GetName() == "topics" && call.GetFunction() != filtering.FunctionHas {
		return &FilterError{Field: ident.GetName(), Operator: operator, Reason: `use topics:"value" for membership`}
	}

	constant := args[1].GetConstExpr()
	if constant == nil {
		return &FilterError{Field: ident.GetName(), Operator: operator, Reason: "right operand must be a literal"}
	}

	var value string
	switch kind := constant.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		value = kind.StringValue
	case *expr.Constant_Int64Value:
		value = strconv.FormatInt(kind.Int64Value, 10)
	default:
		return &FilterError{Field: ident.GetName(), Operator: operator, Reason: fmt.Sprintf("unsupported literal %T", kind)}
	}

	*out = append(*out, FilterDescriptor{Field: ident.GetName(), Operator: operator, Value: value})
	return nil
}
