package application

import (
	"errors"
	"slices"
	"testing"
)

func TestCompileFilters(t *testing.T) {
	t.Parallel()

	t.Run("orders by name without filters", func(t *testing.T) {
		plan, err := CompileFilters(nil)
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if len(plan.Filters) != 0 {
			t.Fatalf("expected no filters, got %v", plan.Filters)
		}
		if !slices.Equal(plan.Orders, []FilterField{FilterFieldName}) {
			t.Fatalf("expected name ordering, got %v", plan.Orders)
		}
		if _, ok := plan.InequalityField(); ok {
			t.Fatalf("expected no inequality field")
		}
	})

	t.Run("equality filters keep order and types", func(t *testing.T) {
		plan, err := CompileFilters([]FilterDescriptor{
			{Field: "CITY", Operator: "EQ", Value: "London"},
			{Field: "MONTH", Operator: "=", Value: " 6 "},
			{Field: "topics", Operator: "EQ", Value: "Go"},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		want := []Filter{
			{Field: FilterFieldCity, Operator: OperatorEqual, Value: "London"},
			{Field: FilterFieldMonth, Operator: OperatorEqual, Value: 6},
			{Field: FilterFieldTopics, Operator: OperatorEqual, Value: "Go"},
		}
		if !slices.Equal(plan.Filters, want) {
			t.Fatalf("expected %v, got %v", want, plan.Filters)
		}
		if !slices.Equal(plan.Orders, []FilterField{FilterFieldName}) {
			t.Fatalf("expected name ordering, got %v", plan.Orders)
		}
	})

	t.Run("inequality field leads ordering", func(t *testing.T) {
		plan, err := CompileFilters([]FilterDescriptor{
			{Field: "CITY", Operator: "EQ", Value: "Paris"},
			{Field: "MAX_ATTENDEES", Operator: "GT", Value: "10"},
			{Field: "maxAttendees", Operator: "<=", Value: "100"},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if !slices.Equal(plan.Orders, []FilterField{FilterFieldMaxAttendees, FilterFieldName}) {
			t.Fatalf("expected maxAttendees then name, got %v", plan.Orders)
		}
		field, ok := plan.InequalityField()
		if !ok || field != FilterFieldMaxAttendees {
			t.Fatalf("expected maxAttendees inequality, got %v (%v)", field, ok)
		}
	})

	t.Run("rejects a second inequality field", func(t *testing.T) {
		_, err := CompileFilters([]FilterDescriptor{
			{Field: "MONTH", Operator: "GT", Value: "3"},
			{Field: "CITY", Operator: "EQ", Value: "London"},
			{Field: "MAX_ATTENDEES", Operator: "NE", Value: "0"},
		})
		var multiErr *MultipleInequalityError
		if !errors.As(err, &multiErr) {
			t.Fatalf("expected MultipleInequalityError, got %v", err)
		}
		if !slices.Equal(multiErr.Fields, []FilterField{FilterFieldMonth, FilterFieldMaxAttendees}) {
			t.Fatalf("expected month and maxAttendees, got %v", multiErr.Fields)
		}
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("rejects unknown fields and operators", func(t *testing.T) {
		cases := []FilterDescriptor{
			{Field: "COLOUR", Operator: "EQ", Value: "red"},
			{Field: "name", Operator: "EQ", Value: "GopherCon"},
			{Field: "seatsAvailable", Operator: "GT", Value: "1"},
			{Field: "CITY", Operator: "LIKE", Value: "Lon"},
			{Field: "MONTH", Operator: "EQ", Value: "June"},
		}
		for _, descriptor := range cases {
			_, err := CompileFilters([]FilterDescriptor{descriptor})
			var filterErr *FilterError
			if !errors.As(err, &filterErr) {
				t.Fatalf("expected FilterError for %+v, got %v", descriptor, err)
			}
		}
	})
}

func TestFilterEnumsAreExhaustive(t *testing.T) {
	t.Parallel()

	for _, token := range []string{"CITY", "TOPIC", "MONTH", "MAX_ATTENDEES", "city", "topics", "month", "maxAttendees"} {
		field, ok := parseFilterField(token)
		if !ok {
			t.Fatalf("expected %q to parse", token)
		}
		if field.String() == "" || field.String()[0] == 'F' {
			t.Fatalf("expected a field name for %q, got %q", token, field.String())
		}
	}
	for _, token := range []string{"EQ", "GT", "GTEQ", "LT", "LTEQ", "NE", "=", ">", ">=", "<", "<=", "!="} {
		operator, ok := parseFilterOperator(token)
		if !ok {
			t.Fatalf("expected %q to parse", token)
		}
		if operator.Inequality() != (token != "EQ" && token != "=") {
			t.Fatalf("unexpected inequality flag for %q", token)
		}
	}
}

func TestInternalPlans(t *testing.T) {
	t.Parallel()

	plan := nearlySoldOutPlan()
	if field, ok := plan.InequalityField(); !ok || field != FilterFieldSeatsAvailable {
		t.Fatalf("expected seatsAvailable inequality, got %v", field)
	}
	if len(plan.Filters) != 2 {
		t.Fatalf("expected two seat filters, got %v", plan.Filters)
	}

	owner := alice().ProfileKey()
	owned := ownedByPlan(owner)
	if owned.Ancestor == nil || !owned.Ancestor.Equal(owner) {
		t.Fatalf("expected ancestor %v, got %v", owner, owned.Ancestor)
	}
}
