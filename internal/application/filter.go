package application

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/conference-central/internal/key"
)

// FilterField enumerates the conference fields a query plan can reference.
type FilterField int

const (
	FilterFieldName FilterField = iota + 1
	FilterFieldCity
	FilterFieldTopics
	FilterFieldMonth
	FilterFieldMaxAttendees
	// FilterFieldSeatsAvailable is used by internal plans only; clients
	// cannot filter on it.
	FilterFieldSeatsAvailable
)

func (f FilterField) String() string {
	switch f {
	case FilterFieldName:
		return "name"
	case FilterFieldCity:
		return "city"
	case FilterFieldTopics:
		return "topics"
	case FilterFieldMonth:
		return "month"
	case FilterFieldMaxAttendees:
		return "maxAttendees"
	case FilterFieldSeatsAvailable:
		return "seatsAvailable"
	}
	return fmt.Sprintf("FilterField(%d)", int(f))
}

// Numeric reports whether values for the field are integers.
func (f FilterField) Numeric() bool {
	switch f {
	case FilterFieldMonth, FilterFieldMaxAttendees, FilterFieldSeatsAvailable:
		return true
	case FilterFieldName, FilterFieldCity, FilterFieldTopics:
		return false
	}
	return false
}

// FilterOperator enumerates the supported comparison operators.
type FilterOperator int

const (
	OperatorEqual FilterOperator = iota + 1
	OperatorGreater
	OperatorGreaterOrEqual
	OperatorLess
	OperatorLessOrEqual
	OperatorNotEqual
)

func (o FilterOperator) String() string {
	switch o {
	case OperatorEqual:
		return "="
	case OperatorGreater:
		return ">"
	case OperatorGreaterOrEqual:
		return ">="
	case OperatorLess:
		return "<"
	case OperatorLessOrEqual:
		return "<="
	case OperatorNotEqual:
		return "!="
	}
	return fmt.Sprintf("FilterOperator(%d)", int(o))
}

// Inequality reports whether the operator constrains result ordering.
func (o FilterOperator) Inequality() bool {
	return o != OperatorEqual
}

// FilterDescriptor is one client-supplied (field, operator, value) tuple.
// Field accepts CITY, TOPIC, MONTH, MAX_ATTENDEES or the lower camel case
// field names; Operator accepts EQ, GT, GTEQ, LT, LTEQ, NE or the symbols.
type FilterDescriptor struct {
	Field    string
	Operator string
	Value    string
}

// Filter is a validated, typed predicate. Value is a string for text fields
// and an int for numeric ones.
type Filter struct {
	Field    FilterField
	Operator FilterOperator
	Value    any
}

// QueryPlan is a store-native conference query. Filters are conjunctive and
// Orders apply ascending in sequence.
type QueryPlan struct {
	Ancestor *key.Key
	Filters  []Filter
	Orders   []FilterField

	inequality FilterField
}

// InequalityField returns the field compared with a non-equality operator, if any.
func (p QueryPlan) InequalityField() (FilterField, bool) {
	return p.inequality, p.inequality != 0
}

func parseFilterField(token string) (FilterField, bool) {
	switch strings.TrimSpace(token) {
	case "CITY", "city":
		return FilterFieldCity, true
	case "TOPIC", "topics":
		return FilterFieldTopics, true
	case "MONTH", "month":
		return FilterFieldMonth, true
	case "MAX_ATTENDEES", "maxAttendees":
		return FilterFieldMaxAttendees, true
	}
	return 0, false
}

func parseFilterOperator(token string) (FilterOperator, bool) {
	switch strings.TrimSpace(token) {
	case "EQ", "=":
		return OperatorEqual, true
	case "GT", ">":
		return OperatorGreater, true
	case "GTEQ", ">=":
		return OperatorGreaterOrEqual, true
	case "LT", "<":
		return OperatorLess, true
	case "LTEQ", "<=":
		return OperatorLessOrEqual, true
	case "NE", "!=":
		return OperatorNotEqual, true
	}
	return 0, false
}

// CompileFilters validates descriptors and translates them into a query plan.
// Nothing is returned unless every descriptor is valid. At most one distinct
// field may use a non-equality operator; results are then ordered by that
// field and by name, and by name alone otherwise.
func CompileFilters(descriptors []FilterDescriptor) (QueryPlan, error) {
	var (
		filters    = make([]Filter, 0, len(descriptors))
		inequality FilterField
	)

	for _, descriptor := range descriptors {
		field, ok := parseFilterField(descriptor.Field)
		if !ok {
			return QueryPlan{}, &FilterError{Field: descriptor.Field, Operator: descriptor.Operator, Reason: "unknown field"}
		}
		operator, ok := parseFilterOperator(descriptor.Operator)
		if !ok {
			return QueryPlan{}, &FilterError{Field: descriptor.Field, Operator: descriptor.Operator, Reason: "unknown operator"}
		}

		if operator.Inequality() {
			if inequality != 0 && inequality != field {
				return QueryPlan{}, &MultipleInequalityError{Fields: []FilterField{inequality, field}}
			}
			inequality = field
		}

		var value any = descriptor.Value
		if field.Numeric() {
			number, err := strconv.Atoi(strings.TrimSpace(descriptor.Value))
			if err != nil {
				return QueryPlan{}, &FilterError{Field: descriptor.Field, Operator: descriptor.Operator, Reason: "value must be an integer"}
			}
			value = number
		}

		filters = append(filters, Filter{Field: field, Operator: operator, Value: value})
	}

	plan := QueryPlan{Filters: filters, inequality: inequality}
	if inequality != 0 {
		plan.Orders = []FilterField{inequality, FilterFieldName}
	} else {
		plan.Orders = []FilterField{FilterFieldName}
	}
	return plan, nil
}

// nearlySoldOutPlan selects conferences with between one and five seats left.
func nearlySoldOutPlan() QueryPlan {
	return QueryPlan{
		Filters: []Filter{
			{Field: FilterFieldSeatsAvailable, Operator: OperatorLessOrEqual, Value: 5},
			{Field: FilterFieldSeatsAvailable, Operator: OperatorGreater, Value: 0},
		},
		Orders:     []FilterField{FilterFieldSeatsAvailable},
		inequality: FilterFieldSeatsAvailable,
	}
}

// ownedByPlan selects every conference created under the profile.
func ownedByPlan(profile key.Key) QueryPlan {
	return QueryPlan{Ancestor: &profile}
}
