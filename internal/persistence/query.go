package persistence

import (
	"fmt"
	"time"

	"github.com/example/conference-central/internal/key"
)

// ConferenceField names a queryable conference column.
type ConferenceField string

const (
	ConferenceFieldName           ConferenceField = "name"
	ConferenceFieldCity           ConferenceField = "city"
	ConferenceFieldTopics         ConferenceField = "topics"
	ConferenceFieldMonth          ConferenceField = "month"
	ConferenceFieldMaxAttendees   ConferenceField = "max_attendees"
	ConferenceFieldSeatsAvailable ConferenceField = "seats_available"
)

// Comparison is a filter comparison operator.
type Comparison string

const (
	CompareEqual          Comparison = "="
	CompareNotEqual       Comparison = "!="
	CompareLess           Comparison = "<"
	CompareLessOrEqual    Comparison = "<="
	CompareGreater        Comparison = ">"
	CompareGreaterOrEqual Comparison = ">="
)

// ConferenceFilter is a single conjunctive predicate. Value is a string for
// text fields and an int for numeric ones. A filter on ConferenceFieldTopics
// matches when any topic compares true against Value.
type ConferenceFilter struct {
	Field      ConferenceField
	Comparison Comparison
	Value      any
}

// ConferenceQuery is the store-native plan executed by QueryConferences.
// Filters are ANDed; Orders are applied ascending in sequence.
type ConferenceQuery struct {
	Ancestor *key.Key
	Filters  []ConferenceFilter
	Orders   []ConferenceField
}

func (f ConferenceFilter) String() string {
	return fmt.Sprintf("%s %s %v", f.Field, f.Comparison, f.Value)
}

// SessionOrder selects the sort applied to session queries.
type SessionOrder int

const (
	// SessionOrderKey orders sessions by allocation order.
	SessionOrderKey SessionOrder = iota
	// SessionOrderStartTime orders by start time; sessions without one sort first.
	SessionOrderStartTime
)

// SessionQuery narrows session lookups. Zero-valued fields are ignored.
type SessionQuery struct {
	Conference    *key.Key
	Speaker       string
	TypeOfSession string
	ExcludeType   string
	Date          *time.Time
	Order         SessionOrder
}
