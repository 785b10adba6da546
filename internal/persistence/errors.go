package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when an insert collides with an existing row.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a write breaks a table constraint,
	// for example a seat count outside 0..maxAttendees.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrConcurrentModification is returned when a versioned write observes a
	// newer version than the one it read. Transactions retry on it.
	ErrConcurrentModification = errors.New("persistence: concurrent modification")
	// ErrInvalidQuery is returned when a query plan names an unknown field or
	// carries a value of the wrong type.
	ErrInvalidQuery = errors.New("persistence: invalid query")
)
