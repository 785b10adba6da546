// Package key models the hierarchical entity keys used by the conference
// store. A Profile key is the root of an ownership tree; Conference keys are
// scoped under a Profile and Session keys under a Conference.
//
// Keys travel over the wire as opaque "websafe" strings produced by Encode.
package key

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Kind names an entity type addressable by a key.
type Kind string

const (
	KindProfile    Kind = "Profile"
	KindConference Kind = "Conference"
	KindSession    Kind = "Session"
)

// ErrMalformed is returned when a websafe key cannot be decoded.
var ErrMalformed = errors.New("key: malformed websafe key")

// Key identifies a single entity and, through Parent, its ancestors.
// Profile keys carry a string Name; Conference and Session keys carry a
// store allocated numeric ID.
type Key struct {
	kind   Kind
	name   string
	id     int64
	parent *Key
}

// Profile returns the root key for the profile owned by userID.
func Profile(userID string) Key {
	return Key{kind: KindProfile, name: userID}
}

// Conference returns the key of conference id owned by the given profile.
func Conference(profile Key, id int64) Key {
	p := profile
	return Key{kind: KindConference, id: id, parent: &p}
}

// Session returns the key of session id scoped under the given conference.
func Session(conference Key, id int64) Key {
	c := conference
	return Key{kind: KindSession, id: id, parent: &c}
}

// Kind reports the entity kind addressed by the key.
func (k Key) Kind() Kind { return k.kind }

// Name returns the string identifier of a Profile key.
func (k Key) Name() string { return k.name }

// ID returns the numeric identifier of a Conference or Session key.
func (k Key) ID() int64 { return k.id }

// Parent returns the ancestor key, if any.
func (k Key) Parent() (Key, bool) {
	if k.parent == nil {
		return Key{}, false
	}
	return *k.parent, true
}

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool { return k.kind == "" }

// Root walks the ancestor chain up to the Profile key.
func (k Key) Root() Key {
	current := k
	for current.parent != nil {
		current = *current.parent
	}
	return current
}

// Equal compares two keys including their ancestors.
func (k Key) Equal(other Key) bool {
	return k.path() == other.path()
}

// String renders the key path for logs.
func (k Key) String() string {
	if k.IsZero() {
		return ""
	}
	return k.path()
}

// Encode returns the opaque websafe representation of the key.
func (k Key) Encode() string {
	if k.IsZero() {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(k.path()))
}

func (k Key) path() string {
	var segments []string
	current := &k
	for current != nil {
		segments = append([]string{string(current.kind), current.identifier()}, segments...)
		current = current.parent
	}
	return strings.Join(segments, ",")
}

// identifier escapes profile names so a "," in a user id cannot split the path.
func (k Key) identifier() string {
	if k.kind == KindProfile {
		return url.PathEscape(k.name)
	}
	return strconv.FormatInt(k.id, 10)
}

// Decode parses a websafe key produced by Encode.
func Decode(websafe string) (Key, error) {
	websafe = strings.TrimSpace(websafe)
	if websafe == "" {
		return Key{}, ErrMalformed
	}
	raw, err := base64.RawURLEncoding.DecodeString(websafe)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	segments := strings.Split(string(raw), ",")
	if len(segments) < 2 || len(segments)%2 != 0 {
		return Key{}, ErrMalformed
	}

	var current *Key
	for i := 0; i < len(segments); i += 2 {
		kind := Kind(segments[i])
		identifier, err := url.PathUnescape(segments[i+1])
		if err != nil {
			return Key{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		next := Key{kind: kind, parent: current}
		switch kind {
		case KindProfile:
			if current != nil || identifier == "" {
				return Key{}, ErrMalformed
			}
			next.name = identifier
		case KindConference, KindSession:
			if current == nil || current.kind != parentKind(kind) {
				return Key{}, ErrMalformed
			}
			id, err := strconv.ParseInt(identifier, 10, 64)
			if err != nil || id <= 0 {
				return Key{}, ErrMalformed
			}
			next.id = id
		default:
			return Key{}, ErrMalformed
		}
		current = &next
	}

	return *current, nil
}

func parentKind(kind Kind) Kind {
	switch kind {
	case KindConference:
		return KindProfile
	case KindSession:
		return KindConference
	}
	return ""
}
