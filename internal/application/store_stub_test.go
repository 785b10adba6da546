package application

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/example/conference-central/internal/key"
	"github.com/example/conference-central/internal/persistence"
)

// memState is an in-memory entity store. It implements all three repository
// interfaces so one value can back a Tx.
type memState struct {
	profiles     map[string]Profile
	conferences  map[string]Conference
	sessions     map[string]Session
	order        []string
	nextID       int64
	reads        int
	failPutError error
}

func newMemState() *memState {
	return &memState{
		profiles:    make(map[string]Profile),
		conferences: make(map[string]Conference),
		sessions:    make(map[string]Session),
	}
}

func (m *memState) clone() *memState {
	c := &memState{
		profiles:     make(map[string]Profile, len(m.profiles)),
		conferences:  make(map[string]Conference, len(m.conferences)),
		sessions:     make(map[string]Session, len(m.sessions)),
		order:        slices.Clone(m.order),
		nextID:       m.nextID,
		reads:        m.reads,
		failPutError: m.failPutError,
	}
	for k, v := range m.profiles {
		v.ConferenceKeysToAttend = slices.Clone(v.ConferenceKeysToAttend)
		v.SessionKeysWishList = slices.Clone(v.SessionKeysWishList)
		c.profiles[k] = v
	}
	for k, v := range m.conferences {
		v.Topics = slices.Clone(v.Topics)
		c.conferences[k] = v
	}
	for k, v := range m.sessions {
		c.sessions[k] = v
	}
	return c
}

func (m *memState) Profiles() ProfileRepository       { return m }
func (m *memState) Conferences() ConferenceRepository { return m }
func (m *memState) Sessions() SessionRepository       { return m }

func (m *memState) GetProfile(ctx context.Context, userID string) (Profile, error) {
	m.reads++
	profile, ok := m.profiles[userID]
	if !ok {
		return Profile{}, persistence.ErrNotFound
	}
	return profile, nil
}

func (m *memState) PutProfile(ctx context.Context, profile Profile) (Profile, error) {
	if m.failPutError != nil {
		return Profile{}, m.failPutError
	}
	current, exists := m.profiles[profile.UserID]
	switch {
	case profile.Version == 0 && exists:
		return Profile{}, persistence.ErrConcurrentModification
	case profile.Version != 0 && (!exists || current.Version != profile.Version):
		return Profile{}, persistence.ErrConcurrentModification
	}
	profile.Version++
	m.profiles[profile.UserID] = profile
	return profile, nil
}

func (m *memState) CreateConference(ctx context.Context, conference Conference) (Conference, error) {
	owner, _ := conference.Key.Parent()
	if conference.Key.Kind() != key.KindConference {
		owner = conference.Key
	}
	m.nextID++
	conference.Key = key.Conference(owner, m.nextID)
	conference.Version = 1
	m.conferences[conference.Key.String()] = conference
	m.order = append(m.order, conference.Key.String())
	return conference, nil
}

func (m *memState) GetConference(ctx context.Context, k key.Key) (Conference, error) {
	m.reads++
	conference, ok := m.conferences[k.String()]
	if !ok {
		return Conference{}, persistence.ErrNotFound
	}
	return conference, nil
}

func (m *memState) GetConferences(ctx context.Context, keys []key.Key) ([]Conference, error) {
	out := make([]Conference, 0, len(keys))
	for _, k := range keys {
		if conference, ok := m.conferences[k.String()]; ok {
			out = append(out, conference)
		}
	}
	return out, nil
}

func (m *memState) PutConference(ctx context.Context, conference Conference) (Conference, error) {
	if m.failPutError != nil {
		return Conference{}, m.failPutError
	}
	current, ok := m.conferences[conference.Key.String()]
	if !ok {
		return Conference{}, persistence.ErrNotFound
	}
	if current.Version != conference.Version {
		return Conference{}, persistence.ErrConcurrentModification
	}
	if conference.SeatsAvailable < 0 || conference.SeatsAvailable > conference.MaxAttendees {
		return Conference{}, persistence.ErrConstraintViolation
	}
	conference.Version++
	m.conferences[conference.Key.String()] = conference
	return conference, nil
}

func (m *memState) QueryConferences(ctx context.Context, plan QueryPlan) ([]Conference, error) {
	var out []Conference
	for _, id := range m.order {
		conference, ok := m.conferences[id]
		if !ok {
			continue
		}
		if plan.Ancestor != nil {
			if owner, _ := conference.Key.Parent(); !owner.Equal(*plan.Ancestor) {
				continue
			}
		}
		matched := true
		for _, filter := range plan.Filters {
			if !matchFilter(conference, filter) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, conference)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		for _, field := range plan.Orders {
			if c := compareField(out[i], out[j], field); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return out, nil
}

func fieldValue(conference Conference, field FilterField) any {
	switch field {
	case FilterFieldName:
		return conference.Name
	case FilterFieldCity:
		return conference.City
	case FilterFieldMonth:
		return conference.Month
	case FilterFieldMaxAttendees:
		return conference.MaxAttendees
	case FilterFieldSeatsAvailable:
		return conference.SeatsAvailable
	}
	return nil
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case int:
		bv, _ := b.(int)
		return av - bv
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	}
	return 0
}

func compareField(a, b Conference, field FilterField) int {
	if field == FilterFieldTopics {
		return strings.Compare(strings.Join(a.Topics, ","), strings.Join(b.Topics, ","))
	}
	return compareValues(fieldValue(a, field), fieldValue(b, field))
}

func holds(operator FilterOperator, c int) bool {
	switch operator {
	case OperatorEqual:
		return c == 0
	case OperatorNotEqual:
		return c != 0
	case OperatorLess:
		return c < 0
	case OperatorLessOrEqual:
		return c <= 0
	case OperatorGreater:
		return c > 0
	case OperatorGreaterOrEqual:
		return c >= 0
	}
	return false
}

func matchFilter(conference Conference, filter Filter) bool {
	if filter.Field == FilterFieldTopics {
		for _, topic := range conference.Topics {
			if holds(filter.Operator, compareValues(topic, filter.Value)) {
				return true
			}
		}
		return false
	}
	return holds(filter.Operator, compareValues(fieldValue(conference, filter.Field), filter.Value))
}

func (m *memState) CreateSession(ctx context.Context, session Session) (Session, error) {
	conference, _ := session.Key.Parent()
	m.nextID++
	session.Key = key.Session(conference, m.nextID)
	m.sessions[session.Key.String()] = session
	m.order = append(m.order, session.Key.String())
	return session, nil
}

func (m *memState) GetSession(ctx context.Context, k key.Key) (Session, error) {
	m.reads++
	session, ok := m.sessions[k.String()]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (m *memState) GetSessions(ctx context.Context, keys []key.Key) ([]Session, error) {
	out := make([]Session, 0, len(keys))
	for _, k := range keys {
		if session, ok := m.sessions[k.String()]; ok {
			out = append(out, session)
		}
	}
	return out, nil
}

func (m *memState) QuerySessions(ctx context.Context, query SessionQuery) ([]Session, error) {
	var out []Session
	for _, id := range m.order {
		session, ok := m.sessions[id]
		if !ok {
			continue
		}
		if query.Conference != nil {
			if parent, _ := session.Key.Parent(); !parent.Equal(*query.Conference) {
				continue
			}
		}
		if query.Speaker != "" && session.Speaker != query.Speaker {
			continue
		}
		if query.TypeOfSession != "" && session.TypeOfSession != query.TypeOfSession {
			continue
		}
		if query.ExcludeType != "" && (session.TypeOfSession == "" || session.TypeOfSession == query.ExcludeType) {
			continue
		}
		if query.Date != nil && (session.Date == nil || !session.Date.Equal(*query.Date)) {
			continue
		}
		out = append(out, session)
	}
	if query.OrderByStartTime {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].StartTime, out[j].StartTime
			if a == nil || b == nil {
				return a == nil && b != nil
			}
			return a.Before(*b)
		})
	}
	return out, nil
}

func (m *memState) CountSessions(ctx context.Context, query SessionQuery) (int, error) {
	sessions, err := m.QuerySessions(ctx, query)
	return len(sessions), err
}

// memStore commits a transaction's working copy only when fn succeeds.
type memStore struct {
	mu sync.Mutex
	*memState
	transactions int
}

func newMemStore() *memStore {
	return &memStore{memState: newMemState()}
}

func (s *memStore) RunInTransaction(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions++
	working := s.memState.clone()
	if err := fn(working); err != nil {
		s.memState.reads = working.reads
		return err
	}
	s.memState = working
	return nil
}

// seedConference stores a conference owned by owner and returns it.
func (s *memStore) seedConference(owner string, conference Conference) Conference {
	conference.Key = key.Conference(key.Profile(owner), 0)
	conference.OrganizerUserID = owner
	created, err := s.CreateConference(context.Background(), conference)
	if err != nil {
		panic(err)
	}
	return created
}

func (s *memStore) seedSession(conference Conference, session Session) Session {
	session.Key = key.Session(conference.Key, 0)
	created, err := s.CreateSession(context.Background(), session)
	if err != nil {
		panic(err)
	}
	return created
}

type memCache struct {
	values map[string]string
	setErr error
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string]string)}
}

func (c *memCache) Get(ctx context.Context, k string) (string, bool, error) {
	value, ok := c.values[k]
	return value, ok, nil
}

func (c *memCache) Set(ctx context.Context, k, value string) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.values[k] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, k string) error {
	delete(c.values, k)
	return nil
}

type queuedTask struct {
	name   string
	params map[string]string
}

type taskRecorder struct {
	tasks []queuedTask
	err   error
}

func (r *taskRecorder) Enqueue(ctx context.Context, name string, params map[string]string) error {
	if r.err != nil {
		return r.err
	}
	r.tasks = append(r.tasks, queuedTask{name: name, params: params})
	return nil
}

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func alice() Principal {
	return Principal{UserID: "alice", Email: "alice@example.com", Name: "Alice"}
}

func bob() Principal {
	return Principal{UserID: "bob", Email: "bob@example.com", Name: "Bob"}
}
