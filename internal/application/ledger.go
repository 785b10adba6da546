package application

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/conference-central/internal/key"
)

const tracerName = "github.com/example/conference-central/internal/application"

// Ledger performs the registration and wishlist mutations. Every mutation is
// validated in full before anything is written, and registration moves the
// seat count and the attendance list in one transaction.
type Ledger struct {
	store  Transactor
	logger *slog.Logger
	tracer trace.Tracer
}

// NewLedger constructs a ledger over the transactional store.
func NewLedger(store Transactor) *Ledger {
	return NewLedgerWithLogger(store, nil)
}

// NewLedgerWithLogger constructs a ledger with a specified logger.
func NewLedgerWithLogger(store Transactor, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: defaultLogger(logger), tracer: otel.Tracer(tracerName)}
}

func (l *Ledger) start(ctx context.Context, operation string, principal Principal, k key.Key) (context.Context, trace.Span, *slog.Logger) {
	ctx, span := l.tracer.Start(ctx, "Ledger."+operation, trace.WithAttributes(
		attribute.String("principal.id", principal.UserID),
		attribute.String("entity.key", k.String()),
	))
	logger := serviceLogger(ctx, l.logger, "Ledger", operation,
		"principal_id", principal.UserID,
		"key", k.String(),
	)
	return ctx, span, logger
}

func finish(ctx context.Context, span trace.Span, logger *slog.Logger, err error, message string, changed bool) {
	defer span.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		logger.ErrorContext(ctx, "failed to "+message, "error", err, "error_kind", ErrorKind(err))
		return
	}
	span.SetAttributes(attribute.Bool("ledger.changed", changed))
	logger.InfoContext(ctx, message, "changed", changed)
}

// Register adds the conference to the principal's attendance list and takes
// one seat.
func (l *Ledger) Register(ctx context.Context, principal Principal, conferenceKey key.Key) (registered bool, err error) {
	ctx, span, logger := l.start(ctx, "Register", principal, conferenceKey)
	defer func() { finish(ctx, span, logger, err, "register for conference", registered) }()

	if !principal.Authenticated() {
		return false, ErrUnauthenticated
	}
	websafe := conferenceKey.Encode()

	err = l.store.RunInTransaction(ctx, func(tx Tx) error {
		registered = false

		profile, err := loadProfile(ctx, tx.Profiles(), principal)
		if err != nil {
			return err
		}
		conference, err := tx.Conferences().GetConference(ctx, conferenceKey)
		if err != nil {
			return asConferenceNotFound(err, websafe)
		}

		if slices.Contains(profile.ConferenceKeysToAttend, websafe) {
			return ErrAlreadyRegistered
		}
		if conference.SeatsAvailable <= 0 {
			return ErrNoSeats
		}

		profile.ConferenceKeysToAttend = append(profile.ConferenceKeysToAttend, websafe)
		conference.SeatsAvailable--

		if _, err := tx.Profiles().PutProfile(ctx, profile); err != nil {
			return err
		}
		if _, err := tx.Conferences().PutConference(ctx, conference); err != nil {
			return err
		}
		registered = true
		return nil
	})
	if err != nil {
		return false, mapRepoError(err)
	}
	return registered, nil
}

// Unregister removes the conference from the attendance list and returns the
// seat. It reports false without writing when the principal is not registered.
func (l *Ledger) Unregister(ctx context.Context, principal Principal, conferenceKey key.Key) (unregistered bool, err error) {
	ctx, span, logger := l.start(ctx, "Unregister", principal, conferenceKey)
	defer func() { finish(ctx, span, logger, err, "unregister from conference", unregistered) }()

	if !principal.Authenticated() {
		return false, ErrUnauthenticated
	}
	websafe := conferenceKey.Encode()

	err = l.store.RunInTransaction(ctx, func(tx Tx) error {
		unregistered = false

		profile, err := loadProfile(ctx, tx.Profiles(), principal)
		if err != nil {
			return err
		}
		conference, err := tx.Conferences().GetConference(ctx, conferenceKey)
		if err != nil {
			return asConferenceNotFound(err, websafe)
		}

		index := slices.Index(profile.ConferenceKeysToAttend, websafe)
		if index < 0 {
			return nil
		}

		profile.ConferenceKeysToAttend = slices.Delete(slices.Clone(profile.ConferenceKeysToAttend), index, index+1)
		conference.SeatsAvailable++

		if _, err := tx.Profiles().PutProfile(ctx, profile); err != nil {
			return err
		}
		if _, err := tx.Conferences().PutConference(ctx, conference); err != nil {
			return err
		}
		unregistered = true
		return nil
	})
	if err != nil {
		return false, mapRepoError(err)
	}
	return unregistered, nil
}

// AddToWishlist appends the session to the principal's wishlist.
func (l *Ledger) AddToWishlist(ctx context.Context, principal Principal, sessionKey key.Key) (added bool, err error) {
	ctx, span, logger := l.start(ctx, "AddToWishlist", principal, sessionKey)
	defer func() { finish(ctx, span, logger, err, "add session to wishlist", added) }()

	if !principal.Authenticated() {
		return false, ErrUnauthenticated
	}
	if err := requireKind("websafeSessionKey", sessionKey, key.KindSession); err != nil {
		return false, err
	}
	websafe := sessionKey.Encode()

	err = l.store.RunInTransaction(ctx, func(tx Tx) error {
		added = false

		if _, err := tx.Sessions().GetSession(ctx, sessionKey); err != nil {
			return asSessionNotFound(err, websafe)
		}
		profile, err := loadProfile(ctx, tx.Profiles(), principal)
		if err != nil {
			return err
		}
		if slices.Contains(profile.SessionKeysWishList, websafe) {
			return ErrAlreadyInWishlist
		}

		profile.SessionKeysWishList = append(profile.SessionKeysWishList, websafe)
		if _, err := tx.Profiles().PutProfile(ctx, profile); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, mapRepoError(err)
	}
	return added, nil
}

// RemoveFromWishlist drops the session from the wishlist. It reports false
// without writing when the session is not wishlisted.
func (l *Ledger) RemoveFromWishlist(ctx context.Context, principal Principal, sessionKey key.Key) (removed bool, err error) {
	ctx, span, logger := l.start(ctx, "RemoveFromWishlist", principal, sessionKey)
	defer func() { finish(ctx, span, logger, err, "remove session from wishlist", removed) }()

	if !principal.Authenticated() {
		return false, ErrUnauthenticated
	}
	if err := requireKind("websafeSessionKey", sessionKey, key.KindSession); err != nil {
		return false, err
	}
	websafe := sessionKey.Encode()

	err = l.store.RunInTransaction(ctx, func(tx Tx) error {
		removed = false

		if _, err := tx.Sessions().GetSession(ctx, sessionKey); err != nil {
			return asSessionNotFound(err, websafe)
		}
		profile, err := loadProfile(ctx, tx.Profiles(), principal)
		if err != nil {
			return err
		}

		index := slices.Index(profile.SessionKeysWishList, websafe)
		if index < 0 {
			return nil
		}

		profile.SessionKeysWishList = slices.Delete(slices.Clone(profile.SessionKeysWishList), index, index+1)
		if _, err := tx.Profiles().PutProfile(ctx, profile); err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, mapRepoError(err)
	}
	return removed, nil
}

func requireKind(field string, k key.Key, want key.Kind) error {
	if k.Kind() != want {
		return &KeyKindError{Field: field, Want: want, Got: k.Kind()}
	}
	return nil
}

// loadProfile returns the stored profile or, when none exists yet, a new
// unsaved one seeded from the principal.
func loadProfile(ctx context.Context, profiles ProfileRepository, principal Principal) (Profile, error) {
	profile, err := profiles.GetProfile(ctx, principal.UserID)
	if err == nil {
		return profile, nil
	}
	if err = mapRepoError(err); !errors.Is(err, ErrNotFound) {
		return Profile{}, err
	}
	return newProfile(principal), nil
}
