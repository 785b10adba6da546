package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/conference-central/internal/application"
)

type sessionService interface {
	CreateSession(ctx context.Context, params application.CreateSessionParams) (application.Session, error)
	GetConferenceSessions(ctx context.Context, websafeConferenceKey string) ([]application.Session, error)
	GetConferenceSessionsByType(ctx context.Context, websafeConferenceKey, typeOfSession string) ([]application.Session, error)
	GetConferenceSessionsExcludingType(ctx context.Context, websafeConferenceKey, excludedType string) ([]application.Session, error)
	GetSessionsBySpeaker(ctx context.Context, speaker string) ([]application.Session, error)
	GetSessionsByDate(ctx context.Context, date string) ([]application.Session, error)
	GetSessionsNonWorkshopBeforeSeven(ctx context.Context) ([]application.Session, error)
	AddSessionToWishlist(ctx context.Context, principal application.Principal, websafeSessionKey string) (bool, error)
	RemoveSessionFromWishlist(ctx context.Context, principal application.Principal, websafeSessionKey string) (bool, error)
	GetSessionsWishlist(ctx context.Context, principal application.Principal) ([]application.Session, error)
	GetFeaturedSpeaker(ctx context.Context) (string, error)
}

// SessionHandler serves session listings, the wishlist and the featured speaker.
type SessionHandler struct {
	service   sessionService
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

func (h *SessionHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	var req sessionRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(ctx, "Create", "error_kind", "bad_request").WarnContext(ctx, "failed to decode session request", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(ctx, "Create", "principal_id", principal.UserID, "conference_key", req.WebsafeConferenceKey)
	session, err := h.service.CreateSession(ctx, application.CreateSessionParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(ctx, "session creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.With("session_key", session.WebsafeKey()).InfoContext(ctx, "session created")
	h.responder.writeJSON(ctx, w, http.StatusOK, toSessionForm(session))
}

func (h *SessionHandler) ByConference(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	sessions, err := h.service.GetConferenceSessions(r.Context(), r.PathValue("websafeConferenceKey"))
	h.writeSessions(r.Context(), w, "ByConference", sessions, err)
}

func (h *SessionHandler) ByType(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	sessions, err := h.service.GetConferenceSessionsByType(r.Context(), r.PathValue("websafeConferenceKey"), r.PathValue("typeOfSession"))
	h.writeSessions(r.Context(), w, "ByType", sessions, err)
}

func (h *SessionHandler) ExcludingType(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	sessions, err := h.service.GetConferenceSessionsExcludingType(r.Context(), r.PathValue("websafeConferenceKey"), r.PathValue("excludedTypeOfSession"))
	h.writeSessions(r.Context(), w, "ExcludingType", sessions, err)
}

func (h *SessionHandler) BySpeaker(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	sessions, err := h.service.GetSessionsBySpeaker(r.Context(), r.PathValue("speaker"))
	h.writeSessions(r.Context(), w, "BySpeaker", sessions, err)
}

func (h *SessionHandler) ByDate(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	sessions, err := h.service.GetSessionsByDate(r.Context(), r.PathValue("date"))
	h.writeSessions(r.Context(), w, "ByDate", sessions, err)
}

func (h *SessionHandler) NonWorkshopBeforeSeven(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	sessions, err := h.service.GetSessionsNonWorkshopBeforeSeven(r.Context())
	h.writeSessions(r.Context(), w, "NonWorkshopBeforeSeven", sessions, err)
}

func (h *SessionHandler) Wishlist(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	sessions, err := h.service.GetSessionsWishlist(r.Context(), principal)
	h.writeSessions(r.Context(), w, "Wishlist", sessions, err)
}

func (h *SessionHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	websafeKey := r.PathValue("websafeSessionKey")

	logger := h.log(ctx, "AddToWishlist", "principal_id", principal.UserID, "session_key", websafeKey)
	added, err := h.service.AddSessionToWishlist(ctx, principal, websafeKey)
	if err != nil {
		logger.WarnContext(ctx, "wishlist add failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	logger.InfoContext(ctx, "session added to wishlist")
	h.responder.writeJSON(ctx, w, http.StatusOK, dataResponse[bool]{Data: added})
}

func (h *SessionHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	websafeKey := r.PathValue("websafeSessionKey")

	logger := h.log(ctx, "RemoveFromWishlist", "principal_id", principal.UserID, "session_key", websafeKey)
	removed, err := h.service.RemoveSessionFromWishlist(ctx, principal, websafeKey)
	if err != nil {
		logger.WarnContext(ctx, "wishlist removal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	logger.InfoContext(ctx, "session removed from wishlist", "changed", removed)
	h.responder.writeJSON(ctx, w, http.StatusOK, dataResponse[bool]{Data: removed})
}

func (h *SessionHandler) FeaturedSpeaker(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()

	speaker, err := h.service.GetFeaturedSpeaker(ctx)
	if err != nil {
		h.log(ctx, "FeaturedSpeaker").WarnContext(ctx, "featured speaker lookup failed", "error", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, dataResponse[string]{Data: speaker})
}

func (h *SessionHandler) writeSessions(ctx context.Context, w http.ResponseWriter, operation string, sessions []application.Session, err error) {
	logger := h.log(ctx, operation)
	if err != nil {
		logger.WarnContext(ctx, "session listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	logger.DebugContext(ctx, "sessions listed", "result_count", len(sessions))
	h.responder.writeJSON(ctx, w, http.StatusOK, itemsResponse[sessionForm]{Items: toSessionForms(sessions)})
}
