package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/conference-central/internal/application"
)

type conferenceService interface {
	CreateConference(ctx context.Context, params application.CreateConferenceParams) (application.Conference, error)
	UpdateConference(ctx context.Context, params application.UpdateConferenceParams) (application.Conference, error)
	GetConference(ctx context.Context, websafeConferenceKey string) (application.Conference, error)
	GetConferencesCreated(ctx context.Context, principal application.Principal) ([]application.Conference, error)
	QueryConferences(ctx context.Context, params application.QueryConferencesParams) ([]application.Conference, error)
	GetConferencesToAttend(ctx context.Context, principal application.Principal) ([]application.Conference, error)
	RegisterForConference(ctx context.Context, principal application.Principal, websafeConferenceKey string) (bool, error)
	UnregisterFromConference(ctx context.Context, principal application.Principal, websafeConferenceKey string) (bool, error)
	GetAnnouncement(ctx context.Context) (string, error)
}

// ConferenceHandler serves the conference endpoints.
type ConferenceHandler struct {
	service   conferenceService
	responder responder
	logger    *slog.Logger
}

func NewConferenceHandler(service conferenceService, logger *slog.Logger) *ConferenceHandler {
	base := defaultLogger(logger)
	return &ConferenceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ConferenceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ConferenceHandler", operation, attrs...)
}

func (h *ConferenceHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *ConferenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	var req conferenceRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(ctx, "Create", "error_kind", "bad_request").WarnContext(ctx, "failed to decode conference request", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(ctx, "Create", "principal_id", principal.UserID)
	conference, err := h.service.CreateConference(ctx, application.CreateConferenceParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(ctx, "conference creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.With("conference_key", conference.WebsafeKey()).InfoContext(ctx, "conference created")
	h.responder.writeJSON(ctx, w, http.StatusOK, toConferenceForm(conference))
}

func (h *ConferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	websafeKey := r.PathValue("websafeConferenceKey")

	var req conferenceRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(ctx, "Update", "error_kind", "bad_request").WarnContext(ctx, "failed to decode conference update", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(ctx, "Update", "principal_id", principal.UserID, "conference_key", websafeKey)
	conference, err := h.service.UpdateConference(ctx, application.UpdateConferenceParams{
		Principal:            principal,
		WebsafeConferenceKey: websafeKey,
		Input:                req.toInput(),
	})
	if err != nil {
		logger.WarnContext(ctx, "conference update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "conference updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, toConferenceForm(conference))
}

func (h *ConferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	websafeKey := r.PathValue("websafeConferenceKey")

	conference, err := h.service.GetConference(ctx, websafeKey)
	if err != nil {
		h.log(ctx, "Get", "conference_key", websafeKey).WarnContext(ctx, "conference lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toConferenceForm(conference))
}

func (h *ConferenceHandler) Created(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	conferences, err := h.service.GetConferencesCreated(ctx, principal)
	h.writeConferences(ctx, w, "Created", conferences, err)
}

func (h *ConferenceHandler) Query(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()

	var req conferenceQueryForms
	if err := decodeBody(r, &req); err != nil {
		h.log(ctx, "Query", "error_kind", "bad_request").WarnContext(ctx, "failed to decode conference query", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	conferences, err := h.service.QueryConferences(ctx, req.toParams())
	h.writeConferences(ctx, w, "Query", conferences, err)
}

func (h *ConferenceHandler) Attending(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	conferences, err := h.service.GetConferencesToAttend(ctx, principal)
	h.writeConferences(ctx, w, "Attending", conferences, err)
}

func (h *ConferenceHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	websafeKey := r.PathValue("websafeConferenceKey")

	logger := h.log(ctx, "Register", "principal_id", principal.UserID, "conference_key", websafeKey)
	registered, err := h.service.RegisterForConference(ctx, principal, websafeKey)
	if err != nil {
		logger.WarnContext(ctx, "registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	logger.InfoContext(ctx, "registered for conference")
	h.responder.writeJSON(ctx, w, http.StatusOK, dataResponse[bool]{Data: registered})
}

func (h *ConferenceHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	websafeKey := r.PathValue("websafeConferenceKey")

	logger := h.log(ctx, "Unregister", "principal_id", principal.UserID, "conference_key", websafeKey)
	unregistered, err := h.service.UnregisterFromConference(ctx, principal, websafeKey)
	if err != nil {
		logger.WarnContext(ctx, "unregistration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	logger.InfoContext(ctx, "unregistered from conference", "changed", unregistered)
	h.responder.writeJSON(ctx, w, http.StatusOK, dataResponse[bool]{Data: unregistered})
}

func (h *ConferenceHandler) Announcement(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()

	announcement, err := h.service.GetAnnouncement(ctx)
	if err != nil {
		h.log(ctx, "Announcement").WarnContext(ctx, "announcement lookup failed", "error", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, dataResponse[string]{Data: announcement})
}

func (h *ConferenceHandler) writeConferences(ctx context.Context, w http.ResponseWriter, operation string, conferences []application.Conference, err error) {
	logger := h.log(ctx, operation)
	if err != nil {
		logger.WarnContext(ctx, "conference listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	logger.DebugContext(ctx, "conferences listed", "result_count", len(conferences))
	h.responder.writeJSON(ctx, w, http.StatusOK, itemsResponse[conferenceForm]{Items: toConferenceForms(conferences)})
}
