package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/conference-central/internal/application"
)

type profileService interface {
	GetProfile(ctx context.Context, principal application.Principal) (application.Profile, error)
	SaveProfile(ctx context.Context, principal application.Principal, input application.ProfileInput) (application.Profile, error)
}

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	service   profileService
	responder responder
	logger    *slog.Logger
}

func NewProfileHandler(service profileService, logger *slog.Logger) *ProfileHandler {
	base := defaultLogger(logger)
	return &ProfileHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	profile, err := h.service.GetProfile(ctx, principal)
	if err != nil {
		handlerLogger(ctx, h.logger, "ProfileHandler", "Get", "principal_id", principal.UserID).
			WarnContext(ctx, "profile lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toProfileForm(profile))
}

func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	logger := handlerLogger(ctx, h.logger, "ProfileHandler", "Save", "principal_id", principal.UserID)

	var req profileMiniForm
	if err := decodeBody(r, &req); err != nil {
		logger.WarnContext(ctx, "failed to decode profile request", "error", err, "error_kind", "bad_request")
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	profile, err := h.service.SaveProfile(ctx, principal, req.toInput())
	if err != nil {
		logger.WarnContext(ctx, "profile save failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "profile saved")
	h.responder.writeJSON(ctx, w, http.StatusOK, toProfileForm(profile))
}
