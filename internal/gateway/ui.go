package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/acetvpair/tvlink-go/internal/cast"
	apperrors "github.com/acetvpair/tvlink-go/internal/errors"
	"github.com/acetvpair/tvlink-go/internal/httputil"
	"github.com/acetvpair/tvlink-go/internal/model"
	"github.com/acetvpair/tvlink-go/internal/notify"
	"github.com/acetvpair/tvlink-go/internal/pairing"
	"github.com/acetvpair/tvlink-go/internal/store"
)

// UIHandler receives the UI-to-orchestrator half of the event boundary:
// confirm answers, cast state reports and preference changes.
type UIHandler struct {
	broker    *notify.Broker
	castCtrl  *cast.UIController
	monitor   *pairing.Monitor
	stateRepo store.StateRepository
}

func NewUIHandler(broker *notify.Broker, castCtrl *cast.UIController, monitor *pairing.Monitor, stateRepo store.StateRepository) *UIHandler {
	return &UIHandler{
		broker:    broker,
		castCtrl:  castCtrl,
		monitor:   monitor,
		stateRepo: stateRepo,
	}
}

func (h *UIHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/confirm/{id}", h.ResolveConfirm)
	r.Post("/cast/state", h.CastState)
	r.Post("/cast/availability", h.CastAvailability)
	r.Post("/visibility", h.Visibility)
	r.Get("/prefs", h.GetPrefs)
	r.Put("/prefs", h.PutPrefs)
	return r
}

type confirmRequest struct {
	Accept bool `json:"accept"`
}

// ResolveConfirm answers a pending confirm prompt by id.
func (h *UIHandler) ResolveConfirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if !h.broker.Resolve(id, req.Accept) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "No such prompt"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type castStateRequest struct {
	State string `json:"state"`
}

// CastState records a session transition reported by the UI casting
// layer and fans it out to anything waiting on it.
func (h *UIHandler) CastState(w http.ResponseWriter, r *http.Request) {
	var req castStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	state := model.CastSessionState(req.State)
	if !state.Known() {
		httputil.WriteError(w, apperrors.ValidationError("Unknown cast session state"))
		return
	}

	h.castCtrl.ReportState(state)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type castAvailabilityRequest struct {
	Available  bool `json:"available"`
	HasSession bool `json:"hasSession"`
}

// CastAvailability records whether the UI's casting framework loaded.
func (h *UIHandler) CastAvailability(w http.ResponseWriter, r *http.Request) {
	var req castAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	h.castCtrl.ReportAvailability(req.Available, req.HasSession)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Visibility triggers a pairing revalidation when the UI regains focus.
// The check runs in the background; superseded checks resolve quietly.
func (h *UIHandler) Visibility(w http.ResponseWriter, r *http.Request) {
	go func() {
		if _, err := h.monitor.CheckPaired(context.Background()); err != nil {
			log.Warn().Err(err).Msg("visibility pairing check failed")
		}
	}()
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "checking"})
}

type prefsResponse struct {
	AutoWakeCast bool   `json:"autoWakeCast"`
	DisplayPref  string `json:"displayPref"`
}

func (h *UIHandler) GetPrefs(w http.ResponseWriter, r *http.Request) {
	autoWake, err := h.stateRepo.AutoWake(r.Context())
	if err != nil {
		httputil.WriteError(w, apperrors.Store(err))
		return
	}
	display, err := h.stateRepo.DisplayPref(r.Context())
	if err != nil {
		httputil.WriteError(w, apperrors.Store(err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, prefsResponse{
		AutoWakeCast: autoWake,
		DisplayPref:  display,
	})
}

type prefsRequest struct {
	AutoWakeCast *bool   `json:"autoWakeCast"`
	DisplayPref  *string `json:"displayPref"`
}

// PutPrefs applies a partial preference update; absent fields are left
// untouched.
func (h *UIHandler) PutPrefs(w http.ResponseWriter, r *http.Request) {
	var req prefsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if req.AutoWakeCast != nil {
		if err := h.stateRepo.PutAutoWake(r.Context(), *req.AutoWakeCast); err != nil {
			httputil.WriteError(w, apperrors.Store(err))
			return
		}
	}
	if req.DisplayPref != nil {
		if err := h.stateRepo.PutDisplayPref(r.Context(), *req.DisplayPref); err != nil {
			httputil.WriteError(w, apperrors.Store(err))
			return
		}
	}

	h.GetPrefs(w, r)
}
