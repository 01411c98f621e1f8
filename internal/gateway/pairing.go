package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/acetvpair/tvlink-go/internal/errors"
	"github.com/acetvpair/tvlink-go/internal/httputil"
	"github.com/acetvpair/tvlink-go/internal/pairing"
	"github.com/acetvpair/tvlink-go/internal/store"
)

// PairingHandler exposes the pairing code entry flow and link lifecycle.
type PairingHandler struct {
	controller *pairing.Controller
	monitor    *pairing.Monitor
	stateRepo  store.StateRepository
}

func NewPairingHandler(controller *pairing.Controller, monitor *pairing.Monitor, stateRepo store.StateRepository) *PairingHandler {
	return &PairingHandler{
		controller: controller,
		monitor:    monitor,
		stateRepo:  stateRepo,
	}
}

func (h *PairingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/open", h.Open)
	r.Post("/digit", h.SetDigit)
	r.Post("/submit", h.Submit)
	r.Post("/check", h.Check)
	r.Get("/status", h.Status)
	r.Post("/unlink", h.Unlink)
	return r
}

// Open resets the code buffer and asks the UI to show the entry dialog.
func (h *PairingHandler) Open(w http.ResponseWriter, r *http.Request) {
	h.controller.Open()
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type setDigitRequest struct {
	Index int    `json:"index"`
	Value string `json:"value"`
}

// SetDigit writes one slot of the code buffer. Pasting a run of digits
// into a slot fills forward, and a completed buffer submits on its own.
func (h *PairingHandler) SetDigit(w http.ResponseWriter, r *http.Request) {
	var req setDigitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if err := h.controller.SetDigit(r.Context(), req.Index, req.Value); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"digits":     h.controller.Digits(),
		"submitting": h.controller.Submitting(),
	})
}

type submitRequest struct {
	Code string `json:"code"`
}

// Submit exchanges a complete six digit code for a device link.
func (h *PairingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if err := h.controller.Submit(r.Context(), req.Code); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "paired"})
}

// Check revalidates the persisted link against the relay. The UI calls
// this on visibility regain.
func (h *PairingHandler) Check(w http.ResponseWriter, r *http.Request) {
	paired, err := h.monitor.CheckPaired(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"paired": paired})
}

// Status reports the persisted link without any network traffic.
func (h *PairingHandler) Status(w http.ResponseWriter, r *http.Request) {
	device, err := h.stateRepo.PairedDevice(r.Context())
	if err != nil {
		httputil.WriteError(w, apperrors.Store(err))
		return
	}

	if device == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"paired": false})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"paired": true,
		"device": device,
	})
}

// Unlink tears the device link down on the relay and locally.
func (h *PairingHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Unlink(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "unlinked"})
}
