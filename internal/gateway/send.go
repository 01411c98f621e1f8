package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/acetvpair/tvlink-go/internal/dispatch"
	apperrors "github.com/acetvpair/tvlink-go/internal/errors"
	"github.com/acetvpair/tvlink-go/internal/httputil"
)

// SendHandler exposes command dispatch to the UI.
type SendHandler struct {
	dispatcher *dispatch.Dispatcher
}

func NewSendHandler(dispatcher *dispatch.Dispatcher) *SendHandler {
	return &SendHandler{dispatcher: dispatcher}
}

func (h *SendHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Send)
	r.Post("/url", h.SendURL)
	return r
}

type sendRequest struct {
	Item string `json:"item"`
	Link string `json:"link"`
}

// Send extracts a content id from the link and dispatches it to the
// paired device. The call blocks through the wake-and-retry flow, so a
// single request covers chooser confirm, cast wait and the retry.
func (h *SendHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if req.Item == "" {
		httputil.WriteError(w, apperrors.MissingRequired("item"))
		return
	}
	if req.Link == "" {
		httputil.WriteError(w, apperrors.MissingRequired("link"))
		return
	}

	if err := h.dispatcher.Send(r.Context(), req.Item, req.Link); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "delivered"})
}

type sendURLRequest struct {
	Item string `json:"item"`
	URL  string `json:"url"`
}

// SendURL dispatches a plain media URL instead of a content id.
func (h *SendHandler) SendURL(w http.ResponseWriter, r *http.Request) {
	var req sendURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if req.Item == "" {
		httputil.WriteError(w, apperrors.MissingRequired("item"))
		return
	}
	if req.URL == "" {
		httputil.WriteError(w, apperrors.MissingRequired("url"))
		return
	}

	if err := h.dispatcher.SendURL(r.Context(), req.Item, req.URL); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "delivered"})
}
