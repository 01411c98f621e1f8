package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/acetvpair/tvlink-go/internal/httputil"
	"github.com/acetvpair/tvlink-go/internal/model"
	"github.com/acetvpair/tvlink-go/internal/search"
)

// SearchHandler exposes stream lookups to the UI.
type SearchHandler struct {
	searches *search.Controller
}

func NewSearchHandler(searches *search.Controller) *SearchHandler {
	return &SearchHandler{searches: searches}
}

func (h *SearchHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Search)
	return r
}

// Search runs a lookup for the given term. A request superseded by a
// newer one answers 409 CANCELED; the UI simply ignores it.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")

	result, err := h.searches.Search(r.Context(), term)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if result == nil {
		httputil.WriteJSON(w, http.StatusOK, searchResponse{Sources: []model.SearchSource{}, Empty: true})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, searchResponse{Sources: result.Sources, Empty: result.Empty()})
}

// searchResponse flags a lookup that produced no playable links so the
// UI can show its empty-results hint instead of a blank list.
type searchResponse struct {
	Sources []model.SearchSource `json:"sources"`
	Empty   bool                 `json:"empty"`
}
