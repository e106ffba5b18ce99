package players

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"playerstore/pkg/logger"
	"playerstore/pkg/player"
	"playerstore/pkg/response"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured
const DefaultMaxBodyBytes = 1 << 20

// Handler exposes the Service over HTTP. Every response is a JSON envelope
// with status 200; callers read the outcome from the envelope status.
type Handler struct {
	service      *Service
	logger       *logger.Logger
	maxBodyBytes int64
}

// NewHandler creates a new Handler instance
func NewHandler(s *Service, l *logger.Logger, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{service: s, logger: l, maxBodyBytes: maxBodyBytes}
}

// RegisterRoutes mounts the player endpoints on r
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/players", func(r chi.Router) {
		r.Get("/", h.ReadAll)
		r.Post("/", h.Write)
		r.Post("/search", h.Search)
		r.Get("/{id}", h.GetByID)
	})
}

func (h *Handler) ReadAll(w http.ResponseWriter, r *http.Request) {
	h.writeEnvelope(w, h.service.ReadAll(r.Context()))
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeEnvelope(w, response.Error(player.ErrWrongShape.Error()))
		return
	}
	h.writeEnvelope(w, h.service.SearchByID(r.Context(), id))
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	h.writeEnvelope(w, h.service.Search(r.Context(), body))
}

func (h *Handler) Write(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	h.writeEnvelope(w, h.service.Write(r.Context(), body))
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeEnvelope(w, response.Error("Request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes"))
			return nil, false
		}
		h.logger.For(r.Context()).Warn("failed to read request body", zap.Error(err))
		h.writeEnvelope(w, response.Error(player.ErrEmptyInput.Error()))
		return nil, false
	}
	return body, true
}

func (h *Handler) writeEnvelope(w http.ResponseWriter, env response.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		h.logger.Error("failed to encode response", err)
	}
}
