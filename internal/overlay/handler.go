package overlay

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"camera-overlay/internal/platform/apperr"
	"camera-overlay/internal/platform/metrics"
	"camera-overlay/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

const msgInvalidBody = "Invalid JSON body"

// Handler exposes overlay CRUD endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Routes mounts the overlay endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/overlays", func(r chi.Router) {
		r.Post("/", h.CreateOverlay)
		r.Get("/{stream_id}", h.ListOverlays)
		r.Put("/{overlay_id}", h.UpdateOverlay)
		r.Delete("/{overlay_id}", h.DeleteOverlay)
	})
}

type createResponse struct {
	Message   string `json:"message"`
	OverlayID string `json:"overlay_id"`
}

// CreateOverlay handles POST /overlays.
// Body: { "stream_id": "...", "text": "...", "position": {"top": 1, "left": 2}, "size": {"width": 3, "height": 4} }.
func (h *Handler) CreateOverlay(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "overlay creation failed", err)
		return
	}

	h.log.Info("overlay created",
		slog.String("overlay_id", id),
		slog.String("stream_id", req.StreamID))
	h.count("create")
	respond.JSON(w, http.StatusCreated, createResponse{Message: "Overlay created", OverlayID: id})
}

// ListOverlays handles GET /overlays/{stream_id}.
func (h *Handler) ListOverlays(w http.ResponseWriter, r *http.Request) {
	streamID := chi.URLParam(r, "stream_id")

	overlays, err := h.svc.List(r.Context(), streamID)
	if err != nil {
		h.fail(w, "list overlays failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, overlays)
}

// UpdateOverlay handles PUT /overlays/{overlay_id}.
// Body: any of "text", "position", "size", "visible".
func (h *Handler) UpdateOverlay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "overlay_id")

	var req UpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.Update(r.Context(), id, req); err != nil {
		h.fail(w, "overlay update failed", err, slog.String("overlay_id", id))
		return
	}

	h.log.Info("overlay updated", slog.String("overlay_id", id))
	h.count("update")
	respond.Message(w, http.StatusOK, "Overlay updated")
}

// DeleteOverlay handles DELETE /overlays/{overlay_id}.
func (h *Handler) DeleteOverlay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "overlay_id")

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, "overlay delete failed", err, slog.String("overlay_id", id))
		return
	}

	h.log.Info("overlay deleted", slog.String("overlay_id", id))
	h.count("delete")
	respond.Message(w, http.StatusOK, "Overlay deleted")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.log.Debug("invalid overlay body", slog.String("error", err.Error()))
		respond.ErrorMessage(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

// fail logs client errors at debug level and writes the error response.
// Internal errors are logged by respond.Error.
func (h *Handler) fail(w http.ResponseWriter, msg string, err error, attrs ...any) {
	if kind := apperr.KindOf(err); kind != apperr.KindInternal {
		h.log.Debug(msg, append(attrs,
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()))...)
	}
	respond.Error(w, h.log, err)
}

func (h *Handler) count(op string) {
	if h.metrics != nil {
		h.metrics.IncOverlayOperation(op)
	}
}
