package stream

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"camera-overlay/internal/platform/apperr"
	"camera-overlay/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

const (
	playlistContentType = "application/vnd.apple.mpegurl"
	segmentContentType  = "video/mp2t"

	msgInvalidBody   = "Invalid JSON body"
	msgFileNotFound  = "File not found"
	msgStreamPending = "Stream not ready"
)

// Session ids are generated UUIDs; anything else cannot name a manifest.
var streamIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Handler exposes stream launch, HLS file serving and manifest status using go-chi.
type Handler struct {
	launcher *Launcher
	log      *slog.Logger
}

// NewHandler returns a Handler that launches through l and serves files from
// l's output directory.
func NewHandler(l *Launcher, log *slog.Logger) *Handler {
	return &Handler{launcher: l, log: log}
}

// Routes mounts the stream endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/start-stream", h.StartStream)
	r.Get("/hls/*", h.ServeFile)
	r.Get("/streams/{stream_id}/status", h.Status)
}

type startRequest struct {
	RTSPURL string `json:"rtsp_url"`
}

type startResponse struct {
	Message  string `json:"message"`
	StreamID string `json:"stream_id"`
}

// StartStream handles POST /start-stream.
// Body: { "rtsp_url": "rtsp://camera.local:554/stream1" }.
func (h *Handler) StartStream(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid start-stream body", slog.String("error", err.Error()))
		respond.ErrorMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	id, err := h.launcher.Start(req.RTSPURL)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			h.log.Debug("start-stream rejected", slog.String("error", err.Error()))
		}
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, startResponse{Message: "Stream started", StreamID: id})
}

// ServeFile handles GET /hls/{filename}. Names are resolved inside the
// output directory; anything that would leave it is reported as missing.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name, ok := cleanRelativePath(chi.URLParam(r, "*"))
	if !ok {
		respond.ErrorMessage(w, http.StatusNotFound, msgFileNotFound)
		return
	}

	root, err := os.OpenRoot(h.launcher.OutputDir())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	defer root.Close()

	f, err := root.Open(filepath.FromSlash(name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.log.Debug("hls open failed", slog.String("file", name), slog.String("error", err.Error()))
		}
		respond.ErrorMessage(w, http.StatusNotFound, msgFileNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		respond.ErrorMessage(w, http.StatusNotFound, msgFileNotFound)
		return
	}

	switch path.Ext(name) {
	case manifestExt:
		w.Header().Set("Content-Type", playlistContentType)
		w.Header().Set("Cache-Control", "no-cache")
	case ".ts":
		w.Header().Set("Content-Type", segmentContentType)
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

type statusResponse struct {
	StreamID       string  `json:"stream_id"`
	Ready          bool    `json:"ready"`
	MediaSequence  int64   `json:"media_sequence"`
	Segments       int     `json:"segments"`
	TargetDuration int     `json:"target_duration"`
	Duration       float64 `json:"duration"`
	Ended          bool    `json:"ended"`
}

// Status handles GET /streams/{stream_id}/status. It reads the session's
// manifest from disk; a session whose transcoder has not written one yet is
// reported as 404.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "stream_id")
	if !streamIDPattern.MatchString(id) {
		respond.ErrorMessage(w, http.StatusNotFound, msgStreamPending)
		return
	}

	f, err := os.Open(filepath.Join(h.launcher.OutputDir(), ManifestName(id)))
	if err != nil {
		respond.ErrorMessage(w, http.StatusNotFound, msgStreamPending)
		return
	}
	defer f.Close()

	p, err := ParsePlaylist(f)
	if err != nil {
		// ffmpeg rewrites the manifest in place; a torn read looks like this.
		h.log.Debug("manifest unreadable", slog.String("stream_id", id), slog.String("error", err.Error()))
		respond.ErrorMessage(w, http.StatusNotFound, msgStreamPending)
		return
	}

	respond.JSON(w, http.StatusOK, statusResponse{
		StreamID:       id,
		Ready:          len(p.Segments) > 0,
		MediaSequence:  p.MediaSequence,
		Segments:       len(p.Segments),
		TargetDuration: p.TargetDuration,
		Duration:       p.Duration(),
		Ended:          p.Ended,
	})
}

// cleanRelativePath rejects empty, absolute and parent-relative names.
func cleanRelativePath(name string) (string, bool) {
	if name == "" || strings.ContainsRune(name, 0) || strings.Contains(name, `\`) {
		return "", false
	}
	if strings.HasPrefix(name, "/") {
		return "", false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", false
		}
	}
	cleaned := path.Clean(name)
	if cleaned == "." {
		return "", false
	}
	return cleaned, true
}
