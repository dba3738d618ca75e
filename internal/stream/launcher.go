package stream

import (
	"log/slog"
	"net/url"
	"strings"

	"camera-overlay/internal/platform/apperr"
	"camera-overlay/internal/platform/metrics"

	"github.com/google/uuid"
)

const (
	msgMissingURL = "No RTSP URL provided"
	msgInvalidURL = "Invalid RTSP URL"

	// DefaultFFmpegPath is used when Options.FFmpegPath is empty.
	DefaultFFmpegPath = "ffmpeg"
)

// Options configures a Launcher.
type Options struct {
	FFmpegPath string
	OutputDir  string
}

// Option customises a Launcher.
type Option func(*Launcher)

// WithSpawner replaces the process spawner (primarily for tests).
func WithSpawner(s Spawner) Option {
	return func(l *Launcher) {
		if s != nil {
			l.spawner = s
		}
	}
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(l *Launcher) {
		if fn != nil {
			l.newID = fn
		}
	}
}

// Launcher starts one transcoder per session and forgets about it. It keeps
// no registry of sessions; the only trace of a session is its files in
// OutputDir.
type Launcher struct {
	ffmpeg    string
	outputDir string
	spawner   Spawner
	newID     func() string
	log       *slog.Logger
	metrics   *metrics.Metrics
}

// NewLauncher returns a Launcher. Metrics may be nil.
func NewLauncher(opts Options, log *slog.Logger, m *metrics.Metrics, options ...Option) *Launcher {
	ffmpeg := strings.TrimSpace(opts.FFmpegPath)
	if ffmpeg == "" {
		ffmpeg = DefaultFFmpegPath
	}
	l := &Launcher{
		ffmpeg:    ffmpeg,
		outputDir: opts.OutputDir,
		spawner:   ExecSpawner{},
		newID:     uuid.NewString,
		log:       log,
		metrics:   m,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// OutputDir is the directory transcoders write into.
func (l *Launcher) OutputDir() string {
	return l.outputDir
}

// Start validates sourceURL, spawns a transcoder for it and returns the new
// session id without waiting for any output. The source is never probed.
func (l *Launcher) Start(sourceURL string) (string, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	src, err := validateSourceURL(sourceURL)
	if err != nil {
		return "", err
	}

	id := l.newID()
	args := transcodeArgs(sourceURL, l.outputDir, id)

	proc, err := l.spawner.Spawn(l.ffmpeg, args)
	if err != nil {
		l.log.Error("transcoder launch failed",
			slog.String("stream_id", id),
			slog.String("source", src.Redacted()),
			slog.String("error", err.Error()))
		if l.metrics != nil {
			l.metrics.LaunchFailed()
		}
		return "", apperr.Internal(err)
	}

	l.log.Info("transcoder started",
		slog.String("stream_id", id),
		slog.Int("pid", proc.Pid()),
		slog.String("source", src.Redacted()))
	if l.metrics != nil {
		l.metrics.StreamStarted()
	}

	go l.reap(id, proc)
	return id, nil
}

// reap waits for the process so it does not linger as a zombie. The exit is
// logged and counted; nothing is restarted or reported to clients.
func (l *Launcher) reap(id string, proc Process) {
	err := proc.Wait()
	if err != nil {
		l.log.Warn("transcoder exited",
			slog.String("stream_id", id),
			slog.Int("pid", proc.Pid()),
			slog.String("error", err.Error()))
	} else {
		l.log.Info("transcoder exited",
			slog.String("stream_id", id),
			slog.Int("pid", proc.Pid()))
	}
	if l.metrics != nil {
		l.metrics.TranscoderExited(err == nil)
	}
}

// validateSourceURL requires a non-empty absolute URL with a host. A leading
// '-' is rejected so the value cannot be read as an ffmpeg option.
func validateSourceURL(s string) (*url.URL, error) {
	if s == "" {
		return nil, apperr.Validation(msgMissingURL)
	}
	if strings.HasPrefix(s, "-") {
		return nil, apperr.Validation(msgInvalidURL)
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apperr.Validation(msgInvalidURL)
	}
	return u, nil
}
