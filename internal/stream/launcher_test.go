package stream

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"camera-overlay/internal/platform/apperr"
	"camera-overlay/internal/platform/metrics"
)

// fakeProcess blocks in Wait until exit is closed.
type fakeProcess struct {
	pid     int
	exit    chan struct{}
	err     error
	waited  chan struct{}
	waitOne sync.Once
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, exit: make(chan struct{}), waited: make(chan struct{})}
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Wait() error {
	<-p.exit
	p.waitOne.Do(func() { close(p.waited) })
	return p.err
}

type spawnCall struct {
	name string
	args []string
}

type fakeSpawner struct {
	mu    sync.Mutex
	calls []spawnCall
	procs []*fakeProcess
	err   error
}

func (s *fakeSpawner) Spawn(name string, args []string) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, spawnCall{name: name, args: args})
	if s.err != nil {
		return nil, s.err
	}
	p := newFakeProcess(1000 + len(s.procs))
	s.procs = append(s.procs, p)
	return p, nil
}

func (s *fakeSpawner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func testLog() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLauncher_Start_returnsBeforeProcessExits(t *testing.T) {
	sp := &fakeSpawner{}
	l := NewLauncher(Options{FFmpegPath: "/usr/bin/ffmpeg", OutputDir: "hls_stream"}, testLog(), nil,
		WithSpawner(sp), WithIDGenerator(func() string { return "sess-1" }))

	id, err := l.Start("  rtsp://cam.local:554/stream1 ")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if id != "sess-1" {
		t.Errorf("id = %q, want sess-1", id)
	}
	if sp.callCount() != 1 {
		t.Fatalf("expected one spawn, got %d", sp.callCount())
	}

	call := sp.calls[0]
	if call.name != "/usr/bin/ffmpeg" {
		t.Errorf("binary = %q", call.name)
	}
	if got := call.args[3]; got != "rtsp://cam.local:554/stream1" {
		t.Errorf("source arg = %q, want trimmed URL", got)
	}
	if got := call.args[len(call.args)-1]; got != filepath.Join("hls_stream", "sess-1.m3u8") {
		t.Errorf("output = %q", got)
	}

	select {
	case <-sp.procs[0].waited:
		t.Fatal("process should still be running")
	default:
	}
	close(sp.procs[0].exit)
	select {
	case <-sp.procs[0].waited:
	case <-time.After(2 * time.Second):
		t.Fatal("launcher never reaped the process")
	}
}

func TestLauncher_Start_freshIDs(t *testing.T) {
	sp := &fakeSpawner{}
	l := NewLauncher(Options{OutputDir: t.TempDir()}, testLog(), nil, WithSpawner(sp))

	a, err := l.Start("rtsp://cam/a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := l.Start("rtsp://cam/a")
	if err != nil {
		t.Fatal(err)
	}
	if a == b || a == "" {
		t.Errorf("expected distinct ids, got %q and %q", a, b)
	}
	if sp.calls[0].name != DefaultFFmpegPath {
		t.Errorf("expected default ffmpeg path, got %q", sp.calls[0].name)
	}
	for _, p := range sp.procs {
		close(p.exit)
	}
}

func TestLauncher_Start_validation(t *testing.T) {
	cases := []struct {
		name string
		url  string
		msg  string
	}{
		{"empty", "", msgMissingURL},
		{"blank", "   ", msgMissingURL},
		{"option_injection", "-y", msgInvalidURL},
		{"no_scheme", "camera.local/stream", msgInvalidURL},
		{"no_host", "rtsp:///stream", msgInvalidURL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sp := &fakeSpawner{}
			l := NewLauncher(Options{OutputDir: "out"}, testLog(), nil, WithSpawner(sp))

			_, err := l.Start(tc.url)
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if err.Error() != tc.msg {
				t.Errorf("message = %q, want %q", err.Error(), tc.msg)
			}
			if sp.callCount() != 0 {
				t.Error("no process may be spawned for an invalid URL")
			}
		})
	}
}

func TestLauncher_Start_spawnFailure(t *testing.T) {
	cause := errors.New(`exec: "ffmpeg": executable file not found in $PATH`)
	m := metrics.New()
	l := NewLauncher(Options{OutputDir: "out"}, testLog(), m, WithSpawner(&fakeSpawner{err: cause}))

	_, err := l.Start("rtsp://cam/a")
	if apperr.KindOf(err) != apperr.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if err.Error() != cause.Error() {
		t.Errorf("underlying message should be exposed, got %q", err.Error())
	}
}

func TestExecSpawner_missingBinary(t *testing.T) {
	_, err := ExecSpawner{}.Spawn(filepath.Join(t.TempDir(), "no-such-ffmpeg"), nil)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}
