package overlay

import (
	"context"
	"errors"
	"strings"
	"testing"

	"camera-overlay/internal/platform/apperr"
)

func f64(v float64) *float64 { return &v }

func validCreate() CreateRequest {
	return CreateRequest{
		StreamID: "cam-1",
		Text:     "Lobby",
		Position: &PositionInput{Top: f64(50), Left: f64(60)},
		Size:     &SizeInput{Width: f64(200), Height: f64(100)},
	}
}

// failingStore returns err from every call.
type failingStore struct{ err error }

func (s failingStore) Insert(context.Context, Overlay) (string, error) { return "", s.err }
func (s failingStore) ListByStream(context.Context, string) ([]Overlay, error) { return nil, s.err }
func (s failingStore) Update(context.Context, string, Patch) error { return s.err }
func (s failingStore) Delete(context.Context, string) error { return s.err }
func (s failingStore) Close() error { return nil }

func TestService_Create(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	ctx := context.Background()

	id, err := svc.Create(ctx, validCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.List(ctx, "cam-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != id {
		t.Fatalf("expected created overlay in list, got %+v", got)
	}
	if !got[0].Visible {
		t.Error("new overlays must be visible")
	}
	if got[0].Position != (Position{Top: 50, Left: 60}) || got[0].Size != (Size{Width: 200, Height: 100}) {
		t.Errorf("unexpected geometry %+v", got[0])
	}
}

func TestService_Create_zeroCoordinatesAreValid(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	req := validCreate()
	req.Position = &PositionInput{Top: f64(0), Left: f64(0)}

	if _, err := svc.Create(context.Background(), req); err != nil {
		t.Errorf("zero position should be accepted, got %v", err)
	}
}

func TestService_Create_reportsAllProblems(t *testing.T) {
	svc := NewService(NewInMemoryStore())

	_, err := svc.Create(context.Background(), CreateRequest{})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := "Missing 'stream_id'. Missing 'text'. Missing 'position' with 'top' and 'left'. Missing 'size' with 'width' and 'height'."
	if err.Error() != want {
		t.Errorf("message = %q\nwant      %q", err.Error(), want)
	}
}

func TestService_Create_incompleteObjects(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	req := validCreate()
	req.Position = &PositionInput{Top: f64(1)}
	req.Size = &SizeInput{}

	_, err := svc.Create(context.Background(), req)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, msgMissingPosition) || !strings.Contains(msg, msgMissingSize) {
		t.Errorf("expected position and size problems, got %q", msg)
	}
	if strings.Contains(msg, msgMissingText) {
		t.Errorf("text was present, got %q", msg)
	}

	got, _ := svc.List(context.Background(), "cam-1")
	if len(got) != 0 {
		t.Errorf("nothing should be stored, got %d", len(got))
	}
}

func TestService_Update_incompletePositionLeavesRecord(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	ctx := context.Background()
	id, _ := svc.Create(ctx, validCreate())

	text := "changed"
	err := svc.Update(ctx, id, UpdateRequest{
		Text:     &text,
		Position: &PositionInput{Top: f64(1)},
	})
	if apperr.KindOf(err) != apperr.KindValidation || err.Error() != msgIncompletePosition {
		t.Fatalf("expected incomplete position error, got %v", err)
	}

	got, _ := svc.List(ctx, "cam-1")
	if got[0].Text != "Lobby" || got[0].Position != (Position{Top: 50, Left: 60}) {
		t.Errorf("record must be unchanged, got %+v", got[0])
	}
}

func TestService_Update_incompleteSize(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	ctx := context.Background()
	id, _ := svc.Create(ctx, validCreate())

	err := svc.Update(ctx, id, UpdateRequest{Size: &SizeInput{Height: f64(3)}})
	if err == nil || err.Error() != msgIncompleteSize {
		t.Errorf("expected incomplete size error, got %v", err)
	}
}

func TestService_Update_noFields(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	err := svc.Update(context.Background(), "whatever", UpdateRequest{})
	if apperr.KindOf(err) != apperr.KindValidation || err.Error() != msgNoFields {
		t.Errorf("expected no fields error, got %v", err)
	}
}

func TestService_Update_emptyText(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	ctx := context.Background()
	id, _ := svc.Create(ctx, validCreate())

	empty := ""
	if err := svc.Update(ctx, id, UpdateRequest{Text: &empty}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for empty text, got %v", err)
	}
}

func TestService_Update_visibleOnly(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	ctx := context.Background()
	id, _ := svc.Create(ctx, validCreate())

	hidden := false
	if err := svc.Update(ctx, id, UpdateRequest{Visible: &hidden}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := svc.List(ctx, "cam-1")
	o := got[0]
	if o.Visible || o.Text != "Lobby" || o.Position != (Position{Top: 50, Left: 60}) || o.Size != (Size{Width: 200, Height: 100}) {
		t.Errorf("only visible should change, got %+v", o)
	}
}

func TestService_Update_notFound(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	hidden := false
	err := svc.Update(context.Background(), "missing", UpdateRequest{Visible: &hidden})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	ctx := context.Background()
	id, _ := svc.Create(ctx, validCreate())

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := svc.Delete(ctx, id); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("second Delete: expected not found, got %v", err)
	}
}

func TestService_storeFailuresAreInternal(t *testing.T) {
	cause := errors.New("connection reset")
	svc := NewService(failingStore{err: cause})
	ctx := context.Background()

	if _, err := svc.Create(ctx, validCreate()); !errors.Is(err, cause) || apperr.KindOf(err) != apperr.KindInternal {
		t.Errorf("Create: %v", err)
	}
	if _, err := svc.List(ctx, "cam-1"); !errors.Is(err, cause) {
		t.Errorf("List: %v", err)
	}
	hidden := false
	if err := svc.Update(ctx, "id", UpdateRequest{Visible: &hidden}); !errors.Is(err, cause) || apperr.KindOf(err) != apperr.KindInternal {
		t.Errorf("Update: %v", err)
	}
	if err := svc.Delete(ctx, "id"); !errors.Is(err, cause) {
		t.Errorf("Delete: %v", err)
	}
}
