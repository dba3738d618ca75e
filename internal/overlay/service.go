package overlay

import (
	"context"
	"errors"
	"fmt"

	"camera-overlay/internal/platform/apperr"
)

// Client-facing messages.
const (
	msgMissingStreamID    = "Missing 'stream_id'."
	msgMissingText        = "Missing 'text'."
	msgMissingPosition    = "Missing 'position' with 'top' and 'left'."
	msgMissingSize        = "Missing 'size' with 'width' and 'height'."
	msgEmptyText          = "'text' must not be empty."
	msgIncompletePosition = "Incomplete 'position' data."
	msgIncompleteSize     = "Incomplete 'size' data."
	msgNoFields           = "No fields to update"
	msgNotFound           = "Overlay not found"
)

// Service applies overlay validation and merge rules and delegates storage to a Store.
type Service struct {
	store Store
}

// NewService returns a Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates req and stores a new visible overlay. Every violated rule
// is reported in a single validation error.
func (s *Service) Create(ctx context.Context, req CreateRequest) (string, error) {
	var problems []string
	if req.StreamID == "" {
		problems = append(problems, msgMissingStreamID)
	}
	if req.Text == "" {
		problems = append(problems, msgMissingText)
	}
	if !req.Position.complete() {
		problems = append(problems, msgMissingPosition)
	}
	if !req.Size.complete() {
		problems = append(problems, msgMissingSize)
	}
	if len(problems) > 0 {
		return "", apperr.Validation(problems...)
	}

	id, err := s.store.Insert(ctx, Overlay{
		StreamID: req.StreamID,
		Text:     req.Text,
		Position: req.Position.value(),
		Size:     req.Size.value(),
		Visible:  true,
	})
	if err != nil {
		return "", fmt.Errorf("create overlay: %w", err)
	}
	return id, nil
}

// List returns the overlays bound to streamID. No match is not an error.
func (s *Service) List(ctx context.Context, streamID string) ([]Overlay, error) {
	overlays, err := s.store.ListByStream(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("list overlays: %w", err)
	}
	if overlays == nil {
		overlays = []Overlay{}
	}
	return overlays, nil
}

// Update validates req into a Patch and merges it into the overlay with id.
// The first invalid field aborts the update; nothing is written.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) error {
	patch, err := buildPatch(req)
	if err != nil {
		return err
	}
	if err := s.store.Update(ctx, id, patch); err != nil {
		return storeError("update overlay", err)
	}
	return nil
}

// Delete removes the overlay with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return storeError("delete overlay", err)
	}
	return nil
}

func buildPatch(req UpdateRequest) (Patch, error) {
	var p Patch
	if req.Text != nil {
		if *req.Text == "" {
			return Patch{}, apperr.Validation(msgEmptyText)
		}
		p.Text = req.Text
	}
	if req.Position != nil {
		if !req.Position.complete() {
			return Patch{}, apperr.Validation(msgIncompletePosition)
		}
		v := req.Position.value()
		p.Position = &v
	}
	if req.Size != nil {
		if !req.Size.complete() {
			return Patch{}, apperr.Validation(msgIncompleteSize)
		}
		v := req.Size.value()
		p.Size = &v
	}
	if req.Visible != nil {
		p.Visible = req.Visible
	}
	if p.IsEmpty() {
		return Patch{}, apperr.Validation(msgNoFields)
	}
	return p, nil
}

func storeError(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound(msgNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
