package overlay

import "encoding/json"

// Position is the top/left offset of an overlay, in pixels.
type Position struct {
	Top  float64 `json:"top" bson:"top"`
	Left float64 `json:"left" bson:"left"`
}

// Size is the width/height of an overlay, in pixels.
type Size struct {
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Overlay is a text annotation rendered on top of a stream.
// ID is assigned by the Store on insert and never reused.
type Overlay struct {
	ID       string   `json:"_id"`
	StreamID string   `json:"stream_id"`
	Text     string   `json:"text"`
	Position Position `json:"position"`
	Size     Size     `json:"size"`
	Visible  bool     `json:"visible"`
}

// Patch is a validated partial update. Nil fields are left untouched.
type Patch struct {
	Text     *string
	Position *Position
	Size     *Size
	Visible  *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Text == nil && p.Position == nil && p.Size == nil && p.Visible == nil
}

// Apply merges the patch into o.
func (p Patch) Apply(o *Overlay) {
	if p.Text != nil {
		o.Text = *p.Text
	}
	if p.Position != nil {
		o.Position = *p.Position
	}
	if p.Size != nil {
		o.Size = *p.Size
	}
	if p.Visible != nil {
		o.Visible = *p.Visible
	}
}

// PositionInput is the wire form of a position. Pointer fields let
// validation tell a missing sub-field from a zero one. A value that is not
// an object, or a sub-field that is not a number, decodes as missing.
type PositionInput struct {
	Top  *float64 `json:"top"`
	Left *float64 `json:"left"`
}

func (p *PositionInput) UnmarshalJSON(data []byte) error {
	v := numberFields(data, "top", "left")
	p.Top, p.Left = v[0], v[1]
	return nil
}

func (p *PositionInput) complete() bool {
	return p != nil && p.Top != nil && p.Left != nil
}

func (p *PositionInput) value() Position {
	return Position{Top: *p.Top, Left: *p.Left}
}

// SizeInput is the wire form of a size. Decoding is as lenient as PositionInput.
type SizeInput struct {
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

func (s *SizeInput) UnmarshalJSON(data []byte) error {
	v := numberFields(data, "width", "height")
	s.Width, s.Height = v[0], v[1]
	return nil
}

func (s *SizeInput) complete() bool {
	return s != nil && s.Width != nil && s.Height != nil
}

func (s *SizeInput) value() Size {
	return Size{Width: *s.Width, Height: *s.Height}
}

// numberFields reads keys from a JSON object. Entries are nil when data is
// not an object or the key is absent, null or not a number.
func numberFields(data []byte, keys ...string) []*float64 {
	out := make([]*float64, len(keys))
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return out
	}
	for i, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var f *float64
		if err := json.Unmarshal(raw, &f); err == nil {
			out[i] = f
		}
	}
	return out
}

// CreateRequest is the body of POST /overlays.
type CreateRequest struct {
	StreamID string         `json:"stream_id"`
	Text     string         `json:"text"`
	Position *PositionInput `json:"position"`
	Size     *SizeInput     `json:"size"`
}

// UnmarshalJSON requires a JSON object but decodes each field on its own, so
// a wrongly typed field counts as missing and the remaining fields are still
// validated together.
func (c *CreateRequest) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*c = CreateRequest{
		StreamID: stringField(obj, "stream_id"),
		Text:     stringField(obj, "text"),
	}
	if raw, ok := obj["position"]; ok && !isNull(raw) {
		c.Position = new(PositionInput)
		_ = c.Position.UnmarshalJSON(raw)
	}
	if raw, ok := obj["size"]; ok && !isNull(raw) {
		c.Size = new(SizeInput)
		_ = c.Size.UnmarshalJSON(raw)
	}
	return nil
}

func stringField(obj map[string]json.RawMessage, key string) string {
	var s string
	if raw, ok := obj[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

// UpdateRequest is the body of PUT /overlays/{overlay_id}.
// A JSON null is treated the same as an absent field.
type UpdateRequest struct {
	Text     *string        `json:"text"`
	Position *PositionInput `json:"position"`
	Size     *SizeInput     `json:"size"`
	Visible  *bool          `json:"visible"`
}
