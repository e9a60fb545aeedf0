package shape

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotObject is returned when a shape is not a JSON object.
	ErrNotObject = errors.New("shape must be an object")
	// ErrUnknownKind is returned for a missing or unrecognised "type".
	ErrUnknownKind = errors.New("unknown shape type")
	// ErrMissingField is returned when a required coordinate is absent or not a number.
	ErrMissingField = errors.New("missing or invalid shape field")
)

// Parse decodes a single shape object and checks that every field required
// by its declared type is present. The "id" field is optional.
func Parse(raw json.RawMessage) (Shape, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, ErrNotObject
	}

	var kind string
	if rawKind, ok := fields["type"]; !ok || json.Unmarshal(rawKind, &kind) != nil {
		return nil, fmt.Errorf("%w: type is required", ErrUnknownKind)
	}

	r := &reader{fields: fields}
	id := r.optionalString("id")

	switch Kind(kind) {
	case KindRectangle:
		return r.done(Rectangle{
			ID:     id,
			X:      r.number("x"),
			Y:      r.number("y"),
			Width:  r.number("width"),
			Height: r.number("height"),
		})
	case KindCircle:
		return r.done(Circle{
			ID:      id,
			CentreX: r.number("centreX"),
			CentreY: r.number("centreY"),
			Radius:  r.number("radius"),
		})
	case KindPencil:
		return r.done(Pencil{
			ID:     id,
			Points: r.points("points"),
		})
	case KindDiamond:
		return r.done(Diamond{
			ID:      id,
			CenterX: r.number("centerX"),
			CenterY: r.number("centerY"),
			Width:   r.number("width"),
			Height:  r.number("height"),
		})
	case KindArrow:
		return r.done(Arrow{
			ID:     id,
			StartX: r.number("startX"),
			StartY: r.number("startY"),
			EndX:   r.number("endX"),
			EndY:   r.number("endY"),
		})
	case KindLine:
		return r.done(Line{
			ID:     id,
			StartX: r.number("startX"),
			StartY: r.number("startY"),
			EndX:   r.number("endX"),
			EndY:   r.number("endY"),
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// reader accumulates the first field error so variant constructors stay flat.
type reader struct {
	fields map[string]json.RawMessage
	err    error
}

func (r *reader) done(s Shape) (Shape, error) {
	if r.err != nil {
		return nil, r.err
	}
	return s, nil
}

func (r *reader) fail(name string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s", ErrMissingField, name)
	}
}

func (r *reader) number(name string) float64 {
	raw, ok := r.fields[name]
	if !ok {
		r.fail(name)
		return 0
	}
	v, ok := decodeNumber(raw)
	if !ok {
		r.fail(name)
	}
	return v
}

func (r *reader) points(name string) []Point {
	raw, ok := r.fields[name]
	if !ok || isNull(raw) {
		r.fail(name)
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		r.fail(name)
		return nil
	}

	points := make([]Point, 0, len(items))
	for i, item := range items {
		var xy map[string]json.RawMessage
		if err := json.Unmarshal(item, &xy); err != nil || xy == nil {
			r.fail(fmt.Sprintf("%s[%d]", name, i))
			return nil
		}
		x, okX := decodeNumber(xy["x"])
		y, okY := decodeNumber(xy["y"])
		if !okX || !okY {
			r.fail(fmt.Sprintf("%s[%d]", name, i))
			return nil
		}
		points = append(points, Point{X: x, Y: y})
	}
	return points
}

func (r *reader) optionalString(name string) string {
	var s string
	if raw, ok := r.fields[name]; ok {
		_ = json.Unmarshal(raw, &s) //nolint:errcheck // non-string ids are ignored
	}
	return s
}

func decodeNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || isNull(raw) {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
