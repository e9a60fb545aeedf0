package shape

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidEnvelope is returned when a chat or erase payload does not have
// the expected outer structure.
var ErrInvalidEnvelope = errors.New("invalid shape envelope")

// ParseEnvelope decodes the serialized drawing payload {"shape": {...}}
// carried by chat frames and stored in the shape log.
func ParseEnvelope(payload string) (Shape, error) {
	var env struct {
		Shape json.RawMessage `json:"shape"`
	}
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if len(env.Shape) == 0 || isNull(env.Shape) {
		return nil, fmt.Errorf("%w: shape is required", ErrInvalidEnvelope)
	}
	return Parse(env.Shape)
}

// ParseEraseRequest decodes {"shapesToErase": [...]}. Every element must be
// a valid descriptor; ids are optional and ignored during matching.
func ParseEraseRequest(payload string) ([]Shape, error) {
	var env struct {
		ShapesToErase json.RawMessage `json:"shapesToErase"`
	}
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if len(env.ShapesToErase) == 0 || isNull(env.ShapesToErase) {
		return nil, fmt.Errorf("%w: shapesToErase is required", ErrInvalidEnvelope)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(env.ShapesToErase, &items); err != nil {
		return nil, fmt.Errorf("%w: shapesToErase must be an array", ErrInvalidEnvelope)
	}

	descriptors := make([]Shape, 0, len(items))
	for i, item := range items {
		s, err := Parse(item)
		if err != nil {
			return nil, fmt.Errorf("shapesToErase[%d]: %w", i, err)
		}
		descriptors = append(descriptors, s)
	}
	return descriptors, nil
}
