package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"

	"scan2cal/calendar-app/internal/domain"
)

// Rejection records a model element that was dropped.
type Rejection struct {
	Index int
	Err   error
}

// ParseEvents turns raw model output into events.
//
// Text that is not valid JSON fails with KindInvalidModelOutput and no
// partial result. Valid JSON that is not an array yields no events, except an
// object whose "events" field is an array, which is unwrapped. Every element
// is decoded and normalized; malformed elements are dropped and reported as
// rejections. The returned slice is never nil on success.
func ParseEvents(raw string) ([]domain.Event, []Rejection, error) {
	data := bytes.TrimSpace([]byte(raw))
	if !json.Valid(data) {
		return nil, nil, &Error{Kind: KindInvalidModelOutput, Err: fmt.Errorf("model output is not valid JSON (%d bytes)", len(data))}
	}

	elements, err := topLevelArray(data)
	if err != nil {
		return nil, nil, &Error{Kind: KindInvalidModelOutput, Err: err}
	}

	events := make([]domain.Event, 0, len(elements))
	var rejected []Rejection
	for i, elem := range elements {
		ev, err := decodeEvent(elem)
		if err != nil {
			rejected = append(rejected, Rejection{Index: i, Err: err})
			continue
		}
		events = append(events, ev)
	}
	return events, rejected, nil
}

// topLevelArray returns the elements of the event array, or nothing when the
// document holds no array at all.
func topLevelArray(data []byte) ([]json.RawMessage, error) {
	switch data[0] {
	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(data, &elements); err != nil {
			return nil, err
		}
		return elements, nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, err
		}
		inner := bytes.TrimSpace(wrapper["events"])
		if len(inner) == 0 || inner[0] != '[' {
			return nil, nil
		}
		var elements []json.RawMessage
		if err := json.Unmarshal(inner, &elements); err != nil {
			return nil, err
		}
		return elements, nil
	default:
		return nil, nil
	}
}

func decodeEvent(elem json.RawMessage) (domain.Event, error) {
	elem = bytes.TrimSpace(elem)
	if len(elem) == 0 || elem[0] != '{' {
		return domain.Event{}, fmt.Errorf("element is not an object")
	}
	var ev domain.Event
	if err := json.Unmarshal(elem, &ev); err != nil {
		return domain.Event{}, fmt.Errorf("decode element: %w", err)
	}
	// Ids are assigned by the grid or the store, never by the model.
	ev.ID = ""
	return domain.NormalizeEvent(ev)
}
