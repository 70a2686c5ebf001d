package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrNotObject is returned by Decode when the payload is not a JSON object.
var ErrNotObject = errors.New("event payload is not a JSON object")

// Decode parses a JSON object into an Event with the given topic, keeping the
// key order of the payload. Integral numbers that fit in 64 bits become Int,
// other numbers and booleans keep their literal text as String, nested objects
// are kept as compact JSON text.
func Decode(topic string, payload []byte) (Event, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Event{}, ErrNotObject
	}

	ev := Event{Topic: topic}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Event{}, fmt.Errorf("read property name: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return Event{}, fmt.Errorf("unexpected token %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return Event{}, fmt.Errorf("read property %q: %w", name, err)
		}
		v, err := decodeValue(raw)
		if err != nil {
			return Event{}, fmt.Errorf("decode property %q: %w", name, err)
		}
		ev.Set(name, v)
	}

	if _, err := dec.Token(); err != nil {
		return Event{}, fmt.Errorf("read end of object: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Event{}, fmt.Errorf("trailing data after event object")
	}

	return ev, nil
}

func decodeValue(raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Value{}, fmt.Errorf("empty value")
	}

	switch raw[0] {
	case 'n':
		return Null(), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, err
		}
		return String(s), nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return Value{}, err
		}
		elems := make([]Value, 0, len(items))
		for _, item := range items {
			v, err := decodeValue(item)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, v)
		}
		return Value{kind: KindArray, elems: elems}, nil
	case '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return Value{}, err
		}
		return String(buf.String()), nil
	case 't', 'f':
		return String(string(raw)), nil
	default:
		if n, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			return Int(n), nil
		}
		return String(string(raw)), nil
	}
}
