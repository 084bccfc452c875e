package transport

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Frames are JSON text messages of the form {"event": name, "data": {...}}.

// envelope builds an outbound frame for the named event.
func envelope(event string, fields map[string]any) ([]byte, error) {
	b, err := sjson.SetBytes([]byte(`{}`), "event", event)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		b, err = sjson.SetBytes(b, "data."+k, v)
		if err != nil {
			return nil, fmt.Errorf("build %s frame: %w", event, err)
		}
	}
	return b, nil
}

// parseFrame extracts the event name and raw data payload from an inbound
// frame. ok is false for frames with no event name; those are ignored.
func parseFrame(raw []byte) (name string, data []byte, ok bool) {
	ev := gjson.GetBytes(raw, "event")
	if ev.Type != gjson.String || ev.Str == "" {
		return "", nil, false
	}
	return ev.Str, []byte(gjson.GetBytes(raw, "data").Raw), true
}
