package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotList reports a payload that is not a JSON array.
var ErrNotList = errors.New("payload is not a json array")

// DecodeItems parses a persisted or exported task list. It is lenient about
// element shape: unknown statuses become todo, non-object elements are
// skipped, and the older English field names are accepted.
func DecodeItems(data []byte) ([]TaskItem, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, ErrNotList
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode task list: %w", err)
	}
	out := make([]TaskItem, 0, len(raws))
	for _, raw := range raws {
		item, ok := decodeItem(raw)
		if !ok {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// EncodeItems serializes items in the persisted layout. When pretty is set
// the output is indented by two spaces and newline terminated.
func EncodeItems(items []TaskItem, pretty bool) ([]byte, error) {
	if items == nil {
		items = []TaskItem{}
	}
	if !pretty {
		return json.Marshal(items)
	}
	encoded, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(encoded, '\n'), nil
}

// decodeItem maps one raw element into a task item.
func decodeItem(raw json.RawMessage) (TaskItem, bool) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil || fields == nil {
		return TaskItem{}, false
	}
	item := TaskItem{
		ID:          stringField(fields, "id"),
		Title:       strings.TrimSpace(stringField(fields, "titulo", "title")),
		Description: strings.TrimSpace(stringField(fields, "descripcion", "description")),
		Status:      NormalizeStatus(stringField(fields, "status")),
	}
	if due, err := NormalizeDueDate(stringField(fields, "fechaVencimiento", "dueDate")); err == nil {
		item.DueDate = due
	}
	if ts, ok := timeField(fields, "createdAt"); ok {
		item.CreatedAt = ts
	}
	if ts, ok := timeField(fields, "updatedAt"); ok {
		item.UpdatedAt = &ts
	}
	return item, true
}

// stringField returns the first present key rendered as a string.
func stringField(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := fields[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			return v
		case json.Number:
			return v.String()
		case bool:
			if v {
				return "true"
			}
			return "false"
		}
	}
	return ""
}

// timeField parses an RFC 3339 timestamp field.
func timeField(fields map[string]any, key string) (time.Time, bool) {
	raw := strings.TrimSpace(stringField(fields, key))
	if raw == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}
