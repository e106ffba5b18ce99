package parser

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"playerstore/pkg/player"
	"playerstore/pkg/schema"
)

// ParseBatch decodes a write request body into typed entries.
//
// The body must be a non-empty JSON array whose every element matches
// schema.WriteEntryShape. Operation tags are checked here so that a bad tag
// is rejected before any transaction is opened.
func ParseBatch(data []byte) ([]player.Entry, error) {
	raw, err := decodeGeneric(data)
	if err != nil {
		return nil, err
	}

	if _, ok := raw.([]any); !ok {
		return nil, player.ErrNotArray
	}
	if !schema.Validate(schema.WriteEntryShape, raw) {
		return nil, player.ErrWrongShape
	}

	// Second pass into the typed form. The shape check guarantees the keys
	// and kinds; ids still have to be integral.
	var wire []struct {
		ID        json.Number `json:"id"`
		Name      string      `json:"name"`
		Region    string      `json:"region"`
		Server    string      `json:"server"`
		Operation string      `json:"operation"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w (%v)", player.ErrWrongShape, err)
	}

	entries := make([]player.Entry, 0, len(wire))
	for _, w := range wire {
		id, err := parseID(w.ID)
		if err != nil {
			return nil, err
		}
		op, err := player.ParseOperation(w.Operation)
		if err != nil {
			return nil, fmt.Errorf("Failed to modify player with ID: %d with cause: %w", id, err)
		}
		entries = append(entries, player.Entry{
			Record:    player.Record{ID: id, Name: w.Name, Region: w.Region, Server: w.Server},
			Operation: op,
		})
	}

	return entries, nil
}

// ParseSearch decodes a search request body of the form {"id": N}
func ParseSearch(data []byte) (int64, error) {
	raw, err := decodeGeneric(data)
	if err != nil {
		return 0, err
	}
	if !schema.Validate(schema.SearchShape, raw) {
		return 0, player.ErrWrongShape
	}

	var req struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return 0, fmt.Errorf("%w (%v)", player.ErrWrongShape, err)
	}
	return parseID(req.ID)
}

func parseID(n json.Number) (int64, error) {
	id, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w (id %s is not an integer)", player.ErrWrongShape, n)
	}
	return id, nil
}

func decodeGeneric(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, player.ErrEmptyInput
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", player.ErrMalformedJSON, err)
	}
	return raw, nil
}
