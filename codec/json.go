package codec

import (
	"encoding/json"
	"fmt"

	"vault/domain"
)

// ── JSON codec ─────────────────────────────────────────────
// One pretty-printed JSON object per file. Null columns are omitted on
// stringify, so they round-trip as absent keys.

type jsonCodec struct{}

func init() { Register(jsonCodec{}) }

// JSON returns the JSON row codec.
func JSON() domain.Codec { return jsonCodec{} }

func (jsonCodec) ID() string            { return "json" }
func (jsonCodec) FileExtension() string { return "json" }
func (jsonCodec) MIMEType() string      { return "application/json" }

func (jsonCodec) Parse(text string) (domain.Row, error) {
	var row domain.Row
	if err := json.Unmarshal([]byte(text), &row); err != nil {
		return nil, fmt.Errorf("parse json row: %w", err)
	}
	return row, nil
}

func (jsonCodec) Stringify(row domain.Row) (string, error) {
	compact := make(domain.Row, len(row))
	for k, v := range row {
		if v == nil {
			continue
		}
		compact[k] = v
	}
	out, err := json.MarshalIndent(compact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("stringify json row: %w", err)
	}
	return string(out) + "\n", nil
}
