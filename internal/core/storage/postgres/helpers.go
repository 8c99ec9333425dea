package postgres

import (
	"encoding/json"
	"fmt"

	v1 "github.com/codepulse-dev/codepulse/internal/api/v1"
	"github.com/shopspring/decimal"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanHeartbeatRow scans a database row into a Heartbeat struct.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanHeartbeatRow(row scanner) (*v1.Heartbeat, error) {
	var hb v1.Heartbeat

	err := row.Scan(
		&hb.SeqID,
		&hb.ID,
		&hb.UserID,
		&hb.RecordedAt,
		&hb.IngestedAt,
		&hb.Language,
		&hb.TimeSpent,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan heartbeat row: %w", err)
	}

	return &hb, nil
}

// marshalLanguages encodes a languages mapping for the JSONB column.
// Decimal values marshal as quoted strings, so precision survives the trip.
func marshalLanguages(languages map[string]decimal.Decimal) ([]byte, error) {
	if languages == nil {
		languages = map[string]decimal.Decimal{}
	}
	data, err := json.Marshal(languages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal languages: %w", err)
	}
	return data, nil
}

func unmarshalLanguages(data []byte) (map[string]decimal.Decimal, error) {
	languages := make(map[string]decimal.Decimal)
	if len(data) == 0 {
		return languages, nil
	}
	if err := json.Unmarshal(data, &languages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal languages: %w", err)
	}
	return languages, nil
}

// mergeLanguages adds every incoming language duration onto the existing
// mapping, inserting languages not seen before.
func mergeLanguages(existing, incoming map[string]decimal.Decimal) map[string]decimal.Decimal {
	merged := make(map[string]decimal.Decimal, len(existing)+len(incoming))
	for lang, t := range existing {
		merged[lang] = t
	}
	for lang, t := range incoming {
		current, ok := merged[lang]
		if !ok {
			current = decimal.Zero
		}
		merged[lang] = current.Add(t)
	}
	return merged
}
