package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidImport = errors.New("invalid progress data")

// ExportFileName is the suggested file name for a progress export taken on the given day.
func ExportFileName(today time.Time) string {
	return fmt.Sprintf("pushup-journey-export-%s.json", FormatDate(today))
}

// Export serializes progress as indented JSON.
func Export(p *UserProgress) ([]byte, error) {
	if p == nil {
		return nil, errors.New("export nil progress")
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal progress: %w", err)
	}
	return data, nil
}

// importPayload keeps days raw so a non-array value can be told apart from a missing one.
type importPayload struct {
	CurrentDay    int             `json:"currentDay"`
	Streak        int             `json:"streak"`
	Level         int             `json:"level"`
	LevelProgress int             `json:"levelProgress"`
	Days          json.RawMessage `json:"days"`
}

// Import parses exported progress. The payload is accepted whole or rejected with ErrInvalidImport.
// Stored progress is read through Import too, so anything accepted here survives a reload.
func Import(data []byte) (*UserProgress, error) {
	var payload importPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidImport, err)
	}
	if payload.CurrentDay == 0 {
		return nil, fmt.Errorf("%w: missing current day", ErrInvalidImport)
	}
	rawDays := bytes.TrimSpace(payload.Days)
	if len(rawDays) == 0 || rawDays[0] != '[' {
		return nil, fmt.Errorf("%w: days is not a list", ErrInvalidImport)
	}

	var days []WorkoutDay
	if err := json.Unmarshal(rawDays, &days); err != nil {
		return nil, fmt.Errorf("%w: days: %s", ErrInvalidImport, err)
	}

	p := &UserProgress{
		CurrentDay:    payload.CurrentDay,
		Streak:        payload.Streak,
		Level:         payload.Level,
		LevelProgress: payload.LevelProgress,
		Days:          days,
	}
	p.Normalize()
	return p, nil
}
