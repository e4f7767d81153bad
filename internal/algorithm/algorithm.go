// Package algorithm defines the spaced-repetition strategy contract and its
// interchangeable implementations.
package algorithm

import (
	"fmt"
	"slices"
	"time"

	json "github.com/goccy/go-json"

	"github.com/thebtf/recall/pkg/models"
)

// NoReschedule is the Result.DelayMillis sentinel for responses that must not
// move the item's next review time (same-session retry passes).
const NoReschedule int64 = -1

// DayMillis is the number of milliseconds in one day.
const DayMillis = int64(24 * time.Hour / time.Millisecond)

// Result is the strategy's verdict on one outcome.
type Result struct {
	Correct     bool  `json:"correct"`
	DelayMillis int64 `json:"delayMillis"`
}

// Reschedules reports whether the result carries a real delay.
func (r Result) Reschedules() bool {
	return r.DelayMillis != NoReschedule
}

// Algorithm computes correctness and the next review delay from a user outcome.
// Implementations own the per-item state exclusively; callers must treat it as opaque.
type Algorithm interface {
	// Name is the registry name of the algorithm.
	Name() string

	// DefaultState returns fresh per-item state for a newly created item.
	DefaultState() models.AlgorithmState

	// OnOutcome applies outcome to state in place. During a retry pass the
	// state is left untouched and DelayMillis is NoReschedule.
	OnOutcome(state *models.AlgorithmState, outcome string, retry bool) (Result, error)

	// Outcomes returns the ordered outcome labels, most negative first.
	Outcomes() []string
}

// outcomeIndex returns the position of outcome in labels or ErrInvalidOutcome.
func outcomeIndex(labels []string, outcome string) (int, error) {
	i := slices.Index(labels, outcome)
	if i < 0 {
		return -1, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}
	return i, nil
}

// decodeState unmarshals state into v. Empty state leaves v untouched so that
// callers can pre-populate defaults.
func decodeState(state models.AlgorithmState, v any) error {
	if state.IsEmpty() {
		return nil
	}
	if err := json.Unmarshal(state, v); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return nil
}

// encodeState marshals v into state.
func encodeState(state *models.AlgorithmState, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	*state = data
	return nil
}

// mustEncode marshals a default state value; defaults are plain structs and
// cannot fail to encode.
func mustEncode(v any) models.AlgorithmState {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("algorithm: encode default state: %v", err))
	}
	return data
}

// mergeSettings decodes raw over the pre-populated defaults in dst. Keys that
// dst does not declare are ignored.
func mergeSettings(dst any, raw []byte) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

// daysToMillis converts a day count to a delay, never shorter than one day.
func daysToMillis(days float64) int64 {
	if days < 1 {
		days = 1
	}
	return int64(days * float64(DayMillis))
}
