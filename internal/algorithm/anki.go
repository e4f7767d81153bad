package algorithm

import (
	"fmt"
	"math"

	"github.com/thebtf/recall/pkg/models"
)

// AnkiName is the registry name of the Anki style algorithm.
const AnkiName = "Anki"

// Anki outcome labels.
const (
	AnkiAgain = "Again"
	AnkiHard  = "Hard"
	AnkiGood  = "Good"
	AnkiEasy  = "Easy"
)

// AnkiSettings mirrors the deck options of Anki's scheduler.
type AnkiSettings struct {
	StartingEase       float64 `json:"startingEase"`
	MinimumEase        float64 `json:"minimumEase"`
	EasyBonus          float64 `json:"easyBonus"`
	IntervalModifier   float64 `json:"intervalModifier"`
	HardInterval       float64 `json:"hardInterval"`
	LapseInterval      float64 `json:"lapseInterval"` // multiplier applied after a lapse
	GraduatingInterval int     `json:"graduatingInterval"`
	EasyInterval       int     `json:"easyInterval"`
	MaximumInterval    int     `json:"maximumInterval"`
}

// DefaultAnkiSettings returns Anki's stock deck options.
func DefaultAnkiSettings() AnkiSettings {
	return AnkiSettings{
		StartingEase:       2.5,
		MinimumEase:        1.3,
		EasyBonus:          1.3,
		IntervalModifier:   1.0,
		HardInterval:       1.2,
		LapseInterval:      0.0,
		GraduatingInterval: 1,
		EasyInterval:       4,
		MaximumInterval:    36500,
	}
}

// Validate checks multipliers and interval bounds.
func (s AnkiSettings) Validate() error {
	switch {
	case s.MinimumEase < 1:
		return fmt.Errorf("%w: minimum ease must be at least 1, got %f", ErrInvalidSettings, s.MinimumEase)
	case s.StartingEase < s.MinimumEase:
		return fmt.Errorf("%w: starting ease %f below minimum %f", ErrInvalidSettings, s.StartingEase, s.MinimumEase)
	case s.EasyBonus < 1:
		return fmt.Errorf("%w: easy bonus must be at least 1, got %f", ErrInvalidSettings, s.EasyBonus)
	case s.IntervalModifier <= 0 || s.HardInterval <= 0:
		return fmt.Errorf("%w: interval multipliers must be positive", ErrInvalidSettings)
	case s.LapseInterval < 0 || s.LapseInterval > 1:
		return fmt.Errorf("%w: lapse interval %f out of range [0, 1]", ErrInvalidSettings, s.LapseInterval)
	case s.GraduatingInterval < 1 || s.EasyInterval < 1:
		return fmt.Errorf("%w: graduating and easy intervals must be at least 1 day", ErrInvalidSettings)
	case s.MaximumInterval < s.EasyInterval:
		return fmt.Errorf("%w: maximum interval %d below easy interval %d", ErrInvalidSettings, s.MaximumInterval, s.EasyInterval)
	}
	return nil
}

type ankiState struct {
	Ease     float64 `json:"ease"`
	Interval float64 `json:"interval"` // days, 0 until graduated
	Lapses   int     `json:"lapses"`
}

// Anki approximates the Anki scheduler for graduated cards; learning steps are
// replaced by the same-session retry queue.
type Anki struct {
	settings AnkiSettings
}

// NewAnki creates an Anki style scheduler from validated settings.
func NewAnki(settings AnkiSettings) (*Anki, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Anki{settings: settings}, nil
}

func newAnkiFromRaw(raw []byte) (Algorithm, error) {
	settings := DefaultAnkiSettings()
	if err := mergeSettings(&settings, raw); err != nil {
		return nil, err
	}
	return NewAnki(settings)
}

// Settings returns the active settings.
func (a *Anki) Settings() AnkiSettings {
	return a.settings
}

func (a *Anki) Name() string { return AnkiName }

func (a *Anki) DefaultState() models.AlgorithmState {
	return mustEncode(ankiState{Ease: a.settings.StartingEase})
}

func (a *Anki) Outcomes() []string {
	return []string{AnkiAgain, AnkiHard, AnkiGood, AnkiEasy}
}

func (a *Anki) OnOutcome(state *models.AlgorithmState, outcome string, retry bool) (Result, error) {
	if _, err := outcomeIndex(a.Outcomes(), outcome); err != nil {
		return Result{}, err
	}
	correct := outcome != AnkiAgain

	if retry {
		return Result{Correct: correct, DelayMillis: NoReschedule}, nil
	}

	st := ankiState{Ease: a.settings.StartingEase}
	if err := decodeState(*state, &st); err != nil {
		return Result{}, err
	}

	s := a.settings
	graduated := st.Interval > 0
	prev := st.Interval
	var next float64

	switch outcome {
	case AnkiAgain:
		st.Lapses++
		st.Ease = math.Max(s.MinimumEase, st.Ease-0.2)
		next = prev * s.LapseInterval
	case AnkiHard:
		st.Ease = math.Max(s.MinimumEase, st.Ease-0.15)
		next = float64(s.GraduatingInterval)
		if graduated {
			next = math.Max(prev*s.HardInterval*s.IntervalModifier, prev+1)
		}
	case AnkiGood:
		next = float64(s.GraduatingInterval)
		if graduated {
			next = math.Max(prev*st.Ease*s.IntervalModifier, prev+1)
		}
	case AnkiEasy:
		next = float64(s.EasyInterval)
		if graduated {
			next = math.Max(prev*st.Ease*s.EasyBonus*s.IntervalModifier, prev+1)
		}
		st.Ease += 0.15
	}

	st.Interval = math.Min(math.Max(math.Round(next), 1), float64(s.MaximumInterval))

	if err := encodeState(state, st); err != nil {
		return Result{}, err
	}

	return Result{Correct: correct, DelayMillis: daysToMillis(st.Interval)}, nil
}
