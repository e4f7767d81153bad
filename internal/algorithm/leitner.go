package algorithm

import (
	"fmt"

	"github.com/thebtf/recall/pkg/models"
)

// LeitnerName is the registry name of the stage-ladder algorithm.
const LeitnerName = "Leitner"

// Leitner outcome labels.
const (
	LeitnerWrong   = "Wrong"
	LeitnerCorrect = "Correct"
)

// LeitnerSettings configures the stage ladder.
type LeitnerSettings struct {
	Timings          []int `json:"timings"` // days to wait at each stage
	Stages           int   `json:"stages"`
	ResetOnIncorrect bool  `json:"resetOnIncorrect"`
}

// DefaultLeitnerSettings returns the default six-stage ladder.
func DefaultLeitnerSettings() LeitnerSettings {
	return LeitnerSettings{
		Stages:           6,
		ResetOnIncorrect: true,
		Timings:          []int{1, 3, 7, 14, 30, 180},
	}
}

// Validate checks that every stage has a positive timing.
func (s LeitnerSettings) Validate() error {
	if s.Stages < 1 {
		return fmt.Errorf("%w: stages must be at least 1, got %d", ErrInvalidSettings, s.Stages)
	}
	if len(s.Timings) != s.Stages {
		return fmt.Errorf("%w: %d timings for %d stages", ErrInvalidSettings, len(s.Timings), s.Stages)
	}
	for i, t := range s.Timings {
		if t < 1 {
			return fmt.Errorf("%w: timing for stage %d must be at least 1 day, got %d", ErrInvalidSettings, i+1, t)
		}
	}
	return nil
}

type leitnerState struct {
	Stage int `json:"stage"`
}

// Leitner moves items up a fixed ladder of stages on correct answers and
// down (or back to the first stage) on incorrect ones.
type Leitner struct {
	settings LeitnerSettings
}

// NewLeitner creates a stage ladder from validated settings.
func NewLeitner(settings LeitnerSettings) (*Leitner, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Leitner{settings: settings}, nil
}

// newLeitnerFromRaw merges raw JSON settings over the defaults.
func newLeitnerFromRaw(raw []byte) (Algorithm, error) {
	settings := DefaultLeitnerSettings()
	if err := mergeSettings(&settings, raw); err != nil {
		return nil, err
	}
	return NewLeitner(settings)
}

// Settings returns the active settings.
func (l *Leitner) Settings() LeitnerSettings {
	return l.settings
}

func (l *Leitner) Name() string { return LeitnerName }

func (l *Leitner) DefaultState() models.AlgorithmState {
	return mustEncode(leitnerState{Stage: 0})
}

func (l *Leitner) Outcomes() []string {
	return []string{LeitnerWrong, LeitnerCorrect}
}

func (l *Leitner) OnOutcome(state *models.AlgorithmState, outcome string, retry bool) (Result, error) {
	idx, err := outcomeIndex(l.Outcomes(), outcome)
	if err != nil {
		return Result{}, err
	}
	correct := idx == 1

	if retry {
		return Result{Correct: correct, DelayMillis: NoReschedule}, nil
	}

	var st leitnerState
	if err := decodeState(*state, &st); err != nil {
		return Result{}, err
	}

	if correct {
		st.Stage = min(max(st.Stage+1, 1), l.settings.Stages)
	} else if l.settings.ResetOnIncorrect {
		st.Stage = 1
	} else {
		st.Stage = max(1, min(st.Stage, l.settings.Stages)-1)
	}

	if err := encodeState(state, st); err != nil {
		return Result{}, err
	}

	return Result{
		Correct:     correct,
		DelayMillis: int64(l.settings.Timings[st.Stage-1]) * DayMillis,
	}, nil
}
