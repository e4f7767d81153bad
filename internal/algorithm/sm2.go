package algorithm

import (
	"fmt"
	"math"

	"github.com/thebtf/recall/pkg/models"
)

// SM2Name is the registry name of the SuperMemo-2 style algorithm.
const SM2Name = "SM2"

// sm2Outcomes map to recall quality 0..5 by position.
var sm2Outcomes = []string{
	"Blackout",
	"Incorrect",
	"Incorrect (Easy)",
	"Hard",
	"Medium",
	"Easy",
}

// sm2PassingQuality is the lowest quality that counts as a correct answer.
const sm2PassingQuality = 3

// SM2Settings configures the SM-2 interval growth.
type SM2Settings struct {
	InitialEase    float64 `json:"initialEase"`
	MinimumEase    float64 `json:"minimumEase"`
	FirstInterval  int     `json:"firstInterval"`  // days after the first correct review
	SecondInterval int     `json:"secondInterval"` // days after the second correct review
}

// DefaultSM2Settings returns the classic SM-2 constants.
func DefaultSM2Settings() SM2Settings {
	return SM2Settings{
		InitialEase:    2.5,
		MinimumEase:    1.3,
		FirstInterval:  1,
		SecondInterval: 6,
	}
}

// Validate checks the ease bounds and intervals.
func (s SM2Settings) Validate() error {
	if s.MinimumEase < 1 {
		return fmt.Errorf("%w: minimum ease must be at least 1, got %f", ErrInvalidSettings, s.MinimumEase)
	}
	if s.InitialEase < s.MinimumEase {
		return fmt.Errorf("%w: initial ease %f below minimum %f", ErrInvalidSettings, s.InitialEase, s.MinimumEase)
	}
	if s.FirstInterval < 1 || s.SecondInterval < 1 {
		return fmt.Errorf("%w: intervals must be at least 1 day", ErrInvalidSettings)
	}
	return nil
}

type sm2State struct {
	Ease        float64 `json:"ease"`
	Interval    int     `json:"interval"` // days
	Repetitions int     `json:"repetitions"`
}

// SM2 grows the interval by an ease factor that is adjusted by the quality of
// each answer.
type SM2 struct {
	settings SM2Settings
}

// NewSM2 creates an SM-2 scheduler from validated settings.
func NewSM2(settings SM2Settings) (*SM2, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &SM2{settings: settings}, nil
}

func newSM2FromRaw(raw []byte) (Algorithm, error) {
	settings := DefaultSM2Settings()
	if err := mergeSettings(&settings, raw); err != nil {
		return nil, err
	}
	return NewSM2(settings)
}

// Settings returns the active settings.
func (a *SM2) Settings() SM2Settings {
	return a.settings
}

func (a *SM2) Name() string { return SM2Name }

func (a *SM2) DefaultState() models.AlgorithmState {
	return mustEncode(sm2State{Ease: a.settings.InitialEase})
}

func (a *SM2) Outcomes() []string {
	return append([]string(nil), sm2Outcomes...)
}

func (a *SM2) OnOutcome(state *models.AlgorithmState, outcome string, retry bool) (Result, error) {
	quality, err := outcomeIndex(sm2Outcomes, outcome)
	if err != nil {
		return Result{}, err
	}
	correct := quality >= sm2PassingQuality

	if retry {
		return Result{Correct: correct, DelayMillis: NoReschedule}, nil
	}

	st := sm2State{Ease: a.settings.InitialEase}
	if err := decodeState(*state, &st); err != nil {
		return Result{}, err
	}

	if correct {
		switch st.Repetitions {
		case 0:
			st.Interval = a.settings.FirstInterval
		case 1:
			st.Interval = a.settings.SecondInterval
		default:
			st.Interval = int(math.Round(float64(st.Interval) * st.Ease))
		}
		st.Repetitions++
	} else {
		st.Repetitions = 0
		st.Interval = a.settings.FirstInterval
	}

	q := float64(5 - quality)
	st.Ease = math.Max(a.settings.MinimumEase, st.Ease+0.1-q*(0.08+q*0.02))

	if err := encodeState(state, st); err != nil {
		return Result{}, err
	}

	return Result{Correct: correct, DelayMillis: daysToMillis(float64(st.Interval))}, nil
}
