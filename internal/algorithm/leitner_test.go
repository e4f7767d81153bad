package algorithm

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/recall/pkg/models"
)

// LeitnerSuite validates the stage ladder transitions.
type LeitnerSuite struct {
	suite.Suite
	algo *Leitner
}

func TestLeitnerSuite(t *testing.T) {
	suite.Run(t, new(LeitnerSuite))
}

func (s *LeitnerSuite) SetupTest() {
	algo, err := NewLeitner(LeitnerSettings{
		Stages:           3,
		Timings:          []int{1, 2, 5},
		ResetOnIncorrect: true,
	})
	s.Require().NoError(err)
	s.algo = algo
}

func stageOf(t *testing.T, state models.AlgorithmState) int {
	t.Helper()
	var st leitnerState
	require.NoError(t, json.Unmarshal(state, &st))
	return st.Stage
}

func (s *LeitnerSuite) TestLadderScenario() {
	state := s.algo.DefaultState()
	assert.Equal(s.T(), 0, stageOf(s.T(), state))

	res, err := s.algo.OnOutcome(&state, LeitnerCorrect, false)
	s.Require().NoError(err)
	assert.True(s.T(), res.Correct)
	assert.Equal(s.T(), 1*DayMillis, res.DelayMillis)
	assert.Equal(s.T(), 1, stageOf(s.T(), state))

	res, err = s.algo.OnOutcome(&state, LeitnerCorrect, false)
	s.Require().NoError(err)
	assert.Equal(s.T(), 2*DayMillis, res.DelayMillis)
	assert.Equal(s.T(), 2, stageOf(s.T(), state))

	res, err = s.algo.OnOutcome(&state, LeitnerWrong, false)
	s.Require().NoError(err)
	assert.False(s.T(), res.Correct)
	assert.Equal(s.T(), 1*DayMillis, res.DelayMillis)
	assert.Equal(s.T(), 1, stageOf(s.T(), state))
}

func (s *LeitnerSuite) TestStageClampsAtTop() {
	state := s.algo.DefaultState()
	var res Result
	var err error
	for i := 0; i < 6; i++ {
		res, err = s.algo.OnOutcome(&state, LeitnerCorrect, false)
		s.Require().NoError(err)
	}
	assert.Equal(s.T(), 3, stageOf(s.T(), state))
	assert.Equal(s.T(), 5*DayMillis, res.DelayMillis)
}

func (s *LeitnerSuite) TestWrongWithoutResetStepsDown() {
	algo, err := NewLeitner(LeitnerSettings{Stages: 3, Timings: []int{1, 2, 5}})
	s.Require().NoError(err)

	state := models.AlgorithmState(`{"stage":3}`)
	res, err := algo.OnOutcome(&state, LeitnerWrong, false)
	s.Require().NoError(err)
	assert.Equal(s.T(), 2, stageOf(s.T(), state))
	assert.Equal(s.T(), 2*DayMillis, res.DelayMillis)

	state = models.AlgorithmState(`{"stage":0}`)
	res, err = algo.OnOutcome(&state, LeitnerWrong, false)
	s.Require().NoError(err)
	assert.Equal(s.T(), 1, stageOf(s.T(), state))
	assert.Equal(s.T(), 1*DayMillis, res.DelayMillis)
}

func (s *LeitnerSuite) TestRetryPassLeavesStateAlone() {
	state := models.AlgorithmState(`{"stage":2}`)

	res, err := s.algo.OnOutcome(&state, LeitnerCorrect, true)
	s.Require().NoError(err)
	assert.True(s.T(), res.Correct)
	assert.Equal(s.T(), NoReschedule, res.DelayMillis)
	assert.False(s.T(), res.Reschedules())

	res, err = s.algo.OnOutcome(&state, LeitnerWrong, true)
	s.Require().NoError(err)
	assert.False(s.T(), res.Correct)
	assert.Equal(s.T(), NoReschedule, res.DelayMillis)
	assert.Equal(s.T(), 2, stageOf(s.T(), state))
}

func (s *LeitnerSuite) TestUnknownOutcomeRejected() {
	state := s.algo.DefaultState()
	_, err := s.algo.OnOutcome(&state, "Maybe", false)
	assert.ErrorIs(s.T(), err, ErrInvalidOutcome)
	assert.Equal(s.T(), 0, stageOf(s.T(), state))
}

func (s *LeitnerSuite) TestEmptyStateTreatedAsNew() {
	var state models.AlgorithmState
	res, err := s.algo.OnOutcome(&state, LeitnerCorrect, false)
	s.Require().NoError(err)
	assert.Equal(s.T(), 1*DayMillis, res.DelayMillis)
}

func (s *LeitnerSuite) TestCorruptStateRejected() {
	state := models.AlgorithmState(`{"stage":"two"}`)
	_, err := s.algo.OnOutcome(&state, LeitnerCorrect, false)
	assert.ErrorIs(s.T(), err, ErrCorruptState)
}

func TestLeitnerSettingsValidate(t *testing.T) {
	tests := []struct {
		name     string
		settings LeitnerSettings
		wantErr  bool
	}{
		{"defaults", DefaultLeitnerSettings(), false},
		{"no stages", LeitnerSettings{Stages: 0}, true},
		{"timing count mismatch", LeitnerSettings{Stages: 2, Timings: []int{1}}, true},
		{"zero timing", LeitnerSettings{Stages: 2, Timings: []int{1, 0}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSettings)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLeitnerOutcomesOrder(t *testing.T) {
	algo, err := NewLeitner(DefaultLeitnerSettings())
	require.NoError(t, err)
	assert.Equal(t, []string{"Wrong", "Correct"}, algo.Outcomes())
}
