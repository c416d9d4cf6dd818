package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePhase(t *testing.T) {
	t.Parallel()

	single := &Session{Platform: PlatformPrimary, Metadata: &Metadata{Title: "x"}}
	collection := &Session{Platform: PlatformPrimary, Metadata: &Metadata{IsCollection: true}}

	cases := []struct {
		in   PhaseInputs
		want PhaseKind
	}{
		{PhaseInputs{Step: StepPlatformSelect}, PhaseChoosePlatform},
		{PhaseInputs{Step: StepModeSelect}, PhaseChooseMode},
		{PhaseInputs{Step: StepURLAndQuality, Session: &Session{}}, PhaseAwaitURL},
		{PhaseInputs{Step: StepURLAndQuality, Session: single, Fetching: true}, PhaseFetching},
		{PhaseInputs{Step: StepURLAndQuality, Session: single, HasOption: true}, PhaseChooseQuality},
		{PhaseInputs{Step: StepURLAndQuality, Session: single}, PhaseAwaitURL},
		{PhaseInputs{Step: StepURLAndQuality, Session: collection}, PhaseConfirmCollection},
		{PhaseInputs{Step: StepProgress, Launching: true}, PhaseLaunching},
		{PhaseInputs{Step: StepProgress}, PhaseStreaming},
		{PhaseInputs{Step: StepProgress, Stalled: true}, PhaseStalled},
		{PhaseInputs{Step: StepComplete}, PhaseDone},
		{PhaseInputs{Step: StepError}, PhaseFailed},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ComputePhase(tc.in).Kind, "step %s", tc.in.Step)
	}
}

func TestPhaseAffordances(t *testing.T) {
	t.Parallel()

	assert.True(t, Phase{Kind: PhaseFetching}.Busy())
	assert.False(t, Phase{Kind: PhaseFetching}.CanSubmitURL())
	assert.True(t, Phase{Kind: PhaseChooseQuality}.CanConfirm())
	assert.True(t, Phase{Kind: PhaseConfirmCollection}.CanConfirm())
	assert.False(t, Phase{Kind: PhaseConfirmCollection}.CanSelectQuality())
	assert.True(t, Phase{Kind: PhaseFailed}.CanRetry())
	assert.False(t, Phase{Kind: PhaseDone}.CanRetry())
	assert.True(t, Phase{Kind: PhaseStalled}.CanStartOver())
	assert.False(t, Phase{Kind: PhaseStreaming}.CanStartOver())
	assert.False(t, Phase{Kind: PhaseLaunching}.CanGoBack())
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Unsupported URL", UserMessage(&RemoteRejectedError{Message: "Unsupported URL"}, MessageLaunchFailed))
	assert.Equal(t, MessageLaunchFailed, UserMessage(ErrUnreachable, MessageLaunchFailed))
}
