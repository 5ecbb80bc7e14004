package ice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectedState_String(t *testing.T) {
	testCases := []struct {
		connectionState ConnectionState
		expectedString  string
	}{
		{ConnectionState(Unknown), ErrUnknownType.Error()},
		{ConnectionStateNew, "new"},
		{ConnectionStateChecking, "checking"},
		{ConnectionStateConnected, "connected"},
		{ConnectionStateCompleted, "completed"},
		{ConnectionStateFailed, "failed"},
		{ConnectionStateDisconnected, "disconnected"},
		{ConnectionStateClosed, "closed"},
	}

	for i, testCase := range testCases {
		assert.Equal(t,
			testCase.expectedString,
			testCase.connectionState.String(),
			"testCase: %d %v", i, testCase,
		)
	}
}

func TestGatheringState_String(t *testing.T) {
	testCases := []struct {
		gatheringState GatheringState
		expectedString string
	}{
		{GatheringState(Unknown), ErrUnknownType.Error()},
		{GatheringStateNew, "new"},
		{GatheringStateGathering, "gathering"},
		{GatheringStateComplete, "complete"},
	}

	for i, testCase := range testCases {
		assert.Equal(t,
			testCase.expectedString,
			testCase.gatheringState.String(),
			"testCase: %d %v", i, testCase,
		)
	}
}
