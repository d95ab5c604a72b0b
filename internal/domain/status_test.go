package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusIDs_Stable(t *testing.T) {
	// Wire ids are part of the client contract.
	assert.Equal(t, 1, StatusQueued.ID())
	assert.Equal(t, 2, StatusProcessing.ID())
	assert.Equal(t, 3, StatusAccepted.ID())
	assert.Equal(t, 4, StatusWrongAnswer.ID())
	assert.Equal(t, 5, StatusTimeLimitExceeded.ID())
	assert.Equal(t, 6, StatusCompilationError.ID())
	assert.Equal(t, 7, StatusRuntimeErrSIGSEGV.ID())
	assert.Equal(t, 8, StatusRuntimeErrSIGXFSZ.ID())
	assert.Equal(t, 9, StatusRuntimeErrSIGFPE.ID())
	assert.Equal(t, 10, StatusRuntimeErrSIGABRT.ID())
	assert.Equal(t, 11, StatusRuntimeErrNZEC.ID())
	assert.Equal(t, 12, StatusRuntimeErrOther.ID())
	assert.Equal(t, 13, StatusInternalError.ID())
	assert.Equal(t, 14, StatusExecFormatError.ID())
}

func TestRuntimeError_Kinds(t *testing.T) {
	assert.Equal(t, StatusRuntimeErrSIGSEGV, RuntimeError(RuntimeSIGSEGV))
	assert.Equal(t, StatusRuntimeErrSIGXFSZ, RuntimeError(RuntimeSIGXFSZ))
	assert.Equal(t, StatusRuntimeErrSIGFPE, RuntimeError(RuntimeSIGFPE))
	assert.Equal(t, StatusRuntimeErrSIGABRT, RuntimeError(RuntimeSIGABRT))
	assert.Equal(t, StatusRuntimeErrNZEC, RuntimeError(RuntimeNZEC))
	assert.Equal(t, StatusRuntimeErrOther, RuntimeError(RuntimeOther))
	for k := RuntimeSIGSEGV; k <= RuntimeOther; k++ {
		assert.True(t, RuntimeError(k).IsRuntimeError())
	}
	assert.False(t, StatusAccepted.IsRuntimeError())
	assert.False(t, StatusInternalError.IsRuntimeError())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	for s := StatusAccepted; s <= StatusExecFormatError; s++ {
		assert.True(t, s.Terminal(), "status %d", s)
	}
}

func TestStatusDescription(t *testing.T) {
	require.Equal(t, "Accepted", StatusAccepted.Description())
	require.Equal(t, "Runtime Error (NZEC)", StatusRuntimeErrNZEC.Description())
	require.Equal(t, "Unknown", Status(99).Description())
}
