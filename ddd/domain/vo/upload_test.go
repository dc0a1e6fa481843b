package vo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubmitter(t *testing.T) {
	s, err := NewSubmitter("  Jane Doe ", " jane@example.com", " @jane-doe ")
	require.NoError(t, err)
	assert.Equal(t, Submitter{Name: "Jane Doe", Email: "jane@example.com", PayoutHandle: "jane-doe"}, s)
}

func TestNewSubmitterOnlyStripsOneAt(t *testing.T) {
	s, err := NewSubmitter("a", "b@c", "@@x")
	require.NoError(t, err)
	assert.Equal(t, "@x", s.PayoutHandle)
}

func TestNewSubmitterRequiresAllFields(t *testing.T) {
	for _, tc := range [][3]string{
		{"", "a@b", "h"},
		{"n", "  ", "h"},
		{"n", "a@b", ""},
		{"n", "a@b", "@"},
	} {
		_, err := NewSubmitter(tc[0], tc[1], tc[2])
		assert.Error(t, err, "%q", tc)
	}
}

func TestUploadPhaseTransitions(t *testing.T) {
	assert.True(t, UploadPhaseIdle.CanTransitionTo(UploadPhaseCredentialRequested))
	assert.True(t, UploadPhaseCredentialRequested.CanTransitionTo(UploadPhaseTransferring))
	assert.True(t, UploadPhaseTransferring.CanTransitionTo(UploadPhaseConfirmed))
	assert.True(t, UploadPhaseTransferring.CanTransitionTo(UploadPhaseFailed))

	assert.False(t, UploadPhaseIdle.CanTransitionTo(UploadPhaseTransferring))
	assert.False(t, UploadPhaseCredentialRequested.CanTransitionTo(UploadPhaseConfirmed))
	assert.False(t, UploadPhaseConfirmed.CanTransitionTo(UploadPhaseFailed))
	assert.False(t, UploadPhaseFailed.CanTransitionTo(UploadPhaseIdle))

	assert.True(t, UploadPhaseConfirmed.IsFinal())
	assert.True(t, UploadPhaseFailed.IsFinal())
	assert.False(t, UploadPhaseTransferring.IsFinal())
	assert.False(t, UploadPhase("bogus").IsValid())
}
