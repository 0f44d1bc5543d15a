package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBatchStatus(t *testing.T) {
	tests := []struct {
		in   string
		want BatchStatus
	}{
		{"validating", BatchStatusValidating},
		{"in_progress", BatchStatusInProgress},
		{"finalizing", BatchStatusFinalizing},
		{"completed", BatchStatusCompleted},
		{"failed", BatchStatusFailed},
		{"expired", BatchStatusExpired},
		{"cancelling", BatchStatusCancelling},
		{"cancelled", BatchStatusCancelled},
		{"something_new", BatchStatusUnknown},
		{"", BatchStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseBatchStatus(tt.in))
		})
	}
}

func TestBatchStatusTerminal(t *testing.T) {
	terminal := []BatchStatus{
		BatchStatusCompleted, BatchStatusFailed, BatchStatusExpired, BatchStatusCancelled,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}

	active := []BatchStatus{
		BatchStatusValidating, BatchStatusInProgress, BatchStatusFinalizing,
		BatchStatusCancelling, BatchStatusUnknown,
	}
	for _, s := range active {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}
