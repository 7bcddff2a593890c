package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Succeeded(t *testing.T) {
	assert.True(t, StatusPreviewed.Succeeded())
	assert.True(t, StatusSubmitted.Succeeded())
	assert.True(t, StatusSubmittedUnconfirmed.Succeeded())
	assert.False(t, StatusFailed.Succeeded())

	assert.False(t, StatusPreviewed.Submitted())
	assert.True(t, StatusSubmittedUnconfirmed.Submitted())
}

func TestBatchResult_ComputeOK(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     bool
	}{
		{"empty batch", nil, false},
		{"all failed", []Status{StatusFailed, StatusFailed}, false},
		{"one previewed", []Status{StatusFailed, StatusPreviewed}, true},
		{"unconfirmed counts", []Status{StatusSubmittedUnconfirmed}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &BatchResult{OK: true}
			for _, s := range tt.statuses {
				b.Results = append(b.Results, SubmissionOutcome{Status: s})
			}
			assert.Equal(t, tt.want, b.ComputeOK())
			assert.Equal(t, tt.want, b.OK)
		})
	}
}

func TestBatchResult_Counts(t *testing.T) {
	b := &BatchResult{Results: []SubmissionOutcome{
		{Status: StatusSubmitted}, {Status: StatusFailed}, {Status: StatusSubmitted},
	}}
	counts := b.Counts()
	assert.Equal(t, 2, counts[StatusSubmitted])
	assert.Equal(t, 1, counts[StatusFailed])
	assert.Equal(t, 0, counts[StatusPreviewed])
}
