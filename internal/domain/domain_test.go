package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestUploadStatus_CanTransition(t *testing.T) {
	testCases := []struct {
		from UploadStatus
		to   UploadStatus
		want bool
	}{
		{UploadStatusPending, UploadStatusProcessing, true},
		{UploadStatusPending, UploadStatusFailed, true},
		{UploadStatusPending, UploadStatusCompleted, false},
		{UploadStatusProcessing, UploadStatusProcessing, true},
		{UploadStatusProcessing, UploadStatusCompleted, true},
		{UploadStatusProcessing, UploadStatusFailed, true},
		{UploadStatusProcessing, UploadStatusPending, false},
		{UploadStatusCompleted, UploadStatusProcessing, false},
		{UploadStatusCompleted, UploadStatusFailed, false},
		{UploadStatusFailed, UploadStatusProcessing, false},
		{UploadStatusFailed, UploadStatusCompleted, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.from.CanTransition(tc.to))
		})
	}
}

func TestUploadJob_MarkCompleted(t *testing.T) {
	job := &UploadJob{Status: UploadStatusProcessing}
	now := time.Now()

	require.NoError(t, job.MarkCompleted(now))
	assert.Equal(t, UploadStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
	assert.True(t, job.CompletedAt.Equal(now))

	// terminal jobs never move again
	assert.Error(t, job.MarkFailed("late failure"))
	assert.Nil(t, job.ErrorMessage)
}

func TestUploadJob_MarkFailed(t *testing.T) {
	job := &UploadJob{Status: UploadStatusProcessing}

	require.NoError(t, job.MarkFailed("file not found"))
	assert.Equal(t, UploadStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "file not found", *job.ErrorMessage)
	assert.Nil(t, job.CompletedAt)
}

func TestUploadJob_ProgressPercentage(t *testing.T) {
	testCases := []struct {
		name      string
		total     *int
		processed int
		want      int
	}{
		{name: "unknown total", total: nil, processed: 5, want: 0},
		{name: "zero total", total: intPtr(0), processed: 0, want: 0},
		{name: "half", total: intPtr(10), processed: 5, want: 50},
		{name: "rounds up", total: intPtr(3), processed: 2, want: 67},
		{name: "rounds down", total: intPtr(3), processed: 1, want: 33},
		{name: "complete", total: intPtr(7), processed: 7, want: 100},
		{name: "failed rows excluded", total: intPtr(4), processed: 3, want: 75},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			job := &UploadJob{TotalRecords: tc.total, ProcessedRecords: tc.processed}
			got := job.ProgressPercentage()
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}
