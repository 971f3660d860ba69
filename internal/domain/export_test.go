package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExportResult_Tally(t *testing.T) {
	t.Run("all succeeded", func(t *testing.T) {
		r := &ExportResult{Outcomes: []Outcome{
			{Index: 0, Status: OutcomeCreated},
			{Index: 1, Status: OutcomeCreated},
		}}
		r.Tally()

		assert.Equal(t, ExportAllSucceeded, r.Status)
		assert.Equal(t, 2, r.Exported)
		assert.Equal(t, 0, r.Failed)
	})

	t.Run("mixed outcomes yield partial failure", func(t *testing.T) {
		r := &ExportResult{Outcomes: []Outcome{
			{Index: 0, Status: OutcomeCreated},
			{Index: 1, Status: OutcomeFailed},
			{Index: 2, Status: OutcomeNotAttempted},
		}}
		r.Tally()

		assert.Equal(t, ExportPartialFailure, r.Status)
		assert.Equal(t, 1, r.Exported)
		assert.Equal(t, 1, r.Failed)
		assert.Equal(t, 1, r.NotAttempted)
	})

	t.Run("empty outcomes count as all succeeded", func(t *testing.T) {
		r := &ExportResult{}
		r.Tally()
		assert.Equal(t, ExportAllSucceeded, r.Status)
	})

	t.Run("group failed status is terminal", func(t *testing.T) {
		r := &ExportResult{Status: ExportGroupFailed}
		r.Tally()
		assert.Equal(t, ExportGroupFailed, r.Status)
	})
}
