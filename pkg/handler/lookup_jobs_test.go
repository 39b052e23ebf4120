package handler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupJobManager(t *testing.T) {
	m := NewLookupJobManager()
	a := m.NewJob("M00001")
	b := m.NewJob("M00002")
	c := m.NewJob("M00003")

	m.SetRunning(a.ID)
	m.CompleteJob(a.ID, false)
	m.CompleteJob(b.ID, true)
	m.FailJob(c.ID, errors.New("status 500"))
	m.FailJob("unknown", errors.New("ignored"))

	job, ok := m.GetJob(a.ID)
	require.True(t, ok)
	assert.Equal(t, LookupJobCompleted, job.Status)
	assert.NotEqual(t, a.ID, b.ID)

	counts := m.Counts()
	assert.Equal(t, 1, counts[LookupJobCompleted])
	assert.Equal(t, 1, counts[LookupJobCached])
	assert.Equal(t, 1, counts[LookupJobFailed])

	failed := m.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "M00003", failed[0].Module)
	assert.Equal(t, "status 500", failed[0].Error)
}
