package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avramidis/tradewinds/internal/harvest"
)

type stubJob struct {
	name string
	err  error
	runs int
}

func (j *stubJob) Run() error   { j.runs++; return j.err }
func (j *stubJob) Name() string { return j.name }

type stubHarvester struct {
	results     []harvest.Summary
	maxPriority int
	hasDeadline bool
}

func (s *stubHarvester) RunAll(ctx context.Context, maxPriority int) []harvest.Summary {
	s.maxPriority = maxPriority
	_, s.hasDeadline = ctx.Deadline()
	return s.results
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob(DailyRefreshSpec, &stubJob{name: "refresh"})
	assert.NoError(t, err)
}

func TestScheduler_AddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("not a schedule", &stubJob{name: "refresh"})
	assert.Error(t, err)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &stubJob{name: "refresh"}

	err := s.RunNow(job)
	require.NoError(t, err)
	assert.Equal(t, 1, job.runs)
}

func TestScheduler_RunNow_PropagatesError(t *testing.T) {
	s := New(zerolog.Nop())
	job := &stubJob{name: "refresh", err: errors.New("boom")}

	err := s.RunNow(job)
	assert.EqualError(t, err, "boom")
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob(DailyRefreshSpec, &stubJob{name: "refresh"}))

	s.Start()
	s.Stop()
}

func TestRefreshJob_Run(t *testing.T) {
	engine := &stubHarvester{results: []harvest.Summary{
		{JobName: "india_rcn_imports", Status: harvest.StatusSuccess, NormalizedCount: 40},
		{JobName: "india_sesame_exports", Status: harvest.StatusSuccess, NormalizedCount: 25},
	}}
	job := NewRefreshJob(engine, zerolog.Nop())

	err := job.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, engine.maxPriority)
	assert.True(t, engine.hasDeadline)
}

func TestRefreshJob_Run_SkippedIsNotFailure(t *testing.T) {
	engine := &stubHarvester{results: []harvest.Summary{
		{JobName: "india_rcn_imports", Status: harvest.StatusSkipped},
		{JobName: "india_sesame_exports", Status: harvest.StatusSkipped},
	}}
	job := NewRefreshJob(engine, zerolog.Nop())

	assert.NoError(t, job.Run())
}

func TestRefreshJob_Run_ReportsFailures(t *testing.T) {
	engine := &stubHarvester{results: []harvest.Summary{
		{JobName: "india_rcn_imports", Status: harvest.StatusSuccess},
		{JobName: "india_sesame_exports", Status: harvest.StatusFailed, Error: "upstream 500"},
		{JobName: "india_rice_exports", Status: harvest.StatusFailed, Error: "upstream 500"},
	}}
	job := NewRefreshJob(engine, zerolog.Nop())

	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 jobs failed")
}

func TestRefreshJob_Name(t *testing.T) {
	job := NewRefreshJob(&stubHarvester{}, zerolog.Nop())
	assert.Equal(t, "daily_refresh", job.Name())
}
