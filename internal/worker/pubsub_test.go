package worker_test

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestiq/harvestiq/internal/worker"
)

func newProcessor(f *fakeFetcher) *worker.JobProcessor {
	job := newJob(f, worker.RefreshConfig{Targets: testTargets()})
	return worker.NewJobProcessor(job, zerolog.New(io.Discard))
}

func TestJobProcessor_WeatherRefresh(t *testing.T) {
	t.Run("all districts", func(t *testing.T) {
		f := &fakeFetcher{}
		err := newProcessor(f).Process(context.Background(), []byte(`{"job_type":"weather_refresh"}`))

		require.NoError(t, err)
		assert.Len(t, f.locations, 3)
	})

	t.Run("selected districts", func(t *testing.T) {
		f := &fakeFetcher{}
		err := newProcessor(f).Process(context.Background(), []byte(`{"job_type":"weather_refresh","districts":["nagpur"]}`))

		require.NoError(t, err)
		assert.Equal(t, []string{"Nagpur, Maharashtra"}, f.locations)
	})

	t.Run("no known districts", func(t *testing.T) {
		f := &fakeFetcher{}
		err := newProcessor(f).Process(context.Background(), []byte(`{"job_type":"weather_refresh","districts":["atlantis"]}`))

		assert.ErrorIs(t, err, worker.ErrMalformedMessage)
		assert.Empty(t, f.locations)
	})

	t.Run("mostly failing asks for redelivery", func(t *testing.T) {
		f := &fakeFetcher{fail: map[string]bool{"Pune, Maharashtra": true, "Nashik, Maharashtra": true}}
		err := newProcessor(f).Process(context.Background(), []byte(`{"job_type":"weather_refresh"}`))

		require.Error(t, err)
		assert.NotErrorIs(t, err, worker.ErrMalformedMessage)
	})

	t.Run("minority failing succeeds", func(t *testing.T) {
		f := &fakeFetcher{fail: map[string]bool{"Pune, Maharashtra": true}}
		err := newProcessor(f).Process(context.Background(), []byte(`{"job_type":"weather_refresh"}`))

		assert.NoError(t, err)
	})
}

func TestJobProcessor_HealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		f := &fakeFetcher{}
		err := newProcessor(f).Process(context.Background(), []byte(`{"job_type":"health_check"}`))

		require.NoError(t, err)
		// Only the highest priority district is probed
		assert.Equal(t, []string{"Pune, Maharashtra"}, f.locations)
	})

	t.Run("provider down", func(t *testing.T) {
		f := &fakeFetcher{fail: map[string]bool{"Pune, Maharashtra": true}}
		err := newProcessor(f).Process(context.Background(), []byte(`{"job_type":"health_check"}`))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "upstream unavailable")
	})
}

func TestJobProcessor_BadMessages(t *testing.T) {
	f := &fakeFetcher{}
	p := newProcessor(f)

	err := p.Process(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, worker.ErrMalformedMessage)

	err = p.Process(context.Background(), []byte(`{"job_type":"alert_evaluation"}`))
	assert.ErrorIs(t, err, worker.ErrUnknownJobType)

	assert.Empty(t, f.locations)
}
