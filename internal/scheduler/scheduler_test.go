package scheduler

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendAllocator/internal/advisor"
)

type countingRunner struct {
	calls int
}

func (r *countingRunner) Run(_ context.Context) *advisor.Outcome {
	r.calls++
	return &advisor.Outcome{RunID: "test"}
}

func TestRegister_InvalidSpec(t *testing.T) {
	s := NewScheduler(context.Background(), &countingRunner{}, time.UTC, zerolog.Nop())
	assert.Error(t, s.Register("not a cron"))
	assert.True(t, s.Next().IsZero())
}

func TestRegister_NextRun(t *testing.T) {
	s := NewScheduler(context.Background(), &countingRunner{}, time.UTC, zerolog.Nop())
	require.NoError(t, s.Register("0 0 8 * * 1"))
	s.Start()
	defer s.Stop()

	next := s.Next()
	require.False(t, next.IsZero())
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 8, next.Hour())
	assert.True(t, next.After(time.Now()))
}

func TestRunNow(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(context.Background(), runner, nil, zerolog.Nop())
	s.RunNow()
	assert.Equal(t, 1, runner.calls)
}

func TestRunNow_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := &countingRunner{}
	s := NewScheduler(ctx, runner, time.UTC, zerolog.Nop())
	s.RunNow()
	assert.Equal(t, 0, runner.calls)
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	l := cronLogger{log: zerolog.New(&buf)}
	l.Error(errors.New("panic"), "job failed", "entry", 1)
	assert.Contains(t, buf.String(), `"message":"cron: job failed"`)
	assert.Contains(t, buf.String(), `"entry":1`)
	assert.Contains(t, buf.String(), `"error":"panic"`)
}
