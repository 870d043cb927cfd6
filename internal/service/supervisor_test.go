package service

import (
	"context"
	"io"
	"log/slog"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSupervisorRestartsExitedPredictor(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	p, err := startPredictor("next_token", []string{sh, "-c", "exit 0"})
	require.NoError(t, err)

	svc := &Service{predictors: []*predictor{p}, logger: quietLogger()}
	defer svc.Close()

	select {
	case <-p.ch.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	svc.checkPredictors()
	assert.Equal(t, 1, p.restarts)

	_, ok := p.Send(context.Background(), "x")
	assert.False(t, ok)
}

func TestSupervisorLeavesLiveAndClosedPredictors(t *testing.T) {
	cat, err := exec.LookPath("cat")
	if err != nil {
		t.Skip("cat not available")
	}

	live, err := startPredictor("relevance", []string{cat})
	require.NoError(t, err)
	closed, err := startPredictor("ident_guesser", []string{cat})
	require.NoError(t, err)
	require.NoError(t, closed.close())

	svc := &Service{predictors: []*predictor{live, closed}, logger: quietLogger()}
	defer svc.Close()

	svc.checkPredictors()
	assert.Equal(t, 0, live.restarts)
	assert.Equal(t, 0, closed.restarts)
	assert.True(t, live.alive())
	assert.False(t, closed.alive())
}

func TestSuperviseStopsOnCancel(t *testing.T) {
	svc := &Service{logger: quietLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Supervise(ctx, time.Millisecond)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}
