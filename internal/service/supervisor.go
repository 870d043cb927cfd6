package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/randalmurphy/smart-complete/internal/exchange"
)

// predictor is a predictor process that can be replaced while the
// predictor clients keep sending through it.
type predictor struct {
	name string
	args []string
	opts []exchange.Option

	mu       sync.RWMutex
	ch       *exchange.Channel
	closed   bool
	restarts int
}

func startPredictor(name string, args []string, opts ...exchange.Option) (*predictor, error) {
	ch, err := exchange.Start(name, args, opts...)
	if err != nil {
		return nil, err
	}
	return &predictor{name: name, args: args, opts: opts, ch: ch}, nil
}

// Send implements predict.Exchanger.
func (p *predictor) Send(ctx context.Context, request string) (string, bool) {
	p.mu.RLock()
	ch := p.ch
	p.mu.RUnlock()
	return ch.Send(ctx, request)
}

func (p *predictor) alive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed && p.ch.Alive()
}

// restartIfDead replaces the process when it has exited. It reports whether
// a restart happened.
func (p *predictor) restartIfDead() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.ch.Alive() {
		return false, nil
	}

	_ = p.ch.Close()
	ch, err := exchange.Start(p.name, p.args, p.opts...)
	if err != nil {
		return false, fmt.Errorf("restart %s: %w", p.name, err)
	}
	p.ch = ch
	p.restarts++
	return true, nil
}

func (p *predictor) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	return p.ch.Close()
}

// Supervise restarts predictor processes that exited, checking every
// interval until ctx is done.
func (s *Service) Supervise(ctx context.Context, interval time.Duration) error {
	s.logger.Info("starting predictor supervisor", "interval", interval, "predictors", len(s.predictors))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("supervisor shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.checkPredictors()
		}
	}
}

func (s *Service) checkPredictors() {
	for _, p := range s.predictors {
		restarted, err := p.restartIfDead()
		if err != nil {
			s.logger.Error("predictor restart failed", "predictor", p.name, "error", err)
			continue
		}
		if restarted {
			s.logger.Warn("predictor exited, restarted", "predictor", p.name, "restarts", p.restarts)
		}
	}
}
