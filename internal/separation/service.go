package separation

import (
	"context"
	"errors"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/semaphore"

	"stemsplit/internal/engine"
)

type Engine interface {
	Name() string
	Separate(ctx context.Context, req engine.Request) (engine.Stems, error)
}

type Observer func(engineName, format, outcome string, duration time.Duration)

type Option func(*Service)

func WithObserver(fn Observer) Option {
	return func(s *Service) {
		if fn != nil {
			s.observe = fn
		}
	}
}

type Service struct {
	engine  Engine
	timeout time.Duration
	sem     *semaphore.Weighted
	observe Observer
}

func New(eng Engine, timeout time.Duration, maxConcurrent int64, opts ...Option) *Service {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	s := &Service{
		engine:  eng,
		timeout: timeout,
		sem:     semaphore.NewWeighted(maxConcurrent),
		observe: func(engineName, format, outcome string, duration time.Duration) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) EngineName() string {
	return s.engine.Name()
}

func (s *Service) Separate(ctx context.Context, audio []byte) (stems engine.Stems, err error) {
	started := time.Now()
	format := mimetype.Detect(audio)

	defer func() {
		s.observe(s.engine.Name(), format.String(), outcomeFor(err), time.Since(started))
	}()

	// Queue wait counts against the same budget as the separation itself.
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err = s.sem.Acquire(ctx, 1); err != nil {
		return engine.Stems{}, err
	}
	defer s.sem.Release(1)

	stems, err = s.engine.Separate(ctx, engine.Request{
		Audio: audio,
		MIME:  format.String(),
		Ext:   format.Extension(),
	})
	if err != nil {
		return engine.Stems{}, err
	}

	if stems.Vocals == nil || stems.Accompaniment == nil {
		err = &engine.Error{Engine: s.engine.Name(), Detail: "engine returned incomplete stems"}
		return engine.Stems{}, err
	}
	return stems, nil
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
