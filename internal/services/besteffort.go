package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BestEffort is a side effect whose failure is logged and never changes the caller's outcome.
type BestEffort struct {
	Name string
	Run  func(ctx context.Context) error
}

type Outcome struct {
	Name string
	Err  error
	Took time.Duration
}

// BestEffortRunner executes best-effort operations detached from the request that spawned them.
type BestEffortRunner struct {
	timeout time.Duration
	observe func(Outcome)
	wg      sync.WaitGroup
}

func NewBestEffortRunner(timeout time.Duration) *BestEffortRunner {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &BestEffortRunner{timeout: timeout}
}

// OnOutcome registers a hook called after every operation (metrics, tests).
func (r *BestEffortRunner) OnOutcome(fn func(Outcome)) { r.observe = fn }

// Go starts op in the background. The request context's cancellation is dropped but its values are kept.
func (r *BestEffortRunner) Go(ctx context.Context, op BestEffort) {
	if r == nil || op.Run == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				log.Error().Str("op", op.Name).Interface("panic", p).Msg("[best-effort] panicked")
			}
		}()

		start := time.Now()
		err := op.Run(ctx)
		o := Outcome{Name: op.Name, Err: err, Took: time.Since(start)}
		if err != nil {
			log.Warn().Err(err).Str("op", op.Name).Dur("took", o.Took).Msg("[best-effort] failed")
		} else {
			log.Debug().Str("op", op.Name).Dur("took", o.Took).Msg("[best-effort] ok")
		}
		if r.observe != nil {
			r.observe(o)
		}
	}()
}

// Wait blocks until every started operation has finished. Used at shutdown and in tests.
func (r *BestEffortRunner) Wait() { r.wg.Wait() }
