package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-realtime-auctions/internal/obs"
	"github.com/ariefcatur/go-realtime-auctions/internal/redisx"
)

// Job is one periodic sweep. Run derives everything from the store on each
// tick, so a job can be restarted at any point.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// errSkipped marks a tick that did not run because another replica holds the lease.
var errSkipped = errors.New("skipped")

// Every runs job once immediately and then on every interval until ctx is done.
// Tick errors and panics are logged and never stop the loop.
func Every(ctx context.Context, job Job) {
	log.Printf("scheduler: %s every %s", job.Name, job.Interval)
	t := time.NewTicker(job.Interval)
	defer t.Stop()
	for {
		Tick(ctx, job)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Tick runs job once with panic recovery and metrics.
func Tick(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	err := runSafely(ctx, job)
	switch {
	case err == nil:
		obs.SweepsTotal.WithLabelValues(job.Name, "ok").Inc()
		obs.SweepDuration.WithLabelValues(job.Name).Observe(time.Since(start).Seconds())
	case errors.Is(err, errSkipped):
		obs.SweepsTotal.WithLabelValues(job.Name, "skipped").Inc()
	default:
		obs.SweepsTotal.WithLabelValues(job.Name, "error").Inc()
		log.Printf("scheduler: %s tick failed: %v", job.Name, err)
	}
}

func runSafely(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.Run(ctx)
}

// Locked wraps job with a Redis lease so concurrent replicas do not sweep at
// the same time. The lease only saves work; the sweeps are safe without it.
func Locked(rdb redis.Cmdable, ttl time.Duration, job Job) Job {
	key := fmt.Sprintf(redisx.KeySweepLock, job.Name)
	run := job.Run
	job.Run = func(ctx context.Context) error {
		lease, err := redisx.TryLock(ctx, rdb, key, ttl)
		if errors.Is(err, redisx.ErrLeaseHeld) {
			return errSkipped
		}
		if err != nil {
			return err
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				log.Printf("scheduler: release %s: %v", key, err)
			}
		}()
		return run(ctx)
	}
	return job
}
