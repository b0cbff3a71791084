package kafka

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	handleAttempts = 4
	handleBackoff  = 200 * time.Millisecond
)

// Handler returns nil once the message is fully processed. An error makes the
// consumer retry the same message with backoff.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers}
}

// Start fetches messages and fans them out to the worker pool until ctx is
// done. Group offsets are cumulative, so a later commit moves past any earlier
// message: failures are retried in the worker, and a message that still fails
// is logged and committed. Delivery is at-most-once beyond those retries.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	errs := make(chan error, c.workers)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				if err := handleWithRetry(ctx, h, m, handleAttempts, handleBackoff); err != nil {
					if ctx.Err() != nil {
						// not committed; redelivered after restart
						return
					}
					report(errs, fmt.Errorf("drop %s/%d@%d: %w", m.Topic, m.Partition, m.Offset, err))
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					report(errs, err)
				}
			}
		}()
	}
	defer wg.Wait()
	defer close(jobs)

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			return nil
		}

		select {
		case e := <-errs:
			log.Printf("kafka: %s worker error: %v", c.r.Config().Topic, e)
		default:
		}
	}
}

// handleWithRetry calls h up to attempts times, doubling the wait between
// tries. It gives up early when ctx is done.
func handleWithRetry(ctx context.Context, h Handler, m kafka.Message, attempts int, backoff time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = h(ctx, m); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(backoff << i)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}

func report(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
		log.Printf("kafka: worker error: %v", err)
	}
}
