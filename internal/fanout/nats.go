package fanout

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/nats-io/nats.go"
)

const natsSubjectPrefix = "bid_events."

// NATSBroker uses core NATS subjects bid_events.<lot>.
type NATSBroker struct {
	nc *nats.Conn
}

func NewNATSBroker(nc *nats.Conn) *NATSBroker {
	return &NATSBroker{nc: nc}
}

func natsSubject(lotID string) (string, error) {
	if lotID == "" || strings.ContainsAny(lotID, ".*> \t\r\n") {
		return "", fmt.Errorf("nats: lot id %q is not a valid subject token", lotID)
	}
	return natsSubjectPrefix + lotID, nil
}

func (b *NATSBroker) Publish(ctx context.Context, lotID string, frame []byte) error {
	subject, err := natsSubject(lotID)
	if err != nil {
		return err
	}
	return b.nc.Publish(subject, frame)
}

func (b *NATSBroker) Subscribe(ctx context.Context, deliver func(string, []byte)) error {
	sub, err := b.nc.Subscribe(natsSubjectPrefix+"*", func(m *nats.Msg) {
		deliver(strings.TrimPrefix(m.Subject, natsSubjectPrefix), m.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := b.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("nats flush: %w", err)
	}
	log.Printf("fanout: subscribed to nats %s*", natsSubjectPrefix)

	<-ctx.Done()
	return sub.Unsubscribe()
}
