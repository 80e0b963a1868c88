package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/jarvis4everyone/jarvis-backend/internal/core/events"
)

type published struct {
	exchange   string
	routingKey string
	body       events.Envelope
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{exchange: exchange, routingKey: routingKey, body: body.(events.Envelope)})
	return p.err
}

var _ = ginkgo.Describe("ForwardTo", func() {
	var (
		bus       *events.EventBus
		publisher *recordingPublisher
	)

	ginkgo.BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		bus = events.NewEventBus(logger)
		publisher = &recordingPublisher{}
		events.ForwardTo(bus, publisher, "jarvis.events", logger)
	})

	ginkgo.It("routes each event by its type", func() {
		event := events.NewPaymentFailedEvent(7, "order_7", "card declined")

		gomega.Expect(bus.Publish(context.Background(), event)).To(gomega.Succeed())
		bus.Wait()

		gomega.Expect(publisher.sent).To(gomega.HaveLen(1))
		gomega.Expect(publisher.sent[0].exchange).To(gomega.Equal("jarvis.events"))
		gomega.Expect(publisher.sent[0].routingKey).To(gomega.Equal(events.EventTypePaymentFailed))
		gomega.Expect(publisher.sent[0].body.ID).To(gomega.Equal(event.EventID()))
	})

	ginkgo.It("does not fail the publisher when the broker errors", func() {
		publisher.err = errors.New("connection reset")

		err := bus.PublishSync(context.Background(), events.NewContactSubmittedEvent(1, "A", "a@example.com", "Hi", "Hello"))

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(publisher.sent).To(gomega.HaveLen(1))
	})
})
