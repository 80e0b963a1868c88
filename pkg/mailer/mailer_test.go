package mailer

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestMailer(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Mailer Suite")
}

var _ = ginkgo.Describe("LogSender", func() {
	ginkgo.It("logs the recipient and subject but not the body", func() {
		var buf bytes.Buffer
		sender := LogSender{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

		gomega.Expect(sender.Send(context.Background(), "user@example.com", "Payment received", "secret body")).To(gomega.Succeed())
		gomega.Expect(buf.String()).To(gomega.ContainSubstring("user@example.com"))
		gomega.Expect(buf.String()).To(gomega.ContainSubstring("Payment received"))
		gomega.Expect(buf.String()).NotTo(gomega.ContainSubstring("secret body"))
	})
})

var _ = ginkgo.Describe("SMTPSender", func() {
	ginkgo.It("does not dial once the context is done", func() {
		sender := NewSMTPSender(Config{Host: "127.0.0.1", Port: 1, From: "noreply@example.com"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		gomega.Expect(sender.Send(ctx, "user@example.com", "subject", "body")).To(gomega.MatchError(context.Canceled))
	})
})
