package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/jarvis4everyone/jarvis-backend/pkg/logger"
)

func TestLogger(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Logger Suite")
}

var _ = ginkgo.Describe("Logger", func() {
	ginkgo.It("should write JSON records in production", func() {
		var buf bytes.Buffer
		logger.Init("production", logger.WithOutput(&buf))

		logger.LoggerWrapper().Info("payment verified", "order_id", "order_1")

		var record map[string]interface{}
		gomega.Expect(json.Unmarshal(buf.Bytes(), &record)).To(gomega.Succeed())
		gomega.Expect(record["msg"]).To(gomega.Equal("payment verified"))
		gomega.Expect(record["order_id"]).To(gomega.Equal("order_1"))
	})

	ginkgo.It("should drop records below the configured level", func() {
		var buf bytes.Buffer
		logger.Init("development", logger.WithLevel("warn"), logger.WithOutput(&buf))

		logger.LoggerWrapper().Info("ignored")
		gomega.Expect(buf.Len()).To(gomega.Equal(0))

		logger.LoggerWrapper().Warn("kept")
		gomega.Expect(buf.String()).To(gomega.ContainSubstring("kept"))
	})

	ginkgo.It("should carry fields through the context", func() {
		var buf bytes.Buffer
		logger.Init("production", logger.WithOutput(&buf))

		ctx := logger.With(context.Background(), "traceID", "abc")
		logger.From(ctx).Info("request")

		gomega.Expect(buf.String()).To(gomega.ContainSubstring(`"traceID":"abc"`))
	})
})
