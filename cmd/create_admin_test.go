package cmd

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/jarvis4everyone/jarvis-backend/internal/user"
)

func TestCmd(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Cmd Suite")
}

var _ = ginkgo.Describe("promptMissing", func() {
	ginkgo.It("asks only for the values not given as flags", func() {
		dto := user.CreateUserDTO{Name: "Ada", Email: "ada@example.com"}
		var out bytes.Buffer

		err := promptMissing(&dto, bufio.NewReader(strings.NewReader("+91 98765 43210\nlongpassword\n")), &out)

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(dto.ContactNumber).To(gomega.Equal("+91 98765 43210"))
		gomega.Expect(dto.Password).To(gomega.Equal("longpassword"))
		gomega.Expect(out.String()).To(gomega.Equal("Contact number: Password: "))
	})

	ginkgo.It("accepts a last line without a newline", func() {
		dto := user.CreateUserDTO{Name: "Ada", Email: "ada@example.com", ContactNumber: "123"}

		err := promptMissing(&dto, bufio.NewReader(strings.NewReader("longpassword")), &bytes.Buffer{})

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(dto.Password).To(gomega.Equal("longpassword"))
	})

	ginkgo.It("fails when input runs out", func() {
		dto := user.CreateUserDTO{}

		err := promptMissing(&dto, bufio.NewReader(strings.NewReader("Ada\n")), &bytes.Buffer{})

		gomega.Expect(err).To(gomega.MatchError("email is required"))
	})
})

var _ = ginkgo.Describe("useEnvConfig", func() {
	ginkgo.It("switches to environment config when the platform assigns PORT", func() {
		ginkgo.GinkgoT().Setenv("APP_ENV", "")
		ginkgo.GinkgoT().Setenv("DOCKER_ENV", "")
		ginkgo.GinkgoT().Setenv("PORT", "")
		gomega.Expect(useEnvConfig()).To(gomega.BeFalse())

		ginkgo.GinkgoT().Setenv("PORT", "8080")
		gomega.Expect(useEnvConfig()).To(gomega.BeTrue())
	})
})
