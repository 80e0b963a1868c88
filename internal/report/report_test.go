package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	contactDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/contact"
	paymentDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/payment"
	subscriptionDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/subscription"
	userDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/user"
)

func TestReport(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Report Suite")
}

var _ = ginkgo.Describe("Stats", func() {
	var (
		gdb  *gorm.DB
		repo *Repository
		now  time.Time
	)

	ginkgo.BeforeEach(func() {
		var err error
		gdb, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		sqlDB, err := gdb.DB()
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		gomega.Expect(gdb.AutoMigrate(
			&userDatamodel.User{},
			&subscriptionDatamodel.Subscription{},
			&paymentDatamodel.Payment{},
			&contactDatamodel.Contact{},
		)).To(gomega.Succeed())

		repo = NewRepository(sqlx.NewDb(sqlDB, "sqlite3"))
		now = time.Now().UTC()

		// Given two users, one live and one lapsed subscription, two
		// completed payments, one pending payment and one new contact.
		for _, email := range []string{"a@example.com", "b@example.com"} {
			gomega.Expect(gdb.Create(&userDatamodel.User{Name: "U", Email: email, PasswordHash: "x"}).Error).To(gomega.Succeed())
		}
		gomega.Expect(gdb.Create(&subscriptionDatamodel.Subscription{
			UserID: 1, PlanID: subscriptionDatamodel.PlanMonthly, Status: subscriptionDatamodel.StatusActive,
			StartDate: now.Add(-time.Hour), EndDate: now.Add(24 * time.Hour),
		}).Error).To(gomega.Succeed())
		gomega.Expect(gdb.Create(&subscriptionDatamodel.Subscription{
			UserID: 2, PlanID: subscriptionDatamodel.PlanMonthly, Status: subscriptionDatamodel.StatusActive,
			StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(-time.Hour),
		}).Error).To(gomega.Succeed())
		for i, status := range []string{paymentDatamodel.StatusCompleted, paymentDatamodel.StatusCompleted, paymentDatamodel.StatusPending} {
			gomega.Expect(gdb.Create(&paymentDatamodel.Payment{
				Email: "a@example.com", PlanID: subscriptionDatamodel.PlanMonthly, AmountMinor: 29900,
				Currency: "INR", RazorpayOrderID: "order_" + string(rune('a'+i)), Status: status,
			}).Error).To(gomega.Succeed())
		}
		gomega.Expect(gdb.Create(&contactDatamodel.Contact{
			Name: "C", Email: "c@example.com", Subject: "Hi", Message: "Hello", Status: contactDatamodel.StatusNew,
		}).Error).To(gomega.Succeed())
	})

	ginkgo.It("aggregates users, subscriptions, payments and contacts", func() {
		stats, err := repo.Stats(context.Background(), now)

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(stats.TotalUsers).To(gomega.Equal(int64(2)))
		gomega.Expect(stats.ActiveSubscriptions).To(gomega.Equal(int64(1)))
		gomega.Expect(stats.CompletedPayments).To(gomega.Equal(int64(2)))
		gomega.Expect(stats.RevenueMinor).To(gomega.Equal(int64(59800)))
		gomega.Expect(stats.PendingPayments).To(gomega.Equal(int64(1)))
		gomega.Expect(stats.NewContacts).To(gomega.Equal(int64(1)))
	})

	ginkgo.It("serves the stats as JSON", func() {
		handler := NewHandler(repo)
		rec := httptest.NewRecorder()

		handler.AdminStats(rec, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		var body map[string]interface{}
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		gomega.Expect(body).To(gomega.HaveKeyWithValue("revenue_minor", float64(59800)))
	})
})
