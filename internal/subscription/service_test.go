package subscription

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	subscriptionDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/subscription"
	"github.com/jarvis4everyone/jarvis-backend/internal/core/events"
)

func TestSubscription(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Subscription Module Suite")
}

type mockRepository struct {
	subs   map[int64]*subscriptionDatamodel.Subscription
	users  map[int64]bool
	nextID int64
	// staleExtends makes the next ExtendTo calls report a concurrent update.
	staleExtends int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		subs:   map[int64]*subscriptionDatamodel.Subscription{},
		users:  map[int64]bool{1: true, 2: true},
		nextID: 1,
	}
}

func (m *mockRepository) WithTx(_ context.Context, fn func(repo RepositoryAPI) error) error {
	return fn(m)
}

func (m *mockRepository) Create(_ context.Context, s *subscriptionDatamodel.Subscription) error {
	s.ID = m.nextID
	m.nextID++
	cp := *s
	m.subs[s.ID] = &cp
	return nil
}

func (m *mockRepository) sorted(userID int64, statuses ...string) []*subscriptionDatamodel.Subscription {
	var out []*subscriptionDatamodel.Subscription
	for _, s := range m.subs {
		if s.UserID != userID {
			continue
		}
		for _, st := range statuses {
			if s.Status == st {
				cp := *s
				out = append(out, &cp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *mockRepository) Latest(_ context.Context, userID int64) (*subscriptionDatamodel.Subscription, error) {
	rows := m.sorted(userID, subscriptionDatamodel.StatusActive, subscriptionDatamodel.StatusExpired)
	if len(rows) == 0 {
		return nil, ErrSubscriptionNotFound
	}
	return rows[0], nil
}

func (m *mockRepository) GetActive(_ context.Context, userID int64) (*subscriptionDatamodel.Subscription, error) {
	rows := m.sorted(userID, subscriptionDatamodel.StatusActive)
	if len(rows) == 0 {
		return nil, ErrSubscriptionNotFound
	}
	return rows[0], nil
}

func (m *mockRepository) ExtendTo(_ context.Context, id int64, expectedEnd, newEnd, now time.Time) error {
	if m.staleExtends > 0 {
		m.staleExtends--
		return ErrConcurrentUpdate
	}
	s, ok := m.subs[id]
	if !ok || !s.EndDate.Equal(expectedEnd) {
		return ErrConcurrentUpdate
	}
	s.EndDate = newEnd
	s.UpdatedAt = now
	return nil
}

func (m *mockRepository) setStatus(userID int64, to string, now time.Time, from ...string) int64 {
	var n int64
	for _, s := range m.subs {
		if s.UserID != userID {
			continue
		}
		for _, st := range from {
			if s.Status == st {
				s.Status = to
				s.UpdatedAt = now
				if to == subscriptionDatamodel.StatusCancelled {
					s.CancelledAt = &now
				}
				n++
				break
			}
		}
	}
	return n
}

func (m *mockRepository) CancelOpen(_ context.Context, userID int64, now time.Time) (int64, error) {
	return m.setStatus(userID, subscriptionDatamodel.StatusCancelled, now, subscriptionDatamodel.StatusActive, subscriptionDatamodel.StatusExpired), nil
}

func (m *mockRepository) CancelActive(_ context.Context, userID int64, now time.Time) (int64, error) {
	return m.setStatus(userID, subscriptionDatamodel.StatusCancelled, now, subscriptionDatamodel.StatusActive), nil
}

func (m *mockRepository) ExpireForUser(_ context.Context, userID int64, now time.Time) (int64, error) {
	var n int64
	for _, s := range m.subs {
		if s.UserID == userID && s.Status == subscriptionDatamodel.StatusActive && s.EndDate.Before(now) {
			s.Status = subscriptionDatamodel.StatusExpired
			n++
		}
	}
	return n, nil
}

func (m *mockRepository) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, s := range m.subs {
		if s.Status == subscriptionDatamodel.StatusActive && s.EndDate.Before(now) {
			s.Status = subscriptionDatamodel.StatusExpired
			n++
		}
	}
	return n, nil
}

func (m *mockRepository) DeleteForUser(_ context.Context, userID int64) error {
	for id, s := range m.subs {
		if s.UserID == userID {
			delete(m.subs, id)
		}
	}
	return nil
}

func (m *mockRepository) List(_ context.Context, skip, limit int) ([]*subscriptionDatamodel.Subscription, error) {
	var out []*subscriptionDatamodel.Subscription
	for _, s := range m.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRepository) UserExists(_ context.Context, userID int64) (bool, error) {
	return m.users[userID], nil
}

func statusOf(err error) int {
	appErr, ok := errors.IsAppError(err)
	gomega.Expect(ok).To(gomega.BeTrue(), "expected an AppError, got %v", err)
	return appErr.StatusCode
}

var _ = ginkgo.Describe("SubscriptionService", func() {
	var (
		service *Service
		repo    *mockRepository
		bus     *events.EventBus
		now     time.Time
		ctx     context.Context
	)

	ginkgo.BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		repo = newMockRepository()
		bus = events.NewEventBus(logger)
		service = NewService(repo, bus, logger)
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		service.now = func() time.Time { return now }
		ctx = context.Background()
	})

	seed := func(userID int64, status string, start, end time.Time) *subscriptionDatamodel.Subscription {
		s := &subscriptionDatamodel.Subscription{
			UserID: userID, PlanID: subscriptionDatamodel.PlanMonthly, Status: status,
			StartDate: start, EndDate: end, CreatedAt: start, UpdatedAt: start,
		}
		gomega.Expect(repo.Create(ctx, s)).To(gomega.Succeed())
		return s
	}

	ginkgo.Describe("Subscription state", func() {
		ginkgo.It("treats cancelled subscriptions as neither active nor expired", func() {
			s := &Subscription{Status: subscriptionDatamodel.StatusCancelled, EndDate: now.Add(-time.Hour)}

			gomega.Expect(s.IsExpired(now)).To(gomega.BeFalse())
			gomega.Expect(s.IsActive(now)).To(gomega.BeFalse())
		})

		ginkgo.It("is active until the end date passes", func() {
			s := &Subscription{Status: subscriptionDatamodel.StatusActive, EndDate: now}

			gomega.Expect(s.IsActive(now)).To(gomega.BeTrue())
			gomega.Expect(s.IsActive(now.Add(time.Second))).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("Renew", func() {
		ginkgo.Context("when the user has a running subscription", func() {
			ginkgo.It("advances the end date by exactly one period", func() {
				// Given
				existing := seed(1, subscriptionDatamodel.StatusActive, now.Add(-10*24*time.Hour), now.Add(20*24*time.Hour))

				// When
				renewed, err := service.Renew(ctx, 1, 1)

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(renewed.ID).To(gomega.Equal(existing.ID))
				gomega.Expect(renewed.EndDate).To(gomega.Equal(existing.EndDate.Add(Period)))
				gomega.Expect(renewed.StartDate).To(gomega.Equal(existing.StartDate))
				gomega.Expect(repo.subs).To(gomega.HaveLen(1))
			})

			ginkgo.It("retries when the row changed underneath it", func() {
				existing := seed(1, subscriptionDatamodel.StatusActive, now, now.Add(Period))
				repo.staleExtends = 1

				renewed, err := service.Renew(ctx, 1, 1)

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(renewed.EndDate).To(gomega.Equal(existing.EndDate.Add(Period)))
			})
		})

		ginkgo.Context("when the subscription lapsed", func() {
			ginkgo.It("cancels the old rows and starts a new one now", func() {
				// Given
				old := seed(1, subscriptionDatamodel.StatusActive, now.Add(-40*24*time.Hour), now.Add(-10*24*time.Hour))
				expired := seed(1, subscriptionDatamodel.StatusExpired, now.Add(-80*24*time.Hour), now.Add(-50*24*time.Hour))

				// When
				renewed, err := service.Renew(ctx, 1, 2)

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(renewed.ID).ToNot(gomega.Equal(old.ID))
				gomega.Expect(renewed.StartDate).To(gomega.Equal(now))
				gomega.Expect(renewed.EndDate).To(gomega.Equal(now.Add(2 * Period)))
				gomega.Expect(repo.subs[old.ID].Status).To(gomega.Equal(subscriptionDatamodel.StatusCancelled))
				gomega.Expect(repo.subs[expired.ID].Status).To(gomega.Equal(subscriptionDatamodel.StatusCancelled))
			})
		})

		ginkgo.It("creates a first subscription for a new subscriber", func() {
			received := make(chan events.Event, 1)
			bus.Subscribe(events.EventTypeSubscriptionRenewed, func(_ context.Context, e events.Event) error {
				received <- e
				return nil
			})

			renewed, err := service.Renew(ctx, 2, 1)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(renewed.Status).To(gomega.Equal(subscriptionDatamodel.StatusActive))
			gomega.Expect(renewed.PlanID).To(gomega.Equal(subscriptionDatamodel.PlanMonthly))
			gomega.Eventually(received).Should(gomega.Receive())
		})

		ginkgo.It("rejects non-positive months", func() {
			_, err := service.Renew(ctx, 1, 0)

			gomega.Expect(statusOf(err)).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("Get", func() {
		ginkgo.It("returns 404 when the user never subscribed", func() {
			_, err := service.Get(ctx, 1)

			gomega.Expect(statusOf(err)).To(gomega.Equal(http.StatusNotFound))
		})

		ginkgo.It("returns the newest active or expired subscription", func() {
			seed(1, subscriptionDatamodel.StatusExpired, now.Add(-60*24*time.Hour), now.Add(-30*24*time.Hour))
			latest := seed(1, subscriptionDatamodel.StatusActive, now, now.Add(Period))
			seed(1, subscriptionDatamodel.StatusCancelled, now, now.Add(Period))

			got, err := service.Get(ctx, 1)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(got.ID).To(gomega.Equal(latest.ID))
		})
	})

	ginkgo.Describe("Cancel", func() {
		ginkgo.It("cancels the active subscription", func() {
			s := seed(1, subscriptionDatamodel.StatusActive, now, now.Add(Period))

			gomega.Expect(service.Cancel(ctx, 1)).To(gomega.Succeed())
			gomega.Expect(repo.subs[s.ID].Status).To(gomega.Equal(subscriptionDatamodel.StatusCancelled))
			gomega.Expect(repo.subs[s.ID].CancelledAt).ToNot(gomega.BeNil())
		})

		ginkgo.It("returns 404 without an active subscription", func() {
			seed(1, subscriptionDatamodel.StatusExpired, now.Add(-2*Period), now.Add(-Period))

			gomega.Expect(statusOf(service.Cancel(ctx, 1))).To(gomega.Equal(http.StatusNotFound))
		})
	})

	ginkgo.Describe("Extend", func() {
		ginkgo.It("adds months to the active subscription", func() {
			s := seed(1, subscriptionDatamodel.StatusActive, now, now.Add(Period))

			extended, err := service.Extend(ctx, 1, 3)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(extended.EndDate).To(gomega.Equal(s.EndDate.Add(3 * Period)))
		})

		ginkgo.It("returns 404 when there is nothing to extend", func() {
			_, err := service.Extend(ctx, 1, 1)

			gomega.Expect(statusOf(err)).To(gomega.Equal(http.StatusNotFound))
		})
	})

	ginkgo.Describe("Activate", func() {
		ginkgo.It("replaces the open subscription", func() {
			old := seed(1, subscriptionDatamodel.StatusActive, now.Add(-time.Hour), now.Add(Period))

			created, err := service.Activate(ctx, 1, 6)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(created.EndDate).To(gomega.Equal(now.Add(6 * Period)))
			gomega.Expect(repo.subs[old.ID].Status).To(gomega.Equal(subscriptionDatamodel.StatusCancelled))
		})

		ginkgo.It("returns 404 for unknown users", func() {
			_, err := service.Activate(ctx, 42, 1)

			gomega.Expect(statusOf(err)).To(gomega.Equal(http.StatusNotFound))
		})
	})

	ginkgo.Describe("Expiry", func() {
		ginkgo.It("expires lapsed subscriptions of one user on login", func() {
			lapsed := seed(1, subscriptionDatamodel.StatusActive, now.Add(-2*Period), now.Add(-time.Minute))
			other := seed(2, subscriptionDatamodel.StatusActive, now.Add(-2*Period), now.Add(-time.Minute))

			gomega.Expect(service.ExpireIfDue(ctx, 1)).To(gomega.Succeed())

			gomega.Expect(repo.subs[lapsed.ID].Status).To(gomega.Equal(subscriptionDatamodel.StatusExpired))
			gomega.Expect(repo.subs[other.ID].Status).To(gomega.Equal(subscriptionDatamodel.StatusActive))
		})

		ginkgo.It("sweeps every lapsed subscription", func() {
			seed(1, subscriptionDatamodel.StatusActive, now.Add(-2*Period), now.Add(-time.Minute))
			seed(2, subscriptionDatamodel.StatusActive, now.Add(-2*Period), now.Add(-time.Minute))
			seed(2, subscriptionDatamodel.StatusActive, now, now.Add(Period))

			n, err := service.ExpireDue(ctx)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(n).To(gomega.Equal(int64(2)))
		})
	})
})
