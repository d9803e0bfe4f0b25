package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/store"
	"github.com/xovato/agency-backend/pkg/model"
)

type mockStore struct {
	mu             sync.Mutex
	inquiries      []model.Inquiry
	reviews        []model.Review
	listErr        error
	inquiryUpdates map[string]model.InquiryStatus
	reviewUpdates  map[string]model.ReviewStatus
	setErr         error
}

func (m *mockStore) ListInquiries(context.Context, int) ([]model.Inquiry, error) {
	return m.inquiries, m.listErr
}

func (m *mockStore) ListReviews(context.Context, int) ([]model.Review, error) {
	return m.reviews, nil
}

func (m *mockStore) SetInquiryStatus(_ context.Context, id string, st model.InquiryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if m.inquiryUpdates == nil {
		m.inquiryUpdates = map[string]model.InquiryStatus{}
	}
	m.inquiryUpdates[id] = st
	return nil
}

func (m *mockStore) SetReviewStatus(_ context.Context, id string, st model.ReviewStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if m.reviewUpdates == nil {
		m.reviewUpdates = map[string]model.ReviewStatus{}
	}
	m.reviewUpdates[id] = st
	return nil
}

type mockEvents struct {
	payloads []model.StatusChange
	types    []string
}

func (m *mockEvents) PublishEvent(_ context.Context, eventType, _ string, payload any) error {
	m.types = append(m.types, eventType)
	m.payloads = append(m.payloads, payload.(model.StatusChange))
	return nil
}

func TestAllowlist(t *testing.T) {
	a := NewAllowlist([]string{" Ops@Xovato.com ", "", "founder@xovato.com"})
	assert.Equal(t, 2, a.Len())
	assert.True(t, a.IsAuthorized("ops@xovato.com"))
	assert.True(t, a.IsAuthorized("  FOUNDER@xovato.com"))
	assert.False(t, a.IsAuthorized("intruder@example.com"))
	assert.False(t, a.IsAuthorized(""))

	empty := NewAllowlist(nil)
	assert.False(t, empty.IsAuthorized("ops@xovato.com"), "empty list denies everyone")

	var nilList *Allowlist
	assert.False(t, nilList.IsAuthorized("ops@xovato.com"))
}

func TestRequireAdmin(t *testing.T) {
	app := fiber.New()
	app.Use(RequireAdmin(zap.NewNop(), NewAllowlist([]string{"ops@xovato.com"}), "X-Auth-Request-Email"))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(LocalsEmail).(string))
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"allowlisted", "OPS@xovato.com", fiber.StatusOK},
		{"not allowlisted", "guest@example.com", fiber.StatusForbidden},
		{"missing header", "", fiber.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("X-Auth-Request-Email", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestDashboard(t *testing.T) {
	st := &mockStore{
		inquiries: []model.Inquiry{
			{ID: "i1", Status: model.InquiryPending},
			{ID: "i2", Status: model.InquiryPending},
			{ID: "i3", Status: model.InquiryClosed},
		},
		reviews: []model.Review{{ID: "r1", Status: model.ReviewApproved}},
	}
	s := NewService(zap.NewNop(), st, nil, 0)

	d, err := s.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Len(t, d.Inquiries, 3)
	assert.Len(t, d.Reviews, 1)
	assert.Equal(t, 2, d.Counts.Inquiries[model.InquiryPending])
	assert.Equal(t, 1, d.Counts.Reviews[model.ReviewApproved])
}

func TestDashboard_EmptyListsAreNotNil(t *testing.T) {
	s := NewService(zap.NewNop(), &mockStore{}, nil, 0)
	d, err := s.Dashboard(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, d.Inquiries)
	assert.NotNil(t, d.Reviews)
}

func TestDashboard_Error(t *testing.T) {
	s := NewService(zap.NewNop(), &mockStore{listErr: store.ErrUnavailable}, nil, 0)
	_, err := s.Dashboard(context.Background())
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestSetInquiryStatus(t *testing.T) {
	st := &mockStore{}
	ev := &mockEvents{}
	s := NewService(zap.NewNop(), st, ev, 0)

	require.NoError(t, s.SetInquiryStatus(context.Background(), "i1", "Contacted", "ops@xovato.com"))
	assert.Equal(t, model.InquiryContacted, st.inquiryUpdates["i1"])
	require.Len(t, ev.payloads, 1)
	assert.Equal(t, model.EventInquiryStatusChanged, ev.types[0])
	assert.Equal(t, "contacted", ev.payloads[0].Status)
	assert.Equal(t, "ops@xovato.com", ev.payloads[0].ChangedBy)

	err := s.SetInquiryStatus(context.Background(), "i1", "archived", "")
	assert.ErrorIs(t, err, model.ErrInvalidStatus)
	assert.Len(t, ev.payloads, 1)
}

func TestSetReviewStatus(t *testing.T) {
	st := &mockStore{}
	ev := &mockEvents{}
	s := NewService(zap.NewNop(), st, ev, 0)

	require.NoError(t, s.SetReviewStatus(context.Background(), "r1", "approved", ""))
	assert.Equal(t, model.ReviewApproved, st.reviewUpdates["r1"])
	assert.Equal(t, []string{model.EventReviewStatusChanged}, ev.types)

	st.setErr = store.ErrNotFound
	err := s.SetReviewStatus(context.Background(), "missing", "hidden", "")
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.Len(t, ev.types, 1, "no event for a failed update")
}
