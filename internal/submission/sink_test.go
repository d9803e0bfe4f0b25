package submission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/notify"
	"github.com/xovato/agency-backend/internal/wizard"
	"github.com/xovato/agency-backend/pkg/model"
)

type fakeWriter struct {
	mu   sync.Mutex
	rows []model.Inquiry
	err  error
}

func (f *fakeWriter) CreateInquiry(_ context.Context, inq model.Inquiry) (model.Inquiry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.Inquiry{}, f.err
	}
	inq.ID = "11111111-2222-3333-4444-555555555555"
	f.rows = append(f.rows, inq)
	return inq, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (f *fakeEvents) PublishEvent(_ context.Context, eventType, sessionID string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType+"/"+sessionID)
	return f.err
}

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []notify.Job
	err  error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, job notify.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return f.err
}

func sampleInquiry() model.Inquiry {
	return model.Inquiry{
		Service:          model.ServiceWebsite,
		ProjectTypes:     []string{"E-Commerce", "Landing Page"},
		EstimatedCostUSD: 8200,
		ClientCurrency:   "PKR",
		ClientName:       "Jane",
		ClientEmail:      "jane@example.com",
		Status:           model.InquiryPending,
		CreatedAt:        time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestSubmit_Success(t *testing.T) {
	w := &fakeWriter{}
	ev := &fakeEvents{}
	d := &fakeDispatcher{}
	s := NewSink(zap.NewNop(), w, ev, d, time.Second)

	saved, err := s.Submit(context.Background(), "sess-1", sampleInquiry())
	require.NoError(t, err)
	s.Wait()

	assert.NotEmpty(t, saved.ID)
	assert.Len(t, w.rows, 1)
	assert.Equal(t, []string{"inquiry.created/sess-1"}, ev.events)

	require.Len(t, d.jobs, 1)
	job := d.jobs[0]
	assert.Equal(t, notify.KindScheduleCall, job.Kind)
	assert.Equal(t, "schedule_call", job.Params["action"])
	assert.Equal(t, saved.ID, job.Params["id"])
	assert.Equal(t, "2025-03-01T10:00:00Z", job.Params["created_at"])
}

func TestSubmit_WriteFailureSkipsFollowUps(t *testing.T) {
	w := &fakeWriter{err: errors.New("connection refused")}
	ev := &fakeEvents{}
	d := &fakeDispatcher{}
	s := NewSink(zap.NewNop(), w, ev, d, time.Second)

	_, err := s.Submit(context.Background(), "sess-1", sampleInquiry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	s.Wait()

	assert.Empty(t, ev.events)
	assert.Empty(t, d.jobs)
}

func TestSubmit_SecondaryFailuresAreSwallowed(t *testing.T) {
	w := &fakeWriter{}
	ev := &fakeEvents{err: errors.New("nats: no responders")}
	d := &fakeDispatcher{err: errors.New("calendar returned 500")}
	s := NewSink(zap.NewNop(), w, ev, d, time.Second)

	saved, err := s.Submit(context.Background(), "", sampleInquiry())
	require.NoError(t, err)
	s.Wait()
	assert.NotEmpty(t, saved.ID)
	assert.Len(t, d.jobs, 1)
}

func TestSubmit_NilCollaborators(t *testing.T) {
	s := NewSink(nil, &fakeWriter{}, nil, nil, 0)
	_, err := s.Submit(context.Background(), "", sampleInquiry())
	require.NoError(t, err)
	s.Wait()
}

func TestCalendarPayload_OptionalBudget(t *testing.T) {
	inq := sampleInquiry()
	_, ok := CalendarPayload(inq)["budget"]
	assert.False(t, ok)

	inq.Budget = "growth"
	assert.Equal(t, "growth", CalendarPayload(inq)["budget"])
}

type fixedEstimate float64

func (f fixedEstimate) Estimate(context.Context, string, []string, string) float64 { return float64(f) }

// A failing scheduling call must not affect a successful submission.
func TestWizardSubmit_SucceedsWhenCalendarFails(t *testing.T) {
	w := &fakeWriter{}
	d := &fakeDispatcher{err: errors.New("calendar unreachable")}
	sink := NewSink(zap.NewNop(), w, nil, d, time.Second)
	m := wizard.NewManager(zap.NewNop(), fixedEstimate(8200), sink, wizard.Options{Debounce: 5 * time.Millisecond})
	defer m.Close()

	ctx := context.Background()
	id := m.Create(ctx, wizard.CreateParams{SessionID: "s1", RegionSignal: "Asia/Karachi"}).ID
	_, err := m.ToggleOption(ctx, id, "E-Commerce")
	require.NoError(t, err)
	_, err = m.Advance(ctx, id)
	require.NoError(t, err)
	_, err = m.SetContact(ctx, id, wizard.Contact{Name: "Jane", Email: "jane@example.com"})
	require.NoError(t, err)

	snap, err := m.Submit(ctx, id)
	require.NoError(t, err)
	sink.Wait()

	assert.Equal(t, wizard.StateSubmitted, snap.State)
	assert.Equal(t, wizard.SubmissionSuccess, snap.SubmissionStatus)
	assert.Len(t, w.rows, 1)
	assert.Len(t, d.jobs, 1)
}
