package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/httpclient"
	"github.com/xovato/agency-backend/internal/secrets"
)

func emailSource(base secrets.Integrations) secrets.Static {
	base.EmailJSServiceID = "svc_1"
	base.EmailJSTemplateID = "tpl_1"
	base.EmailJSPublicKey = "pub_1"
	return secrets.Static(base)
}

// --- calendar ---

func TestCalendarClient_Notify(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"booked":true}`))
	}))
	defer srv.Close()

	c := NewCalendarClient(zap.NewNop(), secrets.Static{CalendarURL: srv.URL}, time.Second)
	resp, err := c.Notify(context.Background(), map[string]any{"action": "schedule_call", "client_name": "Jane"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"booked":true}`, string(resp))
	assert.Equal(t, "schedule_call", got["action"])
	assert.Equal(t, "Jane", got["client_name"])
}

func TestCalendarClient_NotConfigured(t *testing.T) {
	c := NewCalendarClient(nil, secrets.Static{}, 0)
	_, err := c.Notify(context.Background(), map[string]any{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCalendarClient_UpstreamStatusIsTyped(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("worker down"))
	}))
	defer srv.Close()

	c := NewCalendarClient(zap.NewNop(), secrets.Static{CalendarURL: srv.URL}, time.Second)
	_, err := c.Notify(context.Background(), map[string]any{})
	require.Error(t, err)

	var se *httpclient.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Equal(t, 1, calls, "calendar posts are not retried")
}

func TestCalendarClient_NonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := NewCalendarClient(zap.NewNop(), secrets.Static{CalendarURL: srv.URL}, time.Second)
	_, err := c.Notify(context.Background(), map[string]any{})
	assert.ErrorContains(t, err, "non-JSON")
}

// --- email ---

func TestEmailClient_Send(t *testing.T) {
	var req emailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, emailSendPath, r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(b, &req))
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := NewEmailClient(zap.NewNop(), srv.URL+"/", emailSource(secrets.Integrations{}), time.Second)
	err := c.Send(context.Background(), map[string]any{"to_email": "ops@xovato.com", "rating": "5"})
	require.NoError(t, err)

	assert.Equal(t, "svc_1", req.ServiceID)
	assert.Equal(t, "tpl_1", req.TemplateID)
	assert.Equal(t, "pub_1", req.UserID)
	assert.Equal(t, "ops@xovato.com", req.TemplateParams["to_email"])
}

func TestEmailClient_NotConfigured(t *testing.T) {
	c := NewEmailClient(zap.NewNop(), "http://unused", secrets.Static{EmailJSServiceID: "svc"}, time.Second)
	err := c.Send(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestEmailClient_RejectedRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("The Public Key is invalid"))
	}))
	defer srv.Close()

	c := NewEmailClient(zap.NewNop(), srv.URL, emailSource(secrets.Integrations{}), time.Second)
	err := c.Send(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Public Key is invalid")
}

// --- direct dispatcher ---

func TestDirectDispatcher_RoutesByKind(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	src := emailSource(secrets.Integrations{CalendarURL: srv.URL + "/calendar"})
	d := NewDirectDispatcher(zap.NewNop(),
		NewCalendarClient(zap.NewNop(), src, time.Second),
		NewEmailClient(zap.NewNop(), srv.URL, src, time.Second))

	require.NoError(t, d.Dispatch(context.Background(), NewJob(KindScheduleCall, map[string]any{"action": "schedule_call"})))
	require.NoError(t, d.Dispatch(context.Background(), NewJob(KindEmail, map[string]any{"title": "Great"})))

	err := d.Dispatch(context.Background(), NewJob("sms", nil))
	assert.ErrorIs(t, err, ErrUnknownKind)

	assert.Equal(t, 1, hits["/calendar"])
	assert.Equal(t, 1, hits[emailSendPath])
}

// --- queue transport ---

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	published  []amqp.Publishing
	keys       []string
	pubErr     error
	deliveries chan amqp.Delivery
	closed     bool
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubErr != nil {
		return f.pubErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Qos(int, int, bool) error { return nil }

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type ackRecord struct {
	acked   bool
	nacked  bool
	requeue bool
}

type fakeAcker struct {
	mu  sync.Mutex
	rec map[uint64]*ackRecord
}

func newFakeAcker() *fakeAcker { return &fakeAcker{rec: map[uint64]*ackRecord{}} }

func (a *fakeAcker) get(tag uint64) ackRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.rec[tag]; ok {
		return *r
	}
	return ackRecord{}
}

func (a *fakeAcker) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rec[tag] = &ackRecord{acked: true}
	return nil
}

func (a *fakeAcker) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rec[tag] = &ackRecord{nacked: true, requeue: requeue}
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []Job
	err  error
}

func (r *recordingDispatcher) Dispatch(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return r.err
}

func (r *recordingDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func TestQueueDispatcher_PublishesPersistentJob(t *testing.T) {
	ch := &fakeChannel{}
	q, err := newQueueDispatcher(ch, "notify.jobs", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"notify.jobs"}, ch.declared)

	job := NewJob(KindScheduleCall, map[string]any{"client_email": "jane@example.com"})
	require.NoError(t, q.Dispatch(context.Background(), job))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "notify.jobs", ch.keys[0])
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "schedule_call", msg.Type)

	var decoded Job
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, KindScheduleCall, decoded.Kind)
	assert.Equal(t, "jane@example.com", decoded.Params["client_email"])

	require.NoError(t, q.Close())
	assert.True(t, ch.closed)
}

func TestQueueDispatcher_PublishError(t *testing.T) {
	ch := &fakeChannel{pubErr: errors.New("channel closed")}
	q, err := newQueueDispatcher(ch, "notify.jobs", nil)
	require.NoError(t, err)

	err = q.Dispatch(context.Background(), NewJob(KindEmail, nil))
	assert.ErrorContains(t, err, "channel closed")
}

func delivery(acker *fakeAcker, tag uint64, body []byte, redelivered bool) amqp.Delivery {
	return amqp.Delivery{Acknowledger: acker, DeliveryTag: tag, Body: body, Redelivered: redelivered}
}

func TestQueueWorker_Handle(t *testing.T) {
	body, _ := json.Marshal(NewJob(KindEmail, map[string]any{"title": "hi"}))

	t.Run("success acks", func(t *testing.T) {
		acker := newFakeAcker()
		w := newQueueWorker(&fakeChannel{}, "q", &recordingDispatcher{}, nil)
		w.handle(context.Background(), delivery(acker, 1, body, false))
		assert.True(t, acker.get(1).acked)
	})

	t.Run("first failure requeues", func(t *testing.T) {
		acker := newFakeAcker()
		w := newQueueWorker(&fakeChannel{}, "q", &recordingDispatcher{err: errors.New("smtp down")}, nil)
		w.handle(context.Background(), delivery(acker, 2, body, false))
		assert.Equal(t, ackRecord{nacked: true, requeue: true}, acker.get(2))
	})

	t.Run("failure on redelivery drops", func(t *testing.T) {
		acker := newFakeAcker()
		w := newQueueWorker(&fakeChannel{}, "q", &recordingDispatcher{err: errors.New("smtp down")}, nil)
		w.handle(context.Background(), delivery(acker, 3, body, true))
		assert.Equal(t, ackRecord{nacked: true, requeue: false}, acker.get(3))
	})

	t.Run("malformed body is dropped", func(t *testing.T) {
		acker := newFakeAcker()
		rec := &recordingDispatcher{}
		w := newQueueWorker(&fakeChannel{}, "q", rec, nil)
		w.handle(context.Background(), delivery(acker, 4, []byte("{not json"), false))
		assert.Equal(t, ackRecord{nacked: true, requeue: false}, acker.get(4))
		assert.Zero(t, rec.count())
	})
}

func TestQueueWorker_StartConsumesUntilClosed(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 2)}
	rec := &recordingDispatcher{}
	w := newQueueWorker(ch, "notify.jobs", rec, zap.NewNop())
	require.NoError(t, w.Start(context.Background()))

	acker := newFakeAcker()
	body, _ := json.Marshal(NewJob(KindScheduleCall, map[string]any{"action": "schedule_call"}))
	ch.deliveries <- delivery(acker, 1, body, false)
	ch.deliveries <- delivery(acker, 2, body, false)

	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return acker.get(2).acked }, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.True(t, ch.closed)
}
