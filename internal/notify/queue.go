package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/metrics"
)

// amqpChannel is the part of *amqp.Channel the queue transport uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

func dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return conn, ch, nil
}

func declare(ch amqpChannel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return nil
}

// QueueDispatcher publishes jobs to a durable RabbitMQ queue for a QueueWorker.
type QueueDispatcher struct {
	conn   *amqp.Connection
	ch     amqpChannel
	queue  string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewQueueDispatcher(url, queue string, logger *zap.Logger) (*QueueDispatcher, error) {
	conn, ch, err := dial(url)
	if err != nil {
		return nil, err
	}
	q, err := newQueueDispatcher(ch, queue, logger)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	q.conn = conn
	return q, nil
}

func newQueueDispatcher(ch amqpChannel, queue string, logger *zap.Logger) (*QueueDispatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := declare(ch, queue); err != nil {
		return nil, err
	}
	return &QueueDispatcher{ch: ch, queue: queue, logger: logger}, nil
}

func (q *QueueDispatcher) Dispatch(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	q.mu.Lock()
	err = q.ch.PublishWithContext(ctx,
		"",      // exchange
		q.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         string(job.Kind),
			Body:         body,
		},
	)
	q.mu.Unlock()
	if err != nil {
		metrics.IncNotification(string(job.Kind), "enqueue_error")
		return fmt.Errorf("publish job: %w", err)
	}

	metrics.IncNotification(string(job.Kind), "enqueued")
	q.logger.Debug("notify.job_enqueued", zap.String("kind", string(job.Kind)), zap.String("queue", q.queue))
	return nil
}

func (q *QueueDispatcher) Close() error {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// QueueWorker consumes jobs and runs them through handler. A failed job is requeued
// once; a failure on redelivery drops it.
type QueueWorker struct {
	conn    *amqp.Connection
	ch      amqpChannel
	queue   string
	handler Dispatcher
	logger  *zap.Logger
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func NewQueueWorker(url, queue string, handler Dispatcher, logger *zap.Logger) (*QueueWorker, error) {
	conn, ch, err := dial(url)
	if err != nil {
		return nil, err
	}
	w := newQueueWorker(ch, queue, handler, logger)
	w.conn = conn
	return w, nil
}

func newQueueWorker(ch amqpChannel, queue string, handler Dispatcher, logger *zap.Logger) *QueueWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueWorker{
		ch:      ch,
		queue:   queue,
		handler: handler,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start declares the queue and consumes it until ctx is done or Close is called.
func (w *QueueWorker) Start(ctx context.Context) error {
	if err := declare(w.ch, w.queue); err != nil {
		return err
	}
	if err := w.ch.Qos(8, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}
	msgs, err := w.ch.Consume(w.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", w.queue, err)
	}

	w.logger.Info("notify.worker_started", zap.String("queue", w.queue))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.consume(ctx, msgs)
	}()
	return nil
}

func (w *QueueWorker) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Warn("notify.worker_channel_closed", zap.String("queue", w.queue))
				return
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *QueueWorker) handle(ctx context.Context, msg amqp.Delivery) {
	var job Job
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		w.logger.Error("notify.job_decode_failed", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	if err := w.handler.Dispatch(ctx, job); err != nil {
		requeue := !msg.Redelivered
		w.logger.Warn("notify.job_failed",
			zap.String("kind", string(job.Kind)),
			zap.Bool("requeue", requeue),
			zap.Error(err))
		_ = msg.Nack(false, requeue)
		return
	}
	_ = msg.Ack(false)
}

// Close stops consumption and waits for the in-progress job.
func (w *QueueWorker) Close() error {
	w.once.Do(func() { close(w.done) })
	w.wg.Wait()

	if w.ch != nil {
		_ = w.ch.Close()
	}
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}
