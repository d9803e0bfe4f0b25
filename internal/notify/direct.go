package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/metrics"
)

// DirectDispatcher calls the integration clients in-process.
type DirectDispatcher struct {
	logger   *zap.Logger
	calendar *CalendarClient
	email    *EmailClient
}

func NewDirectDispatcher(logger *zap.Logger, calendar *CalendarClient, email *EmailClient) *DirectDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectDispatcher{logger: logger, calendar: calendar, email: email}
}

func (d *DirectDispatcher) Dispatch(ctx context.Context, job Job) error {
	var err error
	switch job.Kind {
	case KindScheduleCall:
		_, err = d.calendar.Notify(ctx, job.Params)
	case KindEmail:
		err = d.email.Send(ctx, job.Params)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownKind, job.Kind)
	}

	if err != nil {
		metrics.IncNotification(string(job.Kind), "error")
		d.logger.Warn("notify.dispatch_failed", zap.String("kind", string(job.Kind)), zap.Error(err))
		return err
	}
	metrics.IncNotification(string(job.Kind), "ok")
	d.logger.Debug("notify.dispatched", zap.String("kind", string(job.Kind)))
	return nil
}
