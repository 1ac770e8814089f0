package notify

import (
	"context"

	log "github.com/sirupsen/logrus"
)

var _ Dispatcher = (*LogDispatcher)(nil)

// LogDispatcher writes notifications to the log. Used when no push channel is configured.
type LogDispatcher struct {
	logger log.FieldLogger
}

func NewLogDispatcher(logger log.FieldLogger) *LogDispatcher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LogDispatcher{
		logger: logger,
	}
}

func (d *LogDispatcher) Notify(_ context.Context, n Notification) error {
	d.logger.WithFields(log.Fields{
		"kind":               n.Kind,
		"requireInteraction": n.RequireInteraction,
	}).Infof("🔔 %s: %s", n.Title, n.Body)
	return nil
}
