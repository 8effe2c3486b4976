package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/openclerk/backoffice/internal/domain"
)

// ReminderSubjectPrefix is the NATS subject tree for reminder notifications.
// The reminder type is appended, e.g. billing.reminders.overdue_7, so
// notifiers can subscribe to a subset of the timetable.
const ReminderSubjectPrefix = "billing.reminders"

// NATSDispatcher publishes reminder messages onto a NATS connection.
type NATSDispatcher struct {
	conn *nats.Conn
}

var _ Dispatcher = (*NATSDispatcher)(nil)

// NewNATSDispatcher creates a dispatcher over an established connection.
func NewNATSDispatcher(conn *nats.Conn) *NATSDispatcher {
	return &NATSDispatcher{conn: conn}
}

// DispatchReminder publishes the reminder and flushes so a broker outage
// surfaces here rather than after the reminder is marked sent.
func (d *NATSDispatcher) DispatchReminder(ctx context.Context, due domain.DueReminder) error {
	data, err := json.Marshal(newMessage(due))
	if err != nil {
		return fmt.Errorf("marshal reminder message: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", ReminderSubjectPrefix, due.Reminder.Type)
	if err := d.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish reminder: %w", err)
	}
	if err := d.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush reminder publish: %w", err)
	}
	return nil
}
