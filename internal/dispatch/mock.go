package dispatch

import (
	"context"

	"github.com/openclerk/backoffice/internal/domain"
)

// MockDispatcher records dispatched reminders for test assertions.
type MockDispatcher struct {
	// DispatchFunc allows customizing dispatch behavior
	DispatchFunc func(ctx context.Context, due domain.DueReminder) error

	// Dispatched collects every message handed to the dispatcher
	Dispatched []ReminderMessage
}

var _ Dispatcher = (*MockDispatcher)(nil)

// NewMockDispatcher creates an empty mock dispatcher.
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) DispatchReminder(ctx context.Context, due domain.DueReminder) error {
	if m.DispatchFunc != nil {
		if err := m.DispatchFunc(ctx, due); err != nil {
			return err
		}
	}
	m.Dispatched = append(m.Dispatched, newMessage(due))
	return nil
}
