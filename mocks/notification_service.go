package mocks

import (
	"context"
	"sync"

	"trips/entity"
)

type Notification struct {
	UserID   string
	Message  string
	Severity entity.Severity
}

// NotificationService records notifications instead of delivering them.
type NotificationService struct {
	mu            sync.Mutex
	Notifications []Notification
}

func (s *NotificationService) Notify(_ context.Context, userID, message string, severity entity.Severity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Notifications = append(s.Notifications, Notification{UserID: userID, Message: message, Severity: severity})
	return nil
}

func (s *NotificationService) Sent() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Notification(nil), s.Notifications...)
}
