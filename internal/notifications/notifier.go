package notifications

import "context"

type JoinNotificationInput struct {
	EventID       string
	EventTitle    string
	OrganizerID   string
	AttendeeName  string
	AttendeeEmail string
}

// Notifier tells an event organizer that someone joined. Implementations
// must treat the call as best-effort; a join never fails because of it.
type Notifier interface {
	SendJoinNotification(ctx context.Context, input JoinNotificationInput) error
}
