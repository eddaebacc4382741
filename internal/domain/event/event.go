package event

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("event not found")
	ErrForbidden     = errors.New("not the event owner")
	ErrAlreadyJoined = errors.New("user already joined event")
)

type Event struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	OrganizerName string    `json:"name"`
	OwnerID       string    `json:"ownerId"`
	DateTime      time.Time `json:"dateTime"`
	Location      string    `json:"location"`
	Description   string    `json:"description"`
	AttendeeCount int       `json:"attendeeCount"`
	JoinedUserIDs []string  `json:"joinedUsers"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required,min=3,max=120"`
	Name        string    `json:"name" binding:"required,min=2,max=120"`
	DateTime    time.Time `json:"dateTime" binding:"required"`
	Location    string    `json:"location" binding:"required,min=2,max=200"`
	Description string    `json:"description" binding:"required,max=2000"`
}

// UpdateEventRequest is a patch: nil fields are left untouched.
type UpdateEventRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=3,max=120"`
	Name        *string    `json:"name" binding:"omitempty,min=2,max=120"`
	DateTime    *time.Time `json:"dateTime" binding:"omitempty"`
	Location    *string    `json:"location" binding:"omitempty,min=2,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
}
