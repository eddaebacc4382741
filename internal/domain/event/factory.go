package event

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateEventRequest, ownerID string) Event {
	now := time.Now().UTC()

	return Event{
		ID:            uuid.NewString(),
		Title:         req.Title,
		OrganizerName: req.Name,
		OwnerID:       ownerID,
		DateTime:      req.DateTime,
		Location:      req.Location,
		Description:   req.Description,
		AttendeeCount: 0,
		JoinedUserIDs: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
