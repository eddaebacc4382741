package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smais007/eventora/internal/cache"
	"github.com/smais007/eventora/internal/domain/event"
	"github.com/smais007/eventora/internal/http/middlewares"
	"github.com/smais007/eventora/internal/notifications"
)

type EventsStore interface {
	Create(ctx context.Context, e event.Event) (event.Event, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
	List(ctx context.Context) ([]event.Event, error)
	ListByOwner(ctx context.Context, ownerID string) ([]event.Event, error)
	Update(ctx context.Context, id, ownerID string, req event.UpdateEventRequest) (event.Event, error)
	Delete(ctx context.Context, id, ownerID string) error
	Join(ctx context.Context, eventID, userID string) (event.Event, error)
}

const listCacheKey = "events:list"

type EventsHandler struct {
	repo     EventsStore
	cache    *cache.Cache
	notifier notifications.Notifier
	log      *slog.Logger
}

func NewEventsHandler(repo EventsStore, c *cache.Cache, notifier notifications.Notifier, log *slog.Logger) *EventsHandler {
	if log == nil {
		log = slog.Default()
	}

	return &EventsHandler{
		repo:     repo,
		cache:    c,
		notifier: notifier,
		log:      log,
	}
}

func (h *EventsHandler) CreateEvent(ctx *gin.Context) {
	profile, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req event.CreateEventRequest
	if !BindJSON(ctx, &req) {
		return
	}

	created, err := h.repo.Create(ctx.Request.Context(), event.NewFromCreateRequest(req, profile.ID))
	if err != nil {
		RespondInternal(ctx, "Could not create event")
		return
	}

	h.invalidateListCache()

	ctx.JSON(http.StatusCreated, created)
}

// ListEvents is the public listing. The optional q and range params run the
// same filter engine clients use, so pre-filtered responses match what a
// client-side pass over the full list would produce.
func (h *EventsHandler) ListEvents(ctx *gin.Context) {
	bucket, err := event.ParseBucket(ctx.Query("range"))
	if err != nil {
		RespondBadRequest(ctx, "invalid_range", err.Error(), nil)
		return
	}

	events, err := h.listAll(ctx.Request.Context())
	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	filtered := event.Filter(events, ctx.Query("q"), bucket, time.Now())

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items": filtered,
		"count": len(filtered),
	})
}

func (h *EventsHandler) MyEvents(ctx *gin.Context) {
	profile, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	events, err := h.repo.ListByOwner(ctx.Request.Context(), profile.ID)
	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": events,
		"count": len(events),
	})
}

// JoinEvent requires authentication: attendance has to be attributable to
// a user for the double-join guard to mean anything.
func (h *EventsHandler) JoinEvent(ctx *gin.Context) {
	profile, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	id := ctx.Param("id")

	joined, err := h.repo.Join(ctx.Request.Context(), id, profile.ID)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, event.ErrAlreadyJoined):
			RespondConflict(ctx, "already_joined", "You already joined this event.")
		default:
			RespondInternal(ctx, "Could not join event")
		}
		return
	}

	h.invalidateListCache()
	h.notifyJoin(joined, profile.Name, profile.Email)

	ctx.JSON(http.StatusOK, joined)
}

func (h *EventsHandler) UpdateEvent(ctx *gin.Context) {
	profile, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req event.UpdateEventRequest
	if !BindJSON(ctx, &req) {
		return
	}

	updated, err := h.repo.Update(ctx.Request.Context(), ctx.Param("id"), profile.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, event.ErrForbidden):
			RespondForbidden(ctx, "Only the event owner can update it.")
		default:
			RespondInternal(ctx, "Could not update event")
		}
		return
	}

	h.invalidateListCache()

	ctx.JSON(http.StatusOK, updated)
}

func (h *EventsHandler) DeleteEvent(ctx *gin.Context) {
	profile, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	err := h.repo.Delete(ctx.Request.Context(), ctx.Param("id"), profile.ID)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, event.ErrForbidden):
			RespondForbidden(ctx, "Only the event owner can delete it.")
		default:
			RespondInternal(ctx, "Could not delete event")
		}
		return
	}

	h.invalidateListCache()

	ctx.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
}

func (h *EventsHandler) listAll(ctx context.Context) ([]event.Event, error) {
	if h.cache != nil {
		if v, ok := h.cache.Get(listCacheKey); ok {
			if events, ok := v.([]event.Event); ok {
				return events, nil
			}
		}
	}

	events, err := h.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		h.cache.Set(listCacheKey, events)
	}

	return events, nil
}

func (h *EventsHandler) invalidateListCache() {
	if h.cache != nil {
		h.cache.Delete(listCacheKey)
	}
}

// best effort, off the request path
func (h *EventsHandler) notifyJoin(e event.Event, attendeeName, attendeeEmail string) {
	if h.notifier == nil {
		return
	}

	in := notifications.JoinNotificationInput{
		EventID:       e.ID,
		EventTitle:    e.Title,
		OrganizerID:   e.OwnerID,
		AttendeeName:  attendeeName,
		AttendeeEmail: attendeeEmail,
	}

	go func() {
		if err := h.notifier.SendJoinNotification(context.Background(), in); err != nil {
			h.log.Warn("join notification failed", "event_id", in.EventID, "err", err)
		}
	}()
}
