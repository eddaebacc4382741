package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smais007/eventora/internal/domain/event"
	"github.com/smais007/eventora/internal/observability"
)

const eventColumns = `e.id, e.title, e.organizer_name, e.owner_id, e.date_time,
	e.location, e.description, e.attendee_count, e.created_at, e.updated_at,
	COALESCE(array_agg(a.user_id::text) FILTER (WHERE a.user_id IS NOT NULL), '{}') AS joined`

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{pool: pool, prom: prom}
}

func (r *EventsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *EventsRepo) Create(ctx context.Context, e event.Event) (event.Event, error) {
	err := r.observe("events.create", func() error {
		_, execErr := r.pool.Exec(ctx,
			`INSERT INTO events (id, title, organizer_name, owner_id, date_time, location, description, attendee_count, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			e.ID, e.Title, e.OrganizerName, e.OwnerID, e.DateTime, e.Location, e.Description, e.AttendeeCount, e.CreatedAt, e.UpdatedAt,
		)
		return execErr
	})

	if err != nil {
		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	var e event.Event

	err := r.observe("events.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT `+eventColumns+`
			 FROM events e
			 LEFT JOIN event_attendees a ON a.event_id = e.id
			 WHERE e.id = $1
			 GROUP BY e.id`, id,
		).Scan(scanTargets(&e)...)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

// List returns every event, newest date first.
func (r *EventsRepo) List(ctx context.Context) ([]event.Event, error) {
	return r.list(ctx, "events.list",
		`SELECT `+eventColumns+`
		 FROM events e
		 LEFT JOIN event_attendees a ON a.event_id = e.id
		 GROUP BY e.id
		 ORDER BY e.date_time DESC, e.id DESC`)
}

func (r *EventsRepo) ListByOwner(ctx context.Context, ownerID string) ([]event.Event, error) {
	return r.list(ctx, "events.list_by_owner",
		`SELECT `+eventColumns+`
		 FROM events e
		 LEFT JOIN event_attendees a ON a.event_id = e.id
		 WHERE e.owner_id = $1
		 GROUP BY e.id
		 ORDER BY e.date_time DESC, e.id DESC`, ownerID)
}

func (r *EventsRepo) list(ctx context.Context, op, query string, args ...any) ([]event.Event, error) {
	var rows pgx.Rows

	err := r.observe(op, func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, query, args...)
		return qerr
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]event.Event, 0)

	for rows.Next() {
		var e event.Event
		if err := rows.Scan(scanTargets(&e)...); err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// Update patches an event after checking ownership inside a transaction,
// so a non-owner can never race past the gate.
func (r *EventsRepo) Update(ctx context.Context, id, ownerID string, req event.UpdateEventRequest) (updated event.Event, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if err = r.lockAndCheckOwner(ctx, tx, id, ownerID, "events.update.owner_check"); err != nil {
		return
	}

	err = r.observe("events.update", func() error {
		_, execErr := tx.Exec(ctx,
			`UPDATE events
			 SET title = COALESCE($2, title),
			     organizer_name = COALESCE($3, organizer_name),
			     date_time = COALESCE($4, date_time),
			     location = COALESCE($5, location),
			     description = COALESCE($6, description),
			     updated_at = NOW()
			 WHERE id = $1`,
			id, req.Title, req.Name, req.DateTime, req.Location, req.Description,
		)
		return execErr
	})

	if err != nil {
		return
	}

	if err = tx.Commit(ctx); err != nil {
		return
	}

	return r.GetByID(ctx, id)
}

func (r *EventsRepo) Delete(ctx context.Context, id, ownerID string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if err = r.lockAndCheckOwner(ctx, tx, id, ownerID, "events.delete.owner_check"); err != nil {
		return
	}

	err = r.observe("events.delete", func() error {
		_, execErr := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
		return execErr
	})

	if err != nil {
		return
	}

	return tx.Commit(ctx)
}

// Join records the attendee and bumps the counter in one transaction. The
// row lock serializes concurrent joins on the same event so no increment is
// lost; the attendees primary key makes a repeat join a conflict instead of
// a second increment.
func (r *EventsRepo) Join(ctx context.Context, eventID, userID string) (joined event.Event, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() { _ = tx.Rollback(ctx) }()

	var dummy string
	err = r.observe("events.join.lock", func() error {
		return tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&dummy)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = event.ErrNotFound
		}
		return
	}

	var tag int64
	err = r.observe("events.join.insert", func() error {
		res, execErr := tx.Exec(ctx,
			`INSERT INTO event_attendees (event_id, user_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, eventID, userID)
		tag = res.RowsAffected()
		return execErr
	})

	if err != nil {
		return
	}

	if tag == 0 {
		err = event.ErrAlreadyJoined
		return
	}

	err = r.observe("events.join.increment", func() error {
		_, execErr := tx.Exec(ctx,
			`UPDATE events SET attendee_count = attendee_count + 1, updated_at = NOW() WHERE id = $1`,
			eventID)
		return execErr
	})

	if err != nil {
		return
	}

	if err = tx.Commit(ctx); err != nil {
		return
	}

	return r.GetByID(ctx, eventID)
}

func (r *EventsRepo) lockAndCheckOwner(ctx context.Context, tx pgx.Tx, id, ownerID, op string) error {
	var storedOwner string

	err := r.observe(op, func() error {
		return tx.QueryRow(ctx, `SELECT owner_id FROM events WHERE id = $1 FOR UPDATE`, id).Scan(&storedOwner)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.ErrNotFound
		}
		return err
	}

	if storedOwner != ownerID {
		return event.ErrForbidden
	}

	return nil
}

func scanTargets(e *event.Event) []any {
	return []any{
		&e.ID, &e.Title, &e.OrganizerName, &e.OwnerID, &e.DateTime,
		&e.Location, &e.Description, &e.AttendeeCount, &e.CreatedAt, &e.UpdatedAt,
		&e.JoinedUserIDs,
	}
}
