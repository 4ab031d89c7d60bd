package rooms

import (
	"context"
	"fmt"
	"time"

	"github.com/prayagsingh/bookings/internal/db"
)

// querier is the part of *db.DB the repository uses.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) db.Row
	Query(ctx context.Context, sql string, args ...any) (db.Rows, error)
	InTx(ctx context.Context, fn func(tx db.Tx) error) error
}

type PostgresRepo struct{ db querier }

func NewPostgresRepo(d *db.DB) *PostgresRepo { return &PostgresRepo{db: d} }

const roomColumns = `id,room_name,slug,description,created_at,updated_at`

func scanRoom(row db.Row) (Room, error) {
	var r Room
	err := row.Scan(&r.ID, &r.Name, &r.Slug, &r.Description, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (p *PostgresRepo) AllRooms(ctx context.Context) ([]Room, error) {
	rows, err := p.db.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresRepo) GetRoomByID(ctx context.Context, id int64) (Room, error) {
	r, err := scanRoom(p.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, id))
	return r, db.WrapNotFound(err)
}

func (p *PostgresRepo) GetRoomBySlug(ctx context.Context, slug string) (Room, error) {
	r, err := scanRoom(p.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE slug=$1`, slug))
	return r, db.WrapNotFound(err)
}

func (p *PostgresRepo) CreateRoom(ctx context.Context, name, description string) (Room, error) {
	r, err := scanRoom(p.db.QueryRow(ctx, `
INSERT INTO rooms(room_name,slug,description)
VALUES ($1,$2,$3)
RETURNING `+roomColumns, name, Slugify(name), description))
	return r, db.WrapNotFound(err)
}

func (p *PostgresRepo) SearchAvailabilityByDatesByRoomID(ctx context.Context, start, end time.Time, roomID int64) (bool, error) {
	var n int
	err := p.db.QueryRow(ctx, `
SELECT count(id)
FROM room_restrictions
WHERE room_id=$1 AND $2 < end_date AND $3 > start_date`, roomID, start, end).Scan(&n)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (p *PostgresRepo) SearchAvailabilityForAllRooms(ctx context.Context, start, end time.Time) ([]Room, error) {
	rows, err := p.db.Query(ctx, `
SELECT `+roomColumns+`
FROM rooms r
WHERE r.id NOT IN (
	SELECT rr.room_id FROM room_restrictions rr
	WHERE $1 < rr.end_date AND $2 > rr.start_date
)
ORDER BY r.id`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresRepo) InsertReservation(ctx context.Context, res Reservation) (int64, error) {
	var id int64
	err := p.db.InTx(ctx, func(tx db.Tx) error {
		// Serialize bookings per room for the lifetime of the transaction.
		if err := tx.Exec(`SELECT pg_advisory_xact_lock($1)`, res.RoomID); err != nil {
			return err
		}

		var taken int
		if err := tx.QueryRow(`
SELECT count(id) FROM room_restrictions
WHERE room_id=$1 AND $2 < end_date AND $3 > start_date`, res.RoomID, res.StartDate, res.EndDate).Scan(&taken); err != nil {
			return err
		}
		if taken > 0 {
			return ErrNoAvailability
		}

		if err := tx.QueryRow(`
INSERT INTO reservations(first_name,last_name,email,phone,start_date,end_date,room_id)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id`,
			res.FirstName, res.LastName, res.Email, res.Phone, res.StartDate, res.EndDate, res.RoomID,
		).Scan(&id); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}

		if err := tx.Exec(`
INSERT INTO room_restrictions(start_date,end_date,room_id,reservation_id,restriction_id)
VALUES ($1,$2,$3,$4,$5)`,
			res.StartDate, res.EndDate, res.RoomID, id, RestrictionReservation,
		); err != nil {
			return fmt.Errorf("insert room restriction: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

const reservationQuery = `
SELECT r.id,r.first_name,r.last_name,r.email,r.phone,r.start_date,r.end_date,r.room_id,r.processed,r.created_at,r.updated_at,
       rm.id,rm.room_name,rm.slug,rm.description,rm.created_at,rm.updated_at
FROM reservations r
JOIN rooms rm ON rm.id = r.room_id`

func scanReservation(row db.Row) (Reservation, error) {
	var r Reservation
	err := row.Scan(
		&r.ID, &r.FirstName, &r.LastName, &r.Email, &r.Phone, &r.StartDate, &r.EndDate, &r.RoomID, &r.Processed, &r.CreatedAt, &r.UpdatedAt,
		&r.Room.ID, &r.Room.Name, &r.Room.Slug, &r.Room.Description, &r.Room.CreatedAt, &r.Room.UpdatedAt,
	)
	return r, err
}

func (p *PostgresRepo) GetReservationByID(ctx context.Context, id int64) (Reservation, error) {
	r, err := scanReservation(p.db.QueryRow(ctx, reservationQuery+` WHERE r.id=$1`, id))
	return r, db.WrapNotFound(err)
}

func (p *PostgresRepo) ListReservations(ctx context.Context, limit int) ([]Reservation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.Query(ctx, reservationQuery+` ORDER BY r.start_date DESC, r.id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
