package rooms

import (
	"context"
	"time"
)

// Repository is the persistence surface used by the web handlers and CLI.
type Repository interface {
	AllRooms(ctx context.Context) ([]Room, error)
	GetRoomByID(ctx context.Context, id int64) (Room, error)
	GetRoomBySlug(ctx context.Context, slug string) (Room, error)
	CreateRoom(ctx context.Context, name, description string) (Room, error)

	// SearchAvailabilityByDatesByRoomID reports whether roomID has no
	// restriction overlapping [start, end).
	SearchAvailabilityByDatesByRoomID(ctx context.Context, start, end time.Time, roomID int64) (bool, error)
	SearchAvailabilityForAllRooms(ctx context.Context, start, end time.Time) ([]Room, error)

	// InsertReservation stores res and blocks its dates for the room.
	// ErrNoAvailability is returned if the dates are already taken.
	InsertReservation(ctx context.Context, res Reservation) (int64, error)
	GetReservationByID(ctx context.Context, id int64) (Reservation, error)
	ListReservations(ctx context.Context, limit int) ([]Reservation, error)
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

var (
	_ Repository = (*PostgresRepo)(nil)
	_ Repository = (*MemoryRepo)(nil)
)
