package rooms

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prayagsingh/bookings/internal/db"
)

// MemoryRepo is an in-process Repository for demo mode and tests.
type MemoryRepo struct {
	mu           sync.Mutex
	now          func() time.Time
	rooms        []Room
	reservations []Reservation
	restrictions []RoomRestriction
	nextID       int64
}

// NewMemoryRepo returns a repository seeded with the two default rooms.
func NewMemoryRepo() *MemoryRepo {
	m := &MemoryRepo{now: time.Now}
	ctx := context.Background()
	_, _ = m.CreateRoom(ctx, "General's Quarters", "Spacious quarters with a view of the mountains.")
	_, _ = m.CreateRoom(ctx, "Major's Suite", "A suite fit for a major, with a private balcony.")
	return m
}

func (m *MemoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryRepo) AllRooms(context.Context) ([]Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Room(nil), m.rooms...), nil
}

func (m *MemoryRepo) GetRoomByID(_ context.Context, id int64) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if r.ID == id {
			return r, nil
		}
	}
	return Room{}, db.ErrNotFound
}

func (m *MemoryRepo) GetRoomBySlug(_ context.Context, slug string) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if r.Slug == slug {
			return r, nil
		}
	}
	return Room{}, db.ErrNotFound
}

func (m *MemoryRepo) CreateRoom(_ context.Context, name, description string) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	r := Room{ID: m.id(), Name: name, Slug: Slugify(name), Description: description, CreatedAt: now, UpdatedAt: now}
	m.rooms = append(m.rooms, r)
	return r, nil
}

// Block adds a restriction with no reservation attached, such as an owner block.
func (m *MemoryRepo) Block(roomID int64, start, end time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restrictions = append(m.restrictions, RoomRestriction{
		ID: m.id(), StartDate: start, EndDate: end, RoomID: roomID, RestrictionID: RestrictionOwnerBlock,
	})
}

func (m *MemoryRepo) availableLocked(start, end time.Time, roomID int64) bool {
	for _, rr := range m.restrictions {
		if rr.RoomID == roomID && overlaps(start, end, rr.StartDate, rr.EndDate) {
			return false
		}
	}
	return true
}

func (m *MemoryRepo) SearchAvailabilityByDatesByRoomID(_ context.Context, start, end time.Time, roomID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.availableLocked(start, end, roomID), nil
}

func (m *MemoryRepo) SearchAvailabilityForAllRooms(_ context.Context, start, end time.Time) ([]Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Room
	for _, r := range m.rooms {
		if m.availableLocked(start, end, r.ID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryRepo) InsertReservation(_ context.Context, res Reservation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var room Room
	found := false
	for _, r := range m.rooms {
		if r.ID == res.RoomID {
			room, found = r, true
			break
		}
	}
	if !found {
		return 0, db.ErrNotFound
	}
	if !m.availableLocked(res.StartDate, res.EndDate, res.RoomID) {
		return 0, ErrNoAvailability
	}

	now := m.now()
	res.ID = m.id()
	res.Room = room
	res.CreatedAt, res.UpdatedAt = now, now
	m.reservations = append(m.reservations, res)

	rid := res.ID
	m.restrictions = append(m.restrictions, RoomRestriction{
		ID: m.id(), StartDate: res.StartDate, EndDate: res.EndDate, RoomID: res.RoomID,
		ReservationID: &rid, RestrictionID: RestrictionReservation,
	})
	return res.ID, nil
}

func (m *MemoryRepo) GetReservationByID(_ context.Context, id int64) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.ID == id {
			return r, nil
		}
	}
	return Reservation{}, db.ErrNotFound
}

func (m *MemoryRepo) ListReservations(_ context.Context, limit int) ([]Reservation, error) {
	m.mu.Lock()
	out := append([]Reservation(nil), m.reservations...)
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartDate.After(out[j].StartDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
