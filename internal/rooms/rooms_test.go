package rooms

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prayagsingh/bookings/internal/db"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestParseRange(t *testing.T) {
	s, e, err := ParseRange("2050-01-01", " 2050-01-03 ")
	require.NoError(t, err)
	assert.Equal(t, "2050-01-01", FormatDate(s))
	assert.Equal(t, "2050-01-03", FormatDate(e))

	_, _, err = ParseRange("2050-01-03", "2050-01-03")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, _, err = ParseRange("2050-01-03", "2050-01-01")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, _, err = ParseRange("01/03/2050", "2050-01-05")
	assert.EqualError(t, err, `invalid date "01/03/2050"`)

	_, _, err = ParseRange("2050-01-03", "")
	assert.Error(t, err)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "generals-quarters", Slugify("General's Quarters"))
	assert.Equal(t, "majors-suite", Slugify("  Major's   Suite!! "))
	assert.Equal(t, "room-101", Slugify("Room 101"))
}

func TestReservationValidate(t *testing.T) {
	valid := Reservation{
		FirstName: "John",
		LastName:  "Smith",
		Email:     "john@example.com",
		StartDate: date(t, "2050-01-01"),
		EndDate:   date(t, "2050-01-02"),
		RoomID:    1,
	}
	require.NoError(t, valid.Validate())
	assert.Equal(t, 1, valid.Nights())

	bad := valid
	bad.FirstName = "J"
	bad.Email = "not-an-email"
	bad.EndDate = bad.StartDate
	bad.RoomID = 0

	err := bad.Validate()
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "This field must be at least 3 characters long", fe["FirstName"])
	assert.Equal(t, "Invalid email address", fe["Email"])
	assert.Equal(t, "Must be after the arrival date", fe["EndDate"])
	assert.Contains(t, fe, "RoomID")
	assert.NotContains(t, fe, "LastName")

	empty := Reservation{}
	require.ErrorAs(t, empty.Validate(), &fe)
	assert.Equal(t, "This field can't be blank", fe["LastName"])
}

func TestMemoryRepoSeedAndLookup(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRepo()

	all, err := m.AllRooms(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "General's Quarters", all[0].Name)
	assert.Equal(t, "majors-suite", all[1].Slug)

	r, err := m.GetRoomBySlug(ctx, "generals-quarters")
	require.NoError(t, err)
	assert.Equal(t, all[0].ID, r.ID)

	_, err = m.GetRoomByID(ctx, 99)
	assert.True(t, db.IsNotFound(err))

	created, err := m.CreateRoom(ctx, "Colonel's Cabin", "")
	require.NoError(t, err)
	got, err := m.GetRoomByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "colonels-cabin", got.Slug)
}

func TestMemoryRepoAvailability(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRepo()

	id, err := m.InsertReservation(ctx, Reservation{
		FirstName: "Ann", LastName: "Lee", Email: "ann@example.com",
		StartDate: date(t, "2050-01-10"), EndDate: date(t, "2050-01-12"), RoomID: 1,
	})
	require.NoError(t, err)

	tests := []struct {
		name       string
		start, end string
		want       bool
	}{
		{"before", "2050-01-08", "2050-01-10", true},
		{"after", "2050-01-12", "2050-01-14", true},
		{"overlap start", "2050-01-09", "2050-01-11", false},
		{"overlap end", "2050-01-11", "2050-01-13", false},
		{"inside", "2050-01-10", "2050-01-11", false},
		{"around", "2050-01-01", "2050-01-20", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := m.SearchAvailabilityByDatesByRoomID(ctx, date(t, tc.start), date(t, tc.end), 1)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}

	free, err := m.SearchAvailabilityForAllRooms(ctx, date(t, "2050-01-10"), date(t, "2050-01-11"))
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, int64(2), free[0].ID)

	res, err := m.GetReservationByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "General's Quarters", res.Room.Name)

	_, err = m.InsertReservation(ctx, Reservation{
		FirstName: "Bob", LastName: "Ray", Email: "bob@example.com",
		StartDate: date(t, "2050-01-11"), EndDate: date(t, "2050-01-15"), RoomID: 1,
	})
	assert.ErrorIs(t, err, ErrNoAvailability)

	_, err = m.InsertReservation(ctx, Reservation{RoomID: 42, StartDate: date(t, "2050-01-11"), EndDate: date(t, "2050-01-15")})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestMemoryRepoBlock(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRepo()
	m.Block(2, date(t, "2050-02-01"), date(t, "2050-02-05"))

	ok, err := m.SearchAvailabilityByDatesByRoomID(ctx, date(t, "2050-02-03"), date(t, "2050-02-04"), 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.SearchAvailabilityByDatesByRoomID(ctx, date(t, "2050-02-03"), date(t, "2050-02-04"), 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryRepoConcurrentBookingsOneWins(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRepo()
	start, end := date(t, "2050-03-01"), date(t, "2050-03-04")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.InsertReservation(ctx, Reservation{RoomID: 1, StartDate: start, EndDate: end})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestListReservationsOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRepo()
	for _, d := range []string{"2050-04-01", "2050-06-01", "2050-05-01"} {
		s := date(t, d)
		_, err := m.InsertReservation(ctx, Reservation{RoomID: 1, StartDate: s, EndDate: s.AddDate(0, 0, 2)})
		require.NoError(t, err)
	}

	all, err := m.ListReservations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2050-06-01", FormatDate(all[0].StartDate))
	assert.Equal(t, "2050-04-01", FormatDate(all[2].StartDate))

	two, err := m.ListReservations(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}
