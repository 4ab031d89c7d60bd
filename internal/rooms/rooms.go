package rooms

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire format for reservation dates.
const DateLayout = "2006-01-02"

// Restriction ids seeded by the initial migration.
const (
	RestrictionReservation int64 = 1
	RestrictionOwnerBlock  int64 = 2
)

var (
	ErrNoAvailability = errors.New("no availability for the requested dates")
	ErrInvalidRange   = errors.New("end date must be after start date")
)

type Room struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Reservation struct {
	ID        int64
	FirstName string    `validate:"required,min=3,max=100"`
	LastName  string    `validate:"required,max=100"`
	Email     string    `validate:"required,email"`
	Phone     string    `validate:"omitempty,max=32"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtfield=StartDate"`
	RoomID    int64     `validate:"required,gt=0"`
	Room      Room      `validate:"-"`
	Processed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Nights is the number of nights covered by the reservation.
func (r Reservation) Nights() int {
	return int(r.EndDate.Sub(r.StartDate).Hours() / 24)
}

type Restriction struct {
	ID   int64
	Name string
}

type RoomRestriction struct {
	ID            int64
	StartDate     time.Time
	EndDate       time.Time
	RoomID        int64
	ReservationID *int64
	RestrictionID int64
}

// ParseDate parses a single yyyy-mm-dd value.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// ParseRange parses a start and end date and rejects ranges where end is not
// after start.
func ParseRange(start, end string) (time.Time, time.Time, error) {
	s, err := ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !e.After(s) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return s, e, nil
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Slugify turns a room name into its URL slug.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case r == '\'':
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldErrors maps a reservation field name to a readable message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+": "+v)
	}
	return "invalid reservation: " + strings.Join(parts, "; ")
}

// Validate checks a reservation's struct tags. A non-nil result is always a
// FieldErrors.
func (r Reservation) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := FieldErrors{}
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field can't be blank"
	case "min":
		return fmt.Sprintf("This field must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("This field must be at most %s characters long", fe.Param())
	case "email":
		return "Invalid email address"
	case "gtfield":
		return "Must be after the arrival date"
	case "gt":
		return "Choose a room"
	default:
		return "Invalid value"
	}
}
