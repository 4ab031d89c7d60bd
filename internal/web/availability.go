package web

import (
	"context"
	"errors"
	"time"

	"github.com/prayagsingh/bookings/internal/db"
	"github.com/prayagsingh/bookings/internal/live"
	"github.com/prayagsingh/bookings/internal/prompt"
	"github.com/prayagsingh/bookings/internal/rooms"
)

// liveClient is the part of a live connection the availability check uses.
type liveClient interface {
	Prompt() *prompt.Prompt
	Emit(name string, data any) error
	Navigate(url string) error
}

var _ liveClient = (*live.Conn)(nil)

const datesForm = `<form id="check-availability-form" action="" method="post" novalidate class="needs-validation">
  <div class="row" id="reservation-dates-modal">
    <div class="col"><input disabled required class="form-control" type="text" name="start" id="start" placeholder="Arrival"></div>
    <div class="col"><input disabled required class="form-control" type="text" name="end" id="end" placeholder="Departure"></div>
  </div>
</form>`

type checkAvailabilityRequest struct {
	RoomID int64 `json:"room_id"`
}

type datepickerCommand struct {
	Inputs  []string `json:"inputs"`
	MinDate string   `json:"minDate"`
}

// checkAvailability asks the guest for dates, checks the room and either
// sends the page on to the booking form or reports that the room is taken.
func (s *Server) checkAvailability(ctx context.Context, c liveClient, ev live.Event) {
	var req checkAvailabilityRequest
	if err := ev.Decode(&req); err != nil || req.RoomID <= 0 {
		c.Prompt().Error(prompt.ErrorRequest{Message: "Invalid room"})
		return
	}

	room, err := s.Rooms.GetRoomByID(ctx, req.RoomID)
	if err != nil {
		if !db.IsNotFound(err) {
			s.logger().Error("room lookup failed", "room_id", req.RoomID, "error", err)
		}
		c.Prompt().Error(prompt.ErrorRequest{Message: "Room not found"})
		return
	}

	fields := prompt.DefaultFields
	pending := c.Prompt().Custom(ctx, prompt.CustomRequest{
		Title:  "Choose your dates",
		Body:   datesForm,
		Fields: fields,
		OnOpen: func() {
			_ = c.Emit("enable", map[string][]string{"inputs": {fields[0].ID, fields[1].ID}})
		},
		OnShown: func() {
			_ = c.Emit("datepicker", datepickerCommand{
				Inputs:  []string{fields[0].ID, fields[1].ID},
				MinDate: rooms.FormatDate(time.Now()),
			})
		},
	})

	res, err := pending.Wait(ctx)
	if err != nil || !res.OK {
		return
	}

	start, end, err := rooms.ParseRange(res.Pair())
	if err != nil {
		msg := err.Error()
		if !errors.Is(err, rooms.ErrInvalidRange) {
			msg = "Please enter valid dates"
		}
		c.Prompt().Error(prompt.ErrorRequest{Message: msg})
		return
	}

	ok, err := s.Rooms.SearchAvailabilityByDatesByRoomID(ctx, start, end, room.ID)
	if err != nil {
		s.logger().Error("availability query failed", "room_id", room.ID, "error", err)
		c.Prompt().Error(prompt.ErrorRequest{Message: "Error querying availability"})
		return
	}
	if !ok {
		c.Prompt().Error(prompt.ErrorRequest{Message: "No availability"})
		return
	}

	_ = c.Navigate(bookURL(room.ID, rooms.FormatDate(start), rooms.FormatDate(end)))
}
