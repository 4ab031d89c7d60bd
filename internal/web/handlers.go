package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/prayagsingh/bookings/internal/auth"
	"github.com/prayagsingh/bookings/internal/db"
	"github.com/prayagsingh/bookings/internal/rooms"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	rs, err := s.Rooms.AllRooms(r.Context())
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, r, http.StatusOK, "templates/home.html", tmplData{Title: "Home", Rooms: rs})
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "templates/about.html", tmplData{Title: "About"})
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	rs, err := s.Rooms.AllRooms(r.Context())
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, r, http.StatusOK, "templates/rooms.html", tmplData{Title: "Rooms", Rooms: rs})
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.Rooms.GetRoomBySlug(r.Context(), chi.URLParam(r, "slug"))
	if db.IsNotFound(err) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, r, http.StatusOK, "templates/room.html", tmplData{Title: room.Name, Room: room})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "templates/search.html", tmplData{Title: "Search for availability"})
}

func (s *Server) handlePostSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, end, err := rooms.ParseRange(r.Form.Get("start"), r.Form.Get("end"))
	if err != nil {
		s.redirectWithFlash(w, r, "/search-availability", auth.FlashError, err.Error())
		return
	}

	free, err := s.Rooms.SearchAvailabilityForAllRooms(r.Context(), start, end)
	if err != nil {
		s.serverError(w, err)
		return
	}
	if len(free) == 0 {
		s.redirectWithFlash(w, r, "/search-availability", auth.FlashError, "No availability")
		return
	}

	if err := s.Auth.SetDraft(w, r, auth.Draft{Start: start, End: end}); err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, r, http.StatusOK, "templates/choose-room.html", tmplData{
		Title: "Choose a room",
		Rooms: free,
		Start: rooms.FormatDate(start),
		End:   rooms.FormatDate(end),
	})
}

type availabilityResponse struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	RoomID    string `json:"room_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// handleSearchJSON answers availability for one room for scripts that do not
// hold a live connection.
func (s *Server) handleSearchJSON(w http.ResponseWriter, r *http.Request) {
	resp := availabilityResponse{}
	status := http.StatusOK
	defer func() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}()

	if err := r.ParseForm(); err != nil {
		status, resp.Message = http.StatusBadRequest, "Error parsing form"
		return
	}
	resp.RoomID = r.Form.Get("room_id")
	resp.StartDate = r.Form.Get("start")
	resp.EndDate = r.Form.Get("end")

	roomID, err := strconv.ParseInt(resp.RoomID, 10, 64)
	if err != nil || roomID <= 0 {
		status, resp.Message = http.StatusBadRequest, "Invalid room"
		return
	}
	start, end, err := rooms.ParseRange(resp.StartDate, resp.EndDate)
	if err != nil {
		status, resp.Message = http.StatusBadRequest, err.Error()
		return
	}

	ok, err := s.Rooms.SearchAvailabilityByDatesByRoomID(r.Context(), start, end, roomID)
	if err != nil {
		s.logger().Error("availability query failed", "room_id", roomID, "error", err)
		status, resp.Message = http.StatusInternalServerError, "Error querying database"
		return
	}
	resp.OK = ok
	if !ok {
		resp.Message = "No availability"
	}
}

func (s *Server) handleChooseRoom(w http.ResponseWriter, r *http.Request) {
	draft, ok := s.Auth.GetDraft(r)
	if !ok {
		s.redirectWithFlash(w, r, "/search-availability", auth.FlashError, "Search for dates first")
		return
	}
	roomID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.bookRoom(w, r, roomID, draft)
}

// handleBookRoom starts a reservation from the id, s and e query parameters,
// as sent after a successful live availability check.
func (s *Server) handleBookRoom(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID, err := strconv.ParseInt(q.Get("id"), 10, 64)
	if err != nil {
		s.redirectWithFlash(w, r, "/", auth.FlashError, "Invalid room")
		return
	}
	start, end, err := rooms.ParseRange(q.Get("s"), q.Get("e"))
	if err != nil {
		s.redirectWithFlash(w, r, "/", auth.FlashError, err.Error())
		return
	}
	s.bookRoom(w, r, roomID, auth.Draft{Start: start, End: end})
}

func (s *Server) bookRoom(w http.ResponseWriter, r *http.Request, roomID int64, draft auth.Draft) {
	room, err := s.Rooms.GetRoomByID(r.Context(), roomID)
	if db.IsNotFound(err) {
		s.redirectWithFlash(w, r, "/", auth.FlashError, "Room not found")
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}

	draft.RoomID = room.ID
	draft.RoomName = room.Name
	draft.ReservationID = 0
	if err := s.Auth.SetDraft(w, r, draft); err != nil {
		s.serverError(w, err)
		return
	}
	http.Redirect(w, r, "/make-reservation", http.StatusSeeOther)
}

func (s *Server) handleReservationForm(w http.ResponseWriter, r *http.Request) {
	draft, ok := s.Auth.GetDraft(r)
	if !ok || draft.RoomID == 0 {
		s.redirectWithFlash(w, r, "/", auth.FlashError, "Can't get reservation from session")
		return
	}
	s.render(w, r, http.StatusOK, "templates/make-reservation.html", tmplData{
		Title:       "Make reservation",
		Reservation: reservationFromDraft(draft),
	})
}

func (s *Server) handlePostReservation(w http.ResponseWriter, r *http.Request) {
	draft, ok := s.Auth.GetDraft(r)
	if !ok || draft.RoomID == 0 {
		s.redirectWithFlash(w, r, "/", auth.FlashError, "Can't get reservation from session")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := reservationFromDraft(draft)
	res.FirstName = strings.TrimSpace(r.Form.Get("first_name"))
	res.LastName = strings.TrimSpace(r.Form.Get("last_name"))
	res.Email = strings.TrimSpace(r.Form.Get("email"))
	res.Phone = strings.TrimSpace(r.Form.Get("phone"))

	if err := res.Validate(); err != nil {
		var fe rooms.FieldErrors
		if !errors.As(err, &fe) {
			s.serverError(w, err)
			return
		}
		s.render(w, r, http.StatusUnprocessableEntity, "templates/make-reservation.html", tmplData{
			Title:       "Make reservation",
			Reservation: res,
			Errors:      fe,
		})
		return
	}

	id, err := s.Rooms.InsertReservation(r.Context(), res)
	if errors.Is(err, rooms.ErrNoAvailability) {
		s.Auth.ClearDraft(w)
		s.redirectWithFlash(w, r, "/search-availability", auth.FlashError, "Those dates were just taken, please search again")
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.logger().Info("reservation created", "reservation_id", id, "room_id", res.RoomID)

	draft.ReservationID = id
	if err := s.Auth.SetDraft(w, r, draft); err != nil {
		s.serverError(w, err)
		return
	}
	s.redirectWithFlash(w, r, "/reservation-summary", auth.FlashSuccess, "Reservation confirmed")
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	draft, ok := s.Auth.GetDraft(r)
	if !ok || draft.ReservationID == 0 {
		s.redirectWithFlash(w, r, "/", auth.FlashError, "Can't get reservation from session")
		return
	}
	res, err := s.Rooms.GetReservationByID(r.Context(), draft.ReservationID)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.Auth.ClearDraft(w)
	s.render(w, r, http.StatusOK, "templates/reservation-summary.html", tmplData{
		Title:       "Reservation summary",
		Reservation: res,
	})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "templates/login.html", tmplData{Title: "Login"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	id, err := s.Auth.Authenticate(r.Context(), username, r.FormValue("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger().Error("authenticate failed", "username", username, "error", err)
		}
		s.redirectWithFlash(w, r, "/login", auth.FlashError, "Invalid username/password")
		return
	}
	if err := s.Auth.SetSession(w, r, id); err != nil {
		s.serverError(w, err)
		return
	}
	s.redirectWithFlash(w, r, "/admin/reservations", auth.FlashSuccess, "Logged in successfully")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	s.redirectWithFlash(w, r, "/login", auth.FlashSuccess, "Logged out")
}

func (s *Server) handleAdminReservations(w http.ResponseWriter, r *http.Request) {
	list, err := s.Rooms.ListReservations(r.Context(), 100)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, r, http.StatusOK, "templates/admin-reservations.html", tmplData{
		Title:        "Reservations",
		Reservations: list,
	})
}

func reservationFromDraft(d auth.Draft) rooms.Reservation {
	return rooms.Reservation{
		RoomID:    d.RoomID,
		Room:      rooms.Room{ID: d.RoomID, Name: d.RoomName},
		StartDate: d.Start,
		EndDate:   d.End,
	}
}

func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, to string, kind auth.FlashKind, msg string) {
	s.Auth.SetFlash(w, r, auth.Flash{Kind: kind, Message: msg})
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger().Error("request failed", "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func bookURL(roomID int64, start, end string) string {
	q := url.Values{}
	q.Set("id", strconv.FormatInt(roomID, 10))
	q.Set("s", start)
	q.Set("e", end)
	return "/book-room?" + q.Encode()
}
