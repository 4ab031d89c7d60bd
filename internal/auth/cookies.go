package auth

import (
	"net/http"
	"time"
)

// Draft is the reservation in progress, carried between the availability
// search and the reservation form.
type Draft struct {
	RoomID        int64
	RoomName      string
	Start         time.Time
	End           time.Time
	ReservationID int64
}

func (s *Store) SetDraft(w http.ResponseWriter, r *http.Request, d Draft) error {
	return s.write(w, r, draftCookie, d, draftTTL)
}

func (s *Store) GetDraft(r *http.Request) (Draft, bool) {
	var d Draft
	if !s.read(r, draftCookie, &d) {
		return Draft{}, false
	}
	return d, true
}

func (s *Store) ClearDraft(w http.ResponseWriter) {
	clearCookie(w, draftCookie)
}

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashWarning FlashKind = "warning"
	FlashError   FlashKind = "error"
)

// Flash is a one-shot message shown on the next page the browser loads.
type Flash struct {
	Kind    FlashKind
	Message string
}

func (s *Store) SetFlash(w http.ResponseWriter, r *http.Request, f Flash) {
	_ = s.write(w, r, flashCookie, f, time.Minute)
}

// PopFlash returns the pending flash, if any, and clears it.
func (s *Store) PopFlash(w http.ResponseWriter, r *http.Request) (Flash, bool) {
	var f Flash
	if !s.read(r, flashCookie, &f) {
		return Flash{}, false
	}
	clearCookie(w, flashCookie)
	return f, f.Message != ""
}
