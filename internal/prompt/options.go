package prompt

import (
	"context"
	"time"
)

// Icon is the pop-up library's icon kind. Values outside the constants below
// are forwarded as-is.
type Icon string

const (
	IconNone     Icon = ""
	IconSuccess  Icon = "success"
	IconError    Icon = "error"
	IconWarning  Icon = "warning"
	IconInfo     Icon = "info"
	IconQuestion Icon = "question"
)

// Position is where a toast is anchored on screen.
type Position string

const (
	PositionTop         Position = "top"
	PositionTopStart    Position = "top-start"
	PositionTopEnd      Position = "top-end"
	PositionCenter      Position = "center"
	PositionCenterStart Position = "center-start"
	PositionCenterEnd   Position = "center-end"
	PositionBottom      Position = "bottom"
	PositionBottomStart Position = "bottom-start"
	PositionBottomEnd   Position = "bottom-end"
)

// DismissReason tells how a modal was closed without being confirmed.
type DismissReason string

const (
	DismissCancel   DismissReason = "cancel"
	DismissBackdrop DismissReason = "backdrop"
	DismissClose    DismissReason = "close"
	DismissEsc      DismissReason = "esc"
	DismissTimer    DismissReason = "timer"
)

// Field maps an input element on the host page to the key its value is
// reported under.
type Field struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Options is the subset of the pop-up library's configuration that a Prompt
// forwards. JSON keys follow the library's own names.
type Options struct {
	Toast             bool     `json:"toast"`
	Icon              Icon     `json:"icon,omitempty"`
	Title             string   `json:"title"`
	Text              string   `json:"text,omitempty"`
	HTML              string   `json:"html,omitempty"`
	Footer            string   `json:"footer,omitempty"`
	Position          Position `json:"position,omitempty"`
	Timer             int64    `json:"timer,omitempty"` // milliseconds
	TimerProgressBar  bool     `json:"timerProgressBar"`
	PauseOnHover      bool     `json:"pauseOnHover"`
	ShowConfirmButton bool     `json:"showConfirmButton"`
	ShowCancelButton  bool     `json:"showCancelButton"`
	Backdrop          bool     `json:"backdrop"`
	FocusConfirm      bool     `json:"focusConfirm"`
	Inputs            []Field  `json:"inputs,omitempty"`
}

// Hooks are lifecycle callbacks a Renderer invokes while a modal opens.
// Either may be nil.
type Hooks struct {
	WillOpen func()
	DidOpen  func()
}

// Reply is what a Renderer resolves a modal with. Values are keyed by
// Field.ID and hold the inputs exactly as read at confirmation time.
type Reply struct {
	IsConfirmed bool              `json:"isConfirmed"`
	IsDismissed bool              `json:"isDismissed"`
	Dismiss     DismissReason     `json:"dismiss,omitempty"`
	Values      map[string]string `json:"values,omitempty"`
}

// Renderer draws pop-ups somewhere a guest can see them.
//
// Show schedules a non-interactive pop-up and must not block. Fire opens a
// modal and blocks until it is resolved or ctx is done; a nil Reply with a nil
// error means the modal went away without producing a result.
type Renderer interface {
	Show(opts Options) error
	Fire(ctx context.Context, opts Options, hooks Hooks) (*Reply, error)
}

func millis(d time.Duration) int64 {
	return int64(d / time.Millisecond)
}
