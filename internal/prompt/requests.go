package prompt

import (
	"sync"
	"time"
)

const (
	// DefaultToastTimer is how long a toast stays up when ToastRequest.Timer is zero.
	DefaultToastTimer = 3 * time.Second

	// ErrorTitle is the title every error dialog carries.
	ErrorTitle = "Sorry"
)

// DefaultFields are the inputs a custom dialog reads when none are given.
var DefaultFields = []Field{
	{ID: "start", Role: "start"},
	{ID: "end", Role: "end"},
}

// ToastRequest describes a small auto-dismissing notification.
type ToastRequest struct {
	Message  string
	Icon     Icon          // default IconSuccess
	Position Position      // default PositionTopEnd
	Timer    time.Duration // default DefaultToastTimer
}

// Options returns the renderer options for r with defaults applied.
func (r ToastRequest) Options() Options {
	if r.Icon == "" {
		r.Icon = IconSuccess
	}
	if r.Position == "" {
		r.Position = PositionTopEnd
	}
	if r.Timer == 0 {
		r.Timer = DefaultToastTimer
	}
	return Options{
		Toast:             true,
		Icon:              r.Icon,
		Title:             r.Message,
		Position:          r.Position,
		Timer:             millis(r.Timer),
		TimerProgressBar:  true,
		PauseOnHover:      true,
		ShowConfirmButton: false,
	}
}

// NoticeRequest describes an informational modal.
type NoticeRequest struct {
	Message string
	Icon    Icon // default IconSuccess
	Title   string
	Footer  string
}

func (r NoticeRequest) Options() Options {
	if r.Icon == "" {
		r.Icon = IconSuccess
	}
	return Options{
		Icon:              r.Icon,
		Title:             r.Title,
		Text:              r.Message,
		Footer:            r.Footer,
		ShowConfirmButton: true,
		Backdrop:          true,
		FocusConfirm:      true,
	}
}

// ErrorRequest describes an error modal. Its title is always ErrorTitle.
type ErrorRequest struct {
	Message string
	Icon    Icon // default IconError
}

func (r ErrorRequest) Options() Options {
	if r.Icon == "" {
		r.Icon = IconError
	}
	return NoticeRequest{Message: r.Message, Icon: r.Icon, Title: ErrorTitle}.Options()
}

// CustomRequest describes a modal with input fields rendered by the host page.
type CustomRequest struct {
	Icon  Icon
	Title string
	Body  string // HTML

	// HideConfirmButton leaves only the cancel control on the dialog.
	HideConfirmButton bool

	// Fields lists the inputs read on confirmation; the first one must be
	// non-empty for the dialog to count as confirmed. Defaults to DefaultFields.
	Fields []Field

	// OnOpen runs before the dialog becomes interactive, OnShown once it is
	// on screen. Each runs at most once, OnOpen first.
	OnOpen  func()
	OnShown func()

	// Callback, if set, receives the result exactly once, after the
	// Pending handle is marked done.
	Callback func(Result)
}

func (r CustomRequest) Options() Options {
	fields := r.Fields
	if len(fields) == 0 {
		fields = DefaultFields
	}
	return Options{
		Icon:              r.Icon,
		Title:             r.Title,
		HTML:              r.Body,
		ShowConfirmButton: !r.HideConfirmButton,
		ShowCancelButton:  true,
		Backdrop:          false,
		FocusConfirm:      false,
		Inputs:            append([]Field(nil), fields...),
	}
}

func (r CustomRequest) hooks() Hooks {
	var h Hooks
	if r.OnOpen != nil {
		h.WillOpen = onceFunc(r.OnOpen)
	}
	if r.OnShown != nil {
		shown := onceFunc(r.OnShown)
		willOpen := h.WillOpen
		h.DidOpen = func() {
			if willOpen != nil {
				willOpen()
			}
			shown()
		}
	}
	return h
}

func onceFunc(f func()) func() {
	var once sync.Once
	return func() { once.Do(f) }
}
