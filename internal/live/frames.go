package live

import (
	"encoding/json"

	"github.com/prayagsingh/bookings/internal/prompt"
)

// Frame types pushed to the browser.
const (
	frameShow = "show"
	frameFire = "fire"
	frameEmit = "emit"
)

// Frame types sent by the browser.
const (
	frameEvent    = "event"
	frameWillOpen = "will_open"
	frameDidOpen  = "did_open"
	frameResult   = "result"
)

type serverFrame struct {
	Type    string          `json:"type"`
	ID      uint64          `json:"id,omitempty"`
	Options *prompt.Options `json:"options,omitempty"`
	Name    string          `json:"name,omitempty"`
	Data    any             `json:"data,omitempty"`
}

type clientFrame struct {
	Type   string          `json:"type"`
	ID     uint64          `json:"id,omitempty"`
	Name   string          `json:"name,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Result *prompt.Reply   `json:"result,omitempty"`
}

// Event is a named action raised by the page, e.g. a button click.
type Event struct {
	Name string
	Data json.RawMessage
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(e.Data, v)
}
