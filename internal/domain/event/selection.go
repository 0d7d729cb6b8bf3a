package event

import "time"

// Selection records a selection change that took effect in a session.
type Selection struct {
	Session string    `json:"session"`
	Widget  string    `json:"widget"`
	Field   string    `json:"field"`
	Op      string    `json:"op"`
	Value   string    `json:"value,omitempty"`
	At      time.Time `json:"at"`
}
