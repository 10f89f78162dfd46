package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// TicketID keeps the raw JSON token of a ticket identifier so that
// numeric and string ids are written back exactly as they were read.
type TicketID json.RawMessage

func (id TicketID) MarshalJSON() ([]byte, error) {
	if len(id) == 0 {
		return []byte("null"), nil
	}
	return []byte(id), nil
}

func (id *TicketID) UnmarshalJSON(b []byte) error {
	if id == nil {
		return errors.New("models.TicketID: UnmarshalJSON on nil pointer")
	}
	*id = append((*id)[0:0], bytes.TrimSpace(b)...)
	return nil
}

// IsScalar reports whether the id is a JSON string or number.
func (id TicketID) IsScalar() bool {
	if len(id) == 0 {
		return false
	}
	switch c := id[0]; {
	case c == '"':
		var s string
		return json.Unmarshal(id, &s) == nil
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		return json.Unmarshal(id, &n) == nil
	}
	return false
}

// String renders the id for logs: strings unquoted, numbers as written.
func (id TicketID) String() string {
	if len(id) > 0 && id[0] == '"' {
		if s, err := strconv.Unquote(string(id)); err == nil {
			return s
		}
	}
	return string(id)
}

type Category string

// Categories is the fixed support taxonomy, in prompt order.
var Categories = []Category{
	"Billing Issue",
	"Technical Problem",
	"Account Access",
	"Feature Request",
	"General Inquiry",
	"Bug Report",
	"Refund Request",
	"Subscription Management",
}

type Ticket struct {
	ID      TicketID `json:"id" validate:"ticketid"`
	Message string   `json:"message"`
}

type TagAssignment struct {
	ID      TicketID   `json:"id"`
	Message string     `json:"message"`
	Tags    []Category `json:"tags"`
}

type Run struct {
	ID         string          `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at"`
	Status     string          `json:"status"`
	Summary    json.RawMessage `json:"summary"`
}
