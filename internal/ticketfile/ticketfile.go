package ticketfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/ticket-tagger/backend/internal/models"
)

// StoreReadError is returned when the ticket input cannot be loaded. It is
// always fatal for a run.
type StoreReadError struct {
	Path string
	Err  error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("read tickets %s: %v", e.Path, e.Err)
}

func (e *StoreReadError) Unwrap() error {
	return e.Err
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("ticketid", func(fl validator.FieldLevel) bool {
		id, ok := fl.Field().Interface().(models.TicketID)
		return ok && id.IsScalar()
	})
	return v
}

// Load parses path as a JSON array of tickets and returns them in file order.
func Load(path string) ([]models.Ticket, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &StoreReadError{Path: path, Err: err}
	}

	var records []record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, &StoreReadError{Path: path, Err: err}
	}
	if records == nil {
		return nil, &StoreReadError{Path: path, Err: fmt.Errorf("expected a JSON array of tickets")}
	}

	tickets := make([]models.Ticket, 0, len(records))
	for i, r := range records {
		if r.Message == nil {
			return nil, &StoreReadError{Path: path, Err: fmt.Errorf("ticket %d: message is missing", i)}
		}
		t := models.Ticket{ID: r.ID, Message: *r.Message}
		if err := validate.Struct(t); err != nil {
			return nil, &StoreReadError{Path: path, Err: fmt.Errorf("ticket %d: id must be a string or integer: %w", i, err)}
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

// record tells an absent message apart from an empty one.
type record struct {
	ID      models.TicketID `json:"id"`
	Message *string         `json:"message"`
}

// Write replaces path with the assignments as indented JSON, creating
// parent directories as needed.
func Write(path string, assignments []models.TagAssignment) error {
	out := make([]models.TagAssignment, len(assignments))
	copy(out, assignments)
	for i := range out {
		if out[i].Tags == nil {
			out[i].Tags = []models.Category{}
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode assignments: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return replaceFile(dir, path, buf.Bytes())
}

// replaceFile writes data to a temp file next to path and renames it over
// path, so a failed write leaves any previous file intact.
func replaceFile(dir, path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write assignments: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write assignments: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("write assignments: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("write assignments: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("write assignments: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write assignments: %w", err)
	}
	return nil
}
