// Package prompts is the prompt store: per-user CRUD over stored
// prompt/expected pairs plus JSON import and export.
package prompts

import (
	"encoding/json"
	"errors"
	"fmt"

	"smartadl/internal/db"
	"smartadl/internal/models"
)

// ErrNotOwned is returned when an update or delete matches no row for
// the calling user.
var ErrNotOwned = errors.New("prompt not found for user")

type Service struct {
	queries *db.Queries
}

func New(queries *db.Queries) *Service {
	return &Service{queries: queries}
}

func (s *Service) Add(user, prompt, expected string) (int64, error) {
	return s.queries.InsertPrompt(user, prompt, expected)
}

func (s *Service) Update(user string, id int64, prompt, expected string) error {
	n, err := s.queries.UpdatePrompt(user, id, prompt, expected)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotOwned
	}
	return nil
}

func (s *Service) List(user string) ([]models.Prompt, error) {
	return s.queries.ListPrompts(user)
}

func (s *Service) Get(user string, id int64) (*models.Prompt, error) {
	return s.queries.GetPrompt(user, id)
}

func (s *Service) Delete(user string, id int64) error {
	n, err := s.queries.DeletePrompt(user, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotOwned
	}
	return nil
}

// ExportJSON renders a single prompt as pretty-printed JSON, the format
// the import side accepts back (wrapped in a list).
func ExportJSON(p models.Prompt) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding prompt: %w", err)
	}
	return data, nil
}

type importedPrompt struct {
	Prompt   *string `json:"prompt"`
	Expected *string `json:"expected"`
}

// Import appends every object of a JSON list as a new prompt for user.
// The whole batch is validated first: any element missing a non-empty
// "prompt" or "expected" string rejects the import with zero rows
// written. Returns the number of prompts added.
func (s *Service) Import(user string, data []byte) (int, error) {
	var batch []importedPrompt
	if err := json.Unmarshal(data, &batch); err != nil {
		return 0, fmt.Errorf("invalid JSON: expected a list of objects with %q and %q fields", "prompt", "expected")
	}

	for i, p := range batch {
		if p.Prompt == nil || *p.Prompt == "" {
			return 0, fmt.Errorf("invalid import: object %d is missing a %q field", i+1, "prompt")
		}
		if p.Expected == nil || *p.Expected == "" {
			return 0, fmt.Errorf("invalid import: object %d is missing an %q field", i+1, "expected")
		}
	}

	for _, p := range batch {
		if _, err := s.queries.InsertPrompt(user, *p.Prompt, *p.Expected); err != nil {
			return 0, err
		}
	}
	return len(batch), nil
}
