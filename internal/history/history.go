// Package history is the append-only log of past test runs and editor
// interactions, with user-scoped retrieval and row deletion.
package history

import (
	"errors"
	"time"

	"smartadl/internal/db"
	"smartadl/internal/models"
)

// ErrNotOwned is returned when a deletion matches no row for the
// calling user.
var ErrNotOwned = errors.New("history row not found for user")

type Store struct {
	queries *db.Queries
	now     func() time.Time
}

func New(queries *db.Queries) *Store {
	return &Store{queries: queries, now: time.Now}
}

func (s *Store) timestamp() string {
	return s.now().Format(time.DateTime)
}

// RecordTest appends one test result with a server-generated timestamp.
func (s *Store) RecordTest(user, prompt, expected, aiAnswer string, isCorrect bool) error {
	_, err := s.queries.InsertTestResult(models.TestResult{
		User:      user,
		Prompt:    prompt,
		Expected:  expected,
		AIAnswer:  aiAnswer,
		IsCorrect: isCorrect,
		DateTest:  s.timestamp(),
	})
	return err
}

// RecordADL appends one editor interaction with a server-generated
// timestamp. Question and answer may be empty (the optimizer records
// only the code).
func (s *Store) RecordADL(user, code, question, answer string) error {
	_, err := s.queries.InsertAdlInteraction(models.AdlInteraction{
		User:      user,
		Code:      code,
		Question:  question,
		Answer:    answer,
		DateSaved: s.timestamp(),
	})
	return err
}

func (s *Store) ListTests(user string) ([]models.TestResult, error) {
	return s.queries.ListTestResults(user)
}

func (s *Store) ListADL(user string) ([]models.AdlInteraction, error) {
	return s.queries.ListAdlInteractions(user)
}

func (s *Store) DeleteTest(user string, id int64) error {
	n, err := s.queries.DeleteTestResult(user, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotOwned
	}
	return nil
}

func (s *Store) DeleteADL(user string, id int64) error {
	n, err := s.queries.DeleteAdlInteraction(user, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotOwned
	}
	return nil
}
