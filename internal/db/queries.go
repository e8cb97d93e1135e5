package db

import (
	"database/sql"
	"fmt"

	"smartadl/internal/models"
)

type Queries struct {
	db *sql.DB
}

func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// Users

func (q *Queries) CreateUser(username, digest string) error {
	if _, err := q.db.Exec(
		`INSERT INTO users (username, password) VALUES (?, ?)`, username, digest,
	); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (q *Queries) GetUser(username string) (*models.User, error) {
	u := &models.User{}
	err := q.db.QueryRow(
		`SELECT id, username, password FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.Password)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// Session pointer: a single-row-or-empty table, replaced wholesale.

func (q *Queries) ReplaceSession(username string) error {
	if err := q.ClearSession(); err != nil {
		return err
	}
	if _, err := q.db.Exec(`INSERT INTO session (current_user) VALUES (?)`, username); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (q *Queries) ClearSession() error {
	if _, err := q.db.Exec(`DELETE FROM session`); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

func (q *Queries) CurrentSession() (string, bool, error) {
	var username sql.NullString
	err := q.db.QueryRow(`SELECT current_user FROM session LIMIT 1`).Scan(&username)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading session: %w", err)
	}
	if !username.Valid || username.String == "" {
		return "", false, nil
	}
	return username.String, true, nil
}

// Prompts

func (q *Queries) InsertPrompt(user, prompt, expected string) (int64, error) {
	res, err := q.db.Exec(
		`INSERT INTO prompts (user, prompt, expected) VALUES (?, ?, ?)`,
		user, prompt, expected,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting prompt: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// UpdatePrompt overwrites the text fields of a prompt. The user guard
// keeps callers from touching rows they do not own; a mismatch is a
// zero-row no-op.
func (q *Queries) UpdatePrompt(user string, id int64, prompt, expected string) (int64, error) {
	res, err := q.db.Exec(
		`UPDATE prompts SET prompt = ?, expected = ? WHERE id = ? AND user = ?`,
		prompt, expected, id, user,
	)
	if err != nil {
		return 0, fmt.Errorf("updating prompt: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (q *Queries) GetPrompt(user string, id int64) (*models.Prompt, error) {
	p := &models.Prompt{}
	err := q.db.QueryRow(
		`SELECT id, user, prompt, expected FROM prompts WHERE id = ? AND user = ?`, id, user,
	).Scan(&p.ID, &p.User, &p.Prompt, &p.Expected)
	if err != nil {
		return nil, fmt.Errorf("getting prompt: %w", err)
	}
	return p, nil
}

func (q *Queries) ListPrompts(user string) ([]models.Prompt, error) {
	rows, err := q.db.Query(
		`SELECT id, user, prompt, expected FROM prompts WHERE user = ? ORDER BY id ASC`, user,
	)
	if err != nil {
		return nil, fmt.Errorf("listing prompts: %w", err)
	}
	defer rows.Close()

	var results []models.Prompt
	for rows.Next() {
		var p models.Prompt
		if err := rows.Scan(&p.ID, &p.User, &p.Prompt, &p.Expected); err != nil {
			return nil, fmt.Errorf("scanning prompt: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

func (q *Queries) DeletePrompt(user string, id int64) (int64, error) {
	res, err := q.db.Exec(`DELETE FROM prompts WHERE id = ? AND user = ?`, id, user)
	if err != nil {
		return 0, fmt.Errorf("deleting prompt: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Tests history

func (q *Queries) InsertTestResult(r models.TestResult) (int64, error) {
	res, err := q.db.Exec(
		`INSERT INTO tests_history (user, prompt, expected, ai_answer, is_correct, date_test)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.User, r.Prompt, r.Expected, r.AIAnswer, r.IsCorrect, r.DateTest,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting test result: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

func (q *Queries) ListTestResults(user string) ([]models.TestResult, error) {
	rows, err := q.db.Query(
		`SELECT id, user, prompt, expected, ai_answer, is_correct, date_test
		 FROM tests_history WHERE user = ? ORDER BY date_test DESC, id DESC`, user,
	)
	if err != nil {
		return nil, fmt.Errorf("listing test history: %w", err)
	}
	defer rows.Close()

	var results []models.TestResult
	for rows.Next() {
		var r models.TestResult
		if err := rows.Scan(&r.ID, &r.User, &r.Prompt, &r.Expected, &r.AIAnswer, &r.IsCorrect, &r.DateTest); err != nil {
			return nil, fmt.Errorf("scanning test result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (q *Queries) DeleteTestResult(user string, id int64) (int64, error) {
	res, err := q.db.Exec(`DELETE FROM tests_history WHERE id = ? AND user = ?`, id, user)
	if err != nil {
		return 0, fmt.Errorf("deleting test result: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ADL history

func (q *Queries) InsertAdlInteraction(a models.AdlInteraction) (int64, error) {
	res, err := q.db.Exec(
		`INSERT INTO adl_history (user, code, question, answer, date_saved)
		 VALUES (?, ?, ?, ?, ?)`,
		a.User, a.Code, a.Question, a.Answer, a.DateSaved,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting adl interaction: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

func (q *Queries) ListAdlInteractions(user string) ([]models.AdlInteraction, error) {
	rows, err := q.db.Query(
		`SELECT id, user, code, question, answer, date_saved
		 FROM adl_history WHERE user = ? ORDER BY date_saved DESC, id DESC`, user,
	)
	if err != nil {
		return nil, fmt.Errorf("listing adl history: %w", err)
	}
	defer rows.Close()

	var results []models.AdlInteraction
	for rows.Next() {
		var a models.AdlInteraction
		if err := rows.Scan(&a.ID, &a.User, &a.Code, &a.Question, &a.Answer, &a.DateSaved); err != nil {
			return nil, fmt.Errorf("scanning adl interaction: %w", err)
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

func (q *Queries) DeleteAdlInteraction(user string, id int64) (int64, error) {
	res, err := q.db.Exec(`DELETE FROM adl_history WHERE id = ? AND user = ?`, id, user)
	if err != nil {
		return 0, fmt.Errorf("deleting adl interaction: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
