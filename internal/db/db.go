package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    current_user TEXT
);

CREATE TABLE IF NOT EXISTS prompts (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    user     TEXT NOT NULL,
    prompt   TEXT NOT NULL,
    expected TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tests_history (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user       TEXT NOT NULL,
    prompt     TEXT NOT NULL,
    expected   TEXT NOT NULL,
    ai_answer  TEXT NOT NULL,
    is_correct INTEGER NOT NULL,
    date_test  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS adl_history (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user       TEXT NOT NULL,
    code       TEXT NOT NULL,
    question   TEXT NOT NULL DEFAULT '',
    answer     TEXT NOT NULL DEFAULT '',
    date_saved TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_prompts_user ON prompts(user);
CREATE INDEX IF NOT EXISTS idx_tests_history_user ON tests_history(user);
CREATE INDEX IF NOT EXISTS idx_adl_history_user ON adl_history(user);
`

func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running schema migration: %w", err)
	}
	return db, nil
}
