package subscription

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLStore persists subscriptions in a local SQLite database. Rows carry the
// JSON form of the subscription, keyed by ID.
type SQLStore struct {
	db *sql.DB
}

const sqlSchema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	id   TEXT PRIMARY KEY NOT NULL,
	body TEXT NOT NULL
);`

// OpenSQLStore opens (creating as needed) the subscription database at path.
func OpenSQLStore(path string) (*SQLStore, error) {
	var db, err = sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening subscription database %s: %w", path, err)
	}
	if _, err = db.Exec(sqlSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing subscription schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) LoadAll() ([]*Subscription, error) {
	rows, err := s.db.Query(`SELECT body FROM subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*Subscription
	for rows.Next() {
		var body string
		if err = rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning subscription row: %w", err)
		}
		var sub Subscription
		if err = json.Unmarshal([]byte(body), &sub); err != nil {
			return nil, fmt.Errorf("decoding subscription row: %w", err)
		}
		out = append(out, &sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) Upsert(sub *Subscription) error {
	var body, err = json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encoding subscription %s: %w", sub.ID, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO subscriptions (id, body) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET body = excluded.body`,
		sub.ID, string(body))
	return err
}

func (s *SQLStore) Delete(id string) error {
	var _, err = s.db.Exec(`DELETE FROM subscriptions WHERE id = ?`, id)
	return err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
