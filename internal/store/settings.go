package store

import (
	"database/sql"
	"fmt"
	"strconv"
)

// SettingsStore holds per-family key/value settings, like the validator's
// parent cap or the reminder recipient list.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the value for a key, or "" when unset.
func (s *SettingsStore) Get(familyID int64, key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM settings WHERE family_id = ? AND key = ?`,
		familyID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// GetInt returns the value parsed as an integer, or def when unset or
// unparseable.
func (s *SettingsStore) GetInt(familyID int64, key string, def int) (int, error) {
	value, err := s.Get(familyID, key)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def, nil
	}
	return n, nil
}

func (s *SettingsStore) Set(familyID int64, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (family_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (family_id, key) DO UPDATE SET value = excluded.value`,
		familyID, key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (s *SettingsStore) Delete(familyID int64, key string) error {
	_, err := s.db.Exec(`DELETE FROM settings WHERE family_id = ? AND key = ?`, familyID, key)
	if err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}
