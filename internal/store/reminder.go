package store

import (
	"database/sql"
	"fmt"
)

// ReminderStore records which birthday reminders have been sent, keyed by
// (family, member, year) so a reminder goes out at most once per year.
type ReminderStore struct {
	db *sql.DB
}

func NewReminderStore(db *sql.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

// MarkSent records a sent reminder. Returns false when the reminder for
// this member and year was already recorded.
func (s *ReminderStore) MarkSent(familyID, memberID int64, year int) (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO reminder_log (family_id, member_id, year) VALUES (?, ?, ?)`,
		familyID, memberID, year,
	)
	if err != nil {
		return false, fmt.Errorf("insert reminder log: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return count > 0, nil
}

func (s *ReminderStore) WasSent(familyID, memberID int64, year int) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM reminder_log WHERE family_id = ? AND member_id = ? AND year = ?`,
		familyID, memberID, year,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query reminder log: %w", err)
	}
	return count > 0, nil
}

// DeleteBefore prunes log rows from years before the cutoff.
func (s *ReminderStore) DeleteBefore(year int) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM reminder_log WHERE year < ?`, year)
	if err != nil {
		return 0, fmt.Errorf("delete reminder log: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
