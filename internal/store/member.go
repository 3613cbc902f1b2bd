package store

import (
	"database/sql"
	"fmt"

	"github.com/mfalkner/kinfolk/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberCols = `id, family_id, name, alias, sex, born, died, email, notes, photo_url, deleted, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	err := scanner.Scan(
		&m.ID, &m.FamilyID, &m.Name, &m.Alias, &m.Sex, &m.Born, &m.Died,
		&m.Email, &m.Notes, &m.PhotoURL, &m.Deleted, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MemberStore) Create(familyID int64, m model.Member) (*model.Member, error) {
	result, err := s.db.Exec(
		`INSERT INTO members (family_id, name, alias, sex, born, died, email, notes, photo_url) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		familyID, m.Name, m.Alias, m.Sex, m.Born, m.Died, m.Email, m.Notes, m.PhotoURL,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(familyID, id)
}

func (s *MemberStore) GetByID(familyID, id int64) (*model.Member, error) {
	row := s.db.QueryRow(
		`SELECT `+memberCols+` FROM members WHERE family_id = ? AND id = ? AND deleted = 0`,
		familyID, id,
	)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query member: %w", err)
	}
	return m, nil
}

// List returns the family's live members ordered by id, so graph builds see
// them in creation order.
func (s *MemberStore) List(familyID int64) ([]model.Member, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM members WHERE family_id = ? AND deleted = 0 ORDER BY id`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// Search returns live members whose name or alias contains the query,
// case-insensitively, ordered by name.
func (s *MemberStore) Search(familyID int64, query string) ([]model.Member, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM members WHERE family_id = ? AND deleted = 0 AND (name LIKE ? OR alias LIKE ?) ORDER BY name`,
		familyID, pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *MemberStore) Update(familyID, id int64, m model.Member) (*model.Member, error) {
	_, err := s.db.Exec(
		`UPDATE members SET name = ?, alias = ?, sex = ?, born = ?, died = ?, email = ?, notes = ?, photo_url = ?, updated_at = CURRENT_TIMESTAMP WHERE family_id = ? AND id = ?`,
		m.Name, m.Alias, m.Sex, m.Born, m.Died, m.Email, m.Notes, m.PhotoURL, familyID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return s.GetByID(familyID, id)
}

// Delete tombstones the member and removes its relationship edges in one
// transaction, so no query ever sees an edge to a deleted member.
func (s *MemberStore) Delete(familyID, id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE members SET deleted = 1, updated_at = CURRENT_TIMESTAMP WHERE family_id = ? AND id = ?`,
		familyID, id,
	); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if _, err := tx.Exec(
		`DELETE FROM relationships WHERE family_id = ? AND (member_a = ? OR member_b = ?)`,
		familyID, id, id,
	); err != nil {
		return fmt.Errorf("delete member relationships: %w", err)
	}

	return tx.Commit()
}

func (s *MemberStore) Count(familyID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM members WHERE family_id = ? AND deleted = 0`,
		familyID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

// BornInMonth returns live members whose birth date falls in the given
// month, for the birthday reminder run.
func (s *MemberStore) BornInMonth(familyID int64, month int) ([]model.Member, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM members WHERE family_id = ? AND deleted = 0 AND CAST(substr(born, 6, 2) AS INTEGER) = ? ORDER BY substr(born, 9, 2)`,
		familyID, month,
	)
	if err != nil {
		return nil, fmt.Errorf("query birthdays: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}
