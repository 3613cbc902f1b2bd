package store

import (
	"database/sql"
	"fmt"

	"github.com/mfalkner/kinfolk/internal/model"
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

func scanFamily(scanner interface{ Scan(...any) error }) (*model.Family, error) {
	var f model.Family
	err := scanner.Scan(&f.ID, &f.Name, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanFamilyUser(scanner interface{ Scan(...any) error }) (*model.FamilyUser, error) {
	var fu model.FamilyUser
	err := scanner.Scan(&fu.ID, &fu.FamilyID, &fu.UserID, &fu.Role, &fu.CreatedAt, &fu.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &fu, nil
}

const familyCols = `id, name, created_at, updated_at`
const familyUserCols = `id, family_id, user_id, role, created_at, updated_at`

func (s *FamilyStore) Create(name string) (*model.Family, error) {
	result, err := s.db.Exec(`INSERT INTO families (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id int64) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

func (s *FamilyStore) Update(id int64, name string) (*model.Family, error) {
	_, err := s.db.Exec(`UPDATE families SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, name, id)
	if err != nil {
		return nil, fmt.Errorf("update family: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM families WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete family: %w", err)
	}
	return nil
}

func (s *FamilyStore) AddUser(familyID, userID int64, role string) (*model.FamilyUser, error) {
	result, err := s.db.Exec(
		`INSERT INTO family_users (family_id, user_id, role) VALUES (?, ?, ?)`,
		familyID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("add family user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+familyUserCols+` FROM family_users WHERE id = ?`, id)
	return scanFamilyUser(row)
}

func (s *FamilyStore) RemoveUser(familyID, userID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM family_users WHERE family_id = ? AND user_id = ?`,
		familyID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove family user: %w", err)
	}
	return nil
}

func (s *FamilyStore) GetUser(familyID, userID int64) (*model.FamilyUser, error) {
	row := s.db.QueryRow(
		`SELECT `+familyUserCols+` FROM family_users WHERE family_id = ? AND user_id = ?`,
		familyID, userID,
	)
	fu, err := scanFamilyUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family user: %w", err)
	}
	return fu, nil
}

// ListForUser returns every family the user belongs to, oldest first.
func (s *FamilyStore) ListForUser(userID int64) ([]model.Family, error) {
	rows, err := s.db.Query(
		`SELECT f.id, f.name, f.created_at, f.updated_at FROM families f
		 JOIN family_users fu ON fu.family_id = f.id
		 WHERE fu.user_id = ? ORDER BY f.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query families for user: %w", err)
	}
	defer rows.Close()

	var families []model.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, *f)
	}
	return families, rows.Err()
}

// ListAll returns every family id, for jobs that sweep all tenants.
func (s *FamilyStore) ListAll() ([]model.Family, error) {
	rows, err := s.db.Query(`SELECT ` + familyCols + ` FROM families ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query families: %w", err)
	}
	defer rows.Close()

	var families []model.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, *f)
	}
	return families, rows.Err()
}
