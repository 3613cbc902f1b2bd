package store

import (
	"database/sql"
	"fmt"

	"github.com/mfalkner/kinfolk/internal/model"
)

type RelationshipStore struct {
	db *sql.DB
}

func NewRelationshipStore(db *sql.DB) *RelationshipStore {
	return &RelationshipStore{db: db}
}

const relationshipCols = `id, family_id, member_a, member_b, kind, since, until, created_at`

func scanRelationship(scanner interface{ Scan(...any) error }) (*model.Relationship, error) {
	var r model.Relationship
	err := scanner.Scan(
		&r.ID, &r.FamilyID, &r.MemberA, &r.MemberB, &r.Kind, &r.Since, &r.Until, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RelationshipStore) Create(familyID int64, r model.Relationship) (*model.Relationship, error) {
	result, err := s.db.Exec(
		`INSERT INTO relationships (family_id, member_a, member_b, kind, since, until) VALUES (?, ?, ?, ?, ?, ?)`,
		familyID, r.MemberA, r.MemberB, r.Kind, r.Since, r.Until,
	)
	if err != nil {
		return nil, fmt.Errorf("insert relationship: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(familyID, id)
}

func (s *RelationshipStore) GetByID(familyID, id int64) (*model.Relationship, error) {
	row := s.db.QueryRow(
		`SELECT `+relationshipCols+` FROM relationships WHERE family_id = ? AND id = ?`,
		familyID, id,
	)
	r, err := scanRelationship(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query relationship: %w", err)
	}
	return r, nil
}

// List returns the family's edges ordered by id. Graph builds and the
// validator both depend on this order being stable.
func (s *RelationshipStore) List(familyID int64) ([]model.Relationship, error) {
	rows, err := s.db.Query(
		`SELECT `+relationshipCols+` FROM relationships WHERE family_id = ? ORDER BY id`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()

	var edges []model.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		edges = append(edges, *r)
	}
	return edges, rows.Err()
}

// ListForMember returns every edge touching the member, in id order.
func (s *RelationshipStore) ListForMember(familyID, memberID int64) ([]model.Relationship, error) {
	rows, err := s.db.Query(
		`SELECT `+relationshipCols+` FROM relationships WHERE family_id = ? AND (member_a = ? OR member_b = ?) ORDER BY id`,
		familyID, memberID, memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("query member relationships: %w", err)
	}
	defer rows.Close()

	var edges []model.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		edges = append(edges, *r)
	}
	return edges, rows.Err()
}

func (s *RelationshipStore) Delete(familyID, id int64) error {
	_, err := s.db.Exec(
		`DELETE FROM relationships WHERE family_id = ? AND id = ?`,
		familyID, id,
	)
	if err != nil {
		return fmt.Errorf("delete relationship: %w", err)
	}
	return nil
}

// Find locates an edge between the pair: ordered for parent edges,
// unordered for spouse and sibling. Returns nil when no such edge exists.
func (s *RelationshipStore) Find(familyID, memberA, memberB int64, kind string) (*model.Relationship, error) {
	probe := model.Relationship{MemberA: memberA, MemberB: memberB, Kind: kind}
	query := `SELECT ` + relationshipCols + ` FROM relationships WHERE family_id = ? AND kind = ? AND member_a = ? AND member_b = ?`
	args := []any{familyID, kind, memberA, memberB}
	if probe.Symmetric() {
		query = `SELECT ` + relationshipCols + ` FROM relationships WHERE family_id = ? AND kind = ? AND ((member_a = ? AND member_b = ?) OR (member_a = ? AND member_b = ?))`
		args = []any{familyID, kind, memberA, memberB, memberB, memberA}
	}

	row := s.db.QueryRow(query, args...)
	r, err := scanRelationship(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find relationship: %w", err)
	}
	return r, nil
}
