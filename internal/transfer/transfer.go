// Package transfer moves whole family trees in and out of the database as
// CSV or JSON. Imports run every edge through the same validator the API
// uses, so a file cannot smuggle in a cycle or a duplicate edge.
package transfer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/mfalkner/kinfolk/internal/familytree"
	"github.com/mfalkner/kinfolk/internal/model"
	"github.com/mfalkner/kinfolk/internal/store"
)

// Policy decides what happens when a record fails validation.
type Policy int

const (
	// SkipInvalid drops bad records and reports them in the result.
	SkipInvalid Policy = iota
	// AbortOnInvalid stops at the first bad record. Members created before
	// the failure are kept; the caller decides whether to clean up.
	AbortOnInvalid
)

// Result summarizes one import run. BatchID tags the run in logs.
// Problems holds the per-record errors of a SkipInvalid run.
type Result struct {
	BatchID  string `json:"batch_id"`
	Members  int    `json:"members"`
	Edges    int    `json:"edges"`
	Skipped  int    `json:"skipped"`
	Problems error  `json:"-"`
}

// memberRow is the flat exchange form of a member plus its outbound
// relationships, named by the other member.
type memberRow struct {
	Name     string
	Alias    string
	Sex      string
	Born     string
	Died     string
	Email    string
	Notes    string
	Parents  []string
	Spouses  []string
	Siblings []string
}

// Importer writes parsed trees into a family's stores.
type Importer struct {
	members       *store.MemberStore
	relationships *store.RelationshipStore
	validator     *familytree.Validator
}

func NewImporter(memberStore *store.MemberStore, relationshipStore *store.RelationshipStore, validator *familytree.Validator) *Importer {
	return &Importer{
		members:       memberStore,
		relationships: relationshipStore,
		validator:     validator,
	}
}

// load creates the members first, then the edges, so every edge target
// exists by the time it is validated. Names must be unique within the file;
// edges refer to members by name.
func (im *Importer) load(familyID int64, rows []memberRow, policy Policy) (*Result, error) {
	res := &Result{BatchID: uuid.NewString()}

	idByName := make(map[string]int64, len(rows))
	for i, row := range rows {
		if row.Name == "" {
			err := fmt.Errorf("row %d: missing name", i+1)
			if policy == AbortOnInvalid {
				return res, err
			}
			res.Skipped++
			res.Problems = multierr.Append(res.Problems, err)
			continue
		}
		if _, dup := idByName[row.Name]; dup {
			err := fmt.Errorf("row %d: duplicate name %q", i+1, row.Name)
			if policy == AbortOnInvalid {
				return res, err
			}
			res.Skipped++
			res.Problems = multierr.Append(res.Problems, err)
			continue
		}

		m, err := im.members.Create(familyID, model.Member{
			Name:  row.Name,
			Alias: row.Alias,
			Sex:   row.Sex,
			Born:  row.Born,
			Died:  row.Died,
			Email: row.Email,
			Notes: row.Notes,
		})
		if err != nil {
			return res, fmt.Errorf("create member %q: %w", row.Name, err)
		}
		idByName[row.Name] = m.ID
		res.Members++
	}

	existing, err := im.relationships.List(familyID)
	if err != nil {
		return res, fmt.Errorf("list relationships: %w", err)
	}

	for _, row := range rows {
		selfID, ok := idByName[row.Name]
		if !ok {
			continue
		}
		for _, parent := range row.Parents {
			existing, err = im.addEdge(familyID, res, existing, idByName, parent, selfID, model.KindParent, policy)
			if err != nil {
				return res, err
			}
		}
		for _, spouse := range row.Spouses {
			existing, err = im.addSymmetric(familyID, res, existing, idByName, row.Name, spouse, selfID, model.KindSpouse, policy)
			if err != nil {
				return res, err
			}
		}
		for _, sibling := range row.Siblings {
			existing, err = im.addSymmetric(familyID, res, existing, idByName, row.Name, sibling, selfID, model.KindSibling, policy)
			if err != nil {
				return res, err
			}
		}
	}

	return res, nil
}

func (im *Importer) addEdge(familyID int64, res *Result, existing []model.Relationship, idByName map[string]int64, fromName string, toID int64, kind string, policy Policy) ([]model.Relationship, error) {
	fromID, ok := idByName[fromName]
	if !ok {
		err := fmt.Errorf("unknown member %q in %s edge", fromName, kind)
		if policy == AbortOnInvalid {
			return existing, err
		}
		res.Skipped++
		res.Problems = multierr.Append(res.Problems, err)
		return existing, nil
	}
	return im.addEdgeIDs(familyID, res, existing, fromID, toID, kind, policy)
}

func (im *Importer) addSymmetric(familyID int64, res *Result, existing []model.Relationship, idByName map[string]int64, selfName, otherName string, selfID int64, kind string, policy Policy) ([]model.Relationship, error) {
	otherID, ok := idByName[otherName]
	if !ok {
		err := fmt.Errorf("member %q: unknown %s %q", selfName, kind, otherName)
		if policy == AbortOnInvalid {
			return existing, err
		}
		res.Skipped++
		res.Problems = multierr.Append(res.Problems, err)
		return existing, nil
	}
	return im.addEdgeIDs(familyID, res, existing, selfID, otherID, kind, policy)
}

func (im *Importer) addEdgeIDs(familyID int64, res *Result, existing []model.Relationship, a, b int64, kind string, policy Policy) ([]model.Relationship, error) {
	probe := model.Relationship{MemberA: a, MemberB: b, Kind: kind}
	check := im.validator.ValidateMutation(probe, familytree.OpInsert, existing)
	if !check.OK {
		err := fmt.Errorf("%s edge %d->%d: %s", kind, a, b, check.Reason)
		if policy == AbortOnInvalid {
			return existing, err
		}
		res.Skipped++
		res.Problems = multierr.Append(res.Problems, err)
		return existing, nil
	}

	created, err := im.relationships.Create(familyID, probe)
	if err != nil {
		return existing, fmt.Errorf("create %s edge: %w", kind, err)
	}
	res.Edges++
	return append(existing, *created), nil
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinNames(names []string) string {
	return strings.Join(names, "; ")
}
