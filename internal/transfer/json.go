package transfer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mfalkner/kinfolk/internal/model"
)

// treeDocument is the JSON exchange format: members by name, edges naming
// both endpoints.
type treeDocument struct {
	Members []jsonMember `json:"members"`
	Edges   []jsonEdge   `json:"relationships"`
}

type jsonMember struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
	Sex   string `json:"sex,omitempty"`
	Born  string `json:"born,omitempty"`
	Died  string `json:"died,omitempty"`
	Email string `json:"email,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type jsonEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
}

// ImportJSON reads a tree document and loads it into the family.
func (im *Importer) ImportJSON(familyID int64, r io.Reader, policy Policy) (*Result, error) {
	var doc treeDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	rowByName := make(map[string]*memberRow, len(doc.Members))
	rows := make([]memberRow, 0, len(doc.Members))
	for _, m := range doc.Members {
		rows = append(rows, memberRow{
			Name:  m.Name,
			Alias: m.Alias,
			Sex:   m.Sex,
			Born:  m.Born,
			Died:  m.Died,
			Email: m.Email,
			Notes: m.Notes,
		})
	}
	for i := range rows {
		rowByName[rows[i].Name] = &rows[i]
	}

	// Fold edges into the target rows so load handles both formats alike.
	for _, e := range doc.Edges {
		switch e.Kind {
		case model.KindParent:
			if row, ok := rowByName[e.To]; ok {
				row.Parents = append(row.Parents, e.From)
			}
		case model.KindSpouse:
			if row, ok := rowByName[e.From]; ok {
				row.Spouses = append(row.Spouses, e.To)
			}
		case model.KindSibling:
			if row, ok := rowByName[e.From]; ok {
				row.Siblings = append(row.Siblings, e.To)
			}
		}
	}

	return im.load(familyID, rows, policy)
}

// ExportJSON writes the family's tree as a document ImportJSON can read.
func ExportJSON(w io.Writer, members []model.Member, edges []model.Relationship) error {
	nameByID := make(map[int64]string, len(members))
	doc := treeDocument{
		Members: make([]jsonMember, 0, len(members)),
		Edges:   make([]jsonEdge, 0, len(edges)),
	}
	for _, m := range members {
		nameByID[m.ID] = m.Name
		doc.Members = append(doc.Members, jsonMember{
			Name:  m.Name,
			Alias: m.Alias,
			Sex:   m.Sex,
			Born:  m.Born,
			Died:  m.Died,
			Email: m.Email,
			Notes: m.Notes,
		})
	}
	for _, e := range edges {
		doc.Edges = append(doc.Edges, jsonEdge{
			From: nameByID[e.MemberA],
			To:   nameByID[e.MemberB],
			Kind: e.Kind,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
