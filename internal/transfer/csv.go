package transfer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/mfalkner/kinfolk/internal/model"
)

var csvHeader = []string{"name", "alias", "sex", "born", "died", "email", "notes", "parents", "spouses", "siblings"}

// ImportCSV reads a tree from CSV. The first row must be the header;
// parents, spouses, and siblings are semicolon-separated member names.
func (im *Importer) ImportCSV(familyID int64, r io.Reader, policy Policy) (*Result, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	if _, ok := col["name"]; !ok {
		return nil, fmt.Errorf("csv header missing name column")
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var rows []memberRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		rows = append(rows, memberRow{
			Name:     field(record, "name"),
			Alias:    field(record, "alias"),
			Sex:      field(record, "sex"),
			Born:     field(record, "born"),
			Died:     field(record, "died"),
			Email:    field(record, "email"),
			Notes:    field(record, "notes"),
			Parents:  splitNames(field(record, "parents")),
			Spouses:  splitNames(field(record, "spouses")),
			Siblings: splitNames(field(record, "siblings")),
		})
	}

	return im.load(familyID, rows, policy)
}

// ExportCSV writes a family's tree in the same format ImportCSV reads, so
// an export round-trips.
func ExportCSV(w io.Writer, members []model.Member, edges []model.Relationship) error {
	nameByID := make(map[int64]string, len(members))
	for _, m := range members {
		nameByID[m.ID] = m.Name
	}

	parents := make(map[int64][]string)
	spouses := make(map[int64][]string)
	siblings := make(map[int64][]string)
	for _, e := range edges {
		switch e.Kind {
		case model.KindParent:
			parents[e.MemberB] = append(parents[e.MemberB], nameByID[e.MemberA])
		case model.KindSpouse:
			// Recorded once, against the lower-id side.
			a, b := e.MemberA, e.MemberB
			if b < a {
				a, b = b, a
			}
			spouses[a] = append(spouses[a], nameByID[b])
		case model.KindSibling:
			a, b := e.MemberA, e.MemberB
			if b < a {
				a, b = b, a
			}
			siblings[a] = append(siblings[a], nameByID[b])
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, m := range members {
		record := []string{
			m.Name, m.Alias, m.Sex, m.Born, m.Died, m.Email, m.Notes,
			joinNames(parents[m.ID]), joinNames(spouses[m.ID]), joinNames(siblings[m.ID]),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
