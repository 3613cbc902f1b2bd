package transfer

import (
	"bytes"
	"database/sql"
	"strings"
	"testing"

	"go.uber.org/multierr"

	"github.com/mfalkner/kinfolk/internal/database"
	"github.com/mfalkner/kinfolk/internal/familytree"
	"github.com/mfalkner/kinfolk/internal/store"
)

func setupImporter(t *testing.T) (*Importer, *sql.DB, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f, err := store.NewFamilyStore(db).Create("Test")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}

	im := NewImporter(
		store.NewMemberStore(db),
		store.NewRelationshipStore(db),
		familytree.NewValidator(),
	)
	return im, db, f.ID
}

const sampleCSV = `name,alias,sex,born,died,email,notes,parents,spouses
Alice,Al,F,1950-03-12,,,matriarch,,Dan
Bob,,M,1975-06-01,,,,Alice; Dan,
Carol,,F,1978-09-09,,,,Alice; Dan,
Dan,,M,1948-01-30,,,,,
`

func TestImportCSV(t *testing.T) {
	im, db, familyID := setupImporter(t)

	res, err := im.ImportCSV(familyID, strings.NewReader(sampleCSV), SkipInvalid)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Members != 4 {
		t.Errorf("members = %d, want 4", res.Members)
	}
	// One spouse edge plus four parent edges.
	if res.Edges != 5 {
		t.Errorf("edges = %d, want 5", res.Edges)
	}
	if res.Skipped != 0 {
		t.Errorf("skipped = %d: %v", res.Skipped, res.Problems)
	}
	if res.BatchID == "" {
		t.Error("batch id empty")
	}

	members, err := store.NewMemberStore(db).List(familyID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	edges, err := store.NewRelationshipStore(db).List(familyID)
	if err != nil {
		t.Fatalf("list edges: %v", err)
	}

	g, err := familytree.Build(members, edges)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	var bobID int64
	for _, m := range members {
		if m.Name == "Bob" {
			bobID = m.ID
		}
	}
	if parents := g.ParentsOf(bobID); len(parents) != 2 {
		t.Errorf("bob's parents = %v, want 2", parents)
	}
	if sibs := g.SiblingsOf(bobID); len(sibs) != 1 {
		t.Errorf("bob's siblings = %v, want Carol", sibs)
	}
}

func TestImportCSVSkipsInvalid(t *testing.T) {
	im, _, familyID := setupImporter(t)

	// Ghost is an unknown parent; the row itself still imports.
	csv := "name,parents\nAlice,\nBob,Alice; Ghost\n"
	res, err := im.ImportCSV(familyID, strings.NewReader(csv), SkipInvalid)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Members != 2 || res.Edges != 1 {
		t.Errorf("members=%d edges=%d, want 2/1", res.Members, res.Edges)
	}
	if res.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", res.Skipped)
	}
	errs := multierr.Errors(res.Problems)
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "Ghost") {
		t.Errorf("problems = %v", errs)
	}
}

func TestImportCSVAbortsOnInvalid(t *testing.T) {
	im, _, familyID := setupImporter(t)

	csv := "name,parents\nAlice,\nBob,Ghost\n"
	_, err := im.ImportCSV(familyID, strings.NewReader(csv), AbortOnInvalid)
	if err == nil {
		t.Fatal("expected abort error")
	}
	if !strings.Contains(err.Error(), "Ghost") {
		t.Errorf("err = %v", err)
	}
}

func TestImportCSVRejectsCycle(t *testing.T) {
	im, _, familyID := setupImporter(t)

	// Alice -> Bob -> Alice closes a parent cycle; the validator drops
	// the second edge.
	csv := "name,parents\nAlice,Bob\nBob,Alice\n"
	res, err := im.ImportCSV(familyID, strings.NewReader(csv), SkipInvalid)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Edges != 1 || res.Skipped != 1 {
		t.Errorf("edges=%d skipped=%d, want 1/1", res.Edges, res.Skipped)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	im, db, familyID := setupImporter(t)

	if _, err := im.ImportCSV(familyID, strings.NewReader(sampleCSV), AbortOnInvalid); err != nil {
		t.Fatalf("import: %v", err)
	}

	members, _ := store.NewMemberStore(db).List(familyID)
	edges, _ := store.NewRelationshipStore(db).List(familyID)

	var buf bytes.Buffer
	if err := ExportCSV(&buf, members, edges); err != nil {
		t.Fatalf("export: %v", err)
	}

	// Re-import into a second family and compare shape.
	f2, err := store.NewFamilyStore(db).Create("Copy")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	res, err := im.ImportCSV(f2.ID, bytes.NewReader(buf.Bytes()), AbortOnInvalid)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if res.Members != 4 || res.Edges != 5 {
		t.Errorf("round trip members=%d edges=%d, want 4/5", res.Members, res.Edges)
	}
}

func TestImportHonorsParentCap(t *testing.T) {
	im, db, familyID := setupImporter(t)

	// Default cap is two parents; the third is skipped.
	csv := "name,parents\nDad,\nMom,\nStep,\nKid,Dad; Mom; Step\n"
	res, err := im.ImportCSV(familyID, strings.NewReader(csv), SkipInvalid)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Edges != 2 || res.Skipped != 1 {
		t.Errorf("edges=%d skipped=%d, want 2/1", res.Edges, res.Skipped)
	}
	errs := multierr.Errors(res.Problems)
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "parents") {
		t.Errorf("problems = %v", errs)
	}

	// With the cap disabled the same file loads in full.
	f2, err := store.NewFamilyStore(db).Create("Uncapped")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	uncapped := NewImporter(
		store.NewMemberStore(db),
		store.NewRelationshipStore(db),
		familytree.NewValidator(familytree.WithMaxParents(0)),
	)
	res, err = uncapped.ImportCSV(f2.ID, strings.NewReader(csv), SkipInvalid)
	if err != nil {
		t.Fatalf("uncapped import: %v", err)
	}
	if res.Edges != 3 || res.Skipped != 0 {
		t.Errorf("uncapped edges=%d skipped=%d, want 3/0: %v", res.Edges, res.Skipped, res.Problems)
	}
}

func TestCSVRoundTripSiblings(t *testing.T) {
	im, db, familyID := setupImporter(t)

	csv := "name,siblings\nAlice,Bob\nBob,\n"
	res, err := im.ImportCSV(familyID, strings.NewReader(csv), AbortOnInvalid)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Edges != 1 {
		t.Fatalf("edges = %d, want 1", res.Edges)
	}

	members, _ := store.NewMemberStore(db).List(familyID)
	edges, _ := store.NewRelationshipStore(db).List(familyID)

	var buf bytes.Buffer
	if err := ExportCSV(&buf, members, edges); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(buf.String(), "siblings") {
		t.Fatalf("export missing siblings column:\n%s", buf.String())
	}

	f2, err := store.NewFamilyStore(db).Create("Copy")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	res, err = im.ImportCSV(f2.ID, bytes.NewReader(buf.Bytes()), AbortOnInvalid)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if res.Members != 2 || res.Edges != 1 {
		t.Errorf("round trip members=%d edges=%d, want 2/1", res.Members, res.Edges)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	im, db, familyID := setupImporter(t)

	doc := `{
	  "members": [
	    {"name": "Alice", "born": "1950-03-12"},
	    {"name": "Bob"}
	  ],
	  "relationships": [
	    {"from": "Alice", "to": "Bob", "kind": "parent"}
	  ]
	}`
	res, err := im.ImportJSON(familyID, strings.NewReader(doc), AbortOnInvalid)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Members != 2 || res.Edges != 1 {
		t.Errorf("members=%d edges=%d, want 2/1", res.Members, res.Edges)
	}

	members, _ := store.NewMemberStore(db).List(familyID)
	edges, _ := store.NewRelationshipStore(db).List(familyID)

	var buf bytes.Buffer
	if err := ExportJSON(&buf, members, edges); err != nil {
		t.Fatalf("export: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"Alice"`, `"Bob"`, `"kind": "parent"`} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %s:\n%s", want, out)
		}
	}
}
