package store

import (
	"testing"

	"github.com/mfalkner/kinfolk/internal/model"
)

func TestFamilyMembership(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFamilyStore(db)
	us := NewUserStore(db)

	f, err := fs.Create("Smiths")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	u, err := us.Create("alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	fu, err := fs.AddUser(f.ID, u.ID, "admin")
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
	if fu.Role != "admin" {
		t.Errorf("role = %q, want admin", fu.Role)
	}

	got, err := fs.GetUser(f.ID, u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got == nil || got.Role != "admin" {
		t.Errorf("membership = %+v", got)
	}

	families, err := fs.ListForUser(u.ID)
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if len(families) != 1 || families[0].ID != f.ID {
		t.Errorf("families = %v", families)
	}

	if err := fs.RemoveUser(f.ID, u.ID); err != nil {
		t.Fatalf("remove user: %v", err)
	}
	got, err = fs.GetUser(f.ID, u.ID)
	if err != nil {
		t.Fatalf("get removed user: %v", err)
	}
	if got != nil {
		t.Errorf("removed membership still present: %+v", got)
	}
}

func TestReminderLogDedup(t *testing.T) {
	db := setupTestDB(t)
	familyID := createTestFamily(t, db)
	rs := NewReminderStore(db)

	m, err := NewMemberStore(db).Create(familyID, model.Member{Name: "Alice", Born: "1950-03-12"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	sent, err := rs.MarkSent(familyID, m.ID, 2026)
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if !sent {
		t.Error("first mark returned false")
	}

	sent, err = rs.MarkSent(familyID, m.ID, 2026)
	if err != nil {
		t.Fatalf("mark sent again: %v", err)
	}
	if sent {
		t.Error("duplicate mark returned true")
	}

	was, err := rs.WasSent(familyID, m.ID, 2026)
	if err != nil {
		t.Fatalf("was sent: %v", err)
	}
	if !was {
		t.Error("was sent = false after mark")
	}
}

func TestSettings(t *testing.T) {
	db := setupTestDB(t)
	familyID := createTestFamily(t, db)
	ss := NewSettingsStore(db)

	got, err := ss.GetInt(familyID, "max_parents", 2)
	if err != nil {
		t.Fatalf("get default: %v", err)
	}
	if got != 2 {
		t.Errorf("default = %d, want 2", got)
	}

	if err := ss.Set(familyID, "max_parents", "4"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err = ss.GetInt(familyID, "max_parents", 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != 4 {
		t.Errorf("value = %d, want 4", got)
	}

	// Upsert overwrites.
	if err := ss.Set(familyID, "max_parents", "3"); err != nil {
		t.Fatalf("set again: %v", err)
	}
	got, _ = ss.GetInt(familyID, "max_parents", 2)
	if got != 3 {
		t.Errorf("value = %d, want 3", got)
	}
}
