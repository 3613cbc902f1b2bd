package store

import (
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	familyID := createTestFamily(t, db)
	us := NewUserStore(db)
	ss := NewSessionStore(db)

	u, err := us.Create("alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	sess, err := ss.Create(u.ID, familyID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(sess.Token))
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got == nil || got.UserID != u.ID || got.FamilyID != familyID {
		t.Errorf("session = %+v", got)
	}

	if err := ss.Delete(sess.Token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	got, err = ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get deleted session: %v", err)
	}
	if got != nil {
		t.Errorf("deleted session still valid: %+v", got)
	}
}

func TestSessionExpiry(t *testing.T) {
	db := setupTestDB(t)
	familyID := createTestFamily(t, db)
	us := NewUserStore(db)
	ss := NewSessionStore(db)

	u, err := us.Create("bob@example.com", "Bob")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	sess, err := ss.Create(u.ID, familyID, -time.Minute)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get expired session: %v", err)
	}
	if got != nil {
		t.Errorf("expired session still valid: %+v", got)
	}

	count, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if count != 1 {
		t.Errorf("deleted %d expired sessions, want 1", count)
	}
}
