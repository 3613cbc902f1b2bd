package reminder

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/mfalkner/kinfolk/internal/database"
	"github.com/mfalkner/kinfolk/internal/model"
	"github.com/mfalkner/kinfolk/internal/store"
)

type captureSender struct {
	sent []model.Member
}

func (c *captureSender) SendBirthdayCard(_ context.Context, _ string, m model.Member) error {
	c.sent = append(c.sent, m)
	return nil
}

func setupScheduler(t *testing.T) (*Scheduler, *captureSender, *sql.DB, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	families := store.NewFamilyStore(db)
	f, err := families.Create("Test")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}

	sender := &captureSender{}
	s := NewScheduler(
		sender,
		families,
		store.NewMemberStore(db),
		store.NewReminderStore(db),
		store.NewSettingsStore(db),
		slog.Default(),
	)
	s.now = func() time.Time {
		return time.Date(2026, time.March, 12, 9, 0, 0, 0, time.UTC)
	}
	return s, sender, db, f.ID
}

func TestTickSendsBirthdayCards(t *testing.T) {
	s, sender, db, familyID := setupScheduler(t)
	members := store.NewMemberStore(db)
	settings := store.NewSettingsStore(db)

	if err := settings.Set(familyID, recipientKey, "family@example.com"); err != nil {
		t.Fatalf("set recipient: %v", err)
	}
	if _, err := members.Create(familyID, model.Member{Name: "Birthday", Born: "1950-03-12"}); err != nil {
		t.Fatalf("create member: %v", err)
	}
	if _, err := members.Create(familyID, model.Member{Name: "OtherDay", Born: "1950-03-20"}); err != nil {
		t.Fatalf("create member: %v", err)
	}
	if _, err := members.Create(familyID, model.Member{Name: "Passed", Born: "1900-03-12", Died: "1980-01-01"}); err != nil {
		t.Fatalf("create member: %v", err)
	}

	s.Tick(context.Background())

	if len(sender.sent) != 1 || sender.sent[0].Name != "Birthday" {
		t.Fatalf("sent = %v, want one card for Birthday", sender.sent)
	}

	// A second tick the same day must not re-send.
	s.Tick(context.Background())
	if len(sender.sent) != 1 {
		t.Errorf("sent %d cards after second tick, want 1", len(sender.sent))
	}
}

func TestTickSkipsFamilyWithoutRecipient(t *testing.T) {
	s, sender, db, familyID := setupScheduler(t)
	members := store.NewMemberStore(db)

	if _, err := members.Create(familyID, model.Member{Name: "Birthday", Born: "1950-03-12"}); err != nil {
		t.Fatalf("create member: %v", err)
	}

	s.Tick(context.Background())

	if len(sender.sent) != 0 {
		t.Errorf("sent = %v, want none without recipient setting", sender.sent)
	}
}

func TestStartStop(t *testing.T) {
	s, _, _, _ := setupScheduler(t)
	s.interval = time.Millisecond

	s.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	s.Stop()
}
