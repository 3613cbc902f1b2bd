// Package reminder runs the birthday card job: once a day it scans every
// family for living members whose birthday is today and mails a card to the
// family's configured recipient, at most once per member per year.
package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mfalkner/kinfolk/internal/model"
	"github.com/mfalkner/kinfolk/internal/store"
)

// recipientKey is the per-family setting naming where birthday cards go.
const recipientKey = "reminder_email"

// Sender is the slice of the email client the scheduler needs.
type Sender interface {
	SendBirthdayCard(ctx context.Context, toEmail string, m model.Member) error
}

// Scheduler periodically checks for birthdays to announce.
type Scheduler struct {
	mu        sync.RWMutex
	sender    Sender
	families  *store.FamilyStore
	members   *store.MemberStore
	reminders *store.ReminderStore
	settings  *store.SettingsStore
	logger    *slog.Logger
	interval  time.Duration
	now       func() time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScheduler creates a birthday reminder scheduler.
func NewScheduler(sender Sender, familyStore *store.FamilyStore, memberStore *store.MemberStore, reminderStore *store.ReminderStore, settingsStore *store.SettingsStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sender:    sender,
		families:  familyStore,
		members:   memberStore,
		reminders: reminderStore,
		settings:  settingsStore,
		logger:    logger.With("component", "reminder"),
		interval:  time.Hour,
		now:       time.Now,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Tick runs one sweep over all families. Exported so an admin endpoint can
// trigger a run outside the schedule.
func (s *Scheduler) Tick(ctx context.Context) {
	families, err := s.families.ListAll()
	if err != nil {
		s.logger.Error("list families", "error", err)
		return
	}
	for _, f := range families {
		s.checkBirthdays(ctx, f.ID)
	}
}

func (s *Scheduler) checkBirthdays(ctx context.Context, familyID int64) {
	recipient, err := s.settings.Get(familyID, recipientKey)
	if err != nil {
		s.logger.Error("read recipient", "family", familyID, "error", err)
		return
	}
	if recipient == "" {
		return
	}

	today := s.now().UTC()
	members, err := s.members.BornInMonth(familyID, int(today.Month()))
	if err != nil {
		s.logger.Error("list birthdays", "family", familyID, "error", err)
		return
	}

	for _, m := range members {
		if m.BirthDay() != today.Day() || !m.Alive() {
			continue
		}

		// Claim the (member, year) slot before sending so concurrent ticks
		// cannot double-send.
		claimed, err := s.reminders.MarkSent(familyID, m.ID, today.Year())
		if err != nil {
			s.logger.Error("mark reminder", "member", m.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}

		if err := s.sender.SendBirthdayCard(ctx, recipient, m); err != nil {
			s.logger.Error("send birthday card", "member", m.ID, "error", err)
			continue
		}
		s.logger.Info("sent birthday card", "family", familyID, "member", m.ID)
	}
}
