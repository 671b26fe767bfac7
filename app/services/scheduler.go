package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	e "nuclight.org/filevault-tg-bot/pkg/entities"
	"nuclight.org/filevault-tg-bot/pkg/logger"
)

// Scheduler persists deferred delete actions and executes them when due.
// The deferred_actions table is authoritative; the in-process timer set is
// a volatile cache rebuilt by RecoverOnStartup after every restart, which
// must run before new Schedule calls are accepted.
type Scheduler struct {
	Log       logger.Logger
	Store     ActionStore
	Messenger MessageDeleter

	// Now is a clock seam for tests, defaults to time.Now.
	Now func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

type ActionStore interface {
	CreateAction(ctx context.Context, a e.DeferredAction) error
	ActionByID(ctx context.Context, id string) (e.DeferredAction, error)
	MarkActionDone(ctx context.Context, id string) error
	ScheduledActions(ctx context.Context) ([]e.DeferredAction, error)
}

type MessageDeleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Schedule persists a delete action and arms a timer for it. Safe to call
// concurrently for unrelated actions.
func (s *Scheduler) Schedule(ctx context.Context, sessionToken string, chatID int64, messageIDs []int, dueAt time.Time) (string, error) {
	action := e.DeferredAction{
		ID:           uuid.NewString(),
		SessionToken: sessionToken,
		ChatID:       chatID,
		MessageIDs:   messageIDs,
		DueAt:        dueAt.UTC(),
		Status:       e.ActionScheduled,
	}

	err := s.Store.CreateAction(ctx, action)
	if err != nil {
		return "", fmt.Errorf("persisting deferred action: %w", err)
	}

	s.arm(action.ID, action.DueAt)

	return action.ID, nil
}

// Execute runs a deferred action once. It is idempotent: a record already
// marked done is a no-op. Individual per-message delete failures (already
// gone, forbidden) are logged and skipped, they never block the terminal
// transition to done.
func (s *Scheduler) Execute(ctx context.Context, actionID string) error {
	s.disarm(actionID)

	action, err := s.Store.ActionByID(ctx, actionID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			s.Log.Warn("deferred action vanished", "action_id", actionID)
			return nil
		}

		return fmt.Errorf("loading deferred action: %w", err)
	}

	if action.Status == e.ActionDone {
		return nil
	}

	for _, msgID := range action.MessageIDs {
		err := s.Messenger.DeleteMessage(ctx, action.ChatID, msgID)
		if err != nil {
			s.Log.Warn("deleting delivered message",
				"action_id", actionID,
				"chat_id", action.ChatID,
				"message_id", msgID,
				"error", err,
			)
		}
	}

	err = s.Store.MarkActionDone(ctx, actionID)
	if err != nil {
		return fmt.Errorf("marking deferred action done: %w", err)
	}

	s.Log.Info("deferred action executed",
		"action_id", actionID,
		"chat_id", action.ChatID,
		"messages", len(action.MessageIDs),
	)

	return nil
}

// RecoverOnStartup re-synchronizes the timer set with the persisted table:
// overdue actions are executed inline, future ones re-armed for the
// remaining interval.
func (s *Scheduler) RecoverOnStartup(ctx context.Context) error {
	actions, err := s.Store.ScheduledActions(ctx)
	if err != nil {
		return fmt.Errorf("loading scheduled actions: %w", err)
	}

	now := s.now()
	recovered := 0
	for _, action := range actions {
		if !action.DueAt.After(now) {
			err := s.Execute(ctx, action.ID)
			if err != nil {
				s.Log.Error("executing overdue action", "action_id", action.ID, "error", err)
			}
			recovered++
			continue
		}

		s.arm(action.ID, action.DueAt)
	}

	s.Log.Info("scheduler recovered", "overdue", recovered, "rearmed", len(actions)-recovered)

	return nil
}

// Stop cancels all armed timers. Persisted records stay scheduled and will
// be picked up by the next RecoverOnStartup.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) arm(actionID string, dueAt time.Time) {
	delay := dueAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timers == nil {
		s.timers = make(map[string]*time.Timer)
	}

	s.timers[actionID] = time.AfterFunc(delay, func() {
		err := s.Execute(context.Background(), actionID)
		if err != nil {
			s.Log.Error("executing deferred action", "action_id", actionID, "error", err)
		}
	})
}

func (s *Scheduler) disarm(actionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[actionID]; ok {
		timer.Stop()
		delete(s.timers, actionID)
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
