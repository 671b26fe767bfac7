package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	e "nuclight.org/filevault-tg-bot/pkg/entities"
	"nuclight.org/filevault-tg-bot/pkg/logger"
)

// ForceChannelsKey is the settings key holding the process-wide required
// channels, whitespace or comma separated.
const ForceChannelsKey = "force_channels"

// maxRequiredChannels bounds the membership gate's channel list.
const maxRequiredChannels = 3

// DeliverySrv resolves an access token for a requester and redelivers the
// session's files in stored order, honoring revocation, optional expiry, the
// membership gate and the content-protection flag. Two concurrent deliveries
// of the same token are independent: everything they share is read-only.
type DeliverySrv struct {
	Log logger.Logger

	// OperatorID always receives unprotected copies regardless of the
	// session's protection flag.
	OperatorID int64

	// SessionTTL, when non-zero, expires sessions that long after their
	// creation. Zero disables absolute expiry; retention then only governs
	// deletion of delivered copies.
	SessionTTL time.Duration

	Store     DeliveryStore
	Settings  SettingsReader
	Messenger DeliveryMessenger
	Scheduler DeleteScheduler

	// Now is a clock seam for tests, defaults to time.Now.
	Now func() time.Time
}

type DeliveryStore interface {
	SessionByToken(ctx context.Context, token string) (e.Session, error)
	FilesBySession(ctx context.Context, token string) ([]e.File, error)
}

type SettingsReader interface {
	GetSetting(ctx context.Context, key, defaultValue string) (string, error)
}

type DeliveryMessenger interface {
	CopyItem(ctx context.Context, fromChatID int64, messageID int, toChatID int64, protect bool) (int, error)
	GetMembership(ctx context.Context, channel string, userID int64) (e.Membership, error)
}

type DeleteScheduler interface {
	Schedule(ctx context.Context, sessionToken string, chatID int64, messageIDs []int, dueAt time.Time) (string, error)
}

// Deliver redelivers the session behind token to the requester's chat. Gate
// and lookup outcomes come back in the report; the error is reserved for
// store failures.
func (s *DeliverySrv) Deliver(ctx context.Context, tok string, requesterID, chatID int64) (e.DeliveryReport, error) {
	log := s.Log.With("token", tok, "requester_id", requesterID)

	session, err := s.Store.SessionByToken(ctx, tok)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return e.DeliveryReport{Status: e.DeliveryNotFound}, nil
		}

		return e.DeliveryReport{}, fmt.Errorf("resolving token: %w", err)
	}

	if session.Revoked {
		return e.DeliveryReport{Status: e.DeliveryRevoked}, nil
	}

	if s.SessionTTL > 0 && s.now().Sub(session.CreatedAt) > s.SessionTTL {
		return e.DeliveryReport{Status: e.DeliveryExpired}, nil
	}

	required, err := s.requiredChannels(ctx, session)
	if err != nil {
		return e.DeliveryReport{}, fmt.Errorf("loading required channels: %w", err)
	}

	if rep, pass := s.checkGate(ctx, required, requesterID); !pass {
		return rep, nil
	}

	files, err := s.Store.FilesBySession(ctx, tok)
	if err != nil {
		return e.DeliveryReport{}, fmt.Errorf("loading session files: %w", err)
	}

	if len(files) == 0 {
		return e.DeliveryReport{Status: e.DeliveryNoFiles}, nil
	}

	protect := session.Protect && requesterID != s.OperatorID

	var delivered []int
	failed := 0
	for _, f := range files {
		msgID, err := s.Messenger.CopyItem(ctx, f.VaultChatID, f.VaultMessageID, chatID, protect)
		if err != nil {
			log.Error("redelivering file, skipping", "position", f.Position, "error", err)
			failed++
			continue
		}

		delivered = append(delivered, msgID)
	}

	if session.RetentionSeconds > 0 && len(delivered) > 0 {
		dueAt := s.now().Add(session.Retention())
		actionID, err := s.Scheduler.Schedule(ctx, session.Token, chatID, delivered, dueAt)
		if err != nil {
			log.Error("scheduling auto-delete", "error", err)
		} else {
			log.Info("auto-delete scheduled", "action_id", actionID, "due_at", dueAt)
		}
	}

	log.Info("delivery finished", "delivered", len(delivered), "failed", failed)

	return e.DeliveryReport{
		Status:    e.DeliveryOK,
		Delivered: len(delivered),
		Failed:    failed,
	}, nil
}

// requiredChannels returns the effective membership gate: the session-level
// override when present, else the process-wide default, else none.
func (s *DeliverySrv) requiredChannels(ctx context.Context, session e.Session) ([]string, error) {
	if session.RequiredChannel != "" {
		return []string{session.RequiredChannel}, nil
	}

	raw, err := s.Settings.GetSetting(ctx, ForceChannelsKey, "")
	if err != nil {
		return nil, err
	}

	channels := SplitChannels(raw)
	if len(channels) > maxRequiredChannels {
		channels = channels[:maxRequiredChannels]
	}

	return channels, nil
}

// checkGate queries membership of the requester in every required channel.
// A lookup failure fails the gate closed: indeterminate membership must not
// be treated as membership.
func (s *DeliverySrv) checkGate(ctx context.Context, required []string, requesterID int64) (e.DeliveryReport, bool) {
	if len(required) == 0 {
		return e.DeliveryReport{}, true
	}

	unverifiable := false
	pass := true
	for _, channel := range required {
		m, err := s.Messenger.GetMembership(ctx, channel, requesterID)
		if err != nil || m == e.MembershipUnknown {
			s.Log.Warn("membership lookup failed, gate fails closed",
				"channel", channel,
				"requester_id", requesterID,
				"error", err,
			)
			unverifiable = true
			pass = false
			continue
		}

		if m != e.MembershipMember {
			pass = false
		}
	}

	if pass {
		return e.DeliveryReport{}, true
	}

	return e.DeliveryReport{
		Status:           e.DeliveryMustJoin,
		RequiredChannels: required,
		Unverifiable:     unverifiable,
	}, false
}

func (s *DeliverySrv) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// SplitChannels parses a stored channel list, whitespace or comma separated.
func SplitChannels(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	channels := fields[:0]
	for _, f := range fields {
		if f != "" {
			channels = append(channels, f)
		}
	}

	if len(channels) == 0 {
		return nil
	}

	return channels
}
