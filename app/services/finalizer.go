package services

import (
	"context"
	"fmt"
	"time"

	e "nuclight.org/filevault-tg-bot/pkg/entities"
	"nuclight.org/filevault-tg-bot/pkg/logger"
	"nuclight.org/filevault-tg-bot/pkg/token"
)

// FinalizerSrv turns the operator's staging buffer into a durable session:
// every staged item is copied into the vault channel, an access token is
// minted, session and file rows are persisted, a header message is posted,
// and a store backup is triggered. A copy failure for one item skips that
// item, it never aborts finalization.
type FinalizerSrv struct {
	Log logger.Logger

	// VaultChatID is the private channel holding permanent copies.
	VaultChatID int64

	// MaxRetention bounds the auto-delete duration.
	MaxRetention time.Duration

	Staging   *Staging
	Store     SessionStore
	Messenger VaultMessenger
	Backups   BackupTrigger
}

type SessionStore interface {
	CreateSession(ctx context.Context, s e.Session, files []e.File) error
	SetSessionHeader(ctx context.Context, token string, chatID int64, messageID int) error
}

type VaultMessenger interface {
	CheckChannel(ctx context.Context, chatID int64) error
	CopyItem(ctx context.Context, fromChatID int64, messageID int, toChatID int64, protect bool) (int, error)
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	AccessLink(token string) string
}

type BackupTrigger interface {
	TriggerBackup(reason string)
}

// Finalize commits the operator's buffer. requiredChannel, when non-empty,
// overrides the process-wide membership gate for this session only. On
// ErrInvalidRetention, ErrEmptyBuffer and persistence errors the buffer is
// left intact for a retry.
func (s *FinalizerSrv) Finalize(ctx context.Context, operatorID int64, protect bool, retention time.Duration, requiredChannel string) (e.Session, error) {
	log := s.Log.With("operator_id", operatorID)

	if retention < 0 || retention > s.MaxRetention {
		return e.Session{}, ErrInvalidRetention
	}

	items, err := s.Staging.Items(operatorID)
	if err != nil {
		return e.Session{}, err
	}

	if len(items) == 0 {
		return e.Session{}, ErrEmptyBuffer
	}

	err = s.Messenger.CheckChannel(ctx, s.VaultChatID)
	if err != nil {
		return e.Session{}, fmt.Errorf("%w: %v", ErrVaultUnreachable, err)
	}

	files := make([]e.File, 0, len(items))
	for pos, item := range items {
		msgID, err := s.Messenger.CopyItem(ctx, item.SourceChatID, item.SourceMessageID, s.VaultChatID, false)
		if err != nil {
			log.Error("copying item into vault, skipping",
				"position", pos,
				"kind", item.Kind,
				"error", err,
			)
			continue
		}

		files = append(files, e.File{
			Position:       pos,
			Kind:           item.Kind,
			VaultChatID:    s.VaultChatID,
			VaultMessageID: msgID,
			RawContentRef:  item.RawContentRef,
			Caption:        item.Caption,
		})
	}

	tok, err := token.Mint()
	if err != nil {
		return e.Session{}, fmt.Errorf("minting access token: %w", err)
	}

	session := e.Session{
		Token:            tok,
		OwnerID:          operatorID,
		CreatedAt:        time.Now().UTC(),
		Protect:          protect,
		RetentionSeconds: int64(retention / time.Second),
		RequiredChannel:  requiredChannel,
		FileCount:        len(files),
	}

	err = s.Store.CreateSession(ctx, session, files)
	if err != nil {
		return e.Session{}, fmt.Errorf("persisting session: %w", err)
	}

	s.postHeader(ctx, &session)

	s.Backups.TriggerBackup("finalize")

	s.Staging.Clear(operatorID)

	log.Info("session finalized",
		"token", session.Token,
		"files", len(files),
		"skipped", len(items)-len(files),
		"protect", protect,
		"retention", retention,
	)

	return session, nil
}

// postHeader announces the session in the vault channel with the access link
// embedded. Failures are logged, never fatal: the session is valid without
// its header.
func (s *FinalizerSrv) postHeader(ctx context.Context, session *e.Session) {
	text := fmt.Sprintf(
		"Session %s\nItems: %d\nProtected: %v\nRetention: %s\nLink: %s",
		session.Token,
		session.FileCount,
		session.Protect,
		formatRetention(session.Retention()),
		s.Messenger.AccessLink(session.Token),
	)

	msgID, err := s.Messenger.SendText(ctx, s.VaultChatID, text)
	if err != nil {
		s.Log.Error("posting session header", "token", session.Token, "error", err)
		return
	}

	session.HeaderChatID = s.VaultChatID
	session.HeaderMessageID = msgID

	err = s.Store.SetSessionHeader(ctx, session.Token, s.VaultChatID, msgID)
	if err != nil {
		s.Log.Error("saving session header reference", "token", session.Token, "error", err)
	}
}

func formatRetention(d time.Duration) string {
	if d == 0 {
		return "never"
	}
	return d.String()
}
