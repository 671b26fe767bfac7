package services

import (
	"context"
	"fmt"
	"time"

	"nuclight.org/filevault-tg-bot/pkg/logger"
)

// BackupSrv uploads the store's database file to the backup channel and pins
// it. Pinning is best effort, the bot may lack the permission.
type BackupSrv struct {
	Log logger.Logger

	DBPath       string
	BackupChatID int64

	Messenger BackupMessenger
}

type BackupMessenger interface {
	SendDocument(ctx context.Context, chatID int64, filePath, caption string) (int, error)
	PinMessage(ctx context.Context, chatID int64, messageID int) error
}

// Backup uploads the database file and returns the backup message id.
func (s *BackupSrv) Backup(ctx context.Context) (int, error) {
	if s.BackupChatID == 0 {
		s.Log.Warn("backup channel not configured, skipping backup")
		return 0, nil
	}

	caption := "Backup: " + time.Now().UTC().Format(time.RFC3339)
	msgID, err := s.Messenger.SendDocument(ctx, s.BackupChatID, s.DBPath, caption)
	if err != nil {
		return 0, fmt.Errorf("uploading database backup: %w", err)
	}

	err = s.Messenger.PinMessage(ctx, s.BackupChatID, msgID)
	if err != nil {
		s.Log.Info("pinning backup failed", "error", err)
	}

	return msgID, nil
}

// TriggerBackup runs Backup in the background. Fire and forget: a failed
// backup is logged, never surfaced to the operation that triggered it.
func (s *BackupSrv) TriggerBackup(reason string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		_, err := s.Backup(ctx)
		if err != nil {
			s.Log.Error("background backup failed", "reason", reason, "error", err)
		}
	}()
}
