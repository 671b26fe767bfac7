package services

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"nuclight.org/filevault-tg-bot/pkg/logger"
)

// BroadcastSrv fans a text message out to every known user with bounded
// concurrency. Individual send failures (blocked bot, deleted account) are
// counted, never fatal.
type BroadcastSrv struct {
	Log         logger.Logger
	Concurrency int

	Store     UserDirectory
	Messenger TextSender
}

type UserDirectory interface {
	UserIDs(ctx context.Context) ([]int64, error)
}

type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
}

func (s *BroadcastSrv) Broadcast(ctx context.Context, text string) (sent, failed int, err error) {
	ids, err := s.Store.UserIDs(ctx)
	if err != nil {
		return 0, 0, err
	}

	limit := s.Concurrency
	if limit <= 0 {
		limit = 1
	}

	var sentN, failedN atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, id := range ids {
		g.Go(func() error {
			_, err := s.Messenger.SendText(gctx, id, text)
			if err != nil {
				s.Log.Debug("broadcast send failed", "user_id", id, "error", err)
				failedN.Add(1)
				return nil
			}

			sentN.Add(1)
			return nil
		})
	}

	_ = g.Wait()

	s.Log.Info("broadcast finished", "sent", sentN.Load(), "failed", failedN.Load())

	return int(sentN.Load()), int(failedN.Load()), nil
}
