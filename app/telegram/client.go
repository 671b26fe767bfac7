package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	e "nuclight.org/filevault-tg-bot/pkg/entities"
	"nuclight.org/filevault-tg-bot/pkg/logger"
)

// UpdateHandler consumes transport-neutral inbound events.
type UpdateHandler interface {
	HandleMessage(ctx context.Context, in e.Inbound) error
	HandleCallback(ctx context.Context, cb e.Callback) error
}

// Client is the messaging transport. It runs a worker pool over the bot's
// update channel and exposes the capability surface the services consume:
// copy/send/delete messages, membership lookups, channel resolution, access
// links.
type Client struct {
	Log        logger.Logger
	APIToken   string
	WorkersNum int
	Handler    UpdateHandler

	bot *tgbotapi.BotAPI
	wg  sync.WaitGroup
}

// Connect creates the bot API session. It must be called before Run and
// before any messenger capability is used.
func (c *Client) Connect(_ context.Context) (err error) {
	c.bot, err = tgbotapi.NewBotAPI(c.APIToken)
	if err != nil {
		return fmt.Errorf("creating bot api: %w", err)
	}

	c.Log.Info("bot api created", "username", c.bot.Self.UserName)

	return nil
}

// Run starts consuming updates until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	if c.WorkersNum == 0 {
		return fmt.Errorf("workers number must be greater than 0")
	}

	updatesConf := tgbotapi.NewUpdate(0)
	updatesConf.Timeout = 60

	updatesChan := c.bot.GetUpdatesChan(updatesConf)

	for i := 0; i < c.WorkersNum; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.handleUpdatesFromChan(ctx, updatesChan)
		}()
	}

	return nil
}

func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) handleUpdatesFromChan(ctx context.Context, updatesChan tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updatesChan:
			err := c.handleUpdate(ctx, update)
			if err != nil {
				c.Log.Error("handling update", "tg_update_id", update.UpdateID, "error", err)
				sentry.CaptureException(err)
			}
		}
	}
}

func (c *Client) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	log := c.Log.With("tg_update_id", update.UpdateID)

	defer func() {
		if err := recover(); err != nil {
			log.Error("panic", "error", err)
			sentry.CurrentHub().Recover(err)
		}
	}()

	if update.CallbackQuery != nil {
		cb := update.CallbackQuery
		if cb.From == nil || cb.Message == nil {
			log.Warn("callback without sender or message")
			return nil
		}

		return c.Handler.HandleCallback(ctx, e.Callback{
			ID:        cb.ID,
			UserID:    cb.From.ID,
			ChatID:    cb.Message.Chat.ID,
			MessageID: cb.Message.MessageID,
			Data:      cb.Data,
		})
	}

	if update.Message == nil {
		return nil
	}

	msg := update.Message
	if msg.From == nil || msg.Chat == nil {
		log.Warn("message without sender or chat")
		return nil
	}

	in := e.Inbound{
		UserID:    msg.From.ID,
		UserName:  takeUserName(msg.From),
		Username:  msg.From.UserName,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
		Item:      takeItem(msg),
	}

	if msg.IsCommand() {
		in.Command = msg.Command()
		in.Args = msg.CommandArguments()
	}

	if reply := msg.ReplyToMessage; reply != nil {
		if len(reply.Photo) > 0 {
			in.ReplyPhotoID = reply.Photo[len(reply.Photo)-1].FileID
		}
		if reply.Document != nil {
			in.ReplyDocumentID = reply.Document.FileID
		}
	}

	return c.Handler.HandleMessage(ctx, in)
}

// ---- messenger capabilities ----

func (c *Client) SendText(_ context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}

	return sent.MessageID, nil
}

func (c *Client) SendButtons(_ context.Context, chatID int64, text string, rows [][]e.Button) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	markupRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		markupRows = append(markupRows, buttons)
	}
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(markupRows...)

	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}

	return sent.MessageID, nil
}

func (c *Client) SendPhoto(_ context.Context, chatID int64, fileID, caption string) (int, error) {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	msg.Caption = caption

	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}

	return sent.MessageID, nil
}

func (c *Client) SendDocument(_ context.Context, chatID int64, filePath, caption string) (int, error) {
	msg := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(filePath))
	msg.Caption = caption

	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}

	return sent.MessageID, nil
}

// CopyItem copies a message between chats, preserving its media and caption.
// The protect flag forbids forwarding and saving on the receiving side.
func (c *Client) CopyItem(_ context.Context, fromChatID int64, messageID int, toChatID int64, protect bool) (int, error) {
	conf := tgbotapi.NewCopyMessage(toChatID, fromChatID, messageID)
	conf.ProtectContent = protect

	res, err := c.bot.CopyMessage(conf)
	if err != nil {
		return 0, err
	}

	return res.MessageID, nil
}

func (c *Client) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	conf := tgbotapi.NewDeleteMessage(chatID, messageID)
	_, err := c.bot.Request(conf)
	return err
}

func (c *Client) PinMessage(_ context.Context, chatID int64, messageID int) error {
	conf := tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	}
	_, err := c.bot.Request(conf)
	return err
}

func (c *Client) AnswerCallback(_ context.Context, callbackID string) error {
	_, err := c.bot.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}

// GetMembership reports whether the user belongs to the channel. Lookup
// failures come back as MembershipUnknown with the error so the caller can
// fail the gate closed.
func (c *Client) GetMembership(_ context.Context, channel string, userID int64) (e.Membership, error) {
	conf := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID},
	}

	chatID, username := splitChannelRef(channel)
	conf.ChatID = chatID
	conf.SuperGroupUsername = username

	member, err := c.bot.GetChatMember(conf)
	if err != nil {
		return e.MembershipUnknown, err
	}

	switch member.Status {
	case "creator", "administrator", "member":
		return e.MembershipMember, nil
	case "restricted":
		if member.IsMember {
			return e.MembershipMember, nil
		}
		return e.MembershipNonMember, nil
	default:
		return e.MembershipNonMember, nil
	}
}

// ResolveChannel validates a channel reference and returns its canonical
// form: @username when public, the numeric id otherwise.
func (c *Client) ResolveChannel(_ context.Context, nameOrLink string) (string, error) {
	chatID, username := splitChannelRef(nameOrLink)

	chat, err := c.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{
			ChatID:             chatID,
			SuperGroupUsername: username,
		},
	})
	if err != nil {
		return "", fmt.Errorf("resolving channel %q: %w", nameOrLink, err)
	}

	if chat.UserName != "" {
		return "@" + chat.UserName, nil
	}

	return strconv.FormatInt(chat.ID, 10), nil
}

// CheckChannel verifies the chat is reachable at all, used as a preflight
// before bulk copies into the vault.
func (c *Client) CheckChannel(_ context.Context, chatID int64) error {
	_, err := c.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	return err
}

// AccessLink builds the shareable deep link; the token is the only
// information needed to resolve a session.
func (c *Client) AccessLink(token string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", c.bot.Self.UserName, token)
}

// DownloadDocument fetches a file by its id into destPath.
func (c *Client) DownloadDocument(ctx context.Context, fileID, destPath string) error {
	url, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return fmt.Errorf("getting file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading file: unexpected status %s", resp.Status)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}

	_, err = io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	return err
}

// splitChannelRef turns "@name", "t.me/name" links or "-100..." ids into the
// pair of fields the bot api expects, exactly one of them set.
func splitChannelRef(channel string) (chatID int64, username string) {
	s := strings.TrimSpace(channel)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "t.me/")
	s = strings.TrimPrefix(s, "telegram.me/")

	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, ""
	}

	if !strings.HasPrefix(s, "@") {
		s = "@" + s
	}

	return 0, s
}

func takeItem(msg *tgbotapi.Message) *e.Item {
	item := e.Item{
		SourceChatID:    msg.Chat.ID,
		SourceMessageID: msg.MessageID,
		Caption:         msg.Caption,
	}

	switch {
	case len(msg.Photo) > 0:
		item.Kind = e.FileKindPhoto
		item.RawContentRef = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Video != nil:
		item.Kind = e.FileKindVideo
		item.RawContentRef = msg.Video.FileID
	case msg.Document != nil:
		item.Kind = e.FileKindDocument
		item.RawContentRef = msg.Document.FileID
	case msg.Audio != nil:
		item.Kind = e.FileKindAudio
		item.RawContentRef = msg.Audio.FileID
	case msg.Voice != nil:
		item.Kind = e.FileKindVoice
		item.RawContentRef = msg.Voice.FileID
	case msg.Text != "" && !msg.IsCommand():
		item.Kind = e.FileKindText
		item.Caption = msg.Text
	default:
		return nil
	}

	return &item
}

func takeUserName(user *tgbotapi.User) string {
	var sb strings.Builder

	if user.FirstName != "" {
		sb.WriteString(user.FirstName)
	}

	if user.LastName != "" {
		if sb.Len() > 0 {
			sb.WriteRune(' ')
		}
		sb.WriteString(user.LastName)
	}

	if sb.Len() == 0 {
		return strconv.FormatInt(user.ID, 10)
	}

	return sb.String()
}
