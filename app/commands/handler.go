package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"nuclight.org/filevault-tg-bot/app/services"
	e "nuclight.org/filevault-tg-bot/pkg/entities"
	"nuclight.org/filevault-tg-bot/pkg/logger"
	"nuclight.org/filevault-tg-bot/pkg/mutex"
	"nuclight.org/filevault-tg-bot/pkg/token"
)

// Settings keys owned by the greeting.
const (
	startMessageKey = "start_message"
	startImageKey   = "start_image"
)

const defaultGreeting = "Welcome! Use /help to see commands."

// Handler routes inbound messages and callbacks: operator commands drive
// staging and finalization, deep-link starts drive delivery. All operator
// commands are gated to the single configured operator identity. Updates of
// the same user are serialized so the prompt state machine never sees
// interleaved input, while unrelated users proceed in parallel.
type Handler struct {
	Log logger.Logger

	OperatorID   int64
	MaxRetention time.Duration
	DBPath       string

	Staging   *services.Staging
	Finalizer Finalizer
	Delivery  Deliverer
	Broadcast Broadcaster
	Backups   Backuper
	Store     Store
	Responder Responder

	km mutex.KeyedMutex

	flowMu sync.Mutex
	flows  map[int64]*finalizeFlow
}

type Finalizer interface {
	Finalize(ctx context.Context, operatorID int64, protect bool, retention time.Duration, requiredChannel string) (e.Session, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, token string, requesterID, chatID int64) (e.DeliveryReport, error)
}

type Broadcaster interface {
	Broadcast(ctx context.Context, text string) (sent, failed int, err error)
}

type Backuper interface {
	Backup(ctx context.Context) (int, error)
}

type Store interface {
	UpsertUser(ctx context.Context, u e.User) error
	RevokeSession(ctx context.Context, token string) (bool, error)
	ListSessions(ctx context.Context, limit int) ([]e.Session, error)
	Stats(ctx context.Context) (e.Stats, error)
	GetSetting(ctx context.Context, key, defaultValue string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	AddChannel(ctx context.Context, alias, link string) error
	Channels(ctx context.Context) ([]e.Channel, error)
}

type Responder interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]e.Button) (int, error)
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) (int, error)
	AnswerCallback(ctx context.Context, callbackID string) error
	AccessLink(token string) string
	ResolveChannel(ctx context.Context, nameOrLink string) (string, error)
	DownloadDocument(ctx context.Context, fileID, destPath string) error
}

func (h *Handler) HandleMessage(ctx context.Context, in e.Inbound) error {
	key := strconv.FormatInt(in.UserID, 10)
	h.km.Lock(key)
	defer h.km.Unlock(key)

	err := h.Store.UpsertUser(ctx, e.User{
		ID:       in.UserID,
		Name:     in.UserName,
		Username: in.Username,
	})
	if err != nil {
		h.Log.Error("upserting user", "user_id", in.UserID, "error", err)
	}

	if in.Command != "" {
		return h.handleCommand(ctx, in)
	}

	if in.UserID != h.OperatorID {
		return nil
	}

	if flow := h.flow(in.UserID); flow != nil {
		return h.handleFlowText(ctx, in, flow)
	}

	if h.Staging.Active(in.UserID) {
		return h.handleStagedItem(ctx, in)
	}

	return nil
}

func (h *Handler) HandleCallback(ctx context.Context, cb e.Callback) error {
	key := strconv.FormatInt(cb.UserID, 10)
	h.km.Lock(key)
	defer h.km.Unlock(key)

	err := h.Responder.AnswerCallback(ctx, cb.ID)
	if err != nil {
		h.Log.Warn("answering callback", "error", err)
	}

	if tok, ok := strings.CutPrefix(cb.Data, cbRetryPrefix); ok {
		return h.deliverToken(ctx, tok, cb.UserID, cb.ChatID)
	}

	if cb.UserID != h.OperatorID {
		return h.reply(ctx, cb.ChatID, "Unauthorized.")
	}

	flow := h.flow(cb.UserID)
	if flow == nil {
		return h.reply(ctx, cb.ChatID, "No finalize in progress. Start with /upload, then /d.")
	}

	switch cb.Data {
	case cbProtectOn, cbProtectOff:
		if flow.state != flowAwaitProtect {
			return h.reply(ctx, cb.ChatID, "Not expecting a protection choice right now.")
		}

		flow.protect = cb.Data == cbProtectOn
		flow.state = flowAwaitRetention

		return h.reply(ctx, cb.ChatID, fmt.Sprintf(
			"Enter auto-delete time in minutes (0 = never, max %d):", h.maxRetentionMinutes()))

	case cbChannelNone, cbChannelSet:
		if flow.state != flowAwaitChannelChoice {
			return h.reply(ctx, cb.ChatID, "Not expecting a channel choice right now.")
		}

		if cb.Data == cbChannelSet {
			flow.state = flowAwaitChannelInput
			return h.reply(ctx, cb.ChatID,
				"Send the channel username or link users must join (e.g. @mychannel), or \"off\" for none.")
		}

		return h.commitFlow(ctx, cb.UserID, cb.ChatID, flow, "")

	default:
		return h.reply(ctx, cb.ChatID, "Unknown button.")
	}
}

func (h *Handler) handleCommand(ctx context.Context, in e.Inbound) error {
	switch in.Command {
	case "start":
		return h.handleStart(ctx, in)
	case "help":
		return h.reply(ctx, in.ChatID,
			"/start - start the bot or open a shared link\n"+
				"/help - show this help")
	}

	if in.UserID != h.OperatorID {
		return h.reply(ctx, in.ChatID, "Unauthorized.")
	}

	switch in.Command {
	case "upload":
		return h.handleUpload(ctx, in)
	case "d":
		return h.handleFinalizeStart(ctx, in)
	case "e":
		return h.handleCancel(ctx, in)
	case "revoke":
		return h.handleRevoke(ctx, in)
	case "sessions":
		return h.handleSessions(ctx, in)
	case "stats":
		return h.handleStats(ctx, in)
	case "broadcast":
		return h.handleBroadcast(ctx, in)
	case "backup":
		return h.handleBackup(ctx, in)
	case "restore":
		return h.handleRestore(ctx, in)
	case "setmessage":
		return h.handleSetMessage(ctx, in)
	case "setimage":
		return h.handleSetImage(ctx, in)
	case "setchannel":
		return h.handleSetChannel(ctx, in)
	case "listchannels":
		return h.handleListChannels(ctx, in)
	case "setforcechannel":
		return h.handleSetForceChannel(ctx, in)
	case "adminp":
		return h.handleAdminHelp(ctx, in)
	default:
		return h.reply(ctx, in.ChatID, "Unknown command. See /adminp.")
	}
}

func (h *Handler) handleStart(ctx context.Context, in e.Inbound) error {
	arg := strings.TrimSpace(in.Args)
	if arg != "" {
		if !token.Valid(arg) {
			return h.reply(ctx, in.ChatID, "Invalid or malformed session link.")
		}

		return h.deliverToken(ctx, arg, in.UserID, in.ChatID)
	}

	greeting, err := h.Store.GetSetting(ctx, startMessageKey, defaultGreeting)
	if err != nil {
		return fmt.Errorf("loading greeting: %w", err)
	}

	var rows [][]e.Button
	channels, err := h.Store.Channels(ctx)
	if err != nil {
		h.Log.Error("loading channel aliases", "error", err)
	}
	for i, ch := range channels {
		if i == 6 {
			break
		}
		rows = append(rows, []e.Button{{Text: ch.Alias, URL: ch.Link}})
	}

	imageID, err := h.Store.GetSetting(ctx, startImageKey, "")
	if err != nil {
		return fmt.Errorf("loading greeting image: %w", err)
	}

	if imageID != "" {
		_, err = h.Responder.SendPhoto(ctx, in.ChatID, imageID, greeting)
		if err == nil {
			return nil
		}
		h.Log.Warn("sending greeting image, falling back to text", "error", err)
	}

	if len(rows) > 0 {
		_, err = h.Responder.SendButtons(ctx, in.ChatID, greeting, rows)
		return err
	}

	return h.reply(ctx, in.ChatID, greeting)
}

func (h *Handler) deliverToken(ctx context.Context, tok string, userID, chatID int64) error {
	rep, err := h.Delivery.Deliver(ctx, tok, userID, chatID)
	if err != nil {
		h.Log.Error("delivering session", "token", tok, "error", err)
		return h.reply(ctx, chatID, "Something went wrong, please try again later.")
	}

	switch rep.Status {
	case e.DeliveryNotFound:
		return h.reply(ctx, chatID, "Session not found or invalid.")
	case e.DeliveryRevoked:
		return h.reply(ctx, chatID, "This session has been revoked.")
	case e.DeliveryExpired:
		return h.reply(ctx, chatID, "This session has expired.")
	case e.DeliveryNoFiles:
		return h.reply(ctx, chatID, "No files in this session.")
	case e.DeliveryMustJoin:
		return h.sendJoinPrompt(ctx, chatID, tok, rep)
	default:
		text := fmt.Sprintf("Delivered %d file(s).", rep.Delivered)
		if rep.Failed > 0 {
			text += fmt.Sprintf(" %d failed.", rep.Failed)
		}
		return h.reply(ctx, chatID, text)
	}
}

func (h *Handler) sendJoinPrompt(ctx context.Context, chatID int64, tok string, rep e.DeliveryReport) error {
	text := "You must join the required channel(s) to access this session."
	if rep.Unverifiable {
		text = "Membership could not be verified. Join the required channel(s) and press Retry."
	}

	var rows [][]e.Button
	for _, ch := range rep.RequiredChannels {
		rows = append(rows, []e.Button{{Text: joinLabel(ch), URL: joinURL(ch)}})
	}
	rows = append(rows, []e.Button{{Text: "Retry", Data: cbRetryPrefix + tok}})

	_, err := h.Responder.SendButtons(ctx, chatID, text, rows)
	return err
}

func (h *Handler) handleUpload(ctx context.Context, in e.Inbound) error {
	excludeText := strings.EqualFold(strings.TrimSpace(in.Args), "exclude_text")
	h.Staging.Begin(in.UserID, excludeText)
	h.clearFlow(in.UserID)

	text := "Staging started. Send files now, then /d to finalize or /e to cancel."
	if excludeText {
		text += " Plain text messages will be excluded."
	}

	return h.reply(ctx, in.ChatID, text)
}

func (h *Handler) handleCancel(ctx context.Context, in e.Inbound) error {
	h.clearFlow(in.UserID)

	if !h.Staging.Active(in.UserID) {
		return h.reply(ctx, in.ChatID, "No active staging to cancel.")
	}

	h.Staging.Cancel(in.UserID)
	return h.reply(ctx, in.ChatID, "Staging cancelled and cleared.")
}

func (h *Handler) handleFinalizeStart(ctx context.Context, in e.Inbound) error {
	if !h.Staging.Active(in.UserID) {
		return h.reply(ctx, in.ChatID, "No active staging. Start with /upload.")
	}

	if h.Staging.Len(in.UserID) == 0 {
		return h.reply(ctx, in.ChatID, "Staging is empty, send at least one item first.")
	}

	h.setFlow(in.UserID, &finalizeFlow{state: flowAwaitProtect})

	_, err := h.Responder.SendButtons(ctx, in.ChatID,
		"Choose copy protection for delivered files:",
		[][]e.Button{{
			{Text: "Protect ON", Data: cbProtectOn},
			{Text: "Protect OFF", Data: cbProtectOff},
		}},
	)
	return err
}

func (h *Handler) handleFlowText(ctx context.Context, in e.Inbound, flow *finalizeFlow) error {
	switch flow.state {
	case flowAwaitRetention:
		mins, err := strconv.Atoi(strings.TrimSpace(in.Text))
		if err != nil || mins < 0 || mins > h.maxRetentionMinutes() {
			return h.reply(ctx, in.ChatID, fmt.Sprintf(
				"Invalid minutes. Send an integer between 0 and %d.", h.maxRetentionMinutes()))
		}

		flow.retention = time.Duration(mins) * time.Minute
		flow.state = flowAwaitChannelChoice

		_, err = h.Responder.SendButtons(ctx, in.ChatID,
			"Require joining a channel to access this session?",
			[][]e.Button{{
				{Text: "No required channel", Data: cbChannelNone},
				{Text: "Require a channel", Data: cbChannelSet},
			}},
		)
		return err

	case flowAwaitChannelInput:
		raw := strings.TrimSpace(in.Text)
		if raw == "" {
			return h.reply(ctx, in.ChatID, "Send a channel username or link, or \"off\" for none.")
		}

		if isOff(raw) {
			return h.commitFlow(ctx, in.UserID, in.ChatID, flow, "")
		}

		channel, err := h.Responder.ResolveChannel(ctx, raw)
		if err != nil {
			h.Log.Warn("resolving required channel", "input", raw, "error", err)
			return h.reply(ctx, in.ChatID, "Cannot resolve that channel. Send another one or \"off\".")
		}

		return h.commitFlow(ctx, in.UserID, in.ChatID, flow, channel)

	default:
		return h.reply(ctx, in.ChatID, "Use the buttons above to continue, or /e to cancel.")
	}
}

func (h *Handler) commitFlow(ctx context.Context, userID, chatID int64, flow *finalizeFlow, requiredChannel string) error {
	h.clearFlow(userID)

	session, err := h.Finalizer.Finalize(ctx, userID, flow.protect, flow.retention, requiredChannel)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRetention):
			return h.reply(ctx, chatID, "Retention out of range, staging kept. Run /d to retry.")
		case errors.Is(err, services.ErrNoActiveBuffer), errors.Is(err, services.ErrEmptyBuffer):
			return h.reply(ctx, chatID, "Nothing staged. Start with /upload.")
		case errors.Is(err, services.ErrVaultUnreachable):
			return h.reply(ctx, chatID, "Vault channel unreachable, staging kept. Fix the channel and run /d again.")
		default:
			h.Log.Error("finalizing session", "error", err)
			return h.reply(ctx, chatID, "Finalization failed, staging kept. Run /d to retry.")
		}
	}

	text := fmt.Sprintf(
		"Session finalized.\nToken: %s\nLink: %s\nFiles: %d\nProtected: %v\nRetention: %s",
		session.Token,
		h.Responder.AccessLink(session.Token),
		session.FileCount,
		session.Protect,
		retentionLabel(session.Retention()),
	)
	if requiredChannel != "" {
		text += "\nRequired channel: " + requiredChannel
	}

	return h.reply(ctx, chatID, text)
}

func (h *Handler) handleStagedItem(ctx context.Context, in e.Inbound) error {
	if in.Item == nil {
		return h.reply(ctx, in.ChatID,
			"Unsupported type for staging. Send photos, documents, videos, audio, voice, or text.")
	}

	pos, err := h.Staging.Append(in.UserID, *in.Item)
	if err != nil {
		if errors.Is(err, services.ErrItemExcluded) {
			return h.reply(ctx, in.ChatID, "Text excluded from staging (exclude_text).")
		}
		if errors.Is(err, services.ErrNoActiveBuffer) {
			return h.reply(ctx, in.ChatID, "No active staging. Start with /upload.")
		}
		return err
	}

	return h.reply(ctx, in.ChatID, fmt.Sprintf("Added to staging (#%d).", pos))
}

func (h *Handler) handleRevoke(ctx context.Context, in e.Inbound) error {
	tok := strings.TrimSpace(in.Args)
	if tok == "" {
		return h.reply(ctx, in.ChatID, "Usage: /revoke <token>")
	}

	ok, err := h.Store.RevokeSession(ctx, tok)
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}

	if !ok {
		return h.reply(ctx, in.ChatID, "No session with that token.")
	}

	return h.reply(ctx, in.ChatID, "Session revoked.")
}

func (h *Handler) handleSessions(ctx context.Context, in e.Inbound) error {
	sessions, err := h.Store.ListSessions(ctx, 20)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		return h.reply(ctx, in.ChatID, "No sessions yet.")
	}

	var sb strings.Builder
	sb.WriteString("Latest sessions:\n")
	for _, s := range sessions {
		state := "active"
		if s.Revoked {
			state = "revoked"
		}
		fmt.Fprintf(&sb, "%s - %d file(s), %s, %s\n",
			s.Token, s.FileCount, state, s.CreatedAt.Format("2006-01-02 15:04"))
	}

	return h.reply(ctx, in.ChatID, sb.String())
}

func (h *Handler) handleStats(ctx context.Context, in e.Inbound) error {
	stats, err := h.Store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}

	return h.reply(ctx, in.ChatID, fmt.Sprintf(
		"Users: %d (%d active in 48h)\nSessions: %d\nFiles: %d",
		stats.TotalUsers, stats.ActiveUsers, stats.TotalSessions, stats.TotalFiles))
}

func (h *Handler) handleBroadcast(ctx context.Context, in e.Inbound) error {
	text := strings.TrimSpace(in.Args)
	if text == "" {
		return h.reply(ctx, in.ChatID, "Usage: /broadcast <message>")
	}

	sent, failed, err := h.Broadcast.Broadcast(ctx, text)
	if err != nil {
		return fmt.Errorf("broadcasting: %w", err)
	}

	return h.reply(ctx, in.ChatID, fmt.Sprintf("Broadcast finished. Sent: %d Failed: %d", sent, failed))
}

func (h *Handler) handleBackup(ctx context.Context, in e.Inbound) error {
	msgID, err := h.Backups.Backup(ctx)
	if err != nil {
		h.Log.Error("manual backup", "error", err)
		return h.reply(ctx, in.ChatID, "Backup failed, see logs.")
	}

	if msgID == 0 {
		return h.reply(ctx, in.ChatID, "Backup channel not configured.")
	}

	return h.reply(ctx, in.ChatID, "Backup uploaded.")
}

// handleRestore downloads a backup document sent as a reply next to the live
// database. Swapping the open sqlite file in place is not safe, so the
// operator restarts the process after moving the file.
func (h *Handler) handleRestore(ctx context.Context, in e.Inbound) error {
	if in.ReplyDocumentID == "" {
		return h.reply(ctx, in.ChatID, "Reply to a backup document with /restore.")
	}

	dest := h.DBPath + ".restore"
	err := h.Responder.DownloadDocument(ctx, in.ReplyDocumentID, dest)
	if err != nil {
		h.Log.Error("downloading backup", "error", err)
		return h.reply(ctx, in.ChatID, "Download failed, see logs.")
	}

	return h.reply(ctx, in.ChatID, fmt.Sprintf(
		"Backup saved to %s. Stop the bot, replace %s with it and start again.", dest, h.DBPath))
}

func (h *Handler) handleSetMessage(ctx context.Context, in e.Inbound) error {
	text := strings.TrimSpace(in.Args)
	if text == "" {
		return h.reply(ctx, in.ChatID, "Usage: /setmessage <text>")
	}

	err := h.Store.SetSetting(ctx, startMessageKey, text)
	if err != nil {
		return fmt.Errorf("saving greeting: %w", err)
	}

	return h.reply(ctx, in.ChatID, "Greeting updated.")
}

func (h *Handler) handleSetImage(ctx context.Context, in e.Inbound) error {
	if in.ReplyPhotoID == "" {
		return h.reply(ctx, in.ChatID, "Reply to a photo with /setimage.")
	}

	err := h.Store.SetSetting(ctx, startImageKey, in.ReplyPhotoID)
	if err != nil {
		return fmt.Errorf("saving greeting image: %w", err)
	}

	return h.reply(ctx, in.ChatID, "Greeting image saved.")
}

func (h *Handler) handleSetChannel(ctx context.Context, in e.Inbound) error {
	parts := strings.SplitN(strings.TrimSpace(in.Args), " ", 2)
	if len(parts) != 2 {
		return h.reply(ctx, in.ChatID, "Usage: /setchannel <alias> <link>")
	}

	alias := strings.TrimSpace(parts[0])
	link := strings.TrimSpace(parts[1])

	err := h.Store.AddChannel(ctx, alias, link)
	if err != nil {
		return fmt.Errorf("saving channel alias: %w", err)
	}

	return h.reply(ctx, in.ChatID, fmt.Sprintf("Channel alias added: %s -> %s", alias, link))
}

func (h *Handler) handleListChannels(ctx context.Context, in e.Inbound) error {
	channels, err := h.Store.Channels(ctx)
	if err != nil {
		return fmt.Errorf("listing channels: %w", err)
	}

	if len(channels) == 0 {
		return h.reply(ctx, in.ChatID, "No channel aliases set.")
	}

	var sb strings.Builder
	sb.WriteString("Channel aliases:\n")
	for _, ch := range channels {
		fmt.Fprintf(&sb, "%s -> %s\n", ch.Alias, ch.Link)
	}

	return h.reply(ctx, in.ChatID, sb.String())
}

func (h *Handler) handleSetForceChannel(ctx context.Context, in e.Inbound) error {
	arg := strings.TrimSpace(in.Args)
	if arg == "" {
		return h.reply(ctx, in.ChatID,
			"Usage: /setforcechannel <channel>[, <channel>...] (up to 3), or \"off\" to disable.")
	}

	if isOff(arg) {
		err := h.Store.SetSetting(ctx, services.ForceChannelsKey, "")
		if err != nil {
			return fmt.Errorf("clearing required channels: %w", err)
		}
		return h.reply(ctx, in.ChatID, "Required channel disabled globally.")
	}

	channels := services.SplitChannels(arg)
	if len(channels) > 3 {
		return h.reply(ctx, in.ChatID, "At most 3 required channels.")
	}

	resolved := make([]string, 0, len(channels))
	for _, ch := range channels {
		r, err := h.Responder.ResolveChannel(ctx, ch)
		if err != nil {
			h.Log.Warn("resolving required channel", "input", ch, "error", err)
			return h.reply(ctx, in.ChatID, fmt.Sprintf("Cannot resolve %s, nothing saved.", ch))
		}
		resolved = append(resolved, r)
	}

	err := h.Store.SetSetting(ctx, services.ForceChannelsKey, strings.Join(resolved, ","))
	if err != nil {
		return fmt.Errorf("saving required channels: %w", err)
	}

	return h.reply(ctx, in.ChatID, "Required channel(s) set: "+strings.Join(resolved, ", "))
}

func (h *Handler) handleAdminHelp(ctx context.Context, in e.Inbound) error {
	return h.reply(ctx, in.ChatID,
		"Admin commands:\n"+
			"/upload [exclude_text] - start staging items\n"+
			"/d - finalize staging (protect + retention prompts)\n"+
			"/e - cancel staging\n"+
			"/revoke <token> - revoke a session\n"+
			"/sessions - list latest sessions\n"+
			"/stats - usage stats\n"+
			"/broadcast <text> - message all users\n"+
			"/backup - upload a database backup now\n"+
			"/restore - reply to a backup document to fetch it\n"+
			"/setmessage <text> - set the greeting\n"+
			"/setimage - reply to a photo to set the greeting image\n"+
			"/setchannel <alias> <link> - add a greeting button\n"+
			"/listchannels - list greeting buttons\n"+
			"/setforcechannel <channel|off> - global required channel(s)")
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) error {
	_, err := h.Responder.SendText(ctx, chatID, text)
	return err
}

func (h *Handler) flow(userID int64) *finalizeFlow {
	h.flowMu.Lock()
	defer h.flowMu.Unlock()

	return h.flows[userID]
}

func (h *Handler) setFlow(userID int64, flow *finalizeFlow) {
	h.flowMu.Lock()
	defer h.flowMu.Unlock()

	if h.flows == nil {
		h.flows = make(map[int64]*finalizeFlow)
	}
	h.flows[userID] = flow
}

func (h *Handler) clearFlow(userID int64) {
	h.flowMu.Lock()
	defer h.flowMu.Unlock()

	delete(h.flows, userID)
}

func (h *Handler) maxRetentionMinutes() int {
	return int(h.MaxRetention / time.Minute)
}

func isOff(s string) bool {
	switch strings.ToLower(s) {
	case "off", "none", "no", "disable":
		return true
	}
	return false
}

func retentionLabel(d time.Duration) string {
	if d <= 0 {
		return "never"
	}
	return d.String()
}

func joinURL(channel string) string {
	if strings.HasPrefix(channel, "http://") || strings.HasPrefix(channel, "https://") {
		return channel
	}
	return "https://t.me/" + strings.TrimPrefix(channel, "@")
}

func joinLabel(channel string) string {
	if strings.HasPrefix(channel, "http://") || strings.HasPrefix(channel, "https://") {
		return "Join channel"
	}
	return "Join " + channel
}
