package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shadowstrike/topup-bot/internal/adminstore"
	"github.com/shadowstrike/topup-bot/internal/backend"
	"github.com/shadowstrike/topup-bot/internal/config"
	"github.com/shadowstrike/topup-bot/internal/dedup"
)

const (
	msgNoAPIKey   = "BOT_API_KEY is not configured."
	msgNotAllowed = "You are not allowed to do this."
	msgNoUsername = "You have no telegram username. Set one in Telegram settings."
	msgNoPending  = "No pending top-up requests."
	rejectReason  = "rejected by admin"
)

// Bot wraps the telegram transport with the command and callback handlers.
type Bot struct {
	bot     *bot.Bot
	cfg     *config.Config
	backend *backend.Client
	admins  *adminstore.Store
	seen    *dedup.Registry
	log     *slog.Logger
}

// New creates the telegram bot and registers all handlers.
func New(cfg *config.Config, api *backend.Client, admins *adminstore.Store, seen *dedup.Registry, log *slog.Logger) (*Bot, error) {
	b := &Bot{
		cfg:     cfg,
		backend: api,
		admins:  admins,
		seen:    seen,
		log:     log,
	}

	opts := []bot.Option{
		bot.WithCallbackQueryDataHandler(callbackTag+":", bot.MatchTypePrefix, b.resolveCallback),
	}

	tgBot, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	b.bot = tgBot

	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/connect", bot.MatchTypePrefix, b.connectHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/link", bot.MatchTypePrefix, b.linkHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/reset", bot.MatchTypePrefix, b.resetHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/ban", bot.MatchTypePrefix, b.banHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/unban", bot.MatchTypePrefix, b.unbanHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/topups", bot.MatchTypePrefix, b.topupsHandler)

	return b, nil
}

// Start starts long polling. Blocks until the context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.bot.Start(ctx)
}

func (b *Bot) isAdmin(username string) bool {
	return b.cfg.AdminUsername != "" &&
		config.NormalizeUsername(username) == b.cfg.AdminUsername
}

func senderUsername(msg *models.Message) string {
	if msg.From == nil {
		return ""
	}
	return config.NormalizeUsername(msg.From.Username)
}

func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

// --- Commands ---

func (b *Bot) startHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	// First /start from the admin binds this chat as the notification
	// destination for the scheduled top-up announcements.
	if b.isAdmin(senderUsername(update.Message)) {
		if err := b.admins.Set(update.Message.Chat.ID); err != nil {
			b.log.Error("save admin chat", "error", err)
		} else {
			b.log.Info("admin chat bound", "chat_id", update.Message.Chat.ID)
		}
	}

	b.reply(ctx, update.Message.Chat.ID,
		"ShadowStrike bot.\n"+
			"1) /connect <code> - link your account with a code from the app\n"+
			"2) /reset <new_password> - change your password\n"+
			"3) /ban <game_username> and /unban <game_username> (admin)\n"+
			"4) /topups (admin) - review pending vales receipts")
}

func (b *Bot) connectHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	if !b.isAdmin(senderUsername(update.Message)) {
		b.reply(ctx, update.Message.Chat.ID, "Only /reset is available.")
		return
	}

	args := commandArgs(update.Message.Text)
	if len(args) < 1 {
		b.reply(ctx, update.Message.Chat.ID, "Usage: /connect <code>")
		return
	}

	tgUsername := senderUsername(update.Message)
	if tgUsername == "" {
		b.reply(ctx, update.Message.Chat.ID, msgNoUsername)
		return
	}
	if b.cfg.BotAPIKey == "" {
		b.reply(ctx, update.Message.Chat.ID, msgNoAPIKey)
		return
	}

	code := strings.ToUpper(args[0])

	res, err := b.backend.ConfirmLinkCode(ctx, code, tgUsername)
	if err != nil {
		b.reply(ctx, update.Message.Chat.ID, "Server error: "+err.Error())
		return
	}
	if !res.OK {
		b.reply(ctx, update.Message.Chat.ID, "Error: "+res.Message)
		return
	}

	b.reply(ctx, update.Message.Chat.ID, fmt.Sprintf(
		"Linked successfully.\nAccount: %s\nTelegram: @%s", res.Username, tgUsername))
}

func (b *Bot) linkHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	if !b.isAdmin(senderUsername(update.Message)) {
		b.reply(ctx, update.Message.Chat.ID, "Only /reset is available.")
		return
	}

	args := commandArgs(update.Message.Text)
	if len(args) < 1 {
		b.reply(ctx, update.Message.Chat.ID, "Usage: /link <game_username>")
		return
	}

	tgUsername := senderUsername(update.Message)
	if tgUsername == "" {
		b.reply(ctx, update.Message.Chat.ID, msgNoUsername)
		return
	}

	username := strings.ToLower(args[0])

	res, err := b.backend.LinkAccount(ctx, username, tgUsername)
	if err != nil {
		b.reply(ctx, update.Message.Chat.ID, "Server error: "+err.Error())
		return
	}
	if !res.OK {
		b.reply(ctx, update.Message.Chat.ID, "Error: "+res.Message)
		return
	}

	b.reply(ctx, update.Message.Chat.ID, fmt.Sprintf("Linked: %s <-> @%s", username, tgUsername))
}

func (b *Bot) resetHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	args := commandArgs(update.Message.Text)
	if len(args) < 1 {
		b.reply(ctx, update.Message.Chat.ID, "Usage: /reset <new_password>")
		return
	}

	tgUsername := senderUsername(update.Message)
	if tgUsername == "" {
		b.reply(ctx, update.Message.Chat.ID, msgNoUsername)
		return
	}
	if b.cfg.BotAPIKey == "" {
		b.reply(ctx, update.Message.Chat.ID, msgNoAPIKey)
		return
	}

	res, err := b.backend.ResetPassword(ctx, tgUsername, args[0])
	if err != nil {
		b.reply(ctx, update.Message.Chat.ID, "Server error: "+err.Error())
		return
	}
	if !res.OK {
		b.reply(ctx, update.Message.Chat.ID, "Error: "+res.Message)
		return
	}

	b.reply(ctx, update.Message.Chat.ID, "Password updated: "+res.Username)
}

func (b *Bot) banHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.setBlockedHandler(ctx, update, true, "/ban <game_username>")
}

func (b *Bot) unbanHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.setBlockedHandler(ctx, update, false, "/unban <game_username>")
}

func (b *Bot) setBlockedHandler(ctx context.Context, update *models.Update, blocked bool, usage string) {
	if update.Message == nil {
		return
	}

	args := commandArgs(update.Message.Text)
	if len(args) < 1 {
		b.reply(ctx, update.Message.Chat.ID, "Usage: "+usage)
		return
	}
	if b.cfg.BotAPIKey == "" {
		b.reply(ctx, update.Message.Chat.ID, msgNoAPIKey)
		return
	}

	tgUsername := senderUsername(update.Message)
	if !b.isAdmin(tgUsername) {
		b.reply(ctx, update.Message.Chat.ID, msgNotAllowed)
		return
	}

	username := strings.ToLower(args[0])

	res, err := b.backend.SetBlocked(ctx, username, blocked, tgUsername)
	if err != nil {
		b.reply(ctx, update.Message.Chat.ID, "Server error: "+err.Error())
		return
	}
	if !res.OK {
		b.reply(ctx, update.Message.Chat.ID, "Error: "+res.Message)
		return
	}

	state := "unblocked"
	if blocked {
		state = "blocked"
	}
	b.reply(ctx, update.Message.Chat.ID, username+": "+state)
}

// topupsHandler lists every currently pending request in the requesting
// chat. Unlike the scheduled notifier it does not skip already-seen
// requests, but it still marks them seen so the notifier stays quiet about
// anything the admin has already been shown here.
func (b *Bot) topupsHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	if b.cfg.BotAPIKey == "" {
		b.reply(ctx, chatID, msgNoAPIKey)
		return
	}
	tgUsername := senderUsername(update.Message)
	if !b.isAdmin(tgUsername) {
		b.reply(ctx, chatID, msgNotAllowed)
		return
	}

	rows, err := b.backend.ListPending(ctx, tgUsername)
	if err != nil {
		var berr *backend.Error
		if errors.As(err, &berr) {
			b.reply(ctx, chatID, "Error: "+berr.Message)
		} else {
			b.reply(ctx, chatID, "Server error: "+err.Error())
		}
		return
	}

	if len(rows) == 0 {
		b.reply(ctx, chatID, msgNoPending)
		return
	}

	for _, req := range rows {
		b.seen.MarkSeen(req.ID)
		if err := b.SendTopup(ctx, chatID, req); err != nil {
			b.log.Error("send topup row", "request_id", req.ID, "error", err)
		}
	}
}

// --- Resolution callback ---

// resolveCallback handles an approve/reject button press: authorize the
// sender, parse the token, resolve on the server and rewrite the original
// notification with the outcome. Failures leave the message untouched so
// the same button can be pressed again.
func (b *Bot) resolveCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	// Clear the button spinner before doing anything slow.
	b.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	})

	if b.cfg.BotAPIKey == "" {
		b.rewriteMessage(ctx, cb.Message, msgNoAPIKey, false)
		return
	}

	tgUsername := config.NormalizeUsername(cb.From.Username)
	if !b.isAdmin(tgUsername) {
		b.alert(ctx, cb.ID, msgNotAllowed)
		return
	}

	token, ok := parseResolveToken(cb.Data)
	if !ok {
		// Not one of our tokens; stay silent.
		return
	}

	resolved, err := b.backend.Resolve(ctx, tgUsername, token.RequestID, token.Action, rejectReason)
	if err != nil {
		var berr *backend.Error
		if errors.As(err, &berr) {
			b.alert(ctx, cb.ID, berr.Message)
		} else {
			b.alert(ctx, cb.ID, "Server error: "+err.Error())
		}
		return
	}

	b.log.Info("topup resolved",
		"request_id", token.RequestID,
		"action", token.Action,
		"status", resolved.Status,
	)

	b.rewriteMessage(ctx, cb.Message, resolvedLine(resolved), true)
}

// --- Sending ---

// SendTopup delivers one pending request with approve/reject buttons. A
// well-formed embedded receipt goes out as a photo with the details as its
// caption; anything else degrades to a plain text message.
func (b *Bot) SendTopup(ctx context.Context, chatID int64, req backend.TopupRequest) error {
	caption := topupCaption(req)
	keyboard := topupKeyboard(req.ID)

	if photo, format, err := decodeReceipt(req.ReceiptImage); err == nil {
		_, err := b.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID: chatID,
			Photo: &models.InputFileUpload{
				Filename: "receipt." + format,
				Data:     bytes.NewReader(photo),
			},
			Caption:     caption,
			ReplyMarkup: keyboard,
		})
		if err == nil {
			return nil
		}
		b.log.Warn("send receipt photo, falling back to text",
			"request_id", req.ID, "error", err)
	}

	_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        caption,
		ReplyMarkup: keyboard,
	})
	return err
}

// --- Helpers ---

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		b.log.Error("send message", "error", err)
	}
}

func (b *Bot) alert(ctx context.Context, callbackID, text string) {
	_, err := b.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
	if err != nil {
		b.log.Error("answer callback", "error", err)
	}
}

// rewriteMessage updates the original notification. Photo notifications
// keep their caption and get the line appended; text notifications are
// replaced outright.
func (b *Bot) rewriteMessage(ctx context.Context, msg models.MaybeInaccessibleMessage, line string, appendToCaption bool) {
	if msg.Message == nil {
		return
	}

	if msg.Message.Caption != "" {
		caption := line
		if appendToCaption {
			caption = msg.Message.Caption + "\n\n" + line
		}
		_, err := b.bot.EditMessageCaption(ctx, &bot.EditMessageCaptionParams{
			ChatID:    msg.Message.Chat.ID,
			MessageID: msg.Message.ID,
			Caption:   caption,
		})
		if err != nil {
			b.log.Error("edit message caption", "error", err)
		}
		return
	}

	_, err := b.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    msg.Message.Chat.ID,
		MessageID: msg.Message.ID,
		Text:      line,
	})
	if err != nil {
		b.log.Error("edit message text", "error", err)
	}
}
