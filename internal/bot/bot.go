package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/project-shield/internal/models"
	"github.com/xaenox/project-shield/internal/service"
	"github.com/xaenox/project-shield/internal/storage"
	"go.uber.org/zap"
)

const historyLimit = 5

// Sender delivers outgoing messages. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api     *tgbotapi.BotAPI
	sender  Sender
	storage storage.Storage
	service *service.Service
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func New(token string, storage storage.Storage, svc *service.Service, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := NewWithSender(api, storage, svc, logger)
	b.api = api
	return b, nil
}

// NewWithSender builds a bot that replies through sender and has no update feed.
func NewWithSender(sender Sender, storage storage.Storage, svc *service.Service, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		sender:  sender,
		storage: storage,
		service: svc,
		logger:  logger,
	}
}

// Start polls Telegram for updates until ctx is cancelled, then waits for
// in-flight handlers.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot has no Telegram connection")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	b.logger.Info("Bot started", zap.String("username", b.api.Self.UserName))
	return b.serve(ctx, b.api.GetUpdatesChan(u), b.api.StopReceivingUpdates)
}

func (b *Bot) serve(ctx context.Context, updates tgbotapi.UpdatesChannel, stop func()) error {
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			stop()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}

			b.wg.Add(1)
			go func(message *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleMessage(ctx, message)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// Handle commands
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	// Get content from message
	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	project, ok := b.chatProject(ctx, message)
	if !ok {
		return
	}

	analysis, err := b.service.Submit(ctx, service.Submission{
		ProjectID: project.ID,
		Content:   content,
		Source:    models.SourceChat,
	})
	if err != nil {
		b.logger.Error("Failed to analyze client request",
			zap.Error(err),
			zap.String("project_id", project.ID.String()),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't analyze that request. Please try again.")
		return
	}

	b.sendVerdict(message.Chat.ID, message.MessageID, project, analysis)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "project":
		b.handleProject(ctx, message)
	case "scope":
		b.handleScope(ctx, message)
	case "items":
		b.handleItems(ctx, message)
	case "history":
		b.handleHistory(ctx, message)
	case "pending":
		b.handleBulk(ctx, message, true)
	case "reanalyze":
		b.handleBulk(ctx, message, false)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to Project Shield! 🛡
I check client requests against your agreed scope of work and flag scope creep.

1. Create a project: /project Website redesign | Marketing site for Acme
2. Add scope items: /scope Build login page | Email and password sign-in
3. Forward or paste any client message and I'll tell you whether it's in scope.

Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/project name | description - Create the project for this chat
/scope title | description - Add a scope item
/items - Show the scope of work
/history - Show recent client requests
/pending - Analyze requests that haven't been analyzed yet
/reanalyze - Re-analyze every request

Any other message is treated as a client request and checked against the scope.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleProject(ctx context.Context, message *tgbotapi.Message) {
	name, description := splitArgs(message.CommandArguments())
	if name == "" {
		b.sendMessage(message.Chat.ID, "Usage: /project name | description")
		return
	}

	project := &models.Project{
		ChatID:      message.Chat.ID,
		Name:        name,
		Description: description,
	}
	if err := b.storage.CreateProject(ctx, project); err != nil {
		b.logger.Error("Failed to create project",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't create the project.")
		return
	}

	b.logger.Info("Project created",
		zap.String("project_id", project.ID.String()),
		zap.Int64("chat_id", message.Chat.ID))
	b.sendMarkdown(message.Chat.ID, fmt.Sprintf("Project *%s* created\\. Add scope items with /scope\\.",
		escapeMarkdown(project.Name)))
}

func (b *Bot) handleScope(ctx context.Context, message *tgbotapi.Message) {
	title, description := splitArgs(message.CommandArguments())
	if title == "" {
		b.sendMessage(message.Chat.ID, "Usage: /scope title | description")
		return
	}

	project, ok := b.chatProject(ctx, message)
	if !ok {
		return
	}

	item := &models.ScopeItem{
		ProjectID:   project.ID,
		Title:       title,
		Description: description,
	}
	if err := b.storage.AddScopeItem(ctx, item); err != nil {
		b.logger.Error("Failed to add scope item",
			zap.Error(err),
			zap.String("project_id", project.ID.String()))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't add the scope item.")
		return
	}

	b.sendMarkdown(message.Chat.ID, fmt.Sprintf("Added scope item %d: *%s*",
		item.Order+1, escapeMarkdown(item.Title)))
}

func (b *Bot) handleItems(ctx context.Context, message *tgbotapi.Message) {
	project, ok := b.chatProject(ctx, message)
	if !ok {
		return
	}

	if len(project.ScopeItems) == 0 {
		b.sendMessage(message.Chat.ID, "No scope items yet. Add one with /scope title | description")
		return
	}

	b.sendMarkdown(message.Chat.ID, formatScope(project))
}

func (b *Bot) handleHistory(ctx context.Context, message *tgbotapi.Message) {
	project, ok := b.chatProject(ctx, message)
	if !ok {
		return
	}

	requests, err := b.storage.ListClientRequests(ctx, project.ID)
	if err != nil {
		b.logger.Error("Failed to list client requests",
			zap.Error(err),
			zap.String("project_id", project.ID.String()))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve the request history.")
		return
	}

	if len(requests) == 0 {
		b.sendMessage(message.Chat.ID, "No client requests yet.")
		return
	}

	b.sendMarkdown(message.Chat.ID, formatHistory(requests, historyLimit))
}

func (b *Bot) handleBulk(ctx context.Context, message *tgbotapi.Message, onlyPending bool) {
	project, ok := b.chatProject(ctx, message)
	if !ok {
		return
	}

	results, err := b.service.AnalyzeProject(ctx, project.ID, onlyPending)
	if err != nil {
		b.logger.Error("Failed to analyze project requests",
			zap.Error(err),
			zap.String("project_id", project.ID.String()),
			zap.Bool("only_pending", onlyPending))
		b.sendErrorMessage(message.Chat.ID, "Sorry, the bulk analysis failed.")
		return
	}

	if len(results) == 0 {
		b.sendMessage(message.Chat.ID, "Nothing to analyze.")
		return
	}

	b.sendMarkdown(message.Chat.ID, formatBulk(results))
}

// chatProject loads the project bound to the message's chat and tells the
// user how to create one when there is none.
func (b *Bot) chatProject(ctx context.Context, message *tgbotapi.Message) (*models.Project, bool) {
	project, err := b.storage.GetProjectByChat(ctx, message.Chat.ID)
	if errors.Is(err, storage.ErrNotFound) {
		b.sendMessage(message.Chat.ID, "This chat has no project yet. Create one with /project name | description")
		return nil, false
	}
	if err != nil {
		b.logger.Error("Failed to load project",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't load this chat's project.")
		return nil, false
	}
	return project, true
}

// splitArgs splits "first | rest" command arguments.
func splitArgs(args string) (string, string) {
	first, rest, _ := strings.Cut(args, "|")
	return strings.TrimSpace(first), strings.TrimSpace(rest)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendVerdict(chatID int64, replyToID int, project *models.Project, analysis service.Analysis) {
	msg := tgbotapi.NewMessage(chatID, formatVerdict(project, analysis.Result))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyToMessageID = replyToID

	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send verdict",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
