package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/project-shield/internal/classifier"
	"github.com/xaenox/project-shield/internal/models"
	"github.com/xaenox/project-shield/internal/service"
	"github.com/xaenox/project-shield/internal/storage"
	"go.uber.org/goleak"
)

const testChat int64 = 100

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func (f *fakeSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	msgs := f.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func newTestBot() (*Bot, *fakeSender, *storage.MemoryStorage) {
	store := storage.NewMemoryStorage()
	analyzer := classifier.NewAnalyzer(classifier.Config{}, nil)
	sender := &fakeSender{}
	return NewWithSender(sender, store, service.New(store, analyzer, nil, 2), nil), sender, store
}

func command(text string) *tgbotapi.Message {
	length := strings.IndexByte(text, ' ')
	if length < 0 {
		length = len(text)
	}
	msg := textMessage(text)
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	return msg
}

func textMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 42,
		Text:      text,
		Chat:      &tgbotapi.Chat{ID: testChat},
		From:      &tgbotapi.User{ID: 7},
	}
}

// setupProject creates the chat project with two scope items through the bot.
func setupProject(t *testing.T, b *Bot) {
	t.Helper()
	ctx := context.Background()
	b.handleMessage(ctx, command("/project Acme portal | Customer portal"))
	b.handleMessage(ctx, command("/scope Build login page | Create user authentication UI"))
	b.handleMessage(ctx, command("/scope Create user dashboard | Main dashboard after login"))
}

func TestBot_StartAndHelp(t *testing.T) {
	b, sender, _ := newTestBot()
	ctx := context.Background()

	b.handleMessage(ctx, command("/start"))
	assert.Contains(t, sender.last(t).Text, "Welcome to Project Shield")

	b.handleMessage(ctx, command("/help"))
	assert.Contains(t, sender.last(t).Text, "/scope title | description")

	b.handleMessage(ctx, command("/dance"))
	assert.Contains(t, sender.last(t).Text, "Unknown command")
}

func TestBot_RequiresProject(t *testing.T) {
	b, sender, _ := newTestBot()

	b.handleMessage(context.Background(), textMessage("Can you also build a mobile app?"))
	assert.Contains(t, sender.last(t).Text, "no project yet")

	b.handleMessage(context.Background(), command("/items"))
	assert.Contains(t, sender.last(t).Text, "no project yet")
}

func TestBot_ProjectAndScope(t *testing.T) {
	b, sender, store := newTestBot()
	setupProject(t, b)

	project, err := store.GetProjectByChat(context.Background(), testChat)
	require.NoError(t, err)
	assert.Equal(t, "Acme portal", project.Name)
	assert.Equal(t, "Customer portal", project.Description)
	require.Len(t, project.ScopeItems, 2)
	assert.Equal(t, "Create user authentication UI", project.ScopeItems[0].Description)

	last := sender.last(t)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, last.ParseMode)
	assert.Equal(t, "Added scope item 2: *Create user dashboard*", last.Text)

	b.handleMessage(context.Background(), command("/items"))
	items := sender.last(t).Text
	assert.Contains(t, items, "1\\. Build login page \\- _Create user authentication UI_")
	assert.Contains(t, items, "2\\. Create user dashboard")
}

func TestBot_CommandUsage(t *testing.T) {
	b, sender, _ := newTestBot()

	b.handleMessage(context.Background(), command("/project"))
	assert.Equal(t, "Usage: /project name | description", sender.last(t).Text)

	b.handleMessage(context.Background(), command("/scope  | only description"))
	assert.Equal(t, "Usage: /scope title | description", sender.last(t).Text)
}

func TestBot_ClientRequestGetsVerdict(t *testing.T) {
	b, sender, store := newTestBot()
	setupProject(t, b)

	b.handleMessage(context.Background(), textMessage("Working on the login page design"))

	reply := sender.last(t)
	assert.Equal(t, 42, reply.ReplyToMessageID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, reply.ParseMode)
	assert.Contains(t, reply.Text, "✅ In scope")
	assert.Contains(t, reply.Text, "*Scope item:* Build login page")

	project, err := store.GetProjectByChat(context.Background(), testChat)
	require.NoError(t, err)
	requests, err := store.ListClientRequests(context.Background(), project.ID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.SourceChat, requests[0].Source)
	assert.Equal(t, models.ClassificationInScope, requests[0].Classification)
}

func TestBot_ScopeCreepVerdict(t *testing.T) {
	b, sender, _ := newTestBot()
	setupProject(t, b)

	b.handleMessage(context.Background(), textMessage("Can you also build a mobile app?"))

	reply := sender.last(t).Text
	assert.Contains(t, reply, "🚫 Out of scope")
	assert.Contains(t, reply, "\\(80%\\)")
	assert.Contains(t, reply, "*Scope creep phrases:* also, can you also")
	assert.NotContains(t, reply, "Scope item:")
}

func TestBot_HistoryAndBulk(t *testing.T) {
	b, sender, store := newTestBot()
	ctx := context.Background()
	setupProject(t, b)

	b.handleMessage(ctx, command("/history"))
	assert.Equal(t, "No client requests yet.", sender.last(t).Text)

	b.handleMessage(ctx, command("/pending"))
	assert.Equal(t, "Nothing to analyze.", sender.last(t).Text)

	project, err := store.GetProjectByChat(ctx, testChat)
	require.NoError(t, err)
	for _, content := range []string{"Working on the login page design", "Can you explain how the dashboard works?"} {
		require.NoError(t, store.CreateClientRequest(ctx, &models.ClientRequest{
			ProjectID:      project.ID,
			Title:          content,
			Content:        content,
			Source:         models.SourceEmail,
			Status:         models.StatusNew,
			Classification: models.ClassificationPending,
		}))
	}

	b.handleMessage(ctx, command("/history"))
	history := sender.last(t).Text
	assert.Contains(t, history, "⏳ Pending")
	assert.Less(t, strings.Index(history, "Can you explain"), strings.Index(history, "Working on the login"))

	b.handleMessage(ctx, command("/pending"))
	summary := sender.last(t).Text
	assert.Contains(t, summary, "Analyzed 2 requests:")
	assert.Contains(t, summary, "✅ In scope: 1")
	assert.Contains(t, summary, "❓ Clarification needed: 1")

	b.handleMessage(ctx, command("/pending"))
	assert.Equal(t, "Nothing to analyze.", sender.last(t).Text)

	b.handleMessage(ctx, command("/reanalyze"))
	assert.Contains(t, sender.last(t).Text, "Analyzed 2 requests:")
}

func TestBot_ServeStopsOnCancel(t *testing.T) {
	b, sender, _ := newTestBot()

	updates := make(chan tgbotapi.Update, 1)
	updates <- tgbotapi.Update{Message: command("/help")}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.serve(ctx, updates, func() { close(stopped) })
	}()

	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	require.NoError(t, <-done)
	select {
	case <-stopped:
	default:
		t.Fatal("update feed was not stopped")
	}
}

func TestBot_StartWithoutConnection(t *testing.T) {
	b, _, _ := newTestBot()
	assert.Error(t, b.Start(context.Background()))
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"v1.2 (beta)!", "v1\\.2 \\(beta\\)\\!"},
		{"snake_case *bold*", "snake\\_case \\*bold\\*"},
		{"#tag - x", "\\#tag \\- x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeMarkdown(tt.in), tt.in)
	}
}
