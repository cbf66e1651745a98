package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korjavin/genrequizbot/catalog"
	"github.com/korjavin/genrequizbot/database"
	"github.com/korjavin/genrequizbot/models"
	"github.com/korjavin/genrequizbot/quiz"
)

type recordingSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	nextID   int
	failMD   bool
}

func (r *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok && r.failMD && msg.ParseMode == tgbotapi.ModeMarkdownV2 {
		return tgbotapi.Message{}, errors.New("can't parse entities")
	}
	r.sent = append(r.sent, c)
	r.nextID++
	return tgbotapi.Message{MessageID: r.nextID}, nil
}

func (r *recordingSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (r *recordingSender) messages() []tgbotapi.MessageConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range r.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (r *recordingSender) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	msgs := r.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func (r *recordingSender) edits() []tgbotapi.EditMessageReplyMarkupConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tgbotapi.EditMessageReplyMarkupConfig
	for _, c := range r.sent {
		if e, ok := c.(tgbotapi.EditMessageReplyMarkupConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingSender) lastCallbackText(t *testing.T) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.requests) - 1; i >= 0; i-- {
		if cb, ok := r.requests[i].(tgbotapi.CallbackConfig); ok {
			return cb.Text
		}
	}
	t.Fatal("no callback answered")
	return ""
}

type fakeExplainer struct {
	calls chan string
	text  string
}

func (f *fakeExplainer) Explain(_ context.Context, genre models.Genre, q models.Question) (string, error) {
	f.calls <- genre.ID
	return f.text, nil
}

const chatID int64 = 42

func newTestBot(t *testing.T, exp explainer) (*Bot, *recordingSender, *database.DB) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	out := &recordingSender{}
	b := newBot(out, catalog.Fallback(), func(id int64) quiz.Store { return db.ForUser(id) }, db, exp,
		quiz.Options{}, true)
	return b, out, db
}

func command(text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: chatID, UserName: "tester"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func text(s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: s,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID},
	}}
}

func press(data string) tgbotapi.Update {
	return pressIn(chatID, chatID, data)
}

func pressIn(chat, user int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		From:    &tgbotapi.User{ID: user},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chat}},
		Data:    data,
	}}
}

func answerData(t *testing.T, b *Bot, chat int64, position, choice int) string {
	t.Helper()
	cg, ok := b.games[chat]
	require.True(t, ok)
	return fmt.Sprintf("answer:%s:%d:%d", cg.game.Snapshot().Token, position, choice)
}

func buttonData(m tgbotapi.MessageConfig) []string {
	markup, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var out []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				out = append(out, *btn.CallbackData)
			}
		}
	}
	return out
}

func TestStartShowsGenreList(t *testing.T) {
	b, out, _ := newTestBot(t, nil)
	b.handleUpdate(context.Background(), command("/start"))

	msg := out.lastMessage(t)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, msg.ParseMode)
	assert.Contains(t, msg.Text, "Meiji Restoration")
	assert.Equal(t, []string{"genre:meiji", "genre:taisho", "settings"}, buttonData(msg))
}

func TestFullQuizClearsGenre(t *testing.T) {
	b, out, db := newTestBot(t, nil)
	ctx := context.Background()
	b.handleUpdate(ctx, command("/start"))

	b.handleUpdate(ctx, press("genre:meiji"))
	q := out.lastMessage(t)
	assert.Contains(t, q.Text, "Question 1/2")
	token := b.games[chatID].game.Snapshot().Token
	assert.Equal(t, []string{
		"answer:" + token + ":0:0", "answer:" + token + ":0:1", "answer:" + token + ":0:2", "answer:" + token + ":0:3", "quit",
	}, buttonData(q))

	// fallback catalog: meiji answers are 1 then 2
	b.handleUpdate(ctx, press(answerData(t, b, chatID, 0, 1)))
	assert.Equal(t, "♪♪♪", out.lastCallbackText(t))
	require.Len(t, out.edits(), 1)
	expl := out.lastMessage(t)
	assert.Contains(t, expl.Text, "Correct")
	assert.Equal(t, []string{"next"}, buttonData(expl))

	b.handleUpdate(ctx, press("next"))
	assert.Contains(t, out.lastMessage(t).Text, "Question 2/2")

	b.handleUpdate(ctx, text("3"))
	b.handleUpdate(ctx, text("next"))

	result := out.lastMessage(t)
	assert.Contains(t, result.Text, "Quiz finished")
	assert.Contains(t, result.Text, "Genre cleared")
	assert.Equal(t, []string{"retry", "home"}, buttonData(result))
	assert.Equal(t, models.ClearedGenres{"meiji": true}, db.ForUser(chatID).ClearedGenres())

	b.handleUpdate(ctx, press("home"))
	assert.Equal(t, "♪", out.lastCallbackText(t))
	assert.Contains(t, buttonData(out.lastMessage(t)), "genre:taisho")
	assert.Contains(t, out.lastMessage(t).Text, "✅")
}

func TestStaleAnswerIsRejected(t *testing.T) {
	b, out, _ := newTestBot(t, nil)
	ctx := context.Background()
	b.handleUpdate(ctx, press("genre:taisho"))
	b.handleUpdate(ctx, press(answerData(t, b, chatID, 0, 2)))
	b.handleUpdate(ctx, press("next"))

	b.handleUpdate(ctx, press(answerData(t, b, chatID, 0, 1)))
	assert.Equal(t, "This button is no longer active.", out.lastCallbackText(t))
	snap := b.games[chatID].game.Snapshot()
	assert.Equal(t, 1, snap.Cursor)
	assert.Equal(t, quiz.StatePlaying, snap.State)
}

func TestUnknownGenreShowsMessage(t *testing.T) {
	b, out, _ := newTestBot(t, nil)
	b.handleUpdate(context.Background(), press("genre:edo"))
	assert.Equal(t, "The selected genre has no questions.", out.lastMessage(t).Text)
}

func TestSettingsTogglePersists(t *testing.T) {
	b, out, db := newTestBot(t, nil)
	ctx := context.Background()
	b.handleUpdate(ctx, command("/settings"))
	assert.Equal(t, []string{"bgm", "sound", "home"}, buttonData(out.lastMessage(t)))

	b.handleUpdate(ctx, press("bgm"))
	b.handleUpdate(ctx, press("sound"))
	assert.Equal(t, models.Settings{BackgroundAudio: true, EffectAudio: false}, db.ForUser(chatID).Settings())

	// effects are off, so no cue toast
	b.handleUpdate(ctx, press("genre:meiji"))
	assert.Equal(t, "", out.lastCallbackText(t))
}

func TestResetProgressFlow(t *testing.T) {
	b, out, db := newTestBot(t, nil)
	ctx := context.Background()
	b.handleUpdate(ctx, command("/forceclear meiji"))
	assert.True(t, db.ForUser(chatID).ClearedGenres()["meiji"])

	b.handleUpdate(ctx, command("/resetprogress"))
	assert.Equal(t, []string{"reset:confirm", "home"}, buttonData(out.lastMessage(t)))

	b.handleUpdate(ctx, press("reset:confirm"))
	assert.Empty(t, db.ForUser(chatID).ClearedGenres())
}

func TestAllClearedShowsCongratulations(t *testing.T) {
	b, out, _ := newTestBot(t, nil)
	ctx := context.Background()
	b.handleUpdate(ctx, press("allclear"))
	assert.Equal(t, "Clear every genre first!", out.lastCallbackText(t))

	b.handleUpdate(ctx, command("/forceclear meiji"))
	b.handleUpdate(ctx, command("/forceclear taisho"))
	b.handleUpdate(ctx, command("/start"))
	assert.Contains(t, buttonData(out.lastMessage(t)), "allclear")

	b.handleUpdate(ctx, press("allclear"))
	assert.Contains(t, out.lastMessage(t).Text, "Congratulations")
}

func TestDebugCommandsRequireDebugMode(t *testing.T) {
	b, out, db := newTestBot(t, nil)
	b.debug = false
	ctx := context.Background()

	b.handleUpdate(ctx, command("/debug"))
	assert.Contains(t, out.lastMessage(t).Text, "Unknown command")
	b.handleUpdate(ctx, command("/forceclear meiji"))
	assert.Empty(t, db.ForUser(chatID).ClearedGenres())

	b.debug = true
	b.handleUpdate(ctx, command("/debug"))
	assert.Contains(t, out.lastMessage(t).Text, "screen=")
}

func TestMarkdownFallbackToPlainText(t *testing.T) {
	b, out, _ := newTestBot(t, nil)
	out.failMD = true
	b.handleUpdate(context.Background(), command("/start"))

	msg := out.lastMessage(t)
	assert.Empty(t, msg.ParseMode)
	assert.Contains(t, msg.Text, "Choose a genre")
	assert.NotContains(t, msg.Text, `\`)
}

type panickingStore struct{ quiz.Store }

func (panickingStore) Settings() models.Settings { panic("boom") }

func TestPanicShowsBlockingError(t *testing.T) {
	b, out, _ := newTestBot(t, nil)
	b.stores = func(int64) quiz.Store { return panickingStore{} }

	b.handleUpdate(context.Background(), command("/start"))
	msg := out.lastMessage(t)
	assert.Contains(t, msg.Text, unexpectedErrorText)
	assert.Equal(t, []string{"home"}, buttonData(msg))
	assert.Empty(t, b.games)
}

func TestHelpUsesCacheThenExplainer(t *testing.T) {
	exp := &fakeExplainer{calls: make(chan string, 1), text: "Longer story."}
	b, out, db := newTestBot(t, exp)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/help"))
	assert.Contains(t, out.lastMessage(t).Text, "start a quiz")

	b.handleUpdate(ctx, press("genre:meiji"))
	b.handleUpdate(ctx, press(answerData(t, b, chatID, 0, 1)))
	assert.Equal(t, []string{"next", "more"}, buttonData(out.lastMessage(t)))

	b.handleUpdate(ctx, press("more"))
	select {
	case id := <-exp.calls:
		assert.Equal(t, "meiji", id)
	case <-time.After(2 * time.Second):
		t.Fatal("explainer not called")
	}
	require.Eventually(t, func() bool {
		cached, _ := db.GetCachedExplanation("meiji", 1)
		return cached == "Longer story."
	}, 2*time.Second, 10*time.Millisecond)

	b.handleUpdate(ctx, command("/help"))
	assert.Contains(t, out.lastMessage(t).Text, "Longer story.")
	assert.Empty(t, exp.calls)
}

func TestParseAnswer(t *testing.T) {
	token, pos, sel, err := parseAnswer("answer:ab12cd34:3:2")
	require.NoError(t, err)
	assert.Equal(t, "ab12cd34", token)
	assert.Equal(t, 3, pos)
	assert.Equal(t, 2, sel)

	for _, bad := range []string{"answer:3:2", "answer::3:2", "answer:t:x:1", "answer:t:1:y", "answer:t:1:2:3"} {
		_, _, _, err := parseAnswer(bad)
		assert.Error(t, err, bad)
	}
}

func TestAnswerFromAbandonedQuizIsRejected(t *testing.T) {
	b, out, _ := newTestBot(t, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, press("genre:meiji"))
	oldButtons := buttonData(out.lastMessage(t))
	b.handleUpdate(ctx, press("quit"))
	b.handleUpdate(ctx, press("genre:taisho"))

	// taisho question 1 is answered by choice 2, the same index as the old meiji button
	b.handleUpdate(ctx, press(oldButtons[2]))
	assert.Equal(t, "This button is no longer active.", out.lastCallbackText(t))
	snap := b.games[chatID].game.Snapshot()
	assert.Equal(t, "taisho", snap.GenreID)
	assert.Equal(t, quiz.StatePlaying, snap.State)
	assert.Equal(t, 0, snap.Score)
	assert.Empty(t, out.edits())
}

func TestSameUserInTwoChatsKeepsBothClears(t *testing.T) {
	b, _, db := newTestBot(t, nil)
	ctx := context.Background()
	const user, private, group int64 = 7, 100, 200

	// open both chats first so each game caches the empty state
	b.handleUpdate(ctx, pressIn(private, user, "home"))
	b.handleUpdate(ctx, pressIn(group, user, "home"))

	play := func(chat int64, genre string, answers ...int) {
		b.handleUpdate(ctx, pressIn(chat, user, "genre:"+genre))
		for pos, choice := range answers {
			b.handleUpdate(ctx, pressIn(chat, user, answerData(t, b, chat, pos, choice)))
			b.handleUpdate(ctx, pressIn(chat, user, "next"))
		}
	}
	play(private, "meiji", 1, 2)
	assert.Equal(t, models.ClearedGenres{"meiji": true}, db.ForUser(user).ClearedGenres())

	play(group, "taisho", 2, 1)
	assert.Equal(t, models.ClearedGenres{"meiji": true, "taisho": true}, db.ForUser(user).ClearedGenres())
}

func TestEvictIdleGames(t *testing.T) {
	b, _, _ := newTestBot(t, nil)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.handleUpdate(ctx, pressIn(1, 1, "home"))
	b.handleUpdate(ctx, pressIn(2, 2, "genre:meiji"))
	b.handleUpdate(ctx, pressIn(3, 3, "home"))

	now = now.Add(2 * time.Hour)
	b.handleUpdate(ctx, pressIn(3, 3, "settings"))
	b.evictIdleGames()
	assert.NotContains(t, b.games, int64(1))
	assert.Contains(t, b.games, int64(2))
	assert.Contains(t, b.games, int64(3))

	now = now.Add(24 * time.Hour)
	b.evictIdleGames()
	assert.Empty(t, b.games)
}
