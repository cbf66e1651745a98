package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/korjavin/genrequizbot/ai"
	"github.com/korjavin/genrequizbot/config"
	"github.com/korjavin/genrequizbot/database"
	"github.com/korjavin/genrequizbot/models"
	"github.com/korjavin/genrequizbot/quiz"
)

const (
	cmdStart         = "start"
	cmdQuiz          = "quiz"
	cmdSettings      = "settings"
	cmdResetProgress = "resetprogress"
	cmdHelp          = "help"
	cmdDebug         = "debug"
	cmdForceClear    = "forceclear"

	cbGenre        = "genre:"
	cbAnswer       = "answer:"
	cbNext         = "next"
	cbRetry        = "retry"
	cbHome         = "home"
	cbQuit         = "quit"
	cbAllClear     = "allclear"
	cbBGM          = "bgm"
	cbSound        = "sound"
	cbSettings     = "settings"
	cbMore         = "more"
	cbResetConfirm = "reset:confirm"
	cbNoop         = "noop"

	unexpectedErrorText = quiz.UnexpectedErrorText

	evictInterval = 10 * time.Minute
	// games outside a quiz are dropped after idleGameTTL, abandoned quizzes after abandonedGameTTL
	idleGameTTL      = time.Hour
	abandonedGameTTL = 24 * time.Hour
)

// sender is the part of the Telegram API the bot writes through
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type explainer interface {
	Explain(ctx context.Context, genre models.Genre, question models.Question) (string, error)
}

type explanationCache interface {
	GetCachedExplanation(genreID string, questionID int) (string, error)
	CacheExplanation(genreID string, questionID int, response string) error
}

type chatGame struct {
	game     *quiz.Game
	view     *chatPresenter
	lastSeen time.Time
}

// Bot represents the Telegram bot
type Bot struct {
	api       *tgbotapi.BotAPI
	out       sender
	catalog   *models.Catalog
	stores    func(userID int64) quiz.Store
	cache     explanationCache
	explainer explainer
	opts      quiz.Options
	debug     bool
	games     map[int64]*chatGame // only touched by the update loop
	now       func() time.Time
}

// New creates a new bot instance
func New(cfg *config.Config, db *database.DB, catalog *models.Catalog) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	botAPI.Debug = os.Getenv("TELEGRAM_DEBUG") == "true"

	var exp explainer
	if cfg.DeepseekAPIKey != "" {
		exp = ai.NewDeepseekClient(cfg.DeepseekAPIKey)
	} else {
		log.Println("DEEPSEEK_API_KEY not set, extended explanations disabled")
	}

	b := newBot(botAPI, catalog, func(userID int64) quiz.Store { return db.ForUser(userID) }, db, exp, quiz.Options{
		ExplanationDelay: cfg.ExplanationDelay,
		Shuffle:          cfg.ShuffleQuestions,
	}, cfg.Debug)
	b.api = botAPI
	return b, nil
}

func newBot(out sender, catalog *models.Catalog, stores func(int64) quiz.Store, cache explanationCache, exp explainer, opts quiz.Options, debugMode bool) *Bot {
	return &Bot{
		out:       out,
		catalog:   catalog,
		stores:    stores,
		cache:     cache,
		explainer: exp,
		opts:      opts,
		debug:     debugMode,
		games:     make(map[int64]*chatGame),
		now:       time.Now,
	}
}

// Start listens for updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) {
	log.Printf("Authorized on account %s, starting bot polling...", b.api.Self.UserName)
	b.registerCommands()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	evict := time.NewTicker(evictInterval)
	defer evict.Stop()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			for _, cg := range b.games {
				cg.game.Close()
			}
			log.Println("Bot polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		case <-evict.C:
			b.evictIdleGames()
		}
	}
}

// evictIdleGames drops games nobody has touched for a while. The store keeps their flags,
// so a returning chat gets a fresh game on the title screen.
func (b *Bot) evictIdleGames() {
	now := b.now()
	evicted := 0
	for chatID, cg := range b.games {
		idle := now.Sub(cg.lastSeen)
		state := cg.game.Snapshot().State
		inQuiz := state == quiz.StatePlaying || state == quiz.StateAnswered
		if idle < idleGameTTL || (inQuiz && idle < abandonedGameTTL) {
			continue
		}
		cg.game.Close()
		delete(b.games, chatID)
		evicted++
	}
	if evicted > 0 {
		log.Printf("Evicted %d idle games, %d active", evicted, len(b.games))
	}
}

func (b *Bot) registerCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: cmdStart, Description: "Show the genre list"},
		{Command: cmdSettings, Description: "Audio settings"},
		{Command: cmdHelp, Description: "Explain the current question in more depth"},
		{Command: cmdResetProgress, Description: "Forget all cleared genres"},
	}
	if _, err := b.out.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		log.Printf("Error registering commands: %v", err)
	}
}

// handleUpdate routes one update. A panic while handling it is reported to the chat
// as a blocking error and the chat's game is discarded.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	chat := update.FromChat()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in update %d: %v\n%s", update.UpdateID, r, debug.Stack())
			if chat == nil {
				return
			}
			b.dropGame(chat.ID)
			newChatPresenter(b.out, chat.ID, b.explainer != nil).ShowBlockingError(unexpectedErrorText)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) gameFor(chatID, userID int64) *chatGame {
	if cg, ok := b.games[chatID]; ok {
		cg.lastSeen = b.now()
		return cg
	}
	view := newChatPresenter(b.out, chatID, b.explainer != nil)
	opts := b.opts
	opts.Label = fmt.Sprintf("chat %d", chatID)
	cg := &chatGame{
		game:     quiz.NewGame(b.catalog, b.stores(userID), view, opts),
		view:     view,
		lastSeen: b.now(),
	}
	b.games[chatID] = cg
	return cg
}

func (b *Bot) dropGame(chatID int64) {
	if cg, ok := b.games[chatID]; ok {
		cg.game.Close()
		delete(b.games, chatID)
	}
}

// handleMessage processes incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}
	log.Printf("Received message from %s (ID: %d): %s", message.From.UserName, message.From.ID, message.Text)
	cg := b.gameFor(message.Chat.ID, message.From.ID)
	// cues surface only as callback toasts
	defer cg.view.takeToast()

	if !message.IsCommand() {
		b.handleShortcut(cg, message.Text)
		return
	}

	switch message.Command() {
	case cmdStart, cmdQuiz:
		cg.game.Home()
	case cmdSettings:
		cg.game.ShowSettings()
	case cmdResetProgress:
		cg.view.renderResetConfirmation()
	case cmdHelp:
		b.explainCurrent(ctx, cg)
	case cmdDebug:
		if !b.debug {
			b.unknownCommand(cg)
			return
		}
		cg.view.ShowMessage(cg.game.DebugDump())
	case cmdForceClear:
		genreID := strings.TrimSpace(message.CommandArguments())
		if !b.debug || genreID == "" {
			b.unknownCommand(cg)
			return
		}
		cg.game.ForceClear(genreID)
		cg.view.ShowMessage(fmt.Sprintf("Genre %q marked as cleared.", genreID))
	default:
		b.unknownCommand(cg)
	}
}

func (b *Bot) unknownCommand(cg *chatGame) {
	cg.view.ShowMessage("Unknown command. Use /start to choose a genre or /settings to change audio settings.")
}

// handleShortcut treats plain text like key presses: 1-4 answer, "next" advances
func (b *Bot) handleShortcut(cg *chatGame, text string) {
	key := text
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		key = trimmed
	}
	handled, err := cg.game.ShortcutKey(key)
	if err != nil {
		b.reportGameError(cg, err)
		return
	}
	if !handled {
		cg.view.ShowMessage("Use the buttons, or send /start to choose a genre.")
	}
}

// handleCallback processes callback queries from inline buttons
func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil || callback.From == nil {
		return
	}
	log.Printf("Handling callback from user %s (ID: %d) with data: %s",
		callback.From.UserName, callback.From.ID, callback.Data)

	cg := b.gameFor(callback.Message.Chat.ID, callback.From.ID)
	data := callback.Data

	var err error
	switch {
	case data == cbNoop:
	case strings.HasPrefix(data, cbGenre):
		err = cg.game.StartGenre(strings.TrimPrefix(data, cbGenre))
	case strings.HasPrefix(data, cbAnswer):
		token, position, selected, perr := parseAnswer(data)
		if perr != nil {
			log.Printf("Invalid callback format %q: %v", data, perr)
			break
		}
		_, err = cg.game.Answer(token, position, selected)
	case data == cbNext:
		_, err = cg.game.Next()
	case data == cbRetry:
		err = cg.game.Retry()
	case data == cbHome, data == cbQuit:
		cg.game.Quit()
	case data == cbAllClear:
		if !cg.game.Congratulate() {
			cg.view.setToast("Clear every genre first!")
		}
	case data == cbBGM:
		cg.game.ToggleBackgroundAudio()
	case data == cbSound:
		cg.game.ToggleEffectAudio()
	case data == cbSettings:
		cg.game.ShowSettings()
	case data == cbMore:
		b.explainCurrent(ctx, cg)
	case data == cbResetConfirm:
		cg.game.ResetProgress()
		cg.view.ShowMessage("All progress has been reset.")
		cg.game.Home()
	default:
		log.Printf("Unknown callback data: %s", data)
	}
	if err != nil {
		b.reportGameError(cg, err)
	}

	b.sendCallbackResponse(callback.ID, cg.view.takeToast())
}

func (b *Bot) reportGameError(cg *chatGame, err error) {
	var notFound *quiz.GenreNotFoundError
	switch {
	case errors.As(err, &notFound):
		// already shown to the user by the game
	case errors.Is(err, quiz.ErrStaleAnswer), errors.Is(err, quiz.ErrInvalidTransition):
		log.Printf("Ignoring out-of-date action: %v", err)
		cg.view.setToast("This button is no longer active.")
	default:
		log.Printf("Error handling action: %v", err)
	}
}

func parseAnswer(data string) (token string, position, selected int, err error) {
	parts := strings.Split(strings.TrimPrefix(data, cbAnswer), ":")
	if len(parts) != 3 || parts[0] == "" {
		return "", 0, 0, errors.New("expected answer:<token>:<position>:<choice>")
	}
	position, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("position: %w", err)
	}
	selected, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, fmt.Errorf("choice: %w", err)
	}
	return parts[0], position, selected, nil
}

// explainCurrent sends an extended explanation of the current question.
// The API call runs in the background so the update loop keeps serving other chats.
func (b *Bot) explainCurrent(ctx context.Context, cg *chatGame) {
	genre, question, ok := cg.game.CurrentQuestion()
	if !ok {
		cg.view.ShowMessage("Please start a quiz with /start before asking for help.")
		return
	}

	cached, err := b.cache.GetCachedExplanation(genre.ID, question.ID)
	if err != nil {
		log.Printf("Error retrieving cached explanation: %v", err)
	}
	if cached != "" {
		cg.view.renderExtendedExplanation(question, cached)
		return
	}
	if b.explainer == nil {
		cg.view.ShowMessage("Extended explanations are not available.")
		return
	}

	cg.view.ShowMessage("Analyzing this question, please wait a moment...")
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Recovered from panic in explanation goroutine: %v", r)
			}
		}()

		response, err := b.explainer.Explain(ctx, genre, question)
		if err != nil {
			log.Printf("Error calling Deepseek API: %v", err)
			cg.view.ShowMessage("Sorry, I couldn't analyze this question. Please try again later.")
			return
		}
		if err := b.cache.CacheExplanation(genre.ID, question.ID, response); err != nil {
			log.Printf("Error caching explanation: %v", err)
		}
		cg.view.renderExtendedExplanation(question, response)
	}()
}

// sendCallbackResponse acknowledges a callback query
func (b *Bot) sendCallbackResponse(callbackID, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.out.Request(callback); err != nil {
		log.Printf("Error sending callback response: %v", err)
	}
}
