package quiz

import (
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/korjavin/genrequizbot/models"
)

// DefaultExplanationDelay is how long answer feedback stays up before the explanation screen
const DefaultExplanationDelay = time.Second

// UnexpectedErrorText is shown when a game hits a runtime failure it cannot recover from
const UnexpectedErrorText = "An unexpected error occurred. Please send /start to reload the quiz."

// ToneKind selects a short feedback cue
type ToneKind string

const (
	ToneCorrect   ToneKind = "correct"
	ToneIncorrect ToneKind = "incorrect"
	ToneClick     ToneKind = "click"
)

// Store persists the per-user flags the game needs.
// Reads never fail; writes report errors that the game only logs.
type Store interface {
	Settings() models.Settings
	PutSettings(models.Settings) error
	ClearedGenres() models.ClearedGenres
	PutClearedGenres(models.ClearedGenres) error
	ResetClearedGenres() error
}

// Presenter renders screens and plays cues for one user
type Presenter interface {
	RenderGenreList(catalog *models.Catalog, cleared models.ClearedGenres, allCleared bool)
	// token identifies the attempt; answers must echo it back
	RenderQuestion(genre models.Genre, question models.Question, index, total int, token string)
	RenderAnswerFeedback(outcome AnswerOutcome)
	RenderExplanation(outcome AnswerOutcome)
	RenderResult(result Result)
	RenderSettings(settings models.Settings)
	RenderCongratulations()
	PlayFeedbackTone(kind ToneKind)
	ShowMessage(text string)
	ShowBlockingError(text string)
}

// Timer is the handle of a scheduled callback
type Timer interface {
	Stop() bool
}

// Options tunes a Game
type Options struct {
	ExplanationDelay time.Duration
	Shuffle          bool
	// AfterFunc schedules delayed work, time.AfterFunc when nil
	AfterFunc func(d time.Duration, f func()) Timer
	// Label identifies the game in log lines
	Label string
}

// Snapshot is a read-only view of a game's state
type Snapshot struct {
	Screen    Screen
	State     State
	GenreID   string
	Cursor    int
	Score     int
	Total     int
	Settings  models.Settings
	Cleared   models.ClearedGenres
	SessionID string
	Token     string
}

// Game is the application state of one user: screens, session and persisted flags
type Game struct {
	mu sync.Mutex

	catalog *models.Catalog
	store   Store
	view    Presenter
	opts    Options

	screens   *Screens
	session   Session
	sessionID string
	token     string
	settings  models.Settings
	cleared   models.ClearedGenres

	pending    Timer
	generation int
}

// NewGame builds the application state for a user and loads their flags from the store.
// The game starts on the loading screen; call Home to show the title.
func NewGame(catalog *models.Catalog, store Store, view Presenter, opts Options) *Game {
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	g := &Game{
		catalog:  catalog,
		store:    store,
		view:     view,
		opts:     opts,
		settings: store.Settings(),
		cleared:  store.ClearedGenres(),
	}
	if g.cleared == nil {
		g.cleared = models.ClearedGenres{}
	}
	g.screens = NewScreens(g.renderTitle)
	return g
}

// Home abandons any session and shows the title screen
func (g *Game) Home() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.home()
}

// Quit is Home triggered by a button, so it plays the click cue
func (g *Game) Quit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tone(ToneClick)
	g.home()
}

func (g *Game) home() {
	g.cancelPending()
	if g.session.State() != StateIdle {
		log.Printf("[%s] session %s closed at %d/%d", g.opts.Label, g.sessionID, g.session.Cursor(), g.session.Total())
	}
	g.session.Reset()
	g.sessionID, g.token = "", ""
	g.screens.Show(ScreenTitle)
}

// StartGenre begins a quiz on the genre
func (g *Game) StartGenre(genreID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tone(ToneClick)
	if err := g.session.Start(g.catalog, genreID, g.opts.Shuffle); err != nil {
		var notFound *GenreNotFoundError
		if errors.As(err, &notFound) {
			g.view.ShowMessage("The selected genre has no questions.")
		}
		return err
	}
	g.cancelPending()
	g.sessionID = uuid.NewString()
	g.token = newToken()
	log.Printf("[%s] session %s started genre %q with %d questions", g.opts.Label, g.sessionID, genreID, g.session.Total())

	g.screens.Show(ScreenQuiz)
	g.renderQuestion()
	return nil
}

// Answer submits a choice for the question at position of the attempt identified by token.
// Answers from an earlier attempt or question return ErrStaleAnswer.
func (g *Game) Answer(token string, position, selected int) (AnswerOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.answer(token, position, selected)
}

func (g *Game) answer(token string, position, selected int) (AnswerOutcome, error) {
	if g.token == "" || token != g.token {
		return AnswerOutcome{}, ErrStaleAnswer
	}
	if g.session.State() == StatePlaying && position != g.session.Cursor() {
		return AnswerOutcome{}, ErrStaleAnswer
	}
	outcome, err := g.session.Answer(selected)
	if err != nil {
		return AnswerOutcome{}, err
	}

	if outcome.IsCorrect {
		g.tone(ToneCorrect)
	} else {
		g.tone(ToneIncorrect)
	}
	g.view.RenderAnswerFeedback(outcome)
	g.scheduleExplanation()
	return outcome, nil
}

func (g *Game) scheduleExplanation() {
	g.cancelPending()
	if g.opts.ExplanationDelay <= 0 {
		g.showExplanation()
		return
	}
	generation := g.generation
	g.pending = g.opts.AfterFunc(g.opts.ExplanationDelay, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		defer g.recoverTimer()
		if g.generation != generation {
			return
		}
		g.pending = nil
		g.showExplanation()
	})
}

func (g *Game) showExplanation() {
	outcome, ok := g.session.LastAnswer()
	if !ok || g.session.State() != StateAnswered {
		return
	}
	g.screens.Show(ScreenExplanation)
	g.view.RenderExplanation(outcome)
}

// recoverTimer keeps a panic on the timer goroutine from taking the process down.
// The session is abandoned and the user is asked to reload.
func (g *Game) recoverTimer() {
	r := recover()
	if r == nil {
		return
	}
	log.Printf("[%s] Recovered from panic in explanation timer: %v\n%s", g.opts.Label, r, debug.Stack())
	g.session.Reset()
	g.sessionID, g.token = "", ""
	g.view.ShowBlockingError(UnexpectedErrorText)
}

// cancelPending drops a scheduled explanation transition. The generation bump covers
// callbacks that already fired and are waiting for the lock.
func (g *Game) cancelPending() {
	g.generation++
	if g.pending != nil {
		g.pending.Stop()
		g.pending = nil
	}
}

// Next advances past the answered question and reports whether the quiz finished
func (g *Game) Next() (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next()
}

func (g *Game) next() (bool, error) {
	if g.session.State() != StateAnswered {
		return false, transitionError("next", g.session.State())
	}
	g.tone(ToneClick)
	g.cancelPending()

	done, err := g.session.Advance()
	if err != nil {
		return false, err
	}
	if !done {
		g.screens.Show(ScreenQuiz)
		g.renderQuestion()
		return false, nil
	}
	g.finish()
	return true, nil
}

func (g *Game) finish() {
	res, err := g.session.Result()
	if err != nil {
		log.Printf("[%s] result unavailable: %v", g.opts.Label, err)
		return
	}
	log.Printf("[%s] session %s finished genre %q: %d/%d (%d%%)",
		g.opts.Label, g.sessionID, res.GenreID, res.Score, res.Total, res.Percentage)

	g.syncCleared()
	if res.Cleared() && !g.cleared[res.GenreID] {
		g.cleared[res.GenreID] = true
		if err := g.store.PutClearedGenres(g.cleared.Clone()); err != nil {
			log.Printf("[%s] Error saving cleared genres: %v", g.opts.Label, err)
		}
		res.NewlyCleared = true
		g.tone(ToneCorrect)
	}

	g.view.RenderResult(res)
	g.screens.Show(ScreenResult)
}

// Retry replays the current playlist from the start
func (g *Game) Retry() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tone(ToneClick)
	if err := g.session.Retry(); err != nil {
		return err
	}
	g.cancelPending()
	g.token = newToken()
	log.Printf("[%s] session %s retried", g.opts.Label, g.sessionID)
	g.screens.Show(ScreenQuiz)
	g.renderQuestion()
	return nil
}

// ShortcutKey maps keyboard-style input onto the current screen.
// Digits 1-4 answer on the quiz screen; Enter, space or "next" advance on the explanation screen.
func (g *Game) ShortcutKey(key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.screens.Current() {
	case ScreenQuiz:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '4' {
			_, err := g.answer(g.token, g.session.Cursor(), int(key[0]-'1'))
			return err == nil, err
		}
	case ScreenExplanation:
		switch strings.ToLower(key) {
		case "enter", " ", "next":
			_, err := g.next()
			return err == nil, err
		}
	}
	return false, nil
}

// ShowSettings renders the audio switches
func (g *Game) ShowSettings() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.view.RenderSettings(g.settings)
}

// ToggleBackgroundAudio flips the background-audio switch and persists it
func (g *Game) ToggleBackgroundAudio() models.Settings {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settings.BackgroundAudio = !g.settings.BackgroundAudio
	g.saveSettings()
	return g.settings
}

// ToggleEffectAudio flips the effect-audio switch and persists it
func (g *Game) ToggleEffectAudio() models.Settings {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settings.EffectAudio = !g.settings.EffectAudio
	g.saveSettings()
	return g.settings
}

func (g *Game) saveSettings() {
	if err := g.store.PutSettings(g.settings); err != nil {
		log.Printf("[%s] Error saving settings: %v", g.opts.Label, err)
	}
	g.view.RenderSettings(g.settings)
}

// ResetProgress forgets every cleared genre
func (g *Game) ResetProgress() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cleared = models.ClearedGenres{}
	if err := g.store.ResetClearedGenres(); err != nil {
		log.Printf("[%s] Error resetting cleared genres: %v", g.opts.Label, err)
	}
	if g.screens.Current() == ScreenTitle {
		g.renderTitle()
	}
}

// Congratulate shows the all-genres-cleared message. It does nothing until every genre is cleared.
func (g *Game) Congratulate() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.syncCleared()
	if !g.cleared.AllCleared(g.catalog) {
		return false
	}
	g.tone(ToneCorrect)
	g.view.RenderCongratulations()
	return true
}

// ForceClear marks a genre cleared without playing it. Development diagnostics only.
func (g *Game) ForceClear(genreID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.syncCleared()
	g.cleared[genreID] = true
	if err := g.store.PutClearedGenres(g.cleared.Clone()); err != nil {
		log.Printf("[%s] Error saving cleared genres: %v", g.opts.Label, err)
	}
	if g.screens.Current() == ScreenTitle {
		g.renderTitle()
	}
}

// DebugDump describes the game state in plain text. Development diagnostics only.
func (g *Game) DebugDump() string {
	s := g.Snapshot()
	ids := make([]string, 0, len(s.Cleared))
	for id := range s.Cleared {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	fmt.Fprintf(&b, "screen=%s state=%s genre=%q\n", s.Screen, s.State, s.GenreID)
	fmt.Fprintf(&b, "cursor=%d score=%d total=%d session=%s\n", s.Cursor, s.Score, s.Total, s.SessionID)
	fmt.Fprintf(&b, "bgm=%t sound=%t\n", s.Settings.BackgroundAudio, s.Settings.EffectAudio)
	fmt.Fprintf(&b, "cleared=%s\n", strings.Join(ids, ","))
	fmt.Fprintf(&b, "genres=%d", len(g.catalog.Genres))
	return b.String()
}

// Snapshot returns a copy of the current state
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Snapshot{
		Screen:    g.screens.Current(),
		State:     g.session.State(),
		GenreID:   g.session.GenreID(),
		Cursor:    g.session.Cursor(),
		Score:     g.session.Score(),
		Total:     g.session.Total(),
		Settings:  g.settings,
		Cleared:   g.cleared.Clone(),
		SessionID: g.sessionID,
		Token:     g.token,
	}
}

// CurrentQuestion returns the active genre and question, if any
func (g *Game) CurrentQuestion() (models.Genre, models.Question, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	q, ok := g.session.Current()
	if !ok {
		return models.Genre{}, models.Question{}, false
	}
	genre, ok := g.catalog.Genre(g.session.GenreID())
	if !ok {
		return models.Genre{}, models.Question{}, false
	}
	return *genre, q, true
}

// Close cancels any scheduled work
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelPending()
}

func (g *Game) tone(kind ToneKind) {
	if g.settings.EffectAudio {
		g.view.PlayFeedbackTone(kind)
	}
}

// syncCleared folds in genres the user cleared from another game sharing the store.
// Cleared genres are never unset here, so a write never drops another game's clear.
func (g *Game) syncCleared() {
	for id, ok := range g.store.ClearedGenres() {
		if ok {
			g.cleared[id] = true
		}
	}
}

func newToken() string {
	return uuid.NewString()[:8]
}

func (g *Game) renderTitle() {
	g.syncCleared()
	g.view.RenderGenreList(g.catalog, g.cleared.Clone(), g.cleared.AllCleared(g.catalog))
}

func (g *Game) renderQuestion() {
	q, ok := g.session.Current()
	if !ok {
		return
	}
	genre, _ := g.catalog.Genre(g.session.GenreID())
	var gcopy models.Genre
	if genre != nil {
		gcopy = *genre
	}
	g.view.RenderQuestion(gcopy, q, g.session.Cursor(), g.session.Total(), g.token)
}
