package quiz

import "github.com/korjavin/genrequizbot/models"

// State is the position of a session in its lifecycle
type State int

const (
	StateIdle State = iota
	StatePlaying
	StateAnswered
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateAnswered:
		return "answered"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// AnswerOutcome describes what happened when a question was answered
type AnswerOutcome struct {
	Position    int
	Selected    int
	Correct     int
	IsCorrect   bool
	Explanation string
	Question    models.Question
}

// Session tracks the progress through one genre's questions.
// The zero value is an idle session.
type Session struct {
	genreID  string
	cursor   int
	score    int
	playlist []models.Question
	state    State
	last     *AnswerOutcome
}

// Start begins a quiz on the given genre. An unknown or empty genre leaves the session untouched.
func (s *Session) Start(catalog *models.Catalog, genreID string, shuffle bool) error {
	genre, ok := catalog.Genre(genreID)
	if !ok || len(genre.Questions) == 0 {
		return &GenreNotFoundError{GenreID: genreID}
	}

	var playlist []models.Question
	if shuffle {
		playlist = Shuffle(genre.Questions)
	} else {
		playlist = make([]models.Question, len(genre.Questions))
		copy(playlist, genre.Questions)
	}

	s.genreID = genre.ID
	s.cursor = 0
	s.score = 0
	s.playlist = playlist
	s.last = nil
	s.state = StatePlaying
	return nil
}

// Answer scores the selected choice against the current question
func (s *Session) Answer(selected int) (AnswerOutcome, error) {
	if s.state != StatePlaying {
		return AnswerOutcome{}, transitionError("answer", s.state)
	}
	q := s.playlist[s.cursor]
	if selected < 0 || selected >= models.ChoiceCount || selected >= len(q.Choices) {
		return AnswerOutcome{}, ErrInvalidChoice
	}

	outcome := AnswerOutcome{
		Position:    s.cursor,
		Selected:    selected,
		Correct:     q.Correct,
		IsCorrect:   q.IsCorrect(selected),
		Explanation: q.Explanation,
		Question:    q,
	}
	if outcome.IsCorrect {
		s.score++
	}
	s.last = &outcome
	s.state = StateAnswered
	return outcome, nil
}

// Advance moves past an answered question and reports whether the session is complete
func (s *Session) Advance() (bool, error) {
	if s.state != StateAnswered {
		return false, transitionError("advance", s.state)
	}
	s.cursor++
	s.last = nil
	if s.cursor >= len(s.playlist) {
		s.state = StateComplete
		return true, nil
	}
	s.state = StatePlaying
	return false, nil
}

// Retry replays the same playlist from the first question
func (s *Session) Retry() error {
	if s.state == StateIdle {
		return transitionError("retry", s.state)
	}
	s.cursor = 0
	s.score = 0
	s.last = nil
	s.state = StatePlaying
	return nil
}

// Reset returns the session to idle from any state
func (s *Session) Reset() {
	*s = Session{}
}

// Result computes the outcome of a completed session
func (s *Session) Result() (Result, error) {
	if s.state != StateComplete {
		return Result{}, transitionError("result", s.state)
	}
	total := len(s.playlist)
	pct := Percentage(s.score, total)
	return Result{
		GenreID:    s.genreID,
		Score:      s.score,
		Total:      total,
		Percentage: pct,
		Tier:       TierFor(pct),
	}, nil
}

// State returns the current lifecycle state
func (s *Session) State() State { return s.state }

// GenreID returns the active genre, empty when idle
func (s *Session) GenreID() string { return s.genreID }

// Cursor returns the index of the current question
func (s *Session) Cursor() int { return s.cursor }

// Score returns the number of correct answers so far
func (s *Session) Score() int { return s.score }

// Total returns the playlist length
func (s *Session) Total() int { return len(s.playlist) }

// Playlist returns a copy of the questions being played
func (s *Session) Playlist() []models.Question {
	out := make([]models.Question, len(s.playlist))
	copy(out, s.playlist)
	return out
}

// Current returns the question under the cursor
func (s *Session) Current() (models.Question, bool) {
	if s.cursor < 0 || s.cursor >= len(s.playlist) {
		return models.Question{}, false
	}
	return s.playlist[s.cursor], true
}

// LastAnswer returns the outcome recorded while in the answered state
func (s *Session) LastAnswer() (AnswerOutcome, bool) {
	if s.last == nil {
		return AnswerOutcome{}, false
	}
	return *s.last, true
}
