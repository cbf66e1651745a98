package quiz

import "math"

// Tier is one of the four outcome bands of a finished quiz
type Tier int

const (
	TierEncouragement Tier = iota
	TierMiddling
	TierSuccess
	TierTop
)

var tierMessages = map[Tier]string{
	TierTop:           "🏆 Outstanding! You are a true history expert!",
	TierSuccess:       "😊 Well done!",
	TierMiddling:      "👍 Not bad!",
	TierEncouragement: "📚 A little more study might help...",
}

// Message returns the text shown on the result screen for the tier
func (t Tier) Message() string {
	return tierMessages[t]
}

// Cleared reports whether the tier counts as passing the genre
func (t Tier) Cleared() bool {
	return t >= TierSuccess
}

// Result summarises a completed session
type Result struct {
	GenreID    string
	Score      int
	Total      int
	Percentage int
	Tier       Tier
	// NewlyCleared is set by the game when this result marked the genre cleared for the first time
	NewlyCleared bool
}

// Message returns the tier message
func (r Result) Message() string {
	return r.Tier.Message()
}

// Cleared reports whether the result passes the genre
func (r Result) Cleared() bool {
	return r.Tier.Cleared()
}

// Percentage rounds score/total to a whole percent, halves rounding up
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(100*float64(score)/float64(total) + 0.5))
}

// TierFor picks the tier for a percentage, highest threshold first
func TierFor(percentage int) Tier {
	switch {
	case percentage >= 90:
		return TierTop
	case percentage >= 70:
		return TierSuccess
	case percentage >= 50:
		return TierMiddling
	default:
		return TierEncouragement
	}
}
