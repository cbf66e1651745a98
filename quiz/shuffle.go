package quiz

import (
	"math/rand"

	"github.com/korjavin/genrequizbot/models"
)

// Shuffle returns a randomly reordered copy of the questions; the input is left untouched
func Shuffle(questions []models.Question) []models.Question {
	shuffled := make([]models.Question, len(questions))
	copy(shuffled, questions)

	for i := len(shuffled) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
