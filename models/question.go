package models

// ChoiceCount is the number of answer choices every question carries
const ChoiceCount = 4

// Question represents a single multiple-choice question inside a genre
type Question struct {
	ID          int      `json:"id"`
	Question    string   `json:"question" validate:"required"`
	Choices     []string `json:"choices" validate:"len=4,dive,required"`
	Correct     int      `json:"correct" validate:"min=0,max=3"`
	Explanation string   `json:"explanation"`
}

// IsCorrect reports whether the given choice index is the right answer
func (q Question) IsCorrect(selected int) bool {
	return selected == q.Correct
}

// Genre is a named topical set of questions
type Genre struct {
	ID          string     `json:"id" validate:"required"`
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions" validate:"dive"`
}

// Catalog holds every genre available to the quiz
type Catalog struct {
	Genres []Genre `json:"genres" validate:"required,min=1,dive"`
}

// Genre looks up a genre by id
func (c *Catalog) Genre(id string) (*Genre, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Genres {
		if c.Genres[i].ID == id {
			return &c.Genres[i], true
		}
	}
	return nil, false
}
