package catalog

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/korjavin/genrequizbot/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that a decoded catalog matches the Genre/Question shape
func Validate(c *models.Catalog) error {
	if c == nil {
		return errors.New("catalog is empty")
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("field %s failed %q check", first.Namespace(), first.Tag())
		}
		return err
	}

	genreIDs := make(map[string]bool, len(c.Genres))
	for _, g := range c.Genres {
		if genreIDs[g.ID] {
			return fmt.Errorf("duplicate genre id %q", g.ID)
		}
		genreIDs[g.ID] = true

		questionIDs := make(map[int]bool, len(g.Questions))
		for _, q := range g.Questions {
			if questionIDs[q.ID] {
				return fmt.Errorf("genre %q: duplicate question id %d", g.ID, q.ID)
			}
			questionIDs[q.ID] = true
			if q.Correct < 0 || q.Correct >= len(q.Choices) {
				return fmt.Errorf("genre %q question %d: correct index %d out of range", g.ID, q.ID, q.Correct)
			}
		}
	}
	return nil
}
