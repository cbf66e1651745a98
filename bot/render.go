package bot

import (
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/korjavin/genrequizbot/models"
	"github.com/korjavin/genrequizbot/quiz"
)

var toneToasts = map[quiz.ToneKind]string{
	quiz.ToneCorrect:   "♪♪♪",
	quiz.ToneIncorrect: "♪↓",
	quiz.ToneClick:     "♪",
}

// chatPresenter renders quiz screens as Telegram messages in one chat
type chatPresenter struct {
	out           sender
	chatID        int64
	explainButton bool

	mu            sync.Mutex
	questionMsgID int
	toast         string
}

func newChatPresenter(out sender, chatID int64, explainButton bool) *chatPresenter {
	return &chatPresenter{out: out, chatID: chatID, explainButton: explainButton}
}

// RenderGenreList shows the title screen
func (p *chatPresenter) RenderGenreList(catalog *models.Catalog, cleared models.ClearedGenres, allCleared bool) {
	var b strings.Builder
	b.WriteString(bold("📜 Choose a genre") + "\n\n")

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range catalog.Genres {
		mark := "▫️"
		if cleared[g.ID] {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s %s\n%s\n", mark, bold(g.Name), escapeMarkdown(fmt.Sprintf("%s · %d questions", g.Description, len(g.Questions))))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark+" "+g.Name, cbGenre+g.ID),
		))
	}
	if allCleared {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏆 All genres cleared!", cbAllClear),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⚙️ Settings", cbSettings),
	))

	p.send(b.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// RenderQuestion shows the quiz screen for one question
func (p *chatPresenter) RenderQuestion(genre models.Genre, question models.Question, index, total int, token string) {
	text := fmt.Sprintf("%s\n%s\n\n%s",
		bold(fmt.Sprintf("❓ Question %d/%d", index+1, total)),
		escapeMarkdown(genre.Name),
		escapeMarkdown(question.Question))

	msg, ok := p.send(text, questionKeyboard(question, token, index, nil))

	p.mu.Lock()
	defer p.mu.Unlock()
	p.questionMsgID = 0
	if ok {
		p.questionMsgID = msg.MessageID
	}
}

// RenderAnswerFeedback marks the right and the selected choice on the question message
func (p *chatPresenter) RenderAnswerFeedback(outcome quiz.AnswerOutcome) {
	p.mu.Lock()
	msgID := p.questionMsgID
	p.mu.Unlock()
	if msgID == 0 {
		return
	}

	markup := questionKeyboard(outcome.Question, "", outcome.Position, &outcome)
	edit := tgbotapi.NewEditMessageReplyMarkup(p.chatID, msgID, markup)
	if _, err := p.out.Send(edit); err != nil {
		log.Printf("Error editing answer keyboard: %v", err)
	}
}

// RenderExplanation shows the explanation screen
func (p *chatPresenter) RenderExplanation(outcome quiz.AnswerOutcome) {
	var b strings.Builder
	if outcome.IsCorrect {
		b.WriteString(bold("⭕ Correct!"))
	} else {
		b.WriteString(bold("❌ Incorrect..."))
		if outcome.Correct >= 0 && outcome.Correct < len(outcome.Question.Choices) {
			b.WriteString("\n" + escapeMarkdown("Correct answer: "+outcome.Question.Choices[outcome.Correct]))
		}
	}
	if outcome.Explanation != "" {
		b.WriteString("\n\n" + escapeMarkdown(outcome.Explanation))
	}

	row := []tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData("➡️ Next", cbNext)}
	if p.explainButton {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("💡 Explain more", cbMore))
	}
	p.send(b.String(), tgbotapi.NewInlineKeyboardMarkup(row))
}

// RenderResult shows the result screen
func (p *chatPresenter) RenderResult(result quiz.Result) {
	text := fmt.Sprintf("%s\n\n%s\n%s",
		bold("🏁 Quiz finished!"),
		escapeMarkdown(fmt.Sprintf("Score: %d/%d (%d%%)", result.Score, result.Total, result.Percentage)),
		escapeMarkdown(result.Message()))
	if result.NewlyCleared {
		text += "\n\n" + bold("🎉 Genre cleared!")
	}

	p.send(text, tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Try again", cbRetry),
			tgbotapi.NewInlineKeyboardButtonData("🏠 Genres", cbHome),
		),
	))
}

// RenderSettings shows the audio switches
func (p *chatPresenter) RenderSettings(settings models.Settings) {
	bgm, sound := "🔇 Music: off", "🔈 Sound effects: off"
	if settings.BackgroundAudio {
		bgm = "🎵 Music: on"
	}
	if settings.EffectAudio {
		sound = "🔊 Sound effects: on"
	}

	p.send(bold("⚙️ Settings"), tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(bgm, cbBGM)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(sound, cbSound)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🏠 Genres", cbHome)),
	))
}

// RenderCongratulations celebrates clearing every genre
func (p *chatPresenter) RenderCongratulations() {
	text := "🏆\n" + bold("Congratulations!") + "\n\n" +
		escapeMarkdown("You have cleared every history route. You are a true history master!")
	p.send(text, tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Close", cbHome)),
	))
}

// PlayFeedbackTone turns the cue into the toast of the pending callback answer.
// A click never replaces a louder cue.
func (p *chatPresenter) PlayFeedbackTone(kind quiz.ToneKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if kind == quiz.ToneClick && p.toast != "" {
		return
	}
	p.toast = toneToasts[kind]
}

// ShowMessage sends a plain informational message
func (p *chatPresenter) ShowMessage(text string) {
	msg := tgbotapi.NewMessage(p.chatID, text)
	if _, err := p.out.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// ShowBlockingError tells the user the quiz has to be reloaded
func (p *chatPresenter) ShowBlockingError(text string) {
	msg := tgbotapi.NewMessage(p.chatID, "⚠️ "+text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔄 Reload", cbHome)),
	)
	if _, err := p.out.Send(msg); err != nil {
		log.Printf("Error sending error message: %v", err)
	}
}

func (p *chatPresenter) renderResetConfirmation() {
	p.send(bold("Reset all progress?")+"\n"+escapeMarkdown("Every cleared genre will be forgotten. This cannot be undone."),
		tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Reset", cbResetConfirm),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", cbHome),
		)))
}

func (p *chatPresenter) renderExtendedExplanation(question models.Question, text string) {
	msg := tgbotapi.NewMessage(p.chatID, fmt.Sprintf("💡 %s\n\n%s", question.Question, text))
	if _, err := p.out.Send(msg); err != nil {
		log.Printf("Error sending explanation: %v", err)
	}
}

func (p *chatPresenter) setToast(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toast = text
}

func (p *chatPresenter) takeToast() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.toast
	p.toast = ""
	return t
}

// send posts a MarkdownV2 message and falls back to plain text when Telegram rejects the markup
func (p *chatPresenter) send(text string, markup tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, bool) {
	msg := tgbotapi.NewMessage(p.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyMarkup = markup

	sent, err := p.out.Send(msg)
	if err == nil {
		return sent, true
	}
	log.Printf("Error sending message: %v", err)

	log.Printf("Markdown rendering failed, falling back to plain text")
	plain := tgbotapi.NewMessage(p.chatID, unescapeMarkdown(text))
	plain.ReplyMarkup = markup
	sent, err = p.out.Send(plain)
	if err != nil {
		log.Printf("Plain text fallback also failed: %v", err)
		return tgbotapi.Message{}, false
	}
	return sent, true
}

// questionKeyboard lists the choices as answer:<token>:<position>:<choice>.
// With an outcome the buttons are marked and disabled.
func questionKeyboard(q models.Question, token string, position int, outcome *quiz.AnswerOutcome) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, choice := range q.Choices {
		label := fmt.Sprintf("%d. %s", i+1, choice)
		data := fmt.Sprintf("%s%s:%d:%d", cbAnswer, token, position, i)
		if outcome != nil {
			data = cbNoop
			switch {
			case i == outcome.Correct:
				label = "✅ " + label
			case i == outcome.Selected:
				label = "❌ " + label
			}
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}
	if outcome == nil {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚪 Quit quiz", cbQuit),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
