package quiz

// Screen names a logical view of the quiz
type Screen string

const (
	ScreenTitle       Screen = "title"
	ScreenQuiz        Screen = "quiz"
	ScreenResult      Screen = "result"
	ScreenExplanation Screen = "explanation"
	ScreenLoading     Screen = "loading"
)

var knownScreens = map[Screen]bool{
	ScreenTitle:       true,
	ScreenQuiz:        true,
	ScreenResult:      true,
	ScreenExplanation: true,
	ScreenLoading:     true,
}

// Screens keeps track of the single active screen
type Screens struct {
	current Screen
	onTitle func()
}

// NewScreens starts on the loading screen. onTitle runs every time the title screen is shown.
func NewScreens(onTitle func()) *Screens {
	return &Screens{current: ScreenLoading, onTitle: onTitle}
}

// Current returns the active screen
func (s *Screens) Current() Screen {
	return s.current
}

// Show activates the named screen. Unknown names are ignored and report false.
func (s *Screens) Show(name Screen) bool {
	if !knownScreens[name] {
		return false
	}
	s.current = name
	if name == ScreenTitle && s.onTitle != nil {
		s.onTitle()
	}
	return true
}
