package client

// LineEditor holds the in-progress prompt line: cursor position,
// text, a history ring, and a slot for an in-flight completion
// (the completion heuristic itself is an external collaborator, §1;
// this just holds whatever candidate it last proposed).
type LineEditor struct {
	text     []rune
	cursor   int
	history  []string
	histPos  int // len(history) means "not browsing history"
	pending  string
	Complete func(text string) (candidate string, ok bool)
}

func NewLineEditor() *LineEditor {
	return &LineEditor{}
}

func (e *LineEditor) Text() string { return string(e.text) }
func (e *LineEditor) Cursor() int  { return e.cursor }

func (e *LineEditor) InsertRune(r rune) {
	e.text = append(e.text[:e.cursor], append([]rune{r}, e.text[e.cursor:]...)...)
	e.cursor++
}

func (e *LineEditor) Backspace() {
	if e.cursor == 0 {
		return
	}
	e.text = append(e.text[:e.cursor-1], e.text[e.cursor:]...)
	e.cursor--
}

func (e *LineEditor) MoveLeft() {
	if e.cursor > 0 {
		e.cursor--
	}
}

func (e *LineEditor) MoveRight() {
	if e.cursor < len(e.text) {
		e.cursor++
	}
}

// HistoryUp/Down browse e.history, saving the in-progress line as
// "pending" so Down can return to it past the most recent entry.
func (e *LineEditor) HistoryUp() {
	if len(e.history) == 0 {
		return
	}
	if e.histPos == len(e.history) {
		e.pending = e.Text()
	}
	if e.histPos > 0 {
		e.histPos--
	}
	e.setText(e.history[e.histPos])
}

func (e *LineEditor) HistoryDown() {
	if e.histPos >= len(e.history) {
		return
	}
	e.histPos++
	if e.histPos == len(e.history) {
		e.setText(e.pending)
		return
	}
	e.setText(e.history[e.histPos])
}

// Clear discards the in-progress line without touching history, the
// editing equivalent of a shell's Ctrl-C.
func (e *LineEditor) Clear() {
	e.text = nil
	e.cursor = 0
}

func (e *LineEditor) setText(s string) {
	e.text = []rune(s)
	e.cursor = len(e.text)
}

// Submit returns the current line, pushes it onto history, and resets
// the editor for the next line.
func (e *LineEditor) Submit() string {
	line := e.Text()
	if line != "" {
		e.history = append(e.history, line)
	}
	e.histPos = len(e.history)
	e.text = nil
	e.cursor = 0
	e.pending = ""
	return line
}

// ApplyCompletion replaces the current text with the Complete hook's
// candidate, if one is registered and proposes one.
func (e *LineEditor) ApplyCompletion() {
	if e.Complete == nil {
		return
	}
	if cand, ok := e.Complete(e.Text()); ok {
		e.setText(cand)
	}
}
