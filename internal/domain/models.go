package domain

// Option represents a possible answer for a question.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Question models an MCQ question with exactly one correct answer value.
// Questions are read-only and loaded from the question bank on every request.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []Option `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// CorrectOptionText returns the display text of the correct option, falling
// back to the raw answer value when the option list does not contain it.
func (q Question) CorrectOptionText() string {
	for _, opt := range q.Options {
		if opt.Value == q.CorrectAnswer {
			return opt.Text
		}
	}
	return q.CorrectAnswer
}

// OverrideMark is the two-state manual grading decision.
type OverrideMark int

const (
	// MarkIncorrect revokes credit for a question.
	MarkIncorrect OverrideMark = 0
	// MarkCorrect grants credit for a question.
	MarkCorrect OverrideMark = 1
)

// ValidOverrideMark reports whether raw encodes one of the two marks.
func ValidOverrideMark(raw int) bool {
	return raw == int(MarkIncorrect) || raw == int(MarkCorrect)
}

// AnswerDetail captures the graded outcome of a single question within a
// submission. Score and Comment are set only by the manual override path;
// Correct always keeps the original auto-grade flag.
type AnswerDetail struct {
	Value   string `json:"value"`
	Correct bool   `json:"correct"`
	Message string `json:"message"`
	Score   *int   `json:"score,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// SubmissionRecord is one participant's submission. At most one record may
// exist per email and per IP; both are checked at insert time.
type SubmissionRecord struct {
	ID             int64
	Nombre         string
	Apellido       string
	Correo         string
	IP             string
	Type           string
	Fecha          string
	Score          int
	Total          int
	Answers        map[string]AnswerDetail
	Justifications map[string]string
	Corrected      bool
}
