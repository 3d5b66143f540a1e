package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"quiz-grading-service/internal/domain"
)

// ResponseRepository abstracts how submission records are stored (in-memory, Redis, Postgres).
type ResponseRepository interface {
	// Insert persists a new record and assigns its ID. It returns
	// domain.ErrDuplicateSubmission when the email or IP already has a record.
	Insert(ctx context.Context, record *domain.SubmissionRecord) error
	FindByEmail(ctx context.Context, correo string) (domain.SubmissionRecord, error)
	// List returns every record ordered ascending by ID.
	List(ctx context.Context) ([]domain.SubmissionRecord, error)
	// Update persists the answer map, score and corrected flag of an existing record.
	Update(ctx context.Context, record domain.SubmissionRecord) error
	// Reset wipes every record, compacts storage and re-provisions the schema.
	Reset(ctx context.Context) error
}

// QuestionSource loads the question bank (from a JSON asset or backing store).
type QuestionSource interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

const (
	typeManual    = "Manual"
	typeAutomatic = "Automático"

	msgCorrect      = "Correcta"
	msgNotEvaluated = "No evaluada (falta justificación o respuesta)"
	valueNoAnswer   = "No respondida"

	noResponsesMessage = "No hay respuestas disponibles."
)

// SubmissionInput carries one participant's raw submission.
type SubmissionInput struct {
	Nombre         string
	Apellido       string
	Correo         string
	IP             string
	Type           string
	Answers        map[string]string
	Justifications map[string]string
}

// ResultsView is what a participant may see about their own submission.
type ResultsView struct {
	Corrected      bool
	Score          int
	Total          int
	Answers        map[string]domain.AnswerDetail
	Justifications map[string]string
}

// GradingService contains the submission and manual-grading use cases.
type GradingService struct {
	responses     ResponseRepository
	questions     QuestionSource
	adminPassword string
	now           func() time.Time
}

func NewGradingService(responses ResponseRepository, questions QuestionSource, adminPassword string) *GradingService {
	return NewGradingServiceWithClock(responses, questions, adminPassword, time.Now)
}

// NewGradingServiceWithClock is test-only for deterministic timestamps.
func NewGradingServiceWithClock(responses ResponseRepository, questions QuestionSource, adminPassword string, now func() time.Time) *GradingService {
	return &GradingService{
		responses:     responses,
		questions:     questions,
		adminPassword: adminPassword,
		now:           now,
	}
}

// Questions returns the current question bank.
func (s *GradingService) Questions(ctx context.Context) ([]domain.Question, error) {
	return s.questions.LoadQuestions(ctx)
}

// Submit grades and persists a submission. The duplicate check (email OR IP)
// happens inside the repository insert so no partial write can occur.
func (s *GradingService) Submit(ctx context.Context, in SubmissionInput) error {
	if in.Nombre == "" || in.Apellido == "" || in.Correo == "" {
		return domain.ErrMissingFields
	}

	questions, err := s.questions.LoadQuestions(ctx)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	record := gradeSubmission(questions, in, s.now())
	return s.responses.Insert(ctx, &record)
}

// gradeSubmission scores answers against the question bank. A question counts
// correct only when the submitted value matches the answer key AND a non-empty
// justification was given. Answer and justification keys outside the loaded
// question set are dropped.
func gradeSubmission(questions []domain.Question, in SubmissionInput, now time.Time) domain.SubmissionRecord {
	score := 0
	answers := make(map[string]domain.AnswerDetail, len(questions))
	justifications := make(map[string]string, len(questions))

	for _, q := range questions {
		value := in.Answers[q.ID]
		justification := in.Justifications[q.ID]
		if justification != "" {
			justifications[q.ID] = justification
		}

		correct := value != "" && justification != "" && value == q.CorrectAnswer
		if correct {
			score++
		}

		detail := domain.AnswerDetail{Value: value, Correct: correct}
		if detail.Value == "" {
			detail.Value = valueNoAnswer
		}
		switch {
		case value == "" || justification == "":
			detail.Message = msgNotEvaluated
		case correct:
			detail.Message = msgCorrect
		default:
			detail.Message = "Incorrecta, la respuesta correcta es " + q.CorrectOptionText()
		}
		answers[q.ID] = detail
	}

	submissionType := typeAutomatic
	if in.Type == "manual" {
		submissionType = typeManual
	}

	return domain.SubmissionRecord{
		Nombre:         in.Nombre,
		Apellido:       in.Apellido,
		Correo:         in.Correo,
		IP:             in.IP,
		Type:           submissionType,
		Fecha:          now.Format("2/1/2006, 15:04:05"),
		Score:          score,
		Total:          len(questions),
		Answers:        answers,
		Justifications: justifications,
		Corrected:      false,
	}
}

// CheckResults looks up a participant's record by email.
func (s *GradingService) CheckResults(ctx context.Context, correo string) (ResultsView, error) {
	record, err := s.responses.FindByEmail(ctx, correo)
	if err != nil {
		return ResultsView{}, err
	}
	return ResultsView{
		Corrected:      record.Corrected,
		Score:          record.Score,
		Total:          record.Total,
		Answers:        record.Answers,
		Justifications: record.Justifications,
	}, nil
}

// ListResponses renders every record as a human-readable block for the admin.
// Records are ordered ascending by ID; an empty store yields a sentinel
// message rather than an empty string.
func (s *GradingService) ListResponses(ctx context.Context, password string) (string, error) {
	if err := s.checkPassword(password); err != nil {
		return "", err
	}

	records, err := s.responses.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list responses: %w", err)
	}
	if len(records) == 0 {
		return noResponsesMessage, nil
	}

	var b strings.Builder
	for _, record := range records {
		formatRecord(&b, record)
	}
	return b.String(), nil
}

func formatRecord(b *strings.Builder, r domain.SubmissionRecord) {
	b.WriteString("\n----------------------------------------\n")
	fmt.Fprintf(b, "Envío: %s\n", r.Type)
	fmt.Fprintf(b, "Fecha: %s\n", r.Fecha)
	fmt.Fprintf(b, "Nombre: %s\n", r.Nombre)
	fmt.Fprintf(b, "Apellido: %s\n", r.Apellido)
	fmt.Fprintf(b, "Correo: %s\n", r.Correo)
	fmt.Fprintf(b, "IP: %s\n", r.IP)
	fmt.Fprintf(b, "Puntuación: %d/%d\n", r.Score, r.Total)

	for _, qid := range sortedQuestionIDs(r.Answers) {
		detail := r.Answers[qid]
		n := strings.TrimPrefix(qid, "q")
		fmt.Fprintf(b, "\nPregunta %s: %s (%s)\n", n, detail.Value, detail.Message)
		justification := r.Justifications[qid]
		if justification == "" {
			justification = "No proporcionada"
		}
		fmt.Fprintf(b, "Justificación %s: %s\n", n, justification)
		comment := detail.Comment
		if comment == "" {
			comment = "Sin comentario"
		}
		fmt.Fprintf(b, "Comentario %s: %s\n", n, comment)
	}

	corrected := "No"
	if r.Corrected {
		corrected = "Sí"
	}
	fmt.Fprintf(b, "\nCorregido: %s\n----------------------------------------\n", corrected)
}

// sortedQuestionIDs orders ids numerically when they follow the qN convention,
// falling back to lexical order otherwise.
func sortedQuestionIDs(answers map[string]domain.AnswerDetail) []string {
	ids := make([]string, 0, len(answers))
	for qid := range answers {
		ids = append(ids, qid)
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, erri := strconv.Atoi(strings.TrimPrefix(ids[i], "q"))
		nj, errj := strconv.Atoi(strings.TrimPrefix(ids[j], "q"))
		if erri == nil && errj == nil {
			return ni < nj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// UpdateFeedback applies a manual per-question override. The aggregate score
// delta is the override's net effect against the question's effective credit
// (the stored override when one exists, the auto-grade flag otherwise), so
// re-applying the same override never double-counts.
func (s *GradingService) UpdateFeedback(ctx context.Context, password, correo, questionID string, mark domain.OverrideMark, comment string) error {
	if err := s.checkPassword(password); err != nil {
		return err
	}

	record, err := s.responses.FindByEmail(ctx, correo)
	if err != nil {
		return err
	}

	detail, ok := record.Answers[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}

	wasCorrect := detail.Correct
	if detail.Score != nil {
		wasCorrect = *detail.Score == int(domain.MarkCorrect)
	}
	if wasCorrect && mark == domain.MarkIncorrect {
		record.Score--
	}
	if !wasCorrect && mark == domain.MarkCorrect {
		record.Score++
	}

	override := int(mark)
	detail.Score = &override
	detail.Comment = comment
	record.Answers[questionID] = detail
	record.Corrected = true

	return s.responses.Update(ctx, record)
}

// Reset destroys every stored record.
func (s *GradingService) Reset(ctx context.Context, password string) error {
	if err := s.checkPassword(password); err != nil {
		return err
	}
	return s.responses.Reset(ctx)
}

func (s *GradingService) checkPassword(password string) error {
	if password != s.adminPassword {
		return domain.ErrBadPassword
	}
	return nil
}
