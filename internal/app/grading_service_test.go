package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"quiz-grading-service/internal/app"
	"quiz-grading-service/internal/domain"
	"quiz-grading-service/internal/infra/memory"
)

const adminPassword = "clave-admin"

func TestSubmitRequiresNameSurnameEmail(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()

	inputs := []app.SubmissionInput{
		{Apellido: "García", Correo: "ana@example.com"},
		{Nombre: "Ana", Correo: "ana@example.com"},
		{Nombre: "Ana", Apellido: "García"},
	}
	for _, in := range inputs {
		if err := service.Submit(ctx, in); !errors.Is(err, domain.ErrMissingFields) {
			t.Fatalf("expected missing fields error for %+v, got %v", in, err)
		}
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no rows written on validation failure, got %d", len(records))
	}
}

func TestSubmitScoresCorrectAnswer(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()

	if err := service.Submit(ctx, sampleInput("ana@example.com", "10.0.0.1")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	record, err := store.FindByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if record.Score != 1 || record.Total != 2 {
		t.Fatalf("expected score 1/2, got %d/%d", record.Score, record.Total)
	}
	if !record.Answers["q1"].Correct || record.Answers["q1"].Message != "Correcta" {
		t.Fatalf("expected q1 correct, got %+v", record.Answers["q1"])
	}
	if record.Corrected {
		t.Fatalf("new submission must not be corrected")
	}
	if record.Fecha != "15/6/2025, 10:30:00" {
		t.Fatalf("unexpected fecha %q", record.Fecha)
	}
}

func TestSubmitWrongAnswerNamesCorrectOption(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()

	in := sampleInput("ana@example.com", "10.0.0.1")
	in.Answers["q1"] = "b"
	if err := service.Submit(ctx, in); err != nil {
		t.Fatalf("submit: %v", err)
	}

	record, _ := store.FindByEmail(ctx, "ana@example.com")
	detail := record.Answers["q1"]
	if detail.Correct {
		t.Fatalf("expected q1 incorrect, got %+v", detail)
	}
	if detail.Message != "Incorrecta, la respuesta correcta es París" {
		t.Fatalf("unexpected message %q", detail.Message)
	}
	if record.Score != 0 {
		t.Fatalf("expected score 0, got %d", record.Score)
	}
}

func TestSubmitWithoutAnswerOrJustificationIsNotEvaluated(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()

	// Answer without justification on q1, nothing at all on q2.
	in := sampleInput("ana@example.com", "10.0.0.1")
	delete(in.Justifications, "q1")
	delete(in.Answers, "q2")
	delete(in.Justifications, "q2")
	if err := service.Submit(ctx, in); err != nil {
		t.Fatalf("submit: %v", err)
	}

	record, _ := store.FindByEmail(ctx, "ana@example.com")
	for _, qid := range []string{"q1", "q2"} {
		detail := record.Answers[qid]
		if detail.Correct {
			t.Fatalf("%s must not count correct, got %+v", qid, detail)
		}
		if detail.Message != "No evaluada (falta justificación o respuesta)" {
			t.Fatalf("%s unexpected message %q", qid, detail.Message)
		}
	}
	if record.Answers["q2"].Value != "No respondida" {
		t.Fatalf("expected placeholder value, got %q", record.Answers["q2"].Value)
	}
	if record.Score != 0 {
		t.Fatalf("expected score 0, got %d", record.Score)
	}
}

func TestSubmitIgnoresUnknownQuestionIDs(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()

	in := sampleInput("ana@example.com", "10.0.0.1")
	in.Answers["q99"] = "a"
	in.Justifications["q99"] = "inventada"
	if err := service.Submit(ctx, in); err != nil {
		t.Fatalf("submit: %v", err)
	}

	record, _ := store.FindByEmail(ctx, "ana@example.com")
	if _, ok := record.Answers["q99"]; ok {
		t.Fatalf("unknown question id must be dropped")
	}
	if _, ok := record.Justifications["q99"]; ok {
		t.Fatalf("unknown justification id must be dropped")
	}
}

func TestSubmitRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	if err := service.Submit(ctx, sampleInput("ana@example.com", "10.0.0.1")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	sameEmail := sampleInput("ana@example.com", "10.0.0.9")
	if err := service.Submit(ctx, sameEmail); !errors.Is(err, domain.ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate for same email, got %v", err)
	}
	sameIP := sampleInput("otra@example.com", "10.0.0.1")
	if err := service.Submit(ctx, sameIP); !errors.Is(err, domain.ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate for same ip, got %v", err)
	}
}

func TestSubmitNormalizesType(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()

	manual := sampleInput("ana@example.com", "10.0.0.1")
	manual.Type = "manual"
	if err := service.Submit(ctx, manual); err != nil {
		t.Fatalf("submit: %v", err)
	}
	auto := sampleInput("luis@example.com", "10.0.0.2")
	auto.Type = "cualquier-otra-cosa"
	if err := service.Submit(ctx, auto); err != nil {
		t.Fatalf("submit: %v", err)
	}

	first, _ := store.FindByEmail(ctx, "ana@example.com")
	second, _ := store.FindByEmail(ctx, "luis@example.com")
	if first.Type != "Manual" || second.Type != "Automático" {
		t.Fatalf("unexpected types %q and %q", first.Type, second.Type)
	}
}

func TestCheckResultsNotFound(t *testing.T) {
	service, _ := newTestService()
	_, err := service.CheckResults(context.Background(), "nadie@example.com")
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCheckResultsReturnsView(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	if err := service.Submit(ctx, sampleInput("ana@example.com", "10.0.0.1")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	view, err := service.CheckResults(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("check results: %v", err)
	}
	if view.Score != 1 || view.Total != 2 || view.Corrected {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Justifications["q1"] != "porque la capital es París" {
		t.Fatalf("expected justification in view, got %+v", view.Justifications)
	}
}

func TestListResponsesRequiresPassword(t *testing.T) {
	service, _ := newTestService()
	if _, err := service.ListResponses(context.Background(), "incorrecta"); !errors.Is(err, domain.ErrBadPassword) {
		t.Fatalf("expected bad password, got %v", err)
	}
}

func TestListResponsesEmptySentinel(t *testing.T) {
	service, _ := newTestService()
	text, err := service.ListResponses(context.Background(), adminPassword)
	if err != nil {
		t.Fatalf("list responses: %v", err)
	}
	if text != "No hay respuestas disponibles." {
		t.Fatalf("expected sentinel message, got %q", text)
	}
}

func TestListResponsesFormatsRecords(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	if err := service.Submit(ctx, sampleInput("ana@example.com", "10.0.0.1")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	text, err := service.ListResponses(ctx, adminPassword)
	if err != nil {
		t.Fatalf("list responses: %v", err)
	}
	for _, want := range []string{
		"Envío: Automático",
		"Nombre: Ana",
		"Apellido: García",
		"Correo: ana@example.com",
		"IP: 10.0.0.1",
		"Puntuación: 1/2",
		"Pregunta 1: a (Correcta)",
		"Justificación 1: porque la capital es París",
		"Comentario 1: Sin comentario",
		"Justificación 2: No proporcionada",
		"Corregido: No",
		"----------------------------------------",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in listing:\n%s", want, text)
		}
	}
	// q2 was left unanswered in the sample input.
	if !strings.Contains(text, "Pregunta 2: No respondida") {
		t.Fatalf("expected placeholder line for q2:\n%s", text)
	}
}

func TestUpdateFeedbackRevokesCredit(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()

	if err := service.Submit(ctx, sampleInput("ana@example.com", "10.0.0.1")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := service.UpdateFeedback(ctx, adminPassword, "ana@example.com", "q1", domain.MarkIncorrect, "justificación floja"); err != nil {
		t.Fatalf("update feedback: %v", err)
	}

	record, _ := store.FindByEmail(ctx, "ana@example.com")
	if record.Score != 0 {
		t.Fatalf("expected aggregate score 0, got %d", record.Score)
	}
	if !record.Corrected {
		t.Fatalf("expected corrected flag set")
	}
	detail := record.Answers["q1"]
	if detail.Score == nil || *detail.Score != 0 || detail.Comment != "justificación floja" {
		t.Fatalf("expected stored override 0 with comment, got %+v", detail)
	}
	if !detail.Correct {
		t.Fatalf("auto-grade flag must stay untouched, got %+v", detail)
	}
}

func TestUpdateFeedbackGrantsCredit(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()

	in := sampleInput("ana@example.com", "10.0.0.1")
	in.Answers["q1"] = "b"
	if err := service.Submit(ctx, in); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := service.UpdateFeedback(ctx, adminPassword, "ana@example.com", "q1", domain.MarkCorrect, "la justificación lo compensa"); err != nil {
		t.Fatalf("update feedback: %v", err)
	}

	record, _ := store.FindByEmail(ctx, "ana@example.com")
	if record.Score != 1 {
		t.Fatalf("expected aggregate score 1, got %d", record.Score)
	}
}

// Repeating an override with the same mark must adjust the aggregate only
// once: the delta is computed against the question's effective credit, which
// after the first call already equals the requested mark.
func TestUpdateFeedbackRepeatedCallIsStableOnAggregate(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()

	if err := service.Submit(ctx, sampleInput("ana@example.com", "10.0.0.1")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := service.UpdateFeedback(ctx, adminPassword, "ana@example.com", "q1", domain.MarkIncorrect, "repetida"); err != nil {
			t.Fatalf("update feedback call %d: %v", i+1, err)
		}
	}

	record, _ := store.FindByEmail(ctx, "ana@example.com")
	if record.Score != 0 {
		t.Fatalf("expected score reduced exactly once, got %d", record.Score)
	}

	// Flipping the mark back restores the point.
	if err := service.UpdateFeedback(ctx, adminPassword, "ana@example.com", "q1", domain.MarkCorrect, "reconsiderada"); err != nil {
		t.Fatalf("update feedback: %v", err)
	}
	record, _ = store.FindByEmail(ctx, "ana@example.com")
	if record.Score != 1 {
		t.Fatalf("expected score restored to 1, got %d", record.Score)
	}
}

func TestUpdateFeedbackErrors(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	if err := service.UpdateFeedback(ctx, "incorrecta", "ana@example.com", "q1", domain.MarkCorrect, ""); !errors.Is(err, domain.ErrBadPassword) {
		t.Fatalf("expected bad password, got %v", err)
	}
	if err := service.UpdateFeedback(ctx, adminPassword, "nadie@example.com", "q1", domain.MarkCorrect, ""); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := service.Submit(ctx, sampleInput("ana@example.com", "10.0.0.1")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := service.UpdateFeedback(ctx, adminPassword, "ana@example.com", "q99", domain.MarkCorrect, ""); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
}

func TestResetThenListReturnsSentinel(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	if err := service.Submit(ctx, sampleInput("ana@example.com", "10.0.0.1")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := service.Reset(ctx, "incorrecta"); !errors.Is(err, domain.ErrBadPassword) {
		t.Fatalf("expected bad password, got %v", err)
	}
	if err := service.Reset(ctx, adminPassword); err != nil {
		t.Fatalf("reset: %v", err)
	}

	text, err := service.ListResponses(ctx, adminPassword)
	if err != nil {
		t.Fatalf("list responses: %v", err)
	}
	if text != "No hay respuestas disponibles." {
		t.Fatalf("expected sentinel after reset, got %q", text)
	}
}

func newTestService() (*app.GradingService, *memory.ResponseStore) {
	store := memory.NewResponseStore()
	source := memory.NewStaticQuestionSource(sampleQuestions())
	clock := func() time.Time { return time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC) }
	return app.NewGradingServiceWithClock(store, source, adminPassword, clock), store
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:     "q1",
			Prompt: "¿Cuál es la capital de Francia?",
			Options: []domain.Option{
				{Value: "a", Text: "París"},
				{Value: "b", Text: "Madrid"},
			},
			CorrectAnswer: "a",
		},
		{
			ID:     "q2",
			Prompt: "¿Cuánto es 2 + 2?",
			Options: []domain.Option{
				{Value: "a", Text: "3"},
				{Value: "b", Text: "4"},
			},
			CorrectAnswer: "b",
		},
	}
}

func sampleInput(correo, ip string) app.SubmissionInput {
	return app.SubmissionInput{
		Nombre:         "Ana",
		Apellido:       "García",
		Correo:         correo,
		IP:             ip,
		Answers:        map[string]string{"q1": "a"},
		Justifications: map[string]string{"q1": "porque la capital es París"},
	}
}
