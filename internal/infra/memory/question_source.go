package memory

import (
	"context"

	"quiz-grading-service/internal/domain"
)

// StaticQuestionSource serves a fixed question slice (useful for tests/demos).
type StaticQuestionSource struct {
	questions []domain.Question
}

func NewStaticQuestionSource(questions []domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{questions: questions}
}

func (s *StaticQuestionSource) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	questions := make([]domain.Question, len(s.questions))
	copy(questions, s.questions)
	return questions, nil
}
