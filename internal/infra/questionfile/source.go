// Package questionfile reads the question bank from a static JSON asset.
package questionfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/sync/singleflight"

	"quiz-grading-service/internal/domain"
)

// Source loads questions from a JSON file. The file is read and parsed on
// every call; singleflight only collapses concurrent in-flight reads, nothing
// is retained between calls.
type Source struct {
	path string
	sf   singleflight.Group
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

func (s *Source) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	result, err, _ := s.sf.Do(s.path, func() (interface{}, error) {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("read question bank: %w", err)
		}
		var questions []domain.Question
		if err := json.Unmarshal(data, &questions); err != nil {
			return nil, fmt.Errorf("parse question bank: %w", err)
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}
