package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-grading-service/internal/domain"
)

// ResponseStore is an in-memory implementation of app.ResponseRepository,
// used for tests and for running without any backing store configured.
type ResponseStore struct {
	mu      sync.Mutex
	nextID  int64
	byEmail map[string]domain.SubmissionRecord
	byIP    map[string]string
}

func NewResponseStore() *ResponseStore {
	return &ResponseStore{
		byEmail: make(map[string]domain.SubmissionRecord),
		byIP:    make(map[string]string),
	}
}

func (s *ResponseStore) Insert(_ context.Context, record *domain.SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[record.Correo]; ok {
		return domain.ErrDuplicateSubmission
	}
	if record.IP != "" {
		if _, ok := s.byIP[record.IP]; ok {
			return domain.ErrDuplicateSubmission
		}
	}

	s.nextID++
	record.ID = s.nextID
	s.byEmail[record.Correo] = cloneRecord(*record)
	if record.IP != "" {
		s.byIP[record.IP] = record.Correo
	}
	return nil
}

func (s *ResponseStore) FindByEmail(_ context.Context, correo string) (domain.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byEmail[correo]
	if !ok {
		return domain.SubmissionRecord{}, domain.ErrRecordNotFound
	}
	return cloneRecord(record), nil
}

func (s *ResponseStore) List(_ context.Context) ([]domain.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]domain.SubmissionRecord, 0, len(s.byEmail))
	for _, record := range s.byEmail {
		records = append(records, cloneRecord(record))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (s *ResponseStore) Update(_ context.Context, record domain.SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byEmail[record.Correo]
	if !ok {
		return domain.ErrRecordNotFound
	}
	stored.Answers = cloneAnswers(record.Answers)
	stored.Score = record.Score
	stored.Corrected = record.Corrected
	s.byEmail[record.Correo] = stored
	return nil
}

func (s *ResponseStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byEmail = make(map[string]domain.SubmissionRecord)
	s.byIP = make(map[string]string)
	s.nextID = 0
	return nil
}

// cloneRecord copies the record and its maps so callers cannot mutate stored state.
func cloneRecord(record domain.SubmissionRecord) domain.SubmissionRecord {
	record.Answers = cloneAnswers(record.Answers)
	justifications := make(map[string]string, len(record.Justifications))
	for qid, text := range record.Justifications {
		justifications[qid] = text
	}
	record.Justifications = justifications
	return record
}

func cloneAnswers(answers map[string]domain.AnswerDetail) map[string]domain.AnswerDetail {
	cloned := make(map[string]domain.AnswerDetail, len(answers))
	for qid, detail := range answers {
		if detail.Score != nil {
			override := *detail.Score
			detail.Score = &override
		}
		cloned[qid] = detail
	}
	return cloned
}
