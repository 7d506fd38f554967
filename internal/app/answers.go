package app

import (
	"encoding/json"

	"quiz-session-service/internal/domain"
)

// answerSet keeps at most one record per question id, in first-insertion order.
type answerSet struct {
	records []domain.AnswerRecord
	index   map[int]int
}

func newAnswerSet() *answerSet {
	return &answerSet{index: make(map[int]int)}
}

func (a *answerSet) upsert(rec domain.AnswerRecord) {
	if pos, ok := a.index[rec.QuestionID]; ok {
		a.records[pos] = rec
		return
	}
	a.index[rec.QuestionID] = len(a.records)
	a.records = append(a.records, rec)
}

func (a *answerSet) get(questionID int) (domain.AnswerRecord, bool) {
	pos, ok := a.index[questionID]
	if !ok {
		return domain.AnswerRecord{}, false
	}
	return a.records[pos], true
}

func (a *answerSet) has(questionID int) bool {
	_, ok := a.index[questionID]
	return ok
}

func (a *answerSet) snapshot() []domain.AnswerRecord {
	out := make([]domain.AnswerRecord, len(a.records))
	copy(out, a.records)
	return out
}

// marshal serializes the set as a JSON array, the responseData wire format.
func (a *answerSet) marshal() (string, error) {
	records := a.records
	if records == nil {
		records = []domain.AnswerRecord{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
