// Package result turns a finished test session into an immutable
// StudentResult and appends it to the persisted history.
package result

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgenius/schoolgenius/internal/model"
)

// Appender is the slice of the store the recorder writes through.
type Appender interface {
	AppendResult(model.StudentResult) error
}

// Recorder builds result snapshots and persists them.
type Recorder struct {
	store Appender

	// Seams for tests; default to the wall clock and random UUIDs.
	now   func() time.Time
	newID func() string
}

// New creates a Recorder writing through store.
func New(store Appender) *Recorder {
	return &Recorder{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Record computes the score for the given answers, builds the result
// snapshot (including the exact questions presented), and prepends it to
// the persisted history. The only failure source is persistence; failed
// writes are not retried.
func (r *Recorder) Record(studentName string, questions []model.Question, answers []int, subject model.Subject) (model.StudentResult, error) {
	res := model.StudentResult{
		ID:             r.newID(),
		StudentName:    studentName,
		Score:          model.Score(questions, answers),
		TotalQuestions: len(questions),
		Date:           r.now().Format(time.RFC3339),
		Answers:        append([]int(nil), answers...),
		Questions:      model.CopyQuestions(questions),
		Subject:        string(subject),
	}

	if err := r.store.AppendResult(res); err != nil {
		return model.StudentResult{}, fmt.Errorf("record result: %w", err)
	}
	return res, nil
}
