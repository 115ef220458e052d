package result

import (
	"errors"
	"testing"
	"time"

	"github.com/schoolgenius/schoolgenius/internal/model"
)

type fakeAppender struct {
	appended []model.StudentResult
	err      error
}

func (f *fakeAppender) AppendResult(r model.StudentResult) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, r)
	return nil
}

func fixedRecorder(store Appender) *Recorder {
	r := New(store)
	r.now = func() time.Time { return time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC) }
	r.newID = func() string { return "result-1" }
	return r
}

func questionBank() []model.Question {
	return []model.Question{
		{ID: "q1", Text: "1+1?", Options: []string{"1", "2", "3", "4"}, CorrectAnswer: 1},
		{ID: "q2", Text: "2+2?", Options: []string{"2", "3", "4", "5"}, CorrectAnswer: 2},
		{ID: "q3", Text: "3+3?", Options: []string{"4", "5", "6", "7"}, CorrectAnswer: 2},
		{ID: "q4", Text: "4+4?", Options: []string{"6", "7", "8", "9"}, CorrectAnswer: 2},
		{ID: "q5", Text: "5+5?", Options: []string{"8", "9", "10", "11"}, CorrectAnswer: 2},
	}
}

func TestRecordBuildsSnapshot(t *testing.T) {
	store := &fakeAppender{}
	r := fixedRecorder(store)

	// Alice: 3 correct, 1 unanswered, 1 wrong.
	answers := []int{1, 2, 2, model.Unanswered, 0}
	res, err := r.Record("Alice", questionBank(), answers, model.SubjectMathematics)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if res.ID != "result-1" {
		t.Errorf("expected fixed ID, got %q", res.ID)
	}
	if res.StudentName != "Alice" {
		t.Errorf("expected student Alice, got %q", res.StudentName)
	}
	if res.Score != 3 || res.TotalQuestions != 5 {
		t.Errorf("expected score 3/5, got %d/%d", res.Score, res.TotalQuestions)
	}
	if res.Date != "2026-08-28T09:30:00Z" {
		t.Errorf("expected RFC3339 date, got %q", res.Date)
	}
	if res.Subject != "Mathematics" {
		t.Errorf("expected subject label, got %q", res.Subject)
	}
	if len(res.Answers) != 5 || res.Answers[3] != model.Unanswered {
		t.Errorf("answers not preserved: %v", res.Answers)
	}
	if len(res.Questions) != 5 || res.Questions[0].ID != "q1" {
		t.Errorf("question snapshot missing: %+v", res.Questions)
	}

	if len(store.appended) != 1 {
		t.Fatalf("expected 1 appended result, got %d", len(store.appended))
	}
	if store.appended[0].ID != res.ID {
		t.Error("appended result differs from returned result")
	}
}

func TestRecordSnapshotIsIndependent(t *testing.T) {
	store := &fakeAppender{}
	r := fixedRecorder(store)

	questions := questionBank()
	answers := []int{1, 2, 2, 2, 2}
	res, err := r.Record("Bob", questions, answers, model.SubjectScience)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	// Mutating the inputs afterwards must not change the recorded snapshot.
	questions[0].Text = "mutated"
	questions[0].Options[0] = "mutated"
	answers[0] = 3

	if res.Questions[0].Text != "1+1?" || res.Questions[0].Options[0] != "1" {
		t.Error("question snapshot shares memory with the source")
	}
	if res.Answers[0] != 1 {
		t.Error("answer snapshot shares memory with the source")
	}
}

func TestRecordPersistenceFailure(t *testing.T) {
	store := &fakeAppender{err: errors.New("disk full")}
	r := fixedRecorder(store)

	_, err := r.Record("Carol", questionBank(), []int{1, 2, 2, 2, 2}, model.SubjectEnglish)
	if err == nil {
		t.Fatal("expected persistence failure to surface")
	}
	if len(store.appended) != 0 {
		t.Errorf("expected nothing appended, got %d", len(store.appended))
	}
}

func TestRecordDefaultSeams(t *testing.T) {
	store := &fakeAppender{}
	r := New(store)

	res, err := r.Record("Dave", questionBank(), []int{model.Unanswered, model.Unanswered, model.Unanswered, model.Unanswered, model.Unanswered}, model.SubjectHistory)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if res.ID == "" {
		t.Error("expected generated ID")
	}
	if _, perr := time.Parse(time.RFC3339, res.Date); perr != nil {
		t.Errorf("date %q is not RFC3339: %v", res.Date, perr)
	}
	if res.Score != 0 {
		t.Errorf("all unanswered must score 0, got %d", res.Score)
	}
}
