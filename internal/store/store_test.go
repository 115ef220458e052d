package store

import (
	"testing"

	"github.com/schoolgenius/schoolgenius/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testQuestion(id, text string) model.Question {
	return model.Question{
		ID:            id,
		Text:          text,
		Options:       []string{"A", "B", "C", "D"},
		CorrectAnswer: 2,
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	s := newTestStore(t)

	// Absent key.
	_, ok, err := s.Get("missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected missing key to report absent")
	}

	// Set and read back.
	if err := s.Set("doc", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, ok, err := s.Get("doc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || string(data) != `{"a":1}` {
		t.Errorf("expected stored document, got ok=%v data=%s", ok, data)
	}

	// Overwrite is wholesale.
	if err := s.Set("doc", []byte(`{"b":2}`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	data, _, _ = s.Get("doc")
	if string(data) != `{"b":2}` {
		t.Errorf("expected overwritten document, got %s", data)
	}

	// Remove, including removing twice.
	if err := s.Remove("doc"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	_, ok, _ = s.Get("doc")
	if ok {
		t.Error("expected removed key to be absent")
	}
	if err := s.Remove("doc"); err != nil {
		t.Errorf("Remove absent key: %v", err)
	}
}

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)

	settings, err := s.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.Grade != "5" {
		t.Errorf("expected default grade 5, got %q", settings.Grade)
	}
	if settings.Subject != model.SubjectMathematics {
		t.Errorf("expected default subject Mathematics, got %q", settings.Subject)
	}
	if settings.DurationMinutes != 20 {
		t.Errorf("expected default duration 20, got %d", settings.DurationMinutes)
	}
	if len(settings.Questions) != 0 {
		t.Errorf("expected no default questions, got %d", len(settings.Questions))
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	saved := model.TestSettings{
		Grade:           "8",
		Subject:         model.SubjectScience,
		DurationMinutes: 45,
		Questions: []model.Question{
			testQuestion("q1", "What is water made of?"),
			testQuestion("q2", "Which planet is largest?"),
		},
	}
	if err := s.SaveSettings(saved); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	got, err := s.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if got.Grade != "8" || got.Subject != model.SubjectScience || got.DurationMinutes != 45 {
		t.Errorf("unexpected settings after reload: %+v", got)
	}
	if len(got.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got.Questions))
	}
	if got.Questions[0].ID != "q1" || got.Questions[1].Text != "Which planet is largest?" {
		t.Errorf("questions did not round-trip: %+v", got.Questions)
	}
	if len(got.Questions[0].Options) != 4 || got.Questions[0].CorrectAnswer != 2 {
		t.Errorf("question fields did not round-trip: %+v", got.Questions[0])
	}

	// A second save replaces all prior questions.
	saved.Questions = []model.Question{testQuestion("q3", "New bank")}
	if err := s.SaveSettings(saved); err != nil {
		t.Fatalf("SaveSettings overwrite: %v", err)
	}
	got, _ = s.Settings()
	if len(got.Questions) != 1 || got.Questions[0].ID != "q3" {
		t.Errorf("expected overwrite to replace questions, got %+v", got.Questions)
	}
}

func TestSettingsLegacySubjectMigration(t *testing.T) {
	s := newTestStore(t)

	// A settings document written before the subject field existed.
	legacy := `{"grade":"7","durationMinutes":30,"questions":[]}`
	if err := s.Set(KeySettings, []byte(legacy)); err != nil {
		t.Fatalf("Set legacy settings: %v", err)
	}

	settings, err := s.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.Subject != model.SubjectMathematics {
		t.Errorf("expected legacy subject migrated to Mathematics, got %q", settings.Subject)
	}
	if settings.Grade != "7" || settings.DurationMinutes != 30 {
		t.Errorf("migration must not touch other fields: %+v", settings)
	}
}

func TestResultsHistory(t *testing.T) {
	s := newTestStore(t)

	// Empty history when nothing recorded.
	results, err := s.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty history, got %d", len(results))
	}

	first := model.StudentResult{
		ID: "r1", StudentName: "Alice", Score: 3, TotalQuestions: 5,
		Date:    "2026-08-28T10:00:00Z",
		Answers: []int{0, 1, 2, -1, 3},
		Subject: "Mathematics",
	}
	second := model.StudentResult{
		ID: "r2", StudentName: "Bob", Score: 5, TotalQuestions: 5,
		Date:    "2026-08-28T11:00:00Z",
		Answers: []int{2, 2, 2, 2, 2},
	}
	if err := s.AppendResult(first); err != nil {
		t.Fatalf("AppendResult: %v", err)
	}
	if err := s.AppendResult(second); err != nil {
		t.Fatalf("AppendResult: %v", err)
	}

	results, err = s.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// Newest first.
	if results[0].ID != "r2" || results[1].ID != "r1" {
		t.Errorf("expected newest-first order, got %s then %s", results[0].ID, results[1].ID)
	}
	if results[1].StudentName != "Alice" || results[1].Score != 3 {
		t.Errorf("older entry mutated by append: %+v", results[1])
	}
	if results[1].Answers[3] != model.Unanswered {
		t.Errorf("expected sentinel preserved, got %d", results[1].Answers[3])
	}
}

func TestResultsLegacyWithoutSnapshot(t *testing.T) {
	s := newTestStore(t)

	// Older records carry neither the question snapshot nor the subject.
	legacy := `[{"id":"old","studentName":"Eve","score":2,"totalQuestions":4,"date":"2025-01-01T00:00:00Z","answers":[0,1,-1,2]}]`
	if err := s.Set(KeyResults, []byte(legacy)); err != nil {
		t.Fatalf("Set legacy results: %v", err)
	}

	results, err := s.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Questions != nil {
		t.Error("expected nil question snapshot on legacy record")
	}
	if results[0].Subject != "" {
		t.Errorf("expected empty subject on legacy record, got %q", results[0].Subject)
	}
}

func TestClearResults(t *testing.T) {
	s := newTestStore(t)

	if err := s.AppendResult(model.StudentResult{ID: "r1", StudentName: "A"}); err != nil {
		t.Fatalf("AppendResult: %v", err)
	}
	if err := s.ClearResults(); err != nil {
		t.Fatalf("ClearResults: %v", err)
	}
	results, err := s.Results()
	if err != nil {
		t.Fatalf("Results after clear: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty history after clear, got %d", len(results))
	}
}
