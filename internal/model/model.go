package model

// Unanswered is the sentinel stored in an answer slot when the student
// has not selected an option for that question.
const Unanswered = -1

// OptionsPerQuestion is the fixed number of answer options per question.
const OptionsPerQuestion = 4

// Subject represents a school subject from the fixed set offered to teachers.
type Subject string

const (
	SubjectMathematics     Subject = "Mathematics"
	SubjectScience         Subject = "Science"
	SubjectEnglish         Subject = "English"
	SubjectHistory         Subject = "History"
	SubjectGeography       Subject = "Geography"
	SubjectComputerScience Subject = "Computer Science"
)

// Subjects returns all selectable subjects in display order.
func Subjects() []Subject {
	return []Subject{
		SubjectMathematics,
		SubjectScience,
		SubjectEnglish,
		SubjectHistory,
		SubjectGeography,
		SubjectComputerScience,
	}
}

// Valid reports whether s is one of the fixed subjects.
func (s Subject) Valid() bool {
	for _, known := range Subjects() {
		if s == known {
			return true
		}
	}
	return false
}

// Question represents a single multiple-choice question.
// Options always holds exactly four strings and CorrectAnswer indexes into it.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// TestSettings is the single active test configuration. It is persisted as
// one whole document and overwritten wholesale on every save.
type TestSettings struct {
	Grade           string     `json:"grade" validate:"required,grade"`
	Subject         Subject    `json:"subject" validate:"required,subject"`
	DurationMinutes int        `json:"durationMinutes" validate:"gt=0"`
	Questions       []Question `json:"questions"`
}

// DefaultSettings returns the configuration used when nothing has been saved yet.
func DefaultSettings() TestSettings {
	return TestSettings{
		Grade:           "5",
		Subject:         SubjectMathematics,
		DurationMinutes: 20,
		Questions:       []Question{},
	}
}

// StudentResult is one student's recorded test outcome. Results are
// immutable once created and kept newest-first in history.
//
// Questions and Subject are absent on records written before snapshots
// were stored; consumers must treat them as optional.
type StudentResult struct {
	ID             string     `json:"id"`
	StudentName    string     `json:"studentName"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"totalQuestions"`
	Date           string     `json:"date"`
	Answers        []int      `json:"answers"`
	Questions      []Question `json:"questions,omitempty"`
	Subject        string     `json:"subject,omitempty"`
}

// Score counts the answers that exactly match their question's correct
// option. The Unanswered sentinel never matches.
func Score(questions []Question, answers []int) int {
	score := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectAnswer {
			score++
		}
	}
	return score
}

// Percent returns the rounded percentage score for display and export.
func Percent(score, total int) int {
	if total == 0 {
		return 0
	}
	return int(float64(score)/float64(total)*100 + 0.5)
}

// CopyQuestions returns a deep copy of qs, insulating the copy from later
// mutation of the source slice.
func CopyQuestions(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}
