package app

import (
	"fmt"
	"sync"

	"sysdesign-quiz-service/internal/domain"
)

// QuestionView is a question without its answer.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

// SessionSnapshot is the UI-facing view of a quiz session.
type SessionSnapshot struct {
	Index        int           `json:"index"`
	Total        int           `json:"total"`
	Question     *QuestionView `json:"question,omitempty"`
	Selected     *int          `json:"selected"`
	Revealed     bool          `json:"revealed"`
	Finished     bool          `json:"finished"`
	Disabled     bool          `json:"disabled"`
	CorrectSoFar int           `json:"correctSoFar"`
}

// QuizSession walks one attempt through its questions:
// Answering(i) -> Revealed(i) -> Answering(i+1) ... -> Finished.
// Finished is absorbing; a retake needs a new session.
type QuizSession struct {
	mu         sync.Mutex
	questions  []domain.Question
	index      int
	selected   int // -1 when nothing is selected
	revealed   bool
	finished   bool
	disabled   bool
	correct    int
	onComplete func(domain.Outcome)
}

// NewQuizSession starts in Answering(0). onComplete may be nil; when set it fires
// exactly once, after the last question is advanced past.
func NewQuizSession(questions []domain.Question, onComplete func(domain.Outcome)) (*QuizSession, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: quiz has no questions", domain.ErrInvalidInput)
	}
	qs := make([]domain.Question, len(questions))
	copy(qs, questions)
	return &QuizSession{
		questions:  qs,
		selected:   -1,
		onComplete: onComplete,
	}, nil
}

// SetDisabled blocks or unblocks option selection. Submit and Next are not gated:
// a selection made before disabling can still be submitted.
func (s *QuizSession) SetDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = disabled
}

// Select records the chosen option for the current question.
func (s *QuizSession) Select(option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.finished:
		return domain.ErrSessionFinished
	case s.revealed:
		return domain.ErrNotAnswering
	case s.disabled:
		return domain.ErrSessionDisabled
	}
	if option < 0 || option >= len(s.questions[s.index].Options) {
		return fmt.Errorf("%w: %d", domain.ErrOptionOutOfRange, option)
	}
	s.selected = option
	return nil
}

// Submit reveals the answer to the current question and scores the selection.
func (s *QuizSession) Submit() (domain.Reveal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.finished:
		return domain.Reveal{}, domain.ErrSessionFinished
	case s.revealed:
		return domain.Reveal{}, domain.ErrNotAnswering
	case s.selected < 0:
		return domain.Reveal{}, domain.ErrNoSelection
	}

	q := s.questions[s.index]
	correct := s.selected == q.CorrectIndex
	if correct {
		s.correct++
	}
	s.revealed = true
	return domain.Reveal{
		Correct:      correct,
		CorrectIndex: q.CorrectIndex,
		Explanation:  q.Explanation,
		CorrectSoFar: s.correct,
	}, nil
}

// Next advances past a revealed question. It reports true when the session finished.
func (s *QuizSession) Next() (bool, error) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return false, domain.ErrSessionFinished
	}
	if !s.revealed {
		s.mu.Unlock()
		return false, domain.ErrNotRevealed
	}

	if s.index < len(s.questions)-1 {
		s.index++
		s.selected = -1
		s.revealed = false
		s.mu.Unlock()
		return false, nil
	}

	s.finished = true
	outcome := domain.Outcome{FinalCorrect: s.correct, TotalQuestions: len(s.questions)}
	onComplete := s.onComplete
	s.mu.Unlock()

	// outside the lock so the callback may read the session
	if onComplete != nil {
		onComplete(outcome)
	}
	return true, nil
}

// Outcome returns the final score once the session finished.
func (s *QuizSession) Outcome() (domain.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		return domain.Outcome{}, false
	}
	return domain.Outcome{FinalCorrect: s.correct, TotalQuestions: len(s.questions)}, true
}

// Snapshot captures the current state for rendering.
func (s *QuizSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		Index:        s.index,
		Total:        len(s.questions),
		Revealed:     s.revealed,
		Finished:     s.finished,
		Disabled:     s.disabled,
		CorrectSoFar: s.correct,
	}
	if s.selected >= 0 {
		selected := s.selected
		snap.Selected = &selected
	}
	if !s.finished {
		q := s.questions[s.index]
		options := make([]string, len(q.Options))
		copy(options, q.Options)
		snap.Question = &QuestionView{ID: q.ID, Prompt: q.Prompt, Options: options}
	}
	return snap
}
