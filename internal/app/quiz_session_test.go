package app_test

import (
	"errors"
	"testing"

	"sysdesign-quiz-service/internal/app"
	"sysdesign-quiz-service/internal/domain"
)

func TestQuizSessionFullRun(t *testing.T) {
	var (
		calls   int
		outcome domain.Outcome
	)
	topic := makeTopic("1", "2024-01-01", 5)
	session, err := app.NewQuizSession(topic.Questions, func(o domain.Outcome) {
		calls++
		outcome = o
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	// correct on the first three, wrong on the rest
	for i := 0; i < 5; i++ {
		option := 0
		if i < 3 {
			option = 1
		}
		if err := session.Select(option); err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		reveal, err := session.Submit()
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if reveal.Correct != (i < 3) || reveal.CorrectIndex != 1 {
			t.Fatalf("question %d: unexpected reveal %+v", i, reveal)
		}
		finished, err := session.Next()
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		if finished != (i == 4) {
			t.Fatalf("question %d: finished=%v", i, finished)
		}
	}

	if calls != 1 {
		t.Fatalf("expected completion callback once, got %d", calls)
	}
	if outcome.FinalCorrect != 3 || outcome.TotalQuestions != 5 || !outcome.Celebrate() || outcome.Percentage() != 60 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if _, err := session.Next(); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected finished session, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("callback fired again after finish")
	}
	snap := session.Snapshot()
	if !snap.Finished || snap.Question != nil || snap.CorrectSoFar != 3 {
		t.Fatalf("unexpected final snapshot %+v", snap)
	}
}

func TestQuizSessionTransitionsGuarded(t *testing.T) {
	session, _ := app.NewQuizSession(makeTopic("1", "2024-01-01", 2).Questions, nil)

	if _, err := session.Submit(); !errors.Is(err, domain.ErrNoSelection) {
		t.Fatalf("expected no selection, got %v", err)
	}
	if _, err := session.Next(); !errors.Is(err, domain.ErrNotRevealed) {
		t.Fatalf("expected not revealed, got %v", err)
	}
	if err := session.Select(4); !errors.Is(err, domain.ErrOptionOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if err := session.Select(-1); !errors.Is(err, domain.ErrOptionOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}

	_ = session.Select(0)
	_ = session.Select(2) // changing the selection before submit is allowed
	if snap := session.Snapshot(); snap.Selected == nil || *snap.Selected != 2 {
		t.Fatalf("expected selection 2, got %+v", snap.Selected)
	}
	if _, err := session.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := session.Select(1); !errors.Is(err, domain.ErrNotAnswering) {
		t.Fatalf("expected select rejected after reveal, got %v", err)
	}
	if _, err := session.Submit(); !errors.Is(err, domain.ErrNotAnswering) {
		t.Fatalf("expected second submit rejected, got %v", err)
	}

	if _, err := session.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	snap := session.Snapshot()
	if snap.Index != 1 || snap.Selected != nil || snap.Revealed || snap.CorrectSoFar != 0 {
		t.Fatalf("expected fresh second question, got %+v", snap)
	}
}

func TestQuizSessionDisabled(t *testing.T) {
	session, _ := app.NewQuizSession(makeTopic("1", "2024-01-01", 1).Questions, nil)
	session.SetDisabled(true)

	if err := session.Select(1); !errors.Is(err, domain.ErrSessionDisabled) {
		t.Fatalf("expected disabled, got %v", err)
	}
	if _, err := session.Submit(); !errors.Is(err, domain.ErrNoSelection) {
		t.Fatalf("expected no selection, got %v", err)
	}
	if !session.Snapshot().Disabled {
		t.Fatalf("expected snapshot to report disabled")
	}
}

func TestQuizSessionDisableKeepsPendingSelection(t *testing.T) {
	session, _ := app.NewQuizSession(makeTopic("1", "2024-01-01", 1).Questions, nil)
	if err := session.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	session.SetDisabled(true)

	reveal, err := session.Submit()
	if err != nil {
		t.Fatalf("submit after disable: %v", err)
	}
	if !reveal.Correct {
		t.Fatalf("expected pending selection scored, got %+v", reveal)
	}
}

func TestQuizSessionRequiresQuestions(t *testing.T) {
	if _, err := app.NewQuizSession(nil, nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestQuizSessionSnapshotHidesAnswer(t *testing.T) {
	session, _ := app.NewQuizSession(makeTopic("1", "2024-01-01", 1).Questions, nil)
	snap := session.Snapshot()
	if snap.Question == nil || snap.Question.Prompt != "Question 1" || len(snap.Question.Options) != 4 {
		t.Fatalf("unexpected question view %+v", snap.Question)
	}
	snap.Question.Options[0] = "mutated"
	if session.Snapshot().Question.Options[0] != "a" {
		t.Fatalf("snapshot shares option storage with the session")
	}
}
