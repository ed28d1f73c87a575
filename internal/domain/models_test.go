package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeCelebrationThreshold(t *testing.T) {
	tests := []struct {
		correct, total int
		percentage     int
		celebrate      bool
	}{
		{0, 5, 0, false},
		{2, 5, 40, false},
		{3, 5, 60, true},
		{5, 5, 100, true},
		{1, 3, 33, false},
		{2, 3, 67, true},
		{5, 10, 50, false},
		{6, 10, 60, true},
		{4, 7, 57, false},
		{5, 7, 71, true},
		{0, 0, 0, false},
	}
	for _, tt := range tests {
		o := Outcome{FinalCorrect: tt.correct, TotalQuestions: tt.total}
		assert.Equal(t, tt.percentage, o.Percentage(), "percentage %d/%d", tt.correct, tt.total)
		assert.Equal(t, tt.celebrate, o.Celebrate(), "celebrate %d/%d", tt.correct, tt.total)
	}
}

func TestTopicSet(t *testing.T) {
	set := NewTopicSet("1")
	assert.True(t, set.Has("1"))
	assert.False(t, set.Add("1"))
	assert.True(t, set.Add("2"))
	assert.Len(t, set, 2)

	clone := set.Clone()
	clone.Add("3")
	assert.Len(t, set, 2)

	var empty TopicSet
	assert.False(t, empty.Has("1"))
	assert.Len(t, empty.Clone(), 0)
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("%w: correctCount 6 > totalQuestions 5", ErrInvalidInput)
	assert.True(t, IsInvalidInput(wrapped))
	assert.False(t, IsNotFound(wrapped))

	assert.True(t, IsNotFound(fmt.Errorf("load user: %w", ErrUserNotFound)))
	assert.True(t, IsConflict(ErrSessionFinished))
	assert.False(t, IsConflict(errors.New("boom")))
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, Advanced.Valid())
	assert.False(t, Difficulty("Expert").Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("root").Valid())
}
