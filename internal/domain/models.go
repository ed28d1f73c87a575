package domain

import (
	"math"
	"time"
)

// Difficulty grades a topic.
type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

// Valid reports whether d is one of the known levels.
func (d Difficulty) Valid() bool {
	switch d {
	case Beginner, Intermediate, Advanced:
		return true
	}
	return false
}

// Role is the account role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID           string   `json:"id" yaml:"id"`
	TopicID      string   `json:"topicId" yaml:"topic_id"`
	Prompt       string   `json:"question" yaml:"question"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correctIndex" yaml:"correct_index"`
	Explanation  string   `json:"explanation" yaml:"explanation"`
}

// Topic is a catalog entry with its embedded quiz.
type Topic struct {
	ID            string     `json:"id" yaml:"id"`
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description" yaml:"description"`
	Content       string     `json:"content" yaml:"content"`
	ImageURL      string     `json:"imageUrl,omitempty" yaml:"image_url"`
	Category      string     `json:"category" yaml:"category"`
	Difficulty    Difficulty `json:"difficulty" yaml:"difficulty"`
	EstimatedTime int        `json:"estimatedTime" yaml:"estimated_time"` // minutes
	Questions     []Question `json:"questions,omitempty" yaml:"questions"`
	CreatedAt     Day        `json:"createdAt" yaml:"created_at"`
}

// User is the profile aggregate. Counters change only through the streak service.
type User struct {
	ID                     string    `json:"id"`
	Email                  string    `json:"email"`
	Username               string    `json:"username"`
	Role                   Role      `json:"role"`
	DailyStreak            int       `json:"dailyStreak"`
	PracticeStreak         int       `json:"practiceStreak"`
	BestDailyStreak        int       `json:"bestDailyStreak"`
	BestPracticeStreak     int       `json:"bestPracticeStreak"`
	TopicsCompleted        int       `json:"topicsCompleted"`
	TotalQuizzes           int       `json:"totalQuizzes"`
	CorrectAnswers         int       `json:"correctAnswers"`
	LastDailyCompletion    *Day      `json:"lastDailyCompletion"`
	LastPracticeCompletion *Day      `json:"lastPracticeCompletion"`
	CreatedAt              time.Time `json:"createdAt"`
}

// TopicSet is a user's completed-topic set.
type TopicSet map[string]struct{}

// NewTopicSet builds a set from ids.
func NewTopicSet(ids ...string) TopicSet {
	set := make(TopicSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s TopicSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id and reports whether it was new.
func (s TopicSet) Add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Clone returns an independent copy; a nil set clones to an empty one.
func (s TopicSet) Clone() TopicSet {
	out := make(TopicSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// ProgressRecord is one accepted quiz submission.
type ProgressRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	TopicID        string    `json:"topicId"`
	Daily          bool      `json:"isDaily"`
	CorrectCount   int       `json:"correctCount"`
	TotalQuestions int       `json:"totalQuestions"`
	Day            Day       `json:"day"`
	CompletedAt    time.Time `json:"completedAt"`
}

// DailyResult is returned by a daily submission.
type DailyResult struct {
	NewStreak       int  `json:"newStreak"`
	StreakIncreased bool `json:"streakIncreased"`
	User            User `json:"user"`
}

// PracticeResult is returned by a practice submission.
type PracticeResult struct {
	NewStreak int  `json:"newStreak"`
	User      User `json:"user"`
}

// Profile is the user aggregate plus derived accuracy.
type Profile struct {
	User
	Accuracy int `json:"accuracy"`
}

// ActivityDay is one cell of the activity calendar.
type ActivityDay struct {
	Day   Day `json:"date"`
	Count int `json:"count"`
	Level int `json:"level"`
}

// Outcome is the final score of a quiz session.
type Outcome struct {
	FinalCorrect   int `json:"finalCorrect"`
	TotalQuestions int `json:"totalQuestions"`
}

// Percentage returns the score rounded to a whole percent.
func (o Outcome) Percentage() int {
	if o.TotalQuestions <= 0 {
		return 0
	}
	return int(math.Round(float64(o.FinalCorrect) / float64(o.TotalQuestions) * 100))
}

// Celebrate reports whether the score reached 60%.
func (o Outcome) Celebrate() bool {
	if o.TotalQuestions <= 0 {
		return false
	}
	// integer form of correct >= 0.6 * total
	return 10*o.FinalCorrect >= 6*o.TotalQuestions
}

// Reveal is what the user sees after submitting an answer.
type Reveal struct {
	Correct      bool   `json:"correct"`
	CorrectIndex int    `json:"correctIndex"`
	Explanation  string `json:"explanation"`
	CorrectSoFar int    `json:"correctSoFar"`
}
