package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysdesign-quiz-service/internal/domain"
)

func TestBuiltinCatalogIsValid(t *testing.T) {
	topics, err := Builtin()
	require.NoError(t, err)
	require.Len(t, topics, 6)
	require.NoError(t, Validate(topics, 5))

	first := topics[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "Load Balancing Fundamentals", first.Title)
	assert.Equal(t, domain.Beginner, first.Difficulty)
	assert.Equal(t, "2024-01-01", first.CreatedAt.String())
	require.Len(t, first.Questions, 5)
	assert.Equal(t, "1", first.Questions[0].TopicID)
	assert.Equal(t, 1, first.Questions[0].CorrectIndex)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	raw := `
topics:
  - id: cdn
    title: CDNs
    difficulty: Beginner
    created_at: "2024-02-01"
    questions:
      - id: cdn-1
        question: What does a CDN cache?
        options: [Static assets, Database rows]
        correct_index: 0
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	topics, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "cdn", topics[0].Questions[0].TopicID)
	assert.NoError(t, Validate(topics, 5))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBrokenTopics(t *testing.T) {
	valid := func() domain.Topic {
		return domain.Topic{
			ID:         "t",
			Difficulty: domain.Beginner,
			Questions: []domain.Question{
				{ID: "q", Options: []string{"a", "b"}, CorrectIndex: 1},
			},
		}
	}

	cases := map[string]func() []domain.Topic{
		"missing id": func() []domain.Topic {
			t := valid()
			t.ID = ""
			return []domain.Topic{t}
		},
		"duplicate id": func() []domain.Topic {
			a, b := valid(), valid()
			b.Questions[0].ID = "q2"
			return []domain.Topic{a, b}
		},
		"unknown difficulty": func() []domain.Topic {
			t := valid()
			t.Difficulty = "Expert"
			return []domain.Topic{t}
		},
		"no questions": func() []domain.Topic {
			t := valid()
			t.Questions = nil
			return []domain.Topic{t}
		},
		"too many questions": func() []domain.Topic {
			t := valid()
			for i := 0; i < 5; i++ {
				t.Questions = append(t.Questions, domain.Question{ID: string(rune('r' + i)), Options: []string{"a", "b"}})
			}
			return []domain.Topic{t}
		},
		"answer out of range": func() []domain.Topic {
			t := valid()
			t.Questions[0].CorrectIndex = 2
			return []domain.Topic{t}
		},
		"single option": func() []domain.Topic {
			t := valid()
			t.Questions[0].Options = []string{"a"}
			t.Questions[0].CorrectIndex = 0
			return []domain.Topic{t}
		},
		"seven options": func() []domain.Topic {
			t := valid()
			t.Questions[0].Options = []string{"a", "b", "c", "d", "e", "f", "g"}
			return []domain.Topic{t}
		},
		"question of another topic": func() []domain.Topic {
			t := valid()
			t.Questions[0].TopicID = "other"
			return []domain.Topic{t}
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, Validate(build(), 5), domain.ErrInvalidInput)
		})
	}

	t.Run("six options and matching topic", func(t *testing.T) {
		topic := valid()
		topic.Questions[0].TopicID = "t"
		topic.Questions[0].Options = []string{"a", "b", "c", "d", "e", "f"}
		assert.NoError(t, Validate([]domain.Topic{topic}, 5))
	})
}

type loaderFunc func(ctx context.Context) ([]domain.Topic, error)

func (f loaderFunc) LoadTopics(ctx context.Context) ([]domain.Topic, error) { return f(ctx) }

func TestValidatingLoader(t *testing.T) {
	topic := domain.Topic{
		ID:         "t",
		Difficulty: domain.Beginner,
		Questions: []domain.Question{
			{ID: "q1", Options: []string{"a", "b"}},
			{ID: "q2", Options: []string{"a", "b"}},
		},
	}
	static := loaderFunc(func(context.Context) ([]domain.Topic, error) {
		return []domain.Topic{topic}, nil
	})

	topics, err := NewValidatingLoader(static, 5).LoadTopics(context.Background())
	require.NoError(t, err)
	assert.Len(t, topics, 1)

	_, err = NewValidatingLoader(static, 1).LoadTopics(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	boom := errors.New("db down")
	failing := loaderFunc(func(context.Context) ([]domain.Topic, error) { return nil, boom })
	_, err = NewValidatingLoader(failing, 5).LoadTopics(context.Background())
	assert.ErrorIs(t, err, boom)
}
