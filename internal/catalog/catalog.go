// Package catalog ships the built-in topic catalog and validates topic documents.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sysdesign-quiz-service/internal/domain"
)

//go:embed topics.yaml
var builtin []byte

type document struct {
	Topics []domain.Topic `yaml:"topics"`
}

// Builtin returns the embedded catalog.
func Builtin() ([]domain.Topic, error) {
	return parse(builtin)
}

// LoadFile reads a catalog from a YAML file with the same layout as the embedded one.
func LoadFile(path string) ([]domain.Topic, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(raw)
}

func parse(raw []byte) ([]domain.Topic, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i := range doc.Topics {
		for j := range doc.Topics[i].Questions {
			if doc.Topics[i].Questions[j].TopicID == "" {
				doc.Topics[i].Questions[j].TopicID = doc.Topics[i].ID
			}
		}
	}
	return doc.Topics, nil
}

// MaxOptions is the most answer options a question may offer.
const MaxOptions = 6

// Validate checks that topics can be served: unique ids, known difficulty, between one
// and maxQuestions questions per topic, unique question ids owned by their topic,
// 2..MaxOptions options and an in-range answer.
func Validate(topics []domain.Topic, maxQuestions int) error {
	seenTopics := make(map[string]struct{}, len(topics))
	seenQuestions := make(map[string]struct{})
	for _, t := range topics {
		if t.ID == "" {
			return fmt.Errorf("%w: topic %q has no id", domain.ErrInvalidInput, t.Title)
		}
		if _, dup := seenTopics[t.ID]; dup {
			return fmt.Errorf("%w: duplicate topic id %q", domain.ErrInvalidInput, t.ID)
		}
		seenTopics[t.ID] = struct{}{}

		if !t.Difficulty.Valid() {
			return fmt.Errorf("%w: topic %s: difficulty %q", domain.ErrInvalidInput, t.ID, t.Difficulty)
		}
		if n := len(t.Questions); n == 0 || (maxQuestions > 0 && n > maxQuestions) {
			return fmt.Errorf("%w: topic %s has %d questions", domain.ErrInvalidInput, t.ID, n)
		}
		for _, q := range t.Questions {
			if _, dup := seenQuestions[q.ID]; dup || q.ID == "" {
				return fmt.Errorf("%w: topic %s: bad question id %q", domain.ErrInvalidInput, t.ID, q.ID)
			}
			seenQuestions[q.ID] = struct{}{}
			if q.TopicID != "" && q.TopicID != t.ID {
				return fmt.Errorf("%w: question %s belongs to topic %q, listed under %s", domain.ErrInvalidInput, q.ID, q.TopicID, t.ID)
			}
			if n := len(q.Options); n < 2 || n > MaxOptions {
				return fmt.Errorf("%w: question %s has %d options", domain.ErrInvalidInput, q.ID, n)
			}
			if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
				return fmt.Errorf("%w: question %s: correct index %d out of range", domain.ErrInvalidInput, q.ID, q.CorrectIndex)
			}
		}
	}
	return nil
}

// Loader fetches a topic catalog from a backing store.
type Loader interface {
	LoadTopics(ctx context.Context) ([]domain.Topic, error)
}

// ValidatingLoader wraps a Loader and rejects catalogs that fail Validate.
type ValidatingLoader struct {
	next         Loader
	maxQuestions int
}

func NewValidatingLoader(next Loader, maxQuestions int) *ValidatingLoader {
	return &ValidatingLoader{next: next, maxQuestions: maxQuestions}
}

func (l *ValidatingLoader) LoadTopics(ctx context.Context) ([]domain.Topic, error) {
	topics, err := l.next.LoadTopics(ctx)
	if err != nil {
		return nil, err
	}
	if err := Validate(topics, l.maxQuestions); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return topics, nil
}
