package app

import (
	"context"

	"sysdesign-quiz-service/internal/domain"
)

// Catalog answers read-only topic queries on top of a TopicRepository.
type Catalog struct {
	topics TopicRepository
}

func NewCatalog(topics TopicRepository) *Catalog {
	return &Catalog{topics: topics}
}

func (c *Catalog) Topics(ctx context.Context) ([]domain.Topic, error) {
	return c.topics.GetAllTopics(ctx)
}

func (c *Catalog) Topic(ctx context.Context, topicID string) (domain.Topic, error) {
	return c.topics.GetTopic(ctx, topicID)
}

// DailyTopic picks the topic of the day: the catalog rotates by day of year.
func (c *Catalog) DailyTopic(ctx context.Context, today domain.Day) (domain.Topic, error) {
	topics, err := c.topics.GetAllTopics(ctx)
	if err != nil {
		return domain.Topic{}, err
	}
	if len(topics) == 0 {
		return domain.Topic{}, domain.ErrNoTopics
	}
	return topics[DailyIndex(today, len(topics))], nil
}

// DailyIndex maps a day onto a catalog of size n (n > 0).
func DailyIndex(today domain.Day, n int) int {
	return (today.YearDay() - 1) % n
}
