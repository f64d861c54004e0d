package app

import (
	"context"
	"log"
	"strings"
)

const (
	// SuggestionCount is how many topics every suggestion call returns.
	SuggestionCount = 6
	recentTitles    = 100
)

// TitleSource lists a user's recent chat titles, newest first.
type TitleSource interface {
	RecentTitles(ctx context.Context, userID string, limit int) ([]string, error)
}

// TopicOracle proposes quiz topics from what the user has chatted about.
type TopicOracle interface {
	SuggestTopics(ctx context.Context, titles []string, n int) ([]string, error)
}

// TopicRepository serves cached suggestions per user.
type TopicRepository interface {
	GetTopics(ctx context.Context, userID string) ([]string, error)
}

// TopicSuggester generates suggestions on a cache miss. It never fails: oracle
// errors fall back to the default topics.
type TopicSuggester struct {
	titles TitleSource
	oracle TopicOracle
}

func NewTopicSuggester(titles TitleSource, oracle TopicOracle) *TopicSuggester {
	return &TopicSuggester{titles: titles, oracle: oracle}
}

// LoadTopics returns exactly SuggestionCount topics for userID.
func (s *TopicSuggester) LoadTopics(ctx context.Context, userID string) ([]string, error) {
	titles, err := s.titles.RecentTitles(ctx, userID, recentTitles)
	if err != nil {
		return nil, err
	}
	titles = meaningfulTitles(titles)
	if len(titles) == 0 || s.oracle == nil {
		return NormalizeTopics(nil), nil
	}
	topics, err := s.oracle.SuggestTopics(ctx, titles, SuggestionCount)
	if err != nil {
		log.Printf("[TopicSuggester.LoadTopics] user=%s falling back: %v", userID, err)
		return NormalizeTopics(nil), nil
	}
	return NormalizeTopics(topics), nil
}

// TopicService returns topic suggestions.
type TopicService struct {
	repo TopicRepository
}

func NewTopicService(repo TopicRepository) *TopicService {
	return &TopicService{repo: repo}
}

// Suggest returns exactly SuggestionCount topics.
func (s *TopicService) Suggest(ctx context.Context, userID string) ([]string, error) {
	topics, err := s.repo.GetTopics(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NormalizeTopics(topics), nil
}

// NormalizeTopics trims, de-duplicates and pads topics to exactly SuggestionCount.
func NormalizeTopics(topics []string) []string {
	out := make([]string, 0, SuggestionCount)
	seen := make(map[string]struct{}, SuggestionCount)
	add := func(t string) {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || len(out) == SuggestionCount {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	for _, t := range topics {
		add(t)
	}
	for _, t := range FallbackTopics {
		add(t)
	}
	return out
}

func meaningfulTitles(titles []string) []string {
	out := titles[:0:0]
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" || strings.EqualFold(t, defaultChatTitle) {
			continue
		}
		out = append(out, t)
	}
	return out
}
