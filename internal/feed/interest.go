package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/today-red-note/rednote/internal/models"
	"github.com/today-red-note/rednote/pkg/logging"
)

const (
	// LearningRate scales action scores into weight increments.
	LearningRate = 0.05
	// MaxInterests caps the interest set; lowest weights are evicted past it.
	MaxInterests = 50
	// MaxBehaviorHistory caps the behavior log, oldest entries dropped first.
	MaxBehaviorHistory = 100
	// MaxInterestTopics is how many ranked topics feed the profile recall.
	MaxInterestTopics = 10
)

// actionScores weights each behavior by how strong a signal it is.
var actionScores = map[string]float64{
	models.ActionView:    1,
	models.ActionLike:    3,
	models.ActionShare:   4,
	models.ActionCollect: 5,
}

// ProfileStore persists user profiles
type ProfileStore interface {
	GetOrCreate(ctx context.Context, userID int64) (*models.UserProfile, error)
	Save(ctx context.Context, profile *models.UserProfile) error
}

// PostResolver looks up the post a behavior refers to
type PostResolver interface {
	GetBare(ctx context.Context, id int64) (*models.Post, error)
}

// InterestModel maintains per-user topic affinities and the behavior log
// that drives them.
type InterestModel struct {
	profiles ProfileStore
	posts    PostResolver
	logger   *zap.Logger
	now      func() time.Time
}

// NewInterestModel creates an interest model
func NewInterestModel(profiles ProfileStore, posts PostResolver) *InterestModel {
	return &InterestModel{
		profiles: profiles,
		posts:    posts,
		logger:   logging.WithComponent("interest-model"),
		now:      time.Now,
	}
}

// UpdateInterest bumps a topic's weight by score * LearningRate, clamped to
// [0,1], and evicts the lowest-weight entries past the interest cap.
func (m *InterestModel) UpdateInterest(ctx context.Context, userID, topicID int64, score float64) error {
	profile, err := m.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	now := m.now()
	found := false
	for i := range profile.Interests {
		if profile.Interests[i].TopicID == topicID {
			weight := profile.Interests[i].Weight + score*LearningRate
			if weight > 1 {
				weight = 1
			}
			profile.Interests[i].Weight = weight
			profile.Interests[i].LastUpdated = now
			found = true
			break
		}
	}
	if !found {
		weight := score * LearningRate
		if weight > 1 {
			weight = 1
		}
		profile.Interests = append(profile.Interests, models.InterestEntry{
			TopicID:     topicID,
			Weight:      weight,
			LastUpdated: now,
		})
	}

	// Truncation, not error: the weakest interests silently fall off.
	if len(profile.Interests) > MaxInterests {
		sortInterests(profile.Interests)
		profile.Interests = profile.Interests[:MaxInterests]
	}

	return m.profiles.Save(ctx, profile)
}

// TrackBehavior records one user action against a post and folds it into
// the interest weights. A missing post is a no-op; this is best-effort
// telemetry and must never fail the request that triggered it, so callers
// dispatch it detached and only log the returned error.
func (m *InterestModel) TrackBehavior(ctx context.Context, userID, postID int64, action string) error {
	score, ok := actionScores[action]
	if !ok {
		return fmt.Errorf("unknown action %q", action)
	}

	post, err := m.posts.GetBare(ctx, postID)
	if err != nil {
		return fmt.Errorf("resolve post: %w", err)
	}
	if post == nil {
		return nil
	}

	profile, err := m.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	event := models.BehaviorEvent{
		Action:    action,
		PostID:    postID,
		Timestamp: m.now(),
	}
	if post.TopicID.Valid {
		event.TopicID = post.TopicID.Int64
	}
	profile.BehaviorHistory = append(profile.BehaviorHistory, event)
	if n := len(profile.BehaviorHistory); n > MaxBehaviorHistory {
		profile.BehaviorHistory = profile.BehaviorHistory[n-MaxBehaviorHistory:]
	}

	if err := m.profiles.Save(ctx, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	if post.TopicID.Valid {
		return m.UpdateInterest(ctx, userID, post.TopicID.Int64, score)
	}
	return nil
}

// RankedTopicIDs returns the user's interest topics, strongest first,
// capped at MaxInterestTopics. Ties keep their stored order, which is
// stable within one process.
func (m *InterestModel) RankedTopicIDs(ctx context.Context, userID int64) ([]int64, error) {
	profile, err := m.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if len(profile.Interests) == 0 {
		return nil, nil
	}

	ranked := make([]models.InterestEntry, len(profile.Interests))
	copy(ranked, profile.Interests)
	sortInterests(ranked)

	n := len(ranked)
	if n > MaxInterestTopics {
		n = MaxInterestTopics
	}
	ids := make([]int64, 0, n)
	for _, entry := range ranked[:n] {
		ids = append(ids, entry.TopicID)
	}
	return ids, nil
}

func sortInterests(entries []models.InterestEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Weight > entries[j].Weight
	})
}
