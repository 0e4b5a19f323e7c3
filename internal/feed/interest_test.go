package feed

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/today-red-note/rednote/internal/models"
)

type fakeProfiles struct {
	byUser map[int64]*models.UserProfile
	saves  int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byUser: make(map[int64]*models.UserProfile)}
}

func (f *fakeProfiles) GetOrCreate(ctx context.Context, userID int64) (*models.UserProfile, error) {
	if p, ok := f.byUser[userID]; ok {
		return p, nil
	}
	p := &models.UserProfile{UserID: userID}
	f.byUser[userID] = p
	return p, nil
}

func (f *fakeProfiles) Save(ctx context.Context, profile *models.UserProfile) error {
	f.byUser[profile.UserID] = profile
	f.saves++
	return nil
}

type fakePosts struct {
	byID map[int64]*models.Post
}

func (f *fakePosts) GetBare(ctx context.Context, id int64) (*models.Post, error) {
	return f.byID[id], nil
}

func topicPost(id, topicID int64) *models.Post {
	return &models.Post{ID: id, TopicID: sql.NullInt64{Int64: topicID, Valid: true}}
}

func newTestModel(profiles *fakeProfiles, posts *fakePosts) *InterestModel {
	m := NewInterestModel(profiles, posts)
	m.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	return m
}

func TestUpdateInterestAccumulatesAndClamps(t *testing.T) {
	profiles := newFakeProfiles()
	m := newTestModel(profiles, &fakePosts{})
	ctx := context.Background()

	// collect scores 5, so each update adds 0.25
	for i := 0; i < 3; i++ {
		if err := m.UpdateInterest(ctx, 1, 42, 5); err != nil {
			t.Fatalf("UpdateInterest failed: %v", err)
		}
	}

	p := profiles.byUser[1]
	if len(p.Interests) != 1 {
		t.Fatalf("len(interests) = %d, want 1", len(p.Interests))
	}
	if got := p.Interests[0].Weight; got != 0.75 {
		t.Errorf("weight = %v, want 0.75", got)
	}

	// Two more pushes would reach 1.25 unclamped; the weight stops at 1.
	for i := 0; i < 2; i++ {
		if err := m.UpdateInterest(ctx, 1, 42, 5); err != nil {
			t.Fatalf("UpdateInterest failed: %v", err)
		}
	}
	if got := p.Interests[0].Weight; got != 1 {
		t.Errorf("weight = %v, want clamp at 1", got)
	}
}

func TestUpdateInterestEvictsWeakestPastCap(t *testing.T) {
	profiles := newFakeProfiles()
	m := newTestModel(profiles, &fakePosts{})
	ctx := context.Background()

	p, _ := profiles.GetOrCreate(ctx, 1)
	for i := 0; i < MaxInterests; i++ {
		p.Interests = append(p.Interests, models.InterestEntry{
			TopicID: int64(i + 1),
			Weight:  0.2 + float64(i)*0.01,
		})
	}

	// Topic 999 lands above the floor; the weakest existing entry goes.
	if err := m.UpdateInterest(ctx, 1, 999, 5); err != nil {
		t.Fatalf("UpdateInterest failed: %v", err)
	}

	p = profiles.byUser[1]
	if len(p.Interests) != MaxInterests {
		t.Fatalf("len(interests) = %d, want %d", len(p.Interests), MaxInterests)
	}
	for _, e := range p.Interests {
		if e.TopicID == 1 {
			t.Error("weakest interest (topic 1, weight 0.20) should have been evicted")
		}
	}
	found := false
	for _, e := range p.Interests {
		if e.TopicID == 999 {
			found = true
		}
	}
	if !found {
		t.Error("new interest topic 999 missing after eviction")
	}
}

func TestTrackBehaviorRecordsAndLearns(t *testing.T) {
	profiles := newFakeProfiles()
	posts := &fakePosts{byID: map[int64]*models.Post{10: topicPost(10, 7)}}
	m := newTestModel(profiles, posts)

	if err := m.TrackBehavior(context.Background(), 1, 10, models.ActionLike); err != nil {
		t.Fatalf("TrackBehavior failed: %v", err)
	}

	p := profiles.byUser[1]
	if len(p.BehaviorHistory) != 1 {
		t.Fatalf("len(history) = %d, want 1", len(p.BehaviorHistory))
	}
	ev := p.BehaviorHistory[0]
	if ev.Action != models.ActionLike || ev.PostID != 10 || ev.TopicID != 7 {
		t.Errorf("event = %+v, want like on post 10 topic 7", ev)
	}
	if len(p.Interests) != 1 || p.Interests[0].TopicID != 7 {
		t.Fatalf("interests = %+v, want one entry for topic 7", p.Interests)
	}
	// like scores 3, one update: 3 * 0.05
	if got := p.Interests[0].Weight; got < 0.1499 || got > 0.1501 {
		t.Errorf("weight = %v, want 0.15", got)
	}
}

func TestTrackBehaviorUnknownAction(t *testing.T) {
	profiles := newFakeProfiles()
	m := newTestModel(profiles, &fakePosts{byID: map[int64]*models.Post{10: topicPost(10, 7)}})

	if err := m.TrackBehavior(context.Background(), 1, 10, "hover"); err == nil {
		t.Fatal("expected error for unknown action")
	}
	if profiles.saves != 0 {
		t.Errorf("saves = %d, want 0 for rejected action", profiles.saves)
	}
}

func TestTrackBehaviorMissingPostIsNoOp(t *testing.T) {
	profiles := newFakeProfiles()
	m := newTestModel(profiles, &fakePosts{byID: map[int64]*models.Post{}})

	if err := m.TrackBehavior(context.Background(), 1, 404, models.ActionView); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
	if profiles.saves != 0 {
		t.Errorf("saves = %d, want 0 when the post is gone", profiles.saves)
	}
}

func TestTrackBehaviorTopiclessPostSkipsInterest(t *testing.T) {
	profiles := newFakeProfiles()
	posts := &fakePosts{byID: map[int64]*models.Post{10: {ID: 10}}}
	m := newTestModel(profiles, posts)

	if err := m.TrackBehavior(context.Background(), 1, 10, models.ActionView); err != nil {
		t.Fatalf("TrackBehavior failed: %v", err)
	}

	p := profiles.byUser[1]
	if len(p.BehaviorHistory) != 1 {
		t.Errorf("len(history) = %d, want the event recorded", len(p.BehaviorHistory))
	}
	if len(p.Interests) != 0 {
		t.Errorf("interests = %+v, want none for a topicless post", p.Interests)
	}
}

func TestTrackBehaviorTrimsHistory(t *testing.T) {
	profiles := newFakeProfiles()
	posts := &fakePosts{byID: make(map[int64]*models.Post)}
	m := newTestModel(profiles, posts)
	ctx := context.Background()

	total := MaxBehaviorHistory + 20
	for i := 0; i < total; i++ {
		id := int64(i + 1)
		posts.byID[id] = &models.Post{ID: id}
		if err := m.TrackBehavior(ctx, 1, id, models.ActionView); err != nil {
			t.Fatalf("TrackBehavior failed: %v", err)
		}
	}

	p := profiles.byUser[1]
	if len(p.BehaviorHistory) != MaxBehaviorHistory {
		t.Fatalf("len(history) = %d, want %d", len(p.BehaviorHistory), MaxBehaviorHistory)
	}
	// Oldest 20 dropped: the log starts at post 21 and ends at the last.
	if first := p.BehaviorHistory[0].PostID; first != 21 {
		t.Errorf("oldest retained post = %d, want 21", first)
	}
	if last := p.BehaviorHistory[len(p.BehaviorHistory)-1].PostID; last != int64(total) {
		t.Errorf("newest retained post = %d, want %d", last, total)
	}
}

func TestRankedTopicIDs(t *testing.T) {
	profiles := newFakeProfiles()
	m := newTestModel(profiles, &fakePosts{})
	ctx := context.Background()

	p, _ := profiles.GetOrCreate(ctx, 1)
	for i := 0; i < 15; i++ {
		p.Interests = append(p.Interests, models.InterestEntry{
			TopicID: int64(i + 1),
			Weight:  float64(i+1) / 100,
		})
	}

	ids, err := m.RankedTopicIDs(ctx, 1)
	if err != nil {
		t.Fatalf("RankedTopicIDs failed: %v", err)
	}
	if len(ids) != MaxInterestTopics {
		t.Fatalf("len(ids) = %d, want %d", len(ids), MaxInterestTopics)
	}
	want := []int64{15, 14, 13, 12, 11, 10, 9, 8, 7, 6}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}

	// Ranking never reorders the stored profile.
	for i, e := range p.Interests {
		if e.TopicID != int64(i+1) {
			t.Fatal("RankedTopicIDs mutated the stored interest order")
		}
	}
}

func TestRankedTopicIDsEmptyProfile(t *testing.T) {
	m := newTestModel(newFakeProfiles(), &fakePosts{})
	ids, err := m.RankedTopicIDs(context.Background(), 1)
	if err != nil {
		t.Fatalf("RankedTopicIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want empty for a fresh profile", ids)
	}
}
