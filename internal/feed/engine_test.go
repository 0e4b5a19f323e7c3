package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/today-red-note/rednote/internal/models"
)

// fakeSource serves in-memory post streams with real keyset semantics so
// cursor handoff between pages is exercised, not simulated.
type fakeSource struct {
	latest   []models.Post // newest first
	byTopics []models.Post // newest first
	err      error
}

func pageAfter(posts []models.Post, pos *Position, limit int) ([]models.Post, bool) {
	start := 0
	if pos != nil {
		for i, p := range posts {
			if p.CreatedAt.Before(pos.Time) || (p.CreatedAt.Equal(pos.Time) && p.ID < pos.ID) {
				start = i
				break
			}
			start = i + 1
		}
	}
	rest := posts[start:]
	if len(rest) > limit {
		return rest[:limit], true
	}
	return rest, false
}

func (s *fakeSource) Latest(ctx context.Context, pos *Position, limit int) ([]models.Post, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	posts, more := pageAfter(s.latest, pos, limit)
	return posts, more, nil
}

func (s *fakeSource) ByTopics(ctx context.Context, topicIDs []int64, pos *Position, limit int) ([]models.Post, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	posts, more := pageAfter(s.byTopics, pos, limit)
	return posts, more, nil
}

type fakeRanker struct {
	topics []int64
	err    error
}

func (r *fakeRanker) RankedTopicIDs(ctx context.Context, userID int64) ([]int64, error) {
	return r.topics, r.err
}

var feedEpoch = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// makePosts builds n posts newest first, ids descending from firstID.
// CreatedAt grows with ID so ordering stays consistent across streams.
func makePosts(firstID int64, n int) []models.Post {
	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		id := firstID - int64(i)
		posts = append(posts, models.Post{
			ID:        id,
			CreatedAt: feedEpoch.Add(time.Duration(id) * time.Minute),
		})
	}
	return posts
}

func postIDs(posts []models.Post) []int64 {
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFeedColdStartFallsBack(t *testing.T) {
	source := &fakeSource{latest: makePosts(100, 5)}
	engine := NewEngine(source, &fakeRanker{})

	page, err := engine.Feed(context.Background(), 1, 10, "")
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if !sameIDs(postIDs(page.Posts), []int64{100, 99, 98, 97, 96}) {
		t.Errorf("posts = %v, want the chronological stream", postIDs(page.Posts))
	}
	if page.HasNextPage {
		t.Error("expected HasNextPage=false on exhausted stream")
	}
	if page.NextCursor != "" {
		t.Errorf("expected empty next cursor, got %q", page.NextCursor)
	}
}

func TestFeedAnonymousFallsBack(t *testing.T) {
	source := &fakeSource{
		latest:   makePosts(100, 3),
		byTopics: makePosts(200, 3),
	}
	engine := NewEngine(source, &fakeRanker{topics: []int64{1}})

	page, err := engine.Feed(context.Background(), 0, 10, "")
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if !sameIDs(postIDs(page.Posts), []int64{100, 99, 98}) {
		t.Errorf("posts = %v, want chronological posts only", postIDs(page.Posts))
	}
}

func TestFeedForgedCursorRestartsFallback(t *testing.T) {
	source := &fakeSource{
		latest:   makePosts(100, 4),
		byTopics: makePosts(200, 4),
	}
	engine := NewEngine(source, &fakeRanker{topics: []int64{1}})

	page, err := engine.Feed(context.Background(), 1, 10, "garbage-token-!!")
	if err != nil {
		t.Fatalf("expected degraded page, got error: %v", err)
	}
	if !sameIDs(postIDs(page.Posts), []int64{100, 99, 98, 97}) {
		t.Errorf("posts = %v, want fallback stream from its start", postIDs(page.Posts))
	}
}

func TestFeedProfilePhasePaging(t *testing.T) {
	source := &fakeSource{
		latest:   makePosts(1000, 30),
		byTopics: makePosts(500, 25),
	}
	engine := NewEngine(source, &fakeRanker{topics: []int64{3, 7}})

	page, err := engine.Feed(context.Background(), 1, 10, "")
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if !sameIDs(postIDs(page.Posts), postIDs(source.byTopics[:10])) {
		t.Errorf("first page = %v, want first 10 profile posts", postIDs(page.Posts))
	}
	if !page.HasNextPage || page.NextCursor == "" {
		t.Fatal("expected a next page in the profile phase")
	}

	cursor, err := DecodeFeedCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("next cursor does not decode: %v", err)
	}
	if cursor.Phase != PhaseProfile {
		t.Errorf("phase = %q, want %q", cursor.Phase, PhaseProfile)
	}

	// Second page resumes after the first without overlap.
	page2, err := engine.Feed(context.Background(), 1, 10, page.NextCursor)
	if err != nil {
		t.Fatalf("Feed page 2 failed: %v", err)
	}
	if !sameIDs(postIDs(page2.Posts), postIDs(source.byTopics[10:20])) {
		t.Errorf("second page = %v, want next 10 profile posts", postIDs(page2.Posts))
	}
}

func TestFeedStitchesShortProfilePage(t *testing.T) {
	// 3 profile posts left, 10 wanted: page is stitched full from fallback,
	// skipping the fallback copy of any post already placed.
	profile := makePosts(500, 3)
	latest := append([]models.Post{}, profile[0]) // overlap: post 500 in both
	latest = append(latest, makePosts(100, 12)...)

	source := &fakeSource{latest: latest, byTopics: profile}
	engine := NewEngine(source, &fakeRanker{topics: []int64{3}})

	page, err := engine.Feed(context.Background(), 1, 10, "")
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	want := []int64{500, 499, 498, 100, 99, 98, 97, 96, 95, 94}
	if !sameIDs(postIDs(page.Posts), want) {
		t.Errorf("stitched page = %v, want %v", postIDs(page.Posts), want)
	}

	seen := make(map[int64]bool)
	for _, id := range postIDs(page.Posts) {
		if seen[id] {
			t.Fatalf("post %d appears twice in one page", id)
		}
		seen[id] = true
	}

	cursor, err := DecodeFeedCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("next cursor does not decode: %v", err)
	}
	if cursor.Phase != PhaseFallback {
		t.Errorf("phase = %q, want %q after stitching", cursor.Phase, PhaseFallback)
	}
}

func TestFeedExactProfileFillHandsOverToFallback(t *testing.T) {
	source := &fakeSource{
		latest:   makePosts(100, 5),
		byTopics: makePosts(510, 10), // exactly one full page
	}
	engine := NewEngine(source, &fakeRanker{topics: []int64{3}})

	page, err := engine.Feed(context.Background(), 1, 10, "")
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(page.Posts) != 10 {
		t.Fatalf("len(posts) = %d, want 10", len(page.Posts))
	}
	if !page.HasNextPage {
		t.Fatal("expected HasNextPage=true: the fallback stream is untouched")
	}

	cursor, err := DecodeFeedCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("next cursor does not decode: %v", err)
	}
	if cursor.Phase != PhaseFallback || cursor.Inner != "" {
		t.Errorf("cursor = %+v, want fallback phase at stream start", cursor)
	}

	page2, err := engine.Feed(context.Background(), 1, 10, page.NextCursor)
	if err != nil {
		t.Fatalf("Feed page 2 failed: %v", err)
	}
	if !sameIDs(postIDs(page2.Posts), []int64{100, 99, 98, 97, 96}) {
		t.Errorf("second page = %v, want the fallback stream", postIDs(page2.Posts))
	}
}

func TestFeedTerminates(t *testing.T) {
	source := &fakeSource{
		latest:   makePosts(100, 17),
		byTopics: makePosts(503, 4),
	}
	engine := NewEngine(source, &fakeRanker{topics: []int64{3}})

	token := ""
	pages := 0
	for {
		page, err := engine.Feed(context.Background(), 1, 5, token)
		if err != nil {
			t.Fatalf("Feed failed on page %d: %v", pages, err)
		}
		pages++
		if pages > 20 {
			t.Fatal("paging did not terminate")
		}
		if !page.HasNextPage {
			break
		}
		token = page.NextCursor
	}
}

func TestFeedSourceErrorPropagates(t *testing.T) {
	wantErr := errors.New("connection reset")
	engine := NewEngine(&fakeSource{err: wantErr}, &fakeRanker{topics: []int64{1}})

	_, err := engine.Feed(context.Background(), 1, 10, "")
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}
