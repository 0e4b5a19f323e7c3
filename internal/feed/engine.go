package feed

import (
	"context"

	"go.uber.org/zap"

	"github.com/today-red-note/rednote/internal/models"
	"github.com/today-red-note/rednote/pkg/logging"
	"github.com/today-red-note/rednote/pkg/telemetry"
)

// PostSource supplies recall pages. Both queries are read-only keyset
// fetches returning whether a further page exists.
type PostSource interface {
	Latest(ctx context.Context, pos *Position, limit int) ([]models.Post, bool, error)
	ByTopics(ctx context.Context, topicIDs []int64, pos *Position, limit int) ([]models.Post, bool, error)
}

// InterestRanker produces a user's interest topics, strongest first
type InterestRanker interface {
	RankedTopicIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Page is one assembled feed page
type Page struct {
	Posts       []models.Post
	NextCursor  string
	HasNextPage bool
	Limit       int
}

// Engine assembles the hybrid personalized feed. It holds no per-session
// state: everything a paging session needs travels in the cursor token, so
// any replica can serve any page.
type Engine struct {
	source PostSource
	ranker InterestRanker
	logger *zap.Logger
}

// NewEngine creates a feed engine
func NewEngine(source PostSource, ranker InterestRanker) *Engine {
	return &Engine{
		source: source,
		ranker: ranker,
		logger: logging.WithComponent("feed-engine"),
	}
}

// Feed returns one page of the personalized feed. The profile phase serves
// interest-matched posts; once it runs dry mid-page the page is stitched
// full from the fallback stream and every later page stays in fallback.
// A token that fails to decode degrades to a fresh fallback page, never an
// error: a forged or stale cursor costs the client its position, nothing
// more. Store errors propagate untouched.
func (e *Engine) Feed(ctx context.Context, userID int64, limit int, token string) (*Page, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.assemble")
	defer span.End()

	phase := PhaseProfile
	var profilePos *Position
	var inner string

	if token != "" {
		cursor, err := DecodeFeedCursor(token)
		if err != nil {
			e.logger.Warn("undecodable feed cursor, restarting fallback", zap.Error(err))
			phase = PhaseFallback
		} else {
			switch cursor.Phase {
			case PhaseProfile:
				profilePos = cursor.Position
			case PhaseFallback:
				phase = PhaseFallback
				inner = cursor.Inner
			}
		}
	}

	if phase == PhaseFallback {
		return e.fallbackPage(ctx, limit, inner)
	}

	// Anonymous users have no profile to recall from.
	if userID == 0 {
		return e.fallbackPage(ctx, limit, "")
	}

	// Ranking is recomputed on every page; weights may drift within a
	// paging session and that is fine.
	topicIDs, err := e.ranker.RankedTopicIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(topicIDs) == 0 {
		// Cold start: straight to fallback so the first page is never empty.
		return e.fallbackPage(ctx, limit, "")
	}

	posts, hasMore, err := e.source.ByTopics(ctx, topicIDs, profilePos, limit)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return e.fallbackPage(ctx, limit, "")
	}

	if hasMore {
		last := posts[len(posts)-1]
		next := EncodeFeedCursor(FeedCursor{
			Phase:    PhaseProfile,
			Position: &Position{Time: last.CreatedAt, ID: last.ID},
		})
		return &Page{Posts: posts, NextCursor: next, HasNextPage: true, Limit: limit}, nil
	}

	// Profile stream is exhausted. If it filled the page exactly, hand the
	// next page over to fallback from its start.
	remaining := limit - len(posts)
	if remaining <= 0 {
		next := EncodeFeedCursor(FeedCursor{Phase: PhaseFallback})
		return &Page{Posts: posts, NextCursor: next, HasNextPage: true, Limit: limit}, nil
	}

	// Stitch the short final profile page full from the fallback stream.
	// Fallback starts from its beginning here, so the next page may repeat
	// a post stitched into this one; accepted trade-off, see DESIGN.md.
	fb, err := e.fallbackPage(ctx, remaining, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(posts))
	for _, p := range posts {
		seen[p.ID] = struct{}{}
	}
	merged := posts
	for _, p := range fb.Posts {
		if _, dup := seen[p.ID]; !dup {
			merged = append(merged, p)
		}
	}

	return &Page{
		Posts:       merged,
		NextCursor:  fb.NextCursor,
		HasNextPage: fb.HasNextPage,
		Limit:       limit,
	}, nil
}

// fallbackPage serves one chronological page, wrapping the keyset position
// in a fallback-phase cursor. An undecodable inner position restarts the
// stream from its beginning.
func (e *Engine) fallbackPage(ctx context.Context, limit int, inner string) (*Page, error) {
	var pos *Position
	if inner != "" {
		p, err := DecodeCreatedPosition(inner)
		if err != nil {
			e.logger.Warn("undecodable fallback position, restarting", zap.Error(err))
		} else {
			pos = &p
		}
	}

	posts, hasMore, err := e.source.Latest(ctx, pos, limit)
	if err != nil {
		return nil, err
	}

	next := ""
	if hasMore && len(posts) > 0 {
		last := posts[len(posts)-1]
		next = EncodeFeedCursor(FeedCursor{
			Phase: PhaseFallback,
			Inner: EncodeCreatedPosition(Position{Time: last.CreatedAt, ID: last.ID}),
		})
	}

	return &Page{Posts: posts, NextCursor: next, HasNextPage: hasMore, Limit: limit}, nil
}
