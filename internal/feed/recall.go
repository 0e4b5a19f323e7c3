package feed

import (
	"context"

	"gorm.io/gorm"

	"github.com/today-red-note/rednote/internal/models"
)

// Store runs the recall queries against the post store. Every query is a
// single keyset fetch: limit+1 rows are requested and the extra row, when
// present, signals a further page without a separate count query.
type Store struct {
	db *gorm.DB
}

// NewStore creates a recall store over a database handle
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) base(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Post{}).
		Preload("Author").
		Preload("Topic").
		Preload("Tags").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("post_images.position ASC")
		})
}

// created_at alone is not unique, so the position predicate ties break on
// id to hand out every post exactly once across pages.
func createdBefore(q *gorm.DB, pos *Position) *gorm.DB {
	if pos == nil {
		return q
	}
	return q.Where(
		"created_at < ? OR (created_at = ? AND id < ?)",
		pos.Time, pos.Time, pos.ID,
	)
}

func trimPage(posts []models.Post, limit int) ([]models.Post, bool) {
	if len(posts) > limit {
		return posts[:limit], true
	}
	return posts, false
}

// Latest is the fallback recall: all posts, newest first
func (s *Store) Latest(ctx context.Context, pos *Position, limit int) ([]models.Post, bool, error) {
	var posts []models.Post
	err := createdBefore(s.base(ctx), pos).
		Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&posts).Error
	if err != nil {
		return nil, false, err
	}
	posts, hasNext := trimPage(posts, limit)
	return posts, hasNext, nil
}

// ByTopics is the profile recall: posts carrying one of the ranked interest
// topics, newest first
func (s *Store) ByTopics(ctx context.Context, topicIDs []int64, pos *Position, limit int) ([]models.Post, bool, error) {
	var posts []models.Post
	err := createdBefore(s.base(ctx).Where("topic_id IN ?", topicIDs), pos).
		Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&posts).Error
	if err != nil {
		return nil, false, err
	}
	posts, hasNext := trimPage(posts, limit)
	return posts, hasNext, nil
}

// ByAuthor lists one author's posts by last update, newest first. Position
// here carries updated_at, not created_at.
func (s *Store) ByAuthor(ctx context.Context, authorID int64, pos *Position, limit int) ([]models.Post, bool, error) {
	q := s.base(ctx).Where("author_id = ?", authorID)
	if pos != nil {
		q = q.Where(
			"updated_at < ? OR (updated_at = ? AND id < ?)",
			pos.Time, pos.Time, pos.ID,
		)
	}
	var posts []models.Post
	err := q.Order("updated_at DESC, id DESC").
		Limit(limit + 1).
		Find(&posts).Error
	if err != nil {
		return nil, false, err
	}
	posts, hasNext := trimPage(posts, limit)
	return posts, hasNext, nil
}
