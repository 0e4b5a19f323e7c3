package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/today-red-note/rednote/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// withAssociations preloads the display associations of a post query
func withAssociations(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Author").
		Preload("Topic").
		Preload("Tags").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("post_images.position ASC")
		})
}

// GetByID retrieves a post with its display associations
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := withAssociations(r.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// GetBare retrieves a post without associations
func (r *PostRepository) GetBare(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("post_images.position ASC")
	}).Preload("Tags").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Create creates a new post with its images and tag links
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// Update persists post changes, replacing the image set and tag links
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostImage{}).Error; err != nil {
			return err
		}
		if err := tx.Model(post).Association("Tags").Replace(post.Tags); err != nil {
			return err
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: false}).Save(post).Error
	})
}

// Delete removes a post, its images and its tag links
func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.PostImage{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM post_tags WHERE post_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
}

// RelatedByTags lists posts sharing at least one tag with the given post,
// newest first, excluding the post itself.
func (r *PostRepository) RelatedByTags(ctx context.Context, postID int64, tagIDs []int64, limit int) ([]models.Post, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	var posts []models.Post
	err := withAssociations(r.db.WithContext(ctx)).
		Joins("INNER JOIN post_tags ON post_tags.post_id = posts.id").
		Where("post_tags.tag_id IN ? AND posts.id <> ?", tagIDs, postID).
		Group("posts.id").
		Order("posts.created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// RelatedByTopic lists same-topic posts, newest first, excluding the post
// itself and any posts sharing the given tags (already matched by tag).
func (r *PostRepository) RelatedByTopic(ctx context.Context, postID, topicID int64, excludeTagIDs []int64, limit int) ([]models.Post, error) {
	q := withAssociations(r.db.WithContext(ctx)).
		Where("posts.topic_id = ? AND posts.id <> ?", topicID, postID)
	if len(excludeTagIDs) > 0 {
		q = q.Where("posts.id NOT IN (SELECT post_id FROM post_tags WHERE tag_id IN ?)", excludeTagIDs)
	}
	var posts []models.Post
	if err := q.Order("posts.created_at DESC").Limit(limit).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// TopicRepository provides topic-related database operations
type TopicRepository struct {
	*Repository
}

// NewTopicRepository creates a new topic repository
func NewTopicRepository(repo *Repository) *TopicRepository {
	return &TopicRepository{Repository: repo}
}

// GetOrCreateByName fetches a topic by name, creating it if absent
func (r *TopicRepository) GetOrCreateByName(ctx context.Context, name string) (*models.Topic, error) {
	var topic models.Topic
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&topic).Error
	if err == nil {
		return &topic, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	topic = models.Topic{Name: name}
	if err := r.db.WithContext(ctx).Create(&topic).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the insert race; the row exists now
			if rerr := r.db.WithContext(ctx).Where("name = ?", name).First(&topic).Error; rerr == nil {
				return &topic, nil
			}
		}
		return nil, err
	}
	return &topic, nil
}

// IncrementPostCount bumps a topic's post counter
func (r *TopicRepository) IncrementPostCount(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&models.Topic{}).
		Where("id = ?", id).
		UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error
}

// Trending lists topics by post count, busiest first
func (r *TopicRepository) Trending(ctx context.Context, limit int) ([]models.Topic, error) {
	var topics []models.Topic
	err := r.db.WithContext(ctx).
		Where("post_count > 0").
		Order("post_count DESC, id ASC").
		Limit(limit).
		Find(&topics).Error
	if err != nil {
		return nil, err
	}
	return topics, nil
}

// TagRepository provides tag-related database operations
type TagRepository struct {
	*Repository
}

// NewTagRepository creates a new tag repository
func NewTagRepository(repo *Repository) *TagRepository {
	return &TagRepository{Repository: repo}
}

// GetOrCreateByNames resolves tag names to rows, creating missing ones.
// Result order follows input order.
func (r *TagRepository) GetOrCreateByNames(ctx context.Context, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		var tag models.Tag
		err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = models.Tag{Name: name}
			err = r.db.WithContext(ctx).Create(&tag).Error
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				err = r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error
			}
		}
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// IncrementPostCounts bumps the post counter of each tag
func (r *TagRepository) IncrementPostCounts(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Tag{}).
		Where("id IN ?", ids).
		UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error
}

// ProfileRepository provides user-profile database operations
type ProfileRepository struct {
	*Repository
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(repo *Repository) *ProfileRepository {
	return &ProfileRepository{Repository: repo}
}

// GetOrCreate fetches a user's profile, creating an empty one on first
// access. Creation races on the user_id unique index; the loser re-reads
// the winner's row instead of failing.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, userID int64) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	profile = models.UserProfile{
		UserID:          userID,
		Interests:       []models.InterestEntry{},
		BehaviorHistory: []models.BehaviorEvent{},
	}
	if err := r.db.WithContext(ctx).Create(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if rerr := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; rerr == nil {
				return &profile, nil
			}
		}
		return nil, err
	}
	return &profile, nil
}

// Save writes the whole profile row back. Concurrent savers for the same
// user are last-writer-wins.
func (r *ProfileRepository) Save(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// DraftRepository provides draft database operations
type DraftRepository struct {
	*Repository
}

// NewDraftRepository creates a new draft repository
func NewDraftRepository(repo *Repository) *DraftRepository {
	return &DraftRepository{Repository: repo}
}

// ListByUser lists a user's drafts, most recently updated first
func (r *DraftRepository) ListByUser(ctx context.Context, userID int64) ([]models.Draft, error) {
	var drafts []models.Draft
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&drafts).Error
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

// GetByID retrieves a draft by ID
func (r *DraftRepository) GetByID(ctx context.Context, id int64) (*models.Draft, error) {
	var draft models.Draft
	if err := r.db.WithContext(ctx).First(&draft, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &draft, nil
}

// Create creates a new draft
func (r *DraftRepository) Create(ctx context.Context, draft *models.Draft) error {
	return r.db.WithContext(ctx).Create(draft).Error
}

// Update updates a draft
func (r *DraftRepository) Update(ctx context.Context, draft *models.Draft) error {
	return r.db.WithContext(ctx).Save(draft).Error
}

// Delete removes a draft
func (r *DraftRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Draft{}, id).Error
}
