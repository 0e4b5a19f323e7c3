package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/today-red-note/rednote/internal/db"
	"github.com/today-red-note/rednote/internal/feed"
	"github.com/today-red-note/rednote/internal/models"
	"github.com/today-red-note/rednote/internal/storage"
	"github.com/today-red-note/rednote/pkg/logging"
)

const (
	// MaxPostImages caps a post's image set.
	MaxPostImages = 18
	// MaxRelatedPosts caps the detail-page related listing.
	MaxRelatedPosts = 10
)

var (
	// ErrBodyRequired reports a post submitted without body text.
	ErrBodyRequired = errors.New("body is required")
	// ErrTooManyImages reports a post exceeding MaxPostImages.
	ErrTooManyImages = errors.New("max 18 images")
	// ErrForbidden reports a write attempt by a non-author.
	ErrForbidden = errors.New("forbidden")
)

// ImageInput is one submitted image reference
type ImageInput struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// CreatePostInput carries a post submission
type CreatePostInput struct {
	Body        string       `json:"body"`
	BodyPreview string       `json:"bodyPreview"`
	Images      []ImageInput `json:"images"`
	Topic       string       `json:"topic"`
	Tags        []string     `json:"tags"`
}

// UpdatePostInput carries a post edit. Nil fields are left untouched; a
// non-nil empty Topic clears the topic, a non-nil empty Images clears the
// image set.
type UpdatePostInput struct {
	Body        *string       `json:"body"`
	BodyPreview string        `json:"bodyPreview"`
	Images      *[]ImageInput `json:"images"`
	Topic       *string       `json:"topic"`
}

// PostService owns the post lifecycle and the feed listings
type PostService struct {
	posts  *db.PostRepository
	topics *db.TopicRepository
	tags   *db.TagRepository
	recall *feed.Store
	engine *feed.Engine
	bucket *storage.Bucket
	logger *zap.Logger
}

// NewPostService creates a post service
func NewPostService(repo *db.Repository, recall *feed.Store, engine *feed.Engine, bucket *storage.Bucket) *PostService {
	return &PostService{
		posts:  db.NewPostRepository(repo),
		topics: db.NewTopicRepository(repo),
		tags:   db.NewTagRepository(repo),
		recall: recall,
		engine: engine,
		bucket: bucket,
		logger: logging.WithComponent("post-service"),
	}
}

func normalizeImages(images []ImageInput) []models.PostImage {
	out := make([]models.PostImage, 0, len(images))
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		width, height := img.Width, img.Height
		if width < 0 {
			width = 0
		}
		if height < 0 {
			height = 0
		}
		out = append(out, models.PostImage{
			Position: len(out),
			URL:      img.URL,
			Width:    width,
			Height:   height,
		})
	}
	return out
}

// applyImages sets a post's image set and derives the cover ratio from the
// first image. CoverRatio is none iff the set is empty.
func applyImages(post *models.Post, images []models.PostImage) {
	post.Images = images
	if len(images) == 0 {
		post.CoverRatio = models.CoverRatioNone
		return
	}
	post.CoverRatio = models.CoverRatioFor(images[0].Width, images[0].Height)
}

// CreatePost publishes a new post. Topic and tag resolution is best effort:
// a failed lookup drops the reference and keeps the post.
func (s *PostService) CreatePost(ctx context.Context, authorID int64, in CreatePostInput) (*models.Post, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, ErrBodyRequired
	}
	images := normalizeImages(in.Images)
	if len(images) > MaxPostImages {
		return nil, ErrTooManyImages
	}

	post := &models.Post{
		AuthorID:    authorID,
		Body:        body,
		BodyPreview: in.BodyPreview,
	}
	applyImages(post, images)

	if name := strings.TrimSpace(in.Topic); name != "" {
		topic, err := s.topics.GetOrCreateByName(ctx, name)
		if err != nil {
			s.logger.Warn("topic resolution failed", zap.String("topic", name), zap.Error(err))
		} else {
			post.TopicID = sql.NullInt64{Int64: topic.ID, Valid: true}
		}
	}

	if len(in.Tags) > 0 {
		tags, err := s.tags.GetOrCreateByNames(ctx, in.Tags)
		if err != nil {
			s.logger.Warn("tag resolution failed", zap.Error(err))
		} else {
			post.Tags = tags
		}
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	// Counter bumps are fire-and-forget; the published post is the answer.
	topicID := post.TopicID
	tagIDs := make([]int64, 0, len(post.Tags))
	for _, tag := range post.Tags {
		tagIDs = append(tagIDs, tag.ID)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if topicID.Valid {
			if err := s.topics.IncrementPostCount(ctx, topicID.Int64); err != nil {
				s.logger.Warn("topic count bump failed", zap.Int64("topic_id", topicID.Int64), zap.Error(err))
			}
		}
		if err := s.tags.IncrementPostCounts(ctx, tagIDs); err != nil {
			s.logger.Warn("tag count bump failed", zap.Error(err))
		}
	}()

	return s.posts.GetByID(ctx, post.ID)
}

// GetPost retrieves a post with display associations; nil when absent
func (s *PostService) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// RelatedPosts lists up to MaxRelatedPosts posts for the detail page:
// tag-overlap matches first, same-topic matches fill the rest. Nil result
// with nil error means the post itself is gone.
func (s *PostService) RelatedPosts(ctx context.Context, id int64) ([]models.Post, error) {
	current, err := s.posts.GetBare(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	tagIDs := make([]int64, 0, len(current.Tags))
	for _, tag := range current.Tags {
		tagIDs = append(tagIDs, tag.ID)
	}

	related, err := s.posts.RelatedByTags(ctx, id, tagIDs, MaxRelatedPosts)
	if err != nil {
		return nil, err
	}

	if current.TopicID.Valid && len(related) < MaxRelatedPosts {
		byTopic, err := s.posts.RelatedByTopic(ctx, id, current.TopicID.Int64, tagIDs, MaxRelatedPosts-len(related))
		if err != nil {
			return nil, err
		}
		related = append(related, byTopic...)
	}

	if len(related) > MaxRelatedPosts {
		related = related[:MaxRelatedPosts]
	}
	return related, nil
}

// UpdatePost edits a post on behalf of its author. Nil when the post is
// absent, ErrForbidden when userID is not the author.
func (s *PostService) UpdatePost(ctx context.Context, id, userID int64, in UpdatePostInput) (*models.Post, error) {
	post, err := s.posts.GetBare(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, nil
	}
	if post.AuthorID != userID {
		return nil, ErrForbidden
	}

	if in.Body != nil {
		body := strings.TrimSpace(*in.Body)
		if body == "" {
			return nil, ErrBodyRequired
		}
		post.Body = body
		post.BodyPreview = in.BodyPreview
	}

	if in.Images != nil {
		images := normalizeImages(*in.Images)
		if len(images) > MaxPostImages {
			return nil, ErrTooManyImages
		}
		applyImages(post, images)
	}

	if in.Topic != nil {
		if name := strings.TrimSpace(*in.Topic); name != "" {
			topic, err := s.topics.GetOrCreateByName(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("resolve topic: %w", err)
			}
			post.TopicID = sql.NullInt64{Int64: topic.ID, Valid: true}
		} else {
			post.TopicID = sql.NullInt64{}
		}
		post.Topic = nil
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return s.posts.GetByID(ctx, id)
}

// DeletePost removes a post and its stored image objects on behalf of its
// author. False with nil error means the post was already gone.
func (s *PostService) DeletePost(ctx context.Context, id, userID int64) (bool, error) {
	post, err := s.posts.GetBare(ctx, id)
	if err != nil {
		return false, err
	}
	if post == nil {
		return false, nil
	}
	if post.AuthorID != userID {
		return false, ErrForbidden
	}

	keys := make([]string, 0, len(post.Images))
	for _, img := range post.Images {
		if key := storage.ObjectKeyFromURL(img.URL); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) > 0 {
		// Orphaned objects are preferable to an undeletable post.
		if err := s.bucket.RemoveObjects(ctx, keys); err != nil {
			s.logger.Warn("image cleanup incomplete", zap.Int64("post_id", id), zap.Error(err))
		}
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	return true, nil
}

// ListPosts serves the plain chronological listing with a bare position
// cursor. An undecodable cursor restarts from the newest post.
func (s *PostService) ListPosts(ctx context.Context, limit int, token string) (*feed.Page, error) {
	var pos *feed.Position
	if token != "" {
		p, err := feed.DecodeCreatedPosition(token)
		if err != nil {
			s.logger.Warn("undecodable list cursor, restarting", zap.Error(err))
		} else {
			pos = &p
		}
	}

	posts, hasNext, err := s.recall.Latest(ctx, pos, limit)
	if err != nil {
		return nil, err
	}

	next := ""
	if hasNext && len(posts) > 0 {
		last := posts[len(posts)-1]
		next = feed.EncodeCreatedPosition(feed.Position{Time: last.CreatedAt, ID: last.ID})
	}
	return &feed.Page{Posts: posts, NextCursor: next, HasNextPage: hasNext, Limit: limit}, nil
}

// ListUserPosts serves a user's own posts ordered by last update
func (s *PostService) ListUserPosts(ctx context.Context, userID int64, limit int, token string) (*feed.Page, error) {
	var pos *feed.Position
	if token != "" {
		p, err := feed.DecodeUpdatedPosition(token)
		if err != nil {
			s.logger.Warn("undecodable user-posts cursor, restarting", zap.Error(err))
		} else {
			pos = &p
		}
	}

	posts, hasNext, err := s.recall.ByAuthor(ctx, userID, pos, limit)
	if err != nil {
		return nil, err
	}

	next := ""
	if hasNext && len(posts) > 0 {
		last := posts[len(posts)-1]
		next = feed.EncodeUpdatedPosition(feed.Position{Time: last.UpdatedAt, ID: last.ID})
	}
	return &feed.Page{Posts: posts, NextCursor: next, HasNextPage: hasNext, Limit: limit}, nil
}

// PersonalizedFeed serves one page of the hybrid personalized feed
func (s *PostService) PersonalizedFeed(ctx context.Context, userID int64, limit int, token string) (*feed.Page, error) {
	return s.engine.Feed(ctx, userID, limit, token)
}
