package service

import (
	"context"
	"fmt"

	"github.com/today-red-note/rednote/internal/db"
	"github.com/today-red-note/rednote/internal/models"
)

// DraftInput carries a draft create or update
type DraftInput struct {
	Body   string   `json:"body"`
	Tags   string   `json:"tags"`
	Images []string `json:"images"`
}

// DraftService owns a user's cloud drafts
type DraftService struct {
	drafts *db.DraftRepository
}

// NewDraftService creates a draft service
func NewDraftService(repo *db.Repository) *DraftService {
	return &DraftService{drafts: db.NewDraftRepository(repo)}
}

// ListDrafts lists the user's drafts, most recently updated first
func (s *DraftService) ListDrafts(ctx context.Context, userID int64) ([]models.Draft, error) {
	return s.drafts.ListByUser(ctx, userID)
}

// CreateDraft stores a new draft for the user
func (s *DraftService) CreateDraft(ctx context.Context, userID int64, in DraftInput) (*models.Draft, error) {
	draft := &models.Draft{
		UserID: userID,
		Body:   in.Body,
		Tags:   in.Tags,
		Images: in.Images,
	}
	if err := s.drafts.Create(ctx, draft); err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	return draft, nil
}

// UpdateDraft edits a draft. Nil when absent, ErrForbidden when userID does
// not own it.
func (s *DraftService) UpdateDraft(ctx context.Context, id, userID int64, in DraftInput) (*models.Draft, error) {
	draft, err := s.drafts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, nil
	}
	if draft.UserID != userID {
		return nil, ErrForbidden
	}

	draft.Body = in.Body
	draft.Tags = in.Tags
	draft.Images = in.Images
	if err := s.drafts.Update(ctx, draft); err != nil {
		return nil, fmt.Errorf("update draft: %w", err)
	}
	return draft, nil
}

// DeleteDraft removes a draft. False with nil error means it was already
// gone.
func (s *DraftService) DeleteDraft(ctx context.Context, id, userID int64) (bool, error) {
	draft, err := s.drafts.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if draft == nil {
		return false, nil
	}
	if draft.UserID != userID {
		return false, ErrForbidden
	}
	if err := s.drafts.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("delete draft: %w", err)
	}
	return true, nil
}
