package service

import (
	"strconv"
	"time"

	"github.com/today-red-note/rednote/internal/feed"
	"github.com/today-red-note/rednote/internal/models"
	"github.com/today-red-note/rednote/internal/storage"
)

// AuthorView is the denormalized author of a post view
type AuthorView struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// ImageView is one display-ready post image
type ImageView struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// RefView is a named reference (topic or tag)
type RefView struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// PostView is the display shape of a post. List views carry the preview
// text only; detail views carry the full body.
type PostView struct {
	ID          string      `json:"_id"`
	Author      *AuthorView `json:"author,omitempty"`
	Body        string      `json:"body,omitempty"`
	BodyPreview string      `json:"bodyPreview"`
	Images      []ImageView `json:"images"`
	CoverRatio  string      `json:"coverRatio"`
	Topic       *RefView    `json:"topic,omitempty"`
	Tags        []RefView   `json:"tags,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// PaginationView mirrors the wire pagination block
type PaginationView struct {
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
	Limit       int     `json:"limit"`
}

// PageView is one page of post views plus its pagination block
type PageView struct {
	Posts      []PostView     `json:"posts"`
	Pagination PaginationView `json:"pagination"`
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// NewPostView formats a post for display, rewriting image URLs to the given
// quality rendition.
func NewPostView(p *models.Post, quality storage.Quality, listMode bool) PostView {
	view := PostView{
		ID:          formatID(p.ID),
		BodyPreview: p.BodyPreview,
		CoverRatio:  p.CoverRatio,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Images:      make([]ImageView, 0, len(p.Images)),
	}
	if !listMode {
		view.Body = p.Body
	}
	if p.Author != nil {
		view.Author = &AuthorView{
			ID:       formatID(p.Author.ID),
			Username: p.Author.Username,
			Avatar:   p.Author.Avatar,
		}
	}
	if p.Topic != nil {
		view.Topic = &RefView{ID: formatID(p.Topic.ID), Name: p.Topic.Name}
	}
	for _, tag := range p.Tags {
		view.Tags = append(view.Tags, RefView{ID: formatID(tag.ID), Name: tag.Name})
	}
	for _, img := range p.Images {
		view.Images = append(view.Images, ImageView{
			URL:    storage.ProcessImageURL(img.URL, quality),
			Width:  img.Width,
			Height: img.Height,
		})
	}
	return view
}

// NewPageView formats an assembled feed page for the wire
func NewPageView(page *feed.Page, quality storage.Quality) PageView {
	views := make([]PostView, 0, len(page.Posts))
	for i := range page.Posts {
		views = append(views, NewPostView(&page.Posts[i], quality, true))
	}
	pagination := PaginationView{
		HasNextPage: page.HasNextPage,
		Limit:       page.Limit,
	}
	if page.NextCursor != "" {
		cursor := page.NextCursor
		pagination.NextCursor = &cursor
	}
	return PageView{Posts: views, Pagination: pagination}
}
