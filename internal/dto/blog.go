package dto

import "github.com/noah-isme/alumni-connect-api/internal/models"

// CreateBlogRequest defines the payload for writing a post. Posts start as
// drafts unless Publish is set.
type CreateBlogRequest struct {
	Title      string   `json:"title" validate:"required,max=200"`
	Content    string   `json:"content" validate:"required"`
	Excerpt    string   `json:"excerpt" validate:"omitempty,max=500"`
	Category   string   `json:"category" validate:"omitempty,max=60"`
	Tags       []string `json:"tags" validate:"omitempty,max=20,dive,max=40"`
	CoverImage string   `json:"coverImage" validate:"omitempty,max=512"`
	Publish    bool     `json:"publish"`
}

type UpdateBlogRequest struct {
	Title      *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Content    *string  `json:"content" validate:"omitempty,min=1"`
	Excerpt    *string  `json:"excerpt" validate:"omitempty,max=500"`
	Category   *string  `json:"category" validate:"omitempty,max=60"`
	Tags       []string `json:"tags" validate:"omitempty,max=20,dive,max=40"`
	CoverImage *string  `json:"coverImage" validate:"omitempty,max=512"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type ModerateCommentRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

// LikeResult reports the like state after a toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

type BlogQuery struct {
	Status   string `form:"status"`
	Author   string `form:"author"`
	Tag      string `form:"tag"`
	Category string `form:"category"`
	Search   string `form:"search"`
	models.PageRequest
}
