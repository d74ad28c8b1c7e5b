package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/repository"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

type blogRepository interface {
	Create(ctx context.Context, b *models.Blog) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Blog, error)
	List(ctx context.Context, filter models.BlogFilter) ([]models.Blog, int64, error)
	Update(ctx context.Context, b *models.Blog) error
	Delete(ctx context.Context, id bson.ObjectID) error
	ToggleLike(ctx context.Context, id, userID bson.ObjectID) (*models.Blog, bool, error)
	AddComment(ctx context.Context, id bson.ObjectID, comment models.BlogComment) (*models.Blog, error)
	AddReply(ctx context.Context, id, commentID bson.ObjectID, reply models.BlogReply) (*models.Blog, error)
	ModerateComment(ctx context.Context, id, commentID bson.ObjectID, approved bool) (*models.Blog, error)
}

// BlogService manages posts and their likes, comments and replies.
type BlogService struct {
	repo      blogRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

func NewBlogService(repo blogRepository, validate *validator.Validate, logger *zap.Logger) *BlogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BlogService{repo: repo, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns published posts plus, for a signed-in author, their own
// drafts and archived posts.
func (s *BlogService) List(ctx context.Context, actor *models.JWTClaims, query dto.BlogQuery) ([]models.Blog, *models.Pagination, error) {
	filter := models.BlogFilter{
		Status:   models.BlogStatus(query.Status),
		Tag:      query.Tag,
		Category: query.Category,
		Search:   query.Search,
		Page:     query.PageRequest,
	}
	switch filter.Status {
	case "", models.BlogDraft, models.BlogPublished, models.BlogArchived:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid blog status")
	}
	if query.Author != "" {
		author, err := parseID(query.Author, "author")
		if err != nil {
			return nil, nil, err
		}
		filter.Author = &author
	}
	if actor != nil && !actor.IsAdmin() {
		if viewer, ok := models.ParseID(actor.UserID); ok {
			filter.Viewer = &viewer
		}
	}

	blogs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blogs")
	}
	if blogs == nil {
		blogs = []models.Blog{}
	}
	for i := range blogs {
		hideUnapproved(&blogs[i], actor)
	}
	return blogs, filter.Page.Paginate(total), nil
}

// Get returns a post. Unpublished posts are only visible to the author and admins.
func (s *BlogService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Blog, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BlogPublished && !ownerOrAdmin(actor, b.Author) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "blog not found")
	}
	hideUnapproved(b, actor)
	return b, nil
}

func (s *BlogService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateBlogRequest) (*models.Blog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "blog")
	}
	author, err := actorID(actor)
	if err != nil {
		return nil, err
	}

	b := &models.Blog{
		Title:      strings.TrimSpace(req.Title),
		Content:    req.Content,
		Excerpt:    req.Excerpt,
		Category:   req.Category,
		Tags:       req.Tags,
		CoverImage: req.CoverImage,
		Author:     author,
		Status:     models.BlogDraft,
	}
	if req.Publish {
		now := s.now()
		b.Status = models.BlogPublished
		b.PublishedAt = &now
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create blog")
	}
	return b, nil
}

func (s *BlogService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateBlogRequest) (*models.Blog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "blog")
	}
	b, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		b.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		b.Content = *req.Content
	}
	if req.Excerpt != nil {
		b.Excerpt = *req.Excerpt
	}
	if req.Category != nil {
		b.Category = *req.Category
	}
	if req.Tags != nil {
		b.Tags = req.Tags
	}
	if req.CoverImage != nil {
		b.CoverImage = *req.CoverImage
	}

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, writeError(err, "blog not found", "failed to update blog")
	}
	return b, nil
}

func (s *BlogService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	b, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, b.ID); err != nil {
		return writeError(err, "blog not found", "failed to delete blog")
	}
	return nil
}

// Publish makes a post public. The first publication time is kept when a
// post is published again after being archived.
func (s *BlogService) Publish(ctx context.Context, actor *models.JWTClaims, id string) (*models.Blog, error) {
	return s.setStatus(ctx, actor, id, models.BlogPublished)
}

func (s *BlogService) Archive(ctx context.Context, actor *models.JWTClaims, id string) (*models.Blog, error) {
	return s.setStatus(ctx, actor, id, models.BlogArchived)
}

func (s *BlogService) setStatus(ctx context.Context, actor *models.JWTClaims, id string, status models.BlogStatus) (*models.Blog, error) {
	b, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if b.Status == status {
		return b, nil
	}
	b.Status = status
	if status == models.BlogPublished && b.PublishedAt == nil {
		now := s.now()
		b.PublishedAt = &now
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, writeError(err, "blog not found", "failed to update blog status")
	}
	return b, nil
}

// ToggleLike likes a published post, or removes the caller's like.
func (s *BlogService) ToggleLike(ctx context.Context, actor *models.JWTClaims, id string) (*dto.LikeResult, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	b, err := s.published(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, liked, err := s.repo.ToggleLike(ctx, b.ID, userID)
	if err != nil {
		return nil, writeError(err, "blog not found", "failed to toggle like")
	}
	return &dto.LikeResult{Liked: liked, LikeCount: updated.LikeCount()}, nil
}

// Comment adds a comment to a published post. Comments are visible
// immediately; administrators can hide them through moderation.
func (s *BlogService) Comment(ctx context.Context, actor *models.JWTClaims, id string, req dto.CommentRequest) (*models.BlogComment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "comment")
	}
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	b, err := s.published(ctx, id)
	if err != nil {
		return nil, err
	}

	comment := models.BlogComment{
		ID:         bson.NewObjectID(),
		User:       userID,
		Content:    strings.TrimSpace(req.Content),
		IsApproved: true,
		Replies:    []models.BlogReply{},
		CreatedAt:  s.now(),
	}
	if _, err := s.repo.AddComment(ctx, b.ID, comment); err != nil {
		return nil, writeError(err, "blog not found", "failed to add comment")
	}
	return &comment, nil
}

func (s *BlogService) Reply(ctx context.Context, actor *models.JWTClaims, id, commentID string, req dto.CommentRequest) (*models.BlogReply, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "reply")
	}
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	parent, err := parseID(commentID, "comment")
	if err != nil {
		return nil, err
	}
	b, err := s.published(ctx, id)
	if err != nil {
		return nil, err
	}

	reply := models.BlogReply{ID: bson.NewObjectID(), User: userID, Content: strings.TrimSpace(req.Content), CreatedAt: s.now()}
	if _, err := s.repo.AddReply(ctx, b.ID, parent, reply); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return nil, writeError(err, "blog not found", "failed to add reply")
	}
	return &reply, nil
}

// Moderate toggles the visibility of a comment. Admin only.
func (s *BlogService) Moderate(ctx context.Context, actor *models.JWTClaims, id, commentID string, req dto.ModerateCommentRequest) (*models.Blog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "moderation")
	}
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can moderate comments")
	}
	blogID, err := parseID(id, "blog")
	if err != nil {
		return nil, err
	}
	target, err := parseID(commentID, "comment")
	if err != nil {
		return nil, err
	}
	b, err := s.repo.ModerateComment(ctx, blogID, target, *req.Approved)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return nil, writeError(err, "blog not found", "failed to moderate comment")
	}
	return b, nil
}

func (s *BlogService) load(ctx context.Context, id string) (*models.Blog, error) {
	blogID, err := parseID(id, "blog")
	if err != nil {
		return nil, err
	}
	b, err := s.repo.FindByID(ctx, blogID)
	if err != nil {
		return nil, lookupError(err, "blog not found", "failed to load blog")
	}
	return b, nil
}

func (s *BlogService) owned(ctx context.Context, actor *models.JWTClaims, id string) (*models.Blog, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownerOrAdmin(actor, b.Author) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author can modify this blog")
	}
	return b, nil
}

func (s *BlogService) published(ctx context.Context, id string) (*models.Blog, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BlogPublished {
		return nil, appErrors.Clone(appErrors.ErrConflict, "blog is not published")
	}
	return b, nil
}

// hideUnapproved drops moderated comments unless the viewer is an admin,
// the post author or the comment author.
func hideUnapproved(b *models.Blog, actor *models.JWTClaims) {
	if ownerOrAdmin(actor, b.Author) {
		return
	}
	visible := make([]models.BlogComment, 0, len(b.Comments))
	for _, c := range b.Comments {
		if c.IsApproved || (actor != nil && actor.UserID == c.User.Hex()) {
			visible = append(visible, c)
		}
	}
	b.Comments = visible
}
