package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/pkg/response"
)

type blogService interface {
	List(ctx context.Context, actor *models.JWTClaims, query dto.BlogQuery) ([]models.Blog, *models.Pagination, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Blog, error)
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateBlogRequest) (*models.Blog, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateBlogRequest) (*models.Blog, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	Publish(ctx context.Context, actor *models.JWTClaims, id string) (*models.Blog, error)
	Archive(ctx context.Context, actor *models.JWTClaims, id string) (*models.Blog, error)
	ToggleLike(ctx context.Context, actor *models.JWTClaims, id string) (*dto.LikeResult, error)
	Comment(ctx context.Context, actor *models.JWTClaims, id string, req dto.CommentRequest) (*models.BlogComment, error)
	Reply(ctx context.Context, actor *models.JWTClaims, id, commentID string, req dto.CommentRequest) (*models.BlogReply, error)
	Moderate(ctx context.Context, actor *models.JWTClaims, id, commentID string, req dto.ModerateCommentRequest) (*models.Blog, error)
}

// BlogHandler exposes blog posts, likes and comment threads.
type BlogHandler struct {
	service blogService
}

func NewBlogHandler(svc blogService) *BlogHandler {
	return &BlogHandler{service: svc}
}

// List godoc
// @Summary List blogs
// @Description Published posts, plus the caller's own drafts when filtering by author
// @Tags Blogs
// @Produce json
// @Param status query string false "Status filter"
// @Param author query string false "Author ID"
// @Param tag query string false "Tag"
// @Param category query string false "Category"
// @Param search query string false "Search term"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /blogs [get]
func (h *BlogHandler) List(c *gin.Context) {
	var query dto.BlogQuery
	if !bindQuery(c, &query) {
		return
	}
	blogs, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blogs, pagination)
}

// Get godoc
// @Summary Get blog
// @Tags Blogs
// @Produce json
// @Param id path string true "Blog ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /blogs/{id} [get]
func (h *BlogHandler) Get(c *gin.Context) {
	blog, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, blog)
}

// Create godoc
// @Summary Create blog
// @Tags Blogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateBlogRequest true "Blog payload"
// @Success 201 {object} response.Envelope
// @Router /blogs [post]
func (h *BlogHandler) Create(c *gin.Context) {
	var req dto.CreateBlogRequest
	if !bindJSON(c, &req, "blog") {
		return
	}
	blog, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, blog)
}

// Update godoc
// @Summary Update blog
// @Tags Blogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Blog ID"
// @Param payload body dto.UpdateBlogRequest true "Blog payload"
// @Success 200 {object} response.Envelope
// @Router /blogs/{id} [put]
func (h *BlogHandler) Update(c *gin.Context) {
	var req dto.UpdateBlogRequest
	if !bindJSON(c, &req, "blog") {
		return
	}
	blog, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, blog)
}

// Delete godoc
// @Summary Delete blog
// @Tags Blogs
// @Security BearerAuth
// @Param id path string true "Blog ID"
// @Success 204 {object} response.Envelope
// @Router /blogs/{id} [delete]
func (h *BlogHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Publish godoc
// @Summary Publish blog
// @Tags Blogs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Blog ID"
// @Success 200 {object} response.Envelope
// @Router /blogs/{id}/publish [post]
func (h *BlogHandler) Publish(c *gin.Context) {
	h.transition(c, h.service.Publish)
}

// Archive godoc
// @Summary Archive blog
// @Tags Blogs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Blog ID"
// @Success 200 {object} response.Envelope
// @Router /blogs/{id}/archive [post]
func (h *BlogHandler) Archive(c *gin.Context) {
	h.transition(c, h.service.Archive)
}

func (h *BlogHandler) transition(c *gin.Context, fn func(context.Context, *models.JWTClaims, string) (*models.Blog, error)) {
	blog, err := fn(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, blog)
}

// Like godoc
// @Summary Toggle like
// @Tags Blogs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Blog ID"
// @Success 200 {object} response.Envelope
// @Router /blogs/{id}/like [post]
func (h *BlogHandler) Like(c *gin.Context) {
	result, err := h.service.ToggleLike(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Comment godoc
// @Summary Comment on blog
// @Tags Blogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Blog ID"
// @Param payload body dto.CommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Router /blogs/{id}/comments [post]
func (h *BlogHandler) Comment(c *gin.Context) {
	var req dto.CommentRequest
	if !bindJSON(c, &req, "comment") {
		return
	}
	comment, err := h.service.Comment(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// Reply godoc
// @Summary Reply to comment
// @Tags Blogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Blog ID"
// @Param commentId path string true "Comment ID"
// @Param payload body dto.CommentRequest true "Reply"
// @Success 201 {object} response.Envelope
// @Router /blogs/{id}/comments/{commentId}/replies [post]
func (h *BlogHandler) Reply(c *gin.Context) {
	var req dto.CommentRequest
	if !bindJSON(c, &req, "reply") {
		return
	}
	reply, err := h.service.Reply(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("commentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reply)
}

// Moderate godoc
// @Summary Moderate comment
// @Tags Blogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Blog ID"
// @Param commentId path string true "Comment ID"
// @Param payload body dto.ModerateCommentRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /blogs/{id}/comments/{commentId}/moderate [put]
func (h *BlogHandler) Moderate(c *gin.Context) {
	var req dto.ModerateCommentRequest
	if !bindJSON(c, &req, "moderation") {
		return
	}
	blog, err := h.service.Moderate(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("commentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, blog)
}
