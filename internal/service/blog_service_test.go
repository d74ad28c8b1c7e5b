package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/repository"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

type memoryBlogs struct {
	mu    sync.Mutex
	blogs map[bson.ObjectID]*models.Blog
}

func newMemoryBlogs() *memoryBlogs {
	return &memoryBlogs{blogs: make(map[bson.ObjectID]*models.Blog)}
}

func cloneBlog(b *models.Blog) *models.Blog {
	copied := *b
	copied.Likes = append([]bson.ObjectID{}, b.Likes...)
	copied.Comments = make([]models.BlogComment, len(b.Comments))
	for i, c := range b.Comments {
		c.Replies = append([]models.BlogReply{}, c.Replies...)
		copied.Comments[i] = c
	}
	return &copied
}

func (m *memoryBlogs) Create(ctx context.Context, b *models.Blog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = bson.NewObjectID()
	b.Version = 1
	m.blogs[b.ID] = cloneBlog(b)
	return nil
}

func (m *memoryBlogs) FindByID(ctx context.Context, id bson.ObjectID) (*models.Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blogs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneBlog(b), nil
}

func (m *memoryBlogs) List(ctx context.Context, filter models.BlogFilter) ([]models.Blog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Blog
	for _, b := range m.blogs {
		visible := b.Status == models.BlogPublished || (filter.Viewer != nil && b.Author == *filter.Viewer)
		if filter.Status != "" {
			visible = visible && b.Status == filter.Status
		}
		if visible {
			out = append(out, *cloneBlog(b))
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryBlogs) Update(ctx context.Context, b *models.Blog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.blogs[b.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != b.Version {
		return repository.ErrConflict
	}
	b.Version++
	m.blogs[b.ID] = cloneBlog(b)
	return nil
}

func (m *memoryBlogs) Delete(ctx context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blogs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.blogs, id)
	return nil
}

func (m *memoryBlogs) ToggleLike(ctx context.Context, id, userID bson.ObjectID) (*models.Blog, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blogs[id]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	b.Version++
	if b.LikedBy(userID) {
		kept := b.Likes[:0]
		for _, like := range b.Likes {
			if like != userID {
				kept = append(kept, like)
			}
		}
		b.Likes = kept
		return cloneBlog(b), false, nil
	}
	b.Likes = append(b.Likes, userID)
	return cloneBlog(b), true, nil
}

func (m *memoryBlogs) AddComment(ctx context.Context, id bson.ObjectID, comment models.BlogComment) (*models.Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blogs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b.Comments = append(b.Comments, comment)
	b.Version++
	return cloneBlog(b), nil
}

func (m *memoryBlogs) AddReply(ctx context.Context, id, commentID bson.ObjectID, reply models.BlogReply) (*models.Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blogs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c, ok := b.Comment(commentID)
	if !ok {
		return nil, repository.ErrConflict
	}
	c.Replies = append(c.Replies, reply)
	b.Version++
	return cloneBlog(b), nil
}

func (m *memoryBlogs) ModerateComment(ctx context.Context, id, commentID bson.ObjectID, approved bool) (*models.Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blogs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c, ok := b.Comment(commentID)
	if !ok {
		return nil, repository.ErrConflict
	}
	c.IsApproved = approved
	b.Version++
	return cloneBlog(b), nil
}

func blogFixture(t *testing.T, publish bool) (*BlogService, *memoryBlogs, *models.JWTClaims, *models.Blog) {
	t.Helper()
	repo := newMemoryBlogs()
	svc := NewBlogService(repo, nil, nil)
	author := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleAlumni, IsApproved: true})
	b, err := svc.Create(context.Background(), author, dto.CreateBlogRequest{
		Title:   "Life after graduation",
		Content: "A few thoughts on the first year in industry.",
		Publish: publish,
	})
	require.NoError(t, err)
	return svc, repo, author, b
}

func TestBlogServiceDraftVisibility(t *testing.T) {
	svc, _, author, draft := blogFixture(t, false)
	ctx := context.Background()
	reader := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleStudent})

	assert.Equal(t, models.BlogDraft, draft.Status)
	assert.Nil(t, draft.PublishedAt)

	_, err := svc.Get(ctx, reader, draft.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	mine, _, err := svc.List(ctx, author, dto.BlogQuery{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, _, err := svc.List(ctx, reader, dto.BlogQuery{})
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestBlogServicePublishKeepsFirstTimestamp(t *testing.T) {
	svc, _, author, draft := blogFixture(t, false)
	ctx := context.Background()
	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }

	published, err := svc.Publish(ctx, author, draft.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	assert.Equal(t, first, *published.PublishedAt)

	svc.now = func() time.Time { return first.Add(48 * time.Hour) }
	_, err = svc.Archive(ctx, author, draft.ID.Hex())
	require.NoError(t, err)
	republished, err := svc.Publish(ctx, author, draft.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.BlogPublished, republished.Status)
	assert.Equal(t, first, *republished.PublishedAt)
}

func TestBlogServiceToggleLike(t *testing.T) {
	svc, _, _, b := blogFixture(t, true)
	ctx := context.Background()
	reader := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleStudent})

	result, err := svc.ToggleLike(ctx, reader, b.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, &dto.LikeResult{Liked: true, LikeCount: 1}, result)

	result, err = svc.ToggleLike(ctx, reader, b.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, &dto.LikeResult{Liked: false, LikeCount: 0}, result)
}

func TestBlogServiceCommentsAndModeration(t *testing.T) {
	svc, repo, author, b := blogFixture(t, true)
	ctx := context.Background()
	reader := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleStudent})
	other := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleStudent})
	admin := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleAdmin})

	comment, err := svc.Comment(ctx, reader, b.ID.Hex(), dto.CommentRequest{Content: "Great read"})
	require.NoError(t, err)
	assert.True(t, comment.IsApproved)

	_, err = svc.Reply(ctx, author, b.ID.Hex(), comment.ID.Hex(), dto.CommentRequest{Content: "Thanks!"})
	require.NoError(t, err)
	_, err = svc.Reply(ctx, author, b.ID.Hex(), bson.NewObjectID().Hex(), dto.CommentRequest{Content: "?"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Moderate(ctx, author, b.ID.Hex(), comment.ID.Hex(), dto.ModerateCommentRequest{Approved: ptr(false)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	moderated, err := svc.Moderate(ctx, admin, b.ID.Hex(), comment.ID.Hex(), dto.ModerateCommentRequest{Approved: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, 0, moderated.CommentCount())
	assert.Len(t, repo.blogs[b.ID].Comments[0].Replies, 1)

	asOther, err := svc.Get(ctx, other, b.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, asOther.Comments)

	asCommenter, err := svc.Get(ctx, reader, b.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, asCommenter.Comments, 1)
}

func TestBlogServiceRejectsInteractionOnDrafts(t *testing.T) {
	svc, _, _, draft := blogFixture(t, false)
	reader := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleStudent})

	_, err := svc.ToggleLike(context.Background(), reader, draft.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestBlogServiceOnlyAuthorEdits(t *testing.T) {
	svc, repo, author, b := blogFixture(t, true)
	ctx := context.Background()
	reader := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleStudent})

	_, err := svc.Update(ctx, reader, b.ID.Hex(), dto.UpdateBlogRequest{Title: ptr("Hijacked")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(ctx, author, b.ID.Hex()))
	assert.Empty(t, repo.blogs)
}
