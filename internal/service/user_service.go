package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id bson.ObjectID) error
}

// OwnedContent counts the documents of one kind a user owns. Users that still
// own content cannot be deleted.
type OwnedContent struct {
	Kind  string
	Count func(ctx context.Context, userID bson.ObjectID) (int64, error)
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	owned     []OwnedContent
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger, owned ...OwnedContent) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, owned: owned, validator: validate, logger: logger}
}

// List returns users for administrators.
func (s *UserService) List(ctx context.Context, query dto.UserQuery) ([]models.User, *models.Pagination, error) {
	filter := models.UserFilter{
		IsApproved: query.IsApproved,
		IsMentor:   query.IsMentor,
		Search:     query.Search,
		Page:       query.PageRequest,
	}
	if query.Role != "" {
		role := models.UserRole(query.Role)
		if !role.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid role filter")
		}
		filter.Role = &role
	}
	return s.list(ctx, filter)
}

// Directory lists approved alumni for any authenticated member.
func (s *UserService) Directory(ctx context.Context, query dto.UserQuery) ([]models.User, *models.Pagination, error) {
	role := models.RoleAlumni
	approved := true
	return s.list(ctx, models.UserFilter{
		Role:       &role,
		IsApproved: &approved,
		IsMentor:   query.IsMentor,
		Search:     query.Search,
		Page:       query.PageRequest,
	})
}

// Pending lists accounts waiting for approval.
func (s *UserService) Pending(ctx context.Context, page models.PageRequest) ([]models.User, *models.Pagination, error) {
	approved := false
	return s.list(ctx, models.UserFilter{IsApproved: &approved, Page: page})
}

func (s *UserService) list(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, filter.Page.Paginate(total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	userID, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to fetch user")
	}
	return user, nil
}

// Update applies profile changes. Members may edit their own profile;
// administrators may edit anyone and also change role and approval.
func (s *UserService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "update user")
	}
	if _, err := actorID(actor); err != nil {
		return nil, err
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownerOrAdmin(actor, user.ID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot modify another user's profile")
	}
	if !actor.IsAdmin() && (req.Role != nil || req.IsApproved != nil) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can change role or approval")
	}

	applyProfile(user, req)
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsApproved != nil {
		user.IsApproved = *req.IsApproved
	}
	if req.IsMentor != nil {
		user.IsMentor = *req.IsMentor
	}
	if user.IsMentor && user.Role != models.RoleAlumni {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only alumni can be mentors")
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, writeError(err, "user not found", "failed to update user")
	}
	return user, nil
}

// Delete removes a user that owns no jobs, workshops or posts.
func (s *UserService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators can delete users")
	}
	userID, err := parseID(id, "user")
	if err != nil {
		return err
	}
	if actor.UserID == userID.Hex() {
		return appErrors.Clone(appErrors.ErrConflict, "administrators cannot delete their own account")
	}

	var owns []string
	for _, content := range s.owned {
		n, err := content.Count(ctx, userID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check owned content")
		}
		if n > 0 {
			owns = append(owns, fmt.Sprintf("%d %s", n, content.Kind))
		}
	}
	if len(owns) > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "user still owns "+strings.Join(owns, ", "))
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return writeError(err, "user not found", "failed to delete user")
	}
	s.logger.Info("user deleted", zap.String("user_id", userID.Hex()), zap.String("deleted_by", actor.UserID))
	return nil
}

func applyProfile(user *models.User, req dto.UpdateUserRequest) {
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	p := &user.Profile
	if req.Bio != nil {
		p.Bio = *req.Bio
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.Location != nil {
		p.Location = *req.Location
	}
	if req.Avatar != nil {
		p.Avatar = *req.Avatar
	}
	if req.GraduationYear != nil {
		p.GraduationYear = *req.GraduationYear
	}
	if req.Major != nil {
		p.Major = *req.Major
	}
	if req.Company != nil {
		p.Company = *req.Company
	}
	if req.JobTitle != nil {
		p.JobTitle = *req.JobTitle
	}
	if req.Skills != nil {
		p.Skills = req.Skills
	}
	if req.LinkedIn != nil {
		p.LinkedIn = *req.LinkedIn
	}
}
