package service

import (
	"context"
	"errors"
	"strings"

	"travelbooking/internal/auth"
	"travelbooking/internal/domain"
	"travelbooking/internal/models"

	"github.com/rs/zerolog"
)

const minPasswordLength = 6

type UserService struct {
	users      domain.UserStore
	gate       *auth.Gate
	bcryptCost int
	logger     *zerolog.Logger
}

func NewUserService(users domain.UserStore, gate *auth.Gate, bcryptCost int, logger *zerolog.Logger) *UserService {
	return &UserService{
		users:      users,
		gate:       gate,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

type RegisterInput struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// Register creates an account. Only an admin may create admin or agent accounts;
// caller may be nil for self sign-up.
func (s *UserService) Register(ctx context.Context, caller *auth.Caller, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if in.Username == "" {
		return nil, domain.Errorf(domain.ErrValidation, "username is required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, domain.Errorf(domain.ErrValidation, "a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, domain.Errorf(domain.ErrValidation, "password must be at least %d characters", minPasswordLength)
	}

	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.IsValid() {
		return nil, domain.Errorf(domain.ErrValidation, "unknown role %s", role)
	}
	if role != models.RoleUser && !caller.IsAdmin() {
		return nil, domain.Errorf(domain.ErrForbidden, "only admins can create %s accounts", role)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("User registered")
	return user, nil
}

// Login verifies credentials and issues a bearer token. Unknown emails and wrong
// passwords fail the same way.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.Errorf(domain.ErrUnauthenticated, "invalid credentials")
		}
		return "", nil, err
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Stored password hash is unreadable")
		return "", nil, domain.Errorf(domain.ErrUnauthenticated, "invalid credentials")
	}
	if !ok {
		return "", nil, domain.Errorf(domain.ErrUnauthenticated, "invalid credentials")
	}

	token, err := s.gate.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *UserService) GetUser(ctx context.Context, caller *auth.Caller, id string) (*models.User, error) {
	if err := auth.Can(caller, auth.CapViewHistory, id); err != nil {
		return nil, err
	}
	return s.users.GetUserByID(ctx, id)
}
