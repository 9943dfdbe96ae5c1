package users

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

// ErrBadCredentials is returned by Authenticate for both unknown users and
// wrong passwords, so callers cannot probe for usernames.
var ErrBadCredentials = errors.New("invalid username or password")

type CreateRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64,alphanum"`
	Name     string `json:"name" validate:"required,max=128"`
	Role     string `json:"role" validate:"required,oneof=owner admin mekanik"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type UpdateRequest struct {
	Name     string `json:"name" validate:"omitempty,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=owner admin mekanik"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

type Service struct {
	repo     *Repository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(repo *Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validate: validator.New(), logger: logger}
}

// Authenticate checks a username/password pair and returns the account.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.repo.ByUsername(ctx, username)
	if errors.Is(err, shared.ErrNotFound) {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, username string) (User, error) {
	return s.repo.ByUsername(ctx, username)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (User, error) {
	if err := s.validate.Struct(req); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	u, err := s.repo.Create(ctx, User{
		Username:     req.Username,
		Name:         req.Name,
		Role:         req.Role,
		PasswordHash: string(hash),
	})
	if err != nil {
		return User{}, err
	}
	s.logger.Info("user created", "username", u.Username, "role", u.Role)
	return u, nil
}

func (s *Service) Update(ctx context.Context, username string, req UpdateRequest) (User, error) {
	if err := s.validate.Struct(req); err != nil {
		return User{}, err
	}
	u, err := s.repo.ByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	if req.Name != "" {
		u.Name = req.Name
	}
	if req.Role != "" {
		u.Role = req.Role
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		u.PasswordHash = string(hash)
	}
	return s.repo.Update(ctx, u)
}

func (s *Service) Delete(ctx context.Context, actor shared.Actor, username string) error {
	if actor.Username == username {
		return shared.Invalidf("cannot delete own account")
	}
	return s.repo.Delete(ctx, username)
}

// Bootstrap seeds the initial owner account when the users table is empty.
func (s *Service) Bootstrap(ctx context.Context, username, password string) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = s.Create(ctx, CreateRequest{
		Username: username,
		Name:     "Owner",
		Role:     shared.RoleOwner,
		Password: password,
	})
	if err != nil {
		return err
	}
	s.logger.Info("bootstrap owner account created", "username", username)
	return nil
}
