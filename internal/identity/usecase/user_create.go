package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/taskdeck/internal/identity/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/idempotency"
)

type UserCreateInput struct {
	IdempotencyKey      string
	Username            string `validate:"required,username"`
	Email               string `validate:"omitempty,email"`
	Password            string `validate:"required,min=8,max=72"`
	PhoneNumber         string `validate:"required,max=32"`
	CountryCode         string `validate:"required,max=8"`
	ForcePasswordChange bool
}

type UserCreateOutput struct {
	ID       int64
	Username string
	Email    string
}

// UserCreate adds a user. The first user becomes the admin and needs no
// session; later users need the users:create permission.
func (s *Usecase) UserCreate(ctx context.Context, in UserCreateInput) (*UserCreateOutput, error) {
	ctx, span := s.startSpan(ctx, "UserCreate")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.CountryCode = strings.TrimSpace(in.CountryCode)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if in.IdempotencyKey == "" {
		return s.userCreate(ctx, in)
	}

	var out *UserCreateOutput
	raw, err := s.idemp.Remember(ctx, "identity:user_create:"+in.IdempotencyKey, func(ctx context.Context) ([]byte, error) {
		res, err := s.userCreate(ctx, in)
		if err != nil {
			return nil, err
		}
		out = res
		return json.Marshal(res)
	}, idempotency.WithRetryable(func(err error) bool { return goerror.CodeOf(err) == goerror.CodeInternal }))
	switch {
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		return nil, goerror.NewBusiness("A request with this idempotency key is in progress", goerror.CodeConflict)
	case errors.Is(err, idempotency.ErrAlreadyCompleted), errors.Is(err, idempotency.ErrAlreadyFailed):
		return nil, goerror.NewBusiness("A request with this idempotency key was already processed", goerror.CodeConflict)
	case err != nil:
		return nil, passThrough(err)
	}

	if out == nil {
		out = &UserCreateOutput{}
		if err := json.Unmarshal(raw, out); err != nil {
			slog.ErrorContext(ctx, "failed to decode idempotent user create", "error", err)
			return nil, goerror.NewServer(err)
		}
	}

	return out, nil
}

func (s *Usecase) userCreate(ctx context.Context, in UserCreateInput) (*UserCreateOutput, error) {
	count, err := s.repoDB.CountUsers(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count users", "error", err)
		return nil, goerror.NewServer(err)
	}

	isFirst := count == 0
	if !isFirst {
		if _, err := s.authenticatedAndAuthorized(ctx, "users", "create"); err != nil {
			return nil, err
		}
	}

	passHash, err := s.bcrypt.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, goerror.NewServer(err)
	}

	nu := entity.NewUser{
		ID:                    s.uid.Generate(),
		Username:              in.Username,
		Email:                 in.Email,
		PasswordHash:          string(passHash),
		PhoneNumber:           in.PhoneNumber,
		CountryCode:           in.CountryCode,
		MustUpdateCredentials: !isFirst && in.ForcePasswordChange,
		IsAdmin:               isFirst,
	}

	err = s.repoDB.CreateUser(ctx, nu)
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "user already exists", "username", nu.Username)
		return nil, goerror.NewBusiness("A user with that username or email already exists.", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create user", "username", nu.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	if isFirst {
		s.grantAdmin(ctx, nu.ID)
	}

	slog.InfoContext(ctx, "user created", "user_id", nu.ID, "is_admin", nu.IsAdmin)

	return &UserCreateOutput{ID: nu.ID, Username: nu.Username, Email: nu.Email}, nil
}
