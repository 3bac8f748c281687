package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/taskdeck/internal/identity/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/jwt"
)

type MeOutput struct {
	ID                    int64
	Username              string
	Email                 string
	PhoneHint             string
	IsAdmin               bool
	MustUpdateCredentials bool
	HasTOTP               bool
}

// Me returns the user behind the current session.
func (s *Usecase) Me(ctx context.Context) (*MeOutput, error) {
	ctx, span := s.startSpan(ctx, "Me")
	defer span.End()

	user, err := s.sessionUser(ctx)
	if err != nil {
		return nil, err
	}

	return &MeOutput{
		ID:                    user.ID,
		Username:              user.Username,
		Email:                 user.Email,
		PhoneHint:             entity.PhoneHint(user.CountryCode, user.PhoneNumber),
		IsAdmin:               user.IsAdmin,
		MustUpdateCredentials: user.MustUpdateCredentials,
		HasTOTP:               user.HasTOTP(),
	}, nil
}

// Logout ends the current session. Sessions are stateless, so only the
// cookie is cleared by the caller.
func (s *Usecase) Logout(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Logout")
	defer span.End()

	if clm := jwt.GetAuth(ctx); clm != nil {
		slog.InfoContext(ctx, "user logged out", "user_id", clm.UserID)
	}

	return nil
}
