package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/project/entity"
)

var errSprintNotFound = goerror.NewBusiness("Sprint not found.", goerror.CodeNotFound)

type ListSprintsInput struct {
	ProjectID int64 `validate:"gt=0"`
}

// ListSprints returns the sprints of a project, newest first.
func (s *Usecase) ListSprints(ctx context.Context, in ListSprintsInput) ([]entity.Sprint, error) {
	ctx, span := s.startSpan(ctx, "ListSprints")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if _, err := s.requireProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	items, err := s.repoDB.ListSprints(ctx, in.ProjectID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list sprints", "project_id", in.ProjectID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}

type CreateSprintInput struct {
	IdempotencyKey string
	ProjectID      int64  `validate:"gt=0"`
	Name           string `validate:"max=120"`
	// Status outside the known set becomes planned.
	Status      string
	StartDate   string `validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `validate:"omitempty,datetime=2006-01-02"`
	Velocity    int    `validate:"gte=0"`
	ScopePoints int    `validate:"gte=0"`
	DonePoints  int    `validate:"gte=0"`
	Notes       string `validate:"max=4000"`
}

func (s *Usecase) CreateSprint(ctx context.Context, in CreateSprintInput) (*entity.Sprint, error) {
	ctx, span := s.startSpan(ctx, "CreateSprint")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.requireProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.EndDate = strings.TrimSpace(in.EndDate)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.Name == "" {
		return nil, goerror.NewBusiness("Sprint name is required.", goerror.CodeInvalidFormat)
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	key := ""
	if in.IdempotencyKey != "" {
		key = "project:sprint_create:" + strconv.FormatInt(clm.UserID, 10) + ":" + in.IdempotencyKey
	}
	out, err := once(ctx, s, key, func(ctx context.Context) (*entity.Sprint, error) {
		now := s.clock.Now()
		sp := entity.Sprint{
			ID:          s.uid.Generate(),
			ProjectID:   in.ProjectID,
			Name:        in.Name,
			Status:      entity.SprintStatusOrPlanned(in.Status),
			StartDate:   parseDate(in.StartDate),
			EndDate:     parseDate(in.EndDate),
			Velocity:    in.Velocity,
			ScopePoints: in.ScopePoints,
			DonePoints:  in.DonePoints,
			Notes:       in.Notes,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		err := s.repoDB.CreateSprint(ctx, sp)
		if errors.Is(err, goerror.ErrNotFound) {
			return nil, goerror.NewBusiness("Project not found.", goerror.CodeNotFound)
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo create sprint", "project_id", in.ProjectID, "error", err)
			return nil, goerror.NewServer(err)
		}

		return &sp, nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "sprint created", "sprint_id", out.ID, "project_id", out.ProjectID)

	return out, nil
}

// UpdateSprintInput mirrors a partial update. Nil fields are left alone and
// an empty date clears it.
type UpdateSprintInput struct {
	ID          int64   `validate:"gt=0"`
	Name        *string `validate:"omitempty,max=120"`
	Status      *string
	StartDate   *string `validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `validate:"omitempty,datetime=2006-01-02"`
	Velocity    *int    `validate:"omitempty,gte=0"`
	ScopePoints *int    `validate:"omitempty,gte=0"`
	DonePoints  *int    `validate:"omitempty,gte=0"`
	Notes       *string `validate:"omitempty,max=4000"`
}

// UpdateSprint applies a partial update. A blank name and an unknown status
// are ignored.
func (s *Usecase) UpdateSprint(ctx context.Context, in UpdateSprintInput) (*entity.Sprint, error) {
	ctx, span := s.startSpan(ctx, "UpdateSprint")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return nil, err
	}

	if _, err := s.requireSprint(ctx, in.ID); err != nil {
		return nil, err
	}

	in.Name = trimPtr(in.Name)
	in.Notes = trimPtr(in.Notes)
	in.StartDate = trimPtr(in.StartDate)
	in.EndDate = trimPtr(in.EndDate)
	clearStart := in.StartDate != nil && *in.StartDate == ""
	if clearStart {
		in.StartDate = nil
	}
	clearEnd := in.EndDate != nil && *in.EndDate == ""
	if clearEnd {
		in.EndDate = nil
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	patch := entity.SprintPatch{
		ClearStartDate: clearStart,
		ClearEndDate:   clearEnd,
		Velocity:       in.Velocity,
		ScopePoints:    in.ScopePoints,
		DonePoints:     in.DonePoints,
		Notes:          in.Notes,
	}
	if in.Name != nil && *in.Name != "" {
		patch.Name = in.Name
	}
	if in.Status != nil {
		if st, ok := entity.ParseSprintStatus(*in.Status); ok {
			patch.Status = &st
		}
	}
	if in.StartDate != nil {
		patch.StartDate = parseDate(*in.StartDate)
	}
	if in.EndDate != nil {
		patch.EndDate = parseDate(*in.EndDate)
	}

	out, err := s.repoDB.UpdateSprint(ctx, in.ID, patch)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errSprintNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo update sprint", "sprint_id", in.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return out, nil
}

type SprintInput struct {
	ID int64 `validate:"gt=0"`
}

func (s *Usecase) DeleteSprint(ctx context.Context, in SprintInput) error {
	ctx, span := s.startSpan(ctx, "DeleteSprint")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	err := s.repoDB.DeleteSprint(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return errSprintNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete sprint", "sprint_id", in.ID, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "sprint deleted", "sprint_id", in.ID)

	return nil
}

func (s *Usecase) requireSprint(ctx context.Context, id int64) (*entity.Sprint, error) {
	if id <= 0 {
		return nil, errSprintNotFound
	}
	sp, err := s.repoDB.GetSprint(ctx, id)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errSprintNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get sprint", "sprint_id", id, "error", err)
		return nil, goerror.NewServer(err)
	}
	return sp, nil
}
