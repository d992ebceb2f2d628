package task

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hisakoh/campushub/core"
)

var (
	// errors
	ErrNotFound = errors.New("task not found")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateTask(ctx context.Context, t Task) (Task, error)
		GetTask(ctx context.Context, id, userID int) (Task, error)
		QueryTasks(ctx context.Context, userID int) ([]Task, error)
		// QueryTasksDueBetween returns every user's open tasks with a due
		// date inside [from, until).
		QueryTasksDueBetween(ctx context.Context, from, until time.Time) ([]Task, error)
		UpdateTask(ctx context.Context, t Task) (Task, error)
		DeleteTask(ctx context.Context, id, userID int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, userID int, nt NewTask) (Task, error) {
	if err := nt.Validate(); err != nil {
		return Task{}, err
	}
	now := nowFunc().UTC()
	t := Task{
		UserID:         userID,
		RegistrationID: nt.RegistrationID,
		Title:          core.CleanString(nt.Title),
		Description:    core.CleanString(nt.Description),
		DueDate:        nt.DueDate,
		Priority:       nt.Priority,
		Status:         StatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if t.Priority == 0 {
		t.Priority = PriorityNormal
	}
	return svc.repo.CreateTask(ctx, t)
}

func (svc *Service) Get(ctx context.Context, id, userID int) (Task, error) {
	return svc.repo.GetTask(ctx, id, userID)
}

func (svc *Service) Query(ctx context.Context, userID int) ([]Task, error) {
	return svc.repo.QueryTasks(ctx, userID)
}

func (svc *Service) DueBetween(ctx context.Context, from, until time.Time) ([]Task, error) {
	return svc.repo.QueryTasksDueBetween(ctx, from, until)
}

func (svc *Service) Update(ctx context.Context, id, userID int, ut UpdateTask) (Task, error) {
	if err := ut.Validate(); err != nil {
		return Task{}, err
	}
	t, err := svc.repo.GetTask(ctx, id, userID)
	if err != nil {
		return Task{}, err
	}
	if ut.Title != "" {
		t.Title = core.CleanString(ut.Title)
	}
	if ut.Description != nil {
		t.Description = core.CleanString(*ut.Description)
	}
	if ut.DueDate != nil {
		t.DueDate = *ut.DueDate
	}
	if ut.Priority != 0 {
		t.Priority = ut.Priority
	}
	if ut.Status != "" {
		t.Status = ut.Status
	}
	t.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateTask(ctx, t)
}

func (svc *Service) Delete(ctx context.Context, id, userID int) error {
	return svc.repo.DeleteTask(ctx, id, userID)
}
