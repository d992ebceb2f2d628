package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/hisakoh/campushub/core/task"
)

type taskRow struct {
	ID             int           `db:"id"`
	UserID         int           `db:"user_id"`
	RegistrationID sql.NullInt64 `db:"registration_id"`
	Title          string        `db:"title"`
	Description    string        `db:"description"`
	DueDate        sql.NullTime  `db:"due_date"`
	Priority       int           `db:"priority"`
	Status         string        `db:"status"`
	CreatedAt      time.Time     `db:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at"`
}

func (r taskRow) unpack() task.Task {
	return task.Task{
		ID:             r.ID,
		UserID:         r.UserID,
		RegistrationID: null.NewInt(int(r.RegistrationID.Int64), r.RegistrationID.Valid),
		Title:          r.Title,
		Description:    r.Description,
		DueDate:        null.NewTime(r.DueDate.Time, r.DueDate.Valid),
		Priority:       r.Priority,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type taskRepository struct {
	db *sqlx.DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *sqlx.DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	q := `
		INSERT INTO task (user_id, registration_id, title, description, due_date, priority, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, q, t.UserID, t.RegistrationID.Ptr(), t.Title, t.Description, t.DueDate.Ptr(),
		t.Priority, t.Status, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "inserting task")
	}
	return t, nil
}

func (repo *taskRepository) GetTask(ctx context.Context, id, userID int) (task.Task, error) {
	var row taskRow
	q := `SELECT * FROM task WHERE id = $1 AND user_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, id, userID); err != nil {
		return task.Task{}, trapNoRowsErr(err, task.ErrNotFound, "getting task")
	}
	return row.unpack(), nil
}

func (repo *taskRepository) QueryTasks(ctx context.Context, userID int) ([]task.Task, error) {
	var rows []taskRow
	q := `SELECT * FROM task WHERE user_id = $1 ORDER BY due_date NULLS LAST, priority DESC, id`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]task.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.unpack())
	}
	return tasks, nil
}

func (repo *taskRepository) QueryTasksDueBetween(ctx context.Context, from, until time.Time) ([]task.Task, error) {
	var rows []taskRow
	q := `SELECT * FROM task WHERE status = $1 AND due_date >= $2 AND due_date < $3 ORDER BY due_date, id`
	if err := repo.db.SelectContext(ctx, &rows, q, task.StatusOpen, from, until); err != nil {
		return nil, errors.Wrap(err, "querying due tasks")
	}
	tasks := make([]task.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.unpack())
	}
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	q := `
		UPDATE task SET
			registration_id = $1, title = $2, description = $3, due_date = $4,
			priority = $5, status = $6, updated_at = $7
		WHERE id = $8 AND user_id = $9`
	res, err := repo.db.ExecContext(
		ctx, q, t.RegistrationID.Ptr(), t.Title, t.Description, t.DueDate.Ptr(),
		t.Priority, t.Status, t.UpdatedAt, t.ID, t.UserID,
	)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "updating task")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

func (repo *taskRepository) DeleteTask(ctx context.Context, id, userID int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM task WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.Wrap(err, "deleting task")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return task.ErrNotFound
	}
	return nil
}
