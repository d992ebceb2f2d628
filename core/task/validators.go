package task

import (
	"github.com/volatiletech/null/v8"

	"github.com/hisakoh/campushub/core"
)

type (
	NewTask struct {
		Title          string    `json:"title" validate:"required,max=200"`
		Description    string    `json:"description" validate:"max=1000"`
		RegistrationID null.Int  `json:"registration_id"`
		DueDate        null.Time `json:"due_date"`
		Priority       int       `json:"priority" validate:"min=0,max=3"`
	}

	UpdateTask struct {
		Title       string     `json:"title" validate:"omitempty,max=200"`
		Description *string    `json:"description" validate:"omitempty,max=1000"`
		DueDate     *null.Time `json:"due_date"`
		Priority    int        `json:"priority" validate:"min=0,max=3"`
		Status      string     `json:"status" validate:"omitempty,oneof=open done"`
	}
)

func (nt NewTask) Validate() error { return core.Validate.Struct(nt) }

func (ut UpdateTask) Validate() error { return core.Validate.Struct(ut) }
