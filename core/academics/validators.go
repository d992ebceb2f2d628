package academics

import (
	"github.com/volatiletech/null/v8"

	"github.com/hisakoh/campushub/core"
)

type (
	NewLecture struct {
		Name             string      `json:"name" validate:"required,max=200"`
		Room             string      `json:"room" validate:"max=50"`
		Instructor       string      `json:"instructor" validate:"max=200"`
		Note             string      `json:"note" validate:"max=300"`
		Grade            int         `json:"grade" validate:"min=0,max=6"`
		SyllabusID       null.String `json:"syllabus_id"`
		Terms            []int       `json:"terms" validate:"required,min=1,unique,dive,min=1,max=4"`
		Slots            []int       `json:"slots" validate:"required,min=1,unique,dive,min=1,max=35"`
		IsPublic         *bool       `json:"is_public"`
		IsPublicEditable *bool       `json:"is_public_editable"`
	}

	UpdateLecture struct {
		Name             string  `json:"name" validate:"omitempty,max=200"`
		Room             *string `json:"room" validate:"omitempty,max=50"`
		Instructor       *string `json:"instructor" validate:"omitempty,max=200"`
		Note             *string `json:"note" validate:"omitempty,max=300"`
		Grade            int     `json:"grade" validate:"min=0,max=6"`
		Terms            []int   `json:"terms" validate:"omitempty,min=1,unique,dive,min=1,max=4"`
		Slots            []int   `json:"slots" validate:"omitempty,min=1,unique,dive,min=1,max=35"`
		IsPublic         *bool   `json:"is_public"`
		IsPublicEditable *bool   `json:"is_public_editable"`
	}

	NewRegistration struct {
		LectureID string `json:"lecture_id" validate:"required,uuid4"`
		Year      int    `json:"year" validate:"required,min=2000,max=2100"`
	}
)

func (nl NewLecture) Validate() error { return core.Validate.Struct(nl) }

func (ul UpdateLecture) Validate() error { return core.Validate.Struct(ul) }

func (nr NewRegistration) Validate() error { return core.Validate.Struct(nr) }
