package user

import "github.com/hisakoh/campushub/core"

type NewUser struct {
	Name     string `json:"name" validate:"max=64"`
	Username string `json:"username" validate:"required,max=32,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	IsAdmin  bool   `json:"is_admin"`
}

func (nu NewUser) Validate() error { return core.Validate.Struct(nu) }
