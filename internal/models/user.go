package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAdmin
}

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           int64     `json:"id" bun:"id,pk,autoincrement"`
	Email        string    `json:"email" bun:"email,unique"`
	PasswordHash string    `json:"-" bun:"password_hash"`
	FirstName    string    `json:"first_name" bun:"first_name"`
	LastName     string    `json:"last_name" bun:"last_name"`
	Phone        *string   `json:"phone,omitempty" bun:"phone"`
	Role         Role      `json:"role" bun:"role"`
	CreatedAt    time.Time `json:"created_at" bun:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bun:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type UserFilter struct {
	Role   *Role
	Search string
}

type UserPatch struct {
	FirstName    *string
	LastName     *string
	Phone        *string
	Role         *Role
	PasswordHash *string
}

func (p UserPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Phone == nil && p.Role == nil && p.PasswordHash == nil
}

type RegisterRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"required,min=6"`
	FirstName string  `json:"first_name" binding:"required,max=100"`
	LastName  string  `json:"last_name" binding:"required,max=100"`
	Phone     *string `json:"phone" binding:"omitempty,max=30"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone" binding:"omitempty,max=30"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type AdminUpdateUserRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone" binding:"omitempty,max=30"`
	Role      *Role   `json:"role" binding:"omitempty,oneof=client admin"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
