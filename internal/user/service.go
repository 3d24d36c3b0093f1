// Package user is the read-only users directory.
package user

import (
	"context"
	"errors"

	"smartattendance/internal/apperr"
	"smartattendance/internal/model"
	"smartattendance/internal/store"
)

type Service struct {
	users store.Users
}

func NewService(users store.Users) *Service {
	return &Service{users: users}
}

type Filter struct {
	Role  string `form:"role"`
	Class string `form:"class"`
}

// List returns users matching f. Password hashes are never populated.
func (s *Service) List(ctx context.Context, f Filter) ([]model.User, error) {
	role := model.Role(f.Role)
	if role != "" && !role.Valid() {
		return nil, apperr.Invalid("unknown role")
	}
	users, err := s.users.ListUsers(ctx, store.UserFilter{Role: role, Class: f.Class})
	if err != nil {
		return nil, err
	}
	return scrub(users), nil
}

// Children resolves a parent's child references.
func (s *Service) Children(ctx context.Context, parentID string) ([]model.User, error) {
	parent, err := s.users.GetUser(ctx, parentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	if parent.Role != model.RoleParent {
		return []model.User{}, nil
	}
	children, err := s.users.UsersByIDs(ctx, parent.Children)
	if err != nil {
		return nil, err
	}
	return scrub(children), nil
}

func scrub(users []model.User) []model.User {
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users
}
