// Package classroom manages class records.
package classroom

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"smartattendance/internal/apperr"
	"smartattendance/internal/auth"
	"smartattendance/internal/model"
	"smartattendance/internal/store"
)

type Service struct {
	classes  store.Classes
	validate *validator.Validate
}

func NewService(classes store.Classes) *Service {
	return &Service{classes: classes, validate: validator.New()}
}

type CreateInput struct {
	Name      string   `json:"name" validate:"required"`
	Subjects  []string `json:"subjects"`
	TeacherID string   `json:"teacherId"`
	Students  []string `json:"students"`
}

// Create adds a class. Class names are unique.
func (s *Service) Create(ctx context.Context, caller auth.Identity, in CreateInput) (model.Class, error) {
	if err := auth.Require(caller, model.RoleAdmin); err != nil {
		return model.Class{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return model.Class{}, apperr.Invalid("name is required")
	}
	c := model.Class{
		Name:      in.Name,
		Subjects:  nonNil(in.Subjects),
		TeacherID: in.TeacherID,
		Students:  nonNil(in.Students),
	}
	if err := s.classes.InsertClass(ctx, &c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.Class{}, apperr.Conflict("class already exists")
		}
		return model.Class{}, err
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]model.Class, error) {
	return s.classes.ListClasses(ctx)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
