package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"smartattendance/internal/apperr"
	"smartattendance/internal/model"
	"smartattendance/internal/store"
)

// DateLayout is the wire format of dates of birth.
const DateLayout = "2006-01-02"

// Settings configure credential issuing and password hashing.
type Settings struct {
	Issuer     string
	SigningKey string
	TTL        time.Duration
	BcryptCost int
}

// Service handles login and registration.
type Service struct {
	users    store.Users
	settings Settings
	validate *validator.Validate
}

func NewService(users store.Users, settings Settings) *Service {
	if settings.TTL <= 0 {
		settings.TTL = 24 * time.Hour
	}
	if settings.BcryptCost == 0 {
		settings.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{users: users, settings: settings, validate: validator.New()}
}

// LoginInput accepts either Email+Password or RollNo+DOB.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	RollNo   string `json:"rollNo"`
	DOB      string `json:"dob"`
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=teacher student parent admin"`
	RollNo   string `json:"rollNo"`
	DOB      string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Class    string `json:"class"`
	ParentID string `json:"parentId"`
	Phone    string `json:"phone"`
}

// Session is what a successful login or registration returns.
type Session struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

var errInvalidCredentials = apperr.Unauthenticated("invalid credentials")

// Login authenticates with email/password, or with roll number and date of
// birth where the DOB doubles as the password when none is given.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	var (
		u      model.User
		err    error
		secret string
	)
	switch {
	case in.Email != "":
		u, err = s.users.FindUserByEmail(ctx, strings.TrimSpace(in.Email))
		secret = in.Password
	case in.RollNo != "" && in.DOB != "":
		dob, perr := ParseDOB(in.DOB)
		if perr != nil {
			return Session{}, apperr.Invalid("dob must be YYYY-MM-DD")
		}
		u, err = s.users.FindUserByRollNo(ctx, in.RollNo, dob)
		secret = in.Password
		if secret == "" {
			secret = in.DOB
		}
	default:
		return Session{}, apperr.Invalid("email and password, or rollNo and dob, are required")
	}
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, errInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(secret)) != nil {
		return Session{}, errInvalidCredentials
	}
	return s.session(u)
}

// Register creates an account and signs the caller in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return Session{}, apperr.Invalid(validationMessage(err))
	}

	// checked up front for a friendly error; the unique index still decides races
	if _, err := s.users.FindUserByEmail(ctx, in.Email); err == nil {
		return Session{}, apperr.Conflict("user already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.settings.BcryptCost)
	if err != nil {
		return Session{}, err
	}
	u := model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         model.Role(in.Role),
		RollNo:       in.RollNo,
		Class:        in.Class,
		ParentID:     in.ParentID,
		Phone:        in.Phone,
	}
	if in.DOB != "" {
		dob, _ := ParseDOB(in.DOB)
		u.DOB = &dob
	}
	if err := s.users.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return Session{}, apperr.Conflict("user already exists")
		}
		return Session{}, err
	}
	if u.Role == model.RoleStudent && u.ParentID != "" {
		if err := s.users.AddChild(ctx, u.ParentID, u.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return Session{}, err
		}
	}
	return s.session(u)
}

func (s *Service) session(u model.User) (Session, error) {
	tok, err := Issue(u.ID, u.Role, s.settings.Issuer, s.settings.SigningKey, s.settings.TTL)
	if err != nil {
		return Session{}, err
	}
	u.PasswordHash = ""
	return Session{Token: tok.AccessToken, User: u}, nil
}

// ParseDOB parses a YYYY-MM-DD date as UTC midnight.
func ParseDOB(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+" is "+describeTag(fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func describeTag(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "email":
		return "not a valid email"
	case "oneof":
		return "not an allowed value"
	case "min":
		return "too short"
	case "datetime":
		return "not a YYYY-MM-DD date"
	}
	return "invalid"
}
