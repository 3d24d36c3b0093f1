package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"smartattendance/internal/apperr"
	"smartattendance/internal/model"
	"smartattendance/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	st := memory.New()
	return NewService(st, Settings{
		Issuer:     testIssuer,
		SigningKey: testKey,
		TTL:        time.Hour,
		BcryptCost: bcrypt.MinCost,
	}), st
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	sess, err := svc.Register(ctx, RegisterInput{
		Name: "Ms. Rao", Email: "rao@school.test", Password: "secret1", Role: "teacher",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Empty(t, sess.User.PasswordHash)
	assert.Equal(t, model.RoleTeacher, sess.User.Role)

	id, err := Parse(sess.Token, testKey, testIssuer)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, id.UserID)

	logged, err := svc.Login(ctx, LoginInput{Email: "rao@school.test", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, logged.User.ID)

	_, err = svc.Login(ctx, LoginInput{Email: "rao@school.test", Password: "wrong"})
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@school.test", Password: "secret1"})
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	in := RegisterInput{Name: "A", Email: "a@school.test", Password: "secret1", Role: "admin"}

	_, err := svc.Register(ctx, in)
	require.NoError(t, err)
	_, err = svc.Register(ctx, in)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()
	cases := []RegisterInput{
		{Email: "a@school.test", Password: "secret1", Role: "admin"},
		{Name: "A", Email: "not-an-email", Password: "secret1", Role: "admin"},
		{Name: "A", Email: "a@school.test", Password: "secret1", Role: "janitor"},
		{Name: "A", Email: "a@school.test", Password: "secret1", Role: "student", DOB: "03/01/2010"},
	}
	for _, in := range cases {
		_, err := svc.Register(context.Background(), in)
		assert.True(t, apperr.Is(err, apperr.CodeInvalid), "input %+v", in)
	}
}

func TestStudentLinksToParentAndLogsInByRollNo(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()

	parent, err := svc.Register(ctx, RegisterInput{
		Name: "P", Email: "p@school.test", Password: "secret1", Role: "parent",
	})
	require.NoError(t, err)

	child, err := svc.Register(ctx, RegisterInput{
		Name: "S1", Email: "s1@school.test", Password: "2010-03-01", Role: "student",
		RollNo: "17", DOB: "2010-03-01", Class: "10A", ParentID: parent.User.ID,
	})
	require.NoError(t, err)

	p, err := st.GetUser(ctx, parent.User.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{child.User.ID}, p.Children)

	sess, err := svc.Login(ctx, LoginInput{RollNo: "17", DOB: "2010-03-01"})
	require.NoError(t, err)
	assert.Equal(t, child.User.ID, sess.User.ID)

	_, err = svc.Login(ctx, LoginInput{RollNo: "17", DOB: "2010-03-02"})
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))

	_, err = svc.Login(ctx, LoginInput{RollNo: "17", DOB: "March 1st"})
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))
}

func TestLoginRequiresCredentials(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Login(context.Background(), LoginInput{})
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))
}
