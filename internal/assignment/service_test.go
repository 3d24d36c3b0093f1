package assignment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartattendance/internal/apperr"
	"smartattendance/internal/logger"
	"smartattendance/internal/model"
	"smartattendance/internal/store/memory"
)

type fakeFiles struct {
	stored map[string][]byte
	err    error
}

func (f *fakeFiles) Store(_ context.Context, filename string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.stored[filename] = data
	return "https://cdn.test/" + filename, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	users []string
}

func (f *fakeNotifier) Notify(_ context.Context, userID, _, _ string, typ model.NotificationType) *model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return &model.Notification{UserID: userID, Type: typ}
}

func TestCreateAnnouncesToClass(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	in10A := model.User{Name: "S1", Email: "s1@school.test", Role: model.RoleStudent, Class: "10A"}
	in10B := model.User{Name: "S2", Email: "s2@school.test", Role: model.RoleStudent, Class: "10B"}
	require.NoError(t, st.CreateUser(ctx, &in10A))
	require.NoError(t, st.CreateUser(ctx, &in10B))

	files := &fakeFiles{stored: map[string][]byte{}}
	n := &fakeNotifier{}
	svc := NewService(st, files, n, logger.Discard())

	a, err := svc.Create(ctx, "t1", CreateInput{Title: "Fractions", Subject: "Math", Class: "10A"},
		&Upload{Filename: "../worksheet.pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/worksheet.pdf", a.FilePath)
	assert.Equal(t, []string{in10A.ID}, n.users)

	list, err := svc.ListForClass(ctx, "10A")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Fractions", list[0].Title)
}

func TestCreateRejectsBadFiles(t *testing.T) {
	ctx := context.Background()
	in := CreateInput{Title: "Essay", Subject: "English", Class: "10A"}

	svc := NewService(memory.New(), nil, &fakeNotifier{}, logger.Discard())
	_, err := svc.Create(ctx, "t1", in, &Upload{Filename: "a.pdf", Data: []byte("x")})
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))

	svc = NewService(memory.New(), &fakeFiles{stored: map[string][]byte{}}, &fakeNotifier{}, logger.Discard())
	_, err = svc.Create(ctx, "t1", in, &Upload{Filename: "a.exe", Data: []byte("x")})
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))

	svc = NewService(memory.New(), &fakeFiles{err: errors.New("503")}, &fakeNotifier{}, logger.Discard())
	_, err = svc.Create(ctx, "t1", in, &Upload{Filename: "a.pdf", Data: []byte("x")})
	assert.True(t, apperr.Is(err, apperr.CodeUnavailable))

	_, err = svc.Create(ctx, "t1", CreateInput{Title: "Essay"}, nil)
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))
}
