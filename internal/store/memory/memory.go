// Package memory is an in-process Record Store for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartattendance/internal/model"
	"smartattendance/internal/store"
)

// Store keeps every collection in maps guarded by one mutex.
type Store struct {
	mu            sync.RWMutex
	users         map[string]model.User
	attendance    map[string]model.AttendanceRecord
	corrections   map[string]model.CorrectionRequest
	notifications map[string]model.Notification
	assignments   map[string]model.Assignment
	classes       map[string]model.Class
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:         make(map[string]model.User),
		attendance:    make(map[string]model.AttendanceRecord),
		corrections:   make(map[string]model.CorrectionRequest),
		notifications: make(map[string]model.Notification),
		assignments:   make(map[string]model.Assignment),
		classes:       make(map[string]model.Class),
	}
}

func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// ---------- users ----------

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrDuplicate
		}
	}
	u.ID = newID(u.ID)
	u.CreatedAt = stamp(u.CreatedAt)
	s.users[u.ID] = cloneUser(*u)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return model.User{}, store.ErrNotFound
}

func (s *Store) FindUserByRollNo(_ context.Context, rollNo string, dob time.Time) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.RollNo == rollNo && u.DOB != nil && u.DOB.Equal(dob) {
			return cloneUser(u), nil
		}
	}
	return model.User{}, store.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context, f store.UserFilter) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, 0)
	for _, u := range s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Class != "" && u.Class != f.Class {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UsersByIDs(_ context.Context, ids []string) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (s *Store) AddChild(_ context.Context, parentID, childID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.users[parentID]
	if !ok {
		return store.ErrNotFound
	}
	for _, c := range p.Children {
		if c == childID {
			return nil
		}
	}
	p.Children = append(append([]string(nil), p.Children...), childID)
	s.users[parentID] = p
	return nil
}

func cloneUser(u model.User) model.User {
	if u.Children != nil {
		u.Children = append([]string(nil), u.Children...)
	}
	return u
}

// ---------- attendance ----------

func (s *Store) InsertAttendance(_ context.Context, recs ...*model.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		r.ID = newID(r.ID)
		r.CreatedAt = stamp(r.CreatedAt)
		s.attendance[r.ID] = *r
	}
	return nil
}

func (s *Store) FindAttendanceInWindow(_ context.Context, slot model.Slot, from, to time.Time) (*model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.attendance {
		if r.Slot() != slot {
			continue
		}
		if !r.Date.Before(from) && r.Date.Before(to) {
			rec := r
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *Store) GetAttendance(_ context.Context, id string) (model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.attendance[id]
	if !ok {
		return model.AttendanceRecord{}, store.ErrNotFound
	}
	return r, nil
}

func (s *Store) AttendanceByIDs(_ context.Context, ids []string) ([]model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AttendanceRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.attendance[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListAttendanceForStudent(_ context.Context, studentID string) ([]model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AttendanceRecord, 0)
	for _, r := range s.attendance {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) MarkCorrectionRequested(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.attendance[id]
	if !ok {
		return store.ErrNotFound
	}
	r.CorrectionRequested = true
	s.attendance[id] = r
	return nil
}

func (s *Store) AttendanceStats(_ context.Context, class string, from, to *time.Time) (model.AttendanceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byStatus := map[model.Status]int64{}
	type dayKey struct {
		date   string
		status model.Status
	}
	daily := map[dayKey]int64{}
	for _, r := range s.attendance {
		if r.Class != class {
			continue
		}
		if from != nil && to != nil && (r.Date.Before(*from) || r.Date.After(*to)) {
			continue
		}
		byStatus[r.Status]++
		daily[dayKey{r.Date.UTC().Format("2006-01-02"), r.Status}]++
	}
	stats := model.AttendanceStats{ByStatus: []model.StatusCount{}, Daily: []model.DailyCount{}}
	for st, n := range byStatus {
		stats.ByStatus = append(stats.ByStatus, model.StatusCount{Status: st, Count: n})
	}
	sort.Slice(stats.ByStatus, func(i, j int) bool { return stats.ByStatus[i].Status < stats.ByStatus[j].Status })
	for k, n := range daily {
		stats.Daily = append(stats.Daily, model.DailyCount{Date: k.date, Status: k.status, Count: n})
	}
	sort.Slice(stats.Daily, func(i, j int) bool {
		if stats.Daily[i].Date != stats.Daily[j].Date {
			return stats.Daily[i].Date < stats.Daily[j].Date
		}
		return stats.Daily[i].Status < stats.Daily[j].Status
	})
	return stats, nil
}

// ---------- corrections ----------

func (s *Store) InsertCorrection(_ context.Context, cr *model.CorrectionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cr.ID = newID(cr.ID)
	cr.CreatedAt = stamp(cr.CreatedAt)
	s.corrections[cr.ID] = *cr
	return nil
}

func (s *Store) GetCorrection(_ context.Context, id string) (model.CorrectionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cr, ok := s.corrections[id]
	if !ok {
		return model.CorrectionRequest{}, store.ErrNotFound
	}
	return cr, nil
}

func (s *Store) ResolveCorrection(_ context.Context, id string, status model.CorrectionStatus, note string, at time.Time) (model.CorrectionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cr, ok := s.corrections[id]
	if !ok {
		return model.CorrectionRequest{}, store.ErrNotFound
	}
	if cr.Status != model.CorrectionPending {
		return model.CorrectionRequest{}, store.ErrNotPending
	}
	cr.Status = status
	cr.AdminNote = note
	cr.ResponseDate = &at
	s.corrections[id] = cr
	return cr, nil
}

func (s *Store) ListCorrectionsForStudent(_ context.Context, studentID string) ([]model.CorrectionRequest, error) {
	return s.listCorrections(func(cr model.CorrectionRequest) bool { return cr.StudentID == studentID }), nil
}

func (s *Store) ListCorrections(context.Context) ([]model.CorrectionRequest, error) {
	return s.listCorrections(func(model.CorrectionRequest) bool { return true }), nil
}

func (s *Store) listCorrections(keep func(model.CorrectionRequest) bool) []model.CorrectionRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CorrectionRequest, 0)
	for _, cr := range s.corrections {
		if keep(cr) {
			out = append(out, cr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// ---------- notifications ----------

func (s *Store) InsertNotification(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = newID(n.ID)
	n.CreatedAt = stamp(n.CreatedAt)
	s.notifications[n.ID] = *n
	return nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return store.ErrNotFound
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, limit int) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Notification, 0)
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---------- assignments & classes ----------

func (s *Store) InsertAssignment(_ context.Context, a *model.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = newID(a.ID)
	a.CreatedAt = stamp(a.CreatedAt)
	s.assignments[a.ID] = *a
	return nil
}

func (s *Store) ListAssignmentsForClass(_ context.Context, class string) ([]model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Assignment, 0)
	for _, a := range s.assignments {
		if a.Class == class {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertClass(_ context.Context, c *model.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.classes {
		if existing.Name == c.Name {
			return store.ErrDuplicate
		}
	}
	c.ID = newID(c.ID)
	c.CreatedAt = stamp(c.CreatedAt)
	s.classes[c.ID] = *c
	return nil
}

func (s *Store) ListClasses(context.Context) ([]model.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Class, 0, len(s.classes))
	for _, c := range s.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
