// Package mongostore is the document-database Record Store.
package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"smartattendance/internal/model"
	"smartattendance/internal/store"
)

const (
	colUsers         = "users"
	colAttendance    = "attendances"
	colCorrections   = "correctionrequests"
	colNotifications = "notifications"
	colAssignments   = "assignments"
	colClasses       = "classes"
)

// Store talks to MongoDB through a single process-wide client.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration

	users         *mongo.Collection
	attendance    *mongo.Collection
	corrections   *mongo.Collection
	notifications *mongo.Collection
	assignments   *mongo.Collection
	classes       *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Open connects, pings and ensures indexes.
func Open(ctx context.Context, uri, database string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = store.DefaultTimeout
	}
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, store.Classify("mongo connect", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, store.Classify("mongo ping", err)
	}

	db := client.Database(database)
	s := &Store{
		client:        client,
		db:            db,
		timeout:       timeout,
		users:         db.Collection(colUsers),
		attendance:    db.Collection(colAttendance),
		corrections:   db.Collection(colCorrections),
		notifications: db.Collection(colNotifications),
		assignments:   db.Collection(colAssignments),
		classes:       db.Collection(colClasses),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// ensureIndexes creates the unique and lookup indexes. The attendance slot
// index is deliberately not unique; the recorder enforces one record per day.
func (s *Store) ensureIndexes(ctx context.Context) error {
	ctx, cancel := store.OpContext(ctx, 2*s.timeout)
	defer cancel()

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "rollNo", Value: 1}}},
		},
		s.attendance: {
			{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "subject", Value: 1}, {Key: "class", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "class", Value: 1}, {Key: "date", Value: 1}}},
		},
		s.corrections: {
			{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		s.notifications: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		s.assignments: {
			{Keys: bson.D{{Key: "class", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		s.classes: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return store.Classify("mongo create indexes "+coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := store.OpContext(ctx, s.timeout)
	defer cancel()
	return store.Classify("mongo ping", s.client.Ping(ctx, nil))
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) op(ctx context.Context) (context.Context, context.CancelFunc) {
	return store.OpContext(ctx, s.timeout)
}

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

func classify(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return store.Classify(op, err)
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func newestFirst(field string) *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: field, Value: -1}})
}

// ---------- users ----------

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	u.ID = newID(u.ID)
	u.CreatedAt = stamp(u.CreatedAt)
	_, err := s.users.InsertOne(ctx, u)
	return classify("insert user", err)
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	var u model.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	return u, classify("get user", err)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	var u model.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	return u, classify("find user by email", err)
}

func (s *Store) FindUserByRollNo(ctx context.Context, rollNo string, dob time.Time) (model.User, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	var u model.User
	err := s.users.FindOne(ctx, bson.M{"rollNo": rollNo, "dob": dob}).Decode(&u)
	return u, classify("find user by roll number", err)
}

func (s *Store) ListUsers(ctx context.Context, f store.UserFilter) ([]model.User, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Class != "" {
		filter["class"] = f.Class
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetProjection(bson.M{"password": 0})
	out, err := findAll[model.User](ctx, s.users, filter, opts)
	return out, classify("list users", err)
}

func (s *Store) UsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	ctx, cancel := s.op(ctx)
	defer cancel()
	opts := options.Find().SetProjection(bson.M{"password": 0})
	out, err := findAll[model.User](ctx, s.users, bson.M{"_id": bson.M{"$in": ids}}, opts)
	return out, classify("users by ids", err)
}

func (s *Store) AddChild(ctx context.Context, parentID, childID string) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": parentID}, bson.M{"$addToSet": bson.M{"children": childID}})
	if err != nil {
		return classify("add child", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---------- attendance ----------

func (s *Store) InsertAttendance(ctx context.Context, recs ...*model.AttendanceRecord) error {
	if len(recs) == 0 {
		return nil
	}
	ctx, cancel := s.op(ctx)
	defer cancel()
	docs := make([]any, 0, len(recs))
	for _, r := range recs {
		r.ID = newID(r.ID)
		r.CreatedAt = stamp(r.CreatedAt)
		docs = append(docs, r)
	}
	_, err := s.attendance.InsertMany(ctx, docs)
	return classify("insert attendance", err)
}

func (s *Store) FindAttendanceInWindow(ctx context.Context, slot model.Slot, from, to time.Time) (*model.AttendanceRecord, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	var rec model.AttendanceRecord
	err := s.attendance.FindOne(ctx, bson.M{
		"studentId": slot.StudentID,
		"subject":   slot.Subject,
		"class":     slot.Class,
		"date":      bson.M{"$gte": from, "$lt": to},
	}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("find attendance in window", err)
	}
	return &rec, nil
}

func (s *Store) GetAttendance(ctx context.Context, id string) (model.AttendanceRecord, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	var rec model.AttendanceRecord
	err := s.attendance.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	return rec, classify("get attendance", err)
}

func (s *Store) AttendanceByIDs(ctx context.Context, ids []string) ([]model.AttendanceRecord, error) {
	if len(ids) == 0 {
		return []model.AttendanceRecord{}, nil
	}
	ctx, cancel := s.op(ctx)
	defer cancel()
	out, err := findAll[model.AttendanceRecord](ctx, s.attendance, bson.M{"_id": bson.M{"$in": ids}})
	return out, classify("attendance by ids", err)
}

func (s *Store) ListAttendanceForStudent(ctx context.Context, studentID string) ([]model.AttendanceRecord, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	out, err := findAll[model.AttendanceRecord](ctx, s.attendance, bson.M{"studentId": studentID}, newestFirst("date"))
	return out, classify("list attendance", err)
}

func (s *Store) MarkCorrectionRequested(ctx context.Context, id string) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	res, err := s.attendance.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"correctionRequested": true}})
	if err != nil {
		return classify("mark correction requested", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AttendanceStats(ctx context.Context, class string, from, to *time.Time) (model.AttendanceStats, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()

	match := bson.M{"class": class}
	if from != nil && to != nil {
		match["date"] = bson.M{"$gte": *from, "$lte": *to}
	}

	byStatus := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := s.attendance.Aggregate(ctx, byStatus)
	if err != nil {
		return model.AttendanceStats{}, classify("attendance stats", err)
	}
	stats := model.AttendanceStats{ByStatus: []model.StatusCount{}, Daily: []model.DailyCount{}}
	if err := cur.All(ctx, &stats.ByStatus); err != nil {
		return model.AttendanceStats{}, classify("attendance stats", err)
	}

	daily := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"date":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$date"}},
				"status": "$status",
			},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.date", Value: 1}, {Key: "_id.status", Value: 1}}}},
	}
	cur, err = s.attendance.Aggregate(ctx, daily)
	if err != nil {
		return model.AttendanceStats{}, classify("attendance daily stats", err)
	}
	var rows []struct {
		ID struct {
			Date   string       `bson:"date"`
			Status model.Status `bson:"status"`
		} `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return model.AttendanceStats{}, classify("attendance daily stats", err)
	}
	for _, r := range rows {
		stats.Daily = append(stats.Daily, model.DailyCount{Date: r.ID.Date, Status: r.ID.Status, Count: r.Count})
	}
	return stats, nil
}

// ---------- corrections ----------

func (s *Store) InsertCorrection(ctx context.Context, cr *model.CorrectionRequest) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	cr.ID = newID(cr.ID)
	cr.CreatedAt = stamp(cr.CreatedAt)
	_, err := s.corrections.InsertOne(ctx, cr)
	return classify("insert correction", err)
}

func (s *Store) GetCorrection(ctx context.Context, id string) (model.CorrectionRequest, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	var cr model.CorrectionRequest
	err := s.corrections.FindOne(ctx, bson.M{"_id": id}).Decode(&cr)
	return cr, classify("get correction", err)
}

// ResolveCorrection is a conditional update on status=pending, so concurrent
// resolutions of the same request cannot both win.
func (s *Store) ResolveCorrection(ctx context.Context, id string, status model.CorrectionStatus, note string, at time.Time) (model.CorrectionRequest, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	set := bson.M{"status": status, "responseDate": at}
	if note != "" {
		set["adminNote"] = note
	}
	var cr model.CorrectionRequest
	err := s.corrections.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": model.CorrectionPending},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&cr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := s.GetCorrection(ctx, id); getErr != nil {
			return model.CorrectionRequest{}, getErr
		}
		return model.CorrectionRequest{}, store.ErrNotPending
	}
	return cr, classify("resolve correction", err)
}

func (s *Store) ListCorrectionsForStudent(ctx context.Context, studentID string) ([]model.CorrectionRequest, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	out, err := findAll[model.CorrectionRequest](ctx, s.corrections, bson.M{"studentId": studentID}, newestFirst("createdAt"))
	return out, classify("list corrections for student", err)
}

func (s *Store) ListCorrections(ctx context.Context) ([]model.CorrectionRequest, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	out, err := findAll[model.CorrectionRequest](ctx, s.corrections, bson.M{}, newestFirst("createdAt"))
	return out, classify("list corrections", err)
}

// ---------- notifications ----------

func (s *Store) InsertNotification(ctx context.Context, n *model.Notification) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	n.ID = newID(n.ID)
	n.CreatedAt = stamp(n.CreatedAt)
	_, err := s.notifications.InsertOne(ctx, n)
	return classify("insert notification", err)
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	res, err := s.notifications.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return classify("mark notification read", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	opts := newestFirst("createdAt")
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	out, err := findAll[model.Notification](ctx, s.notifications, bson.M{"userId": userID}, opts)
	return out, classify("list notifications", err)
}

// ---------- assignments & classes ----------

func (s *Store) InsertAssignment(ctx context.Context, a *model.Assignment) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	a.ID = newID(a.ID)
	a.CreatedAt = stamp(a.CreatedAt)
	_, err := s.assignments.InsertOne(ctx, a)
	return classify("insert assignment", err)
}

func (s *Store) ListAssignmentsForClass(ctx context.Context, class string) ([]model.Assignment, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	out, err := findAll[model.Assignment](ctx, s.assignments, bson.M{"class": class}, newestFirst("createdAt"))
	return out, classify("list assignments", err)
}

func (s *Store) InsertClass(ctx context.Context, c *model.Class) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	c.ID = newID(c.ID)
	c.CreatedAt = stamp(c.CreatedAt)
	if c.Subjects == nil {
		c.Subjects = []string{}
	}
	if c.Students == nil {
		c.Students = []string{}
	}
	_, err := s.classes.InsertOne(ctx, c)
	return classify("insert class", err)
}

func (s *Store) ListClasses(ctx context.Context) ([]model.Class, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	out, err := findAll[model.Class](ctx, s.classes, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	return out, classify("list classes", err)
}
