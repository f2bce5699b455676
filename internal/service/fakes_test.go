package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/fraud"
	"marathononline/training-api/internal/notify"
	"marathononline/training-api/internal/repository"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- transactor ---

type directTx struct{ calls int }

func (t *directTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

// --- users ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[primitive.ObjectID]domain.User{}}
}

func (r *memUserRepo) Create(_ context.Context, u *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	r.users[u.ID] = *u
	return u.ID, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// --- plans ---

type memPlanRepo struct {
	mu    sync.Mutex
	plans map[primitive.ObjectID]domain.TrainingPlan
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{plans: map[primitive.ObjectID]domain.TrainingPlan{}}
}

func (r *memPlanRepo) Create(_ context.Context, p *domain.TrainingPlan) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Status == domain.PlanStatusActive {
		for _, existing := range r.plans {
			if existing.UserID == p.UserID && existing.Status == domain.PlanStatusActive {
				return primitive.NilObjectID, repository.ErrDuplicate
			}
		}
	}
	r.plans[p.ID] = *p
	return p.ID, nil
}

func (r *memPlanRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *memPlanRepo) GetActiveByUser(_ context.Context, userID primitive.ObjectID) (*domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plans {
		if p.UserID == userID && p.Status == domain.PlanStatusActive {
			cp := p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memPlanRepo) ListByUser(_ context.Context, userID primitive.ObjectID, f repository.PlanFilter) ([]domain.TrainingPlan, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.TrainingPlan{}
	for _, p := range r.plans {
		if p.UserID == userID && (f.Status == "" || p.Status == f.Status) {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memPlanRepo) ListActiveAt(_ context.Context, at time.Time) ([]domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.TrainingPlan{}
	for _, p := range r.plans {
		if p.Status == domain.PlanStatusActive && p.Contains(at) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPlanRepo) ListActiveEndedBefore(_ context.Context, t time.Time) ([]domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.TrainingPlan{}
	for _, p := range r.plans {
		if p.Status == domain.PlanStatusActive && p.EndDate.Before(t) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPlanRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, status domain.PlanStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	r.plans[id] = p
	return nil
}

func (r *memPlanRepo) ArchiveActiveForUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, p := range r.plans {
		if p.UserID == userID && p.Status == domain.PlanStatusActive {
			p.Status = domain.PlanStatusArchived
			r.plans[id] = p
			n++
		}
	}
	return n, nil
}

// --- days ---

type memDayRepo struct {
	mu   sync.Mutex
	days map[primitive.ObjectID]domain.TrainingDay
}

func newMemDayRepo() *memDayRepo {
	return &memDayRepo{days: map[primitive.ObjectID]domain.TrainingDay{}}
}

func (r *memDayRepo) put(d *domain.TrainingDay) {
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	if d.Records == nil {
		d.Records = []domain.AttachedRecord{}
	}
	r.days[d.ID] = *d
}

func (r *memDayRepo) CreateMany(_ context.Context, days []*domain.TrainingDay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range days {
		r.put(d)
	}
	return nil
}

func (r *memDayRepo) CreateIfAbsent(_ context.Context, day *domain.TrainingDay) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.days {
		if d.PlanID == day.PlanID && d.Week == day.Week && d.DayOfWeek == day.DayOfWeek {
			return false, nil
		}
	}
	r.put(day)
	return true, nil
}

func (r *memDayRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.TrainingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *memDayRepo) GetByPlanAndDate(_ context.Context, planID primitive.ObjectID, dayStart time.Time) (*domain.TrainingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	end := dayStart.Add(24 * time.Hour)
	for _, d := range r.days {
		if d.PlanID == planID && !d.DateTime.Before(dayStart) && d.DateTime.Before(end) {
			cp := d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memDayRepo) ListByPlan(_ context.Context, planID primitive.ObjectID) ([]domain.TrainingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.TrainingDay{}
	for _, d := range r.days {
		if d.PlanID == planID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out, nil
}

func (r *memDayRepo) MarkMissedBefore(_ context.Context, planID primitive.ObjectID, t time.Time) ([]domain.TrainingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.TrainingDay{}
	for id, d := range r.days {
		if d.PlanID == planID && d.Status == domain.DayStatusActive && d.DateTime.Before(t) &&
			d.Feedback == nil && len(d.Records) == 0 {
			d.Status = domain.DayStatusMissed
			r.days[id] = d
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDayRepo) AttachRecord(_ context.Context, dayID primitive.ObjectID, seen int, rec domain.AttachedRecord, completion float64, status domain.DayStatus) (*domain.TrainingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[dayID]
	if !ok || !d.Status.Attachable() || len(d.Records) != seen {
		return nil, repository.ErrUpdateFailed
	}
	d.Records = append(append([]domain.AttachedRecord{}, d.Records...), rec)
	d.CompletionPercentage = completion
	d.Status = status
	r.days[dayID] = d
	return &d, nil
}

func (r *memDayRepo) ListByRecordIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.TrainingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []domain.TrainingDay{}
	for _, d := range r.days {
		for _, rec := range d.Records {
			if want[rec.RecordID] {
				out = append(out, d)
				break
			}
		}
	}
	return out, nil
}

func (r *memDayRepo) ReplaceRecords(_ context.Context, dayID primitive.ObjectID, records []domain.AttachedRecord, completion float64, status domain.DayStatus) (*domain.TrainingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[dayID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if records == nil {
		records = []domain.AttachedRecord{}
	}
	d.Records = records
	d.CompletionPercentage = completion
	d.Status = status
	r.days[dayID] = d
	return &d, nil
}

func (r *memDayRepo) UpsertFeedback(_ context.Context, dayID primitive.ObjectID, fb *domain.TrainingFeedback) (*domain.TrainingFeedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[dayID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if fb.ID.IsZero() {
		fb.ID = primitive.NewObjectID()
	}
	fb.TrainingDayID = dayID
	cp := *fb
	d.Feedback = &cp
	r.days[dayID] = d
	return fb, nil
}

// snapshot returns the days of a plan keyed by slot, for comparisons.
func (r *memDayRepo) snapshot(planID primitive.ObjectID) map[[2]int]domain.DayStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[[2]int]domain.DayStatus{}
	for _, d := range r.days {
		if d.PlanID == planID {
			out[[2]int{d.Week, d.DayOfWeek}] = d.Status
		}
	}
	return out
}

// --- records ---

type memRecordRepo struct {
	mu      sync.Mutex
	records map[primitive.ObjectID]domain.Record
	stats   domain.RunningStats
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{records: map[primitive.ObjectID]domain.Record{}}
}

func (r *memRecordRepo) Create(_ context.Context, rec *domain.Record) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = primitive.NewObjectID()
	r.records[rec.ID] = *rec
	return rec.ID, nil
}

func (r *memRecordRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (r *memRecordRepo) FindOverlapCandidates(_ context.Context, userID primitive.ObjectID, start, end time.Time) ([]domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Record{}
	for _, rec := range r.records {
		// wider than needed on purpose; callers filter precisely
		if rec.UserID == userID && !rec.StartTime.After(end) && !rec.EndTime.Before(start) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRecordRepo) ListByUser(_ context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Record{}
	for _, rec := range r.records {
		if rec.UserID == userID && !rec.StartTime.Before(from) && rec.StartTime.Before(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRecordRepo) DeleteMany(_ context.Context, ids []primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.records, id)
	}
	return nil
}

func (r *memRecordRepo) ListByApprovalStatus(_ context.Context, status domain.ApprovalStatus, limit int) ([]domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Record{}
	for _, rec := range r.records {
		if rec.Approval != nil && rec.Approval.ApprovalStatus == status {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRecordRepo) UpdateApproval(_ context.Context, id primitive.ObjectID, approval domain.RecordApproval) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	rec.Approval = &approval
	r.records[id] = rec
	return &rec, nil
}

func (r *memRecordRepo) RunningStats(_ context.Context, _ primitive.ObjectID) (*domain.RunningStats, error) {
	s := r.stats
	return &s, nil
}

// --- collaborators ---

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, record *domain.Record) (*fraud.Result, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fraud.Result), args.Error(1)
}

type mockTextGenerator struct {
	mock.Mock
}

func (m *mockTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

type memStorage struct {
	objects    map[string][]byte
	presignErr error
}

func (s *memStorage) PutObject(_ context.Context, key, _ string, body []byte) error {
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = body
	return nil
}

func (s *memStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return "https://example.test/" + key + "?sig=1", nil
}

func (s *memStorage) DeleteObject(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

// fixedCalendar pins "now" in UTC.
func fixedCalendar(now time.Time) Calendar {
	return NewCalendar(time.UTC, func() time.Time { return now })
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }
func ptrI64(v int64) *int64   { return &v }
