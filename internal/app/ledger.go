package app

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"lms-progress-service/internal/domain"
	"lms-progress-service/internal/logger"
)

// DefaultActivityLimit caps activity listings when the caller gives no limit.
const DefaultActivityLimit = 100

// Ledger is the append-only learning event log. Entries are never updated;
// admins may delete them for moderation.
type Ledger struct {
	store     LedgerStore
	log       *logger.Logger
	now       func() time.Time
	listLimit int
}

// LedgerStore is the activity table plus the catalog lookups the
// instructor views need.
type LedgerStore interface {
	ActivityStore
	GetCourse(ctx context.Context, courseID string) (domain.Course, error)
	GetStudent(ctx context.Context, studentID string) (domain.Student, error)
}

func NewLedger(store LedgerStore, log *logger.Logger) *Ledger {
	return &Ledger{
		store:     store,
		log:       log.With("component", "ledger"),
		now:       time.Now,
		listLimit: DefaultActivityLimit,
	}
}

// WithClock swaps the clock; used by tests for deterministic dates.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// WithListLimit sets the default listing cap.
func (l *Ledger) WithListLimit(limit int) *Ledger {
	if limit > 0 {
		l.listLimit = limit
	}
	return l
}

// Append records an event. It is not idempotent: calling it twice logs twice.
func (l *Ledger) Append(ctx context.Context, studentID string, typ domain.ActivityType, courseID, lessonID string) (domain.ActivityLogEntry, error) {
	return l.record(ctx, l.store, studentID, typ, courseID, lessonID)
}

// record appends through dst so callers can log inside their own transaction.
func (l *Ledger) record(ctx context.Context, dst ActivityStore, studentID string, typ domain.ActivityType, courseID, lessonID string) (domain.ActivityLogEntry, error) {
	entry := domain.ActivityLogEntry{
		ID:           uuid.NewString(),
		StudentID:    studentID,
		ActivityDate: l.now().UTC(),
		ActivityType: typ,
	}
	if courseID != "" {
		entry.CourseID = &courseID
	}
	if lessonID != "" {
		entry.LessonID = &lessonID
	}
	if err := domain.Validate(entry); err != nil {
		return domain.ActivityLogEntry{}, err
	}
	if err := dst.AppendActivity(ctx, entry); err != nil {
		return domain.ActivityLogEntry{}, err
	}
	return entry, nil
}

// List returns the student's newest entries first.
func (l *Ledger) List(ctx context.Context, studentID string, filter domain.ActivityFilter) ([]domain.ActivityLogEntry, error) {
	if filter.Limit <= 0 || filter.Limit > l.listLimit {
		filter.Limit = l.listLimit
	}
	return l.store.ListActivities(ctx, studentID, filter)
}

// Summarize counts a student's activity across all courses.
func (l *Ledger) Summarize(ctx context.Context, studentID string) (domain.ActivitySummary, error) {
	entries, err := l.store.ListActivities(ctx, studentID, domain.ActivityFilter{})
	if err != nil {
		return domain.ActivitySummary{}, err
	}
	return summarize(entries), nil
}

// SummarizeCourse counts a student's activity within one course.
func (l *Ledger) SummarizeCourse(ctx context.Context, studentID, courseID string) (domain.ActivitySummary, error) {
	entries, err := l.store.ListActivities(ctx, studentID, domain.ActivityFilter{CourseID: courseID})
	if err != nil {
		return domain.ActivitySummary{}, err
	}
	return summarize(entries), nil
}

func summarize(entries []domain.ActivityLogEntry) domain.ActivitySummary {
	out := domain.ActivitySummary{ByType: make(map[domain.ActivityType]int, len(domain.ActivityTypes))}
	for _, typ := range domain.ActivityTypes {
		out.ByType[typ] = 0
	}
	courses := make(map[string]bool)
	for _, e := range entries {
		out.TotalActivities++
		out.ByType[e.ActivityType]++
		if e.CourseID != nil {
			courses[*e.CourseID] = true
		}
		date := e.ActivityDate
		if out.FirstActivity == nil || date.Before(*out.FirstActivity) {
			out.FirstActivity = &date
		}
		if out.LastActivity == nil || date.After(*out.LastActivity) {
			out.LastActivity = &date
		}
	}
	out.ActiveCourses = len(courses)
	return out
}

// Streak computes consecutive UTC days with activity. The current streak
// survives until the end of the day after the last active day.
func (l *Ledger) Streak(ctx context.Context, studentID string) (domain.Streak, error) {
	entries, err := l.store.ListActivities(ctx, studentID, domain.ActivityFilter{})
	if err != nil {
		return domain.Streak{}, err
	}
	days := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		days = append(days, e.ActivityDate)
	}
	return streak(days, l.now()), nil
}

func streak(dates []time.Time, now time.Time) domain.Streak {
	seen := make(map[time.Time]bool, len(dates))
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := truncateDay(d)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		return domain.Streak{}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Equal(days[i-1].AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	out := domain.Streak{LongestStreak: longest}
	today := truncateDay(now)
	last := days[len(days)-1]
	if last.Equal(today) || last.Equal(today.AddDate(0, 0, -1)) {
		out.CurrentStreak = run
	}
	return out
}

// ClassActivity groups a course's activity by student and UTC day, newest
// day first. Only the course instructor may read it.
func (l *Ledger) ClassActivity(ctx context.Context, actor domain.Actor, courseID string) (domain.ClassActivity, error) {
	if err := ownsCourse(ctx, l.store, actor, courseID); err != nil {
		return domain.ClassActivity{}, err
	}
	entries, err := l.store.ListCourseActivities(ctx, courseID)
	if err != nil {
		return domain.ClassActivity{}, err
	}

	type dayKey struct {
		studentID string
		day       time.Time
	}
	groups := make(map[dayKey]*domain.DailyActivity)
	names := make(map[string]string)
	for _, e := range entries {
		key := dayKey{e.StudentID, truncateDay(e.ActivityDate)}
		g, ok := groups[key]
		if !ok {
			name, known := names[e.StudentID]
			if !known {
				student, err := l.store.GetStudent(ctx, e.StudentID)
				switch {
				case err == nil:
					name = student.FullName
				case !errors.Is(err, domain.ErrStudentNotFound):
					return domain.ClassActivity{}, err
				}
				names[e.StudentID] = name
			}
			g = &domain.DailyActivity{
				StudentID: e.StudentID,
				FullName:  name,
				Day:       key.day,
				ByType:    make(map[domain.ActivityType]int),
			}
			groups[key] = g
		}
		g.ActivityCount++
		g.ByType[e.ActivityType]++
		if e.ActivityDate.After(g.LastActivity) {
			g.LastActivity = e.ActivityDate
		}
	}

	out := domain.ClassActivity{CourseID: courseID, ActiveStudents: len(names), Days: make([]domain.DailyActivity, 0, len(groups))}
	for _, g := range groups {
		out.Days = append(out.Days, *g)
	}
	sort.Slice(out.Days, func(i, j int) bool {
		a, b := out.Days[i], out.Days[j]
		if !a.Day.Equal(b.Day) {
			return a.Day.After(b.Day)
		}
		return a.StudentID < b.StudentID
	})
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Delete removes an entry. Only admins may moderate the ledger.
func (l *Ledger) Delete(ctx context.Context, actor domain.Actor, logID string) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden.Detail("only admins may delete activity")
	}
	if err := l.store.DeleteActivity(ctx, logID); err != nil {
		return err
	}
	l.log.Info("activity deleted", "log_id", logID, "admin", actor.ID)
	return nil
}
