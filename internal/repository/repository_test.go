package repository

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"timetracker-bot/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func createUser(t *testing.T, repo *GormUserRepository, chatID int64, role models.Role) *models.User {
	t.Helper()
	user := &models.User{ChatID: chatID, FirstName: "User", Role: role, Active: true}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestWorkLogFindOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, err := NewGormWorkLogRepository(newTestDB(t), quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	date := time.Date(2024, 12, 2, 18, 30, 0, 0, time.Local)
	first, err := repo.FindOrCreate(ctx, 1, date)
	if err != nil {
		t.Fatalf("FindOrCreate() error: %v", err)
	}
	if first.Date != "2024-12-02" || first.WorkMode != models.WorkModeOffice {
		t.Errorf("new log = %+v", first)
	}

	second, err := repo.FindOrCreate(ctx, 1, day(2024, 12, 2))
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("second call created another row: %d != %d", second.ID, first.ID)
	}

	other, _ := repo.FindOrCreate(ctx, 2, date)
	if other.ID == first.ID {
		t.Error("logs of different users must not be shared")
	}
}

func TestWorkLogUpdateAppliesPatchAndNulls(t *testing.T) {
	ctx := context.Background()
	repo, err := NewGormWorkLogRepository(newTestDB(t), quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	log, _ := repo.FindOrCreate(ctx, 1, day(2024, 12, 2))
	arrived := time.Date(2024, 12, 2, 9, 0, 0, 0, time.Local)
	report := "готово"

	updated, err := repo.Update(ctx, log, models.WorkLogPatch{
		models.ColArrivedAt:   &arrived,
		models.ColWorkMode:    models.WorkModeRemote,
		models.ColDailyReport: &report,
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.ArrivedAt == nil || !updated.ArrivedAt.Equal(arrived) {
		t.Errorf("arrived_at = %v", updated.ArrivedAt)
	}
	if updated.WorkMode != models.WorkModeRemote {
		t.Errorf("work_mode = %s", updated.WorkMode)
	}

	updated, err = repo.Update(ctx, updated, models.WorkLogPatch{models.ColDailyReport: (*string)(nil)})
	if err != nil {
		t.Fatal(err)
	}
	if updated.DailyReport != nil {
		t.Errorf("daily_report = %q, want NULL", *updated.DailyReport)
	}
	if updated.ArrivedAt == nil {
		t.Error("untouched columns must survive a patch")
	}
}

func TestWorkLogUpdateMissingRow(t *testing.T) {
	repo, err := NewGormWorkLogRepository(newTestDB(t), quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	_, err = repo.Update(context.Background(), &models.WorkLog{ID: 42}, models.WorkLogPatch{models.ColTotalMinutes: 10})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestWorkLogQueries(t *testing.T) {
	ctx := context.Background()
	repo, err := NewGormWorkLogRepository(newTestDB(t), quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	for d := 1; d <= 10; d++ {
		if _, err := repo.FindOrCreate(ctx, 1, day(2024, 12, d)); err != nil {
			t.Fatal(err)
		}
	}
	repo.FindOrCreate(ctx, 2, day(2024, 12, 5))

	logs, err := repo.GetByUserBetween(ctx, 1, day(2024, 12, 4), day(2024, 12, 10))
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 7 || logs[0].Date != "2024-12-10" {
		t.Errorf("between: %d logs, first %s", len(logs), logs[0].Date)
	}

	recent, _ := repo.GetByUserID(ctx, 1, 3)
	if len(recent) != 3 || recent[2].Date != "2024-12-08" {
		t.Errorf("recent = %d logs", len(recent))
	}

	sameDay, _ := repo.GetByDate(ctx, day(2024, 12, 5))
	if len(sameDay) != 2 {
		t.Errorf("by date = %d logs, want 2", len(sameDay))
	}

	missing, err := repo.GetByUserAndDate(ctx, 1, day(2024, 11, 30))
	if err != nil || missing != nil {
		t.Errorf("missing log = %v, %v", missing, err)
	}
}

func TestAbsenceOverlapIgnoresRejected(t *testing.T) {
	ctx := context.Background()
	repo, err := NewGormAbsenceRequestRepository(newTestDB(t), quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	pending, _ := repo.Create(ctx, models.AbsenceDraft{
		UserID: 1, Type: models.AbsenceTypeVacation, StartDate: day(2024, 12, 10), EndDate: day(2024, 12, 15),
	})
	rejected, _ := repo.Create(ctx, models.AbsenceDraft{
		UserID: 1, Type: models.AbsenceTypeDayOff, StartDate: day(2024, 12, 20), EndDate: day(2024, 12, 20),
	})
	reason := "нет"
	if _, err := repo.UpdateDecision(ctx, rejected.ID, models.AbsenceStatusRejected, &reason, 9); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		userID     uint
		start, end time.Time
		want       int
	}{
		{"inside", 1, day(2024, 12, 11), day(2024, 12, 12), 1},
		{"touches last day", 1, day(2024, 12, 15), day(2024, 12, 18), 1},
		{"after", 1, day(2024, 12, 16), day(2024, 12, 18), 0},
		{"rejected only", 1, day(2024, 12, 20), day(2024, 12, 20), 0},
		{"other user", 2, day(2024, 12, 10), day(2024, 12, 15), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindOverlapping(ctx, tt.userID, tt.start, tt.end)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("overlaps = %d, want %d", len(got), tt.want)
			}
			if tt.want == 1 && got[0].ID != pending.ID {
				t.Errorf("overlap id = %d", got[0].ID)
			}
		})
	}

	if pending.DaysCount != 6 || pending.Status != models.AbsenceStatusPending {
		t.Errorf("created = %+v", pending)
	}
}

func TestAbsenceDecisionOnlyOnce(t *testing.T) {
	ctx := context.Background()
	repo, err := NewGormAbsenceRequestRepository(newTestDB(t), quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	absence, _ := repo.Create(ctx, models.AbsenceDraft{
		UserID: 1, Type: models.AbsenceTypeSick, StartDate: day(2024, 12, 2), EndDate: day(2024, 12, 3),
	})

	decided, err := repo.UpdateDecision(ctx, absence.ID, models.AbsenceStatusApproved, nil, 7)
	if err != nil {
		t.Fatalf("first decision: %v", err)
	}
	if decided.Status != models.AbsenceStatusApproved || decided.ApprovedBy == nil || *decided.ApprovedBy != 7 {
		t.Errorf("decided = %+v", decided)
	}

	reason := "поздно"
	again, err := repo.UpdateDecision(ctx, absence.ID, models.AbsenceStatusRejected, &reason, 8)
	if !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("second decision err = %v", err)
	}
	if again.Status != models.AbsenceStatusApproved || again.RejectionReason != nil {
		t.Errorf("second decision changed the row: %+v", again)
	}

	if _, err := repo.UpdateDecision(ctx, 999, models.AbsenceStatusApproved, nil, 7); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing absence err = %v", err)
	}

	approved, _ := repo.GetApprovedOn(ctx, day(2024, 12, 3))
	if len(approved) != 1 {
		t.Errorf("approved on = %d", len(approved))
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := NewGormUserRepository(newTestDB(t))
	if err != nil {
		t.Fatal(err)
	}

	createUser(t, repo, 1, models.RoleEmployee)
	createUser(t, repo, 2, models.RoleManager)
	createUser(t, repo, 3, models.RoleAdmin)

	missing, err := repo.GetByChatID(ctx, 99)
	if err != nil || missing != nil {
		t.Errorf("missing user = %v, %v", missing, err)
	}

	if err := repo.UpdateRole(ctx, 1, models.RoleManager); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpdateRole(ctx, 99, models.RoleManager); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateRole(missing) err = %v", err)
	}

	moderators, err := repo.GetByRoles(ctx, models.RoleManager, models.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if len(moderators) != 3 {
		t.Errorf("moderators = %d, want 3", len(moderators))
	}

	total, mods, err := repo.GetStats(ctx)
	if err != nil || total != 3 || mods != 3 {
		t.Errorf("stats = %d/%d, %v", total, mods, err)
	}
}

func TestNonWorkingDayRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := NewGormNonWorkingDayRepository(newTestDB(t))
	if err != nil {
		t.Fatal(err)
	}

	days := []models.NonWorkingDay{
		{Date: "2025-01-01", Year: 2025, Month: 1, Day: 1},
		{Date: "2025-01-02", Year: 2025, Month: 1, Day: 2},
		{Date: "2025-02-23", Year: 2025, Month: 2, Day: 23},
	}
	if err := repo.BulkCreate(ctx, days); err != nil {
		t.Fatal(err)
	}

	january, _ := repo.GetByYearMonth(ctx, 2025, 1)
	if len(january) != 2 {
		t.Fatalf("january = %d days", len(january))
	}

	if january[0].Day != 1 || january[1].Date != "2025-01-02" {
		t.Errorf("january = %+v, want days ordered", january)
	}
	if march, err := repo.GetByYearMonth(ctx, 2025, 3); err != nil || len(march) != 0 {
		t.Errorf("march = %v, %v", march, err)
	}

	if err := repo.DeleteAll(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("count after delete = %d", n)
	}
}
