package handler

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"timetracker-bot/internal/callback"
	"timetracker-bot/internal/config"
	"timetracker-bot/internal/events"
	"timetracker-bot/internal/i18n"
	"timetracker-bot/internal/models"
	"timetracker-bot/internal/repository"
	"timetracker-bot/internal/service"
	"timetracker-bot/internal/session"
	"timetracker-bot/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	employeeChat int64 = 100
	managerChat  int64 = 200
)

func TestMain(m *testing.M) {
	i18n.Init("ru")
	os.Exit(m.Run())
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	answered []tgbotapi.CallbackConfig
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (s *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		s.answered = append(s.answered, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *fakeSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return s.sent[len(s.sent)-1]
}

// countingWorkLogs считает реальные записи в хранилище.
type countingWorkLogs struct {
	repository.WorkLogRepository
	updates int
}

func (c *countingWorkLogs) Update(ctx context.Context, log *models.WorkLog, patch models.WorkLogPatch) (*models.WorkLog, error) {
	c.updates++
	return c.WorkLogRepository.Update(ctx, log, patch)
}

type fixture struct {
	handler  *Handler
	sender   *fakeSender
	sessions *session.Manager
	workLogs *countingWorkLogs
	absences *repository.GormAbsenceRequestRepository
	users    *repository.GormUserRepository
	bus      *events.Bus
	clock    *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

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

	users, err := repository.NewGormUserRepository(db)
	if err != nil {
		t.Fatal(err)
	}
	gormLogs, err := repository.NewGormWorkLogRepository(db, logger)
	if err != nil {
		t.Fatal(err)
	}
	absences, err := repository.NewGormAbsenceRequestRepository(db, logger)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for _, u := range []*models.User{
		{ChatID: employeeChat, FirstName: "Иван", Role: models.RoleEmployee, Active: true},
		{ChatID: managerChat, FirstName: "Мария", Role: models.RoleManager, Active: true},
	} {
		if err := users.Create(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	clock := &testClock{now: time.Date(2024, 12, 2, 9, 0, 0, 0, time.Local)}
	workLogs := &countingWorkLogs{WorkLogRepository: gormLogs}
	bus := events.NewBus(logger)
	sessions := session.NewManager(session.NewCooldown(time.Hour, logger).WithClock(clock.Now))

	cfg := &config.BotConfig{
		CooldownFast:    time.Second,
		CooldownDefault: 3 * time.Second,
		CooldownSlow:    5 * time.Second,
		Locale:          "ru",
	}

	sender := &fakeSender{}
	h := NewHandler(
		sender,
		service.NewUserService(users, bus, logger),
		service.NewWorkLogService(workLogs, bus, logger).WithClock(clock.Now),
		service.NewAbsenceService(absences, users, bus, logger),
		service.NewTeamService(users, workLogs, absences, bus, logger),
		wizard.New(sessions, absences, bus, logger).WithClock(clock.Now),
		sessions,
		cfg,
		logger,
	).WithClock(clock.Now)

	return &fixture{
		handler:  h,
		sender:   sender,
		sessions: sessions,
		workLogs: workLogs,
		absences: absences,
		users:    users,
		bus:      bus,
		clock:    clock,
	}
}

func pressUpdate(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "q",
			From:    &tgbotapi.User{ID: chatID},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
			Data:    data,
		},
	}
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		name := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}}
	}
	return tgbotapi.Update{Message: msg}
}

func (f *fixture) press(chatID int64, data string) {
	f.handler.handleUpdate(context.Background(), pressUpdate(chatID, data))
}

func (f *fixture) say(chatID int64, text string) {
	f.handler.handleUpdate(context.Background(), textUpdate(chatID, text))
}

func (f *fixture) createAbsence(t *testing.T) *models.AbsenceRequest {
	t.Helper()
	employee, err := f.users.GetByChatID(context.Background(), employeeChat)
	if err != nil || employee == nil {
		t.Fatalf("employee: %v", err)
	}
	absence, err := f.absences.Create(context.Background(), models.AbsenceDraft{
		UserID:    employee.ID,
		Type:      models.AbsenceTypeDayOff,
		StartDate: time.Date(2024, 12, 10, 0, 0, 0, 0, time.Local),
		EndDate:   time.Date(2024, 12, 10, 0, 0, 0, 0, time.Local),
	})
	if err != nil {
		t.Fatal(err)
	}
	return absence
}

func recordDecisions(bus *events.Bus) *[]events.AbsenceDecision {
	var got []events.AbsenceDecision
	events.Subscribe(bus, func(_ context.Context, e events.AbsenceDecision, _ events.Envelope) error {
		got = append(got, e)
		return nil
	})
	return &got
}

func TestDuplicatePressWithinCooldownMutatesOnce(t *testing.T) {
	f := newFixture(t)

	f.press(employeeChat, string(callback.KindSickDay))
	f.clock.Advance(time.Second)
	f.press(employeeChat, string(callback.KindSickDay))

	if f.workLogs.updates != 1 {
		t.Fatalf("work log updated %d times, want 1", f.workLogs.updates)
	}

	f.sender.mu.Lock()
	defer f.sender.mu.Unlock()
	last := f.sender.answered[len(f.sender.answered)-1]
	if last.Text != i18n.T(context.Background(), "error.cooldown") {
		t.Errorf("second press answered %q", last.Text)
	}
}

func TestArrivalThenDuplicateIsRejectedByValidator(t *testing.T) {
	f := newFixture(t)

	f.press(employeeChat, string(callback.KindArrivedOffice))
	if !strings.Contains(f.sender.last(t).Text, "09:00") {
		t.Errorf("reply %q does not show arrival time", f.sender.last(t).Text)
	}

	f.clock.Advance(time.Minute)
	f.press(employeeChat, string(callback.KindArrivedRemote))

	if f.workLogs.updates != 1 {
		t.Errorf("work log updated %d times, want 1", f.workLogs.updates)
	}
	if !strings.Contains(f.sender.last(t).Text, "уже отметили приход") {
		t.Errorf("reply = %q", f.sender.last(t).Text)
	}
}

func TestLeaveStartsReportDialog(t *testing.T) {
	f := newFixture(t)

	f.press(employeeChat, string(callback.KindArrivedOffice))
	f.clock.Advance(8 * time.Hour)
	f.press(employeeChat, string(callback.KindLeftWork))

	if f.sessions.Get(employeeChat).Kind() != session.KindAwaitingReport {
		t.Fatalf("state = %s, want awaiting report", f.sessions.Get(employeeChat).Kind())
	}

	f.say(employeeChat, "Сделал релиз\nПроблемы: медленный CI")

	if f.sessions.Get(employeeChat).Kind() != session.KindIdle {
		t.Error("dialog must end after the report is saved")
	}

	employee, _ := f.users.GetByChatID(context.Background(), employeeChat)
	log, err := f.workLogs.GetByUserAndDate(context.Background(), employee.ID, f.clock.Now())
	if err != nil || log == nil {
		t.Fatalf("work log: %v", err)
	}
	if log.DailyReport == nil || *log.DailyReport != "Сделал релиз" {
		t.Errorf("report = %v", log.DailyReport)
	}
	if log.Problems == nil || *log.Problems != "медленный CI" {
		t.Errorf("problems = %v", log.Problems)
	}
}

func TestRejectWithReasonPublishesOneDecision(t *testing.T) {
	f := newFixture(t)
	decisions := recordDecisions(f.bus)
	absence := f.createAbsence(t)

	f.press(managerChat, callback.Reject(absence.ID).Data())

	state, ok := f.sessions.Get(managerChat).(session.AwaitingRejectionReason)
	if !ok || state.AbsenceID != absence.ID {
		t.Fatalf("state = %#v", f.sessions.Get(managerChat))
	}
	if len(*decisions) != 0 {
		t.Fatal("reject button alone must not decide")
	}

	f.say(managerChat, "Дедлайн проекта")

	if len(*decisions) != 1 {
		t.Fatalf("published %d decisions, want 1", len(*decisions))
	}
	got := (*decisions)[0]
	if got.Decision != events.DecisionRejected || got.Reason == nil || *got.Reason != "Дедлайн проекта" {
		t.Errorf("decision = %+v", got)
	}
	if got.User.ChatID != employeeChat {
		t.Errorf("decision addressed to %d", got.User.ChatID)
	}
	if f.sessions.Get(managerChat).Kind() != session.KindIdle {
		t.Error("dialog must end after the reason")
	}

	stored, _ := f.absences.GetByID(context.Background(), absence.ID)
	if stored.Status != models.AbsenceStatusRejected {
		t.Errorf("status = %s", stored.Status)
	}
}

func TestApproveAlreadyDecidedPublishesNothing(t *testing.T) {
	f := newFixture(t)
	decisions := recordDecisions(f.bus)
	absence := f.createAbsence(t)

	f.press(managerChat, callback.Approve(absence.ID).Data())
	f.clock.Advance(time.Minute)
	f.press(managerChat, callback.Approve(absence.ID).Data())

	if len(*decisions) != 1 {
		t.Fatalf("published %d decisions, want 1", len(*decisions))
	}
	if !strings.Contains(f.sender.last(t).Text, "уже принято решение") {
		t.Errorf("reply = %q", f.sender.last(t).Text)
	}
}

func TestEmployeeCannotModerate(t *testing.T) {
	f := newFixture(t)
	decisions := recordDecisions(f.bus)
	absence := f.createAbsence(t)

	f.press(employeeChat, callback.Approve(absence.ID).Data())

	if len(*decisions) != 0 {
		t.Fatal("employee decision must be refused")
	}
	if f.sender.last(t).Text != i18n.T(context.Background(), "error.forbidden") {
		t.Errorf("reply = %q", f.sender.last(t).Text)
	}
}

func TestAbsenceWizardThroughChat(t *testing.T) {
	f := newFixture(t)

	var created []events.AbsenceCreated
	events.Subscribe(f.bus, func(_ context.Context, e events.AbsenceCreated, _ events.Envelope) error {
		created = append(created, e)
		return nil
	})

	f.press(employeeChat, string(callback.KindAbsenceVacation))
	f.say(employeeChat, "23.12.2024")
	f.say(employeeChat, "20.12.2024")
	if !strings.Contains(f.sender.last(t).Text, "раньше даты начала") {
		t.Errorf("reply = %q", f.sender.last(t).Text)
	}
	f.say(employeeChat, "27.12.2024")
	f.say(employeeChat, "Новогодние праздники")

	if len(created) != 1 {
		t.Fatalf("created %d absences, want 1", len(created))
	}
	if created[0].Absence.DaysCount != 5 || created[0].Absence.Type != models.AbsenceTypeVacation {
		t.Errorf("absence = %+v", created[0].Absence)
	}
	if f.sessions.Get(employeeChat).Kind() != session.KindIdle {
		t.Error("wizard must be cleared after creation")
	}
}

func TestBatchedUpdatesKeepUserOrder(t *testing.T) {
	for run := 0; run < 20; run++ {
		t.Run(fmt.Sprint(run), func(t *testing.T) {
			f := newFixture(t)

			var created []events.AbsenceCreated
			events.Subscribe(f.bus, func(_ context.Context, e events.AbsenceCreated, _ events.Envelope) error {
				created = append(created, e)
				return nil
			})

			batch := []tgbotapi.Update{
				pressUpdate(employeeChat, string(callback.KindAbsenceVacation)),
				textUpdate(managerChat, "/myday"),
				textUpdate(employeeChat, "23.12.2024"),
				textUpdate(employeeChat, "27.12.2024"),
				textUpdate(managerChat, "/help"),
				textUpdate(employeeChat, "-"),
			}
			updates := make(chan tgbotapi.Update, len(batch))
			for _, u := range batch {
				updates <- u
			}
			close(updates)

			f.handler.HandleUpdates(context.Background(), updates)

			if len(created) != 1 {
				t.Fatalf("created %d absences, want 1", len(created))
			}
			if created[0].Absence.DaysCount != 5 {
				t.Errorf("absence = %+v", created[0].Absence)
			}
			if f.sessions.Get(employeeChat).Kind() != session.KindIdle {
				t.Error("wizard must be finished")
			}
		})
	}
}

func TestCancelEndsWizard(t *testing.T) {
	f := newFixture(t)

	f.press(employeeChat, string(callback.KindAbsenceSick))
	if f.sessions.Get(employeeChat).Kind() != session.KindAbsenceWizard {
		t.Fatal("wizard not started")
	}

	f.say(employeeChat, "/cancel")

	if f.sessions.Get(employeeChat).Kind() != session.KindIdle {
		t.Error("cancel must clear the wizard")
	}
	if f.sender.last(t).Text != i18n.T(context.Background(), "cancel.done") {
		t.Errorf("reply = %q", f.sender.last(t).Text)
	}
}

func TestUnregisteredUserIsAskedToStart(t *testing.T) {
	f := newFixture(t)

	f.press(300, string(callback.KindArrivedOffice))

	if f.workLogs.updates != 0 {
		t.Error("unregistered user must not touch work logs")
	}
	if f.sender.last(t).Text != i18n.T(context.Background(), "error.not_registered") {
		t.Errorf("reply = %q", f.sender.last(t).Text)
	}
}

func TestStartRegistersNewUser(t *testing.T) {
	f := newFixture(t)

	f.handler.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 300},
		From:     &tgbotapi.User{ID: 300, FirstName: "Олег"},
		Text:     "/start",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
	}})

	user, err := f.users.GetByChatID(context.Background(), 300)
	if err != nil || user == nil {
		t.Fatalf("user not registered: %v", err)
	}
	if user.Role != models.RoleEmployee {
		t.Errorf("role = %s", user.Role)
	}
	if !strings.Contains(f.sender.last(t).Text, "Олег") {
		t.Errorf("reply = %q", f.sender.last(t).Text)
	}
}

func TestUnknownCallbackData(t *testing.T) {
	f := newFixture(t)

	f.press(employeeChat, "self_destruct")

	f.sender.mu.Lock()
	defer f.sender.mu.Unlock()
	if len(f.sender.answered) != 1 || f.sender.answered[0].Text != i18n.T(context.Background(), "error.unknown_button") {
		t.Errorf("answered = %+v", f.sender.answered)
	}
}
