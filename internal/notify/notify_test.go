package notify

import (
	"context"
	"encoding/json"
	"errors"
	"investtrack/internal/database"
	"investtrack/internal/investments"
	"investtrack/internal/rates"
	"investtrack/internal/utils"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	today   = time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC)
	discard = slog.New(slog.NewTextHandler(io.Discard, nil))
)

type fakeMailer struct {
	sent []Email
	fail map[string]bool
}

func (m *fakeMailer) Send(_ context.Context, e Email) error {
	if m.fail[e.To] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, e)
	return nil
}

type memDeduper map[string]bool

func (d memDeduper) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	if d[key] {
		return false, nil
	}
	d[key] = true
	return true, nil
}

func (d memDeduper) Release(_ context.Context, key string) error {
	delete(d, key)
	return nil
}

type staticRates struct{}

func (staticRates) Rates(context.Context) *rates.ExchangeRates { return rates.Fallback("MDL", today) }

func newSource(t *testing.T) *investments.Service {
	t.Helper()
	dbm := database.NewDatabaseManager()
	if err := dbm.Connect("sqlite::memory:"); err != nil {
		t.Fatal(err)
	}
	if err := dbm.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { dbm.Close() })
	db := dbm.DB

	users := []utils.User{
		{ID: "ana", Email: "ana@example.com", Name: "Ana"},
		{ID: "ion", Email: "ion@example.com", Name: "Ion"},
		{ID: "eva", Email: "eva@example.com"},
	}
	for _, u := range users {
		if err := db.Create(&u).Error; err != nil {
			t.Fatal(err)
		}
	}
	day30 := time.Date(2026, 11, 14, 0, 0, 0, 0, time.UTC)
	rows := []struct {
		user, org, cur string
		exp            time.Time
	}{
		{"ana", "MAIB", "EUR", day30},
		{"ana", "Victoriabank", "MDL", day30},
		{"ion", "Ministry of Finance", "MDL", day30},
		{"ion", "OTP", "USD", time.Date(2026, 10, 28, 0, 0, 0, 0, time.UTC)},
		{"eva", "Energbank", "MDL", time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, r := range rows {
		inv := utils.Investment{
			ID: uuid.NewString(), UserID: r.user, Organization: r.org, Type: utils.BankDeposit,
			Currency: r.cur, Amount: decimal.NewFromInt(1000), InterestRate: decimal.RequireFromString("5.5"),
			ExpirationDate: r.exp,
		}
		if err := db.Create(&inv).Error; err != nil {
			t.Fatal(err)
		}
	}

	svc := investments.NewService(db)
	svc.SetClock(func() time.Time { return today })
	return svc
}

func TestCompose(t *testing.T) {
	user := utils.User{ID: "ana", Email: "ana@example.com", Name: "Ana"}
	list := []utils.Investment{{
		ID: "1", Organization: "MAIB", Type: utils.GovernmentBond, Currency: "EUR",
		Amount: decimal.NewFromInt(100), InterestRate: decimal.RequireFromString("4.5"),
		ExpirationDate: time.Date(2026, 11, 14, 0, 0, 0, 0, time.UTC),
	}}
	e, err := Compose(Window30Days, list[0].ExpirationDate, user, list, rates.Fallback("MDL", today), "https://app.example.com")
	if err != nil {
		t.Fatalf("Compose() unexpected error = %v", err)
	}
	if e.To != "ana@example.com" || e.Subject != "Investments expiring on 14 November 2026" {
		t.Errorf("Compose() = %q to %q", e.Subject, e.To)
	}
	for _, want := range []string{"MAIB", "Government bond", "2026-11-14", "4.50%", "Hello Ana", "https://app.example.com"} {
		if !strings.Contains(e.Text, want) {
			t.Errorf("Compose() text missing %q:\n%s", want, e.Text)
		}
	}
	if !strings.Contains(e.HTML, "<table>") || !strings.Contains(e.HTML, "<h1>") {
		t.Errorf("Compose() html not rendered:\n%s", e.HTML)
	}

	e, _ = Compose(WindowMonth, today, user, list, rates.Fallback("MDL", today), "")
	if e.Subject != "Investments expiring in October 2026" {
		t.Errorf("Compose(month) subject = %q", e.Subject)
	}
}

func TestRun30Days(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(newSource(t), staticRates{}, mailer, nil, "", discard)

	report, err := d.Run(context.Background(), Window30Days)
	if err != nil {
		t.Fatalf("Run() unexpected error = %v", err)
	}
	if report.Date != "2026-11-14" || report.Investments != 3 || report.Users != 2 || report.Sent != 2 || !report.OK() {
		t.Errorf("Run() report = %+v", report)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("sent = %d, want 2", len(mailer.sent))
	}
	byTo := map[string]Email{}
	for _, e := range mailer.sent {
		byTo[e.To] = e
	}
	ana := byTo["ana@example.com"].Text
	if !strings.Contains(ana, "MAIB") || !strings.Contains(ana, "Victoriabank") {
		t.Errorf("ana digest = %s", ana)
	}
	if ion := byTo["ion@example.com"].Text; strings.Contains(ion, "OTP") || !strings.Contains(ion, "Ministry of Finance") {
		t.Errorf("ion digest = %s", ion)
	}
}

func TestRunMonthReportsFailures(t *testing.T) {
	mailer := &fakeMailer{fail: map[string]bool{"ion@example.com": true}}
	d := NewDispatcher(newSource(t), staticRates{}, mailer, nil, "", discard)

	report, err := d.Run(context.Background(), WindowMonth)
	if err != nil {
		t.Fatalf("Run() unexpected error = %v", err)
	}
	// eva's December investment is out of the window
	if report.Users != 1 || report.Investments != 1 {
		t.Errorf("Run() report = %+v", report)
	}
	if report.OK() || len(report.Failed) != 1 || report.Failed[0].UserID != "ion" {
		t.Errorf("Run() failed = %+v", report.Failed)
	}
}

func TestRunDeduplicates(t *testing.T) {
	mailer := &fakeMailer{fail: map[string]bool{"ion@example.com": true}}
	dedup := memDeduper{}
	d := NewDispatcher(newSource(t), staticRates{}, mailer, dedup, "", discard)

	if _, err := d.Run(context.Background(), Window30Days); err != nil {
		t.Fatal(err)
	}
	mailer.fail = nil
	report, err := d.Run(context.Background(), Window30Days)
	if err != nil {
		t.Fatal(err)
	}
	// ana was mailed already, ion failed and is retried
	if report.Skipped != 1 || report.Sent != 1 {
		t.Errorf("second Run() report = %+v", report)
	}
	if len(mailer.sent) != 2 || mailer.sent[1].To != "ion@example.com" {
		t.Errorf("sent = %v", mailer.sent)
	}
}

func TestGroupByUserReportsUnaddressed(t *testing.T) {
	ana := &utils.User{ID: "ana", Email: "ana@example.com"}
	list := []utils.Investment{
		{ID: "i1", UserID: "ana", User: ana},
		{ID: "i2", UserID: "ghost"},
		{ID: "i3", UserID: "blank", User: &utils.User{ID: "blank"}},
		{ID: "i4", UserID: "ana", User: ana},
	}
	users, byUser, unaddressed := groupByUser(list)
	if len(users) != 1 || len(byUser["ana"]) != 2 {
		t.Errorf("groupByUser() users = %v, byUser = %v", users, byUser)
	}
	if strings.Join(unaddressed, ",") != "i2,i3" {
		t.Errorf("groupByUser() unaddressed = %v, want [i2 i3]", unaddressed)
	}
}

func TestParseWindow(t *testing.T) {
	if w, err := ParseWindow("MONTH"); err != nil || w != WindowMonth {
		t.Errorf("ParseWindow(MONTH) = %v, %v", w, err)
	}
	if _, err := ParseWindow("week"); err == nil {
		t.Error("ParseWindow(week) expected error")
	}
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mailer := &fakeMailer{}
	h := NewHandler(NewDispatcher(newSource(t), staticRates{}, mailer, nil, "", discard), discard)
	r := gin.New()
	r.GET("/expiring", h.Expiring)
	r.GET("/monthly", h.Monthly)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/expiring", nil))
	var env struct {
		Success bool   `json:"success"`
		Data    Report `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &env)
	if w.Code != http.StatusOK || !env.Success || env.Data.Sent != 2 {
		t.Errorf("GET /expiring = %d %s", w.Code, w.Body)
	}

	mailer.fail = map[string]bool{"ion@example.com": true}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/monthly", nil))
	json.Unmarshal(w.Body.Bytes(), &env)
	if w.Code != http.StatusInternalServerError || env.Success || len(env.Data.Failed) != 1 {
		t.Errorf("GET /monthly = %d %s", w.Code, w.Body)
	}
}
