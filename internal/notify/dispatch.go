package notify

import (
	"context"
	"fmt"
	"investtrack/internal/rates"
	"investtrack/internal/utils"
	"log/slog"
	"time"
)

const dedupTTL = 48 * time.Hour

// Source is satisfied by *investments.Service.
type Source interface {
	Today() time.Time
	ExpiringOn(ctx context.Context, day time.Time) ([]utils.Investment, error)
	ExpiringInMonth(ctx context.Context, t time.Time) ([]utils.Investment, error)
}

type RateSource interface {
	Rates(ctx context.Context) *rates.ExchangeRates
}

type Failure struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Error  string `json:"error"`
}

// Report describes one dispatch run, recipient by recipient.
type Report struct {
	Window      Window    `json:"window"`
	Date        string    `json:"date"`
	Investments int       `json:"investments"`
	Users       int       `json:"users"`
	Sent        int       `json:"sent"`
	Skipped     int       `json:"skipped"`
	Unaddressed []string  `json:"unaddressed"`
	Failed      []Failure `json:"failed"`
}

func (r Report) OK() bool {
	return len(r.Failed) == 0
}

type Dispatcher struct {
	source Source
	rates  RateSource
	mailer Mailer
	dedup  Deduper
	appURL string
	logger *slog.Logger
}

func NewDispatcher(source Source, rates RateSource, mailer Mailer, dedup Deduper, appURL string, logger *slog.Logger) *Dispatcher {
	if dedup == nil {
		dedup = NopDeduper{}
	}
	return &Dispatcher{
		source: source,
		rates:  rates,
		mailer: mailer,
		dedup:  dedup,
		appURL: appURL,
		logger: logger,
	}
}

// Run sends one digest per user owning an investment in the window.
// The error is only for a failed query; send failures are in the report.
func (d *Dispatcher) Run(ctx context.Context, w Window) (Report, error) {
	today := d.source.Today()
	on := today
	var (
		list []utils.Investment
		err  error
	)
	switch w {
	case Window30Days:
		on = today.AddDate(0, 0, 30)
		list, err = d.source.ExpiringOn(ctx, on)
	case WindowMonth:
		list, err = d.source.ExpiringInMonth(ctx, today)
	default:
		return Report{}, fmt.Errorf("unknown window %q", w)
	}
	if err != nil {
		return Report{}, err
	}

	report := Report{Window: w, Date: on.Format(time.DateOnly), Investments: len(list), Failed: []Failure{}}
	users, byUser, unaddressed := groupByUser(list)
	report.Users = len(users)
	report.Unaddressed = unaddressed
	if len(unaddressed) > 0 {
		d.logger.Warn("Investments without a reachable owner", "window", w, "investments", unaddressed)
	}
	if len(users) == 0 {
		return report, nil
	}
	r := d.rates.Rates(ctx)

	for _, user := range users {
		key := fmt.Sprintf("digest:%s:%s:%s", w, today.Format(time.DateOnly), user.ID)
		first, err := d.dedup.Claim(ctx, key, dedupTTL)
		if err != nil {
			d.logger.Warn("Digest dedup unavailable, sending anyway", "userId", user.ID, "error", err)
			first = true
		}
		if !first {
			report.Skipped++
			continue
		}

		email, err := Compose(w, on, user, byUser[user.ID], r, d.appURL)
		if err == nil {
			err = d.mailer.Send(ctx, email)
		}
		if err != nil {
			d.logger.Error("Failed to send digest", "window", w, "userId", user.ID, "error", err)
			report.Failed = append(report.Failed, Failure{UserID: user.ID, Email: user.Email, Error: err.Error()})
			if rerr := d.dedup.Release(ctx, key); rerr != nil {
				d.logger.Warn("Failed to release digest key", "key", key, "error", rerr)
			}
			continue
		}
		report.Sent++
	}
	d.logger.Info("Digest dispatch finished", "window", w, "date", report.Date, "users", report.Users, "sent", report.Sent, "skipped", report.Skipped, "unaddressed", len(report.Unaddressed), "failed", len(report.Failed))
	return report, nil
}

// groupByUser keeps the first-seen user order. IDs of investments without
// a loaded owner or owner email are returned apart.
func groupByUser(list []utils.Investment) ([]utils.User, map[string][]utils.Investment, []string) {
	var users []utils.User
	byUser := make(map[string][]utils.Investment)
	unaddressed := []string{}
	for _, inv := range list {
		if inv.User == nil || inv.User.Email == "" {
			unaddressed = append(unaddressed, inv.ID)
			continue
		}
		if _, ok := byUser[inv.UserID]; !ok {
			users = append(users, *inv.User)
		}
		byUser[inv.UserID] = append(byUser[inv.UserID], inv)
	}
	return users, byUser, unaddressed
}
