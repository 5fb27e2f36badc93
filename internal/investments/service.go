package investments

import (
	"context"
	"errors"
	"fmt"
	"investtrack/internal/utils"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidInvestment = errors.New("invalid investment")
	ErrNotFound          = errors.New("not found")
)

var hundred = decimal.NewFromInt(100)

type CreateRequest struct {
	Organization   string          `form:"organization" json:"organization"`
	Type           string          `form:"type" json:"type"`
	Currency       string          `form:"currency" json:"currency"`
	Amount         decimal.Decimal `form:"amount" json:"amount"`
	IncomeTax      decimal.Decimal `form:"income_tax" json:"income_tax"`
	InterestRate   decimal.Decimal `form:"interest_rate" json:"interest_rate"`
	ExpirationDate string          `form:"expiration_date" json:"expiration_date"`
}

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Today is the current UTC date at midnight.
func (s *Service) Today() time.Time {
	return startOfDay(s.now())
}

func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (utils.Investment, error) {
	inv, err := s.validate(req)
	if err != nil {
		return utils.Investment{}, err
	}
	inv.ID = uuid.NewString()
	inv.UserID = userID
	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return utils.Investment{}, fmt.Errorf("saving investment: %w", err)
	}
	return inv, nil
}

func (s *Service) validate(req CreateRequest) (utils.Investment, error) {
	invalid := func(format string, args ...any) (utils.Investment, error) {
		return utils.Investment{}, fmt.Errorf("%w: %s", ErrInvalidInvestment, fmt.Sprintf(format, args...))
	}

	org := strings.TrimSpace(req.Organization)
	if org == "" {
		return invalid("organization is required")
	}
	typ := utils.InvestmentType(strings.ToLower(strings.TrimSpace(req.Type)))
	if !typ.Valid() {
		return invalid("unknown type %q", req.Type)
	}
	cur := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(cur) != 3 {
		return invalid("currency must be a 3 letter code")
	}
	if !req.Amount.IsPositive() {
		return invalid("amount must be positive")
	}
	if req.IncomeTax.IsNegative() || req.IncomeTax.GreaterThan(hundred) {
		return invalid("income tax must be between 0 and 100")
	}
	if req.InterestRate.IsNegative() {
		return invalid("interest rate must not be negative")
	}
	exp, err := parseDate(req.ExpirationDate)
	if err != nil {
		return invalid("expiration date: %v", err)
	}
	if !exp.After(s.Today()) {
		return invalid("expiration date must be in the future")
	}

	return utils.Investment{
		Organization:   org,
		Type:           typ,
		Currency:       cur,
		Amount:         req.Amount.Round(2),
		IncomeTax:      req.IncomeTax.Round(2),
		InterestRate:   req.InterestRate.Round(4),
		ExpirationDate: exp,
	}, nil
}

// ListByUser returns the user's investments, soonest expiration first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]utils.Investment, error) {
	out := []utils.Investment{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("expiration_date ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing investments: %w", err)
	}
	return out, nil
}

func (s *Service) UserByEmail(ctx context.Context, email string) (utils.User, error) {
	var u utils.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return u, ErrNotFound
	}
	return u, err
}

// ExpiringOn returns investments expiring during day, owners preloaded.
func (s *Service) ExpiringOn(ctx context.Context, day time.Time) ([]utils.Investment, error) {
	from, to := DayWindow(day)
	return s.expiringBetween(ctx, from, to)
}

// ExpiringInMonth returns investments expiring during the calendar month
// containing t, ordered by expiration.
func (s *Service) ExpiringInMonth(ctx context.Context, t time.Time) ([]utils.Investment, error) {
	from, to := MonthWindow(t)
	return s.expiringBetween(ctx, from, to)
}

func (s *Service) expiringBetween(ctx context.Context, from, to time.Time) ([]utils.Investment, error) {
	var out []utils.Investment
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("expiration_date >= ? AND expiration_date <= ?", from, to).
		Order("expiration_date ASC, organization ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("querying expirations: %w", err)
	}
	return out, nil
}

// DayWindow is [00:00, 23:59:59.999999999] UTC of day.
func DayWindow(day time.Time) (time.Time, time.Time) {
	from := startOfDay(day)
	return from, from.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// MonthWindow is the first to the last instant of t's month, UTC.
func MonthWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("required")
	}
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a date", s)
	}
	return startOfDay(t), nil
}
