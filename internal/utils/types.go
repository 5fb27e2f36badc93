package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvestmentType string

const (
	BankDeposit    InvestmentType = "bank_deposit"
	GovernmentBond InvestmentType = "government_bond"
	CorporateBond  InvestmentType = "corporate_bond"
	EVMS           InvestmentType = "evms"
)

// InvestmentTypes lists every accepted InvestmentType.
var InvestmentTypes = []InvestmentType{BankDeposit, GovernmentBond, CorporateBond, EVMS}

func (t InvestmentType) Valid() bool {
	for _, v := range InvestmentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Label is the human readable name used in emails.
func (t InvestmentType) Label() string {
	switch t {
	case BankDeposit:
		return "Bank deposit"
	case GovernmentBond:
		return "Government bond"
	case CorporateBond:
		return "Corporate bond"
	case EVMS:
		return "eVMS"
	}
	return string(t)
}

// User is the profile of an externally authenticated identity.
// ID is the identity provider subject.
type User struct {
	ID        string    `gorm:"primaryKey;not null" json:"id"`
	Email     string    `gorm:"not null;uniqueIndex" json:"email"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

type Investment struct {
	ID             string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID         string          `gorm:"not null;index" json:"user_id"`
	User           *User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Organization   string          `gorm:"size:200;not null" json:"organization"`
	Type           InvestmentType  `gorm:"type:varchar(32);not null" json:"type"`
	Currency       string          `gorm:"type:varchar(3);not null" json:"currency"`
	Amount         decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	IncomeTax      decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"income_tax"`
	InterestRate   decimal.Decimal `gorm:"type:numeric(7,4);not null;default:0" json:"interest_rate"`
	ExpirationDate time.Time       `gorm:"not null;index" json:"expiration_date"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (Investment) TableName() string {
	return "investments"
}

type Document struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string    `gorm:"not null;index" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	URL         string    `gorm:"type:text;not null" json:"url"`
	BlobKey     string    `gorm:"type:text;not null" json:"-"`
	Filename    string    `gorm:"size:255;not null" json:"filename"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	Size        int64     `gorm:"not null;default:0" json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Document) TableName() string {
	return "documents"
}

// Models is the migration set, parents first.
func Models() []any {
	return []any{&User{}, &Investment{}, &Document{}}
}
