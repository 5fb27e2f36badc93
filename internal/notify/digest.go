package notify

import (
	"bytes"
	"fmt"
	"investtrack/internal/rates"
	"investtrack/internal/utils"
	"strings"
	"time"

	md "github.com/nao1215/markdown"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type Window string

const (
	Window30Days Window = "30d"
	WindowMonth  Window = "month"
)

func ParseWindow(s string) (Window, error) {
	switch Window(strings.ToLower(s)) {
	case Window30Days:
		return Window30Days, nil
	case WindowMonth:
		return WindowMonth, nil
	}
	return "", fmt.Errorf("unknown window %q (want 30d or month)", s)
}

type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

var htmlRenderer = goldmark.New(goldmark.WithExtensions(extension.Table))

// Compose renders one user's digest. list must belong to user.
func Compose(w Window, on time.Time, user utils.User, list []utils.Investment, r *rates.ExchangeRates, appURL string) (Email, error) {
	subject := fmt.Sprintf("Investments expiring on %s", on.Format("2 January 2006"))
	intro := "The following investments expire in 30 days."
	if w == WindowMonth {
		subject = fmt.Sprintf("Investments expiring in %s", on.Format("January 2006"))
		intro = "The following investments expire this month."
	}

	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1(subject)
	name := user.Name
	if name == "" {
		name = user.Email
	}
	doc.PlainText(fmt.Sprintf("Hello %s,", name))
	doc.PlainText(intro)

	rows := make([][]string, 0, len(list))
	for _, inv := range list {
		rows = append(rows, []string{
			inv.Organization,
			inv.Type.Label(),
			inv.ExpirationDate.Format(time.DateOnly),
			rates.Format(inv.Amount, inv.Currency),
			inv.InterestRate.StringFixed(2) + "%",
		})
	}
	doc.Table(md.TableSet{
		Header: []string{"Organization", "Type", "Expires", "Amount", "Interest"},
		Rows:   rows,
	})

	total := rates.TotalCapital(list, r)
	doc.PlainText(fmt.Sprintf("Total: %s", total.Display))
	if appURL != "" {
		doc.PlainText(fmt.Sprintf("Review them on your dashboard: %s", appURL))
	}

	text := doc.String()
	var html bytes.Buffer
	if err := htmlRenderer.Convert([]byte(text), &html); err != nil {
		return Email{}, fmt.Errorf("rendering digest: %w", err)
	}
	return Email{To: user.Email, Subject: subject, HTML: html.String(), Text: text}, nil
}
