package receipt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"finportal/internal/models"
)

var ErrInvalidReceipt = errors.New("invalid receipt data")

// Normalize fills defaults on a copy of d and checks the fields a receipt cannot be rendered without.
func Normalize(d models.ReceiptData, now time.Time) (models.ReceiptData, error) {
	d.CustomerName = strings.TrimSpace(d.CustomerName)
	if d.CustomerName == "" {
		return d, fmt.Errorf("%w: customer name is required", ErrInvalidReceipt)
	}
	if d.Amount <= 0 {
		return d, fmt.Errorf("%w: amount must be positive", ErrInvalidReceipt)
	}
	switch d.TransactionType {
	case "deposit", "withdrawal", "trade", "transfer":
	default:
		return d, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidReceipt, d.TransactionType)
	}

	if d.Date.IsZero() {
		d.Date = now
	}
	if d.ReceiptNumber == "" {
		d.ReceiptNumber = NewNumber(d.Date)
	}
	if d.Currency == "" {
		d.Currency = "USD"
	}
	d.Currency = strings.ToUpper(d.Currency)
	if d.Status == "" {
		d.Status = "completed"
	}
	return d, nil
}

// NewNumber returns RCP-YYYYMMDD-XXXXXXXX.
func NewNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("RCP-%s-%s", at.UTC().Format("20060102"), suffix)
}

func Title(transactionType string) string {
	switch transactionType {
	case "deposit":
		return "Deposit Receipt"
	case "withdrawal":
		return "Withdrawal Receipt"
	case "trade":
		return "Trade Confirmation"
	case "transfer":
		return "Transfer Receipt"
	}
	return "Transaction Receipt"
}

// FormatAmount renders 1234567.8 as "1,234,567.80".
func FormatAmount(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
