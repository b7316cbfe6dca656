package models

import "time"

const (
	CategoryAccount    = "account"
	CategoryDeposit    = "deposit"
	CategoryWithdrawal = "withdrawal"
	CategoryTrade      = "trade"
	CategorySecurity   = "security"
)

// Notification is the in-app log entry written after an email goes out.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
