package models

import "time"

// ReceiptData is everything a transaction receipt shows.
type ReceiptData struct {
	ReceiptNumber   string    `json:"receipt_number"`
	CustomerName    string    `json:"customer_name" binding:"required"`
	CustomerEmail   string    `json:"customer_email" binding:"omitempty,email"`
	TransactionType string    `json:"transaction_type" binding:"required,oneof=deposit withdrawal trade transfer"`
	Amount          float64   `json:"amount" binding:"gt=0"`
	Currency        string    `json:"currency"`
	Method          string    `json:"method"`
	Status          string    `json:"status"`
	Reference       string    `json:"reference"`
	Description     string    `json:"description"`
	Date            time.Time `json:"date"`
}
