// Package ar manages customer invoices, receipts, and receivables aging.
package ar

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus enumerates AR invoice statuses.
type InvoiceStatus string

const (
	StatusOpen          InvoiceStatus = "OPEN"
	StatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	StatusPaid          InvoiceStatus = "PAID"
	StatusVoid          InvoiceStatus = "VOID"
)

// Invoice models a receivable owed by a customer.
type Invoice struct {
	ID           int64         `json:"id"`
	OrgID        int64         `json:"org_id"`
	Ref          uuid.UUID     `json:"ref"`
	Number       string        `json:"number"`
	CustomerID   int64         `json:"customer_id"`
	CustomerName string        `json:"customer_name"`
	Total        float64       `json:"total"`
	Paid         float64       `json:"paid"`
	DueDate      time.Time     `json:"due_date"`
	Status       InvoiceStatus `json:"status"`
	CreatedBy    int64         `json:"created_by"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Outstanding returns the unpaid remainder.
func (i Invoice) Outstanding() float64 {
	return i.Total - i.Paid
}

// Payment records cash received against an invoice.
type Payment struct {
	ID        int64     `json:"id"`
	OrgID     int64     `json:"org_id"`
	InvoiceID int64     `json:"invoice_id"`
	Amount    float64   `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
	Method    string    `json:"method"`
	Note      string    `json:"note"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
