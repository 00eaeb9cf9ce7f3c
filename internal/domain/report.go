package domain

import "time"

// SummaryRow aggregates completed transactions of one type and currency over
// a reporting period.
type SummaryRow struct {
	Type        TransactionType `json:"type"`
	Currency    string          `json:"currency"`
	Count       int64           `json:"count"`
	TotalAmount string          `json:"total_amount"`
	TotalTTD    string          `json:"total_ttd"`
}

// SummaryParams bounds a reporting period. ToDate is exclusive.
type SummaryParams struct {
	FromDate time.Time `json:"from_date"`
	ToDate   time.Time `json:"to_date"`
}
