package views

import "time"

// CreditCard never exposes the full card number. ExpYear is the 2-digit form.
type CreditCard struct {
	ID        string    `json:"id"`
	Last4     string    `json:"last4"`
	Brand     string    `json:"brand"`
	ExpMonth  int       `json:"expMonth"`
	ExpYear   int       `json:"expYear"`
	CreatedAt time.Time `json:"createdAt"`
}

type EBT struct {
	ID         string    `json:"id"`
	Last4      string    `json:"last4"`
	State      string    `json:"state"`
	IssueMonth int       `json:"issueMonth"`
	IssueYear  int       `json:"issueYear"`
	CreatedAt  time.Time `json:"createdAt"`
}
