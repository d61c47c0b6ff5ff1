// Package queue defines message payloads exchanged over the message broker.
package queue

// Notification type tags carried in the Envelope.
const (
	TypeReceiptIssued   = "receipt.issued"
	TypeRefundProcessed = "refund.processed"
)

// Envelope wraps every message on the auction.notifications queue so a
// single consumer can dispatch on Type.  Exactly one of the payload
// fields is set, matching Type.
type Envelope struct {
	Type    string                `json:"type"`
	Receipt *ReceiptIssuedEvent   `json:"receipt,omitempty"`
	Refund  *RefundProcessedEvent `json:"refund,omitempty"`
}

// ReceiptIssuedEvent is published when a settlement slip is generated
// for an item's winning bidder.  It carries enough information for
// downstream consumers to send the receipt email or log it without
// querying the primary database.
type ReceiptIssuedEvent struct {
	SlipCode   string `json:"slip_code"`
	ItemID     uint64 `json:"item_id"`
	ItemTitle  string `json:"item_title"`
	UserID     uint64 `json:"user_id"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	FinalPrice string `json:"final_price"`
	IssuedAt   string `json:"issued_at"`
}

// RefundProcessedEvent is published after the refund distributor has
// credited losing bidders' deposits back.
type RefundProcessedEvent struct {
	SlipCode      string `json:"slip_code"`
	ItemID        uint64 `json:"item_id"`
	TotalRefunded string `json:"total_refunded"`
	RefundedCount int    `json:"refunded_count"`
	PerBidder     string `json:"per_bidder"`
	ProcessedAt   string `json:"processed_at"`
}
