package model

import "time"

// Slip is the settlement receipt issued to the winning bidder after an
// auction closes.  The short numeric code on the slip is what the
// operator keys in to trigger the refund fan-out for losing bidders.
// At most one slip exists per item.
//
// Fields:
//  ID        – primary key identifier.
//  ItemID    – item this receipt settles (unique).
//  UserID    – winning bidder the slip was issued to.
//  Code      – short random receipt code (unique).
//  CreatedAt – timestamp of issuance.
type Slip struct {
	ID        uint64    // slips.id
	ItemID    uint64    // slips.item_id
	UserID    uint64    // slips.user_id
	Code      string    // slips.code
	CreatedAt time.Time // slips.created_at
}
