package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// ProfileSource supplies the read-only risk snapshot for a buyer. The
// stored attributes belong to the account subsystem; this interface is
// the engine's only view of them.
type ProfileSource interface {
	Profile(ctx context.Context, buyerID snowflake.ID) (Profile, error)
}

// Contact is the delivery identity for notifications.
type Contact struct {
	BuyerID  snowflake.ID
	FullName string
	Email    string
}

// ContactSource resolves where a buyer's notifications go.
type ContactSource interface {
	Contact(ctx context.Context, buyerID snowflake.ID) (Contact, error)
}

var ErrBuyerNotFound = errors.New("buyer_not_found")
