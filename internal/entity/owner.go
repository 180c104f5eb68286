package entity

import (
	"errors"
	"net/mail"
	"strings"
)

// ErrInvalidOwner is returned when an order attribution is missing or malformed.
var ErrInvalidOwner = errors.New("invalid order owner")

// Owner attributes an order to exactly one of an account or a guest contact.
type Owner interface {
	isOwner()
	Validate() error
}

// AuthenticatedOwner is a registered user resolved from a bearer credential.
type AuthenticatedOwner struct {
	UserID int64
}

func (AuthenticatedOwner) isOwner() {}

// Validate checks the user id is set.
func (o AuthenticatedOwner) Validate() error {
	if o.UserID <= 0 {
		return ErrInvalidOwner
	}
	return nil
}

// GuestOwner is an anonymous buyer identified by contact details.
type GuestOwner struct {
	Email   string
	Address string
}

func (GuestOwner) isOwner() {}

// Validate requires a parseable email address.
func (o GuestOwner) Validate() error {
	email := strings.TrimSpace(o.Email)
	if email == "" {
		return ErrInvalidOwner
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidOwner
	}
	return nil
}
