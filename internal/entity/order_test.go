package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.True(t, OrderStatusPaid.IsTerminal())
	assert.True(t, OrderStatusFailed.IsTerminal())
	assert.False(t, OrderStatus("refunded").IsTerminal())
}

func TestOwnerValidate(t *testing.T) {
	cases := []struct {
		name  string
		owner Owner
		valid bool
	}{
		{"user", AuthenticatedOwner{UserID: 1}, true},
		{"user without id", AuthenticatedOwner{}, false},
		{"guest", GuestOwner{Email: "cat@example.com"}, true},
		{"guest with address", GuestOwner{Email: "cat@example.com", Address: "Av. Siempre Viva 742"}, true},
		{"guest without email", GuestOwner{Address: "Av. Siempre Viva 742"}, false},
		{"guest with bad email", GuestOwner{Email: "cat"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.owner.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidOwner)
			}
		})
	}
}

func TestOrder_SetOwnerIsExclusive(t *testing.T) {
	var o Order

	o.SetOwner(GuestOwner{Email: "cat@example.com", Address: "Av. Siempre Viva 742"})
	assert.Nil(t, o.UserID)
	assert.Equal(t, GuestOwner{Email: "cat@example.com", Address: "Av. Siempre Viva 742"}, o.Owner())

	o.SetOwner(AuthenticatedOwner{UserID: 9})
	assert.Nil(t, o.GuestEmail)
	assert.Nil(t, o.GuestAddress)
	assert.Equal(t, AuthenticatedOwner{UserID: 9}, o.Owner())

	o.SetOwner(GuestOwner{Email: "dog@example.com"})
	assert.Nil(t, o.UserID)
	assert.Nil(t, o.GuestAddress)
	assert.Equal(t, GuestOwner{Email: "dog@example.com"}, o.Owner())
}
