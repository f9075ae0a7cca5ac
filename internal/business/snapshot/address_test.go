package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"oms/mpsync/internal/marketplace"
)

func TestBuildStreetAddress(t *testing.T) {
	t.Run("geographic fields only", func(t *testing.T) {
		addr := &marketplace.RawAddress{
			Country:   "RU",
			Postcode:  "101000",
			City:      "Moscow",
			Street:    "Arbat",
			House:     "12",
			Block:     "2",
			Apartment: "45",
			Floor:     "3",
			Recipient: "Petrov Petr",
			Phone:     "+70000000002",
		}

		got := BuildStreetAddress(addr)
		assert.Equal(t, "Moscow, Arbat, 12, bld 2", got)

		// personal and vertical-location fields never leak into the street address
		assert.NotContains(t, got, "45")
		assert.NotContains(t, got, "Petrov")
		assert.NotContains(t, got, "+7")
		assert.NotContains(t, got, "101000")
	})

	t.Run("empty fields skipped", func(t *testing.T) {
		addr := &marketplace.RawAddress{City: "Kazan", House: "7"}
		assert.Equal(t, "Kazan, 7", BuildStreetAddress(addr))
	})

	t.Run("nil address", func(t *testing.T) {
		assert.Equal(t, "", BuildStreetAddress(nil))
	})
}

func TestBuildComment(t *testing.T) {
	t.Run("full comment channel", func(t *testing.T) {
		addr := &marketplace.RawAddress{
			Apartment:  "45",
			Entrance:   "1",
			Floor:      "3",
			Entryphone: "45K",
			Subway:     "Arbatskaya",
			Recipient:  "Petrov Petr",
			Phone:      "+70000000002",
			Notes:      "call before arrival",
		}

		got := BuildComment(addr, nil)
		assert.Equal(t,
			"apt 45; entrance 1; floor 3; intercom 45K; subway Arbatskaya; "+
				"recipient: Petrov Petr; phone: +70000000002; note: call before arrival",
			got)
	})

	t.Run("buyer fallback for recipient and phone", func(t *testing.T) {
		addr := &marketplace.RawAddress{Apartment: "45"}
		buyer := &marketplace.RawBuyer{LastName: "Ivanova", FirstName: "Anna", Phone: "+70000000001"}

		got := BuildComment(addr, buyer)
		assert.Contains(t, got, "recipient: Ivanova Anna")
		assert.Contains(t, got, "phone: +70000000001")
	})

	t.Run("address fields win over buyer", func(t *testing.T) {
		addr := &marketplace.RawAddress{Recipient: "Petrov Petr", Phone: "+70000000002"}
		buyer := &marketplace.RawBuyer{LastName: "Ivanova", Phone: "+70000000001"}

		got := BuildComment(addr, buyer)
		assert.Contains(t, got, "recipient: Petrov Petr")
		assert.Contains(t, got, "phone: +70000000002")
		assert.NotContains(t, got, "Ivanova")
	})

	t.Run("nil address yields empty comment", func(t *testing.T) {
		assert.Equal(t, "", BuildComment(nil, &marketplace.RawBuyer{LastName: "Ivanova"}))
	})
}
