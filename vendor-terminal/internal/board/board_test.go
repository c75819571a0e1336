package board

import (
	"bytes"
	"strings"
	"testing"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/fjod/canteen/vendor-terminal/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeView struct {
	orders []d.Order
	states map[string]tracker.State
}

func (v fakeView) Orders() []d.Order             { return v.orders }
func (v fakeView) State(id string) tracker.State { return v.states[id] }

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "INR 1,234.50", FormatAmount(123450, "INR"))
	assert.Equal(t, "INR 300.00", FormatAmount(30000, "INR"))
	assert.Equal(t, "30,000", FormatAmount(30000, ""))
}

func TestRender(t *testing.T) {
	v := fakeView{
		orders: []d.Order{
			{ID: "o1", Status: d.OrderStatusAccepted, TotalMinorUnits: 30000, Currency: "INR",
				Items: []d.OrderItem{{ItemID: "dosa", Name: "Masala Dosa", Quantity: 2}}},
			{ID: "o2", Status: d.OrderStatusPending, TotalMinorUnits: 4200, Currency: "INR",
				Items: []d.OrderItem{{ItemID: "coffee", Quantity: 1}}},
		},
		states: map[string]tracker.State{"o1": tracker.Pending},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, v))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "SYNC")
	assert.Contains(t, lines[1], "2x Masala Dosa")
	assert.Contains(t, lines[1], "pending")
	assert.Contains(t, lines[2], "1x coffee")
	assert.Contains(t, lines[2], "INR 42.00")
	assert.Contains(t, lines[2], "clean")
}
