package board

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/fjod/canteen/vendor-terminal/internal/tracker"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// View is the part of the terminal the board renders.
type View interface {
	Orders() []d.Order
	State(orderID string) tracker.State
}

// Render writes the live order board as an aligned table.
func Render(w io.Writer, v View) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tSTATUS\tTOTAL\tITEMS\tSYNC")
	for _, o := range v.Orders() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.Status, FormatAmount(o.TotalMinorUnits, o.Currency), items(o.Items), v.State(o.ID))
	}
	return tw.Flush()
}

// FormatAmount renders minor units in the currency's standard scale, e.g. "INR 1,234.50".
func FormatAmount(minor int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return printer.Sprintf("%d", minor)
	}
	scale, _ := currency.Standard.Rounding(unit)
	value, _ := decimal.New(minor, -int32(scale)).Float64()
	return printer.Sprintf("%v %v", unit, number.Decimal(value, number.Scale(scale)))
}

func items(list []d.OrderItem) string {
	parts := make([]string, 0, len(list))
	for _, it := range list {
		name := it.Name
		if name == "" {
			name = it.ItemID
		}
		parts = append(parts, fmt.Sprintf("%dx %s", it.Quantity, name))
	}
	return strings.Join(parts, ", ")
}
