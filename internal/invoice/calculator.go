package invoice

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Commission terms applied at invoice generation. The admin settings
// surface carries its own commission_rate key; the settlement calculator
// does not read it, settlement commission is a fixed contractual term.
const (
	CommissionRatePercent = 1.1
	GSTRatePercent        = 10.0
	DueDays               = 30
)

var (
	commissionRate = decimal.NewFromFloat(CommissionRatePercent)
	gstRate        = decimal.NewFromFloat(GSTRatePercent)
	hundred        = decimal.NewFromInt(100)
)

// Calculate derives the commission, GST and total for a settlement sale
// price. Commission and GST are each rounded to cents; the total is their
// exact sum.
func Calculate(propertyValue float64) (commission, gst, total float64) {
	value := decimal.NewFromFloat(propertyValue)

	c := value.Mul(commissionRate).Div(hundred).Round(2)
	g := c.Mul(gstRate).Div(hundred).Round(2)
	t := c.Add(g)

	return c.InexactFloat64(), g.InexactFloat64(), t.InexactFloat64()
}

// NewInvoiceNumber builds an INV-YYYYMMDD-NNNN number from the given date
// and a random 4-digit suffix. Uniqueness is probabilistic; the unique
// index on the store surfaces the rare same-day collision.
func NewInvoiceNumber(at time.Time) string {
	return fmt.Sprintf("INV-%s-%04d", at.Format("20060102"), rand.Intn(10000))
}

// BankReference combines an invoice number with the upper-cased last six
// characters of the seller id.
func BankReference(invoiceNumber, sellerID string) string {
	tail := sellerID
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	return invoiceNumber + "-" + strings.ToUpper(tail)
}
