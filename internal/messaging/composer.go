package messaging

import (
	"fmt"
	"strings"

	"github.com/propflow/settlement-api/internal/invoice"
)

// ComposeSettlementNotice builds the plain-text settlement message sent to
// the seller. When invoice data is present the body carries the commission
// breakdown and bank transfer instructions; without it the notice still
// confirms the settlement.
func ComposeSettlementNotice(propertyTitle, sellerName string, inv *invoice.Invoice) string {
	var b strings.Builder

	name := sellerName
	if name == "" {
		name = "Seller"
	}

	fmt.Fprintf(&b, "Dear %s,\n\n", name)
	fmt.Fprintf(&b, "Congratulations! The sale of %s has now settled.\n\n", propertyTitle)

	if inv != nil {
		fmt.Fprintf(&b, "Your settlement invoice %s has been issued:\n", inv.InvoiceNumber)
		fmt.Fprintf(&b, "  Sale price: $%.2f\n", inv.PropertyValue)
		fmt.Fprintf(&b, "  Commission (%.1f%%): $%.2f\n", inv.CommissionRate, inv.CommissionAmount)
		fmt.Fprintf(&b, "  GST: $%.2f\n", inv.GSTAmount)
		fmt.Fprintf(&b, "  Total due: $%.2f\n", inv.TotalAmount)
		fmt.Fprintf(&b, "  Due date: %s\n\n", inv.DueDate.Format("2 January 2006"))
		fmt.Fprintf(&b, "Please pay by bank transfer:\n")
		fmt.Fprintf(&b, "  Account name: %s\n", inv.Bank.AccountName)
		fmt.Fprintf(&b, "  Bank: %s\n", inv.Bank.BankName)
		fmt.Fprintf(&b, "  BSB: %s\n", inv.Bank.BSB)
		fmt.Fprintf(&b, "  Account number: %s\n", inv.Bank.AccountNumber)
		fmt.Fprintf(&b, "  Reference: %s\n\n", inv.Bank.Reference)
	} else {
		b.WriteString("Your settlement invoice will follow separately.\n\n")
	}

	b.WriteString("If you have any questions about your settlement, reply to this message and your agent will follow up.\n")

	return b.String()
}
