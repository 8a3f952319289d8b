package invoice

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name          string
		propertyValue float64
		commission    float64
		gst           float64
		total         float64
	}{
		{
			name:          "one million dollar sale",
			propertyValue: 1_000_000,
			commission:    11_000,
			gst:           1_100,
			total:         12_100,
		},
		{
			name:          "typical suburban sale",
			propertyValue: 450_000,
			commission:    4_950,
			gst:           495,
			total:         5_445,
		},
		{
			name:          "rounding to cents",
			propertyValue: 333_333,
			commission:    3_666.66,
			gst:           366.67,
			total:         4_033.33,
		},
		{
			name:          "small value",
			propertyValue: 100,
			commission:    1.10,
			gst:           0.11,
			total:         1.21,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commission, gst, total := Calculate(tt.propertyValue)
			assert.InDelta(t, tt.commission, commission, 0.001)
			assert.InDelta(t, tt.gst, gst, 0.001)
			assert.InDelta(t, tt.total, total, 0.001)
		})
	}
}

func TestCalculate_TotalIsSumOfParts(t *testing.T) {
	for _, value := range []float64{1, 999.99, 123_456.78, 2_750_000} {
		commission, gst, total := Calculate(value)
		assert.InDelta(t, commission+gst, total, 0.001, "value %.2f", value)
	}
}

func TestNewInvoiceNumber(t *testing.T) {
	at := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

	number := NewInvoiceNumber(at)

	assert.Regexp(t, regexp.MustCompile(`^INV-\d{8}-\d{4}$`), number)
	assert.Contains(t, number, "INV-20260315-")
}

func TestBankReference(t *testing.T) {
	tests := []struct {
		name          string
		invoiceNumber string
		sellerID      string
		expected      string
	}{
		{
			name:          "long seller id uses last six characters",
			invoiceNumber: "INV-20260315-0042",
			sellerID:      "SEL_a1b2c3d4e5f6",
			expected:      "INV-20260315-0042-D4E5F6",
		},
		{
			name:          "short seller id used whole",
			invoiceNumber: "INV-20260315-0042",
			sellerID:      "abc",
			expected:      "INV-20260315-0042-ABC",
		},
		{
			name:          "empty seller id",
			invoiceNumber: "INV-20260315-0042",
			sellerID:      "",
			expected:      "INV-20260315-0042-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BankReference(tt.invoiceNumber, tt.sellerID))
		})
	}
}
