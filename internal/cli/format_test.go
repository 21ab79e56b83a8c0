package cli

import (
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"testing"
)

func TestUSD(t *testing.T) {
	testTable := []struct {
		name   string
		amount string
		expect string
	}{
		{name: "OK", amount: "10000", expect: "$10,000.00"},
		{name: "OK if cents", amount: "187.44", expect: "$187.44"},
		{name: "OK if rounding up", amount: "0.125", expect: "$0.13"},
		{name: "OK if zero", amount: "0", expect: "$0.00"},
		{name: "OK if negative", amount: "-1234.5", expect: "-$1,234.50"},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expect, usd(decimal.RequireFromString(testCase.amount)))
		})
	}

	assert.Equal(t, "n/a", usdText("n/a"))
	assert.Equal(t, "$1.50", usdText("1.5"))
}
