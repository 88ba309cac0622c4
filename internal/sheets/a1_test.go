package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		idx  int
		want string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ColumnLetter(tt.idx))
	}
}

func TestRangeHelpers(t *testing.T) {
	assert.Equal(t, "Orders!A5:AZ5", RowRange("Orders", 5, 51))
	assert.Equal(t, "Orders!C2:C11", ColumnRange("Orders", 2, 2, 11))
	assert.Equal(t, "Orders!1:1", HeaderRange("Orders"))
}

func TestFindColumn(t *testing.T) {
	header := []string{"EcomdashID", "Invoice Date", " Payment Received Date ", "Email"}

	assert.Equal(t, 0, FindColumn(header, []string{"orderId", "ecomdashid"}))
	assert.Equal(t, 1, FindColumn(header, []string{"InvoiceDate"}))
	assert.Equal(t, 2, FindColumn(header, []string{"PaymentReceivedDate"}))
	assert.Equal(t, -1, FindColumn(header, []string{"CompletedDate"}))
}
