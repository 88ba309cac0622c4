package ecomdash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderDetailHTML = `<!DOCTYPE html>
<html>
<body>
<table id="SalesOrderProductList">
<tbody>
	<tr>
		<td>1</td>
		<td><b><font>Blue Widget</font></b><br>SKU: BW-100<br>Qty each</td>
		<td></td>
		<td></td>
		<td><input type="hidden" value="2"></td>
		<td><input type="hidden" value="9.99"></td>
	</tr>
	<tr>
		<td><a class="expand-row" href="#">+</a></td>
		<td><b><font>Gift Basket</font></b><br>SKU: KIT-7</td>
		<td></td>
		<td></td>
		<td><input type="hidden" value="1"></td>
		<td><input type="hidden" value="34.50"></td>
	</tr>
	<tr>
		<td colspan="6">
			<table class="child-table">
			<tbody>
				<tr><td>Scented Candle</td><td>CNDL-1</td><td>2</td><td>A3</td></tr>
				<tr><td>Bar Soap</td><td>SOAP-9</td><td>1</td><td>B1</td></tr>
			</tbody>
			</table>
		</td>
	</tr>
	<tr>
		<td>3</td>
		<td><b><font>Red Widget</font></b><br>SKU: RW-200</td>
		<td></td>
		<td></td>
		<td><input type="hidden" value="1"></td>
		<td><input class="order-price" value="19.99"></td>
	</tr>
</tbody>
</table>
</body>
</html>`

func TestParseProductRows(t *testing.T) {
	rows, err := ParseProductRows(orderDetailHTML)
	require.NoError(t, err)
	require.Len(t, rows, 3, "child rows must not count as product rows")

	assert.Equal(t, ProductRow{Name: "Blue Widget", SKU: "BW-100", Qty: "2", Price: "9.99"}, rows[0])

	assert.Equal(t, "Gift Basket", rows[1].Name)
	assert.Equal(t, "KIT-7", rows[1].SKU)
	assert.True(t, rows[1].HasKit)

	assert.Equal(t, "RW-200", rows[2].SKU)
	assert.Equal(t, "19.99", rows[2].Price, "visible order-price input is the fallback when the hidden input is absent")
	assert.False(t, rows[2].HasKit)
}

func TestParseProductRowsMissingFieldsAreEmpty(t *testing.T) {
	html := `<table id="SalesOrderProductList"><tbody>
		<tr><td>1</td><td>no bold name here</td><td></td><td></td><td></td><td></td></tr>
	</tbody></table>`

	rows, err := ParseProductRows(html)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ProductRow{}, rows[0])
}

func TestParseKitComponents(t *testing.T) {
	components, err := ParseKitComponents(orderDetailHTML, 1)
	require.NoError(t, err)
	require.Len(t, components, 2)

	assert.Equal(t, KitComponent{Name: "Scented Candle", SKU: "CNDL-1", Qty: "2", Location: "A3"}, components[0])
	assert.Equal(t, KitComponent{Name: "Bar Soap", SKU: "SOAP-9", Qty: "1", Location: "B1"}, components[1])
}

func TestParseKitComponentsWrongRowYieldsNothing(t *testing.T) {
	components, err := ParseKitComponents(orderDetailHTML, 0)
	require.NoError(t, err)
	assert.Empty(t, components)

	components, err = ParseKitComponents(orderDetailHTML, 2)
	require.NoError(t, err)
	assert.Empty(t, components)
}
