package domain

import (
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "ACME STORE", NormalizeName("  acme Store \t"))
	assert.Equal(t, "JOÃO", NormalizeName("joão"))
}

func TestValidateName(t *testing.T) {
	assert.Equal(t, "Name is required", ValidateName("   "))
	assert.Contains(t, ValidateName(" a "), "at least 2")
	assert.Contains(t, ValidateName(strings.Repeat("x", 101)), "not exceed 100")
	assert.Empty(t, ValidateName("ok"))
}

func TestNewParties(t *testing.T) {
	c := NewCustomer(" jane doe ")
	assert.Equal(t, "JANE DOE", c.Name)
	assert.NotEqual(t, uuid.Nil, c.ID)

	b := NewBranch("downtown")
	assert.Equal(t, "DOWNTOWN", b.Name)

	p, err := NewProduct(" beer ", decimal.RequireFromString("4.99"))
	require.NoError(t, err)
	assert.Equal(t, "BEER", p.Name)
	assert.Equal(t, int64(0), p.ID)

	_, err = NewProduct("beer", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrProductPriceInvalid)
}

func TestSaleFilter_Normalize(t *testing.T) {
	f := SaleFilter{}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Equal(t, 0, f.Offset())

	f = SaleFilter{Page: 3, PageSize: 500}.Normalize()
	assert.Equal(t, MaxPageSize, f.PageSize)
	assert.Equal(t, 200, f.Offset())

	f = SaleFilter{Page: math.MaxInt, PageSize: MaxPageSize}.Normalize()
	assert.Equal(t, MaxPage, f.Page)
	assert.Positive(t, f.Offset())
}

func TestNewProduct_RoundsPriceToStoredScale(t *testing.T) {
	p, err := NewProduct("wine", decimal.RequireFromString("1.995"))
	require.NoError(t, err)
	assert.Equal(t, "2.00", p.Price.StringFixed(2))
	assert.True(t, decimal.RequireFromString("2").Equal(p.Price))

	p, err = NewProduct("water", decimal.RequireFromString("0.004"))
	require.NoError(t, err)
	assert.True(t, p.Price.IsZero())
}

func TestSaleView_AppendItem(t *testing.T) {
	var v SaleView
	v.AppendItem(SaleItemView{Quantity: 10, UnitPrice: decimal.RequireFromString("20.00"), Discount: decimal.RequireFromString("40.00")})
	v.AppendItem(SaleItemView{Quantity: 1, UnitPrice: decimal.RequireFromString("2.50"), Discount: decimal.Zero})

	assert.True(t, decimal.RequireFromString("160").Equal(v.Items[0].TotalPrice))
	assert.True(t, decimal.RequireFromString("162.50").Equal(v.TotalAmount))
}
