package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.NewFromFloat(99.95), USD)
	require.NoError(t, err)
	assert.True(t, m.Amount().Equal(decimal.NewFromFloat(99.95)))
	assert.Equal(t, USD, m.Currency())

	_, err = NewMoney(decimal.NewFromInt(10), "")
	assert.Error(t, err)
}

func TestNewMoneyUSDFromString(t *testing.T) {
	m, err := NewMoneyUSDFromString("120.50")
	require.NoError(t, err)
	assert.Equal(t, "120.50", m.StringFixed(2))

	_, err = NewMoneyUSDFromString("not-a-number")
	assert.Error(t, err)
}

func TestMoney_Arithmetic(t *testing.T) {
	a := NewMoneyUSDFromFloat(100.00)
	b := NewMoneyUSDFromFloat(40.50)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "140.50", sum.StringFixed(2))

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.Equal(t, "59.50", diff.StringFixed(2))

	product := b.Multiply(decimal.NewFromInt(3))
	assert.Equal(t, "121.50", product.StringFixed(2))

	tenPercent := a.Percentage(decimal.NewFromInt(10))
	assert.Equal(t, "10.00", tenPercent.StringFixed(2))
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	usd := NewMoneyUSDFromFloat(10)
	eur, err := NewMoney(decimal.NewFromInt(10), EUR)
	require.NoError(t, err)

	_, err = usd.Add(eur)
	assert.Error(t, err)

	_, err = usd.Subtract(eur)
	assert.Error(t, err)

	_, err = usd.LessThan(eur)
	assert.Error(t, err)
}

func TestMoney_Predicates(t *testing.T) {
	assert.True(t, ZeroUSD().IsZero())
	assert.True(t, NewMoneyUSDFromFloat(0.01).IsPositive())
	assert.True(t, NewMoneyUSDFromFloat(-5).IsNegative())
	assert.True(t, NewMoneyUSDFromFloat(-5).Negate().IsPositive())
}

func TestMoney_Comparison(t *testing.T) {
	small := NewMoneyUSDFromFloat(9.99)
	large := NewMoneyUSDFromFloat(10.00)

	less, err := small.LessThan(large)
	require.NoError(t, err)
	assert.True(t, less)

	greater, err := large.GreaterThan(small)
	require.NoError(t, err)
	assert.True(t, greater)

	assert.True(t, small.Equals(NewMoneyUSDFromFloat(9.99)))
	assert.False(t, small.Equals(large))
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	original := NewMoneyUSDFromFloat(135.90)

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"135.9","currency":"USD"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, original.Equals(decoded))
}

func TestMoney_UnmarshalJSON_DefaultsCurrency(t *testing.T) {
	var m Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"42"}`), &m))
	assert.Equal(t, DefaultCurrency, m.Currency())

	err := json.Unmarshal([]byte(`{"amount":"abc"}`), &m)
	assert.Error(t, err)
}
