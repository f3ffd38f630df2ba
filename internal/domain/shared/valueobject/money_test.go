package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoneyFromString(t *testing.T) {
	t.Run("valid string", func(t *testing.T) {
		m, err := NewMoneyFromString("123.45")
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("123.45")))
	})

	t.Run("four fractional digits allowed", func(t *testing.T) {
		m, err := NewMoneyFromString("0.0001")
		require.NoError(t, err)
		assert.True(t, m.IsPositive())
	})

	t.Run("too precise", func(t *testing.T) {
		_, err := NewMoneyFromString("1.00001")
		assert.ErrorIs(t, err, ErrTooPrecise)
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number")
		assert.Error(t, err)
	})
}

func TestMoney_Arithmetic(t *testing.T) {
	a := MustMoney("500.00")
	b := MustMoney("50.00")

	assert.Equal(t, "550.00", a.Add(b).String())
	assert.Equal(t, "450.00", a.Sub(b).String())
	assert.Equal(t, "-450.00", b.Sub(a).String())
	assert.Equal(t, "1500.00", a.MulInt(3).String())
	assert.Equal(t, "-500.00", a.Neg().String())
	assert.Equal(t, b, a.Min(b))
	assert.Equal(t, "550.00", Sum(a, b).String())
	assert.True(t, Sum().IsZero())
}

func TestMoney_DecimalExactness(t *testing.T) {
	// 0.1 added ten times must be exactly 1, unlike float64.
	total := Zero()
	for i := 0; i < 10; i++ {
		total = total.Add(MustMoney("0.1"))
	}
	assert.True(t, total.Equals(NewMoneyFromInt(1)))
}

func TestMoney_Comparison(t *testing.T) {
	a := MustMoney("100")
	b := MustMoney("100.00")
	c := MustMoney("99.99")

	assert.True(t, a.Equals(b))
	assert.Equal(t, 0, a.Cmp(b))
	assert.True(t, c.LessThan(a))
	assert.True(t, c.LessThanOrEqual(a))
	assert.True(t, a.LessThanOrEqual(b))
	assert.True(t, a.GreaterThan(c))
	assert.True(t, a.GreaterThanOrEqual(b))
	assert.False(t, c.GreaterThanOrEqual(a))
}

func TestMoney_Predicates(t *testing.T) {
	assert.True(t, Zero().IsZero())
	assert.True(t, MustMoney("0.01").IsPositive())
	assert.True(t, MustMoney("-0.01").IsNegative())

	assert.NoError(t, MustMoney("1").RequirePositive())
	assert.ErrorIs(t, Zero().RequirePositive(), ErrNonPositive)
	assert.ErrorIs(t, MustMoney("-5").RequirePositive(), ErrNonPositive)
}

func TestMoney_JSON(t *testing.T) {
	t.Run("marshal as string", func(t *testing.T) {
		data, err := json.Marshal(MustMoney("450"))
		require.NoError(t, err)
		assert.Equal(t, `"450.00"`, string(data))
	})

	t.Run("marshal keeps sub-cent digits", func(t *testing.T) {
		data, err := json.Marshal(MustMoney("1.2345"))
		require.NoError(t, err)
		assert.Equal(t, `"1.2345"`, string(data))
	})

	t.Run("unmarshal string and number", func(t *testing.T) {
		var v struct {
			A Money `json:"a"`
			B Money `json:"b"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"a":"12.50","b":7}`), &v))
		assert.Equal(t, "12.50", v.A.String())
		assert.Equal(t, "7.00", v.B.String())
	})

	t.Run("unmarshal rejects garbage", func(t *testing.T) {
		var m Money
		assert.Error(t, json.Unmarshal([]byte(`"abc"`), &m))
	})
}

func TestMoney_ValueScan(t *testing.T) {
	v, err := MustMoney("12.5").Value()
	require.NoError(t, err)
	assert.Equal(t, "12.5000", v)

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string", "450.0000", "450.00"},
		{"bytes", []byte("1.2500"), "1.25"},
		{"int64", int64(300), "300.00"},
		{"float64", float64(12.75), "12.75"},
		{"nil", nil, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Money
			require.NoError(t, m.Scan(tt.input))
			assert.Equal(t, tt.want, m.String())
		})
	}

	var m Money
	assert.Error(t, m.Scan(true))
}
