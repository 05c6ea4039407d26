package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactorialSafe(t *testing.T) {
	t.Run("exact small values", func(t *testing.T) {
		cases := map[int]float64{
			0:  1,
			1:  1,
			5:  120,
			10: 3628800,
		}
		for n, want := range cases {
			got, err := FactorialSafe(n)
			require.NoError(t, err)
			assert.Equal(t, want, got, "n=%d", n)
		}
	})

	t.Run("largest exact value is finite", func(t *testing.T) {
		got, err := FactorialSafe(170)
		require.NoError(t, err)
		assert.False(t, math.IsInf(got, 1), "170! must fit in a float64")
	})

	t.Run("switches to stirling above 170", func(t *testing.T) {
		got, err := FactorialSafe(171)
		require.NoError(t, err)
		require.False(t, math.IsInf(got, 1))

		// Stirling's relative error at n=171 is about 1/(12n); compare in
		// log space against the independent log formulation.
		logExact, err := LogFactorialSafe(171)
		require.NoError(t, err)
		assert.InDelta(t, logExact, math.Log(got), 0.01)
	})

	t.Run("negative argument is a domain error", func(t *testing.T) {
		_, err := FactorialSafe(-1)
		require.Error(t, err)
		var domainErr *DomainError
		assert.ErrorAs(t, err, &domainErr)
	})
}

func TestLogFactorialSafe(t *testing.T) {
	t.Run("matches log of exact factorial", func(t *testing.T) {
		for _, n := range []int{0, 1, 5, 20, 100, 170} {
			exact, err := FactorialSafe(n)
			require.NoError(t, err)
			logged, err := LogFactorialSafe(n)
			require.NoError(t, err)
			assert.InDelta(t, math.Log(exact), logged, 1e-9, "n=%d", n)
		}
	})

	t.Run("stirling log form stays finite for huge n", func(t *testing.T) {
		got, err := LogFactorialSafe(100000)
		require.NoError(t, err)
		assert.False(t, math.IsInf(got, 1))
		assert.Greater(t, got, 0.0)
	})

	t.Run("negative argument is a domain error", func(t *testing.T) {
		_, err := LogFactorialSafe(-3)
		assert.Error(t, err)
	})
}

func TestInverseNormalCDF(t *testing.T) {
	t.Run("known quantiles", func(t *testing.T) {
		cases := []struct {
			p    float64
			want float64
		}{
			{0.5, 0},
			{0.9, 1.2815515655},
			{0.95, 1.6448536270},
			{0.975, 1.9599639845},
			{0.99, 2.3263478740},
			{0.01, -2.3263478740},
		}
		for _, tc := range cases {
			got, err := InverseNormalCDF(tc.p)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-6, "p=%g", tc.p)
		}
	})

	t.Run("symmetric around the median", func(t *testing.T) {
		hi, err := InverseNormalCDF(0.8)
		require.NoError(t, err)
		lo, err := InverseNormalCDF(0.2)
		require.NoError(t, err)
		assert.InDelta(t, hi, -lo, 1e-9)
	})

	t.Run("rejects the domain boundary", func(t *testing.T) {
		for _, p := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
			_, err := InverseNormalCDF(p)
			assert.Error(t, err, "p=%g", p)
		}
	})
}

func TestErf(t *testing.T) {
	t.Run("known values", func(t *testing.T) {
		assert.InDelta(t, 0, Erf(0), 1e-9)
		assert.InDelta(t, 0.8427007929, Erf(1), 1e-6)
		assert.InDelta(t, 0.5204998778, Erf(0.5), 1e-6)
		assert.InDelta(t, 0.9953222650, Erf(2), 1e-6)
	})

	t.Run("odd function", func(t *testing.T) {
		assert.InDelta(t, -Erf(1.3), Erf(-1.3), 1e-12)
	})

	t.Run("saturates toward one", func(t *testing.T) {
		assert.InDelta(t, 1, Erf(5), 1e-9)
	})
}
