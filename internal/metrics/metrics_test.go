package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(ReviewsCreated)
	ReviewsCreated.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ReviewsCreated))

	before = testutil.ToFloat64(TokenExchanges.WithLabelValues("issued"))
	TokenExchanges.WithLabelValues("issued").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(TokenExchanges.WithLabelValues("issued")))
}
