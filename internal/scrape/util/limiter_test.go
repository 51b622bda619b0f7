package util

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestHostLimiterOverrides(t *testing.T) {
	hl := NewHostLimiter(2, 0)
	hl.SetHostRate("api.lever.co", 0.5)

	assert.Equal(t, rate.Limit(2), hl.limiterFor("boards-api.greenhouse.io").Limit())
	assert.Equal(t, rate.Limit(0.5), hl.limiterFor("api.lever.co").Limit())
	assert.Equal(t, 1, hl.limiterFor("api.lever.co").Burst())
	assert.Same(t, hl.limiterFor("api.lever.co"), hl.limiterFor("api.lever.co"))
}

func TestWaitURLNilLimiter(t *testing.T) {
	var hl *HostLimiter
	require.NoError(t, hl.WaitURL(context.Background(), "https://example.com/jobs"))
}
