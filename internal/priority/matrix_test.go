package priority

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-router/internal/domain"
)

func TestCalculateMatrix(t *testing.T) {
	cases := []struct {
		urgency, impact, want domain.TicketPriority
	}{
		{critical, critical, critical},
		{critical, high, critical},
		{critical, medium, high},
		{critical, low, medium},
		{high, critical, critical},
		{high, high, high},
		{high, medium, high},
		{high, low, medium},
		{medium, critical, high},
		{medium, high, high},
		{medium, medium, medium},
		{medium, low, low},
		{low, critical, medium},
		{low, high, medium},
		{low, medium, low},
		{low, low, low},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Calculate(tc.urgency, tc.impact), "urgency=%s impact=%s", tc.urgency, tc.impact)
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		require.Equal(t, medium, Calculate(critical, low))
		require.Equal(t, medium, Calculate(low, critical))
		require.Equal(t, high, Calculate(high, high))
	}
}

func TestCalculateUnknownFallsBackToMedium(t *testing.T) {
	require.Equal(t, medium, Calculate("urgent", high))
	require.Equal(t, medium, Calculate(high, ""))
	require.Equal(t, medium, Calculate("", ""))
}

func TestCalculateAcceptsLooseCase(t *testing.T) {
	require.Equal(t, critical, Calculate(" critical", "High "))
}

func TestParse(t *testing.T) {
	require.Equal(t, low, Parse("low"))
	require.Equal(t, domain.TicketPriority(""), Parse("p1"))
	require.True(t, Valid(domain.TicketPriorityHigh))
	require.False(t, Valid("URGENT"))
}
