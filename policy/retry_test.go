package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifierSuccessNeverRetried(t *testing.T) {
	classifier := NewClassifier()

	require.False(t, classifier.ShouldRetry(200))
	require.False(t, classifier.ShouldRetry(204))
	require.False(t, classifier.ShouldRetry(299))
}

func TestClassifierGlobalDisable(t *testing.T) {
	classifier := NewClassifier(
		WithRetryEnabled(false),
		WithRetryStatusCodes(503),
	)

	// Globally disabled beats even the explicit retry list.
	require.False(t, classifier.ShouldRetry(500))
	require.False(t, classifier.ShouldRetry(503))
	require.False(t, classifier.ShouldRetry(0))
}

func TestClassifierDefaults(t *testing.T) {
	classifier := NewClassifier()

	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{name: "server error", status: 500, want: true},
		{name: "unavailable", status: 503, want: true},
		{name: "network failure", status: 0, want: true},
		{name: "too many requests", status: 429, want: true},
		{name: "bad request", status: 400, want: false},
		{name: "unauthorized", status: 401, want: false},
		{name: "forbidden", status: 403, want: false},
		{name: "gone", status: 410, want: false},
		{name: "unprocessable", status: 422, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, classifier.ShouldRetry(tt.status))
		})
	}
}

func TestClassifierExplicitDontRetry(t *testing.T) {
	classifier := NewClassifier(WithDontRetryStatusCodes(404))

	require.False(t, classifier.ShouldRetry(404))
	// Defaults still apply alongside caller-supplied codes.
	require.False(t, classifier.ShouldRetry(422))
	require.True(t, classifier.ShouldRetry(500))
}

func TestClassifierExplicitRetryWins(t *testing.T) {
	classifier := NewClassifier(
		WithRetryStatusCodes(429),
		WithDontRetryStatusCodes(429),
	)

	// A code on both lists is retried: explicit retry wins.
	require.True(t, classifier.ShouldRetry(429))
}

func TestClassifierRetryListOverridesDefaults(t *testing.T) {
	classifier := NewClassifier(WithRetryStatusCodes(410))

	// 410 is on the default don't-retry list, but the explicit retry
	// list takes precedence.
	require.True(t, classifier.ShouldRetry(410))
}
