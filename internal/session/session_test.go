package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampTTL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ttl  time.Duration
		want time.Duration
	}{
		{name: "zero selects default", ttl: 0, want: DefaultTTL},
		{name: "negative selects default", ttl: -time.Minute, want: DefaultTTL},
		{name: "below minimum", ttl: time.Second, want: MinTTL},
		{name: "at minimum", ttl: MinTTL, want: MinTTL},
		{name: "in range", ttl: 30 * time.Minute, want: 30 * time.Minute},
		{name: "at maximum", ttl: MaxTTL, want: MaxTTL},
		{name: "above maximum", ttl: 24 * time.Hour, want: MaxTTL},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, clampTTL(tc.ttl))
		})
	}
}
