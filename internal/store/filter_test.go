package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikePattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"groceries", "%groceries%"},
		{"  padded ", "%padded%"},
		{"100%", `%100\%%`},
		{"snake_case", `%snake\_case%`},
		{`back\slash`, `%back\\slash%`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LikePattern(tt.in), tt.in)
	}
}
