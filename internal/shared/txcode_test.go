package shared

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCodeFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^PJL-\d{13,}-[0-9a-f]{6}$`)
	code := NewCode(CodePrefixStockOut)
	require.True(t, pattern.MatchString(code), "unexpected code %q", code)
}

func TestNewCodeVaries(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		seen[NewCode(CodePrefixService)] = struct{}{}
	}
	require.Len(t, seen, 100)
}
