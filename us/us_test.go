package us

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestURLPathCoercions(t *testing.T) {
	row := URLPath{Special: "TRUE", SkipLoading: "y", Winners: "1"}
	require.True(t, row.IsSpecial())
	require.True(t, row.SkipLoad())
	require.True(t, row.HasWinners())

	row = URLPath{Special: "no", SkipLoading: "", Winners: "false"}
	require.False(t, row.IsSpecial())
	require.False(t, row.SkipLoad())
	require.False(t, row.HasWinners())
}
