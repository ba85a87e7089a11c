package cache

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListFiltersAndSorts(t *testing.T) {
	root := t.TempDir()
	c := New(root, "ia")
	require.NoError(t, c.Ensure())

	for _, name := range []string{
		"20121106__ia__general__adair__precinct.xlsx",
		"20101102__ia__general__county.xls",
		"20121106__ia__general__polk__precinct.xlsx",
	} {
		require.NoError(t, os.WriteFile(c.Abs(name), []byte("x"), 0644))
	}

	all, err := c.List("")
	require.NoError(t, err)
	require.Len(t, all, 3)

	nov2012, err := c.List("20121106")
	require.NoError(t, err)
	require.Equal(t, []string{
		"20121106__ia__general__adair__precinct.xlsx",
		"20121106__ia__general__polk__precinct.xlsx",
	}, nov2012)
}

func TestClearRemovesOnlyMatches(t *testing.T) {
	root := t.TempDir()
	c := New(root, "ia")
	require.NoError(t, c.Ensure())

	require.NoError(t, os.WriteFile(c.Abs("20101102__ia__general__county.xls"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(c.Abs("20121106__ia__general__precinct.xlsx"), []byte("x"), 0644))

	n, err := c.Clear("2010")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.False(t, c.Exists("20101102__ia__general__county.xls"))
	require.True(t, c.Exists("20121106__ia__general__precinct.xlsx"))
}

func TestListOnMissingDirIsEmpty(t *testing.T) {
	c := New(t.TempDir(), "wv")
	names, err := c.List("")
	require.NoError(t, err)
	require.Empty(t, names)
}
