package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandPath("~/.sdgen")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".sdgen"), expanded)

	unchanged, err := ExpandPath("/var/lib/sdgen")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/sdgen", unchanged)
}
