package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(BuildInfo{Version: "1.2.3", Date: "today", Commit: "abc"})
	require.NotNil(t, cmd)
	assert.Equal(t, "chatdata", cmd.Use)
	assert.Contains(t, cmd.Version, "1.2.3")
	assert.Contains(t, cmd.Version, "abc")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(BuildInfo{})

	for _, name := range []string{"serve", "migrate", "profiles"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand(BuildInfo{})

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("env-file"))

	migrate, _, err := cmd.Find([]string{"migrate"})
	require.NoError(t, err)
	assert.NotNil(t, migrate.Flags().Lookup("dsn"))
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand(BuildInfo{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"profiles", "--format", "yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}
