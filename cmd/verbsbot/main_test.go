package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVerbsbotCommand(t *testing.T) {
	cmd := NewVerbsbotCommand()
	require.NotNil(t, cmd)

	assert.Equal(t, "verbsbot", cmd.Use)
	assert.True(t, cmd.HasExample())
	assert.True(t, cmd.HasSubCommands())

	for _, name := range []string{"gateway", "console", "intents", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}
