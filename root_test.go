package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{
		"login", "register", "logout", "whoami", "passwd", "profile",
		"ls", "tree", "contents", "mkdir", "get", "put", "rm", "mv",
		"rename", "bulk-move", "search", "recent", "storage", "stats",
		"plans", "plan", "subscription", "history", "watch",
	} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, "command %q", name)
		assert.NotEqual(t, cmd, sub, "command %q is registered", name)
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"config", "server", "json", "verbose", "quiet"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag --%s", name)
	}
}
