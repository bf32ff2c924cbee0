package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "seed", "mcp", "chat"}, names)

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	migrate, err := serve.Flags().GetBool("migrate")
	require.NoError(t, err)
	assert.True(t, migrate)

	mcp, _, err := root.Find([]string{"mcp"})
	require.NoError(t, err)
	assert.NotNil(t, mcp.Flags().Lookup("read-only"))
	assert.NotNil(t, mcp.Flags().Lookup("addr"))
}
