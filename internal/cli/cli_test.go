package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	root := NewRootCommand()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "create-admin", "deactivate-expired"} {
		assert.True(t, names[want], want)
	}

	migrate, _, err := root.Find([]string{"migrate", "up"})
	require.NoError(t, err)
	assert.Equal(t, "up", migrate.Name())
}

func TestMigrateStepsValidatesCount(t *testing.T) {
	for _, arg := range []string{"0", "two"} {
		root := NewRootCommand()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"migrate", "steps", arg})
		err := root.Execute()
		require.Error(t, err, arg)
		assert.Contains(t, err.Error(), "invalid step count")
	}
}

func TestCreateAdminRequiresFlags(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"create-admin", "--username", "ops"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}
