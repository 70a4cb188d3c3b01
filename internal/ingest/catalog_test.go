package ingest

import (
	"testing"

	"github.com/agentic-research/keeper/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	c := NewCatalog(&api.Declarations{Controllers: []api.Controller{
		{Name: "shared", Class: "Shared", Actions: []api.Action{
			{Method: "Open"},
			{Method: "Guarded", Permission: "shared.guarded"},
		}},
		{Name: "admin", Class: "Admin", Namespace: "admin."},
	}}, nil)
	c.Add(&api.Declarations{Controllers: []api.Controller{{Name: "public", Class: "Public", Namespace: "public."}}})

	assert.Equal(t, 3, c.Len())

	ctrls, err := c.Controllers("admin.")
	require.NoError(t, err)
	require.Len(t, ctrls, 2)
	assert.Equal(t, "shared", ctrls[0].Name)
	assert.Equal(t, "admin", ctrls[1].Name)

	actions, err := c.Actions(ctrls[0])
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Nil(t, c.Guard(actions[0]))
	assert.Equal(t, &api.Guard{Permission: "shared.guarded"}, c.Guard(actions[1]))

	// Actions point into the catalog, so they stay stable across calls.
	again, _ := c.Actions(ctrls[0])
	assert.Same(t, actions[1], again[1])

	assert.Len(t, c.Declarations().Controllers, 3)
}
