package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/agentic-research/keeper/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersGo = `package admin

// UsersController manages users.
// keeper:controller name=users namespace=admin.
// keeper:segment name=users title="Users" option.icon=user
// keeper:group name=people parent=users
type UsersController struct{}

// List shows every user.
// keeper:link parent=users title="All users"
// keeper:guarded permission=users.list
func (c *UsersController) List() {}

// keeper:view parent=List relative title='Edit user'
// keeper:action name=edit-user
func (c UsersController) Edit() {}

func (c *UsersController) helper() {}
`

func TestParseGo(t *testing.T) {
	decls, err := ParseGo(context.Background(), "users.go", []byte(usersGo))
	require.NoError(t, err)
	require.Len(t, decls.Controllers, 1)

	want := api.Controller{
		Name:      "users",
		Class:     "UsersController",
		Namespace: "admin.",
		Annotations: []api.Annotation{
			{Kind: api.KindSegment, Name: "users", Title: "Users", Options: map[string]any{"icon": "user"}},
			{Kind: api.KindGroup, Name: "people", Parent: "users"},
		},
		Actions: []api.Action{
			{
				Method:     "List",
				Permission: "users.list",
				Annotations: []api.Annotation{
					{Kind: api.KindLink, Parent: "users", Title: "All users"},
				},
			},
			{
				Method: "Edit",
				Name:   "edit-user",
				Annotations: []api.Annotation{
					{Kind: api.KindView, Parent: "List", Relative: true, Title: "Edit user"},
				},
			},
		},
	}
	assert.Equal(t, want, decls.Controllers[0])
}

func TestParseGo_DefaultsAndDetachedComments(t *testing.T) {
	src := `package x

// keeper:controller
type Plain struct{}

// keeper:link title=Detached

func (p *Plain) Index() {}

// keeper:link
func (p *Plain) Home() {}

// keeper:segment name=ignored

var notAType = 1
`
	decls, err := ParseGo(context.Background(), "plain.go", []byte(src))
	require.NoError(t, err)
	require.Len(t, decls.Controllers, 1)

	ctrl := decls.Controllers[0]
	assert.Equal(t, "Plain", ctrl.Name)
	assert.Equal(t, "Plain", ctrl.Class)
	require.Len(t, ctrl.Actions, 1, "the blank line detaches the directive above Index")
	assert.Equal(t, "Home", ctrl.Actions[0].Method)
}

func TestGoSource_MergesFilesByReceiver(t *testing.T) {
	g := NewGoSource()
	ctx := context.Background()

	require.NoError(t, g.Parse(ctx, "a_methods.go", []byte(`package x

// keeper:link parent=orders
func (o *Orders) Index() {}
`)))
	require.NoError(t, g.Parse(ctx, "b_types.go", []byte(`package x

// keeper:controller
// keeper:segment name=orders
type Orders struct{}
`)))

	decls, err := g.Declarations()
	require.NoError(t, err)
	require.Len(t, decls.Controllers, 1)
	require.Len(t, decls.Controllers[0].Actions, 1)
	assert.Equal(t, "Index", decls.Controllers[0].Actions[0].Method)
}

func TestGoSource_OrphanReceiversReportedInOrder(t *testing.T) {
	src := []byte(`package x

// keeper:link
func (z *Zeta) Index() {}

// keeper:link
func (a *Alpha) Index() {}

// keeper:link
func (m *Mid) Index() {}
`)
	for range 20 {
		_, err := ParseGo(context.Background(), "orphans.go", src)
		require.Error(t, err)
		assert.Equal(t, "orphans.go: method Index: receiver Alpha has no keeper:controller directive", err.Error())
	}
}

func TestParseGo_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"method without controller", `package x

// keeper:link
func (o *Orphan) Index() {}
`},
		{"segment on method", `package x

// keeper:controller
type C struct{}

// keeper:segment name=s
func (c *C) Index() {}
`},
		{"link on type", `package x

// keeper:controller
// keeper:link
type C struct{}
`},
		{"segment before controller", `package x

// keeper:segment name=s
// keeper:controller
type C struct{}
`},
		{"unknown argument", `package x

// keeper:controller
// keeper:segment name=s colour=red
type C struct{}
`},
		{"segment without name", `package x

// keeper:controller
// keeper:segment title=S
type C struct{}
`},
		{"guarded without permission", `package x

// keeper:controller
type C struct{}

// keeper:guarded
func (c *C) Index() {}
`},
		{"bad relative", `package x

// keeper:controller
type C struct{}

// keeper:link relative=maybe
func (c *C) Index() {}
`},
		{"unbalanced quote", `package x

// keeper:controller name="open
type C struct{}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGo(context.Background(), "x.go", []byte(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestParseGo_DirectiveErrorPosition(t *testing.T) {
	src := "package x\n\n// keeper:controller\n// keeper:bogus\ntype C struct{}\n"
	_, err := ParseGo(context.Background(), "x.go", []byte(src))

	var de *DirectiveError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "x.go", de.Path)
	assert.Equal(t, "x.go:4: keeper:bogus is not allowed on a type", de.Error())
}

func TestParseGo_SyntaxError(t *testing.T) {
	_, err := ParseGo(context.Background(), "broken.go", []byte("package x\n\nfunc (c *C) {\n"))

	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "broken.go", se.Path)
}

func TestParseDirective(t *testing.T) {
	d, ok := parseDirective(`// keeper:link title="Two words" relative option.k=v`)
	require.True(t, ok)
	assert.Equal(t, "link", d.kind)
	assert.Equal(t, map[string]string{"title": "Two words", "relative": "true", "option.k": "v"}, d.args)
	assert.Equal(t, []string{"title", "relative", "option.k"}, d.order)

	_, ok = parseDirective("// just a comment")
	assert.False(t, ok)
	_, ok = parseDirective("/* keeper:link */")
	assert.False(t, ok)
}
