package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokedex/internal/observability"
	"pokedex/internal/testutil"
	"pokedex/internal/upstream"
)

type fakeLister struct {
	names []string
	err   error
	limit int
}

func (f *fakeLister) ListNames(_ context.Context, limit int) ([]string, error) {
	f.limit = limit
	return f.names, f.err
}

func TestPrintRoutes(t *testing.T) {
	src := &fakeLister{names: []string{"Bulbasaur", "Mr. Mime", "Farfetch'd"}}
	var out bytes.Buffer

	require.NoError(t, printRoutes(t.Context(), &out, src, 3))
	assert.Equal(t, 3, src.limit)
	assert.Equal(t, "/pokemon/Bulbasaur\n/pokemon/Mr.%20Mime\n/pokemon/Farfetch%27d\n", out.String())
}

func TestPrintRoutesErrors(t *testing.T) {
	var out bytes.Buffer

	err := printRoutes(t.Context(), &out, &fakeLister{}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit must be positive")

	boom := errors.New("network error")
	err = printRoutes(t.Context(), &out, &fakeLister{err: boom}, 5)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, out.String())
}

func TestPrintRoutesAgainstUpstream(t *testing.T) {
	stub := testutil.NewGraphQLStub(t, testutil.Bulbasaur(), testutil.Pikachu(), testutil.Mew())
	client := upstream.New(upstream.Options{Endpoint: stub.URL(), Logger: observability.Nop()})
	var out bytes.Buffer

	require.NoError(t, printRoutes(t.Context(), &out, client, 2))
	assert.Equal(t, "/pokemon/Bulbasaur\n/pokemon/Pikachu\n", out.String())
}

func TestRoutesCommand(t *testing.T) {
	stub := testutil.NewGraphQLStub(t, testutil.Mew())
	t.Setenv("POKEDEX_UPSTREAM_URL", stub.URL())

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"routes", "--limit", "5"})

	require.NoError(t, root.ExecuteContext(t.Context()))
	assert.Equal(t, "/pokemon/Mew\n", out.String())
}
