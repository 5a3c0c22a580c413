package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chis/kbcatalog/internal/api"
	"github.com/chis/kbcatalog/internal/docker"
	"github.com/chis/kbcatalog/internal/jsonld"
	"github.com/chis/kbcatalog/internal/storage"
	"github.com/chis/kbcatalog/internal/testutil"
)

// newTestClient serves a seeded catalog and returns a client for it.
func newTestClient(t *testing.T) (*Client, *storage.SQLiteStorage) {
	t.Helper()
	store := testutil.SeededStore(t)
	fake := testutil.NewFakeDocker(testutil.RunningContainer("monitoring", "grafana", "grafana/grafana:11.1.0"))
	srv := api.NewServer(api.Config{Storage: store, Docker: fake})

	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)

	c, err := New(httpSrv.URL + "/")
	require.NoError(t, err)
	return c, store
}

func TestNewValidatesURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "localhost", "/api"} {
		_, err := New(raw)
		assert.Error(t, err, raw)
	}

	c, err := New("http://localhost:3000///")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", c.baseURL)
}

func TestSearch(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	scripts, err := c.Search(ctx, "global admin")
	require.NoError(t, err)
	require.NotEmpty(t, scripts)
	assert.Equal(t, "Set-GlobalAdmin", scripts[0].Name)

	all, err := c.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 40)
}

func TestScriptsByState(t *testing.T) {
	c, _ := newTestClient(t)

	published, err := c.Scripts(context.Background(), storage.KCSStatePublished)
	require.NoError(t, err)
	assert.Len(t, published, 15)

	_, err = c.Scripts(context.Background(), "bogus")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "bogus")
}

func TestCategories(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	categories, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 8)

	category, scripts, err := c.Category(ctx, "rbac")
	require.NoError(t, err)
	assert.Equal(t, "RBAC", category.Name)
	assert.Len(t, scripts, 5)

	_, _, err = c.Category(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScriptByNameAndID(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	byName, err := c.Script(ctx, "Set-GlobalAdmin")
	require.NoError(t, err)
	assert.Equal(t, "Set-GlobalAdmin", byName.Name)
	require.Len(t, byName.Parameters, 1)
	assert.Equal(t, "UserPrincipalName", byName.Parameters[0].Name)

	id := testutil.MustScript(t, store, "Set-GlobalAdmin").ID
	byID, err := c.Script(ctx, strconv.FormatInt(id, 10))
	require.NoError(t, err)
	assert.Equal(t, byName.ID, byID.ID)
	assert.Equal(t, int64(2), byID.ViewCount)

	_, err = c.Script(ctx, "Missing-Script")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStats(t *testing.T) {
	c, _ := newTestClient(t)

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, stats.ScriptCount)
	assert.Equal(t, 8, stats.CategoryCount)
	assert.Equal(t, 15, stats.PublishedCount)
}

func TestTransition(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()
	id := testutil.MustScript(t, store, "Set-GlobalAdmin").ID

	_, err := c.Transition(ctx, id, storage.KCSStatePublished, "dana")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	script, err := c.Transition(ctx, id, storage.KCSStateApproved, "dana")
	require.NoError(t, err)
	assert.Equal(t, storage.KCSStateApproved, script.KCSState)

	_, err = c.Transition(ctx, 99999, storage.KCSStateApproved, "dana")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddContributor(t *testing.T) {
	c, store := newTestClient(t)
	id := testutil.MustScript(t, store, "Set-GlobalAdmin").ID

	contributor, err := c.AddContributor(context.Background(), id, "Priya Raman", storage.RoleReviewer)
	require.NoError(t, err)
	assert.Equal(t, "Priya Raman", contributor.Name)
	assert.Equal(t, storage.RoleReviewer, contributor.Role)
}

func TestDockerComponents(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	components, live, err := c.DockerComponents(ctx, false)
	require.NoError(t, err)
	assert.False(t, live)
	assert.Len(t, components, 6)

	components, live, err = c.DockerComponents(ctx, true)
	require.NoError(t, err)
	require.True(t, live)
	states := map[string]string{}
	for _, comp := range components {
		states[comp.Name] = comp.State
	}
	assert.Equal(t, "running", states["grafana"])
	assert.Equal(t, docker.StateNotFound, states["loki"])
}

func TestRDF(t *testing.T) {
	c, _ := newTestClient(t)

	raw, err := c.RDF(context.Background(), "catalog")
	require.NoError(t, err)

	var catalog jsonld.CatalogNode
	require.NoError(t, json.Unmarshal(raw, &catalog))
	assert.Equal(t, jsonld.CatalogID, catalog.ID)
	assert.Equal(t, 40, catalog.NumberOfItems)

	_, err = c.RDF(context.Background(), "scripts/99999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHealth(t *testing.T) {
	c, _ := newTestClient(t)

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health["status"])
}

func TestAPIErrorMessage(t *testing.T) {
	assert.Equal(t, "API returned status 500", (&APIError{StatusCode: 500}).Error())
	assert.Equal(t, "API returned status 409: cannot transition", (&APIError{StatusCode: 409, Message: "cannot transition"}).Error())
	assert.False(t, errors.Is(&APIError{StatusCode: 404}, ErrNotFound))
}
