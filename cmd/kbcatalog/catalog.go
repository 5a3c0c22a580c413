package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chis/kbcatalog/internal/bootstrap"
	"github.com/chis/kbcatalog/internal/client"
	"github.com/chis/kbcatalog/internal/docker"
	"github.com/chis/kbcatalog/internal/events"
	"github.com/chis/kbcatalog/internal/jsonld"
	"github.com/chis/kbcatalog/internal/storage"
)

// catalog is what the query commands need, served either by the local
// store or by a remote API.
type catalog interface {
	Search(ctx context.Context, query string) ([]storage.Script, error)
	Scripts(ctx context.Context, state string) ([]storage.Script, error)
	Categories(ctx context.Context) ([]storage.Category, error)
	Category(ctx context.Context, slug string) (storage.Category, []storage.Script, error)
	Script(ctx context.Context, ref string) (storage.ScriptDetail, error)
	Stats(ctx context.Context) (storage.Stats, error)
	Transition(ctx context.Context, id int64, state, actor string) (storage.Script, error)
	AddContributor(ctx context.Context, id int64, name, role string) (storage.Contributor, error)
	DockerComponents(ctx context.Context, live bool) ([]docker.ComponentStatus, bool, error)
	RDF(ctx context.Context, resource string) ([]byte, error)
}

// remoteCatalog adapts the API client.
type remoteCatalog struct {
	*client.Client
}

// localCatalog answers from the SQLite store, mirroring the API handlers.
type localCatalog struct {
	deps *bootstrap.ServiceDependencies
}

func (l *localCatalog) store() storage.Storage {
	return l.deps.Store
}

func (l *localCatalog) Search(ctx context.Context, query string) ([]storage.Script, error) {
	if strings.TrimSpace(query) == "" {
		return l.store().GetAllScripts(ctx)
	}
	return l.store().SearchScripts(ctx, query)
}

func (l *localCatalog) Scripts(ctx context.Context, state string) ([]storage.Script, error) {
	if state == "" {
		return l.store().GetAllScripts(ctx)
	}
	return l.store().GetScriptsByKCSState(ctx, state)
}

func (l *localCatalog) Categories(ctx context.Context) ([]storage.Category, error) {
	return l.store().GetAllCategories(ctx)
}

func (l *localCatalog) Category(ctx context.Context, slug string) (storage.Category, []storage.Script, error) {
	category, found, err := l.store().GetCategoryBySlug(ctx, slug)
	if err != nil {
		return storage.Category{}, nil, err
	}
	if !found {
		return storage.Category{}, nil, fmt.Errorf("category %q: %w", slug, client.ErrNotFound)
	}
	scripts, err := l.store().GetScriptsByCategory(ctx, category.ID)
	return category, scripts, err
}

// Script resolves a numeric id or a name and counts the view.
func (l *localCatalog) Script(ctx context.Context, ref string) (storage.ScriptDetail, error) {
	script, found, err := l.lookup(ctx, ref)
	if err != nil {
		return storage.ScriptDetail{}, err
	}
	if !found {
		return storage.ScriptDetail{}, fmt.Errorf("script %q: %w", ref, client.ErrNotFound)
	}

	if err := l.store().IncrementViewCount(ctx, script.ID); err == nil {
		script.ViewCount++
		l.deps.EventBus.Publish(events.ScriptViewed(script.ID))
	}
	return storage.LoadScriptDetail(ctx, l.store(), script)
}

func (l *localCatalog) lookup(ctx context.Context, ref string) (storage.Script, bool, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		return l.store().GetScriptByID(ctx, id)
	}
	return l.store().GetScriptByName(ctx, ref)
}

func (l *localCatalog) Stats(ctx context.Context) (storage.Stats, error) {
	return l.store().GetStats(ctx)
}

func (l *localCatalog) Transition(ctx context.Context, id int64, state, actor string) (storage.Script, error) {
	script, _, err := l.store().TransitionKCSState(ctx, id, state, actor)
	return script, err
}

func (l *localCatalog) AddContributor(ctx context.Context, id int64, name, role string) (storage.Contributor, error) {
	return l.store().AddContributor(ctx, id, name, role)
}

func (l *localCatalog) DockerComponents(ctx context.Context, live bool) ([]docker.ComponentStatus, bool, error) {
	components, err := l.store().GetAllDockerComponents(ctx)
	if err != nil {
		return nil, false, err
	}

	if live && l.deps.Docker != nil {
		dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if statuses, err := l.deps.Docker.ComponentStatuses(dctx, components); err == nil {
			return statuses, true, nil
		}
	}

	statuses := make([]docker.ComponentStatus, len(components))
	for i, c := range components {
		statuses[i] = docker.ComponentStatus{DockerComponent: c}
	}
	return statuses, false, nil
}

// RDF renders the same documents as the API's /api/rdf endpoints.
func (l *localCatalog) RDF(ctx context.Context, resource string) ([]byte, error) {
	var doc any
	switch {
	case resource == "catalog":
		categories, err := l.store().GetAllCategories(ctx)
		if err != nil {
			return nil, err
		}
		stats, err := l.store().GetStats(ctx)
		if err != nil {
			return nil, err
		}
		doc = jsonld.CatalogToJSONLD(categories, stats)
	case resource == "categories":
		categories, err := l.store().GetAllCategories(ctx)
		if err != nil {
			return nil, err
		}
		doc = jsonld.CategoriesToJSONLD(categories)
	case strings.HasPrefix(resource, "scripts/"):
		id, err := strconv.ParseInt(strings.TrimPrefix(resource, "scripts/"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("script %q: %w", resource, client.ErrNotFound)
		}
		script, found, err := l.store().GetScriptByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("script %d: %w", id, client.ErrNotFound)
		}
		params, err := l.store().GetParametersForScript(ctx, id)
		if err != nil {
			return nil, err
		}
		tags, err := l.store().GetTagsForScript(ctx, id)
		if err != nil {
			return nil, err
		}
		doc = jsonld.ScriptToJSONLD(script, params, tags)
	default:
		return nil, fmt.Errorf("unknown rdf resource %q", resource)
	}
	return json.MarshalIndent(doc, "", "  ")
}
