package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/chis/kbcatalog/internal/logging"
)

// Opener opens the store the Reloadable delegates to.
type Opener func() (Storage, error)

// SQLiteOpener returns an Opener for the SQLite store at dbPath.
func SQLiteOpener(dbPath string) Opener {
	return func() (Storage, error) {
		s, err := NewSQLiteStorage(dbPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

var (
	_ Storage = (*SQLiteStorage)(nil)
	_ Storage = (*Reloadable)(nil)
)

// Reloadable delegates every call to the current store under a read lock.
// Replace takes the write lock, so readers block only while the store file
// is swapped.
type Reloadable struct {
	mu      sync.RWMutex
	current Storage
	open    Opener
}

// NewReloadable wraps an open store. open is used to reopen after a swap.
func NewReloadable(initial Storage, open Opener) *Reloadable {
	return &Reloadable{current: initial, open: open}
}

// Replace closes the live store, runs swap, and reopens. If swap fails the
// previous file is reopened so the catalog keeps serving.
func (r *Reloadable) Replace(swap func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		if err := r.current.Close(); err != nil {
			logging.Warn("Failed to close store before swap: %v", err)
		}
		r.current = nil
	}

	swapErr := swap()

	next, err := r.open()
	if err != nil {
		if swapErr != nil {
			return fmt.Errorf("swap failed: %v; reopen failed: %w", swapErr, err)
		}
		return fmt.Errorf("failed to reopen store: %w", err)
	}
	r.current = next

	if swapErr != nil {
		return fmt.Errorf("swap failed: %w", swapErr)
	}
	return nil
}

func (r *Reloadable) acquire() (Storage, func(), error) {
	r.mu.RLock()
	if r.current == nil {
		r.mu.RUnlock()
		return nil, nil, ErrStoreUnavailable
	}
	return r.current, r.mu.RUnlock, nil
}

func (r *Reloadable) GetAllCategories(ctx context.Context) ([]Category, error) {
	s, release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return s.GetAllCategories(ctx)
}

func (r *Reloadable) GetCategoryBySlug(ctx context.Context, slug string) (Category, bool, error) {
	s, release, err := r.acquire()
	if err != nil {
		return Category{}, false, err
	}
	defer release()
	return s.GetCategoryBySlug(ctx, slug)
}

func (r *Reloadable) GetScriptsByCategory(ctx context.Context, categoryID int64) ([]Script, error) {
	s, release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return s.GetScriptsByCategory(ctx, categoryID)
}

func (r *Reloadable) GetScriptByID(ctx context.Context, id int64) (Script, bool, error) {
	s, release, err := r.acquire()
	if err != nil {
		return Script{}, false, err
	}
	defer release()
	return s.GetScriptByID(ctx, id)
}

func (r *Reloadable) GetScriptByName(ctx context.Context, name string) (Script, bool, error) {
	s, release, err := r.acquire()
	if err != nil {
		return Script{}, false, err
	}
	defer release()
	return s.GetScriptByName(ctx, name)
}

func (r *Reloadable) GetParametersForScript(ctx context.Context, scriptID int64) ([]Parameter, error) {
	s, release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return s.GetParametersForScript(ctx, scriptID)
}

func (r *Reloadable) GetTagsForScript(ctx context.Context, scriptID int64) ([]Tag, error) {
	s, release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return s.GetTagsForScript(ctx, scriptID)
}

func (r *Reloadable) GetContributorsForScript(ctx context.Context, scriptID int64) ([]Contributor, error) {
	s, release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return s.GetContributorsForScript(ctx, scriptID)
}

func (r *Reloadable) GetAllDockerComponents(ctx context.Context) ([]DockerComponent, error) {
	s, release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return s.GetAllDockerComponents(ctx)
}

func (r *Reloadable) SearchScripts(ctx context.Context, query string) ([]Script, error) {
	s, release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return s.SearchScripts(ctx, query)
}

func (r *Reloadable) GetAllScripts(ctx context.Context) ([]Script, error) {
	s, release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return s.GetAllScripts(ctx)
}

func (r *Reloadable) GetScriptsByKCSState(ctx context.Context, state string) ([]Script, error) {
	s, release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return s.GetScriptsByKCSState(ctx, state)
}

func (r *Reloadable) GetStats(ctx context.Context) (Stats, error) {
	s, release, err := r.acquire()
	if err != nil {
		return Stats{}, err
	}
	defer release()
	return s.GetStats(ctx)
}

func (r *Reloadable) IncrementViewCount(ctx context.Context, scriptID int64) error {
	s, release, err := r.acquire()
	if err != nil {
		return err
	}
	defer release()
	return s.IncrementViewCount(ctx, scriptID)
}

func (r *Reloadable) AddContributor(ctx context.Context, scriptID int64, name, role string) (Contributor, error) {
	s, release, err := r.acquire()
	if err != nil {
		return Contributor{}, err
	}
	defer release()
	return s.AddContributor(ctx, scriptID, name, role)
}

func (r *Reloadable) TransitionKCSState(ctx context.Context, scriptID int64, to, actor string) (Script, string, error) {
	s, release, err := r.acquire()
	if err != nil {
		return Script{}, "", err
	}
	defer release()
	return s.TransitionKCSState(ctx, scriptID, to, actor)
}

func (r *Reloadable) CreateCategory(ctx context.Context, category Category) (int64, error) {
	s, release, err := r.acquire()
	if err != nil {
		return 0, err
	}
	defer release()
	return s.CreateCategory(ctx, category)
}

func (r *Reloadable) CreateScript(ctx context.Context, input ScriptInput) (int64, error) {
	s, release, err := r.acquire()
	if err != nil {
		return 0, err
	}
	defer release()
	return s.CreateScript(ctx, input)
}

func (r *Reloadable) UpdateScript(ctx context.Context, scriptID int64, input ScriptInput) error {
	s, release, err := r.acquire()
	if err != nil {
		return err
	}
	defer release()
	return s.UpdateScript(ctx, scriptID, input)
}

func (r *Reloadable) UpdateKnowledge(ctx context.Context, scriptID int64, update KnowledgeUpdate) error {
	s, release, err := r.acquire()
	if err != nil {
		return err
	}
	defer release()
	return s.UpdateKnowledge(ctx, scriptID, update)
}

func (r *Reloadable) DeleteScript(ctx context.Context, scriptID int64) error {
	s, release, err := r.acquire()
	if err != nil {
		return err
	}
	defer release()
	return s.DeleteScript(ctx, scriptID)
}

func (r *Reloadable) CreateDockerComponent(ctx context.Context, component DockerComponent) (int64, error) {
	s, release, err := r.acquire()
	if err != nil {
		return 0, err
	}
	defer release()
	return s.CreateDockerComponent(ctx, component)
}

// Close closes the current store. Later calls return ErrStoreUnavailable.
func (r *Reloadable) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	err := r.current.Close()
	r.current = nil
	return err
}
