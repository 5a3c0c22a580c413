package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func viewCount(t *testing.T, s Storage, id int64) int64 {
	t.Helper()
	sc, found, err := s.GetScriptByID(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	return sc.ViewCount
}

func TestIncrementViewCountThreeTimes(t *testing.T) {
	s := newTestStorage(t)
	f := seedFixture(t, s)
	ctx := context.Background()

	before := viewCount(t, s, f.offboard)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.IncrementViewCount(ctx, f.offboard))
	}
	assert.Equal(t, before+3, viewCount(t, s, f.offboard))
	assert.Zero(t, viewCount(t, s, f.onboard), "other scripts are untouched")
}

func TestIncrementViewCountMonotonic(t *testing.T) {
	s := newTestStorage(t)
	f := seedFixture(t, s)
	ctx := context.Background()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(t, "n")

		sc, _, err := s.GetScriptByID(ctx, f.inventory)
		if err != nil {
			t.Fatal(err)
		}
		before := sc.ViewCount

		for i := 0; i < n; i++ {
			if err := s.IncrementViewCount(ctx, f.inventory); err != nil {
				t.Fatal(err)
			}
		}

		sc, _, err = s.GetScriptByID(ctx, f.inventory)
		if err != nil {
			t.Fatal(err)
		}
		if sc.ViewCount != before+int64(n) {
			t.Fatalf("expected %d views, got %d", before+int64(n), sc.ViewCount)
		}
	})
}

func TestIncrementViewCountUnknownIDIsNoOp(t *testing.T) {
	s := newTestStorage(t)
	seedFixture(t, s)
	ctx := context.Background()

	statsBefore, err := s.GetStats(ctx)
	require.NoError(t, err)

	assert.NoError(t, s.IncrementViewCount(ctx, 424242))

	statsAfter, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, statsBefore.TotalViews, statsAfter.TotalViews)
}

func TestIncrementViewCountConcurrent(t *testing.T) {
	s := newTestStorage(t)
	f := seedFixture(t, s)
	ctx := context.Background()

	const workers = 40
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.IncrementViewCount(ctx, f.globalAdmin)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(workers), viewCount(t, s, f.globalAdmin))
}

func TestAddContributor(t *testing.T) {
	s := newTestStorage(t)
	f := seedFixture(t, s)
	ctx := context.Background()

	c, err := s.AddContributor(ctx, f.globalAdmin, "A. Chen", RoleEditor)
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Equal(t, RoleEditor, c.Role)

	contributors, err := s.GetContributorsForScript(ctx, f.globalAdmin)
	require.NoError(t, err)
	require.Len(t, contributors, 2)
	assert.Equal(t, "A. Chen", contributors[0].Name, "most recent first")
	assert.Equal(t, "J. Rivera", contributors[1].Name)

	_, err = s.AddContributor(ctx, f.globalAdmin, "A. Chen", "owner")
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = s.AddContributor(ctx, 9999, "A. Chen", RoleEditor)
	assert.ErrorIs(t, err, ErrScriptNotFound)

	_, err = s.AddContributor(ctx, f.globalAdmin, "  ", RoleEditor)
	assert.Error(t, err)
}

func TestTransitionKCSState(t *testing.T) {
	s := newTestStorage(t)
	f := seedFixture(t, s)
	ctx := context.Background()

	sc, from, err := s.TransitionKCSState(ctx, f.globalAdmin, KCSStateApproved, "A. Chen")
	require.NoError(t, err)
	assert.Equal(t, KCSStateDraft, from)
	assert.Equal(t, KCSStateApproved, sc.KCSState)
	require.NotNil(t, sc.LastReviewed)
	assert.True(t, sc.LastReviewed.After(reviewed), "last_reviewed is stamped")

	contributors, err := s.GetContributorsForScript(ctx, f.globalAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, contributors)
	assert.Equal(t, "A. Chen", contributors[0].Name)
	assert.Equal(t, RoleReviewer, contributors[0].Role)

	sc, from, err = s.TransitionKCSState(ctx, f.globalAdmin, KCSStatePublished, "B. Osei")
	require.NoError(t, err)
	assert.Equal(t, KCSStateApproved, from)
	assert.Equal(t, KCSStatePublished, sc.KCSState)

	contributors, err = s.GetContributorsForScript(ctx, f.globalAdmin)
	require.NoError(t, err)
	assert.Equal(t, "B. Osei", contributors[0].Name)
	assert.Equal(t, RoleEditor, contributors[0].Role)

	// No actor, no contributor row.
	_, _, err = s.TransitionKCSState(ctx, f.globalAdmin, KCSStateRetired, "")
	require.NoError(t, err)
	after, err := s.GetContributorsForScript(ctx, f.globalAdmin)
	require.NoError(t, err)
	assert.Len(t, after, len(contributors))
}

func TestTransitionKCSStateRejected(t *testing.T) {
	s := newTestStorage(t)
	f := seedFixture(t, s)
	ctx := context.Background()

	tests := []struct {
		name string
		id   int64
		to   string
	}{
		{"skip draft to published", f.globalAdmin, KCSStatePublished},
		{"same state", f.globalAdmin, KCSStateDraft},
		{"published back to draft", f.offboard, KCSStateDraft},
		{"retired to published", f.inventory, KCSStatePublished},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _, err := s.GetScriptByID(ctx, tt.id)
			require.NoError(t, err)

			_, _, err = s.TransitionKCSState(ctx, tt.id, tt.to, "A. Chen")
			var transitionErr *TransitionError
			require.True(t, errors.As(err, &transitionErr), "got %v", err)
			assert.Equal(t, before.KCSState, transitionErr.From)
			assert.Equal(t, tt.to, transitionErr.To)

			after, _, err := s.GetScriptByID(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, before, after, "rejected move changes nothing")
		})
	}

	_, _, err := s.TransitionKCSState(ctx, f.globalAdmin, "archived", "")
	assert.ErrorIs(t, err, ErrInvalidKCSState)

	_, _, err = s.TransitionKCSState(ctx, 9999, KCSStateApproved, "")
	assert.ErrorIs(t, err, ErrScriptNotFound)
}

func TestTransitionRetiredCanReopen(t *testing.T) {
	s := newTestStorage(t)
	f := seedFixture(t, s)

	sc, from, err := s.TransitionKCSState(context.Background(), f.inventory, KCSStateDraft, "")
	require.NoError(t, err)
	assert.Equal(t, KCSStateRetired, from)
	assert.Equal(t, KCSStateDraft, sc.KCSState)
}

func TestConcurrentTransitionsReportTheirOwnFromState(t *testing.T) {
	s := newTestStorage(t)
	f := seedFixture(t, s)
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []string
		rejected  []*TransitionError
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, from, err := s.TransitionKCSState(ctx, f.globalAdmin, KCSStateApproved, "A. Chen")
			mu.Lock()
			defer mu.Unlock()
			var transitionErr *TransitionError
			switch {
			case err == nil:
				succeeded = append(succeeded, from)
			case errors.As(err, &transitionErr):
				rejected = append(rejected, transitionErr)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, []string{KCSStateDraft}, succeeded)
	require.Len(t, rejected, workers-1)
	for _, e := range rejected {
		assert.Equal(t, KCSStateApproved, e.From)
	}
}
