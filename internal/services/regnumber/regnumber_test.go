// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package regnumber_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"codeberg.org/oliverandrich/regdesk/internal/models"
	"codeberg.org/oliverandrich/regdesk/internal/repository"
	"codeberg.org/oliverandrich/regdesk/internal/services/regnumber"
	"codeberg.org/oliverandrich/regdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_Format(t *testing.T) {
	tests := []struct {
		scope     regnumber.Scope
		seq       int64
		temporary bool
		expected  string
	}{
		{regnumber.FieldExecutive, 1, false, "ASF/FE/000001"},
		{regnumber.FieldExecutive, 42, true, "T/ASF/FE/000042"},
		{regnumber.Candidate, 1, false, "ASF/CANDIDATE/00001"},
		{regnumber.Candidate, 123456, true, "T/ASF/CANDIDATE/123456"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.scope.Format(tt.seq, tt.temporary))
		})
	}
}

func TestPermanent(t *testing.T) {
	assert.Equal(t, "ASF/FE/000001", regnumber.Permanent("T/ASF/FE/000001"))
	assert.Equal(t, "ASF/FE/000001", regnumber.Permanent("ASF/FE/000001"))
	assert.True(t, regnumber.IsTemporary("T/ASF/CANDIDATE/00003"))
	assert.False(t, regnumber.IsTemporary("ASF/CANDIDATE/00003"))
}

func TestSequence(t *testing.T) {
	seq, err := regnumber.Sequence("T/ASF/FE/000017")
	require.NoError(t, err)
	assert.Equal(t, int64(17), seq)

	_, err = regnumber.Sequence("ASF/FE/abc")
	assert.Error(t, err)
}

func TestAllocate_EmptyScopeStartsAtOne(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	alloc := regnumber.NewAllocator(nil)
	ctx := context.Background()

	reg, err := alloc.Allocate(ctx, repo, regnumber.FieldExecutive, false)
	require.NoError(t, err)
	assert.Equal(t, "ASF/FE/000001", reg)

	account := testutil.NewTestAccount(t, repo, models.KindVolunteer, "v@example.com", "+919000000001")
	require.NoError(t, repo.SetRegNumber(ctx, account.ID, reg))

	reg, err = alloc.Allocate(ctx, repo, regnumber.FieldExecutive, false)
	require.NoError(t, err)
	assert.Equal(t, "ASF/FE/000002", reg)
}

func TestAllocate_ScopesAreIndependent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	alloc := regnumber.NewAllocator(nil)
	ctx := context.Background()

	fe, err := alloc.Allocate(ctx, repo, regnumber.FieldExecutive, true)
	require.NoError(t, err)
	candidate, err := alloc.Allocate(ctx, repo, regnumber.Candidate, true)
	require.NoError(t, err)

	assert.Equal(t, "T/ASF/FE/000001", fe)
	assert.Equal(t, "T/ASF/CANDIDATE/00001", candidate)
}

func TestAllocate_SeedsFromExistingNumbers(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	alloc := regnumber.NewAllocator(nil)
	ctx := context.Background()

	a := testutil.NewTestAccount(t, repo, models.KindVolunteer, "a@example.com", "+919000000001")
	b := testutil.NewTestAccount(t, repo, models.KindVolunteer, "b@example.com", "+919000000002")
	require.NoError(t, repo.SetRegNumber(ctx, a.ID, "ASF/FE/000009"))
	require.NoError(t, repo.SetRegNumber(ctx, b.ID, "T/ASF/FE/000004"))

	reg, err := alloc.Allocate(ctx, repo, regnumber.FieldExecutive, true)
	require.NoError(t, err)
	assert.Equal(t, "T/ASF/FE/000010", reg)
}

func TestAllocate_ConcurrentCallersGetDistinctNumbers(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	alloc := regnumber.NewAllocator(nil)
	ctx := context.Background()

	const workers = 20
	results := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.InTx(ctx, func(tx *repository.Repository) error {
				reg, err := alloc.Allocate(ctx, tx, regnumber.Candidate, true)
				results[i] = reg
				return err
			})
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := range workers {
		require.NoError(t, errs[i])
		assert.False(t, seen[results[i]], "duplicate %s", results[i])
		seen[results[i]] = true
	}
	for i := 1; i <= workers; i++ {
		assert.True(t, seen[fmt.Sprintf("T/ASF/CANDIDATE/%05d", i)])
	}
}
