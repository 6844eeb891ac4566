package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"aquacare/database"
)

func TestViewAsResolve(t *testing.T) {
	store := NewViewAsStore(time.Hour)
	defer store.Close()

	_, ok := store.Resolve(1)
	require.False(t, ok)

	franchiseID := uint(7)
	store.Start(1, 42, database.RoleCustomer, &franchiseID)

	actor, ok := store.Resolve(1)
	require.True(t, ok)
	require.Equal(t, uint(42), actor.UserID)
	require.Equal(t, database.RoleCustomer, actor.Role)
	require.Equal(t, franchiseID, *actor.FranchiseID)

	// sessions are keyed by admin
	_, ok = store.Resolve(2)
	require.False(t, ok)

	store.Stop(1)
	_, ok = store.Resolve(1)
	require.False(t, ok)
}

func TestViewAsReplacesExistingSession(t *testing.T) {
	store := NewViewAsStore(time.Hour)
	defer store.Close()

	store.Start(1, 42, database.RoleCustomer, nil)
	store.Start(1, 77, database.RoleServiceAgent, nil)

	actor, ok := store.Resolve(1)
	require.True(t, ok)
	require.Equal(t, uint(77), actor.UserID)
	require.Equal(t, database.RoleServiceAgent, actor.Role)
}

func TestViewAsExpiry(t *testing.T) {
	store := NewViewAsStore(10 * time.Millisecond)
	defer store.Close()

	store.Start(1, 42, database.RoleCustomer, nil)
	time.Sleep(20 * time.Millisecond)

	_, ok := store.Resolve(1)
	require.False(t, ok)
}

func TestViewAsSweep(t *testing.T) {
	store := NewViewAsStore(10 * time.Millisecond)
	defer store.Close()

	store.Start(1, 42, database.RoleCustomer, nil)
	store.Start(2, 43, database.RoleCustomer, nil)
	time.Sleep(20 * time.Millisecond)
	store.Start(3, 44, database.RoleCustomer, nil)

	require.Equal(t, 2, store.Sweep())

	_, ok := store.Resolve(3)
	require.True(t, ok)
}
