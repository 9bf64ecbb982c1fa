// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pod-engine/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.RegistryConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDescriptor(name string) *types.ContainerDescriptor {
	return &types.ContainerDescriptor{
		ID:    "abc123def456" + name,
		Name:  name,
		Image: "docker.io/library/ubuntu:22.04",
		Ports: map[string]string{
			"22/tcp":   "0.0.0.0:2222",
			"8888/tcp": "0.0.0.0:49153",
		},
		GPUEnabled: true,
		GPUCount:   2,
		GPUType:    "Tesla T4",
		CreatedAt:  time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Status:     types.StatusRunning,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := sampleDescriptor("pod-a")
	require.NoError(t, s.Save(ctx, want))

	t.Run("get by id", func(t *testing.T) {
		got, err := s.Get(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Ports, got.Ports)
		assert.Equal(t, want.GPUCount, got.GPUCount)
		assert.Equal(t, want.GPUType, got.GPUType)
		assert.True(t, got.CreatedAt.Equal(want.CreatedAt))
		assert.Equal(t, types.StatusRunning, got.Status)
	})

	t.Run("get by name", func(t *testing.T) {
		got, err := s.Get(ctx, "pod-a")
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
	})

	t.Run("missing container", func(t *testing.T) {
		_, err := s.Get(ctx, "no-such-pod")
		require.Error(t, err)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestStoreSaveReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := sampleDescriptor("pod-a")
	require.NoError(t, s.Save(ctx, d))

	d.Status = types.StatusExited
	require.NoError(t, s.Save(ctx, d))

	got, err := s.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusExited, got.Status)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "re-saving must not duplicate")
}

func TestStoreList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := sampleDescriptor("pod-old")
	older.CreatedAt = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	newer := sampleDescriptor("pod-new")

	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "pod-new", all[0].Name, "newest first")
	assert.Equal(t, "pod-old", all[1].Name)
}

func TestStoreUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := sampleDescriptor("pod-a")
	require.NoError(t, s.Save(ctx, d))

	require.NoError(t, s.UpdateStatus(ctx, "pod-a", types.StatusExited))
	got, err := s.Get(ctx, "pod-a")
	require.NoError(t, err)
	assert.Equal(t, types.StatusExited, got.Status)

	err = s.UpdateStatus(ctx, "ghost", types.StatusExited)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := sampleDescriptor("pod-a")
	require.NoError(t, s.Save(ctx, d))

	require.NoError(t, s.Delete(ctx, "pod-a"))
	_, err := s.Get(ctx, "pod-a")
	require.Error(t, err)

	assert.NoError(t, s.Delete(ctx, "pod-a"), "deleting an unknown container is not an error")
}

func TestStoreShortIDReference(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := sampleDescriptor("pod-a")
	d.ID = "f2d3c6a19b8e7f2d3c6a19b8e7f2d3c6a19b8e7f2d3c6a19b8e7f2d3c6a19b8e"
	require.NoError(t, s.Save(ctx, d))
	short := d.ID[:12]

	t.Run("get", func(t *testing.T) {
		got, err := s.Get(ctx, short)
		require.NoError(t, err)
		assert.Equal(t, d.ID, got.ID)
	})

	t.Run("update status", func(t *testing.T) {
		require.NoError(t, s.UpdateStatus(ctx, short, types.StatusExited))
		got, err := s.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusExited, got.Status)
	})

	t.Run("prefix shorter than twelve does not match", func(t *testing.T) {
		_, err := s.Get(ctx, d.ID[:8])
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.ErrorIs(t, s.UpdateStatus(ctx, d.ID[:8], types.StatusRunning), sql.ErrNoRows)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, short))
		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestStoreEmptyPorts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := sampleDescriptor("pod-a")
	d.Ports = nil
	require.NoError(t, s.Save(ctx, d))

	got, err := s.Get(ctx, "pod-a")
	require.NoError(t, err)
	assert.Empty(t, got.Ports)
}
