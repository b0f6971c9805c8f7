package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuehq.io/banquet/internal/catalog"
	"venuehq.io/banquet/internal/pkg/logger"
	"venuehq.io/banquet/internal/store"
)

func init() {
	_ = logger.Init("error", "json")
}

func TestSeedCatalogsWritesAndSkips(t *testing.T) {
	dir := t.TempDir()
	catalog.Clear()

	require.NoError(t, seedCatalogs(dir))

	roomsPath := filepath.Join(dir, "rooms.yaml")
	productsPath := filepath.Join(dir, "products.yaml")
	for _, p := range []string{roomsPath, productsPath} {
		_, err := os.Stat(p)
		require.NoError(t, err, p)
	}

	raw, err := os.ReadFile(roomsPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Room A")

	// Re-running must not overwrite operator edits.
	require.NoError(t, os.WriteFile(roomsPath, []byte("rooms:\n  - id: custom\n    name: Custom\n    capacity: 10\n    day_rate: 100\n"), 0o644))
	catalog.Clear()
	require.NoError(t, seedCatalogs(dir))
	raw, err = os.ReadFile(roomsPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Custom")
	assert.NotContains(t, string(raw), "Room A")
}

func TestSeedDemoTenantIsIdempotent(t *testing.T) {
	st := store.New(store.Options{Dir: t.TempDir(), LockTimeout: 2 * time.Second})

	require.NoError(t, seedDemoTenant(st))
	require.NoError(t, seedDemoTenant(st))

	db, err := st.Load(demoTeam)
	require.NoError(t, err)
	require.Len(t, db.Events, 1)

	ev := db.Events[0]
	assert.Equal(t, "demo-client@example.com", ev.ClientEmail)
	assert.True(t, ev.DateConfirmed)
	require.NotNil(t, ev.RequestedWindow)

	date, err := time.Parse("2006-01-02", ev.RequestedWindow.DateISO)
	require.NoError(t, err)
	assert.NotEqual(t, time.Saturday, date.Weekday())
	assert.NotEqual(t, time.Sunday, date.Weekday())

	client, ok := db.Clients[ev.ClientEmail]
	require.True(t, ok)
	assert.Equal(t, []string{ev.EventID}, client.EventIDs)
}
