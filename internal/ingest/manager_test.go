package ingest

import (
	"context"
	"testing"
	"time"

	"mediaflow/internal/store"
	"mediaflow/internal/testsupport"
)

func TestReconcileTracksActiveWatchfolders(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	preset := testsupport.NewPreset(t, st, "reconcile-preset")
	first := testsupport.NewLocalWatchfolder(t, st, "first", t.TempDir(), preset.ID)
	second := testsupport.NewLocalWatchfolder(t, st, "second", t.TempDir(), preset.ID)

	m := NewManager(cfg, st, nil)
	defer func() {
		cancel()
		m.stopAll()
		m.wg.Wait()
	}()

	if err := m.reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got := m.ActivePollers(); got != 2 {
		t.Fatalf("ActivePollers = %d, want 2", got)
	}

	if err := st.SetWatchfolderActive(ctx, second.ID, false); err != nil {
		t.Fatalf("SetWatchfolderActive: %v", err)
	}
	if err := m.reconcile(ctx); err != nil {
		t.Fatalf("reconcile after deactivate: %v", err)
	}
	if got := m.ActivePollers(); got != 1 {
		t.Fatalf("ActivePollers after deactivate = %d, want 1", got)
	}

	if err := st.DeleteWatchfolder(ctx, first.ID); err != nil {
		t.Fatalf("DeleteWatchfolder: %v", err)
	}
	if err := m.reconcile(ctx); err != nil {
		t.Fatalf("reconcile after delete: %v", err)
	}
	if got := m.ActivePollers(); got != 0 {
		t.Fatalf("ActivePollers after delete = %d, want 0", got)
	}
}

func TestReconcileRestartsEditedWatchfolder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	preset := testsupport.NewPreset(t, st, "edit-preset")
	folder := testsupport.NewLocalWatchfolder(t, st, "editable", t.TempDir(), preset.ID)

	m := NewManager(cfg, st, nil)
	defer func() {
		cancel()
		m.stopAll()
		m.wg.Wait()
	}()

	if err := m.reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	before := pollerUpdatedAt(t, m, folder.ID)

	folder.Name = "editable-renamed"
	updated, err := st.UpdateWatchfolder(ctx, folder)
	if err != nil {
		t.Fatalf("UpdateWatchfolder: %v", err)
	}
	if !updated.UpdatedAt.After(before) {
		t.Fatalf("UpdatedAt did not advance: %v then %v", before, updated.UpdatedAt)
	}

	if err := m.reconcile(ctx); err != nil {
		t.Fatalf("reconcile after edit: %v", err)
	}
	if got := m.ActivePollers(); got != 1 {
		t.Fatalf("ActivePollers = %d, want 1", got)
	}
	after := pollerUpdatedAt(t, m, folder.ID)
	if !after.After(before) {
		t.Fatalf("poller not restarted: tracked %v, want later than %v", after, before)
	}
}

func TestReconcileIgnoresHealthWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	preset := testsupport.NewPreset(t, st, "health-preset")
	folder := testsupport.NewLocalWatchfolder(t, st, "healthy", t.TempDir(), preset.ID)

	m := NewManager(cfg, st, nil)
	defer func() {
		cancel()
		m.stopAll()
		m.wg.Wait()
	}()

	if err := m.reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	before := pollerUpdatedAt(t, m, folder.ID)

	if err := st.SetWatchfolderStatus(ctx, folder.ID, store.WatchfolderError, "host unreachable"); err != nil {
		t.Fatalf("SetWatchfolderStatus: %v", err)
	}
	reloaded, err := st.WatchfolderByID(ctx, folder.ID)
	if err != nil {
		t.Fatalf("WatchfolderByID: %v", err)
	}
	if !reloaded.UpdatedAt.Equal(before) {
		t.Fatalf("status write moved UpdatedAt: %v then %v", before, reloaded.UpdatedAt)
	}

	if err := m.reconcile(ctx); err != nil {
		t.Fatalf("reconcile after status write: %v", err)
	}
	after := pollerUpdatedAt(t, m, folder.ID)
	if !after.Equal(before) {
		t.Fatalf("poller restarted by a health write: tracked %v, want %v", after, before)
	}
}

func TestManagerStartStop(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	m := NewManager(cfg, st, nil)
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Start(ctx); err == nil {
		t.Fatal("second Start should fail while running")
	}
	m.Stop()
	m.Stop()
}

func pollerUpdatedAt(t *testing.T, m *Manager, id int64) time.Time {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()
	running, ok := m.pollers[id]
	if !ok {
		t.Fatalf("no poller tracked for watchfolder %d", id)
	}
	return running.updatedAt
}
