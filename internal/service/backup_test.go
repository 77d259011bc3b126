package service

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/rentd/internal/domain/model"
)

type fakeDumper struct {
	mu       stdsync.Mutex
	tables   map[string][]map[string]any
	dumpErr  map[string]error
	replaced map[string][]map[string]any
	fail     error
}

func newFakeDumper() *fakeDumper {
	return &fakeDumper{
		tables:  make(map[string][]map[string]any),
		dumpErr: make(map[string]error),
	}
}

func (d *fakeDumper) DumpTable(_ context.Context, table string) ([]map[string]any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dumpErr[table]; err != nil {
		return nil, err
	}
	return d.tables[table], nil
}

func (d *fakeDumper) ReplaceTableRows(_ context.Context, table string, rows []map[string]any) error {
	return d.ReplaceAllTables(context.Background(), []string{table}, map[string][]map[string]any{table: rows})
}

func (d *fakeDumper) ReplaceAllTables(_ context.Context, tables []string, data map[string][]map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return d.fail
	}
	if d.replaced == nil {
		d.replaced = make(map[string][]map[string]any)
	}
	for _, table := range tables {
		d.replaced[table] = data[table]
	}
	return nil
}

func passthroughGuard(ctx context.Context, _ []string, fn func(context.Context) error) error {
	return fn(ctx)
}

func TestExportCollectsEveryTable(t *testing.T) {
	dumper := newFakeDumper()
	dumper.tables["customers"] = []map[string]any{{"id": "c1"}}
	dumper.tables["cars"] = []map[string]any{{"id": "v1"}, {"id": "v2"}}

	svc := NewBackupService(BackupServiceOptions{Dumper: dumper, Guard: passthroughGuard})

	file, err := svc.Export(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.BackupVersion, file.Version)
	assert.WithinDuration(t, time.Now(), file.ExportedAt, time.Minute)
	assert.Len(t, file.Tables, len(model.SyncedTables()))
	assert.Len(t, file.Tables["cars"], 2)
	assert.Empty(t, file.Tables["leads"])
	assert.Equal(t, 3, file.RowCount())
}

func TestExportFailsWhenAnyDumpFails(t *testing.T) {
	dumper := newFakeDumper()
	dumper.dumpErr["payments"] = errors.New("disk on fire")

	svc := NewBackupService(BackupServiceOptions{Dumper: dumper, Guard: passthroughGuard})

	_, err := svc.Export(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payments")
}

func backupFixture() *model.BackupFile {
	tables := make(map[string][]map[string]any)
	for _, table := range model.SyncedTables() {
		tables[table] = nil
	}
	tables["customers"] = []map[string]any{{"id": "c1", "full_name": "Ada"}}
	return &model.BackupFile{
		Version:    model.BackupVersion,
		ExportedAt: time.Now().UTC(),
		Tables:     tables,
	}
}

func TestRestoreReplacesTablesUnderGuard(t *testing.T) {
	dumper := newFakeDumper()
	guarded := false
	guard := func(ctx context.Context, tables []string, fn func(context.Context) error) error {
		guarded = true
		assert.Equal(t, model.SyncedTables(), tables)
		return fn(ctx)
	}
	svc := NewBackupService(BackupServiceOptions{Dumper: dumper, Guard: guard})

	require.NoError(t, svc.Restore(context.Background(), backupFixture()))

	assert.True(t, guarded)
	assert.Len(t, dumper.replaced["customers"], 1)
}

func TestRestoreRejectsBadFiles(t *testing.T) {
	svc := NewBackupService(BackupServiceOptions{Dumper: newFakeDumper(), Guard: passthroughGuard})

	err := svc.Restore(context.Background(), &model.BackupFile{Version: 99})
	assert.Error(t, err)

	file := backupFixture()
	delete(file.Tables, "payments")
	err = svc.Restore(context.Background(), file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payments")
}

func TestRestoreSurfacesGuardRestore(t *testing.T) {
	dumper := newFakeDumper()
	dumper.fail = errors.New("constraint violated")
	svc := NewBackupService(BackupServiceOptions{Dumper: dumper, Guard: passthroughGuard})

	err := svc.Restore(context.Background(), backupFixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint violated")
}
