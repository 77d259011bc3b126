package migrate

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingConn is a minimal database/sql driver connection that records
// every statement and lets a test inject per-statement failures. It stands in
// for Postgres so the guard's DDL sequences can be asserted without a live
// database.
type recordingConn struct {
	mu     sync.Mutex
	execs  []string
	onExec func(query string) error
}

func (c *recordingConn) record(query string) error {
	c.mu.Lock()
	c.execs = append(c.execs, query)
	onExec := c.onExec
	c.mu.Unlock()
	if onExec != nil {
		return onExec(query)
	}
	return nil
}

func (c *recordingConn) statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.execs))
	copy(out, c.execs)
	return out
}

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return &recordingStmt{conn: c, query: query}, nil
}

func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

type recordingStmt struct {
	conn  *recordingConn
	query string
}

func (s *recordingStmt) Close() error  { return nil }
func (s *recordingStmt) NumInput() int { return -1 }

func (s *recordingStmt) Exec([]driver.Value) (driver.Result, error) {
	if err := s.conn.record(s.query); err != nil {
		return nil, err
	}
	return driver.RowsAffected(0), nil
}

func (s *recordingStmt) Query([]driver.Value) (driver.Rows, error) {
	if err := s.conn.record(s.query); err != nil {
		return nil, err
	}
	return &singleCountRows{}, nil
}

// singleCountRows answers the guard's SELECT COUNT(*) verification queries.
type singleCountRows struct{ done bool }

func (r *singleCountRows) Columns() []string { return []string{"count"} }
func (r *singleCountRows) Close() error      { return nil }

func (r *singleCountRows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = int64(0)
	return nil
}

type recordingDriver struct{ conn *recordingConn }

func (d *recordingDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

var driverSeq atomic.Int64

func openRecordingDB(t *testing.T, conn *recordingConn) *sql.DB {
	t.Helper()
	name := fmt.Sprintf("recording-%d", driverSeq.Add(1))
	sql.Register(name, &recordingDriver{conn: conn})
	db, err := sql.Open(name, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func indexOf(statements []string, stmt string) int {
	for i, s := range statements {
		if s == stmt {
			return i
		}
	}
	return -1
}

func TestWithTableBackupDropsBackupsOnSuccess(t *testing.T) {
	conn := &recordingConn{}
	db := openRecordingDB(t, conn)

	err := WithTableBackup(context.Background(), db, []string{"customers", "reservations"},
		func(context.Context) error { return nil })
	require.NoError(t, err)

	statements := conn.statements()
	assert.Contains(t, statements, `CREATE TABLE "customers_backup" AS SELECT * FROM "customers"`)
	assert.Contains(t, statements, `CREATE TABLE "reservations_backup" AS SELECT * FROM "reservations"`)
	assert.Contains(t, statements, `DROP TABLE IF EXISTS "customers_backup"`)
	assert.Contains(t, statements, `DROP TABLE IF EXISTS "reservations_backup"`)

	// Success never renames or drops a live table.
	for _, stmt := range statements {
		assert.NotContains(t, stmt, "RENAME")
		assert.NotEqual(t, `DROP TABLE IF EXISTS "customers"`, stmt)
		assert.NotEqual(t, `DROP TABLE IF EXISTS "reservations"`, stmt)
	}
}

func TestWithTableBackupRestoresAllTablesOnFailure(t *testing.T) {
	// Emulate the foreign key rule that bit the restore path: reservations
	// references customers, so dropping customers fails while the original
	// reservations table is still standing. The backup copy made by CREATE
	// TABLE AS carries no constraints, so once reservations is replaced the
	// parent drops clean.
	conn := &recordingConn{}
	conn.onExec = func(query string) error {
		if query != `DROP TABLE IF EXISTS "customers"` {
			return nil
		}
		replaced := indexOf(conn.execs, `ALTER TABLE "reservations_backup" RENAME TO "reservations"`) >= 0
		if !replaced {
			return errors.New(`cannot drop table customers because other objects depend on it`)
		}
		return nil
	}
	db := openRecordingDB(t, conn)

	migrationErr := errors.New("alter table customers failed")
	err := WithTableBackup(context.Background(), db, []string{"customers", "reservations"},
		func(context.Context) error { return migrationErr })
	require.ErrorIs(t, err, migrationErr)
	assert.NotContains(t, err.Error(), "depend on it")

	statements := conn.statements()
	for _, table := range []string{"customers", "reservations"} {
		rename := fmt.Sprintf(`ALTER TABLE "%s_backup" RENAME TO "%s"`, table, table)
		assert.Contains(t, statements, rename, "table %s was not restored", table)
	}

	// Children go back first so the parent is droppable.
	childDrop := indexOf(statements, `DROP TABLE IF EXISTS "reservations"`)
	parentDrop := indexOf(statements, `DROP TABLE IF EXISTS "customers"`)
	require.GreaterOrEqual(t, childDrop, 0)
	require.GreaterOrEqual(t, parentDrop, 0)
	assert.Less(t, childDrop, parentDrop)
}

func TestWithTableBackupStopsWhenSnapshotFails(t *testing.T) {
	conn := &recordingConn{}
	conn.onExec = func(query string) error {
		if strings.HasPrefix(query, `CREATE TABLE "reservations_backup"`) {
			return errors.New("out of disk")
		}
		return nil
	}
	db := openRecordingDB(t, conn)

	called := false
	err := WithTableBackup(context.Background(), db, []string{"customers", "reservations"},
		func(context.Context) error { called = true; return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "back up table reservations")
	assert.False(t, called, "guarded operation must not run without its snapshots")
}

func TestGuardedTablesCoverSyncedTables(t *testing.T) {
	tables := guardedTables()
	assert.Contains(t, tables, "customers")
	assert.Contains(t, tables, "reservations")
	assert.Contains(t, tables, "lead_rules")
	assert.Contains(t, tables, "scheduled_tasks")
}
