package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/emenda-labs/hookup/core/changeset"
	"github.com/emenda-labs/hookup/core/driver/drivertest"
)

const (
	oldRev = "OLD"
	newRev = "NEW"
)

func newReconciler(fake *drivertest.Fake, opts Options) (*Reconciler, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New(fake, fake, fake, opts, zap.New(core)), logs
}

func TestReconcile_NoSchemaActivity(t *testing.T) {
	fake := drivertest.New()
	r, _ := newReconciler(fake, Options{SchemaDir: "db"})

	changes := changeset.Parse("A\tdb/migrate/001_a.rb\nM\tapp/models/user.rb\nD\tdb/schema.rb\n")
	outcome, err := r.Reconcile(context.Background(), changes, oldRev, newRev)

	require.NoError(t, err)
	assert.Equal(t, StatusNoSchemaActivity, outcome.Status)
	assert.Empty(t, fake.Calls, "no external action may run without schema activity")
}

func TestReconcile_SpecExample(t *testing.T) {
	fake := drivertest.New()
	r, _ := newReconciler(fake, Options{SchemaDir: "db"})

	changes := changeset.Parse("D\tdb/migrate/003_x.rb\nM\tdb/schema.rb\n")
	outcome, err := r.Reconcile(context.Background(), changes, oldRev, newRev)

	require.NoError(t, err)
	assert.Equal(t, StatusReconciled, outcome.Status)
	assert.Equal(t, []string{"db/schema.rb"}, outcome.Schemas)
	assert.Equal(t, []string{
		"checkout OLD -- db/migrate/003_x.rb",
		"task migrate-down VERSION=003_x.rb",
		"rm -- db/migrate/003_x.rb",
		"diff-worktree NEW -- db/schema.rb",
	}, fake.Calls)
	assert.False(t, outcome.Migrated)
	assert.False(t, outcome.Drift)
}

func TestReconcile_DownInReverseOrderThenSingleUp(t *testing.T) {
	fake := drivertest.New()
	r, _ := newReconciler(fake, Options{SchemaDir: "db"})

	changes := changeset.Parse(
		"M\tdb/migrate/001_a.rb\n" +
			"A\tdb/migrate/002_b.rb\n" +
			"D\tdb/migrate/003_c.rb\n" +
			"A\tdb/migrate/004_d.rb\n" +
			"M\tdb/schema.rb\n")
	outcome, err := r.Reconcile(context.Background(), changes, oldRev, newRev)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"task migrate-down VERSION=003_c.rb",
		"task migrate-down VERSION=001_a.rb",
		"task migrate-up-all",
	}, fake.CallsWithPrefix("task "))
	assert.Equal(t, []string{"db/migrate/003_c.rb", "db/migrate/001_a.rb"}, outcome.RolledBack)
	assert.True(t, outcome.Migrated)
}

func TestReconcile_CleanupRunsWhenRollbackFails(t *testing.T) {
	fake := drivertest.New()
	fake.Fail["task migrate-down"] = errors.New("rake aborted")
	r, logs := newReconciler(fake, Options{SchemaDir: "db"})

	changes := changeset.Parse("M\tdb/migrate/001_a.rb\nD\tdb/migrate/002_b.rb\nM\tdb/schema.rb\n")
	outcome, err := r.Reconcile(context.Background(), changes, oldRev, newRev)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"checkout OLD -- db/migrate/002_b.rb",
		"task migrate-down VERSION=002_b.rb",
		"rm -- db/migrate/002_b.rb",
		"checkout OLD -- db/migrate/001_a.rb",
		"task migrate-down VERSION=001_a.rb",
		"checkout NEW -- db/migrate/001_a.rb",
		"task migrate-up-all",
		"diff-worktree NEW -- db/schema.rb",
	}, fake.Calls)
	require.Error(t, outcome.Failures)
	assert.Contains(t, outcome.Failures.Error(), "002_b.rb")
	assert.Contains(t, outcome.Failures.Error(), "001_a.rb")
	assert.Equal(t, 2, logs.FilterMessage("rollback failed").Len())
}

func TestReconcile_CleanupRunsWhenRollbackPanics(t *testing.T) {
	fake := drivertest.New()
	fake.Panic["task migrate-down"] = true
	r, _ := newReconciler(fake, Options{SchemaDir: "db"})

	changes := changeset.Parse("M\tdb/migrate/001_a.rb\nM\tdb/schema.rb\n")
	assert.Panics(t, func() {
		_, _ = r.Reconcile(context.Background(), changes, oldRev, newRev)
	})

	assert.Equal(t, []string{
		"checkout OLD -- db/migrate/001_a.rb",
		"task migrate-down VERSION=001_a.rb",
		"checkout NEW -- db/migrate/001_a.rb",
		"diff-worktree NEW -- db/schema.rb",
	}, fake.Calls)
}

func TestReconcile_AddedSchemaCreatesDatabase(t *testing.T) {
	fake := drivertest.New()
	r, _ := newReconciler(fake, Options{SchemaDir: "db"})

	changes := changeset.Parse("A\tdb/migrate/001_a.rb\nA\tdb/schema.rb\n")
	outcome, err := r.Reconcile(context.Background(), changes, oldRev, newRev)
	require.NoError(t, err)

	assert.Equal(t, []string{"task create", "task migrate-up-all"}, fake.CallsWithPrefix("task "))
	assert.True(t, outcome.Migrated)
}

func TestReconcile_TracksEveryPresentCandidate(t *testing.T) {
	fake := drivertest.New()
	r, _ := newReconciler(fake, Options{SchemaDir: "db"})

	changes := changeset.Parse("M\tdb/structure.sql\nM\tdb/schema.rb\nD\tdb/development_structure.sql\n")
	outcome, err := r.Reconcile(context.Background(), changes, oldRev, newRev)
	require.NoError(t, err)

	assert.Equal(t, []string{"db/schema.rb", "db/structure.sql"}, outcome.Schemas)
	assert.Equal(t, []string{"diff-worktree NEW -- db/schema.rb db/structure.sql"}, fake.Calls)
}

func TestReconcile_CustomSchemaDir(t *testing.T) {
	fake := drivertest.New()
	r, _ := newReconciler(fake, Options{SchemaDir: "engines/core/db"})

	changes := changeset.Parse("D\tdb/migrate/001_a.rb\nA\tengines/core/db/migrate/002_b.rb\nM\tengines/core/db/schema.rb\n")
	_, err := r.Reconcile(context.Background(), changes, oldRev, newRev)
	require.NoError(t, err)

	assert.Equal(t, []string{"task migrate-up-all"}, fake.CallsWithPrefix("task "))
}

func TestReconcile_DriftRestoresAndRunsFallback(t *testing.T) {
	fake := drivertest.New()
	fake.Diffs["NEW..worktree"] = "M\tdb/schema.rb\n"
	r, logs := newReconciler(fake, Options{SchemaDir: "db", Fallback: "rake db:schema:load"})

	changes := changeset.Parse("A\tdb/migrate/001_a.rb\nM\tdb/schema.rb\n")
	outcome, err := r.Reconcile(context.Background(), changes, oldRev, newRev)
	require.NoError(t, err)

	assert.True(t, outcome.Drift)
	assert.True(t, outcome.FallbackRan)
	assert.Equal(t, []string{
		"task migrate-up-all",
		"diff-worktree NEW -- db/schema.rb",
		"checkout NEW -- db/schema.rb",
		"command rake db:schema:load",
	}, fake.Calls)
	assert.Equal(t, 1, logs.FilterMessage("schema out of sync").Len())
}

func TestReconcile_DriftWithoutFallback(t *testing.T) {
	fake := drivertest.New()
	fake.Diffs["NEW..worktree"] = "M\tdb/schema.rb\n"
	r, logs := newReconciler(fake, Options{SchemaDir: "db"})

	changes := changeset.Parse("M\tdb/schema.rb\n")
	outcome, err := r.Reconcile(context.Background(), changes, oldRev, newRev)
	require.NoError(t, err)

	assert.True(t, outcome.Drift)
	assert.False(t, outcome.FallbackRan)
	assert.Empty(t, fake.CallsWithPrefix("command "))
	assert.Equal(t, []string{"checkout NEW -- db/schema.rb"}, fake.CallsWithPrefix("checkout "))
	assert.Equal(t, 1, logs.FilterMessage("schema out of sync").Len())
	assert.NoError(t, outcome.Failures)
}

func TestReconcile_DriftCheckErrorIsReturned(t *testing.T) {
	fake := drivertest.New()
	fake.Fail["diff-worktree"] = errors.New("not a git repository")
	r, _ := newReconciler(fake, Options{SchemaDir: "db"})

	_, err := r.Reconcile(context.Background(), changeset.Parse("M\tdb/schema.rb\n"), oldRev, newRev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checking schema drift")
}

func TestReconcile_RestoreFailureStopsRollbacksButStillChecksDrift(t *testing.T) {
	fake := drivertest.New()
	fake.Fail["rm "] = errors.New("index locked")
	r, _ := newReconciler(fake, Options{SchemaDir: "db"})

	changes := changeset.Parse("M\tdb/migrate/001_a.rb\nD\tdb/migrate/002_b.rb\nM\tdb/schema.rb\n")
	_, err := r.Reconcile(context.Background(), changes, oldRev, newRev)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "restoring db/migrate/002_b.rb")
	assert.Equal(t, []string{"task migrate-down VERSION=002_b.rb"}, fake.CallsWithPrefix("task migrate-down"))
	assert.Len(t, fake.CallsWithPrefix("diff-worktree"), 1)
}
