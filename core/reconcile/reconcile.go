// Package reconcile replays database migrations across a checkout and verifies
// that the schema snapshot matches the new revision afterward.
package reconcile

import (
	"context"
	"fmt"
	"path"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/emenda-labs/hookup/core/changeset"
	"github.com/emenda-labs/hookup/core/driver"
)

// SchemaCandidates are the schema snapshot filenames, in priority order.
var SchemaCandidates = []string{"development_structure.sql", "schema.rb", "structure.sql"}

// Status summarizes what a reconciliation did.
type Status string

const (
	// StatusNoSchemaActivity means no schema snapshot changed, so nothing ran.
	StatusNoSchemaActivity Status = "no_schema_activity"
	// StatusReconciled means migrations were replayed and drift was checked.
	StatusReconciled Status = "reconciled"
)

// Outcome reports the work done by Reconcile.
type Outcome struct {
	Status Status `json:"status"`
	// Schemas are the active schema snapshot paths.
	Schemas []string `json:"schemas,omitempty"`
	// RolledBack lists the migration paths rolled back, in rollback order.
	RolledBack []string `json:"rolled_back,omitempty"`
	// Migrated is true when the collective up migration ran.
	Migrated bool `json:"migrated"`
	// Drift is true when the snapshot differed from the new revision.
	Drift bool `json:"drift"`
	// FallbackRan is true when the configured fallback command was invoked.
	FallbackRan bool `json:"fallback_ran"`
	// Failures accumulates recoverable action failures.
	Failures error `json:"-"`
}

// Options configures a Reconciler.
type Options struct {
	// SchemaDir is the repository-relative directory holding the snapshot
	// files and the migrate/ directory.
	SchemaDir string
	// Fallback is a shell command run when drift is detected. Empty disables it.
	Fallback string
}

// Reconciler drives down/up migration replay for a single revision pair.
//
// Rollbacks run in reverse diff order. git emits paths sorted, so with
// timestamp-prefixed migration filenames this rolls back newest first.
// Migrations named any other way are rolled back in reverse path order.
type Reconciler struct {
	vcs      driver.VCS
	tasks    driver.TaskRunner
	commands driver.CommandRunner
	opts     Options
	log      *zap.Logger
}

// New creates a Reconciler. A nil logger discards output.
func New(vcs driver.VCS, tasks driver.TaskRunner, commands driver.CommandRunner, opts Options, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SchemaDir == "" {
		opts.SchemaDir = "db"
	}
	return &Reconciler{
		vcs:      vcs,
		tasks:    tasks,
		commands: commands,
		opts:     opts,
		log:      log.Named("reconcile"),
	}
}

// CandidatePaths returns the schema snapshot paths in priority order.
func (r *Reconciler) CandidatePaths() []string {
	paths := make([]string, len(SchemaCandidates))
	for i, name := range SchemaCandidates {
		paths[i] = path.Join(r.opts.SchemaDir, name)
	}
	return paths
}

// MigrateDir returns the directory holding migration files.
func (r *Reconciler) MigrateDir() string {
	return path.Join(r.opts.SchemaDir, "migrate")
}

// Reconcile must be called at most once per revision pair: an added schema
// snapshot triggers database creation without any idempotency guard.
//
// The returned error is reserved for failures that leave the working tree in
// an unknown state (a failed restore or drift check). Migration task failures
// are recoverable and land in Outcome.Failures.
func (r *Reconciler) Reconcile(ctx context.Context, changes changeset.ChangeSet, oldRev, newRev string) (outcome Outcome, err error) {
	for _, candidate := range r.CandidatePaths() {
		rec, ok := changes.Lookup(candidate)
		if !ok || rec.Kind == changeset.ChangeKindDeleted {
			continue
		}
		if rec.Kind == changeset.ChangeKindAdded {
			r.log.Info("creating database", zap.String("schema", candidate))
			if taskErr := r.tasks.RunTask(ctx, driver.TaskCreate); taskErr != nil {
				r.log.Warn("database create failed", zap.Error(taskErr))
				outcome.Failures = multierr.Append(outcome.Failures, fmt.Errorf("creating database: %w", taskErr))
			}
		}
		outcome.Schemas = append(outcome.Schemas, candidate)
	}

	if len(outcome.Schemas) == 0 {
		outcome.Status = StatusNoSchemaActivity
		return outcome, nil
	}
	outcome.Status = StatusReconciled

	defer func() {
		if driftErr := r.checkDrift(ctx, newRev, &outcome); driftErr != nil {
			err = multierr.Append(err, driftErr)
		}
	}()

	migrations := changes.Under(r.MigrateDir())

	down := migrations.OfKind(changeset.ChangeKindDeleted, changeset.ChangeKindModified).Records()
	for i := len(down) - 1; i >= 0; i-- {
		if err := r.rollback(ctx, down[i], oldRev, newRev, &outcome); err != nil {
			return outcome, err
		}
	}

	if migrations.Any(changeset.ChangeKindAdded, changeset.ChangeKindModified) {
		r.log.Info("migrating")
		if taskErr := r.tasks.RunTask(ctx, driver.TaskMigrateAll); taskErr != nil {
			r.log.Warn("migrate failed", zap.Error(taskErr))
			outcome.Failures = multierr.Append(outcome.Failures, fmt.Errorf("migrating: %w", taskErr))
		}
		outcome.Migrated = true
	}

	return outcome, nil
}

// rollback runs the down migration for rec against its old-revision content.
// The file is put back to its new-revision state (or removed) on every exit
// path, including a panic in the task runner.
func (r *Reconciler) rollback(ctx context.Context, rec changeset.ChangeRecord, oldRev, newRev string, outcome *Outcome) (err error) {
	version := path.Base(rec.Path)

	defer func() {
		var releaseErr error
		if rec.Kind == changeset.ChangeKindDeleted {
			releaseErr = r.vcs.RemoveFiles(ctx, rec.Path)
		} else {
			releaseErr = r.vcs.CheckoutFiles(ctx, newRev, rec.Path)
		}
		if releaseErr != nil {
			err = multierr.Append(err, fmt.Errorf("restoring %s: %w", rec.Path, releaseErr))
		}
	}()

	if checkoutErr := r.vcs.CheckoutFiles(ctx, oldRev, rec.Path); checkoutErr != nil {
		r.log.Warn("checking out old migration failed", zap.String("migration", rec.Path), zap.Error(checkoutErr))
		outcome.Failures = multierr.Append(outcome.Failures, fmt.Errorf("checking out %s at %s: %w", rec.Path, oldRev, checkoutErr))
		return nil
	}

	r.log.Info("rolling back migration", zap.String("version", version))
	outcome.RolledBack = append(outcome.RolledBack, rec.Path)
	if taskErr := r.tasks.RunTask(ctx, driver.TaskMigrateDown, "VERSION="+version); taskErr != nil {
		r.log.Warn("rollback failed", zap.String("version", version), zap.Error(taskErr))
		outcome.Failures = multierr.Append(outcome.Failures, fmt.Errorf("rolling back %s: %w", version, taskErr))
	}
	return nil
}

// checkDrift restores the active schemas to their new-revision content when
// the working tree no longer matches, then runs the fallback if configured.
func (r *Reconciler) checkDrift(ctx context.Context, newRev string, outcome *Outcome) error {
	raw, err := r.vcs.DiffWorkTree(ctx, newRev, outcome.Schemas...)
	if err != nil {
		return fmt.Errorf("checking schema drift: %w", err)
	}
	if changeset.Parse(raw).Empty() {
		return nil
	}

	outcome.Drift = true
	if err := r.vcs.CheckoutFiles(ctx, newRev, outcome.Schemas...); err != nil {
		return fmt.Errorf("restoring schemas: %w", err)
	}

	r.log.Warn("schema out of sync", zap.Strings("schemas", outcome.Schemas))

	if r.opts.Fallback == "" {
		return nil
	}
	r.log.Info("trying fallback", zap.String("command", r.opts.Fallback))
	outcome.FallbackRan = true
	if err := r.commands.RunCommand(ctx, r.opts.Fallback); err != nil {
		r.log.Warn("fallback failed", zap.Error(err))
		outcome.Failures = multierr.Append(outcome.Failures, fmt.Errorf("running fallback: %w", err))
	}
	return nil
}
