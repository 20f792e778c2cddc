// Package transition runs the post-checkout sequence: diff, provision,
// reconcile.
package transition

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/emenda-labs/hookup/core/changeset"
	"github.com/emenda-labs/hookup/core/driver"
	"github.com/emenda-labs/hookup/core/provision"
	"github.com/emenda-labs/hookup/core/reconcile"
)

// Result reports what a run did.
type Result struct {
	// Skipped is the reason the run did nothing, or "".
	Skipped   string
	Changes   changeset.ChangeSet
	Provision provision.Report
	Reconcile reconcile.Outcome
}

// Orchestrator sequences the provisioner and the reconciler for one checkout.
type Orchestrator struct {
	diffs       driver.DiffSource
	provisioner *provision.Provisioner
	reconciler  *reconcile.Reconciler
	log         *zap.Logger
}

// New creates an Orchestrator.
func New(diffs driver.DiffSource, p *provision.Provisioner, r *reconcile.Reconciler, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{diffs: diffs, provisioner: p, reconciler: r, log: log}
}

// Run performs the transition described by rc. Provisioning and migration
// failures are reported in the Result; only diff and working-tree restore
// failures are returned as errors.
func (o *Orchestrator) Run(ctx context.Context, rc RunContext) (Result, error) {
	if reason := rc.SkipReason(); reason != "" {
		o.log.Debug("skipping", zap.String("reason", reason))
		return Result{Skipped: reason}, nil
	}

	log := o.log.With(zap.String("old", rc.Old), zap.String("new", rc.New))

	raw, err := o.diffs.Diff(ctx, rc.Old, rc.New)
	if err != nil {
		return Result{}, fmt.Errorf("diffing %s..%s: %w", rc.Old, rc.New, err)
	}
	result := Result{Changes: changeset.Parse(raw)}
	log.Debug("classified changes", zap.Int("count", result.Changes.Len()))

	result.Provision = o.provisioner.Provision(ctx, result.Changes)

	result.Reconcile, err = o.reconciler.Reconcile(ctx, result.Changes, rc.Old, rc.New)
	if err != nil {
		return result, fmt.Errorf("reconciling migrations: %w", err)
	}
	return result, nil
}
