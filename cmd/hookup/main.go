package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/emenda-labs/hookup/core/cli"
	"github.com/emenda-labs/hookup/core/config"
	"github.com/emenda-labs/hookup/core/mergedriver"
	"github.com/emenda-labs/hookup/core/provision"
	"github.com/emenda-labs/hookup/core/reconcile"
	"github.com/emenda-labs/hookup/core/transition"
	"github.com/emenda-labs/hookup/drivers/bundler"
	"github.com/emenda-labs/hookup/drivers/docker"
	gitdriver "github.com/emenda-labs/hookup/drivers/git"
	"github.com/emenda-labs/hookup/drivers/gomodules"
	"github.com/emenda-labs/hookup/drivers/npm"
	"github.com/emenda-labs/hookup/drivers/rake"
	"github.com/emenda-labs/hookup/pkg/logging"
	"github.com/emenda-labs/hookup/pkg/shell"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	fs := afero.NewOsFs()

	runInstall := func(ctx context.Context, opts cli.InstallOptions) error {
		cfg, err := config.Load(fs, config.Overrides{WorkingDir: opts.WorkingDir, Debug: opts.Debug})
		if err != nil {
			return err
		}
		log := logging.Must(cfg.Debug)
		defer log.Sync() //nolint:errcheck

		result, err := gitdriver.Install(fs, cfg.WorkingDir, gitdriver.InstallOptions{
			Command:    "hookup",
			SchemaPath: filepath.ToSlash(filepath.Join(cfg.SchemaDir, "schema.rb")),
		})
		if err != nil {
			return fmt.Errorf("installing hook: %w", err)
		}
		if result.AlreadyInstalled {
			fmt.Fprintf(os.Stderr, "Already installed in %s\n", result.HookPath)
		} else {
			fmt.Fprintf(os.Stderr, "Installed hook in %s\n", result.HookPath)
		}
		log.Debug("merge driver", zap.Bool("registered", result.MergeDriver))
		return nil
	}

	runPostCheckout := func(ctx context.Context, opts cli.PostCheckoutOptions) error {
		cfg, err := config.Load(fs, config.Overrides{
			WorkingDir:         opts.WorkingDir,
			SchemaDir:          opts.SchemaDir,
			LoadSchemaFallback: opts.LoadSchema,
			Debug:              opts.Debug,
		})
		if err != nil {
			return err
		}
		log := logging.Must(cfg.Debug)
		defer log.Sync() //nolint:errcheck

		rc, err := transition.NewRunContext(opts.Args, cfg)
		if err != nil {
			return err
		}

		sh := shell.NewRunner(cfg.WorkingDir, log)
		git := gitdriver.New(sh)

		provisioner := provision.New(fs, provision.Options{
			WorkingDir: cfg.WorkingDir,
			Submodules: git,
			Managers: []provision.Manager{
				{Marker: bundler.Marker, Pattern: bundler.ManifestPattern, Installer: bundler.New(cfg.WorkingDir, sh)},
				{Marker: gomodules.Marker, Pattern: gomodules.ManifestPattern, Installer: gomodules.New(cfg.WorkingDir, "", sh, log)},
			},
			Packages:   npm.New(sh),
			Containers: docker.New(cfg.WorkingDir, sh, log),
		}, log)

		reconciler := reconcile.New(git, rake.New(fs, cfg.WorkingDir, sh), sh, reconcile.Options{
			SchemaDir: cfg.SchemaDir,
			Fallback:  cfg.LoadSchemaFallback,
		}, log)

		result, err := transition.New(git, provisioner, reconciler, log).Run(ctx, rc)
		if err != nil {
			return err
		}
		if result.Skipped != "" {
			return nil
		}

		// Failed steps were already logged; the checkout itself succeeded.
		if result.Provision.Failures != nil || result.Reconcile.Failures != nil {
			log.Warn("checkout transition finished with failures",
				zap.NamedError("provision", result.Provision.Failures),
				zap.NamedError("reconcile", result.Reconcile.Failures))
		}
		return nil
	}

	runResolve := func(ctx context.Context, opts cli.ResolveOptions) error {
		log := logging.Must(opts.Debug)
		defer log.Sync() //nolint:errcheck

		git := gitdriver.New(shell.NewRunner("", log))
		return mergedriver.New(fs, git, log).Resolve(ctx, opts.Current, opts.Base, opts.Other, opts.MarkerSize)
	}

	root := cli.NewRootCmd(version, runInstall)
	root.AddCommand(
		cli.NewInstallCmd(runInstall),
		cli.NewPostCheckoutCmd(runPostCheckout),
		cli.NewResolveCmd(runResolve),
	)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hookup: %v\n", err)
	}
	stop()
	os.Exit(cli.ExitCode(err))
}
