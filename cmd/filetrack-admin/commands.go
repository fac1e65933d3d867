package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/target/filetrack-api/internal/adapters/scratch"
	"github.com/target/filetrack-api/internal/bootstrap"
	"github.com/target/filetrack-api/internal/data"
	"github.com/target/filetrack-api/internal/devseed"
	"github.com/target/filetrack-api/internal/domain/model"
	"github.com/target/filetrack-api/internal/migrate"
	"github.com/target/filetrack-api/internal/service"
)

type migrateOptions struct {
	Timeout time.Duration
	Status  bool
}

type seedOptions struct {
	Timeout     time.Duration
	ReplacePath bool
	AllowRemote bool
}

type sweepOptions struct {
	MaxAge time.Duration
}

type listJobsOptions struct {
	State   model.JobState
	Filter  string
	JSON    bool
	Timeout time.Duration
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		if opts.Status {
			migrations, statusErr := migrate.Status(ctx, db)
			if statusErr != nil {
				return fmt.Errorf("migration status: %w", statusErr)
			}
			return renderMigrationStatus(cmdCtx.Out, migrations)
		}
		cmdCtx.Logger.Info("running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}
		cmdCtx.Logger.Info("migrations completed successfully")
		return nil
	})
}

func runSeedSettings(cmdCtx *commandContext, args []string) error {
	opts, err := parseSeedFlags(args)
	if err != nil {
		return err
	}
	if _, guardErr := guardRemoteHost(cmdCtx, opts.AllowRemote, "add development tags and path settings"); guardErr != nil {
		return guardErr
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("ensuring database migrations are current")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}

		settings := service.MustNewSettingsService(service.SettingsServiceOptions{
			Repo:   data.NewSettingsRepo(db),
			Logger: cmdCtx.Logger,
		})
		res, seedErr := devseed.Run(ctx, settings, devseed.Options{ReplacePath: opts.ReplacePath}, cmdCtx.Logger)
		if seedErr != nil {
			return seedErr
		}
		return writef(cmdCtx.Out, "tags added: %d, path schema updated: %t\n", len(res.Tags.Add), res.PathUpdated)
	})
}

func runSweepScratch(cmdCtx *commandContext, args []string) error {
	opts, err := parseSweepFlags(args, cmdCtx.Config.Scratch.MaxAge)
	if err != nil {
		return err
	}

	store, err := scratch.New(cmdCtx.Config.Scratch.Dir)
	if err != nil {
		return err
	}
	sweeper, err := service.NewScratchSweeper(service.ScratchSweeperOptions{
		Scratch: store,
		MaxAge:  opts.MaxAge,
		Logger:  cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	removed, err := sweeper.SweepOnce(cmdCtx.Ctx)
	if err != nil {
		return err
	}
	return writef(cmdCtx.Out, "removed %d scratch entries older than %s from %s\n", removed, opts.MaxAge, store.Root())
}

func runListJobs(cmdCtx *commandContext, args []string) error {
	opts, err := parseListJobsFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		svcs, buildErr := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
			Config:   &cmdCtx.Config,
			DB:       db,
			Logger:   cmdCtx.Logger,
			ToolMode: true,
		})
		if buildErr != nil {
			return fmt.Errorf("build services: %w", buildErr)
		}
		defer func() { _ = svcs.Close() }()

		jobs, listErr := svcs.Jobs.GetJobsInState(ctx, opts.State, opts.Filter)
		if listErr != nil {
			return listErr
		}
		if opts.JSON {
			return renderJobsJSON(cmdCtx.Out, jobs)
		}
		return renderJobsTable(cmdCtx.Out, jobs)
	})
}

func renderJobsJSON(w io.Writer, jobs []model.JobSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jobs)
}

// renderJobsTable prints one row per job with id and state first and attributes in name order.
func renderJobsTable(w io.Writer, jobs []model.JobSummary) error {
	if len(jobs) == 0 {
		return writef(w, "no jobs found\n")
	}
	attrSet := map[string]struct{}{}
	for _, j := range jobs {
		for k := range j {
			if k != "id" && k != "state" {
				attrSet[k] = struct{}{}
			}
		}
	}
	attrs := make([]string, 0, len(attrSet))
	for k := range attrSet {
		attrs = append(attrs, k)
	}
	sort.Strings(attrs)
	cols := append([]string{"id", "state"}, attrs...)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, c := range cols {
		if err := writef(tw, "%s%s", sep(i), c); err != nil {
			return err
		}
	}
	if err := writef(tw, "\n"); err != nil {
		return err
	}
	for _, j := range jobs {
		for i, c := range cols {
			v := j[c]
			if v == "" {
				v = "-"
			}
			if err := writef(tw, "%s%s", sep(i), v); err != nil {
				return err
			}
		}
		if err := writef(tw, "\n"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func renderMigrationStatus(w io.Writer, migrations []migrate.Migration) error {
	for _, m := range migrations {
		state := "pending"
		if m.Applied {
			state = "applied"
		}
		if err := writef(w, "%s\t%s\n", m.Version, state); err != nil {
			return err
		}
	}
	return nil
}

func sep(i int) string {
	if i == 0 {
		return ""
	}
	return "\t"
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration to wait for migrations to complete")
	fs.BoolVar(&opts.Status, "status", false, "List embedded migrations and whether each is applied, without applying any")

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseSeedFlags(args []string) (seedOptions, error) {
	fs := flag.NewFlagSet("seed-settings", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := seedOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration to wait for seeding to complete")
	fs.BoolVar(&opts.ReplacePath, "replace-path", false, "Overwrite an existing path schema with the default one")
	fs.BoolVar(&opts.AllowRemote, "allow-remote", false, "Permit running against database hosts that do not look local")

	if err := fs.Parse(args); err != nil {
		return seedOptions{}, err
	}
	if opts.Timeout <= 0 {
		return seedOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseSweepFlags(args []string, defaultMaxAge time.Duration) (sweepOptions, error) {
	fs := flag.NewFlagSet("sweep-scratch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := sweepOptions{}
	fs.DurationVar(&opts.MaxAge, "max-age", defaultMaxAge, "Remove entries last modified longer ago than this")

	if err := fs.Parse(args); err != nil {
		return sweepOptions{}, err
	}
	if opts.MaxAge <= 0 {
		return sweepOptions{}, errors.New("--max-age must be greater than zero")
	}
	return opts, nil
}

func parseListJobsFlags(args []string) (listJobsOptions, error) {
	fs := flag.NewFlagSet("list-jobs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var state string
	opts := listJobsOptions{}
	fs.StringVar(&state, "state", string(model.JobStateSaved), "Job state to list: saved, reported or in_production")
	fs.StringVar(&opts.Filter, "filter", "", "JMESPath expression evaluated against each job summary")
	fs.BoolVar(&opts.JSON, "json", false, "Print summaries as JSON")
	fs.DurationVar(&opts.Timeout, "timeout", defaultQueryTimeout, "Maximum duration for the query")

	if err := fs.Parse(args); err != nil {
		return listJobsOptions{}, err
	}
	st, ok := model.ParseJobState(state)
	if !ok {
		return listJobsOptions{}, fmt.Errorf("--state: unknown job state %q", state)
	}
	opts.State = st
	if opts.Timeout <= 0 {
		return listJobsOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}
