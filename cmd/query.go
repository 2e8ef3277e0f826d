package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	csys "github.com/shopmonkeyus/go-common/sys"
	"github.com/spf13/cobra"

	"github.com/openlibdata/ldx/internal"
	"github.com/openlibdata/ldx/internal/engine"
	"github.com/openlibdata/ldx/internal/okapi"
	"github.com/openlibdata/ldx/internal/util"
)

func confirmReplace(table string, dbURL string) bool {
	var confirmed bool
	dbName := dbURL
	if u, err := url.Parse(dbURL); err == nil {
		dbName = u.Host + u.Path
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("\n🚨 WARNING 🚨"),
			huh.NewConfirm().
				Title(fmt.Sprintf("THIS WILL REPLACE TABLE %q AND ITS DERIVED TABLES IN %s", table, dbName)).
				Affirmative("Confirm").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
	form.WithTheme(huh.ThemeBase())
	if err := form.Run(); err != nil {
		if !errors.Is(err, huh.ErrUserAborted) {
			fmt.Printf("error running form: %s\n", err)
			fmt.Println("You may use --yes to skip this prompt")
			os.Exit(1)
		}
	}
	return confirmed
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "extract a paginated JSON collection into relational tables",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd)
		defer util.RecoverPanic(log)

		dbURL := mustFlagString(cmd, "db-url", true)
		okapiURL := mustFlagString(cmd, "okapi-url", true)
		tenant := mustFlagString(cmd, "tenant", true)
		username := mustFlagString(cmd, "username", true)
		password, _ := cmd.Flags().GetString("password")
		path := mustFlagString(cmd, "path", true)
		table := mustFlagString(cmd, "table", true)
		cql, _ := cmd.Flags().GetString("cql")
		pageSize := mustFlagInt(cmd, "page-size", false)
		batchSize := mustFlagInt(cmd, "batch-size", false)
		noTransform := mustFlagBool(cmd, "no-transform", false)
		dryRun := mustFlagBool(cmd, "dry-run", false)
		confirmed := mustFlagBool(cmd, "yes", false)

		started := time.Now()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// check connectivity before asking the user to confirm a rebuild
		if err := internal.TestDriver(ctx, log, dbURL); err != nil {
			log.Error("error connecting to db: %s", err)
			os.Exit(1)
		}

		if !dryRun && !confirmed {
			if !confirmReplace(table, dbURL) {
				os.Exit(0)
			}
		}

		go func() {
			select {
			case <-ctx.Done():
				return
			case <-csys.CreateShutdownChannel():
				cancel()
				return
			}
		}()

		driver, err := internal.NewDriver(ctx, log, dbURL)
		if err != nil {
			log.Error("error connecting to db: %s", err)
			os.Exit(1)
		}
		defer driver.Stop()

		client := okapi.NewClient(okapi.Config{
			URL:      okapiURL,
			Tenant:   tenant,
			Username: username,
			Password: password,
			Logger:   log,
		})

		util.RunTaskWithSpinner("Logging in to Okapi...", func() {
			if err = client.Login(ctx); err != nil {
				log.Error("error logging in: %s", err)
				os.Exit(1)
			}
		})

		var pages *okapi.Pages
		util.RunTaskWithSpinner("Preparing query...", func() {
			pages, err = client.Query(ctx, path, cql, pageSize)
			if err != nil {
				log.Error("error starting query: %s", err)
				os.Exit(1)
			}
		})
		if total, ok := pages.Total(); ok {
			log.Info("%s reports %d records", path, total)
		}

		var result *engine.Result
		util.RunWithProgress(ctx, cancel, func(progressbar *util.ProgressBar) {
			progressbar.SetMessage("Extracting " + path)
			result, err = engine.Run(ctx, engine.Options{
				Logger:    log,
				Driver:    driver,
				Table:     table,
				Transform: !noTransform,
				BatchSize: batchSize,
				DryRun:    dryRun,
				Progress:  progressbar.SetCount,
			}, pages)
		})
		if result != nil {
			for _, name := range result.Tables {
				log.Info("updated table %s", color.GreenString(name))
			}
		}
		if err != nil {
			var fetchErr *okapi.FetchError
			if errors.As(err, &fetchErr) && result != nil {
				log.Error("fetch failed after %d records, partial results retained: %s", result.Processed, err)
			} else {
				log.Error("error running query: %s", err)
			}
			os.Exit(1)
		}

		log.Info("👋 Loaded %d records into %d tables in %v", result.Processed, len(result.Tables), time.Since(started).Round(time.Millisecond))
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().String("okapi-url", "", "the Okapi gateway url")
	queryCmd.Flags().String("tenant", "", "the Okapi tenant id")
	queryCmd.Flags().String("username", "", "the Okapi username")
	queryCmd.Flags().String("password", os.Getenv("LDX_PASSWORD"), "the Okapi password")
	queryCmd.Flags().String("path", "", "the collection path to extract, e.g. /groups")
	queryCmd.Flags().String("table", "", "the table name prefix for extracted data")
	queryCmd.Flags().String("cql", "", "an optional CQL filter for the collection")
	queryCmd.Flags().Int("page-size", 1000, "the number of records per request")
	queryCmd.Flags().Int("batch-size", 1000, "the number of rows per insert batch")
	queryCmd.Flags().Bool("no-transform", false, "store raw JSON only, skip flattening")
	queryCmd.Flags().Bool("dry-run", false, "only simulate loading but don't actually make db changes")
	queryCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
}
