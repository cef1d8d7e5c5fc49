package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"s3ripper/pkg/auth"
	"s3ripper/pkg/config"
	"s3ripper/pkg/logger"
	"s3ripper/pkg/ripper"
	"s3ripper/pkg/ui"
)

var (
	imsSID            string
	accountName       string
	outputDir         string
	minDelay          int
	maxDelay          int
	pageLimit         int
	maxAttempts       int
	requestTimeout    time.Duration
	onPurchaseFailure string
	freeOnly          bool
)

// ripCmd represents the rip command
var ripCmd = &cobra.Command{
	Use:   "rip [collection-id...]",
	Short: "Claim and download every asset of one or more collections",
	Long: `Sign in with an IMS session id and download every asset of the given
collections. Assets the account does not own yet are claimed first.

The session id is taken from, in order:
  - --account (a stored account, see 'auth login')
  - --ims-sid, S3RIPPER_IMS_SID or adobe.ims_sid in the config file
  - the most recently stored account

When no collection ids are given, collections.ids from the configuration is used.
Files are written to <output>/<collection title>/<asset title>/<file name>.`,
	Example: `  # Rip one collection with a stored account
  s3ripper rip 5f1c2d3e-aaaa-bbbb-cccc-0123456789ab --account work

  # Rip several collections, pausing 5 to 10 seconds between downloads
  s3ripper rip id-one id-two --min-delay 5 --max-delay 10

  # Only download assets that are free or already owned
  s3ripper rip id-one --free-only`,
	RunE: runRip,
}

func init() {
	rootCmd.AddCommand(ripCmd)

	ripCmd.Flags().StringVar(&imsSID, "ims-sid", "", "Adobe IMS session id (ims_sid cookie)")
	ripCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a stored account")
	ripCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default substance3d_ripper_output)")
	ripCmd.Flags().IntVar(&minDelay, "min-delay", 2, "minimum pause between downloads, in seconds")
	ripCmd.Flags().IntVar(&maxDelay, "max-delay", 6, "maximum pause between downloads, in seconds")
	ripCmd.Flags().IntVar(&pageLimit, "page-limit", 60, "assets requested per catalog page")
	ripCmd.Flags().IntVar(&maxAttempts, "max-attempts", 5, "attempts per HTTP request")
	ripCmd.Flags().DurationVar(&requestTimeout, "timeout", 30*time.Second, "HTTP request timeout")
	ripCmd.Flags().StringVar(&onPurchaseFailure, "on-purchase-failure", config.OnFailureAbort, "what to do when a claim fails: abort or skip")
	ripCmd.Flags().BoolVar(&freeOnly, "free-only", false, "skip paid assets the account does not own")
}

// ripFlags collects the flags the user actually set, so defaults never
// override the config file or environment.
func ripFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := make(map[string]interface{})
	set := cmd.Flags().Changed

	if set("ims-sid") {
		flags["ims-sid"] = imsSID
	}
	if len(args) > 0 {
		flags["collections"] = args
	}
	if set("output") {
		flags["output"] = outputDir
	}
	if set("min-delay") {
		flags["min-delay"] = minDelay
	}
	if set("max-delay") {
		flags["max-delay"] = maxDelay
	}
	if set("page-limit") {
		flags["page-limit"] = pageLimit
	}
	if set("max-attempts") {
		flags["max-attempts"] = maxAttempts
	}
	if set("timeout") {
		flags["timeout"] = requestTimeout
	}
	if set("on-purchase-failure") {
		flags["on-purchase-failure"] = onPurchaseFailure
	}
	if set("free-only") {
		flags["free-only"] = freeOnly
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

func runRip(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, ripFlags(cmd, args))
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.WithField("version", version)

	if len(cfg.Collections.IDs) == 0 {
		return errors.New("no collection ids given; pass them as arguments or set collections.ids")
	}

	credential, err := resolveCredential(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := ripper.NewFromConfig(cfg, log)
	if err != nil {
		return err
	}

	ui.PrintInfo("Collections", strings.Join(cfg.Collections.IDs, ", "))
	ui.PrintInfo("Output", cfg.Output.BaseDirectory)
	ui.PrintHighlight("[RIPPING]")

	res, err := r.Run(ctx, credential)
	printSummary(res)

	if errors.Is(err, context.Canceled) {
		ui.PrintWarning("Interrupted")
		return err
	}
	if err != nil {
		log.WithError(err).Error("Run failed")
		return err
	}

	ui.PrintSuccess("[RIP COMPLETE]")
	return nil
}

// resolveCredential picks the IMS session id for the run and applies the
// stored account's user agent, if any.
func resolveCredential(cfg *config.Config) (string, error) {
	if accountName == "" && cfg.Adobe.SessionID != "" {
		return cfg.Adobe.SessionID, nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return "", fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	account, err := manager.Resolve(accountName)
	if err != nil {
		if accountName != "" {
			return "", fmt.Errorf("account %q not found; see 's3ripper auth list'", accountName)
		}
		return "", errors.New("no IMS session id found; run 's3ripper auth login' or set S3RIPPER_IMS_SID")
	}

	if account.UserAgent != "" {
		cfg.Adobe.UserAgent = account.UserAgent
	}
	ui.PrintInfo("Using account", account.Name)
	return account.SessionID, nil
}

func printSummary(res *ripper.Result) {
	if res == nil {
		return
	}
	if res.Account != "" {
		ui.PrintInfo("Logged in as", res.Account)
	}
	ui.PrintInfo("Collections", fmt.Sprintf("%d (%d pages)", res.Collections, res.Pages))
	ui.PrintInfo("Files", fmt.Sprintf("%d", res.Files))
	ui.PrintInfo("Claimed", fmt.Sprintf("%d", res.Claims))
	if res.Skipped > 0 {
		ui.PrintInfo("Skipped", fmt.Sprintf("%d", res.Skipped))
	}
	for _, id := range res.NotFound {
		ui.PrintWarning("Collection not found", id)
	}
	for _, id := range res.Incomplete {
		ui.PrintWarning("Collection incomplete", id)
	}
	ui.PrintInfo("Elapsed", res.Duration.Round(time.Second).String())
}
