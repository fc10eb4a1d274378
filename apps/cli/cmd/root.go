package cmd

import (
	"fmt"
	"os"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/config"
	"github.com/abdul-hamid-achik/sheetspec/packages/logging"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag  string
	verboseFlag bool
	quietFlag   bool
	logJSONFlag bool
	noColorFlag bool

	// cfg is the loaded config file merged over the defaults.
	cfg    = config.DefaultConfig()
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "sheetspec",
	Short: "Spreadsheet-driven API tests.",
	Long: `sheetspec turns a workbook of API test cases into a Postman-style
collection, runs it and writes the verdict for every row back to a
styled workbook, an HTML report and other formats.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt

	err := rootCmd.Execute()
	_ = logger.Sync()
	if err == nil {
		return
	}

	code := exitCode(err)
	if msg := err.Error(); msg != "" {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), msg)
	}
	if code == ExitUsageError {
		fmt.Fprintln(os.Stderr, "Run 'sheetspec --help' for usage.")
	}
	os.Exit(code)
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(configFlag)
	if err != nil {
		return withExit(ExitConfigError, fmt.Errorf("loading config: %w", err))
	}
	cfg = loaded

	if noColorFlag || cfg.GetNoColor() {
		color.NoColor = true
	}

	l, err := logging.New(logging.Options{
		Verbose: verboseFlag || cfg.GetVerbose(),
		Quiet:   quietFlag,
		JSON:    logJSONFlag,
	})
	if err != nil {
		return withExit(ExitConfigError, fmt.Errorf("creating logger: %w", err))
	}
	logger = l
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFlag, "config", getEnvString("SHEETSPEC_CONFIG", ""), "Path to config file (env: SHEETSPEC_CONFIG)")
	pf.BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("SHEETSPEC_VERBOSE", false), "Verbose output and debug logs (env: SHEETSPEC_VERBOSE)")
	pf.BoolVarP(&quietFlag, "quiet", "q", getEnvBool("SHEETSPEC_QUIET", false), "Only log warnings and errors (env: SHEETSPEC_QUIET)")
	pf.BoolVar(&logJSONFlag, "log-json", getEnvBool("SHEETSPEC_LOG_JSON", false), "Write logs as JSON (env: SHEETSPEC_LOG_JSON)")
	pf.BoolVar(&noColorFlag, "no-color", getEnvBool("SHEETSPEC_NO_COLOR", false), "Disable colored output (env: SHEETSPEC_NO_COLOR)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}
