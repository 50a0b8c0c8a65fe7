package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gateway-reconciliation-service/cmd/reconciler/config"
	"gateway-reconciliation-service/internal/reconciler"
	"gateway-reconciliation-service/internal/reporter"
)

// Flags for the reconcile command
var (
	gatewayName      string
	externalFiles    []string
	internalFiles    []string
	carryForwardFile string
	outputFormat     string
	outputFile       string
	fuzzyThreshold   int
	chargeThreshold  int
	includeDiags     bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile gateway statements against the workpay ledger",
	Long: `Reconcile normalizes one gateway's external statement files and internal
workpay payout files, classifies every row and matches the payouts across the
two datasets.

Examples:
  # Basic reconciliation for one gateway
  reconciler reconcile --gateway equity \
    --external-files equity_statement.xlsx --internal-files workpay_payouts.csv

  # Re-present a prior run's unmatched records for carry-forward matching
  reconciler reconcile --gateway kcb \
    --external-files kcb.csv --internal-files workpay.csv \
    --carry-forward-file unmatched.json

  # JSON report with per-file diagnostics, custom fuzzy threshold
  reconciler reconcile --gateway mpesa \
    --external-files mpesa.csv --internal-files workpay.csv \
    --output-format json --include-diagnostics --fuzzy-threshold 85`,

	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&gatewayName, "gateway", "g", "", "gateway to reconcile (required)")
	reconcileCmd.Flags().StringSliceVarP(&externalFiles, "external-files", "e", []string{}, "comma-separated bank statement files (required)")
	reconcileCmd.Flags().StringSliceVarP(&internalFiles, "internal-files", "i", []string{}, "comma-separated workpay ledger files (required)")
	reconcileCmd.Flags().StringVar(&carryForwardFile, "carry-forward-file", "", "JSON file with a prior run's unmatched records")

	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().BoolVar(&includeDiags, "include-diagnostics", false, "include per-file mapping diagnostics in the report")

	reconcileCmd.Flags().IntVar(&fuzzyThreshold, "fuzzy-threshold", 0, "override the gateway's fuzzy match threshold (1-100)")
	reconcileCmd.Flags().IntVar(&chargeThreshold, "charge-threshold", 0, "override the gateway's charge keyword threshold (1-100)")

	reconcileCmd.MarkFlagRequired("gateway")
	reconcileCmd.MarkFlagRequired("external-files")
	reconcileCmd.MarkFlagRequired("internal-files")

	viper.BindPFlag("gateway", reconcileCmd.Flags().Lookup("gateway"))
	viper.BindPFlag("external-files", reconcileCmd.Flags().Lookup("external-files"))
	viper.BindPFlag("internal-files", reconcileCmd.Flags().Lookup("internal-files"))
	viper.BindPFlag("carry-forward-file", reconcileCmd.Flags().Lookup("carry-forward-file"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("include-diagnostics", reconcileCmd.Flags().Lookup("include-diagnostics"))
	viper.BindPFlag("fuzzy-threshold", reconcileCmd.Flags().Lookup("fuzzy-threshold"))
	viper.BindPFlag("charge-threshold", reconcileCmd.Flags().Lookup("charge-threshold"))
}

func runReconcile(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	format := reporter.OutputFormat(viper.GetString("output-format"))
	if !format.IsValid() {
		err := fmt.Errorf("invalid output format %q: must be console, json or csv", format)
		os.Exit(handler.HandleError(err))
	}

	registry, err := config.BuildRegistry(viper.GetInt("fuzzy-threshold"), viper.GetInt("charge-threshold"))
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	request := &reconciler.Request{Gateway: viper.GetString("gateway")}
	if request.ExternalFiles, err = config.LoadRawFiles(viper.GetStringSlice("external-files")); err != nil {
		os.Exit(handler.HandleError(err))
	}
	if request.InternalFiles, err = config.LoadRawFiles(viper.GetStringSlice("internal-files")); err != nil {
		os.Exit(handler.HandleError(err))
	}
	if cf := viper.GetString("carry-forward-file"); cf != "" {
		if request.PriorUnmatched, err = config.LoadCarryForward(cf); err != nil {
			os.Exit(handler.HandleError(err))
		}
	}

	service := reconciler.NewService(registry)
	result, err := service.Reconcile(context.Background(), request)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	out := os.Stdout
	if path := viper.GetString("output-file"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			os.Exit(handler.HandleError(err))
		}
		defer f.Close()
		out = f
	}

	opts := &reporter.Options{
		Format:              format,
		IncludeTransactions: true,
		IncludeDiagnostics:  viper.GetBool("include-diagnostics"),
	}
	if err := reporter.Write(out, result, opts); err != nil {
		os.Exit(handler.HandleError(err))
	}

	if result.FileErrors.HasErrors() {
		fmt.Fprintf(os.Stderr, "Completed with file errors: %s\n", result.FileErrors.Error())
	}
	return nil
}
