package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"metalprice/internal/app"
	"metalprice/internal/config"
	"metalprice/internal/service"
	"metalprice/internal/valuation"
	"metalprice/internal/view"
)

var (
	cfgPath  string
	endpoint string
	timeout  time.Duration
	a        *app.App
)

var rootCmd = &cobra.Command{
	Use:   "metalprice",
	Short: "Fetch precious-metal spot prices and value scrap from the command line",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		a, err = app.New(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if a != nil {
			_ = a.Close()
		}
		_ = zap.L().Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		var (
			p   service.Prices
			err error
		)
		switch {
		case endpoint != "":
			p, err = pricesFrom(ctx, endpoint)
		case refresh:
			p, err = a.Service.Refresh(ctx)
		default:
			p, err = a.Service.Prices(ctx)
		}
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

// pricesFrom fetches from a one-off endpoint. It never reads or writes the
// shared cache, so the configured endpoint's record stays untouched.
func pricesFrom(ctx context.Context, ep string) (service.Prices, error) {
	rec, err := a.Detached().Fetch(ctx, ep)
	if err != nil {
		return service.Prices{}, err
	}
	return service.Prices{Record: rec, Board: view.NewBoard(rec, ep)}, nil
}

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Value a weight of scrap metal at the current price",
	RunE: func(cmd *cobra.Command, args []string) error {
		metal, _ := cmd.Flags().GetString("metal")
		grade, _ := cmd.Flags().GetString("grade")
		weight, _ := cmd.Flags().GetFloat64("weight")

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		calc, err := a.Service.Calculate(ctx, valuation.Request{Metal: metal, Grade: grade, WeightGrams: weight})
		if err != nil {
			return err
		}
		return printJSON(calc)
	},
}

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Print the per-gram jewellery price sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		premium, _ := cmd.Flags().GetBool("premium")
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		sections, err := a.Service.Sheet(ctx, premium)
		if err != nil {
			return err
		}
		return printJSON(sections)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the configured provider and cache state",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := a.Service.Status(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(st)
	},
}

var setEndpointCmd = &cobra.Command{
	Use:   "set-endpoint URL",
	Short: "Persist the upstream endpoint URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := a.Service.SetEndpoint(cmd.Context(), args[0]); err != nil {
			return err
		}
		st, err := a.Service.Status(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(st)
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove the persisted endpoint and cached prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := a.Service.Purge(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "purged")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config.json (default ./config.json or $CONFIG_FILE)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall command timeout")
	rootCmd.Flags().StringVar(&endpoint, "endpoint", "", "fetch from this URL instead of the configured endpoint")
	rootCmd.Flags().Bool("refresh", false, "bypass the cache for the configured endpoint")

	calcCmd.Flags().String("metal", string(valuation.Gold), "gold, silver or platinum")
	calcCmd.Flags().String("grade", "24", "purity grade key, e.g. 18 or sterling")
	calcCmd.Flags().Float64("weight", 0, "weight in grams")
	_ = calcCmd.MarkFlagRequired("weight")

	sheetCmd.Flags().Bool("premium", false, "print the premium gold sheet")

	rootCmd.AddCommand(calcCmd, sheetCmd, statusCmd, setEndpointCmd, purgeCmd)
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
