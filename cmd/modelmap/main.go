package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"modelmap/internal/config"
	"modelmap/internal/ir"
	"modelmap/internal/pipeline"
)

// version is overridden at build time via -ldflags.
var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "modelmap",
	Short: "Static model and endpoint mapper for Python codebases",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "modelmap.yaml", "Path to the YAML config file (optional)")

	scanCmd.Flags().StringP("out", "o", "", "Output directory")
	scanCmd.Flags().StringSlice("formats", nil, "Output formats: structured, html, excel")
	scanCmd.Flags().StringSlice("include", nil, "Glob patterns of files to include")
	scanCmd.Flags().StringSlice("exclude", nil, "Glob patterns of files to exclude")
	scanCmd.Flags().Int("max-depth", 0, "Maximum directory depth (0 = unlimited)")
	scanCmd.Flags().Int("workers", 0, "Extraction workers (0 = number of CPUs)")
	scanCmd.Flags().Duration("file-timeout", 0, "Per-file extraction timeout")
	scanCmd.Flags().Bool("no-history", false, "Skip git history correlation")

	viper.BindPFlags(scanCmd.Flags())
	viper.SetEnvPrefix("MODELMAP")
	viper.AutomaticEnv()

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Analyze a Python source tree and write the mapping reports",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := rootCmd.PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.Root = args[0]
		}
		applyFlags(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("📂 Analyzing %s\n", cfg.Root)
		start := time.Now()

		res, err := pipeline.New(cfg, version).Run(ctx)
		if err != nil {
			if errors.Is(err, pipeline.ErrNoFiles) {
				return fmt.Errorf("no python files found under %s", cfg.Root)
			}
			return err
		}

		fmt.Printf("✅ %d models, %d functions, %d endpoints in %v\n",
			res.Summary.Models, res.Summary.Functions, res.Summary.Endpoints,
			time.Since(start).Round(time.Millisecond))
		if n := len(res.Diagnostics); n > 0 {
			log.Printf("%d diagnostics recorded, see %s", n, cfg.Output.Dir)
			for kind, count := range res.Summary.Diagnostics {
				log.Printf("  %s: %d", kind, count)
			}
		}
		if res.Summary.Diagnostics[ir.DiagAmbiguousReference] > 0 {
			fmt.Println("⚠️  Some references are ambiguous; dashed edges in the graph mark them.")
		}
		fmt.Printf("🎉 Reports written to %s\n", cfg.Output.Dir)
		return nil
	},
}

// applyFlags layers viper-bound flag and env values over the file config.
func applyFlags(cfg *config.Config) {
	if v := viper.GetString("out"); v != "" {
		cfg.Output.Dir = v
	}
	if v := viper.GetStringSlice("formats"); len(v) > 0 {
		cfg.Output.Formats = v
	}
	if v := viper.GetStringSlice("include"); len(v) > 0 {
		cfg.Walker.Include = v
	}
	if v := viper.GetStringSlice("exclude"); len(v) > 0 {
		cfg.Walker.Exclude = v
	}
	if v := viper.GetInt("max-depth"); v > 0 {
		cfg.Walker.MaxDepth = v
	}
	if v := viper.GetInt("workers"); v > 0 {
		cfg.Pipeline.Workers = v
	}
	if v := viper.GetDuration("file-timeout"); v > 0 {
		cfg.Pipeline.FileTimeout = v
	}
	if viper.GetBool("no-history") {
		cfg.History.Enabled = false
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the modelmap version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("modelmap", version)
	},
}
