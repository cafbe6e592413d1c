package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/bacpanel/config"
	"github.com/YuminosukeSato/bacpanel/dataset"
	"github.com/YuminosukeSato/bacpanel/inference"
	"github.com/YuminosukeSato/bacpanel/internal/synth"
	"github.com/YuminosukeSato/bacpanel/pkg/log"
	"github.com/YuminosukeSato/bacpanel/schema"
	"github.com/YuminosukeSato/bacpanel/store"
	"github.com/YuminosukeSato/bacpanel/summary"
	"github.com/YuminosukeSato/bacpanel/training"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "bacpanel",
		Short:        "Predict percent inhibition across a 40-strain bacterial panel",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logLevel != "" {
				if _, err := log.ParseLevel(opts.logLevel); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	cmd.AddCommand(newTrainCmd(opts), newPredictCmd(opts), newSynthCmd())
	return cmd
}

func setupLogging(configured, override string) {
	if override != "" {
		configured = override
	}
	log.SetupLogger(configured)
}

type trainOptions struct {
	dataset     string
	artifact    string
	nEstimators int
	noCV        bool
	reportPath  string
	plotPath    string
}

func newTrainCmd(root *rootOptions) *cobra.Command {
	opts := &trainOptions{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the model on a labelled CSV and save the artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadTraining(root.configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("dataset") {
				cfg.Dataset = opts.dataset
			}
			if flags.Changed("artifact") {
				cfg.Artifact = opts.artifact
			}
			if flags.Changed("n-estimators") {
				cfg.NEstimators = opts.nEstimators
			}
			if opts.noCV {
				cfg.RunCV = false
			}
			if flags.Changed("report") {
				cfg.ReportPath = opts.reportPath
			}
			if flags.Changed("plot") {
				cfg.PlotPath = opts.plotPath
			}
			setupLogging(cfg.LogLevel, root.logLevel)

			rep, err := training.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: %d rows (%d excluded), train %d / test %d\n",
				rep.RunID, rep.Rows, rep.RowsDropped, rep.TrainRows, rep.TestRows)
			fmt.Fprintf(out, "held-out R² %.4f, MAE %.4f\n", rep.R2, rep.MAE)
			if rep.CV != nil {
				fmt.Fprintf(out, "%d-fold CV R² %.4f ± %.4f\n", rep.CV.Folds, rep.CV.Mean, rep.CV.Std)
			}
			fmt.Fprintf(out, "artifact saved to %s\n", cfg.Artifact)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.dataset, "dataset", "", "training CSV")
	f.StringVar(&opts.artifact, "artifact", "", "artifact output path")
	f.IntVar(&opts.nEstimators, "n-estimators", 0, "number of trees")
	f.BoolVar(&opts.noCV, "no-cv", false, "skip cross-validation")
	f.StringVar(&opts.reportPath, "report", "", "write a JSON metrics report")
	f.StringVar(&opts.plotPath, "plot", "", "write a per-strain R² chart (.png or .svg)")
	return cmd
}

type predictOptions struct {
	artifact   string
	descriptor schema.DrugDescriptor
	top        int
	strict     bool
	asJSON     bool
}

func newPredictCmd(root *rootOptions) *cobra.Command {
	opts := &predictOptions{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the inhibition panel of one compound",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadInference(root.configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("artifact") {
				cfg.Artifact = opts.artifact
			}
			if flags.Changed("top") {
				cfg.TopN = opts.top
			}
			if flags.Changed("strict") {
				cfg.StrictCategories = opts.strict
			}
			setupLogging(cfg.LogLevel, root.logLevel)

			svc := inference.New(store.New(cfg.Artifact), inference.WithStrictCategories(cfg.StrictCategories))
			defer svc.Close()

			pred, err := svc.PredictAndSummarize(opts.descriptor, cfg.TopN)
			if err != nil {
				return err
			}
			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(pred)
			}
			printSummary(cmd.OutOrStdout(), pred.Summary)
			return nil
		},
	}
	f := cmd.Flags()
	d := &opts.descriptor
	f.StringVar(&opts.artifact, "artifact", "", "artifact path")
	f.StringVar(&d.ACAClass, "aca-class", schema.ACAClasses[0], "ACA class (Type-I, Type-II, Type-III)")
	f.Float64Var(&d.Complexity, "complexity", 0, "molecular complexity")
	f.Float64Var(&d.MolWeight, "mol-weight", 0, "molecular weight")
	f.Float64Var(&d.TPSA, "tpsa", 0, "topological polar surface area")
	f.Float64Var(&d.Volume, "volume", 0, "molecular volume")
	f.Float64Var(&d.Hydrophobicity, "hydrophobicity", 0, "hydrophobicity")
	f.IntVar(&opts.top, "top", summary.DefaultTopN, "number of strains to show")
	f.BoolVar(&opts.strict, "strict", false, "reject unknown ACA classes")
	f.BoolVar(&opts.asJSON, "json", false, "print the full prediction as JSON")
	return cmd
}

// printSummary prints values rounded to one decimal, e.g. "Bac7 – 83.1%".
func printSummary(w io.Writer, res summary.Result) {
	fmt.Fprintf(w, "Top %d inhibited strains:\n", len(res.Top))
	for _, s := range res.Top {
		fmt.Fprintf(w, "  %s – %.1f%%\n", s.Strain, s.Value)
	}
	fmt.Fprintf(w, "Most affected region: %s (%.1f)\n", res.Most.Region, res.Most.Score)
	fmt.Fprintf(w, "Least affected region: %s (%.1f)\n", res.Least.Region, res.Least.Score)
}

type synthOptions struct {
	rows           int
	seed           uint64
	out            string
	missingTargets float64
}

func newSynthCmd() *cobra.Command {
	opts := &synthOptions{}
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write a synthetic training CSV for demos",
		RunE: func(cmd *cobra.Command, args []string) error {
			records := synth.Records(opts.rows, opts.seed, synth.Options{MissingTargetRate: opts.missingTargets})
			if err := os.MkdirAll(filepath.Dir(opts.out), 0o755); err != nil {
				return err
			}
			f, err := os.Create(opts.out)
			if err != nil {
				return err
			}
			if err := dataset.WriteCSV(f, records); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(records), opts.out)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.rows, "rows", 200, "number of rows")
	f.Uint64Var(&opts.seed, "seed", 1, "random seed")
	f.StringVar(&opts.out, "out", "data/training.csv", "output CSV path")
	f.Float64Var(&opts.missingTargets, "missing-targets", 0, "probability that a target cell is blank")
	return cmd
}
