package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	config "budget-insight-api/configs"
	"budget-insight-api/pkg/dataset"
	"budget-insight-api/pkg/models"
	"budget-insight-api/pkg/resilience"
	"budget-insight-api/pkg/server"
	"budget-insight-api/pkg/services"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "report",
		Short:         "Participatory budget statistics from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newReportCmd(), newSummaryCmd(), newClassifyCmd())
	return root
}

type reportOptions struct {
	datasetPath string
	category    string
	budget      int64
	seed        uint64
	strict      bool
	noData      string
}

func newReportCmd() *cobra.Command {
	var opts reportOptions
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the JSON report of a category",
		Long: `Builds the same report as POST /predict-category, with the category
given on the command line instead of predicted. --seed makes the abandoned
project sample reproducible.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.datasetPath, "dataset", "", "dataset file (.csv or .xlsx)")
	flags.StringVar(&opts.category, "category", "", "category label")
	flags.Int64Var(&opts.budget, "budget", 0, "estimated budget of the project")
	flags.Uint64Var(&opts.seed, "seed", 0, "seed of the abandoned sample, random when 0")
	flags.BoolVar(&opts.strict, "strict", false, "count every project in at most one status")
	flags.StringVar(&opts.noData, "no-data-message", "", "analysis text when nothing matches")
	_ = cmd.MarkFlagRequired("dataset")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("budget")
	return cmd
}

func runReport(cmd *cobra.Command, opts reportOptions) error {
	category := strings.TrimSpace(opts.category)
	if category == "" {
		return errors.New("--category must not be blank")
	}

	snap, err := dataset.Load(opts.datasetPath)
	if err != nil {
		return err
	}

	policy := services.StatusPolicyLegacy
	if opts.strict {
		policy = services.StatusPolicyStrict
	}
	engine := services.NewMetricsService(services.MetricsOptions{StatusPolicy: policy, NoDataMessage: opts.noData})

	rng := services.NewRequestRand()
	if opts.seed != 0 {
		rng = services.NewSeededRand(opts.seed)
	}

	info := models.PredictionInfo{
		Name:       category,
		Confidence: 1,
		Analyse:    fmt.Sprintf("Catégorie fournie : %s", category),
	}
	resp, err := engine.BuildReport(cmd.Context(), info, "", opts.budget, snap, rng)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), resp)
}

func newSummaryCmd() *cobra.Command {
	var datasetPath string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print rows, themes and editions of a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := dataset.Load(datasetPath)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), services.Summarize(snap))
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "dataset file (.csv or .xlsx)")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newClassifyCmd() *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "classify <title>",
		Short: "Classify a title with the configured backend",
		Long: `Loads .env and the server configuration, then sends one title to the
classification backend. Useful to check credentials and connectivity.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg := config.LoadConfig()
			if backend != "" {
				cfg.ClassifierBackend = strings.ToLower(backend)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			classifier, err := server.NewClassifier(cmd.Context(), cfg, resilience.NewExecutor(server.ResilienceConfig(cfg)))
			if err != nil {
				return err
			}
			prediction, err := classifier.Classify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), prediction.Info())
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "override CLASSIFIER_BACKEND (remote, azure, gemini, keyword)")
	return cmd
}
