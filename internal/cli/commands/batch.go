package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/cli/ui"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/config"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/export"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/fetchers"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/process"
)

var (
	batchOutput  string
	batchFormat  string
	batchTimeout time.Duration
)

// batchCmd is the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <config.yml>",
	Short: "run a processing pipeline from an exported configuration",
	Long: `Run a SwarmPAL processing pipeline headless.

Takes the YAML configuration shown in a dashboard's command-line snippet,
fetches the configured datasets, applies the processing chain in order and
writes the processed result to a file.

Supported output formats:
  • parquet   long-format Apache Parquet (default)
  • json      pretty-printed JSON data tree
  • json.gz   gzip-compressed JSON data tree`,
	Example: `  # Fetch, process and write Parquet next to the config
  $ swarmpal batch config.yml

  # JSON output to a chosen path with a shorter deadline
  $ swarmpal batch config.yml -f json -o result.json --timeout 2m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "output file (default swarmpal_<timestamp>.<ext>)")
	batchCmd.Flags().StringVarP(&batchFormat, "format", "f", "parquet", "output format: parquet, json or json.gz")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 5*time.Minute, "overall pipeline deadline")

	// Silence usage to avoid showing help on every error
	batchCmd.SilenceUsage = true
}

func runBatch(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(batchFormat)
	if err != nil {
		ui.PrintError("%v", err)
		return fmt.Errorf("invalid format")
	}

	pipeline, err := loadPipelineConfig(args[0])
	if err != nil {
		ui.PrintError("failed to load %s: %v", args[0], err)
		return fmt.Errorf("config load failed")
	}

	appCfg, err := config.Load(context.Background())
	if err != nil {
		ui.PrintError("failed to load environment: %v", err)
		return fmt.Errorf("config load failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()
	started := time.Now()

	ui.PrintInfo("Fetching %d dataset(s)...", len(pipeline.DataParams))
	fetcher := fetchers.New(fetchers.Options{
		ViresURL:   appCfg.ViresURL,
		Timeout:    batchTimeout,
		RetryCount: appCfg.FetchRetryCount,
		RetryWait:  time.Duration(appCfg.FetchRetryWaitSec) * time.Second,
	})
	tree, err := fetcher.Fetch(ctx, pipeline.DataParams)
	if err != nil {
		ui.PrintError("fetch failed: %v", err)
		return fmt.Errorf("fetch failed")
	}
	ui.PrintSuccess("Data fetched")

	ui.PrintInfo("Applying %d processing step(s)...", len(pipeline.ProcessParams))
	if err := process.NewRegistry().Apply(tree, pipeline.ProcessParams); err != nil {
		ui.PrintError("processing failed: %v", err)
		return fmt.Errorf("processing failed")
	}
	ui.PrintSuccess("Processing complete")

	outPath := batchOutput
	if outPath == "" {
		outPath = fmt.Sprintf("swarmpal_%s.%s", started.UTC().Format("20060102T150405"), format.Ext())
	}
	out, err := os.Create(outPath)
	if err != nil {
		ui.PrintError("cannot create %s: %v", outPath, err)
		return fmt.Errorf("output failed")
	}
	if err := export.Write(out, tree, format); err != nil {
		out.Close()
		os.Remove(outPath)
		ui.PrintError("export failed: %v", err)
		return fmt.Errorf("export failed")
	}
	if err := out.Close(); err != nil {
		ui.PrintError("cannot finish %s: %v", outPath, err)
		return fmt.Errorf("output failed")
	}

	var size int64
	if info, err := os.Stat(outPath); err == nil {
		size = info.Size()
	}

	ui.PrintSummaryBox("Pipeline complete", fmt.Sprintf(
		"Datasets:  %d\nSteps:     %d\nRows:      %d\nOutput:    %s (%d bytes)\nElapsed:   %s",
		len(pipeline.DataParams),
		len(pipeline.ProcessParams),
		len(export.Rows(tree)),
		outPath,
		size,
		time.Since(started).Round(time.Millisecond),
	))
	return nil
}

// loadPipelineConfig reads and validates a dashboard-exported configuration.
func loadPipelineConfig(path string) (models.ProcessingConfig, error) {
	var cfg models.ProcessingConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid YAML: %w", err)
	}
	if len(cfg.DataParams) == 0 {
		return cfg, fmt.Errorf("configuration has no data_params")
	}
	for i, pp := range cfg.ProcessParams {
		if pp.ProcessName == "" {
			return cfg, fmt.Errorf("process_params[%d] has no process_name", i)
		}
	}
	return cfg, nil
}
