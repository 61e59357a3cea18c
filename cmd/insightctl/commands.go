package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/all"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/repositories"
	"github.com/ekaya-inc/ekaya-insight/pkg/sampling"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

// Output formats of the sample command.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// globalOptions are the persistent flags of the root command.
type globalOptions struct {
	ConfigPath string
	LogLevel   string
	version    string
}

// sampleOptions holds options for the sample command.
type sampleOptions struct {
	SourcesPath string
	IDs         []string
	MaxRows     int
	Format      string
	Output      string
	Mapping     map[string]string
}

func newRootCommand(version string) *cobra.Command {
	opts := &globalOptions{version: version}

	root := &cobra.Command{
		Use:           "insightctl",
		Short:         "Profile data sources and build their statistical context",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Config file with sampling caps (environment only when empty)")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "Log level written to stderr")

	root.AddCommand(newSampleCommand(opts))
	root.AddCommand(newSourcesCommand())
	root.AddCommand(newAdaptersCommand())
	root.AddCommand(newVersionCommand(version))
	return root
}

func newSampleCommand(global *globalOptions) *cobra.Command {
	opts := &sampleOptions{}

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Sample data sources and print the insight context",
		Long: `Connect to each selected data source, sample rows from its tables and
compute per-column statistics. Sources that cannot be reached are reported
in the output instead of failing the command.`,
		Example: `  # All sources in sources.yaml as markdown
  insightctl sample --sources sources.yaml

  # Two sources by name, 20 rows per table, as JSON
  insightctl sample --id analytics --id billing --max-rows 20 --format json

  # Display names for physical tables
  insightctl sample --map cust_tbl=Customers`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSample(cmd.Context(), cmd.OutOrStdout(), global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.SourcesPath, "sources", "s", "sources.yaml", "YAML file declaring the data sources")
	cmd.Flags().StringSliceVar(&opts.IDs, "id", nil, "Data source id or name (repeatable, default all)")
	cmd.Flags().IntVarP(&opts.MaxRows, "max-rows", "n", 0, "Sample rows per table (default from config)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", FormatMarkdown, "Output format: markdown, json, yaml")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().StringToStringVar(&opts.Mapping, "map", nil, "Display name for a physical table (table=Name, repeatable)")
	return cmd
}

func runSample(ctx context.Context, stdout io.Writer, global *globalOptions, opts *sampleOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format := strings.ToLower(opts.Format)
	switch format {
	case FormatMarkdown, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("unknown format %q (must be markdown, json, or yaml)", opts.Format)
	}

	cfg, err := config.LoadFromFile(global.ConfigPath, global.version)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger("local", global.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	repo, err := repositories.LoadFileDatasourceRepository(opts.SourcesPath)
	if err != nil {
		return err
	}
	ids, err := selectSources(ctx, repo, opts.IDs)
	if err != nil {
		return err
	}

	connManager := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{
		TTLMinutes:               cfg.Datasource.ConnectionTTLMinutes,
		MaxConnectionsPerProject: cfg.Datasource.MaxConnectionsPerProject,
		PoolMaxConns:             cfg.Datasource.PoolMaxConns,
		PoolMinConns:             cfg.Datasource.PoolMinConns,
	}, logger)
	defer func() { _ = connManager.Close() }()

	profiler := sampling.NewSourceProfiler(repo, datasource.NewDatasourceAdapterFactory(connManager), cfg.Sampling, logger)
	svc := services.NewInsightContextService(profiler, cfg.Sampling, logger)

	result := svc.BuildInsightContext(ctx, repo.ProjectID(), ids, opts.MaxRows, opts.Mapping)
	logger.Debug("Sampling finished",
		zap.Int("sources", result.Context.TotalSources),
		zap.Int("context_size_bytes", result.Context.ContextSizeBytes))

	out := stdout
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.Output, err)
		}
		defer f.Close()
		out = f
	}
	return writeResult(out, format, result)
}

// selectSources resolves --id values, or every declared source when none are given.
func selectSources(ctx context.Context, repo *repositories.FileDatasourceRepository, refs []string) ([]uuid.UUID, error) {
	if len(refs) > 0 {
		return repo.Resolve(refs)
	}
	all, err := repo.List(ctx, repo.ProjectID())
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(all))
	for _, ds := range all {
		ids = append(ids, ds.ID)
	}
	return ids, nil
}

func writeResult(w io.Writer, format string, result *services.InsightContextResult) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, result.Markdown)
		return err
	}
}

func newSourcesCommand() *cobra.Command {
	var sourcesPath string

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the data sources declared in a sources file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := repositories.LoadFileDatasourceRepository(sourcesPath)
			if err != nil {
				return err
			}
			list, err := repo.List(cmd.Context(), repo.ProjectID())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Name", "Type", "Registered"})
			for _, ds := range list {
				t.AppendRow(table.Row{ds.ID, ds.Name, ds.DatasourceType, datasource.IsRegistered(ds.DatasourceType)})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&sourcesPath, "sources", "s", "sources.yaml", "YAML file declaring the data sources")
	return cmd
}

func newAdaptersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "adapters",
		Short: "List supported data source types",
		Run: func(cmd *cobra.Command, _ []string) {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Type", "Name", "Family", "Integration"})
			for _, info := range datasource.RegisteredAdapters() {
				t.AppendRow(table.Row{info.Type, info.DisplayName, info.Family, info.Integration})
			}
			t.Render()
		},
	}
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "insightctl %s\n", version)
		},
	}
}
