package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gomca/adapters/api"
	"gomca/adapters/report"
	"gomca/app"
	"gomca/internal"
	"gomca/internal/config"
	"gomca/internal/container"
	"gomca/internal/testkit"
	"gomca/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		internal.DefaultLogger.Debug("No .env file loaded: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:   "gomca",
		Short: "Multiple correspondence analysis of categorical tables",
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newBatchCmd(),
		newGenerateCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// overrides holds flags shared by analyze and batch; zero values keep the
// environment configuration
type overrides struct {
	components int
	class      string
	markers    []string
	prefix     string
	outDir     string
	format     string
	save       bool
}

func (o *overrides) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&o.components, "components", "k", 0, "Number of principal axes (default MCA_COMPONENTS)")
	cmd.Flags().StringVar(&o.class, "class", "", "Class field labelling the rows (default MCA_CLASS_FIELD)")
	cmd.Flags().StringSliceVar(&o.markers, "markers", nil, "Explicit marker fields")
	cmd.Flags().StringVar(&o.prefix, "prefix", "", "Keep marker fields starting with this prefix")
	cmd.Flags().StringVarP(&o.outDir, "out", "o", "", "Output directory (default MCA_OUTPUT_DIR)")
	cmd.Flags().StringVar(&o.format, "format", "", "Biplot format: svg or png (default MCA_PLOT_FORMAT)")
	cmd.Flags().BoolVar(&o.save, "save", false, "Persist runs to DATABASE_URL")
}

func (o *overrides) apply(cfg *config.Config) error {
	if o.components > 0 {
		cfg.Analysis.Components = o.components
	}
	if o.class != "" {
		cfg.Data.ClassField = o.class
	}
	if len(o.markers) > 0 {
		cfg.Data.MarkerFields = o.markers
		cfg.Data.MarkerPrefix = ""
	}
	if o.prefix != "" {
		cfg.Data.MarkerPrefix = o.prefix
		cfg.Data.MarkerFields = nil
	}
	if o.outDir != "" {
		cfg.Output.Dir = o.outDir
	}
	if o.format != "" {
		cfg.Output.Format = strings.ToLower(o.format)
	}
	return cfg.Validate()
}

func buildContainer(ctx context.Context, o *overrides, needDB bool) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o != nil {
		if err := o.apply(cfg); err != nil {
			return nil, err
		}
	}
	c, err := container.New(cfg, internal.NewDefaultLogger())
	if err != nil {
		return nil, err
	}
	if needDB {
		if err := c.InitWithDatabase(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func newAnalyzeCmd() *cobra.Command {
	var o overrides
	var query string

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Run MCA on a CSV/XLSX file or a SQL query and write its artifacts",
		Long: `Run MCA on one table and write <name>.json, <name>_coordinates.csv,
<name>.md, <name>.html and the biplot into the output directory.

Example: gomca analyze samples.xlsx --class Aggressiveness --prefix SIX -k 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if query == "" {
				query = os.Getenv("MCA_QUERY")
			}
			c, err := buildContainer(ctx, &o, o.save || (query != "" && len(args) == 0))
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			var source ports.TableSource
			switch {
			case len(args) == 1:
				source = c.FileSource(args[0])
			case c.Config.Data.InputFile != "":
				source = c.FileSource(c.Config.Data.InputFile)
			case query != "":
				if source, err = c.QuerySource(query); err != nil {
					return err
				}
			default:
				return fmt.Errorf("no input: pass a file, set MCA_INPUT_FILE, or use --query")
			}

			res, err := c.Service.Run(ctx, source, c.Request())
			if err != nil {
				return err
			}
			return writeArtifacts(ctx, c, res)
		},
	}

	o.register(cmd)
	cmd.Flags().StringVar(&query, "query", "", "SQL query returning the table (requires DATABASE_URL)")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var o overrides

	cmd := &cobra.Command{
		Use:   "batch [files...]",
		Short: "Analyze several tables concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := buildContainer(ctx, &o, o.save)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			sources := make([]ports.TableSource, len(args))
			for i, path := range args {
				sources[i] = c.FileSource(path)
			}
			results, err := c.Service.RunBatch(ctx, sources, c.Request())
			if err != nil {
				return err
			}
			for _, res := range results {
				if err := writeArtifacts(ctx, c, res); err != nil {
					return err
				}
			}
			return nil
		},
	}

	o.register(cmd)
	return cmd
}

func newGenerateCmd() *cobra.Command {
	cfg := testkit.DefaultConfig()
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic aggressiveness × SIX-gene table",
		Long: `Write a synthetic table for trying the analysis end to end.
The file type follows the extension of --out (.csv or .xlsx).

Example: gomca generate --rows 120 --genes 6 --out samples.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := testkit.GenerateDataset(cfg)
			if err != nil {
				return err
			}
			switch strings.ToLower(filepath.Ext(out)) {
			case ".csv":
				err = testkit.WriteCSV(out, ds)
			case ".xlsx":
				err = testkit.WriteXLSX(out, ds)
			default:
				return fmt.Errorf("unsupported output extension %q (use .csv or .xlsx)", filepath.Ext(out))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows × %d genes to %s\n", len(ds.Rows), cfg.Genes, out)
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.Rows, "rows", cfg.Rows, "Number of samples")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	cmd.Flags().IntVar(&cfg.Genes, "genes", cfg.Genes, "Number of SIX gene fields")
	cmd.Flags().StringVarP(&out, "out", "o", "samples.csv", "Output file (.csv or .xlsx)")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := buildContainer(ctx, nil, os.Getenv("DATABASE_URL") != "")
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			server := api.NewServer(c.Service, api.Config{
				Port:     c.Config.Server.Port,
				Defaults: c.Request(),
			}, c.Logger)
			return server.Start(ctx)
		},
	}
	return cmd
}

// writeArtifacts writes the JSON result, coordinates, report and biplot of
// one run into the output directory
func writeArtifacts(ctx context.Context, c *container.Container, res *app.AnalysisResult) error {
	dir := c.Config.Output.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	base := container.OutputBase(res.Source)

	plotRef := ""
	if res.Figure != nil {
		plotPath := c.PlotPath(base)
		if err := c.Renderer.RenderFile(ctx, res.Figure, plotPath); err != nil {
			return err
		}
		plotRef = filepath.Base(plotPath)
	} else {
		c.Logger.Warn("Run %s has a single axis; skipping the biplot", res.RunID)
	}

	files := []struct {
		name  string
		write func(*os.File) error
	}{
		{base + ".json", func(f *os.File) error { return report.WriteJSON(f, res) }},
		{base + "_coordinates.csv", func(f *os.File) error { return report.WriteCoordinatesCSV(f, res) }},
		{base + ".md", func(f *os.File) error { _, err := f.Write(report.Markdown(res, plotRef)); return err }},
		{base + ".html", func(f *os.File) error { _, err := f.Write(report.HTML(res, plotRef)); return err }},
	}
	for _, file := range files {
		if err := writeFile(filepath.Join(dir, file.name), file.write); err != nil {
			return err
		}
	}

	c.Logger.Info("Run %s: %d rows, %d columns, explained %s -> %s",
		res.RunID, res.Rows, len(res.Columns), formatPercents(res.ExplainedInertia), dir)
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func formatPercents(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%.1f%%", 100*x)
	}
	return strings.Join(parts, ", ")
}
