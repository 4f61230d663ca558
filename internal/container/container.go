package container

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"gomca/adapters/excel"
	"gomca/adapters/postgres"
	"gomca/adapters/render"
	"gomca/app"
	"gomca/internal"
	"gomca/internal/config"
	"gomca/internal/mca"
	"gomca/internal/migration"
	"gomca/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	RunStore ports.RunStore

	// Analysis
	Engine   *mca.Engine
	Service  *app.AnalysisService
	Renderer *render.Renderer
}

// New creates a container that works without a database.
// Call InitWithDatabase to add run persistence.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	renderer, err := render.New(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Engine:   mca.NewEngine(cfg.EngineConfig()),
		Renderer: renderer,
	}
	c.initService()
	return c, nil
}

// InitWithDatabase connects to DATABASE_URL, runs migrations and wires the
// run repository into the analysis service
func (c *Container) InitWithDatabase(ctx context.Context) error {
	db, err := postgres.Connect(ctx, c.Config.Database.URL, migration.NewRunner().Run)
	if err != nil {
		return err
	}
	c.DB = db
	c.RunStore = postgres.NewRunRepository(db)
	c.initService()

	c.Logger.Info("Container initialized with database connection")
	return nil
}

func (c *Container) initService() {
	opts := []app.ServiceOption{
		app.WithLogger(c.Logger),
		app.WithConcurrency(c.Config.Analysis.Concurrency),
	}
	if c.RunStore != nil {
		opts = append(opts, app.WithRunStore(c.RunStore))
	}
	c.Service = app.NewAnalysisService(c.Engine, opts...)
}

// Request returns the analysis request described by the configuration
func (c *Container) Request() app.AnalysisRequest {
	return app.AnalysisRequest{
		Components: c.Config.Analysis.Components,
		Selection:  c.Config.Selection(),
	}
}

// FileSource returns a table source for a CSV or XLSX path
func (c *Container) FileSource(path string) ports.TableSource {
	return excel.NewDataReader(path, excel.WithSheet(c.Config.Data.Sheet), excel.WithLogger(c.Logger))
}

// QuerySource returns a table source over the configured SQL query.
// It requires InitWithDatabase.
func (c *Container) QuerySource(query string) (ports.TableSource, error) {
	if c.DB == nil {
		return nil, fmt.Errorf("a database connection is required to run %q", query)
	}
	return postgres.NewQuerySource(c.DB, query), nil
}

// PlotPath returns the biplot path for an output base name
func (c *Container) PlotPath(base string) string {
	return filepath.Join(c.Config.Output.Dir, base+"."+c.Renderer.Format)
}

// OutputBase derives an output file stem from a source name
func OutputBase(source string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "mca"
	}
	return base
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
