package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"ga4gh/loader/contexts"
	gam "ga4gh/loader/middleware"
	"ga4gh/loader/models"
	serviceInfo "ga4gh/loader/models/constants/service-info"
	"ga4gh/loader/models/indexes"
	exportMvc "ga4gh/loader/mvc/export"
	ingestionMvc "ga4gh/loader/mvc/ingestion"
	serviceInfoMvc "ga4gh/loader/mvc/service-info"
	esRepo "ga4gh/loader/repositories/elasticsearch"
	"ga4gh/loader/services"
	"ga4gh/loader/services/metadata"
	"ga4gh/loader/services/monitor"
	"ga4gh/loader/utils"
	"ga4gh/loader/workflows"

	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	yaml "gopkg.in/yaml.v2"
)

func main() {
	app := &cli.App{
		Name:    string(serviceInfo.SERVICE_ARTIFACT),
		Usage:   string(serviceInfo.SERVICE_DESCRIPTION),
		Version: string(serviceInfo.SERVICE_VERSION),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "yaml configuration file, applied over the environment",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve the ingestion and export api",
				Action: serve,
			},
			{
				Name:      "load",
				Usage:     "ingest vcf files or directories of vcf files",
				ArgsUsage: "<path>...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "manifest",
						Usage: "portal manifest holding the metadata of every file",
					},
					&cli.StringFlag{
						Name:  "workflow",
						Usage: "workflow of every file, overriding their metadata",
					},
				},
				Action: load,
			},
			{
				Name:   "export",
				Usage:  "write the stores to elasticsearch",
				Action: export,
			},
			{
				Name:  "purge",
				Usage: "empty the stores",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "indices",
						Usage: "also delete the elasticsearch indices",
					},
				},
				Action: purge,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Error("loader failed")
		os.Exit(1)
	}
}

// loadConfig gathers environment variables, then applies the config file
// if one was given.
func loadConfig(c *cli.Context) (*models.Config, error) {
	var cfg models.Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if path := c.String("config"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	logrus.WithFields(logrus.Fields{
		"debug":             cfg.Debug,
		"vcfPath":           cfg.Api.VcfPath,
		"storeType":         cfg.Store.Type,
		"storeDir":          cfg.Store.Dir,
		"elasticsearchUrl":  cfg.Elasticsearch.Url,
		"elasticsearchUser": cfg.Elasticsearch.Username,
		"port":              cfg.Api.Port,
	}).Info("using configuration")

	return &cfg, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	// Service Connections:
	// -- Elasticsearch (optional, only needed to export)
	var es *es7.Client
	if cfg.Elasticsearch.Url != "" {
		if es, err = utils.CreateEsConnection(cfg.Elasticsearch.Url, cfg.Elasticsearch.Username, cfg.Elasticsearch.Password); err != nil {
			return err
		}
	}

	// Service Singletons
	iz, err := services.NewIngestionService(cfg)
	if err != nil {
		return err
	}
	defer iz.Close()

	ms := monitor.NewMonitorService(iz, cfg)
	defer ms.Stop()

	// Instantiate Server
	e := echo.New()
	e.HideBanner = true

	// Configure Server
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST},
	}))

	// -- Override handlers with the loader context
	//		to be able to provide variables and global singletons
	e.Use(func(h echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &contexts.LoaderContext{
				Context:          c,
				Es7Client:        es,
				Config:           cfg,
				IngestionService: iz,
			}
			return h(cc)
		}
	})

	// Begin MVC Routes
	// -- Root
	e.GET("/", func(c echo.Context) error {
		logrus.Debug("root hit")
		return c.JSON(http.StatusOK, serviceInfo.SERVICE_WELCOME)
	})

	// -- Service Info
	e.GET("/service-info", serviceInfoMvc.GetServiceInfo)

	// -- Workflows
	e.GET("/workflows", func(c echo.Context) error {
		return c.JSON(http.StatusOK, workflows.WORKFLOW_INGESTION_SCHEMA)
	})

	// -- Ingestion
	e.GET("/ingestion/run", ingestionMvc.IngestionRun,
		// middleware
		gam.MandateFileNamesAttribute,
		gam.OptionalWorkflowAttribute)
	e.GET("/ingestion/requests", ingestionMvc.GetAllIngestionRequests)
	e.GET("/ingestion/stats", ingestionMvc.IngestionStats)

	// -- Export
	e.POST("/export/run", exportMvc.ExportRun)

	// -- Metrics
	e.GET("/metrics", echo.WrapHandler(ms.Metrics.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("server shutdown")
		}
	}()

	// Run
	if err := e.Start(fmt.Sprintf(":%s", cfg.Api.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func load(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("no vcf path given", 2)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	var manifest []models.FileMetadata
	if path := c.String("manifest"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if manifest, err = metadata.ParseManifest(data); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	files, err := collectVcfFiles(c.Args().Slice())
	if err != nil {
		return err
	}

	iz, err := services.NewIngestionService(cfg)
	if err != nil {
		return err
	}
	defer iz.Close()

	ms := monitor.NewMonitorService(iz, cfg)
	defer ms.Stop()

	// an interrupted load still checkpoints and closes the stores
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, path := range files {
		var meta models.FileMetadata
		if manifest != nil {
			meta, err = metadata.Lookup(manifest, path)
		} else {
			meta, err = metadata.ForVcf(path)
		}
		if err != nil {
			return err
		}
		if w := c.String("workflow"); w != "" {
			meta.Workflow = w
		}

		stats, err := iz.ProcessPath(ctx, path, meta)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logrus.WithFields(logrus.Fields{
			"file":        stats.Filename,
			"records":     stats.Records,
			"calls":       stats.Calls,
			"newVariants": stats.NewVariants,
		}).Info("file ingested")
	}

	stats := iz.Stats()
	logrus.WithFields(logrus.Fields{
		"variants":    stats.Variants,
		"calls":       stats.Calls,
		"variantSets": stats.VariantSets,
		"callSets":    stats.CallSets,
	}).Info("load complete")
	return nil
}

func export(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	es, err := utils.CreateEsConnection(cfg.Elasticsearch.Url, cfg.Elasticsearch.Username, cfg.Elasticsearch.Password)
	if err != nil {
		return err
	}

	iz, err := services.NewIngestionService(cfg)
	if err != nil {
		return err
	}
	defer iz.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := esRepo.EnsureIndices(ctx, es, indexes.Mappings); err != nil {
		return err
	}

	writer, err := esRepo.NewBulkWriter(es, cfg.Elasticsearch.BulkWorkers)
	if err != nil {
		return err
	}

	_, exportErr := iz.Export(ctx, writer)
	return errors.Join(exportErr, writer.Close(ctx))
}

func purge(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	iz, err := services.NewIngestionService(cfg)
	if err != nil {
		return err
	}
	iz.Purge()
	iz.Close()

	if !c.Bool("indices") {
		return nil
	}

	es, err := utils.CreateEsConnection(cfg.Elasticsearch.Url, cfg.Elasticsearch.Username, cfg.Elasticsearch.Password)
	if err != nil {
		return err
	}
	return esRepo.DeleteIndices(c.Context, es, indexes.VariantsIndex, indexes.VariantSetsIndex, indexes.CallSetsIndex)
}

// collectVcfFiles expands directories into the .vcf(.gz) files they hold,
// in lexical order.
func collectVcfFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		err = filepath.Walk(p, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && (strings.HasSuffix(path, ".vcf") || strings.HasSuffix(path, ".vcf.gz")) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
