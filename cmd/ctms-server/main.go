package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ctms/ctms/internal/config"
	"github.com/ctms/ctms/internal/domain/trial"
	"github.com/ctms/ctms/internal/platform/auth"
	"github.com/ctms/ctms/internal/platform/cdisc"
	"github.com/ctms/ctms/internal/platform/db"
	"github.com/ctms/ctms/internal/platform/fhir"
	"github.com/ctms/ctms/internal/platform/middleware"
	"github.com/ctms/ctms/internal/platform/sandbox"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ctms-server",
		Short: "Clinical trial data export API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run a CDISC export and write the artifact to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			studyArg, _ := cmd.Flags().GetString("study")
			formatArg, _ := cmd.Flags().GetString("format")
			domainsArg, _ := cmd.Flags().GetString("domains")
			withMetadata, _ := cmd.Flags().GetBool("metadata")
			withDefine, _ := cmd.Flags().GetBool("define")
			outDir, _ := cmd.Flags().GetString("out")

			studyID, err := uuid.Parse(studyArg)
			if err != nil {
				return fmt.Errorf("--study must be a study id: %w", err)
			}

			req := cdisc.ExportRequest{
				StudyID:          studyID,
				Format:           cdisc.Format(formatArg),
				IncludeMetadata:  withMetadata,
				IncludeDefineXML: withDefine,
			}
			if domainsArg != "" {
				for _, d := range strings.Split(domainsArg, ",") {
					req.Domains = append(req.Domains, cdisc.Domain(strings.ToUpper(strings.TrimSpace(d))))
				}
			}

			logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := trial.NewService(
				trial.NewStudyRepoPG(pool),
				trial.NewParticipantRepoPG(pool),
				trial.NewResponseRepoPG(pool),
			)
			runner := cdisc.NewRunner(svc, logger)

			export, err := runner.Run(ctx, req)
			if err != nil {
				return err
			}

			body, err := json.MarshalIndent(export.Artifact, "", "  ")
			if err != nil {
				return err
			}
			name := fmt.Sprintf("%s_%s_%s.json",
				strings.ReplaceAll(export.Study.Name, " ", "-"),
				req.Format, time.Now().UTC().Format("2006-01-02"))
			path := filepath.Join(outDir, name)
			if err := os.WriteFile(path, body, 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().String("study", "", "Study id to export")
	cmd.Flags().String("format", "SDTM", "Export format: ODM, SDTM or ADaM")
	cmd.Flags().String("domains", "", "Comma-separated domain codes (default DM,QS,DS)")
	cmd.Flags().Bool("metadata", false, "Attach the export summary block")
	cmd.Flags().Bool("define", false, "Attach Define.xml (SDTM only)")
	cmd.Flags().String("out", ".", "Output directory")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with synthetic demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			studies, _ := cmd.Flags().GetInt("studies")
			participants, _ := cmd.Flags().GetInt("participants")
			responses, _ := cmd.Flags().GetInt("responses")
			seed, _ := cmd.Flags().GetInt64("seed")

			logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := trial.NewService(
				trial.NewStudyRepoPG(pool),
				trial.NewParticipantRepoPG(pool),
				trial.NewResponseRepoPG(pool),
			)
			summary, err := sandbox.NewSeeder(svc, logger).Seed(ctx, sandbox.SeedConfig{
				StudyCount:              studies,
				ParticipantsPerStudy:    participants,
				ResponsesPerParticipant: responses,
				Seed:                    seed,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d studies, %d participants, %d responses (seed %d).\n",
				summary.Studies, summary.Participants, summary.Responses, summary.Seed)
			return nil
		},
	}
	cmd.Flags().Int("studies", 2, "Number of studies to create")
	cmd.Flags().Int("participants", 20, "Participants per study")
	cmd.Flags().Int("responses", 3, "Responses per participant")
	cmd.Flags().Int64("seed", 0, "Random seed (0 derives one from the clock)")
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeoutSec) * time.Second))
	e.Use(middleware.BodyLimit(1<<20, 16<<20))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware, scoped to the API surfaces below. Health checks and
	// the FHIR capability statement stay open: load balancers probe the
	// former and FHIR clients the latter before negotiating auth.
	var authn echo.MiddlewareFunc
	if cfg.IsDev() {
		authn = auth.DevAuthMiddleware()
	} else {
		authn = auth.JWTMiddleware(auth.JWTConfig{
			Secret: cfg.AuthSecret,
			Issuer: cfg.AuthIssuer,
		})
	}

	// API groups
	apiV1 := e.Group("/api/v1", authn)
	fhirGroup := e.Group("/fhir")

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Trial domain
	trialSvc := trial.NewService(
		trial.NewStudyRepoPG(pool),
		trial.NewParticipantRepoPG(pool),
		trial.NewResponseRepoPG(pool),
	)
	trial.NewHandler(trialSvc).RegisterRoutes(apiV1)

	// CDISC export pipeline
	runner := cdisc.NewRunner(trialSvc, logger)
	cdisc.NewHandler(runner, logger).RegisterRoutes(apiV1)

	// FHIR surface
	fhirClient := fhir.NewClient(time.Duration(cfg.FHIRTimeoutSec) * time.Second)
	fhirHandler := fhir.NewHandler(trialSvc, trialSvc.NewBundleImporter, fhirClient, logger)
	fhirHandler.RegisterRoutes(apiV1, fhirGroup, authn)

	// Synthetic data seeding, development only
	if cfg.IsDev() {
		seeder := sandbox.NewSeeder(trialSvc, logger)
		sandbox.NewHandler(seeder).RegisterRoutes(apiV1)
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
