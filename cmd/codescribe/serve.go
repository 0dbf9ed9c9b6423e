package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codescribe-ai/codescribe/pkg/datastore"
	"github.com/codescribe-ai/codescribe/pkg/datastore/postgres"
	"github.com/codescribe-ai/codescribe/pkg/interfaces"
	"github.com/codescribe-ai/codescribe/pkg/sandbox"
	"github.com/codescribe-ai/codescribe/pkg/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve starts the HTTP API. Clients upload a codebase archive to
/api/generate, poll job status via /api/jobs and fetch the produced files
or archive from /api/outputs. Generated programs can be executed
interactively through /api/executions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		defer app.shutdown(context.Background())

		store, err := newJobStore(app)
		if err != nil {
			return err
		}
		defer store.Close()

		manager := sandbox.NewManager(
			sandbox.WithManagerInterpreter(app.cfg.Sandbox.Interpreter),
			sandbox.WithManagerLogger(app.logger),
		)

		serverCfg := app.cfg.Server
		if servePort > 0 {
			serverCfg.Addr = fmt.Sprintf(":%d", servePort)
		}

		options := []server.Option{
			server.WithLogger(app.logger),
			server.WithJobStore(store),
			server.WithSandboxManager(manager),
			server.WithPipeline(app.pipeline()),
		}
		if app.cfg.Tracing.Enabled {
			options = append(options, server.WithTracing())
		}

		srv := server.New(serverCfg, options...)

		app.logger.Info(ctx, "Server starting", map[string]interface{}{
			"addr": serverCfg.Addr,
		})
		return srv.Run(ctx)
	},
}

// newJobStore builds the configured job store backend.
func newJobStore(app *app) (interfaces.JobStore, error) {
	switch app.cfg.Database.Backend {
	case "", "memory":
		return datastore.NewInMemoryStore(), nil
	case "postgres":
		return postgres.NewStore(app.cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unknown database backend %q", app.cfg.Database.Backend)
	}
}

// pipeline adapts the documentation and code generation flows to the
// server's job interface.
func (a *app) pipeline() server.PipelineFunc {
	return func(ctx context.Context, mode, inputDir, outputDir, problemStatement string) error {
		if mode == server.ModeCodeGeneration {
			return a.runCodeGeneration(ctx, inputDir, "", problemStatement, outputDir)
		}
		return a.runDocumentation(ctx, inputDir, outputDir)
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides the configured address)")
	rootCmd.AddCommand(serveCmd)
}
