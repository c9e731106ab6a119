package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mattsolo1/grove-playground/cmd/config"
	"github.com/mattsolo1/grove-playground/internal/server"
	"github.com/mattsolo1/grove-playground/pkg/logging"
	"github.com/mattsolo1/grove-playground/pkg/service"
)

var serveLog = logging.NewLogger("grove-playground.cmd.serve")

// errShutdown marks a signal-driven exit so the group does not report it.
var errShutdown = errors.New("shutdown requested")

func NewServeCmd(svc **service.Service, cfg **config.Config) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editing API over HTTP",
		Long: `Start the HTTP API for the active workspace.

Edits sent to PUT /api/v1/files/:id are buffered and saved after the
autosave window. On SIGINT or SIGTERM the server stops accepting requests
and pending edits are flushed before exit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			c := *cfg

			serverCfg := c.Server
			if cmd.Flags().Changed("port") {
				serverCfg.Port = port
			}

			srv := server.New(s, server.Config{
				Addr:           serverCfg.Addr(),
				AllowedOrigins: strings.Join(serverCfg.AllowedOrigins, ","),
			}, serveLog)

			g, gctx := errgroup.WithContext(cmd.Context())

			g.Go(srv.Listen)

			g.Go(func() error {
				wait := gfshutdown.GracefulShutdown(
					context.Background(),
					serverCfg.ShutdownTimeout,
					map[string]gfshutdown.Operation{
						"playground": func(ctx context.Context) error {
							serveLog.Info("Graceful shutdown initiated")
							if err := srv.Shutdown(ctx); err != nil {
								return err
							}
							return flushOnExit(ctx, s)
						},
					},
				)

				select {
				case code := <-wait:
					if code != 0 {
						return fmt.Errorf("shutdown finished with exit code %d", code)
					}
					return errShutdown
				case <-gctx.Done():
					return nil
				}
			})

			fmt.Fprintf(cmd.OutOrStdout(), "Serving workspace %s on http://%s\n", s.Active(), serverCfg.Addr())
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to shutdown")

			if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from server.port)")
	return cmd
}

// flushOnExit commits pending edits and reports any that could not be saved.
func flushOnExit(ctx context.Context, s *service.Service) error {
	var errs []error
	for _, res := range s.Flush(ctx) {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", res.FileID, res.Err))
		}
	}
	return errors.Join(errs...)
}
