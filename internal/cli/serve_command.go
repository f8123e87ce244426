package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/treefix50/recapadmin/internal/server"
)

const sessionCleanupInterval = time.Hour

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addrFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				addr := svc.cfg.Server.Addr
				if addrFlag != "" {
					addr = addrFlag
				}

				password, err := svc.auth.InitializeAdmin(cmd.Context(), svc.cfg.Auth.AdminEmail)
				if err != nil {
					return fmt.Errorf("initialize admin account: %w", err)
				}
				if password != "" {
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "Created admin account %s\n", svc.cfg.Auth.AdminEmail)
					fmt.Fprintf(out, "Password: %s\n", password)
					fmt.Fprintln(out, "Store it now; it is not shown again.")
				}

				srv := server.New(server.Options{
					Addr:            addr,
					CORS:            svc.cfg.Server.CORS,
					LoginInterval:   svc.cfg.LoginInterval(),
					ShutdownTimeout: svc.cfg.ShutdownGrace(),
				}, server.Deps{
					Catalog:  svc.catalog,
					Importer: svc.importer,
					Reports:  svc.reports,
					Auth:     svc.auth,
					Logger:   svc.log,
				})

				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				go cleanupSessions(runCtx, svc)

				errCh := make(chan error, 1)
				go func() { errCh <- srv.Start() }()
				svc.log.Info("recapadmin listening", zap.String("addr", addr), zap.String("db", svc.cfg.Storage.Path))

				select {
				case err := <-errCh:
					if errors.Is(err, http.ErrServerClosed) {
						return nil
					}
					return err
				case <-runCtx.Done():
					svc.log.Info("shutting down")
					return srv.Close()
				}
			})
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (overrides the configuration)")
	return cmd
}

func cleanupSessions(ctx context.Context, svc *services) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.auth.CleanupExpiredSessions(ctx); err != nil {
				svc.log.Warn("session cleanup failed", zap.Error(err))
			}
		}
	}
}
