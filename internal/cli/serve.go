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

	"content-eval/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the task catalog and start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.svc.Tasks.Load(ctx, a.cfg.TasksPath); err != nil {
			return err
		}

		if a.cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", a.cfg.Server.Port),
			Handler: router.SetupRouter(a.svc),
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("Server starting", zap.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("启动服务失败: %w", err)
			}
		case <-ctx.Done():
		}

		a.logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("关闭服务失败: %w", err)
		}
		a.logger.Info("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
