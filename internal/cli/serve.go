// serve.go implements "hone serve", the HTTP surface over sessions.
package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/berth-dev/hone/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session API over HTTP",
	Long: `Serve the session API (create, get, resume, advance, chat, list,
delete) over HTTP. Set server.api_key or HONE_API_KEY to require a bearer
token on /sessions.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var addrFlag string

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup(setupOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	addr := addrFlag
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(a.orch, a.cfg.Server.APIKey, a.logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // advance may wait on several provider calls
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("hone server starting", "addr", addr, "policy", a.cfg.Policy.Kind, "store", a.cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
	}

	a.logger.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Error("shutdown error", "error", err)
	}
	a.logger.Info("server stopped")
	return nil
}
