package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"election-service/internal/config"
	"election-service/internal/factory"
	"election-service/internal/handler"
	"election-service/internal/util"
)

const shutdownTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	f, err := factory.NewFactory(ctx)
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	cfg := f.Config()
	router := setupRouter(f)

	servers := buildServers(f, cfg, router)
	if err := run(ctx, cfg, servers); err != nil {
		util.Error("Server stopped with error", util.ErrorField(err))
	}
}

func setupRouter(f *factory.Factory) http.Handler {
	cfg := f.Config()
	voters := f.VoterService()

	return handler.NewRouter(
		handler.NewVoterHandler(voters, util.Get()),
		handler.NewAdminHandler(voters, util.Get()),
		handler.RouterOptions{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RequireHTTPS:   cfg.Server.EnableTLS,
			HealthChecks:   f.HealthChecks(),
		},
		util.Get(),
	)
}

// buildServers returns the API server and, for production AutoCert, the port 80
// server answering ACME challenges.
func buildServers(f *factory.Factory, cfg *config.Config, router http.Handler) []*http.Server {
	api := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if !cfg.Server.EnableTLS {
		util.Warn("Starting HTTP server - TLS is disabled",
			util.String("environment", cfg.Environment),
			util.Int("port", cfg.Server.Port))
		return []*http.Server{api}
	}

	tlsManager := f.TLSManager()
	api.Addr = fmt.Sprintf(":%d", cfg.Server.TLSPort)
	api.TLSConfig = tlsManager.GetTLSConfig()

	if cfg.IsProduction() && cfg.Server.AutoCert {
		autoCertManager := tlsManager.GetAutocertManager()
		if autoCertManager == nil {
			util.Fatal("AutoCert manager is not available in production")
		}
		api.Addr = ":443"
		challenge := &http.Server{
			Addr:              ":80",
			Handler:           autoCertManager.HTTPHandler(nil),
			ReadHeaderTimeout: 5 * time.Second,
		}
		return []*http.Server{api, challenge}
	}

	util.Info("Starting HTTPS server",
		util.String("environment", cfg.Environment),
		util.Int("port", cfg.Server.TLSPort),
		util.Bool("auto_cert", cfg.Server.AutoCert))
	return []*http.Server{api}
}

// run serves until ctx is cancelled or a listener fails, then shuts every server down.
func run(ctx context.Context, cfg *config.Config, servers []*http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			util.Info("Listening", util.String("address", srv.Addr))
			var err error
			if srv.TLSConfig != nil {
				err = srv.ListenAndServeTLS("", "")
			} else {
				err = srv.ListenAndServe()
			}
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		util.Info("Shutting down servers", util.String("environment", cfg.Environment))

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
