package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	gosundheit "github.com/AppsFlyer/go-sundheit"
	"github.com/AppsFlyer/go-sundheit/checks"
	gosundheithttp "github.com/AppsFlyer/go-sundheit/http"
	"github.com/jonboulle/clockwork"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/exampleauth/authd/internal/authgate"
	"github.com/exampleauth/authd/internal/authtoken"
	authdconfig "github.com/exampleauth/authd/internal/config"
	"github.com/exampleauth/authd/internal/frontendurl"
	"github.com/exampleauth/authd/internal/handler"
	"github.com/exampleauth/authd/internal/mailer"
	"github.com/exampleauth/authd/internal/metrics"
	"github.com/exampleauth/authd/internal/oidcproc"
	"github.com/exampleauth/authd/internal/openidsession"
	"github.com/exampleauth/authd/internal/routes"
	"github.com/exampleauth/authd/internal/store"
	"github.com/exampleauth/authd/internal/store/memstore"
	"github.com/exampleauth/authd/internal/store/sqlstore"
	"github.com/exampleauth/authd/pkg/log"
)

type serveOptions struct {
	config string
}

func commandServe() *cobra.Command {
	options := serveOptions{}

	cmd := &cobra.Command{
		Use:     "serve [flags] [config file]",
		Short:   "Launch authd",
		Example: "authd serve config.yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			options.config = args[0]
			return runServe(options)
		},
	}
	return cmd
}

type serverRunner struct {
	name   string
	srv    *http.Server
	logger log.Logger
}

func newServerRunner(name string, srv *http.Server, logger log.Logger) *serverRunner {
	return &serverRunner{name: name, srv: srv, logger: logger}
}

func (s *serverRunner) RunAndShutdownGracefully(gr *run.Group) error {
	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening (%s) on %s: %v", s.name, s.srv.Addr, err)
	}

	gr.Add(func() error {
		s.logger.Infof("listening (%s) on %s", s.name, s.srv.Addr)
		return s.srv.Serve(listener)
	}, func(err error) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		s.logger.Debugf("starting graceful shutdown (%s)", s.name)
		if err := s.srv.Shutdown(ctx); err != nil {
			s.logger.Errorf("graceful shutdown (%s): %v", s.name, err)
		}
	})
	return nil
}

func openUserStore(cfg authdconfig.Store, logger log.Logger) (store.UserStore, error) {
	switch cfg.Type {
	case "memory":
		return memstore.New(), nil
	case "sqlite":
		return sqlstore.Open(cfg.File, logger)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

func openMailer(cfg authdconfig.Mailer, urls frontendurl.Builder, logger log.Logger, m *metrics.Metrics) (mailer.Mailer, error) {
	switch cfg.Type {
	case "dev":
		return mailer.DevMailer{URLs: urls, Logger: logger, Metrics: m}, nil
	case "relay":
		return mailer.RelayMailer{
			URLs: urls,
			Config: mailer.RelayConfig{
				Endpoint: cfg.Relay.Endpoint,
				APIKey:   cfg.Relay.APIKey,
				Sender:   cfg.Relay.Sender,
				DKIM: mailer.DKIM{
					Domain:     cfg.Relay.DKIM.Domain,
					Selector:   cfg.Relay.DKIM.Selector,
					PrivateKey: cfg.Relay.DKIM.PrivateKey,
				},
			},
			Metrics: m,
		}, nil
	default:
		return nil, fmt.Errorf("unknown mailer type %q", cfg.Type)
	}
}

func runServe(options serveOptions) error {
	configData, err := os.ReadFile(options.config)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %v", options.config, err)
	}

	c, err := authdconfig.Load(configData, os.Getenv)
	if err != nil {
		return err
	}

	logger, err := newLogger(c.Logger.Level, c.Logger.Format)
	if err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}
	logger.Infof("config store: %s", c.Store.Type)
	logger.Infof("config mailer: %s", c.Mailer.Type)

	userStore, err := openUserStore(c.Store, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %v", err)
	}
	defer userStore.Close()

	urls := frontendurl.Builder{Base: c.Frontend.BaseURL}

	prometheusRegistry := prometheus.NewRegistry()
	if err := prometheusRegistry.Register(prometheus.NewGoCollector()); err != nil {
		return fmt.Errorf("failed to register go runtime metrics: %v", err)
	}
	if err := prometheusRegistry.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{})); err != nil {
		return fmt.Errorf("failed to register process metrics: %v", err)
	}
	appMetrics, err := metrics.New(prometheusRegistry)
	if err != nil {
		return fmt.Errorf("failed to register application metrics: %v", err)
	}

	mlr, err := openMailer(c.Mailer, urls, logger, appMetrics)
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %v", err)
	}

	clock := clockwork.NewRealClock()
	tokens := authtoken.NewRegistry(clock)
	tokens.Metrics = appMetrics
	sessions := openidsession.NewRegistry(clock)
	gate := authgate.New(tokens, userStore, logger)
	gate.Metrics = appMetrics

	procCfg, err := c.OIDCProcessorConfig()
	if err != nil {
		return err
	}
	var oidc *oidcproc.Processor
	if len(procCfg.Providers) > 0 {
		redirectURI := func(p openidsession.Provider) string {
			return fmt.Sprintf("%s/auth/openid-access-token-hook/%s", urls.Base, p)
		}
		oidc, err = oidcproc.New(context.Background(), procCfg, sessions, redirectURI, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize oidc processor: %v", err)
		}
	} else {
		oidc = &oidcproc.Processor{}
	}

	deps := &handler.Deps{
		Users:    userStore,
		Tokens:   tokens,
		Sessions: sessions,
		OIDC:     oidc,
		Mailer:   mlr,
		Gate:     gate,
		URLs:     urls,
		Logger:   logger,
		Prod:     c.Prod,
	}

	router := routes.New(deps, routes.CORSConfig{AllowedOrigins: c.Web.AllowedOrigins})

	healthChecker := gosundheit.New()
	healthChecker.RegisterCheck(&gosundheit.Config{
		Check: &checks.CustomCheck{
			CheckName: "store",
			CheckFunc: store.NewCustomHealthCheckFunc(userStore),
		},
		ExecutionPeriod:  15 * time.Second,
		InitiallyPassing: true,
	})

	telemetryRouter := http.NewServeMux()
	telemetryRouter.Handle("/metrics", promhttp.HandlerFor(prometheusRegistry, promhttp.HandlerOpts{}))
	telemetryRouter.Handle("/healthz", gosundheithttp.HandleHealthJSON(healthChecker))

	var gr run.Group
	httpSrv := &http.Server{Addr: c.Web.Addr, Handler: router}
	defer httpSrv.Close()
	if err := newServerRunner("http", httpSrv, logger).RunAndShutdownGracefully(&gr); err != nil {
		return err
	}

	telemetrySrv := &http.Server{Addr: c.Telemetry.Addr, Handler: telemetryRouter}
	defer telemetrySrv.Close()
	if err := newServerRunner("http/telemetry", telemetrySrv, logger).RunAndShutdownGracefully(&gr); err != nil {
		return err
	}

	gr.Add(run.SignalHandler(context.Background(), os.Interrupt, syscall.SIGTERM))
	if err := gr.Run(); err != nil {
		if _, ok := err.(run.SignalError); !ok {
			return fmt.Errorf("run groups: %w", err)
		}
		logger.Infof("%v, shutdown now", err)
	}
	return nil
}
