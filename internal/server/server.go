package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/curator/config"
	"github.com/mohammad-safakhou/curator/internal/curation"
	"github.com/mohammad-safakhou/curator/internal/transport"
	"github.com/mohammad-safakhou/curator/models"
	"github.com/mohammad-safakhou/curator/news/memeapi"
	"github.com/mohammad-safakhou/curator/repository"
)

// Deps are the collaborators NewRouter mounts.
type Deps struct {
	Manager         SessionManager
	Acks            Acknowledger
	Notifier        curation.Notifier
	Requester       models.Requester
	DefaultCategory string
	Debug           bool
	Secret          []byte
	Metrics         http.Handler
}

// NewRouter builds the echo instance with every route mounted.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Debug = d.Debug
	e.Use(middleware.Recover())
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	auth := OperatorAuth(d.Secret, d.Requester.OperatorID)
	api := e.Group("/api")
	sh := &SessionsHandler{Manager: d.Manager, Notifier: d.Notifier, Requester: d.Requester, DefaultCategory: d.DefaultCategory}
	sh.Register(api.Group("/sessions"), auth)
	oh := &OperatorHandler{Acks: d.Acks}
	oh.Register(api.Group("/operator"), auth)
	return e
}

// outbound sends through a webhook when one is configured and to the log otherwise.
type outbound interface {
	curation.Notifier
	curation.Publisher
}

func newOutbound(webhookURL, username string, timeout time.Duration, logPrefix string) outbound {
	if webhookURL == "" {
		return transport.NewLogSink(logPrefix)
	}
	return transport.NewWebhook(webhookURL, username, timeout)
}

func newSource(cfg config.SourceConfig) *memeapi.Client {
	c := memeapi.New(cfg.Endpoint, cfg.Timeout)
	c.AllowNSFW = cfg.AllowNSFW
	return c
}

// Run wires the curation bot from cfg and serves until SIGINT/SIGTERM.
func Run(cfg *config.Config, addr string) error {
	ctx := context.Background()
	secret := cfg.Server.JWTSecret
	if secret == "" {
		return fmt.Errorf("jwt secret not configured (server.jwt_secret)")
	}

	loc, err := time.LoadLocation(cfg.Curation.DedupTimezone)
	if err != nil {
		return fmt.Errorf("dedup timezone: %w", err)
	}
	dedup, err := repository.NewDedupStore(ctx, cfg.Storage, loc)
	if err != nil {
		return err
	}

	var metrics *curation.Metrics
	var metricsHandler http.Handler
	if cfg.Telemetry.Enabled {
		metrics = curation.NewMetrics(prometheus.DefaultRegisterer)
		metricsHandler = promhttp.Handler()
	}

	requester := models.Requester{OperatorID: cfg.Operator.ID, ChannelID: cfg.Operator.ChannelID}
	notifier := newOutbound(cfg.Operator.WebhookURL, cfg.Operator.Username, cfg.Operator.Timeout, "[NOTIFY] ")
	publisher := newOutbound(cfg.Destination.WebhookURL, cfg.Destination.Username, cfg.Destination.Timeout, "[PUBLISH] ")
	hub := transport.NewHub()
	if !cfg.General.Debug {
		// unmatched replies and gestures are routine chatter outside debug
		hub.Logger = log.New(io.Discard, "", 0)
	}

	fetcher := curation.NewBatchFetcher(newSource(cfg.Source), dedup, cfg.Curation.RetryMultiplier)
	fetcher.Metrics = metrics
	mgr := curation.NewManager(fetcher, curation.NewArbiter(hub, cfg.Curation.Gestures), notifier, publisher, dedup, curation.Settings{
		BatchSize:       cfg.Curation.BatchSize,
		Timeout:         cfg.Curation.Timeout,
		RepromptTimeout: cfg.Curation.RepromptTimeout,
		PublishTimeout:  cfg.Curation.PublishTimeout,
		Footer:          cfg.Destination.Footer,
	})
	mgr.Metrics = metrics
	defer mgr.Close()

	e := NewRouter(Deps{
		Manager:         mgr,
		Acks:            hub,
		Notifier:        notifier,
		Requester:       requester,
		DefaultCategory: cfg.Schedule.Category,
		Debug:           cfg.General.Debug,
		Secret:          []byte(secret),
		Metrics:         metricsHandler,
	})

	if cfg.Schedule.Enabled {
		sched, err := NewScheduler(cfg.Schedule.Cron, cfg.Schedule.Timezone, mgr, notifier, requester)
		if err != nil {
			return err
		}
		sched.Category = cfg.Schedule.Category
		if sched.Locker, err = repository.NewLocker(ctx, cfg.Storage); err != nil {
			return err
		}
		sched.Start()
		defer close(sched.Stop)
	}

	if addr == "" {
		addr = cfg.General.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":10001"
		}
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	select {
	case err := <-errc:
		return err
	case sig := <-sigs:
		log.Printf("received %s, shutting down", sig)
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
