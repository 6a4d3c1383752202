/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/nats-io/nats.go"

	"github.com/Seednode/simon/internal/bus"
	"github.com/Seednode/simon/internal/device"
	"github.com/Seednode/simon/internal/game"
	"github.com/Seednode/simon/internal/gateway"
	"github.com/Seednode/simon/internal/solo"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second

	// Socket.IO long-polling holds responses open for up to its ping interval.
	writeTimeout time.Duration = time.Minute
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("simon v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Version page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// connectBus starts the embedded broker or dials an external one. Both
// return values are nil when no bus is configured.
func connectBus(cfg *Config) (*nats.Conn, func(), error) {
	switch {
	case cfg.natsEmbedded:
		srv, err := cfg.buildBusServer()
		if err != nil {
			return nil, nil, fmt.Errorf("building nats server: %w", err)
		}
		if err := srv.Run(); err != nil {
			return nil, nil, fmt.Errorf("starting nats server: %w", err)
		}

		logf(cfg, "BUS: Embedded nats listening on %s", srv.ClientURL())

		return srv.Conn(), srv.Shutdown, nil
	case cfg.natsURL != "":
		conn, err := bus.Connect(cfg.natsURL)
		if err != nil {
			return nil, nil, err
		}

		logf(cfg, "BUS: Connected to %s", cfg.natsURL)

		return conn, conn.Close, nil
	default:
		return nil, func() {}, nil
	}
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logf(cfg, "START: simon v%s", releaseVersion)

	conn, closeBus, err := connectBus(cfg)
	if err != nil {
		return err
	}
	defer closeBus()

	if cfg.responder {
		led, err := cfg.buildLED()
		if err != nil {
			return fmt.Errorf("building responder fixture: %w", err)
		}

		responder := device.NewResponder(conn, cfg.natsSubject, device.NewSerialized(led), logger(cfg))
		go func() {
			if err := responder.Start(ctx); err != nil {
				fmt.Printf("%s | ERROR: %v\n", time.Now().Format(logDate), err)
			}
		}()

		logf(cfg, "DEVICE: Answering display requests on %s.%s", cfg.natsSubject, device.PlaySubject)
	}

	dev, err := cfg.buildDevice(conn)
	if err != nil {
		return err
	}

	profile := cfg.gameProfile()

	logf(cfg, "GAMES: Using %q difficulty, %d levels, %s fixture", profile.Name, profile.MaxLevel, cfg.device)

	ws := gateway.NewWebSocket(logger(cfg))
	sio := gateway.NewSocketIO(logger(cfg))

	opts := []game.Option{
		game.WithProfile(profile),
		game.WithStartDelay(cfg.startDelay),
		game.WithRoundDelay(cfg.roundDelay),
		game.WithDefaultRoom(cfg.defaultRoom),
		game.WithGenerator(cfg.generator()),
		game.WithLogf(logger(cfg)),
	}
	if conn != nil {
		opts = append(opts, game.WithObserver(bus.NewPublisher(conn, cfg.natsSubject, logger(cfg))))
	}

	coord := game.NewCoordinator(game.NewRegistry(), game.NewSessions(), game.Gateways{ws, sio}, dev, opts...)

	go coord.RunReaper(ctx, cfg.roomTimeout)

	store := solo.NewStore(ctx, dev, coord,
		solo.WithTable(profile.Table),
		solo.WithDelay(cfg.startDelay),
		solo.WithGenerator(cfg.generator()),
		solo.WithLogf(logger(cfg)),
	)

	go store.RunReaper(ctx, cfg.visitorTimeout)

	mux := httprouter.New()

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      writeTimeout,
	}

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, newPage("Server Error", "An error has occurred. Please try again."))
	}

	errs := make(chan error, 64)
	go func() {
		for err := range errs {
			logf(cfg, "ERROR: %v", err)
		}
	}()

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	mux.GET(cfg.prefix+"/", serveHomePage(cfg, coord.Rooms(), errs))

	mux.GET(cfg.prefix+"/favicons/*favicon", serveFavicons(cfg, errs))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	registerSolo(cfg, mux, store, errs)

	registerMultiplayer(cfg, mux, coord, ws, sio, errs)

	go func() {
		var err error
		logf(cfg, "SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("%s | ERROR: %v\n", time.Now().Format(logDate), err)
		}
	}()

	<-ctx.Done()

	logf(cfg, "SERVE: Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	ws.Close()
	sio.Close()
	coord.Close()
	store.Wait()

	return nil
}
