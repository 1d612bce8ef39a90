package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	varycache "github.com/vary-cache/vary-cache"
	"github.com/vary-cache/vary-cache/cache"
)

var (
	// CLI flags
	portFlag           int
	configFlag         string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.IntVar(&portFlag, "port", 8080, "Port to listen on")
	flag.StringVar(&configFlag, "config", "", "Config file to use")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	var config Config
	if configFlag != "" {
		var err error
		if config, err = getConfig(configFlag); err != nil {
			log.Fatal().Err(err).Msg("Could not read config file")
		}
	}

	provider, err := createProvider(config)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create cache backend")
	}
	cache.Register(cache.DefaultAlias, provider)

	cacheConfig := varycache.Config{
		DefaultTTL: config.ttl(),
		KeyPrefix:  config.KeyPrefix,
		Timezone:   config.Timezone,
		Rules:      config.Rules,
		Metrics:    varycache.NewMetrics(prometheus.DefaultRegisterer),
	}
	if config.LocaleAware {
		cacheConfig.Locale = func(r *http.Request) string {
			return r.Header.Get("Accept-Language")
		}
	}
	if config.AnonymousOnly {
		cacheConfig.AnonymousOnly = true
		cacheConfig.Sessions = cookieSessions
	}

	pageCache, err := varycache.New(cacheConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create cache")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		r.Use(pageCache.Middleware)
		r.Get("/articles/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "max-age=60")
			fmt.Fprintf(w, "Article %s", chi.URLParam(r, "id"))
		})
		r.Get("/greeting", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Accept-Language")
			fmt.Fprintf(w, "Hello in %s", r.Header.Get("Accept-Language"))
		})
	})

	log.Info().Msgf("Serving demo site on port %v with %s backend", portFlag, backendName(config))
	if err := http.ListenAndServe(fmt.Sprintf(":%d", portFlag), r); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func createProvider(config Config) (cache.Provider, error) {
	ttl := config.ttl()
	if ttl == 0 {
		ttl = varycache.DefaultTTL
	}
	switch backendName(config) {
	case "sqlite":
		return cache.NewSQLite(config.DBFile, ttl)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		return cache.NewRedis(client, config.KeyPrefix, ttl), nil
	case "memory":
		size := config.MemorySize
		if size == 0 {
			size = 10_000
		}
		return cache.NewMemory(size, ttl)
	default:
		return nil, fmt.Errorf("unknown backend %q", config.Backend)
	}
}

func backendName(config Config) string {
	if config.Backend == "" {
		return "memory"
	}
	return config.Backend
}

// cookieSession marks every request carrying a session cookie as accessed,
// and treats the presence of an auth cookie as a logged-in identity.
// A real deployment plugs in its own session subsystem here.
type cookieSession struct {
	accessed      bool
	authenticated bool
}

func (s cookieSession) Accessed() bool      { return s.accessed }
func (s cookieSession) Authenticated() bool { return s.authenticated }

func cookieSessions(r *http.Request) varycache.Session {
	session, err := r.Cookie("session")
	if err != nil {
		return cookieSession{}
	}
	return cookieSession{accessed: true, authenticated: session.Value != ""}
}
