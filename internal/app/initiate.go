package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/mailbite/internal/campaign/outbound/llm"
	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/config"
	"github.com/shandysiswandi/mailbite/internal/pkg/goroutine"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/jwt"
	"github.com/shandysiswandi/mailbite/internal/pkg/kvstore"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"github.com/shandysiswandi/mailbite/internal/pkg/messaging"
	"github.com/shandysiswandi/mailbite/internal/pkg/router"
	"github.com/shandysiswandi/mailbite/internal/pkg/session"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
	"github.com/shandysiswandi/mailbite/internal/pkg/validator"
	"google.golang.org/api/option"
)

// startupBackoff retries a dependency for at most ~10s while the process boots.
func startupBackoff() retry.Backoff {
	b := retry.NewFibonacci(200 * time.Millisecond)
	b = retry.WithCappedDuration(2*time.Second, b)
	return retry.WithMaxDuration(10*time.Second, b)
}

func (a *App) initConfig() {
	config.LoadDotEnv(".env")

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		LogLevel:         a.config.GetString("instrument.log_level"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	snow, err := uid.NewSnowflake()
	if err != nil {
		slog.Error("failed to init uid number snowflake", "error", err)
		os.Exit(1)
	}
	a.uid = snow
}

// initAuth enables bearer identity when a shared secret is configured.
func (a *App) initAuth() {
	secret := a.config.GetString("auth.jwt.secret")
	if secret == "" {
		if a.config.GetBool("auth.required") {
			slog.Error("failed to init auth, auth.required needs auth.jwt.secret")
			os.Exit(1)
		}
		slog.Info("bearer identity disabled, sessions are anonymous")
		return
	}

	verifier, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(secret),
		Issuer:    a.config.GetString("auth.jwt.issuer"),
		Audiences: a.config.GetArray("auth.jwt.audiences"),
		Clock:     a.clock,
		UUID:      a.uuid,
	})
	if err != nil {
		slog.Error("failed to init jwt verifier", "error", err)
		os.Exit(1)
	}
	a.jwt = verifier
}

func (a *App) initSession() {
	cookie, err := session.New(session.Config{
		Name:   a.config.GetString("session.cookie_name"),
		Secret: []byte(a.config.GetString("session.secret")),
		TTL:    a.config.GetMinute("session.ttl_minutes"),
		Secure: a.config.GetBool("session.secure"),
		Clock:  a.clock,
	})
	if err != nil {
		slog.Error("failed to init session cookie", "error", err)
		os.Exit(1)
	}
	a.session = cookie
}

func (a *App) initRecipientStore() {
	driver := strings.TrimSpace(a.config.GetString("recipients.driver"))

	opts := kvstore.FactoryOptions{
		Memory: kvstore.MemoryConfig{
			Capacity: a.config.GetInt("recipients.capacity"),
			Clock:    a.clock,
		},
	}

	if driver == kvstore.DriverRedis {
		opt, err := redis.ParseURL(a.config.GetString("redis.url"))
		if err != nil {
			slog.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}

		rdb := redis.NewClient(opt)
		if err := retry.Do(a.ctx, startupBackoff(), func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				slog.Warn("redis not ready, retrying", "error", err)
				return retry.RetryableError(err)
			}
			return nil
		}); err != nil {
			slog.Error("failed to init redis", "error", err)
			os.Exit(1)
		}

		opts.Redis = kvstore.RedisConfig{
			Client: rdb,
			Prefix: a.config.GetString("recipients.redis_prefix"),
		}
	}

	mapping, err := kvstore.NewFromDriver(driver, opts)
	if err != nil {
		slog.Error("failed to init recipient store", "error", err, "driver", driver)
		os.Exit(1)
	}

	if mem, ok := mapping.(*kvstore.Memory); ok {
		if err := mem.RegisterMetrics(a.ins.Meter("recipients.store")); err != nil {
			slog.Warn("failed to register recipient store metrics", "error", err)
		}

		interval := a.config.GetSecond("recipients.sweep_interval_seconds")
		if err := a.goroutine.Go(a.ctx, "recipients-sweeper", func(ctx context.Context) error {
			return mem.Run(ctx, interval)
		}); err != nil {
			slog.Error("failed to start recipient sweeper", "error", err)
			os.Exit(1)
		}
	}

	a.recipients = mapping
}

func (a *App) initMail() {
	mail, err := mail.NewSMTP(mail.SMTPConfig{
		Host:     a.config.GetString("mail.host"),
		Port:     a.config.GetInt("mail.port"),
		Username: a.config.GetString("mail.username"),
		Password: a.config.GetString("mail.password"),
		From:     a.config.GetString("mail.from"),
		TLSMode:  a.config.GetString("mail.tls_mode"),
		Timeout:  a.config.GetSecond("mail.timeout_seconds"),
		Clock:    a.clock,
		UUID:     a.uuid,
	})
	if err != nil {
		slog.Error("failed to init mail", "error", err)
		os.Exit(1)
	}

	a.mail = mail
}

func (a *App) initGenerator() {
	gen, err := llm.New(llm.Config{
		BaseURL: a.config.GetString("generator.base_url"),
		APIKey:  a.config.GetString("generator.api_key"),
		Model:   a.config.GetString("generator.model"),
		Timeout: a.config.GetSecond("generator.timeout_seconds"),
	}, a.ins)
	if err != nil {
		slog.Error("failed to init generator", "error", err)
		os.Exit(1)
	}

	a.generator = gen
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")

	var pubsubOptions []option.ClientOption
	if v := strings.TrimSpace(a.config.GetString("messaging.pubsub.endpoint")); v != "" {
		pubsubOptions = append(pubsubOptions, option.WithEndpoint(v))
	}
	if a.config.GetBool("messaging.pubsub.without_auth") {
		pubsubOptions = append(pubsubOptions, option.WithoutAuthentication())
	}

	opts := messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			Addr: a.config.GetString("messaging.nsq.addr"),
			Config: func() *nsq.Config {
				cfg := nsq.NewConfig()
				cfg.DialTimeout = a.config.GetSecond("messaging.nsq.dial_timeout_seconds")
				cfg.ReadTimeout = a.config.GetSecond("messaging.nsq.read_timeout_seconds")
				cfg.WriteTimeout = a.config.GetSecond("messaging.nsq.write_timeout_seconds")
				return cfg
			}(),
		},
		Kafka: messaging.KafkaConfig{
			Brokers: a.config.GetArray("messaging.kafka.brokers"),
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
			},
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:     a.config.GetString("messaging.pubsub.project_id"),
			ClientOptions: pubsubOptions,
		},
	}

	var client messaging.Publisher
	err := retry.Do(a.ctx, startupBackoff(), func(ctx context.Context) error {
		c, err := messaging.NewFromDriver(ctx, driver, opts)
		if err != nil {
			if errors.Is(err, messaging.ErrUnknownDriver) {
				return err
			}
			slog.Warn("messaging not ready, retrying", "driver", driver, "error", err)
			return retry.RetryableError(err)
		}
		client = c
		return nil
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		JWT:        a.jwt,
		Instrument: a.ins,
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Messaging",
			fn: func(context.Context) error {
				return a.messaging.Close()
			},
		},
		{
			name: "Mail",
			fn: func(context.Context) error {
				return a.mail.Close()
			},
		},
		{
			// Closes the Redis client too when the redis driver is used.
			name: "RecipientStore",
			fn: func(context.Context) error {
				return a.recipients.Close()
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
		{
			// Last, so the shutdown logs above are still exported.
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
	}
}
