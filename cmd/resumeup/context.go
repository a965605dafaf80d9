package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"resumeup/internal/config"
	"resumeup/internal/delivery"
	"resumeup/internal/gateway"
	"resumeup/internal/ledger"
	"resumeup/internal/logging"
	"resumeup/internal/notifications"
	"resumeup/internal/registry"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		// A .env beside the working directory may carry the backend URL
		// override; absence is not an error.
		_ = godotenv.Load()

		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		logger, logErr := logging.NewFromConfig(cfg)
		if logErr != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger, nil
}

// appServices bundles the collaborators a command needs, with a single Close.
type appServices struct {
	cfg      *config.Config
	logger   *slog.Logger
	ledger   *ledger.Ledger
	registry *registry.Registry
	gateway  *gateway.Client
	notifier notifications.Service
}

func (s *appServices) Close() {
	if s.registry != nil {
		_ = s.registry.Close()
	}
	if s.ledger != nil {
		_ = s.ledger.Close()
	}
}

func (c *commandContext) openServices() (*appServices, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	creditLedger, err := ledger.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	reg, err := registry.Open(cfg)
	if err != nil {
		_ = creditLedger.Close()
		return nil, err
	}
	client, err := gateway.NewClient(cfg, logger)
	if err != nil {
		_ = reg.Close()
		_ = creditLedger.Close()
		return nil, err
	}

	return &appServices{
		cfg:      cfg,
		logger:   logger,
		ledger:   creditLedger,
		registry: reg,
		gateway:  client,
		notifier: notifications.NewService(cfg),
	}, nil
}

func (c *commandContext) withServices(fn func(*appServices) error) error {
	svc, err := c.openServices()
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

func (s *appServices) newDeliverer() (delivery.Deliverer, error) {
	return delivery.New(s.cfg, s.gateway, s.logger)
}
