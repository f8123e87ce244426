package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/treefix50/recapadmin/internal/auth"
	"github.com/treefix50/recapadmin/internal/catalog"
	"github.com/treefix50/recapadmin/internal/config"
	"github.com/treefix50/recapadmin/internal/docstore"
	"github.com/treefix50/recapadmin/internal/importer"
	"github.com/treefix50/recapadmin/internal/logging"
	"github.com/treefix50/recapadmin/internal/reports"
)

type commandContext struct {
	configFlag   *string
	dbFlag       *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, dbFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		dbFlag:       dbFlag,
		logLevelFlag: logLevelFlag,
	}
}

// ensureConfig loads the configuration once and applies flag overrides.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if db := flagValue(c.dbFlag); db != "" {
			abs, err := filepath.Abs(db)
			if err != nil {
				c.configErr = fmt.Errorf("resolve database path: %w", err)
				return
			}
			cfg.Storage.Path = abs
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// services bundles everything a command needs to work on the catalog.
type services struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *docstore.Store
	catalog  *catalog.Service
	importer *importer.Importer
	reports  *reports.Service
	auth     *auth.Manager
}

func (s *services) Close() error {
	_ = s.log.Sync()
	return s.store.Close()
}

// withServices opens the database and runs fn against it.
func (c *commandContext) withServices(cmd *cobra.Command, fn func(*services) error) error {
	svc, err := c.openServices(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

func (c *commandContext) openServices(cmd *cobra.Command) (*services, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(logging.Options{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	store, err := docstore.Open(cfg.Storage.Path, docstore.Options{
		BusyTimeout: time.Duration(cfg.Storage.BusyTimeoutMS) * time.Millisecond,
		Synchronous: cfg.Storage.Synchronous,
		CacheSize:   cfg.Storage.CacheSize,
		ReadOnly:    cfg.Storage.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Storage.Path, err)
	}

	series := catalog.NewService(store, log)
	return &services{
		cfg:      cfg,
		log:      log,
		store:    store,
		catalog:  series,
		importer: importer.New(series, log),
		reports:  reports.NewService(store, log),
		auth:     auth.NewManager(store, cfg.SessionDuration()).WithSessionCacheTTL(cfg.SessionCacheTTL()),
	}, nil
}

func flagValue(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
