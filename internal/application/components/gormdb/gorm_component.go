package gormdb

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
	"github.com/grand-thief-cash/resurrector/internal/application/consts"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
)

// GormComponent manages one *gorm.DB per configured data source.
type GormComponent struct {
	*core.BaseComponent
	cfg *Config

	mu  sync.RWMutex
	dbs map[string]*gorm.DB
}

func NewGormComponent(cfg *Config) *GormComponent {
	return &GormComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_GORM, consts.COMPONENT_LOGGING),
		cfg:           cfg,
		dbs:           make(map[string]*gorm.DB),
	}
}

func (c *GormComponent) Start(ctx context.Context) error {
	if err := c.BaseComponent.Start(ctx); err != nil {
		return err
	}
	if c.cfg == nil || len(c.cfg.DataSources) == 0 {
		return fmt.Errorf("gorm: no data_sources configured")
	}
	for _, name := range c.names() {
		db, err := Open(ctx, c.cfg.DataSources[name], NewGormLogger(c.cfg.LogLevel, c.cfg.SlowThreshold))
		if err != nil {
			c.closeAll(ctx)
			return fmt.Errorf("datasource %s: %w", name, err)
		}
		c.mu.Lock()
		c.dbs[name] = db
		c.mu.Unlock()
		logging.Infof(ctx, "[gorm] datasource %s initialized (driver=%s)", name, driverOf(c.cfg.DataSources[name]))
	}
	return nil
}

func (c *GormComponent) Stop(ctx context.Context) error {
	defer func() { _ = c.BaseComponent.Stop(ctx) }()
	c.closeAll(ctx)
	return nil
}

func (c *GormComponent) HealthCheck() error {
	if err := c.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, db := range c.dbs {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("datasource %s: %w", name, err)
		}
		if err := sqlDB.Ping(); err != nil {
			return fmt.Errorf("datasource %s ping failed: %w", name, err)
		}
	}
	return nil
}

func (c *GormComponent) GetDB(name string) (*gorm.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	db, ok := c.dbs[name]
	if !ok {
		return nil, fmt.Errorf("gorm datasource %s not found", name)
	}
	return db, nil
}

// SetDB installs an already opened handle under name. Used by tests and embedders.
func (c *GormComponent) SetDB(name string, db *gorm.DB) {
	c.mu.Lock()
	c.dbs[name] = db
	c.mu.Unlock()
}

func (c *GormComponent) closeAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, db := range c.dbs {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		delete(c.dbs, name)
		logging.Infof(ctx, "[gorm] datasource %s closed", name)
	}
}

func (c *GormComponent) names() []string {
	names := make([]string, 0, len(c.cfg.DataSources))
	for k := range c.cfg.DataSources {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Open opens ds and applies pool settings. SQLite is limited to one open
// connection since it allows a single writer.
func Open(ctx context.Context, ds *DataSourceConfig, log logger.Interface) (*gorm.DB, error) {
	if ds == nil {
		return nil, fmt.Errorf("nil datasource config")
	}
	if log == nil {
		log = NewGormLogger("", 0)
	}
	dialector, err := Dialector(ds)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   log,
		SkipDefaultTransaction:                   ds.SkipDefaultTransaction,
		PrepareStmt:                              ds.PrepareStmt,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}

	maxOpen, maxIdle := ds.MaxOpenConns, ds.MaxIdleConns
	if driverOf(ds) == DriverSQLite {
		maxOpen, maxIdle = 1, 1
	}
	if maxOpen <= 0 {
		maxOpen = 50
	}
	if maxIdle <= 0 {
		maxIdle = 10
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	if ds.ConnMaxLife > 0 {
		sqlDB.SetConnMaxLifetime(ds.ConnMaxLife)
	} else {
		sqlDB.SetConnMaxLifetime(60 * time.Minute)
	}
	if ds.ConnMaxIdle > 0 {
		sqlDB.SetConnMaxIdleTime(ds.ConnMaxIdle)
	}

	if ds.PingOnStart {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("ping: %w", err)
		}
	}
	return db, nil
}
