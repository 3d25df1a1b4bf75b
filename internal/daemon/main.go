// Package daemon opens the database, seeds it and runs the web service.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/db/dsn"
	"github.com/boxwatch/boxwatch/internal/db/models"
	"github.com/boxwatch/boxwatch/internal/fanout"
	"github.com/boxwatch/boxwatch/internal/logger/adapter/gormlog"
	"github.com/boxwatch/boxwatch/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	pub        fanout.Publisher
	webService *web.Service
}

// Start serves http until SIGINT or SIGTERM, then shuts down and releases the fan-out sinks.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	err := d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))

	if cerr := d.pub.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("failed to close fan-out publishers")
	}

	return err
}

// Open connects to the configured engine. sqlite is limited to one open connection so every
// write is serialized.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		dialector = mysql.Open(dsn.Create(cfg))
	case config.EnginePostgres:
		dialector = postgres.Open(dsn.Create(cfg))
	case config.EngineSQLite:
		dialector = sqlite.Open(dsn.Create(cfg))
	default:
		return nil, config.ErrUnknownGormEngine
	}

	gl := gormlog.New(time.Duration(cfg.Log.SlowQueryThresholdMs) * time.Millisecond)

	var lg gormlogger.Interface = gl
	if cfg.DB.LogQueries {
		lg = gl.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: lg})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DB.GormEngine, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	if cfg.DB.GormEngine == config.EngineSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.DB.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	}

	return db, nil
}

// Migrate creates or updates every table and writes the seed rows that are missing.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	return Seed(ctx, db)
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	if err = Migrate(context.Background(), db); err != nil {
		return nil, err
	}

	pub, err := fanout.New(cfg.Fanout)
	if err != nil {
		return nil, fmt.Errorf("connect fan-out: %w", err)
	}

	ws, err := web.New(cfg, db, pub)
	if err != nil {
		_ = pub.Close()
		return nil, err
	}

	log.Info().
		Str("engine", cfg.DB.GormEngine).
		Int("port", cfg.Webserver.Port).
		Str("fanout", pub.Name()).
		Msg("boxwatch daemon ready")

	return &Daemon{
		cfg:        cfg,
		db:         db,
		pub:        pub,
		webService: ws,
	}, nil
}
