package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"clouddrive/internal/config"
	"clouddrive/internal/logger"
	"clouddrive/internal/repository/postgres"
	"clouddrive/internal/service"
	"clouddrive/internal/storage"
)

const (
	connectAttempts = 5
	connectDelay    = 5 * time.Second
)

// app собирает зависимости для команд. Вызывающий обязан вызвать Close
type app struct {
	cfg *config.Config
	log zerolog.Logger
	db  *sqlx.DB

	store    *postgres.Store
	blobs    storage.Storage
	quota    *service.StorageQuotaService
	perms    *service.PermissionService
	activity *service.ActivityService
	accounts *service.AccountService
	files    *service.FileService
	folders  *service.FolderService
	shares   *service.ShareService
}

// newApp читает конфиг и подключается к базе. Хранилище блобов
// поднимается только если withBlobs
func newApp(withBlobs bool) (*app, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Log)

	db, err := connectWithRetry(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	a := &app{cfg: cfg, log: log, db: db, store: postgres.NewStore(db)}

	if withBlobs {
		a.blobs, err = storage.New(cfg.Storage)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to init storage: %w", err)
		}
		log.Info().Str("driver", cfg.Storage.Driver).Msg("blob storage ready")
	}

	a.quota = service.NewStorageQuotaService(a.store, log)
	a.perms = service.NewPermissionService()
	a.activity = service.NewActivityService(a.store, log)
	a.accounts = service.NewAccountService(a.store, a.activity, cfg.Quota.DefaultLimit, log)
	if a.blobs != nil {
		a.files = service.NewFileService(a.store, a.blobs, a.quota, a.perms, a.activity, cfg.Quota.MaxUploadSize, log)
		a.folders = service.NewFolderService(a.store, a.blobs, a.quota, a.perms, a.activity, log)
		a.shares = service.NewShareService(a.store, a.perms, a.activity, log)
	}

	return a, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Error().Err(err).Msg("error closing database connection")
	}
}

// connectWithRetry создает базу при необходимости и ждет, пока postgres
// начнет принимать соединения
func connectWithRetry(cfg config.DatabaseConfig, log zerolog.Logger) (*sqlx.DB, error) {
	if err := ensureDatabase(cfg, log); err != nil {
		log.Warn().Err(err).Msg("could not ensure database exists")
	}

	var (
		db  *sqlx.DB
		err error
	)
	for i := 0; i < connectAttempts; i++ {
		db, err = sqlx.Connect("postgres", cfg.GetDSN())
		if err == nil {
			return db, nil
		}

		log.Warn().Err(err).Int("attempt", i+1).Int("max", connectAttempts).Msg("failed to connect to database")
		time.Sleep(connectDelay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", connectAttempts, err)
}

// ensureDatabase подключается к системной базе postgres и создает
// базу сервиса, если её нет
func ensureDatabase(cfg config.DatabaseConfig, log zerolog.Logger) error {
	system := cfg
	system.Name = "postgres"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", system.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	defer db.Close()

	var exists bool
	err = db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", cfg.Name)
	if err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}
	if exists {
		return nil
	}

	log.Info().Str("database", cfg.Name).Msg("database does not exist, creating")
	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(cfg.Name)); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("failed to create database: %w", err)
	}
	return nil
}
