// Package migrations хранит схему базы данных и применяет её при старте.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// Up применяет все недостающие миграции. Если база осталась в "грязном"
// состоянии после сбоя, версия принудительно фиксируется и накат повторяется.
func Up(db *sql.DB, log zerolog.Logger) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	// m.Close() закрыл бы и соединение, которым владеет вызывающий код

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Warn().Uint("version", version).Msg("found dirty database state, forcing version")
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	current, _, err := m.Version()
	if err == nil {
		log.Info().Uint("version", current).Msg("database schema is up to date")
	}
	return nil
}

// Status сравнивает версию схемы в базе с последней встроенной миграцией
func Status(db *sql.DB) (current uint, latest uint, dirty bool, err error) {
	m, err := newMigrate(db)
	if err != nil {
		return 0, 0, false, err
	}

	latest, err = LatestVersion()
	if err != nil {
		return 0, 0, false, err
	}

	current, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, latest, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return current, latest, dirty, nil
}

// LatestVersion возвращает номер последней встроенной миграции
func LatestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()

	return latestVersion(src)
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func latestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}

	for {
		next, err := src.Next(version)
		if err != nil {
			break
		}
		version = next
	}
	return version, nil
}
