// halcyon is a server framework for implementing an ActivityPub application.
// Copyright (C) 2026 The Halcyon Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package db opens the configured SQL database and manages its schema.
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	// The supported database drivers.
	_ "github.com/jackc/pgx/v4/stdlib"
	_ "modernc.org/sqlite"

	"github.com/halcyon-social/halcyon/framework/config"
	"github.com/halcyon-social/halcyon/models"
)

// Open connects to the configured database and applies the connection pool
// limits.
func Open(c *config.Config) (*sql.DB, models.SqlDialect, error) {
	var (
		db  *sql.DB
		err error
	)
	kind := c.DatabaseConfig.DatabaseKind
	switch kind {
	case "postgres":
		db, err = sql.Open("pgx", postgresConnString(&c.DatabaseConfig.PostgresConfig))
	case "sqlite":
		db, err = sql.Open("sqlite", c.DatabaseConfig.SqliteConfig.DatabasePath)
	default:
		return nil, nil, fmt.Errorf("unsupported database kind: %s", kind)
	}
	if err != nil {
		return nil, nil, err
	}
	if c.DatabaseConfig.ConnMaxLifetimeSeconds > 0 {
		db.SetConnMaxLifetime(time.Duration(c.DatabaseConfig.ConnMaxLifetimeSeconds) * time.Second)
	}
	db.SetMaxOpenConns(c.DatabaseConfig.MaxOpenConns)
	db.SetMaxIdleConns(c.DatabaseConfig.MaxIdleConns)
	dialect, err := models.NewSqlDialect(kind)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, dialect, nil
}

// InitTables creates every model's tables.
func InitTables(db *sql.DB, dialect models.SqlDialect) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	for _, m := range models.Models() {
		if err := m.CreateTable(tx, dialect); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Prepare readies every model's statements.
func Prepare(db *sql.DB, dialect models.SqlDialect, ms ...models.Model) error {
	for _, m := range ms {
		if err := m.Prepare(db, dialect); err != nil {
			return err
		}
	}
	return nil
}

func postgresConnString(pg *config.PostgresConfig) string {
	kv := make([]string, 0, 8)
	add := func(k, v string) {
		if v != "" {
			kv = append(kv, fmt.Sprintf("%s=%s", k, v))
		}
	}
	add("dbname", pg.DatabaseName)
	add("user", pg.UserName)
	add("password", pg.Password)
	add("host", pg.Host)
	if pg.Port > 0 {
		add("port", fmt.Sprintf("%d", pg.Port))
	}
	add("sslmode", pg.SSLMode)
	add("fallback_application_name", pg.FallbackApplicationName)
	if pg.ConnectTimeout > 0 {
		add("connect_timeout", fmt.Sprintf("%d", pg.ConnectTimeout))
	}
	add("search_path", pg.Schema)
	return strings.Join(kv, " ")
}
