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

package framework

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/halcyon-social/halcyon/ap"
	"github.com/halcyon-social/halcyon/app"
	"github.com/halcyon-social/halcyon/framework/config"
	"github.com/halcyon-social/halcyon/framework/conn"
	"github.com/halcyon-social/halcyon/framework/db"
	"github.com/halcyon-social/halcyon/models"
	"github.com/halcyon-social/halcyon/pub"
	"github.com/halcyon-social/halcyon/services"
	"github.com/halcyon-social/halcyon/util"
)

// Framework owns every dependency of a running server.
type Framework struct {
	config   *config.Config
	scheme   string
	sqlDB    *sql.DB
	actor    pub.Actor
	handlers *handlers
	tc       *conn.Controller
	retrier  *conn.Retrier
	modelSet []models.Model

	Users            *services.Users
	Data             *services.Data
	Collections      *services.Collections
	Relationships    *services.Relationships
	PrivateKeys      *services.PrivateKeys
	DeliveryAttempts *services.DeliveryAttempts
}

// Build performs dependency injection: models, services, transport
// controller, protocol behaviors, and the HTTP handlers.
func Build(c *config.Config, a app.Application, debug bool) (*Framework, error) {
	scheme := "https"
	if debug || c.ServerConfig.Proxy {
		scheme = "http"
	}
	clock, err := ap.NewClock(c.ActivityPubConfig.ClockTimezone)
	if err != nil {
		return nil, err
	}
	sqlDB, dialect, err := db.Open(c)
	if err != nil {
		return nil, err
	}
	users := &models.Users{}
	fedData := &models.FedData{}
	localData := &models.LocalData{}
	collections := &models.Collections{}
	relationships := &models.Relationships{}
	attempts := &models.DeliveryAttempts{}
	modelSet := []models.Model{users, fedData, localData, collections, relationships, attempts}
	if err := db.Prepare(sqlDB, dialect, modelSet...); err != nil {
		sqlDB.Close()
		return nil, err
	}

	host := c.ServerConfig.Host
	dataSvc := services.NewData(sqlDB, host, fedData, localData, clock)
	usersSvc := &services.Users{
		DB:         sqlDB,
		Users:      users,
		Data:       dataSvc,
		Scheme:     scheme,
		Host:       host,
		RSAKeySize: c.ServerConfig.RSAKeySize,
	}
	colSvc := &services.Collections{
		DB:          sqlDB,
		Collections: collections,
		Data:        dataSvc,
		DefaultSize: c.DatabaseConfig.DefaultCollectionPageSize,
		MaxSize:     c.DatabaseConfig.MaxCollectionPageSize,
	}
	relSvc := &services.Relationships{
		DB:            sqlDB,
		Relationships: relationships,
		BlockCache:    util.NewTTLCache(time.Duration(c.ActivityPubConfig.KeyCacheTTLSeconds) * time.Second),
	}
	pkSvc := &services.PrivateKeys{DB: sqlDB, Users: users}
	daSvc := &services.DeliveryAttempts{DB: sqlDB, DeliveryAttempts: attempts}

	client := &http.Client{
		Timeout: time.Duration(c.ServerConfig.HttpClientTimeoutSeconds) * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= c.ActivityPubConfig.MaxDereferenceRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	tc, err := conn.NewController(c, clock, client, a.Software().UserAgent(), daSvc)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	apDB := &ap.Database{
		Scheme:        scheme,
		Host:          host,
		Data:          dataSvc,
		Users:         usersSvc,
		Collections:   colSvc,
		Relationships: relSvc,
		Clock:         clock,
	}
	actor := ap.NewActor(c, a, apDB, ap.Services{
		Users:            usersSvc,
		Data:             dataSvc,
		Collections:      colSvc,
		Relationships:    relSvc,
		PrivateKeys:      pkSvc,
		DeliveryAttempts: daSvc,
	}, tc, clock)

	f := &Framework{
		config:   c,
		scheme:   scheme,
		sqlDB:    sqlDB,
		actor:    actor,
		tc:       tc,
		retrier:  conn.NewRetrier(daSvc, pkSvc, tc, c),
		modelSet: modelSet,

		Users:            usersSvc,
		Data:             dataSvc,
		Collections:      colSvc,
		Relationships:    relSvc,
		PrivateKeys:      pkSvc,
		DeliveryAttempts: daSvc,
	}
	f.handlers = &handlers{
		scheme: scheme,
		host:   host,
		users:  usersSvc,
		data:   dataSvc,
		col:    colSvc,
	}
	return f, nil
}

// InitDB creates the database schema.
func InitDB(c *config.Config) error {
	sqlDB, dialect, err := db.Open(c)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return db.InitTables(sqlDB, dialect)
}

// Router returns the HTTP handler for the server.
func (f *Framework) Router() http.Handler {
	return f.buildRouter()
}

// Start launches background work: the per-host limiter pruning and the
// delivery retrier.
func (f *Framework) Start() {
	f.tc.Start()
	f.retrier.Start()
}

// Stop halts background work and releases the database.
func (f *Framework) Stop() {
	f.retrier.Stop()
	f.tc.Stop()
	for _, m := range f.modelSet {
		m.Close()
	}
	f.sqlDB.Close()
}
