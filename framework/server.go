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
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/halcyon-social/halcyon/util"
)

// Serve runs the HTTP server until an interrupt arrives, then drains.
func (f *Framework) Serve(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      f.Router(),
		ReadTimeout:  time.Duration(f.config.ServerConfig.HttpsReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(f.config.ServerConfig.HttpsWriteTimeoutSeconds) * time.Second,
	}
	f.Start()
	defer f.Stop()

	errCh := make(chan error, 1)
	go func() {
		useTLS := f.scheme == "https" && !f.config.ServerConfig.Proxy
		if useTLS {
			errCh <- srv.ListenAndServeTLS(f.config.ServerConfig.CertFile, f.config.ServerConfig.KeyFile)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()
	util.InfoLogger.Infof("listening on %s as %s", addr, f.config.ServerConfig.Host)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case s := <-sigCh:
		util.InfoLogger.Infof("received %s, shutting down", s)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
