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

package config

import (
	"fmt"
	"strings"
)

// Verify checks the loaded configuration for nonsense values.
func (c *Config) Verify() error {
	if c.ServerConfig.Host == "" {
		return fmt.Errorf("config: sr_host is required")
	}
	if c.ServerConfig.RSAKeySize < 1024 {
		return fmt.Errorf("config: sr_rsa_private_key_size is forbidden to be less than 1024")
	}
	switch c.DatabaseConfig.DatabaseKind {
	case "postgres":
		if c.DatabaseConfig.PostgresConfig.DatabaseName == "" {
			return fmt.Errorf("config: pg_db_name is required")
		}
	case "sqlite":
		if c.DatabaseConfig.SqliteConfig.DatabasePath == "" {
			return fmt.Errorf("config: sqlite_db_path is required")
		}
	default:
		return fmt.Errorf("config: unsupported db_database_kind: %s", c.DatabaseConfig.DatabaseKind)
	}
	if c.DatabaseConfig.DefaultCollectionPageSize <= 0 {
		return fmt.Errorf("config: db_default_collection_page_size is <= 0")
	}
	if c.DatabaseConfig.MaxCollectionPageSize < c.DatabaseConfig.DefaultCollectionPageSize {
		return fmt.Errorf("config: db_max_collection_page_size is smaller than the default page size")
	}
	ap := c.ActivityPubConfig
	if ap.OutboundRateLimitQPS <= 0 {
		return fmt.Errorf("config: ap_outbound_rate_limit_qps is <= 0")
	}
	if ap.OutboundRateLimitBurst <= 0 {
		return fmt.Errorf("config: ap_outbound_rate_limit_burst is <= 0")
	}
	if ap.RetryPageSize <= 0 || ap.RetryAbandonLimit <= 0 || ap.RetrySleepPeriodSeconds <= 0 {
		return fmt.Errorf("config: retry configuration values must be positive")
	}
	if len(ap.HttpSignaturesConfig.Algorithms) == 0 {
		return fmt.Errorf("config: no httpsig algorithms specified")
	}
	if err := containsRequiredHeaders(ap.HttpSignaturesConfig.GetHeaders, false); err != nil {
		return fmt.Errorf("config: http_sig_get_headers: %w", err)
	}
	if err := containsRequiredHeaders(ap.HttpSignaturesConfig.PostHeaders, true); err != nil {
		return fmt.Errorf("config: http_sig_post_headers: %w", err)
	}
	if ap.KeyCacheTTLSeconds > 600 {
		return fmt.Errorf("config: ap_key_cache_ttl_seconds may not exceed 600")
	}
	return nil
}

func containsRequiredHeaders(headers []string, needDigest bool) error {
	var hasRequestTarget, hasHost, hasDate, hasDigest bool
	for _, h := range headers {
		switch strings.ToLower(h) {
		case "(request-target)":
			hasRequestTarget = true
		case "host":
			hasHost = true
		case "date":
			hasDate = true
		case "digest":
			hasDigest = true
		}
	}
	if !hasRequestTarget {
		return fmt.Errorf("missing (request-target)")
	}
	if !hasHost {
		return fmt.Errorf("missing Host")
	}
	if !hasDate {
		return fmt.Errorf("missing Date")
	}
	if needDigest && !hasDigest {
		return fmt.Errorf("missing Digest")
	}
	return nil
}
