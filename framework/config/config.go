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
	"gopkg.in/ini.v1"
)

// Config is the overall configuration file structure.
type Config struct {
	ServerConfig      ServerConfig      `ini:"server" comment:"HTTP server configuration"`
	DatabaseConfig    DatabaseConfig    `ini:"database" comment:"Database configuration"`
	ActivityPubConfig ActivityPubConfig `ini:"activitypub" comment:"ActivityPub configuration"`
	WebFingerConfig   WebFingerConfig   `ini:"webfinger" comment:"WebFinger configuration"`
}

// ServerConfig is the section specifically for the HTTP server.
type ServerConfig struct {
	Host                     string `ini:"sr_host" comment:"(required) Host with TLD for this instance (the fully qualified domain or subdomain)"`
	CertFile                 string `ini:"sr_cert_file" comment:"Path to the certificate file used to establish TLS connections for HTTPS"`
	KeyFile                  string `ini:"sr_key_file" comment:"Path to the private key file used to establish TLS connections for HTTPS"`
	Proxy                    bool   `ini:"sr_proxy" comment:"If you run the application server behind a proxy, this will disable the TLS server."`
	HttpsReadTimeoutSeconds  int    `ini:"sr_https_read_timeout_seconds" comment:"Timeout in seconds for incoming HTTPS requests; a zero or unset value does not timeout"`
	HttpsWriteTimeoutSeconds int    `ini:"sr_https_write_timeout_seconds" comment:"Timeout in seconds for outgoing HTTPS responses; a zero or unset value does not timeout"`
	HttpClientTimeoutSeconds int    `ini:"sr_http_client_timeout_seconds" comment:"(default: 30) Timeout in seconds for outgoing HTTP requests; a zero or unset value does not timeout"`
	RSAKeySize               int    `ini:"sr_rsa_private_key_size" comment:"(default: 2048) The size of the RSA private key for a user; values less than 1024 are forbidden"`
}

// DatabaseConfig is the section specifically for the database.
type DatabaseConfig struct {
	DatabaseKind              string         `ini:"db_database_kind" comment:"(required) \"postgres\" or \"sqlite\""`
	ConnMaxLifetimeSeconds    int            `ini:"db_conn_max_lifetime_seconds" comment:"(default: indefinite) Maximum lifetime of a connection in seconds; a value of zero or unset value means indefinite"`
	MaxOpenConns              int            `ini:"db_max_open_conns" comment:"(default: infinite) Maximum number of open connections to the database; a value of zero or unset value means infinite"`
	MaxIdleConns              int            `ini:"db_max_idle_conns" comment:"(default: 2) Maximum number of idle connections in the connection pool to the database"`
	DefaultCollectionPageSize int            `ini:"db_default_collection_page_size" comment:"(default: 30) The default collection page size when fetching a page of an ActivityStreams collection"`
	MaxCollectionPageSize     int            `ini:"db_max_collection_page_size" comment:"(default: 200) The maximum collection page size allowed when fetching a page of an ActivityStreams collection"`
	PostgresConfig            PostgresConfig `ini:"db_postgres,omitempty" comment:"Only needed if database_kind is postgres, and values are based on the github.com/jackc/pgx driver"`
	SqliteConfig              SqliteConfig   `ini:"db_sqlite,omitempty" comment:"Only needed if database_kind is sqlite"`
}

// ActivityPubConfig is the section specifically for ActivityPub.
type ActivityPubConfig struct {
	ClockTimezone                       string               `ini:"ap_clock_timezone" comment:"(default: UTC) Timezone for ActivityPub related operations: unset and \"UTC\" are UTC, \"Local\" is local server time, otherwise use IANA Time Zone database values"`
	OutboundRateLimitQPS                float64              `ini:"ap_outbound_rate_limit_qps" comment:"(default: 2) Per-host outbound rate limit for delivery of federated messages under steady state conditions; a negative value or value of zero is invalid"`
	OutboundRateLimitBurst              int                  `ini:"ap_outbound_rate_limit_burst" comment:"(default: 5) Per-host outbound burst tolerance for delivery of federated messages; a negative value or value of zero is invalid"`
	OutboundRateLimitPrunePeriodSeconds int                  `ini:"ap_outbound_rate_limit_prune_period_seconds" comment:"(default: 60) The time period to await before periodically removing cached per-host rate-limiters that are no longer in use"`
	OutboundRateLimitPruneAgeSeconds    int                  `ini:"ap_outbound_rate_limit_prune_age_seconds" comment:"(default: 30) The age of an unused per-host rate-limiter must be to be pruned and removed from the cache when the pruning occurs"`
	HttpSignaturesConfig                HttpSignaturesConfig `ini:"ap_http_signatures" comment:"HTTP Signatures configuration"`
	MaxInboxForwardingRecursionDepth    int                  `ini:"ap_max_inbox_forwarding_recursion_depth" comment:"(default: 4) The maximum recursion depth to use when determining whether to do inbox forwarding; zero or a negative value means no limit"`
	MaxDeliveryRecursionDepth           int                  `ini:"ap_max_delivery_recursion_depth" comment:"(default: 4) The maximum depth to search within collections owned by peers when they are targeted to receive a delivery; zero or a negative value means no limit"`
	RetryPageSize                       int                  `ini:"ap_retry_page_size" comment:"(default: 25) The number of retryable deliveries to request from the database at a time"`
	RetryAbandonLimit                   int                  `ini:"ap_retry_abandon_limit" comment:"(default: 5) The maximum number of times the app will attempt to deliver an Activity to a federated peer and fail before abandoning it"`
	RetrySleepPeriodSeconds             int                  `ini:"ap_retry_sleep_period_seconds" comment:"(default: 30) The base period to await between delivery retries; backoff is exponential on top of this base, capped at one hour"`
	MaxDereferenceRedirects             int                  `ini:"ap_max_dereference_redirects" comment:"(default: 5) How many redirects to follow when dereferencing a remote IRI"`
	KeyCacheTTLSeconds                  int                  `ini:"ap_key_cache_ttl_seconds" comment:"(default: 600) How long fetched remote public keys and block lists may be cached; capped at 600"`
}

// HttpSignaturesConfig is for HTTP Signatures.
type HttpSignaturesConfig struct {
	Algorithms      []string `ini:"http_sig_algorithms" comment:"(default: \"rsa-sha256,hs2019\") Comma-separated list of algorithms used by the go-fed/httpsig library to sign outgoing HTTP signatures; the first algorithm in this list will be the one used to verify other peers' HTTP signatures"`
	DigestAlgorithm string   `ini:"http_sig_digest_algorithm" comment:"(default: \"SHA-256\") RFC 3230 algorithm for use in signing header Digests"`
	GetHeaders      []string `ini:"http_sig_get_headers" comment:"(default: \"(request-target),host,date\") Comma-separated list of HTTP headers to sign in GET requests; must contain \"(request-target)\", \"host\", and \"date\""`
	PostHeaders     []string `ini:"http_sig_post_headers" comment:"(default: \"(request-target),host,date,digest\") Comma-separated list of HTTP headers to sign in POST requests; must contain \"(request-target)\", \"host\", \"date\", and \"digest\""`
	MaxClockSkewSeconds int  `ini:"http_sig_max_clock_skew_seconds" comment:"(default: 300) Reject signatures whose Date header deviates from server time by more than this many seconds"`
}

// PostgresConfig is the section specifically for Postgres databases.
type PostgresConfig struct {
	DatabaseName            string `ini:"pg_db_name" comment:"(required) Database name"`
	UserName                string `ini:"pg_user" comment:"(required) User to connect as (any password will be prompted)"`
	Host                    string `ini:"pg_host" comment:"(default: localhost) The Postgres host to connect to"`
	Port                    int    `ini:"pg_port" comment:"(default: 5432) The port to connect to"`
	Password                string `ini:"pg_password" comment:"The database password to use to connect"`
	SSLMode                 string `ini:"pg_ssl_mode" comment:"(default: require) SSL mode to use when connecting (options are: \"disable\", \"require\", \"verify-ca\", \"verify-full\")"`
	FallbackApplicationName string `ini:"pg_fallback_application_name" comment:"An application_name to fall back to if one is not provided"`
	ConnectTimeout          int    `ini:"pg_connect_timeout" comment:"(default: indefinite) Maximum wait when connecting to a database, zero or unset means indefinite"`
	Schema                  string `ini:"pg_schema" comment:"Postgres schema prefix to use"`
}

// SqliteConfig is the section specifically for sqlite databases.
type SqliteConfig struct {
	DatabasePath string `ini:"sqlite_db_path" comment:"(required) Path to the sqlite database file"`
}

// WebFingerConfig is the section for actor discovery.
type WebFingerConfig struct {
	EnableWebFinger bool `ini:"wf_enable_webfinger" comment:"(default: true) Whether to serve actor discovery documents at /.well-known/webfinger"`
}

// Defaults returns a Config with the default values set.
func Defaults() *Config {
	return &Config{
		ServerConfig: ServerConfig{
			HttpClientTimeoutSeconds: 30,
			RSAKeySize:               2048,
		},
		DatabaseConfig: DatabaseConfig{
			DatabaseKind:              "sqlite",
			MaxIdleConns:              2,
			DefaultCollectionPageSize: 30,
			MaxCollectionPageSize:     200,
			SqliteConfig: SqliteConfig{
				DatabasePath: "halcyon.db",
			},
		},
		ActivityPubConfig: ActivityPubConfig{
			ClockTimezone:                       "UTC",
			OutboundRateLimitQPS:                2,
			OutboundRateLimitBurst:              5,
			OutboundRateLimitPrunePeriodSeconds: 60,
			OutboundRateLimitPruneAgeSeconds:    30,
			HttpSignaturesConfig: HttpSignaturesConfig{
				Algorithms:          []string{"rsa-sha256", "hs2019"},
				DigestAlgorithm:     "SHA-256",
				GetHeaders:          []string{"(request-target)", "host", "date"},
				PostHeaders:         []string{"(request-target)", "host", "date", "digest"},
				MaxClockSkewSeconds: 300,
			},
			MaxInboxForwardingRecursionDepth: 4,
			MaxDeliveryRecursionDepth:        4,
			RetryPageSize:                    25,
			RetryAbandonLimit:                5,
			RetrySleepPeriodSeconds:          30,
			MaxDereferenceRedirects:          5,
			KeyCacheTTLSeconds:               600,
		},
		WebFingerConfig: WebFingerConfig{
			EnableWebFinger: true,
		},
	}
}

// Load reads the configuration file at the path, applying defaults for
// unset values.
func Load(path string) (*Config, error) {
	c := Defaults()
	f, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	if err = f.MapTo(c); err != nil {
		return nil, err
	}
	if err = c.Verify(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the configuration, with comments, to the path.
func (c *Config) Save(path string) error {
	f := ini.Empty()
	if err := ini.ReflectFrom(f, c); err != nil {
		return err
	}
	return f.SaveTo(path)
}
