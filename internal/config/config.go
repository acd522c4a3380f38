// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config reads process configuration from environment
// variables, following the teacher's convention of plain os.Getenv
// reads with defaults rather than a CLI flag framework. No command-line
// flags are defined: Load calls flag.Parse, but every setting comes from
// the environment only, and the variable names share no common prefix.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config is every knob the composition root (cmd/server) needs to wire
// the engine, storage, and HTTP boundary.
type Config struct {
	// ListenAddr is the address the HTTP boundary binds, e.g. ":8080".
	ListenAddr string

	// DatabaseURL is a postgres:// connection string. Empty means "use
	// the in-memory store" — useful for demos and CI, never for a real
	// deployment.
	DatabaseURL string
	MaxOpenConns int
	MaxIdleConns int
	MigrateOnStart bool

	// PolicyDocumentPath and SanctionsListPath seed the storage layer
	// on first boot when it has no active policy yet. Subsequent
	// updates happen through the storage layer directly (operator
	// tooling), not by re-reading these files.
	PolicyDocumentPath string
	SanctionsListPath  string

	// PolicyRefreshInterval and SanctionsRefreshInterval control the
	// background Refresher's poll cadence (§4.7).
	PolicyRefreshInterval    time.Duration
	SanctionsRefreshInterval time.Duration

	// RedisURL, when non-empty, enables the optional cross-instance
	// refresh invalidation hint of §4.13. Empty disables it; the
	// Refresher still works correctly on pure polling.
	RedisURL string

	// RequestTimeout bounds how long a single /v1/decision/check
	// request may run; when it elapses, the HTTP handler reports the
	// failure as KindTimeout.
	RequestTimeout time.Duration

	// InstanceID identifies this process in structured logs.
	InstanceID string
}

// Load reads Config from the environment, applying the same defaults a
// fresh deployment would get with no configuration at all: an
// in-memory store, a 500ms request budget, and 30s/60s refresh
// intervals.
func Load() Config {
	flag.Parse() // reserved for local-run flags; none required today

	cfg := Config{
		ListenAddr:               getEnv("LISTEN_ADDR", ":8080"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		MaxOpenConns:             getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:             getEnvInt("DB_MAX_IDLE_CONNS", 5),
		MigrateOnStart:           getEnvBool("DB_MIGRATE_ON_START", true),
		PolicyDocumentPath:       os.Getenv("POLICY_DOCUMENT_PATH"),
		SanctionsListPath:        os.Getenv("SANCTIONS_LIST_PATH"),
		PolicyRefreshInterval:    getEnvDuration("POLICY_REFRESH_INTERVAL", 30*time.Second),
		SanctionsRefreshInterval: getEnvDuration("SANCTIONS_REFRESH_INTERVAL", 60*time.Second),
		RedisURL:                 os.Getenv("REDIS_URL"),
		RequestTimeout:           getEnvDuration("REQUEST_TIMEOUT", 500*time.Millisecond),
		InstanceID:               getEnv("INSTANCE_ID", "riskengine-local"),
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return v
}
