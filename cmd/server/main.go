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

// Package main is the entry point for the risk decision engine
// service.
//
// Usage:
//
//	./riskengine-server
//
// Environment Variables:
//
//	LISTEN_ADDR - HTTP listen address (default: :8080)
//	DATABASE_URL - PostgreSQL connection string (absence selects the in-memory store)
//	POLICY_DOCUMENT_PATH - path to the declarative policy document to seed on first boot
//	SANCTIONS_LIST_PATH - path to a newline-delimited sanctions address list to seed on first boot
//	REDIS_URL - optional, enables cross-instance refresh invalidation
//	AUTH_SECRET - optional, enables bearer-token auth on all routes except health/ready/metrics
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/chainrisk/riskengine/internal/config"
	"github.com/chainrisk/riskengine/internal/engine"
	"github.com/chainrisk/riskengine/internal/httpapi"
	"github.com/chainrisk/riskengine/internal/platformlog"
	"github.com/chainrisk/riskengine/internal/policy"
	"github.com/chainrisk/riskengine/internal/storage"
	"github.com/chainrisk/riskengine/internal/storage/memorystore"
	"github.com/chainrisk/riskengine/internal/storage/postgres"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()
	logger := platformlog.New("riskengine")
	logger.InstanceID = cfg.InstanceID

	store, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("", "", "failed to open storage", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer closeStore()

	if err := seedFromDisk(context.Background(), store, cfg); err != nil {
		logger.Error("", "", "failed to seed policy/sanctions from disk", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	slot := policy.NewSnapshotSlot()

	var invalidator policy.Invalidator
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("", "", "invalid REDIS_URL; continuing without invalidation hints", map[string]interface{}{"error": err.Error()})
		} else {
			invalidator = policy.NewRedisInvalidator(redis.NewClient(opts))
		}
	}

	refresher := policy.NewRefresher(store, slot, logger, cfg.PolicyRefreshInterval, cfg.SanctionsRefreshInterval, invalidator)
	bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = refresher.Bootstrap(bootCtx)
	cancel()
	if err != nil {
		logger.Error("", "", "initial policy/sanctions load failed; starting with an empty snapshot", map[string]interface{}{"error": err.Error()})
	}

	runCtx, stopRefresh := context.WithCancel(context.Background())
	defer stopRefresh()
	go refresher.Run(runCtx)

	eng := engine.New(store, slot, nil)
	api := httpapi.NewAPI(eng, logger, cfg.RequestTimeout, version)
	handler := httpapi.NewRouter(api)
	if secret := os.Getenv("AUTH_SECRET"); secret != "" {
		handler = httpapi.BearerAuth([]byte(secret), handler)
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("", "", "riskengine listening", map[string]interface{}{"addr": cfg.ListenAddr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("", "", "server error", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}()

	waitForShutdown(srv, logger)
}

func waitForShutdown(srv *http.Server, logger *platformlog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("", "", "shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("", "", "graceful shutdown failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

// openStore selects the relational adapter when DATABASE_URL is
// configured, otherwise the in-memory test double — never both.
func openStore(cfg config.Config) (storage.Port, func(), error) {
	if cfg.DatabaseURL == "" {
		return memorystore.New(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	adapter, err := postgres.Open(ctx, postgres.Config{
		ConnectionURL:   cfg.DatabaseURL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: 5 * time.Minute,
		MigrateOnStart:  cfg.MigrateOnStart,
	})
	if err != nil {
		return nil, nil, err
	}
	return adapter, func() { _ = adapter.Close() }, nil
}

// seedFromDisk activates a policy document and sanctions list on first
// boot, when configured and no active policy already exists. Later
// updates happen through the storage layer directly.
func seedFromDisk(ctx context.Context, store storage.Port, cfg config.Config) error {
	if cfg.PolicyDocumentPath == "" {
		return nil
	}

	_, found, err := store.GetActivePolicy(ctx)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	doc, err := policy.LoadDocument(cfg.PolicyDocumentPath)
	if err != nil {
		return err
	}

	var sanctionsAddrs []string
	if cfg.SanctionsListPath != "" {
		sanctionsAddrs, err = policy.LoadSanctionsList(cfg.SanctionsListPath)
		if err != nil {
			return err
		}
	}

	policyJSON, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := store.SetActivePolicy(ctx, doc, policyJSON); err != nil {
		return err
	}

	if len(sanctionsAddrs) == 0 {
		return nil
	}
	return store.UpsertSanctions(ctx, sanctionsAddrs)
}
