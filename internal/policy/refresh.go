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

package policy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/chainrisk/riskengine/internal/metrics"
	"github.com/chainrisk/riskengine/internal/platformlog"
	"github.com/chainrisk/riskengine/internal/storage"
)

// Invalidator lets an external signal (e.g. the optional Redis
// broadcast of §4.13) wake the refresh loop immediately instead of
// waiting out its poll interval. Nil is a valid Invalidator: Run then
// starts no watcher and the loop falls back to pure polling.
type Invalidator interface {
	// Wait blocks until an invalidation is published or ctx is done.
	Wait(ctx context.Context) error
}

// Refresher runs the single background task described in §4.7: it
// polls the active policy and the sanctions set at configured
// intervals, and republishes a freshly compiled rules.Set through slot
// whenever either one changed. A failed poll logs and retains whatever
// snapshot was already published; it never clears the slot.
type Refresher struct {
	store             storage.Port
	slot              *SnapshotSlot
	logger            *platformlog.Logger
	policyInterval    time.Duration
	sanctionsInterval time.Duration
	invalidator       Invalidator

	lastPolicyVersion string
	lastSanctionsHash string
}

// NewRefresher constructs a Refresher. policyInterval and
// sanctionsInterval default to 30s/60s when zero, per spec.
func NewRefresher(store storage.Port, slot *SnapshotSlot, logger *platformlog.Logger, policyInterval, sanctionsInterval time.Duration, invalidator Invalidator) *Refresher {
	if policyInterval <= 0 {
		policyInterval = 30 * time.Second
	}
	if sanctionsInterval <= 0 {
		sanctionsInterval = 60 * time.Second
	}
	return &Refresher{
		store:             store,
		slot:              slot,
		logger:            logger,
		policyInterval:    policyInterval,
		sanctionsInterval: sanctionsInterval,
		invalidator:       invalidator,
	}
}

// Bootstrap performs one synchronous load-and-publish before Run's
// ticker loop starts, so the process never serves a request against an
// empty snapshot slot after a clean startup.
func (r *Refresher) Bootstrap(ctx context.Context) error {
	return r.tick(ctx)
}

// Run ticks forever until ctx is done. It is the single background
// task of §4.7: one goroutine, sequential ticks, no concurrent writers
// to slot.
func (r *Refresher) Run(ctx context.Context) {
	policyTicker := time.NewTicker(r.policyInterval)
	sanctionsTicker := time.NewTicker(r.sanctionsInterval)
	defer policyTicker.Stop()
	defer sanctionsTicker.Stop()

	invalidated := make(chan struct{})
	if r.invalidator != nil {
		go r.watchInvalidations(ctx, invalidated)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-policyTicker.C:
			r.tickAndLog(ctx)
		case <-sanctionsTicker.C:
			r.tickAndLog(ctx)
		case <-invalidated:
			r.tickAndLog(ctx)
		}
	}
}

func (r *Refresher) watchInvalidations(ctx context.Context, notify chan<- struct{}) {
	for {
		if err := r.invalidator.Wait(ctx); err != nil {
			return
		}
		select {
		case notify <- struct{}{}:
		case <-ctx.Done():
			return
		}
	}
}

func (r *Refresher) tickAndLog(ctx context.Context) {
	if err := r.tick(ctx); err != nil {
		metrics.ObserveRefresh(false, 0, 0)
		r.logger.Error("", "", "policy/sanctions refresh failed; retaining previous snapshot", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if set := r.slot.Load(); set != nil {
		metrics.ObserveRefresh(true, len(set.Inline), len(set.Streaming))
	}
}

// tick loads the active policy and full sanctions list, and republishes
// a new snapshot only if either changed. Both reads happen every tick
// regardless of which ticker fired; the cost is one extra storage read
// at the faster of the two intervals, traded for a single code path.
func (r *Refresher) tick(ctx context.Context) error {
	activePolicy, found, err := r.store.GetActivePolicy(ctx)
	if err != nil {
		return err
	}
	if !found {
		return nil // no active policy yet; leave slot as-is (nil until first success)
	}

	sanctionsList, err := r.store.GetAllSanctions(ctx)
	if err != nil {
		return err
	}
	sanctionsHash := hashSanctions(sanctionsList)

	if activePolicy.Version == r.lastPolicyVersion && sanctionsHash == r.lastSanctionsHash {
		return nil
	}

	newSet, err := Compile(activePolicy, sanctionsList)
	if err != nil {
		return err
	}

	r.slot.Store(newSet)
	r.lastPolicyVersion = activePolicy.Version
	r.lastSanctionsHash = sanctionsHash

	r.logger.Info("", "", "published new rule-set snapshot", map[string]interface{}{
		"policy_version":  activePolicy.Version,
		"inline_rules":    len(newSet.Inline),
		"streaming_rules": len(newSet.Streaming),
		"sanctions_count": len(sanctionsList),
	})
	return nil
}

func hashSanctions(addrs []string) string {
	sorted := make([]string, len(addrs))
	copy(sorted, addrs)
	sort.Strings(sorted)
	h := sha256.New()
	h.Write([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}
