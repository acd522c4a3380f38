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

// Package memorystore is a deterministic in-memory storage.Port test
// double. It is selected in place of the PostgreSQL adapter when no
// store connection string is configured (spec §6 configuration
// surface), and supports injectable preset errors for unit tests that
// need to exercise engine behavior (e.g. a storage failure) without a
// real database. Return values cannot be preset; they come from the
// adapter's own state.
package memorystore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chainrisk/riskengine/internal/domain"
)

// Adapter is safe for concurrent use; every method takes mu.
type Adapter struct {
	mu sync.Mutex

	nextSubjectID int64
	subjectsByID  map[int64]domain.StoredSubject
	subjectsByUID map[string]int64

	nextTxID int64
	txs      []domain.TransactionRecord // append-only, in insertion order

	sanctions map[string]struct{}

	activePolicy *domain.Policy

	nextDecisionID int64
	decisions      []domain.DecisionRecord

	clock func() time.Time

	// Presets let a test force a specific failure from the next call
	// to the named operation. Keyed by operation name
	// ("UpsertSubject", "GetRollingVolume", ...); consumed once.
	presetErrs map[string]error
}

// New returns an empty adapter. Subject and decision row counters start
// at 1, matching a fresh BIGSERIAL sequence.
func New() *Adapter {
	return &Adapter{
		nextSubjectID:  1,
		subjectsByID:   make(map[int64]domain.StoredSubject),
		subjectsByUID:  make(map[string]int64),
		nextTxID:       1,
		sanctions:      make(map[string]struct{}),
		nextDecisionID: 1,
		clock:          time.Now,
		presetErrs:     make(map[string]error),
	}
}

// SetClock overrides the adapter's notion of "now" for deterministic
// rolling-window tests.
func (a *Adapter) SetClock(fn func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clock = fn
}

// SeedSanctions preloads the sanctions set for a test, lowercased.
func (a *Adapter) SeedSanctions(addresses ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, addr := range addresses {
		a.sanctions[lower(addr)] = struct{}{}
	}
}

// PresetErr forces the next call to the named operation to fail with err.
func (a *Adapter) PresetErr(operation string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.presetErrs[operation] = err
}

func (a *Adapter) takePreset(operation string) error {
	if err, ok := a.presetErrs[operation]; ok {
		delete(a.presetErrs, operation)
		return err
	}
	return nil
}

func lower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func (a *Adapter) GetSubjectByUserID(_ context.Context, userID string) (domain.StoredSubject, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takePreset("GetSubjectByUserID"); err != nil {
		return domain.StoredSubject{}, false, err
	}
	id, ok := a.subjectsByUID[userID]
	if !ok {
		return domain.StoredSubject{}, false, nil
	}
	return a.subjectsByID[id], true, nil
}

func (a *Adapter) UpsertSubject(_ context.Context, subject domain.Subject) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takePreset("UpsertSubject"); err != nil {
		return 0, err
	}

	if id, ok := a.subjectsByUID[subject.UserID]; ok {
		existing := a.subjectsByID[id]
		existing.AccountID = subject.AccountID
		existing.GeoISO = subject.GeoISO
		existing.KYCTier = subject.KYCTier
		existing.Addresses = domain.MergeAddresses(existing.Addresses, subject.Addresses)
		a.subjectsByID[id] = existing
		return id, nil
	}

	id := a.nextSubjectID
	a.nextSubjectID++
	stored := domain.StoredSubject{ID: id, Subject: subject}
	stored.Addresses = subject.NormalizedAddresses()
	a.subjectsByID[id] = stored
	a.subjectsByUID[subject.UserID] = id
	return id, nil
}

func (a *Adapter) RecordTransaction(_ context.Context, rec domain.TransactionRecord) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takePreset("RecordTransaction"); err != nil {
		return 0, err
	}

	id := a.nextTxID
	a.nextTxID++
	rec.ID = id
	rec.CreatedAt = a.clock()
	a.txs = append(a.txs, rec)
	return id, nil
}

func (a *Adapter) GetRollingVolume(_ context.Context, subjectID int64, window time.Duration) (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takePreset("GetRollingVolume"); err != nil {
		return decimal.Zero, err
	}

	cutoff := a.clock().Add(-window)
	sum := decimal.Zero
	for _, tx := range a.txs {
		if tx.SubjectID == subjectID && tx.CreatedAt.After(cutoff) {
			sum = sum.Add(tx.UsdValue)
		}
	}
	return sum, nil
}

func (a *Adapter) GetSmallTxCount(_ context.Context, subjectID int64, window time.Duration, threshold decimal.Decimal) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takePreset("GetSmallTxCount"); err != nil {
		return 0, err
	}

	cutoff := a.clock().Add(-window)
	var count int64
	for _, tx := range a.txs {
		if tx.SubjectID == subjectID && tx.CreatedAt.After(cutoff) && tx.UsdValue.LessThan(threshold) {
			count++
		}
	}
	return count, nil
}

func (a *Adapter) GetAllSanctions(_ context.Context) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takePreset("GetAllSanctions"); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(a.sanctions))
	for addr := range a.sanctions {
		out = append(out, addr)
	}
	sort.Strings(out) // deterministic for tests; spec leaves order unspecified
	return out, nil
}

func (a *Adapter) UpsertSanctions(_ context.Context, addresses []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takePreset("UpsertSanctions"); err != nil {
		return err
	}
	for _, addr := range addresses {
		a.sanctions[lower(addr)] = struct{}{}
	}
	return nil
}

func (a *Adapter) IsSanctioned(_ context.Context, address string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takePreset("IsSanctioned"); err != nil {
		return false, err
	}
	_, ok := a.sanctions[lower(address)]
	return ok, nil
}

func (a *Adapter) GetActivePolicy(_ context.Context) (domain.Policy, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takePreset("GetActivePolicy"); err != nil {
		return domain.Policy{}, false, err
	}
	if a.activePolicy == nil {
		return domain.Policy{}, false, nil
	}
	return *a.activePolicy, true, nil
}

func (a *Adapter) SetActivePolicy(_ context.Context, policy domain.Policy, _ []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takePreset("SetActivePolicy"); err != nil {
		return err
	}
	cp := policy
	a.activePolicy = &cp
	return nil
}

func (a *Adapter) RecordDecision(_ context.Context, rec domain.DecisionRecord) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takePreset("RecordDecision"); err != nil {
		return 0, err
	}

	id := a.nextDecisionID
	a.nextDecisionID++
	rec.ID = id
	rec.CreatedAt = a.clock()
	a.decisions = append(a.decisions, rec)
	return id, nil
}

func (a *Adapter) Ping(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.takePreset("Ping")
}

// Decisions returns a copy of every recorded decision, for assertions
// in engine-level tests.
func (a *Adapter) Decisions() []domain.DecisionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.DecisionRecord, len(a.decisions))
	copy(out, a.decisions)
	return out
}

// Transactions returns a copy of every recorded transaction.
func (a *Adapter) Transactions() []domain.TransactionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.TransactionRecord, len(a.txs))
	copy(out, a.txs)
	return out
}
