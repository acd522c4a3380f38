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

// Package storage defines the Port the rest of the engine depends on.
// Two implementations satisfy it: internal/storage/postgres (the
// relational adapter) and internal/storage/memorystore (a deterministic
// in-memory test double). Neither the rule engine nor the HTTP boundary
// import either implementation directly; they depend on this interface.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chainrisk/riskengine/internal/domain"
)

// Port is the asynchronous storage boundary. "Asynchronous" in Go terms
// means every method takes a context.Context and may block on I/O;
// callers run it in the normal goroutine-per-request model rather than
// a callback or future type.
//
// The postgres adapter fails with an *engineerr.Error carrying
// KindStorageTransient or KindStoragePermanent; the in-memory double
// returns preset errors as given, without a Kind, and the engine
// classifies those itself. Callers never translate a storage failure
// into Allow.
type Port interface {
	// GetSubjectByUserID returns the stored subject for user_id, or
	// found=false if none exists yet.
	GetSubjectByUserID(ctx context.Context, userID string) (domain.StoredSubject, bool, error)

	// UpsertSubject creates or updates a subject. Mutable fields
	// (account_id, kyc_tier, geo_iso) are last-write-wins; Addresses
	// union-extend with whatever is already stored. Calling with an
	// unchanged Subject twice is idempotent: it returns the same id
	// both times and leaves stored state unchanged apart from updated_at.
	UpsertSubject(ctx context.Context, subject domain.Subject) (int64, error)

	// RecordTransaction appends a transaction row and returns its id.
	RecordTransaction(ctx context.Context, tx domain.TransactionRecord) (int64, error)

	// GetRollingVolume sums usd_value for subjectID over transactions
	// with created_at > now-window. Does NOT include the current,
	// not-yet-recorded event — the engine adds that contribution itself.
	// Returns zero for a subject with no prior transactions.
	GetRollingVolume(ctx context.Context, subjectID int64, window time.Duration) (decimal.Decimal, error)

	// GetSmallTxCount counts transactions for subjectID with
	// created_at > now-window and usd_value < threshold. Returns zero for
	// a subject with no prior transactions.
	GetSmallTxCount(ctx context.Context, subjectID int64, window time.Duration, threshold decimal.Decimal) (int64, error)

	// GetAllSanctions returns the full sanctions address list, order
	// unspecified.
	GetAllSanctions(ctx context.Context) ([]string, error)

	// UpsertSanctions adds addresses to the sanctions set, skipping any
	// already present. Addresses are compared case-insensitively.
	// Used on first boot to seed the store from SANCTIONS_LIST_PATH;
	// safe to call repeatedly.
	UpsertSanctions(ctx context.Context, addresses []string) error

	// IsSanctioned reports whether address (any case) is sanctioned.
	IsSanctioned(ctx context.Context, address string) (bool, error)

	// GetActivePolicy returns the currently active policy document, or
	// found=false if none has been activated yet.
	GetActivePolicy(ctx context.Context) (domain.Policy, bool, error)

	// SetActivePolicy atomically activates version, deactivating
	// whichever policy was previously active. policyJSON is the raw
	// serialized document stored alongside the version for audit/replay.
	SetActivePolicy(ctx context.Context, policy domain.Policy, policyJSON []byte) error

	// RecordDecision appends a decision audit row and returns its id.
	RecordDecision(ctx context.Context, rec domain.DecisionRecord) (int64, error)

	// Ping performs a lightweight round-trip used by the /ready probe.
	Ping(ctx context.Context) error
}
