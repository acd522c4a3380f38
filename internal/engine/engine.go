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

// Package engine is the decision engine: two-phase orchestration,
// severity aggregation, evidence assembly, and audit recording (§4.1).
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/chainrisk/riskengine/internal/domain"
	"github.com/chainrisk/riskengine/internal/engineerr"
	"github.com/chainrisk/riskengine/internal/policy"
	"github.com/chainrisk/riskengine/internal/storage"
)

// Clock abstracts time.Now for deterministic latency measurement in
// tests.
type Clock func() time.Time

// Engine evaluates TxEvents against the current rule-set snapshot and
// records the outcome. It holds no per-subject state of its own;
// everything it needs for a request comes from the snapshot slot
// (rules + policy version) and the storage port (aggregates, audit).
type Engine struct {
	store storage.Port
	slot  *policy.SnapshotSlot
	clock Clock
}

// New constructs an Engine. clock defaults to time.Now when nil.
func New(store storage.Port, slot *policy.SnapshotSlot, clock Clock) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{store: store, slot: slot, clock: clock}
}

// Outcome is what the HTTP boundary renders into a DecisionResponse.
type Outcome struct {
	Decision      domain.Decision
	DecisionCode  string
	PolicyVersion string
	Evidence      []domain.Evidence
}

// Evaluate runs the full two-phase pipeline of §4.1 for one event and
// records the outcome. requestJSON is the serialized DecisionRequest,
// stored opaquely in the audit row.
//
// Evaluate never substitutes Allow for a storage or rule failure: any
// such failure aborts evaluation and returns an *engineerr.Error, and
// no DecisionRecord is written for that request.
func (e *Engine) Evaluate(ctx context.Context, event domain.TxEvent, requestJSON []byte) (Outcome, error) {
	start := e.clock()

	set := e.slot.Load()
	if set == nil {
		return Outcome{}, engineerr.New(engineerr.KindPolicyUnavailable, "Evaluate", "no active policy snapshot loaded", nil)
	}

	maxDecision := domain.Allow
	decisionCode := domain.OKCode
	var evidence []domain.Evidence

	// Phase 1 — inline, pure functions of the event, sequential, no I/O.
	rejectFatal := false
	for _, rule := range set.Inline {
		result := rule.Evaluate(event, set.Screen)
		if !result.Triggered {
			continue
		}
		evidence = append(evidence, result.Evidence)
		if result.Action > maxDecision {
			maxDecision = result.Action
			decisionCode = result.Evidence.RuleID
		}
		if result.Action == domain.RejectFatal {
			rejectFatal = true
			break
		}
	}

	if rejectFatal {
		// No subject is resolved on this path (§9 Open Question #1):
		// the transaction is not recorded, only the decision, with a
		// null subject reference.
		if err := e.recordDecision(ctx, nil, requestJSON, maxDecision, decisionCode, set.PolicyVersion, evidence, start); err != nil {
			return Outcome{}, err
		}
		return Outcome{Decision: maxDecision, DecisionCode: decisionCode, PolicyVersion: set.PolicyVersion, Evidence: evidence}, nil
	}

	// Subject resolution only happens once we know Phase 2 will run.
	subjectID, err := e.store.UpsertSubject(ctx, event.Subject)
	if err != nil {
		return Outcome{}, wrapStorage("Evaluate.UpsertSubject", err)
	}

	// Phase 2 — streaming, each rule awaited sequentially so evidence
	// order stays deterministic and writes to one subject don't overlap.
	for _, rule := range set.Streaming {
		result, err := rule.Evaluate(ctx, e.store, subjectID, event)
		if err != nil {
			return Outcome{}, wrapStorage("Evaluate.Streaming."+rule.ID(), err)
		}
		if !result.Triggered {
			continue
		}
		evidence = append(evidence, result.Evidence)
		if result.Action > maxDecision {
			maxDecision = result.Action
			decisionCode = result.Evidence.RuleID
		}
	}

	txRecord := domain.TransactionRecord{
		SubjectID:   subjectID,
		TxType:      string(event.Direction),
		Asset:       event.Asset,
		Amount:      event.Amount,
		UsdValue:    event.UsdValue,
		DestAddress: event.DestAddress,
	}
	if _, err := e.store.RecordTransaction(ctx, txRecord); err != nil {
		return Outcome{}, wrapStorage("Evaluate.RecordTransaction", err)
	}

	if err := e.recordDecision(ctx, &subjectID, requestJSON, maxDecision, decisionCode, set.PolicyVersion, evidence, start); err != nil {
		return Outcome{}, err
	}

	return Outcome{Decision: maxDecision, DecisionCode: decisionCode, PolicyVersion: set.PolicyVersion, Evidence: evidence}, nil
}

func (e *Engine) recordDecision(ctx context.Context, subjectID *int64, requestJSON []byte, decision domain.Decision, code, policyVersion string, evidence []domain.Evidence, start time.Time) error {
	latencyMS := float64(e.clock().Sub(start).Microseconds()) / 1000.0
	rec := domain.DecisionRecord{
		SubjectID:     subjectID,
		Request:       requestJSON,
		Decision:      decision,
		DecisionCode:  code,
		PolicyVersion: policyVersion,
		Evidence:      evidence,
		LatencyMS:     latencyMS,
	}
	if _, err := e.store.RecordDecision(ctx, rec); err != nil {
		return wrapStorage("recordDecision", err)
	}
	return nil
}

// wrapStorage normalizes a storage.Port failure into an *engineerr.Error
// so callers only ever switch on Kind. An error already carrying a Kind
// passes through unchanged; anything else is classified as a permanent
// storage failure, failing closed rather than guessing.
func wrapStorage(op string, err error) error {
	var engErr *engineerr.Error
	if errors.As(err, &engErr) {
		return engErr
	}
	return engineerr.New(engineerr.KindStoragePermanent, op, "storage operation failed", err)
}

// Ready reports whether the engine can serve requests: a policy
// snapshot must be loaded and the store must answer a lightweight
// probe successfully.
func (e *Engine) Ready(ctx context.Context) (inlineCount, streamingCount int, ready bool) {
	set := e.slot.Load()
	if set == nil {
		return 0, 0, false
	}
	if err := e.store.Ping(ctx); err != nil {
		return len(set.Inline), len(set.Streaming), false
	}
	return len(set.Inline), len(set.Streaming), true
}

// PolicyVersion returns the currently loaded policy version, or "" if
// no snapshot has been published yet.
func (e *Engine) PolicyVersion() string {
	set := e.slot.Load()
	if set == nil {
		return ""
	}
	return set.PolicyVersion
}
