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

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chainrisk/riskengine/internal/domain"
	"github.com/chainrisk/riskengine/internal/engine"
	"github.com/chainrisk/riskengine/internal/engineerr"
	"github.com/chainrisk/riskengine/internal/metrics"
	"github.com/chainrisk/riskengine/internal/platformlog"
)

// API wires the decision engine and a request-scoped timeout into
// http.HandlerFuncs. It carries no mutable state of its own.
type API struct {
	Engine         *engine.Engine
	Logger         *platformlog.Logger
	RequestTimeout time.Duration
	Version        string
	StartedAt      time.Time
}

// NewAPI constructs an API. requestTimeout defaults to 100ms (§5) when
// zero or negative.
func NewAPI(eng *engine.Engine, logger *platformlog.Logger, requestTimeout time.Duration, version string) *API {
	if requestTimeout <= 0 {
		requestTimeout = 100 * time.Millisecond
	}
	return &API{Engine: eng, Logger: logger, RequestTimeout: requestTimeout, Version: version, StartedAt: time.Now()}
}

// DecisionCheck handles POST /v1/decision/check.
func (a *API) DecisionCheck(w http.ResponseWriter, r *http.Request) {
	correlationID := uuid.NewString()

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, correlationID, engineerr.New(engineerr.KindValidation, "DecisionCheck.Decode", "malformed JSON body", err))
		return
	}
	// re-serialize the decoded request for the audit trail rather than
	// the raw body, so a DecisionRecord's request column is always
	// well-formed JSON even if the client sent extra whitespace.
	body, err := json.Marshal(req)
	if err != nil {
		a.writeError(w, correlationID, engineerr.New(engineerr.KindValidation, "DecisionCheck.Marshal", "unable to serialize request for audit", err))
		return
	}

	event, err := toDomainEvent(req)
	if err != nil {
		a.writeError(w, correlationID, engineerr.New(engineerr.KindValidation, "DecisionCheck.Validate", err.Error(), nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.RequestTimeout)
	defer cancel()

	start := time.Now()
	outcome, err := a.Engine.Evaluate(ctx, event, body)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = engineerr.New(engineerr.KindTimeout, "DecisionCheck.Evaluate", "request deadline exceeded", err)
		}
		a.observeError(err)
		a.writeError(w, correlationID, err)
		return
	}

	metrics.ObserveEvaluation(outcome.Decision.String(), elapsed)
	a.Logger.InfoWithDuration(correlationID, req.EventID, "decision evaluated", elapsed.Seconds()*1000, map[string]interface{}{
		"decision":      outcome.Decision.String(),
		"decision_code": outcome.DecisionCode,
	})

	resp := DecisionResponse{
		Decision:      outcome.Decision.String(),
		DecisionCode:  outcome.DecisionCode,
		PolicyVersion: outcome.PolicyVersion,
		Evidence:      toEvidenceWire(outcome.Evidence),
	}
	a.writeJSON(w, http.StatusOK, resp)
}

// Health handles GET /health. It never probes storage — a live process
// always answers 200.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "alive",
		Version:       a.Version,
		PolicyVersion: a.Engine.PolicyVersion(),
		UptimeSecs:    time.Since(a.StartedAt).Seconds(),
	}
	a.writeJSON(w, http.StatusOK, resp)
}

// Ready handles GET /ready: 200 only when a policy snapshot is loaded
// and storage answers a lightweight probe.
func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.RequestTimeout)
	defer cancel()

	inlineCount, streamingCount, ready := a.Engine.Ready(ctx)
	resp := ReadyResponse{Ready: ready, InlineRules: inlineCount, StreamingRules: streamingCount}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	a.writeJSON(w, status, resp)
}

func (a *API) observeError(err error) {
	if kind, ok := engineerr.As(err); ok {
		metrics.ObserveRequestError(kind.String())
		return
	}
	metrics.ObserveRequestError("Unknown")
}

func (a *API) writeError(w http.ResponseWriter, correlationID string, err error) {
	status := http.StatusInternalServerError
	kindLabel := "Unknown"
	if kind, ok := engineerr.As(err); ok {
		status = kind.HTTPStatus()
		kindLabel = kind.String()
	}
	a.Logger.Error(correlationID, "", "request failed", map[string]interface{}{
		"error": err.Error(),
		"kind":  kindLabel,
	})
	a.writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kindLabel, CorrelationID: correlationID})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// toDomainEvent validates and converts the wire request into the
// domain TxEvent the engine evaluates. Validation failures are
// KindValidation per §7: missing user_id, non-numeric usd_value/amount.
func toDomainEvent(req DecisionRequest) (domain.TxEvent, error) {
	if req.Subject.UserID == "" {
		return domain.TxEvent{}, errMissingUserID
	}

	amount := decimal.Zero
	if req.Tx.Amount != "" {
		parsed, err := decimal.NewFromString(req.Tx.Amount)
		if err != nil {
			return domain.TxEvent{}, errInvalidAmount
		}
		amount = parsed
	}

	usdValue, err := decimal.NewFromString(req.Tx.UsdValue)
	if err != nil {
		return domain.TxEvent{}, errInvalidUsdValue
	}
	if usdValue.IsNegative() {
		return domain.TxEvent{}, errNegativeUsdValue
	}

	direction := domain.Direction(req.Tx.Type)
	if direction != domain.Inbound && direction != domain.Outbound {
		direction = domain.Inbound
	}

	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	event := domain.TxEvent{
		SchemaVersion: req.SchemaVersion,
		EventID:       req.EventID,
		OccurredAt:    occurredAt,
		ObservedAt:    time.Now().UTC(),
		Subject: domain.Subject{
			UserID:    req.Subject.UserID,
			AccountID: req.Subject.AccountID,
			Addresses: req.Subject.Addresses,
			GeoISO:    req.Subject.GeoISO,
			KYCTier:   domain.KYCTier(req.Subject.KYCLevel),
		},
		Chain:         req.Chain,
		TxHash:        req.TxHash,
		DestAddress:   req.Tx.DestAddress,
		Direction:     direction,
		Asset:         req.Tx.Asset,
		Amount:        amount,
		UsdValue:      usdValue,
		Confirmations: req.Confirmations,
	}
	return event, nil
}

func toEvidenceWire(evidence []domain.Evidence) []EvidenceWire {
	out := make([]EvidenceWire, 0, len(evidence))
	for _, e := range evidence {
		out = append(out, EvidenceWire{RuleID: e.RuleID, Key: e.Key, Value: e.Value, Limit: e.Limit})
	}
	return out
}
