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

// Package httpapi is the thin HTTP boundary over the decision engine:
// request/response JSON shapes and the gorilla/mux router that wires
// them to handlers (§4.8/§6). No rule or storage logic lives here.
package httpapi

import "time"

// SubjectWire is the wire shape of a request's subject sub-record.
// Field names match §6 exactly, including the kyc_level spelling
// (the domain type calls the same concept KYCTier).
type SubjectWire struct {
	UserID    string   `json:"user_id"`
	AccountID string   `json:"account_id"`
	Addresses []string `json:"addresses"`
	GeoISO    string   `json:"geo_iso"`
	KYCLevel  string   `json:"kyc_level"`
}

// TxWire is the wire shape of a request's transaction sub-record.
type TxWire struct {
	Type        string `json:"type"`
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	UsdValue    string `json:"usd_value"`
	DestAddress string `json:"dest_address"`
}

// DecisionRequest is the POST /v1/decision/check request body.
type DecisionRequest struct {
	SchemaVersion int         `json:"schema_version,omitempty"`
	EventID       string      `json:"event_id,omitempty"`
	OccurredAt    *time.Time  `json:"occurred_at,omitempty"`
	Chain         string      `json:"chain,omitempty"`
	TxHash        string      `json:"tx_hash,omitempty"`
	Confirmations int64       `json:"confirmations,omitempty"`
	Subject       SubjectWire `json:"subject"`
	Tx            TxWire      `json:"tx"`
}

// EvidenceWire is one element of a DecisionResponse's evidence list.
type EvidenceWire struct {
	RuleID string `json:"rule_id"`
	Key    string `json:"key"`
	Value  string `json:"value"`
	Limit  string `json:"limit,omitempty"`
}

// DecisionResponse is the POST /v1/decision/check response body.
type DecisionResponse struct {
	Decision      string         `json:"decision"`
	DecisionCode  string         `json:"decision_code"`
	PolicyVersion string         `json:"policy_version"`
	Evidence      []EvidenceWire `json:"evidence"`
}

// ErrorResponse is the body returned alongside any non-2xx status.
type ErrorResponse struct {
	Error         string `json:"error"`
	Kind          string `json:"kind"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// HealthResponse is the GET /health response body.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	PolicyVersion string  `json:"policy_version"`
	UptimeSecs    float64 `json:"uptime_secs"`
}

// ReadyResponse is the GET /ready response body.
type ReadyResponse struct {
	Ready          bool `json:"ready"`
	InlineRules    int  `json:"inline_rules"`
	StreamingRules int  `json:"streaming_rules"`
}
