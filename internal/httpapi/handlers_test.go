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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainrisk/riskengine/internal/domain"
	"github.com/chainrisk/riskengine/internal/engine"
	"github.com/chainrisk/riskengine/internal/platformlog"
	"github.com/chainrisk/riskengine/internal/policy"
	"github.com/chainrisk/riskengine/internal/storage/memorystore"
)

func newTestAPI(t *testing.T, requestTimeout time.Duration) (*API, *memorystore.Adapter) {
	t.Helper()
	store := memorystore.New()
	set, err := policy.Compile(domain.Policy{
		Version: "v1",
		Rules:   []domain.RuleDefinition{{ID: "R1_OFAC", Type: domain.RuleOfacAddr, Action: "RejectFatal"}},
	}, nil)
	require.NoError(t, err)
	slot := policy.NewSnapshotSlot()
	slot.Store(set)

	eng := engine.New(store, slot, nil)
	api := NewAPI(eng, platformlog.New("test"), requestTimeout, "test-version")
	return api, store
}

func validRequestBody() []byte {
	body, _ := json.Marshal(DecisionRequest{
		EventID: "evt-1",
		Subject: SubjectWire{UserID: "U1", GeoISO: "US", KYCLevel: "L1"},
		Tx:      TxWire{Type: "Inbound", Asset: "BTC", Amount: "0.01", UsdValue: "100"},
	})
	return body
}

func TestDecisionCheckHappyPath(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/v1/decision/check", bytes.NewReader(validRequestBody()))
	rec := httptest.NewRecorder()

	api.DecisionCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DecisionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Allow", resp.Decision)
	assert.Equal(t, "v1", resp.PolicyVersion)
}

func TestDecisionCheckScreensDestAddressSeparatelyFromTxHash(t *testing.T) {
	// the engine screens against the compiled snapshot, so the sanctioned
	// address goes into Compile rather than into the store.
	set, err := policy.Compile(domain.Policy{
		Version: "v1",
		Rules:   []domain.RuleDefinition{{ID: "R1_OFAC", Type: domain.RuleOfacAddr, Action: "RejectFatal"}},
	}, []string{"0xsanctioneddest"})
	require.NoError(t, err)
	slot := policy.NewSnapshotSlot()
	slot.Store(set)
	api := NewAPI(engine.New(memorystore.New(), slot, nil), platformlog.New("test"), 0, "test-version")

	body, _ := json.Marshal(DecisionRequest{
		EventID: "evt-2",
		TxHash:  "0xclean",
		Subject: SubjectWire{UserID: "U1", GeoISO: "US", KYCLevel: "L1"},
		Tx:      TxWire{Type: "Inbound", Asset: "BTC", Amount: "0.01", UsdValue: "100", DestAddress: "0xSanctionedDest"},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/decision/check", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	api.DecisionCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DecisionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "RejectFatal", resp.Decision)
	require.Len(t, resp.Evidence, 1)
	assert.Equal(t, "0xsanctioneddest", resp.Evidence[0].Value)
}

func TestDecisionCheckMalformedJSON(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/v1/decision/check", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	api.DecisionCheck(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ValidationError", resp.Kind)
	assert.NotEmpty(t, resp.CorrelationID)
}

func TestDecisionCheckMissingUserID(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	body, _ := json.Marshal(DecisionRequest{Tx: TxWire{UsdValue: "100"}})
	req := httptest.NewRequest(http.MethodPost, "/v1/decision/check", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	api.DecisionCheck(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecisionCheckNonNumericUsdValue(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	body, _ := json.Marshal(DecisionRequest{Subject: SubjectWire{UserID: "U1"}, Tx: TxWire{UsdValue: "not-a-number"}})
	req := httptest.NewRequest(http.MethodPost, "/v1/decision/check", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	api.DecisionCheck(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecisionCheckNegativeUsdValue(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	body, _ := json.Marshal(DecisionRequest{Subject: SubjectWire{UserID: "U1"}, Tx: TxWire{UsdValue: "-5"}})
	req := httptest.NewRequest(http.MethodPost, "/v1/decision/check", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	api.DecisionCheck(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecisionCheckStorageFailureReturns500(t *testing.T) {
	api, store := newTestAPI(t, 0)
	store.PresetErr("UpsertSubject", errors.New("connection reset"))

	req := httptest.NewRequest(http.MethodPost, "/v1/decision/check", bytes.NewReader(validRequestBody()))
	rec := httptest.NewRecorder()

	api.DecisionCheck(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthNeverProbesStorageAndAlwaysOK(t *testing.T) {
	api, store := newTestAPI(t, 0)
	store.PresetErr("Ping", errors.New("down"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	api.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "v1", resp.PolicyVersion)
}

func TestReadyOKWhenStorageHealthy(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	api.Ready(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)
	assert.Equal(t, 1, resp.InlineRules)
}

func TestReadyUnavailableWhenStorageDown(t *testing.T) {
	api, store := newTestAPI(t, 0)
	store.PresetErr("Ping", errors.New("down"))

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	api.Ready(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadyUnavailableWithoutSnapshot(t *testing.T) {
	store := memorystore.New()
	slot := policy.NewSnapshotSlot()
	eng := engine.New(store, slot, nil)
	api := NewAPI(eng, platformlog.New("test"), 0, "v")

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	api.Ready(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// slowStore.UpsertSubject blocks past the request timeout so
// DecisionCheck must surface KindTimeout.
type slowStore struct {
	*memorystore.Adapter
	delay time.Duration
}

func (s *slowStore) UpsertSubject(ctx context.Context, subject domain.Subject) (int64, error) {
	select {
	case <-time.After(s.delay):
		return s.Adapter.UpsertSubject(ctx, subject)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func TestDecisionCheckTimesOutUnderDeadline(t *testing.T) {
	store := &slowStore{Adapter: memorystore.New(), delay: 50 * time.Millisecond}
	set, err := policy.Compile(domain.Policy{
		Version: "v1",
		Rules:   []domain.RuleDefinition{{ID: "R1_OFAC", Type: domain.RuleOfacAddr, Action: "RejectFatal"}},
	}, nil)
	require.NoError(t, err)
	slot := policy.NewSnapshotSlot()
	slot.Store(set)
	eng := engine.New(store, slot, nil)
	api := NewAPI(eng, platformlog.New("test"), 5*time.Millisecond, "v")

	req := httptest.NewRequest(http.MethodPost, "/v1/decision/check", bytes.NewReader(validRequestBody()))
	rec := httptest.NewRecorder()
	api.DecisionCheck(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Timeout", resp.Kind)
}
