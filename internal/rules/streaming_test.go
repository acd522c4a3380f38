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

package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainrisk/riskengine/internal/domain"
	"github.com/chainrisk/riskengine/internal/storage/memorystore"
)

func TestRollingVolumeRuleNoPriorState(t *testing.T) {
	store := memorystore.New()
	rule := NewRollingVolumeRule("R4_DAILY_VOLUME", domain.HoldAuto, 24*time.Hour, decimal.NewFromInt(50000))

	event := domain.TxEvent{UsdValue: decimal.NewFromInt(500)}
	result, err := rule.Evaluate(context.Background(), store, 1, event)

	require.NoError(t, err)
	assert.Equal(t, domain.NoTrigger, result)
}

func TestRollingVolumeRuleTriggersOnProspectiveSum(t *testing.T) {
	store := memorystore.New()
	fixedNow := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return fixedNow })

	_, err := store.RecordTransaction(context.Background(), domain.TransactionRecord{SubjectID: 1, UsdValue: decimal.NewFromInt(45000)})
	require.NoError(t, err)

	rule := NewRollingVolumeRule("R4_DAILY_VOLUME", domain.HoldAuto, 24*time.Hour, decimal.NewFromInt(50000))
	event := domain.TxEvent{UsdValue: decimal.NewFromInt(6000)}
	result, err := rule.Evaluate(context.Background(), store, 1, event)

	require.NoError(t, err)
	assert.True(t, result.Triggered)
	assert.Equal(t, domain.HoldAuto, result.Action)
	assert.Equal(t, "rolling_24h_usd", result.Evidence.Key)
	assert.Equal(t, "51000", result.Evidence.Value)
	assert.Equal(t, "50000", result.Evidence.Limit)
}

func TestRollingVolumeRuleExcludesExpiredTransactions(t *testing.T) {
	store := memorystore.New()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now.Add(-48 * time.Hour) })
	_, err := store.RecordTransaction(context.Background(), domain.TransactionRecord{SubjectID: 1, UsdValue: decimal.NewFromInt(45000)})
	require.NoError(t, err)

	store.SetClock(func() time.Time { return now })
	rule := NewRollingVolumeRule("R4_DAILY_VOLUME", domain.HoldAuto, 24*time.Hour, decimal.NewFromInt(50000))
	event := domain.TxEvent{UsdValue: decimal.NewFromInt(6000)}
	result, err := rule.Evaluate(context.Background(), store, 1, event)

	require.NoError(t, err)
	assert.Equal(t, domain.NoTrigger, result, "the 48h-old transaction must fall outside the 24h window")
}

func TestRollingVolumeRulePropagatesStorageError(t *testing.T) {
	store := memorystore.New()
	store.PresetErr("GetRollingVolume", errors.New("connection reset"))

	rule := NewRollingVolumeRule("R4_DAILY_VOLUME", domain.HoldAuto, 24*time.Hour, decimal.NewFromInt(50000))
	_, err := rule.Evaluate(context.Background(), store, 1, domain.TxEvent{UsdValue: decimal.NewFromInt(1)})
	assert.Error(t, err)
}

func TestStructuringRuleTriggersOnProspectiveCount(t *testing.T) {
	store := memorystore.New()
	fixedNow := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return fixedNow })

	for i := 0; i < 5; i++ {
		_, err := store.RecordTransaction(context.Background(), domain.TransactionRecord{SubjectID: 1, UsdValue: decimal.NewFromInt(100)})
		require.NoError(t, err)
	}

	rule := NewStructuringRule("R5_STRUCTURING", domain.Review, 24*time.Hour, decimal.NewFromInt(2000), 5)
	event := domain.TxEvent{UsdValue: decimal.NewFromInt(500)}
	result, err := rule.Evaluate(context.Background(), store, 1, event)

	require.NoError(t, err)
	assert.True(t, result.Triggered)
	assert.Equal(t, domain.Review, result.Action)
	assert.Equal(t, "small_cnt_24h", result.Evidence.Key)
	assert.Equal(t, "6", result.Evidence.Value)
	assert.Equal(t, "5", result.Evidence.Limit)
}

func TestStructuringRuleLargeTxNotCountedTowardProspective(t *testing.T) {
	store := memorystore.New()
	rule := NewStructuringRule("R5_STRUCTURING", domain.Review, 24*time.Hour, decimal.NewFromInt(2000), 5)
	event := domain.TxEvent{UsdValue: decimal.NewFromInt(5000)} // not "small"
	result, err := rule.Evaluate(context.Background(), store, 1, event)

	require.NoError(t, err)
	assert.Equal(t, domain.NoTrigger, result)
}

func TestWindowKeyFormatsWholeDaysHoursMinutes(t *testing.T) {
	assert.Equal(t, "rolling_24h_usd", windowKey("rolling", 24*time.Hour, "usd"))
	assert.Equal(t, "rolling_2d_usd", windowKey("rolling", 48*time.Hour, "usd"))
	assert.Equal(t, "rolling_2h_usd", windowKey("rolling", 2*time.Hour, "usd"))
	assert.Equal(t, "small_cnt_90m", windowKey("small_cnt", 90*time.Minute, ""))
}
