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
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chainrisk/riskengine/internal/domain"
	"github.com/chainrisk/riskengine/internal/engineerr"
	"github.com/chainrisk/riskengine/internal/storage"
)

// RollingVolumeRule sums usd_value over a window and triggers when the
// prospective total (including the current event) strictly exceeds
// limit. The window's expiration is delegated entirely to the store's
// created_at predicate; no in-process deque is kept.
type RollingVolumeRule struct {
	id       string
	action   domain.Decision
	window   time.Duration
	limit    decimal.Decimal
	evidence string // e.g. "rolling_24h_usd"
}

func NewRollingVolumeRule(id string, action domain.Decision, window time.Duration, limit decimal.Decimal) *RollingVolumeRule {
	return &RollingVolumeRule{
		id:       id,
		action:   action,
		window:   window,
		limit:    limit,
		evidence: windowKey("rolling", window, "usd"),
	}
}

func (r *RollingVolumeRule) ID() string { return r.id }

func (r *RollingVolumeRule) Evaluate(ctx context.Context, store storage.Port, subjectID int64, event domain.TxEvent) (domain.RuleResult, error) {
	current, err := store.GetRollingVolume(ctx, subjectID, r.window)
	if err != nil {
		return domain.RuleResult{}, engineerr.New(engineerr.KindStorageTransient, "RollingVolumeRule.Evaluate", "failed to fetch rolling volume", err)
	}

	prospective := current.Add(event.UsdValue)
	if !prospective.GreaterThan(r.limit) {
		return domain.NoTrigger, nil
	}
	return domain.RuleResult{
		Triggered: true,
		Action:    r.action,
		Evidence: domain.Evidence{
			RuleID: r.id,
			Key:    r.evidence,
			Value:  prospective.String(),
			Limit:  r.limit.String(),
		},
	}, nil
}

// StructuringRule counts small transactions (usd_value < amountThreshold)
// within a window and triggers when the prospective count strictly
// exceeds countThreshold.
type StructuringRule struct {
	id              string
	action          domain.Decision
	window          time.Duration
	amountThreshold decimal.Decimal
	countThreshold  int64
	evidence        string // e.g. "small_cnt_24h"
}

func NewStructuringRule(id string, action domain.Decision, window time.Duration, amountThreshold decimal.Decimal, countThreshold int64) *StructuringRule {
	return &StructuringRule{
		id:              id,
		action:          action,
		window:          window,
		amountThreshold: amountThreshold,
		countThreshold:  countThreshold,
		evidence:        windowKey("small_cnt", window, ""),
	}
}

func (r *StructuringRule) ID() string { return r.id }

func (r *StructuringRule) Evaluate(ctx context.Context, store storage.Port, subjectID int64, event domain.TxEvent) (domain.RuleResult, error) {
	priorCount, err := store.GetSmallTxCount(ctx, subjectID, r.window, r.amountThreshold)
	if err != nil {
		return domain.RuleResult{}, engineerr.New(engineerr.KindStorageTransient, "StructuringRule.Evaluate", "failed to fetch small-tx count", err)
	}

	prospective := priorCount
	if event.UsdValue.LessThan(r.amountThreshold) {
		prospective++
	}

	if prospective <= r.countThreshold {
		return domain.NoTrigger, nil
	}
	return domain.RuleResult{
		Triggered: true,
		Action:    r.action,
		Evidence: domain.Evidence{
			RuleID: r.id,
			Key:    r.evidence,
			Value:  fmt.Sprintf("%d", prospective),
			Limit:  fmt.Sprintf("%d", r.countThreshold),
		},
	}, nil
}

// windowKey builds a window-specific evidence key, e.g. "rolling_24h_usd"
// or "small_cnt_24h", falling back to a minute-granularity label for
// windows that aren't a whole number of hours.
func windowKey(prefix string, window time.Duration, suffix string) string {
	var label string
	switch {
	case window > 24*time.Hour && window%(24*time.Hour) == 0:
		label = fmt.Sprintf("%dd", int64(window/(24*time.Hour)))
	case window%time.Hour == 0:
		label = fmt.Sprintf("%dh", int64(window/time.Hour))
	default:
		label = fmt.Sprintf("%dm", int64(window/time.Minute))
	}
	if suffix == "" {
		return fmt.Sprintf("%s_%s", prefix, label)
	}
	return fmt.Sprintf("%s_%s_%s", prefix, label, suffix)
}
