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
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chainrisk/riskengine/internal/domain"
	"github.com/chainrisk/riskengine/internal/sanctions"
)

// OfacAddressRule triggers when the event's dest_address/tx_hash, or
// any of the subject's addresses, matches the sanctions screen.
type OfacAddressRule struct {
	id     string
	action domain.Decision
}

func NewOfacAddressRule(id string, action domain.Decision) *OfacAddressRule {
	return &OfacAddressRule{id: id, action: action}
}

func (r *OfacAddressRule) ID() string { return r.id }

func (r *OfacAddressRule) Evaluate(event domain.TxEvent, screen *sanctions.Screen) domain.RuleResult {
	candidates := make([]string, 0, 2+len(event.Subject.Addresses))
	if event.TxHash != "" {
		candidates = append(candidates, event.TxHash)
	}
	if event.DestAddress != "" {
		candidates = append(candidates, event.DestAddress)
	}
	candidates = append(candidates, event.Subject.Addresses...)

	for _, addr := range candidates {
		if screen.Contains(addr) {
			return domain.RuleResult{
				Triggered: true,
				Action:    r.action,
				Evidence: domain.Evidence{
					RuleID: r.id,
					Key:    "address",
					Value:  strings.ToLower(addr),
				},
			}
		}
	}
	return domain.NoTrigger
}

// JurisdictionRule triggers when the subject's geo_iso is in the
// configured blocked list. Comparison is case-sensitive, matching the
// ISO-3166-1 alpha-2 codes as configured.
type JurisdictionRule struct {
	id               string
	action           domain.Decision
	blockedCountries map[string]struct{}
}

func NewJurisdictionRule(id string, action domain.Decision, blockedCountries []string) *JurisdictionRule {
	set := make(map[string]struct{}, len(blockedCountries))
	for _, c := range blockedCountries {
		set[c] = struct{}{}
	}
	return &JurisdictionRule{id: id, action: action, blockedCountries: set}
}

func (r *JurisdictionRule) ID() string { return r.id }

func (r *JurisdictionRule) Evaluate(event domain.TxEvent, _ *sanctions.Screen) domain.RuleResult {
	if _, blocked := r.blockedCountries[event.Subject.GeoISO]; !blocked {
		return domain.NoTrigger
	}
	return domain.RuleResult{
		Triggered: true,
		Action:    r.action,
		Evidence: domain.Evidence{
			RuleID: r.id,
			Key:    "geo_iso",
			Value:  event.Subject.GeoISO,
		},
	}
}

// KycTierCapRule triggers when event.usd_value exceeds the cap for the
// subject's KYC tier, strictly. An unrecognized tier falls back to the
// L0 cap.
type KycTierCapRule struct {
	id     string
	action domain.Decision
	caps   map[domain.KYCTier]decimal.Decimal
}

func NewKycTierCapRule(id string, action domain.Decision, caps map[domain.KYCTier]decimal.Decimal) *KycTierCapRule {
	return &KycTierCapRule{id: id, action: action, caps: caps}
}

func (r *KycTierCapRule) ID() string { return r.id }

func (r *KycTierCapRule) Evaluate(event domain.TxEvent, _ *sanctions.Screen) domain.RuleResult {
	cap, ok := r.caps[event.Subject.KYCTier]
	if !ok {
		cap = r.caps[domain.KYCTierL0]
	}

	if !event.UsdValue.GreaterThan(cap) {
		return domain.NoTrigger
	}
	return domain.RuleResult{
		Triggered: true,
		Action:    r.action,
		Evidence: domain.Evidence{
			RuleID: r.id,
			Key:    "usd_value",
			Value:  event.UsdValue.String(),
			Limit:  cap.String(),
		},
	}
}
