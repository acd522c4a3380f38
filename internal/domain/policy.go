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

package domain

// RuleType enumerates the recognized rule `type` values in a policy
// document.
type RuleType string

const (
	RuleOfacAddr          RuleType = "ofac_addr"
	RuleJurisdictionBlock RuleType = "jurisdiction_block"
	RuleKycTierTxCap      RuleType = "kyc_tier_tx_cap"
	RuleDailyUsdVolume    RuleType = "daily_usd_volume"
	RuleStructuringSmall  RuleType = "structuring_small_tx"
)

// RuleDefinition is one entry of a policy document's ordered rules
// list. Fields not relevant to a given Type are left zero.
type RuleDefinition struct {
	ID     string   `json:"id" yaml:"id"`
	Type   RuleType `json:"type" yaml:"type"`
	Action string   `json:"action" yaml:"action"` // raw action string; validated/parsed into a Decision at load time

	// jurisdiction_block
	BlockedCountries []string `json:"blocked_countries,omitempty" yaml:"blocked_countries,omitempty"`

	// daily_usd_volume / structuring_small_tx windows are expressed in
	// seconds in the document and converted to time.Duration at load.
	WindowSeconds int64 `json:"window_seconds,omitempty" yaml:"window_seconds,omitempty"`

	// structuring_small_tx
	SmallUsdThreshold string `json:"small_usd_threshold,omitempty" yaml:"small_usd_threshold,omitempty"` // decimal string
	CountThreshold    int64  `json:"count_threshold,omitempty" yaml:"count_threshold,omitempty"`
}

// PolicyParams carries the policy document's scalar knobs.
type PolicyParams struct {
	DailyVolumeLimitUSD   string            `json:"daily_volume_limit_usd" yaml:"daily_volume_limit_usd"`
	StructuringSmallUSD   string            `json:"structuring_small_usd" yaml:"structuring_small_usd"`
	StructuringSmallCount int64             `json:"structuring_small_count" yaml:"structuring_small_count"`
	KycTierCapsUSD        map[string]string `json:"kyc_tier_caps_usd" yaml:"kyc_tier_caps_usd"`
}

// Policy is one versioned, immutable policy document.
type Policy struct {
	Version string         `json:"policy_version" yaml:"policy_version"`
	Params  PolicyParams   `json:"params" yaml:"params"`
	Rules   []RuleDefinition `json:"rules" yaml:"rules"`
}
