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

// Package policy loads the declarative policy document (§6) from disk,
// compiles it plus a sanctions screen into an immutable rules.Set, and
// runs the background refresh subsystem (§4.7) that republishes a new
// Set whenever the active policy version or sanctions content changes.
package policy

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/chainrisk/riskengine/internal/domain"
	"github.com/chainrisk/riskengine/internal/rules"
	"github.com/chainrisk/riskengine/internal/sanctions"
)

func windowOrDefault(seconds int64, fallbackSeconds int64) time.Duration {
	if seconds <= 0 {
		seconds = fallbackSeconds
	}
	return time.Duration(seconds) * time.Second
}

// LoadDocument reads and parses a policy document from path. The format
// is YAML, matching the teacher's own configuration-document choice
// (gopkg.in/yaml.v3 is part of its dependency set).
func LoadDocument(path string) (domain.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Policy{}, fmt.Errorf("read policy document: %w", err)
	}
	var p domain.Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return domain.Policy{}, fmt.Errorf("parse policy document: %w", err)
	}
	if p.Version == "" {
		return domain.Policy{}, fmt.Errorf("policy document missing policy_version")
	}
	return p, nil
}

// LoadSanctionsList reads a newline-delimited sanctions list, trimming
// surrounding spaces, tabs and a trailing CR from each line and skipping
// blank lines. Entries keep their original case; sanctions.Build and the
// storage adapters lowercase them.
func LoadSanctionsList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sanctions list: %w", err)
	}
	var out []string
	start := 0
	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := string(data[start:i])
			line = trimCR(line)
			if line != "" {
				out = append(out, line)
			}
			start = i + 1
		}
	}
	return out, nil
}

func trimCR(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\r' || s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	return s
}

// Compile turns a Policy document and a sanctions address list into an
// immutable rules.Set. Rule ids must be unique within the policy and
// every rule's action must parse to a valid Decision; Compile fails
// closed (returns an error) rather than silently skipping a bad rule.
func Compile(p domain.Policy, sanctionsAddrs []string) (*rules.Set, error) {
	screen := sanctions.Build(sanctionsAddrs)

	set := &rules.Set{PolicyVersion: p.Version, Screen: screen}

	seen := make(map[string]struct{}, len(p.Rules))
	for _, def := range p.Rules {
		if _, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("duplicate rule id %q in policy %s", def.ID, p.Version)
		}
		seen[def.ID] = struct{}{}

		action, ok := domain.ParseDecision(def.Action)
		if !ok {
			return nil, fmt.Errorf("rule %q: unrecognized action %q", def.ID, def.Action)
		}

		switch def.Type {
		case domain.RuleOfacAddr:
			set.Inline = append(set.Inline, rules.NewOfacAddressRule(def.ID, action))

		case domain.RuleJurisdictionBlock:
			set.Inline = append(set.Inline, rules.NewJurisdictionRule(def.ID, action, def.BlockedCountries))

		case domain.RuleKycTierTxCap:
			caps, err := parseCaps(p.Params.KycTierCapsUSD)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", def.ID, err)
			}
			set.Inline = append(set.Inline, rules.NewKycTierCapRule(def.ID, action, caps))

		case domain.RuleDailyUsdVolume:
			limit, err := decimal.NewFromString(p.Params.DailyVolumeLimitUSD)
			if err != nil {
				return nil, fmt.Errorf("rule %q: invalid daily_volume_limit_usd: %w", def.ID, err)
			}
			window := windowOrDefault(def.WindowSeconds, 24*60*60)
			set.Streaming = append(set.Streaming, rules.NewRollingVolumeRule(def.ID, action, window, limit))

		case domain.RuleStructuringSmall:
			threshold := def.SmallUsdThreshold
			if threshold == "" {
				threshold = p.Params.StructuringSmallUSD
			}
			amountThreshold, err := decimal.NewFromString(threshold)
			if err != nil {
				return nil, fmt.Errorf("rule %q: invalid small_usd_threshold: %w", def.ID, err)
			}
			count := def.CountThreshold
			if count == 0 {
				count = p.Params.StructuringSmallCount
			}
			window := windowOrDefault(def.WindowSeconds, 24*60*60)
			set.Streaming = append(set.Streaming, rules.NewStructuringRule(def.ID, action, window, amountThreshold, count))

		default:
			return nil, fmt.Errorf("rule %q: unrecognized type %q", def.ID, def.Type)
		}
	}

	return set, nil
}

func parseCaps(raw map[string]string) (map[domain.KYCTier]decimal.Decimal, error) {
	caps := make(map[domain.KYCTier]decimal.Decimal, len(raw))
	for tier, v := range raw {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid kyc_tier_caps_usd[%s]: %w", tier, err)
		}
		caps[domain.KYCTier(tier)] = d
	}
	if _, ok := caps[domain.KYCTierL0]; !ok {
		return nil, fmt.Errorf("kyc_tier_caps_usd must define an L0 cap as the fallback")
	}
	return caps, nil
}
