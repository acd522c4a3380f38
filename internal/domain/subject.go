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

import "strings"

// KYCTier is the subject's known-your-customer tier. L0 is the
// default/lowest tier and is also the fallback for unrecognized tiers.
type KYCTier string

const (
	KYCTierL0 KYCTier = "L0"
	KYCTierL1 KYCTier = "L1"
	KYCTierL2 KYCTier = "L2"
	KYCTierL3 KYCTier = "L3"
)

// Subject identifies the party behind a transaction. UserID is the
// identity key; Addresses is compared case-insensitively everywhere
// it is used (sanctions screening, storage union-extend).
type Subject struct {
	UserID    string
	AccountID string
	Addresses []string
	GeoISO    string
	KYCTier   KYCTier
}

// NormalizedAddresses returns Addresses lowercased and deduplicated,
// preserving first-seen order.
func (s Subject) NormalizedAddresses() []string {
	seen := make(map[string]struct{}, len(s.Addresses))
	out := make([]string, 0, len(s.Addresses))
	for _, a := range s.Addresses {
		lower := strings.ToLower(a)
		if lower == "" {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}

// MergeAddresses returns the union of the existing and incoming address
// sets, case-folded and deduplicated. Used by upsert_subject's
// union-extend semantics.
func MergeAddresses(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, a := range list {
			lower := strings.ToLower(a)
			if lower == "" {
				continue
			}
			if _, ok := seen[lower]; ok {
				continue
			}
			seen[lower] = struct{}{}
			out = append(out, lower)
		}
	}
	return out
}

// StoredSubject is a Subject together with the stable identifier the
// storage port assigns on first sighting.
type StoredSubject struct {
	ID int64
	Subject
}
