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

// Package sanctions is the two-tier screening structure fronting the
// sanctions address set: a probabilistic filter gives a fast negative
// answer, and an exact set confirms positive probes. Lookups are
// always case-folded to lowercase.
package sanctions

import (
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
)

// falsePositiveRate bounds the bloom filter's false-positive rate at
// the size the set was built for, per the ≤1% target.
const falsePositiveRate = 0.01

// Screen is an immutable, atomically-replaceable snapshot. A new Screen
// is built whenever the refresh subsystem observes a changed sanctions
// set; existing Screen values already handed to evaluators are never
// mutated in place.
type Screen struct {
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

// Build constructs a Screen from the full sanctions address list. An
// empty list produces a Screen that never matches, by construction of
// both tiers being empty.
func Build(addresses []string) *Screen {
	exact := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		exact[strings.ToLower(addr)] = struct{}{}
	}

	// bloom.NewWithEstimates requires n >= 1; an empty set still needs
	// a valid (non-zero-sized) filter that simply never reports a match.
	n := uint(len(exact))
	if n == 0 {
		n = 1
	}
	filter := bloom.NewWithEstimates(n, falsePositiveRate)
	for addr := range exact {
		filter.AddString(addr)
	}

	return &Screen{filter: filter, exact: exact}
}

// Contains reports whether address (any case) is sanctioned. The bloom
// filter rules out the common case of a clean address without ever
// touching the exact set; a filter hit is confirmed against the exact
// set before being trusted, since the filter alone can false-positive.
func (s *Screen) Contains(address string) bool {
	if s == nil {
		return false
	}
	lower := strings.ToLower(address)
	if !s.filter.TestString(lower) {
		return false
	}
	_, ok := s.exact[lower]
	return ok
}

// Size returns the number of distinct sanctioned addresses in the
// exact tier.
func (s *Screen) Size() int {
	if s == nil {
		return 0
	}
	return len(s.exact)
}
