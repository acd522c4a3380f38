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

import "time"

// Evidence is the structured justification a single triggered rule
// attaches to a decision. Value and Limit are strings: rules format
// their own domain values (decimals, counts, ISO codes) into text so
// the engine never has to special-case evidence rendering per rule
// type.
type Evidence struct {
	RuleID string
	Key    string
	Value  string
	Limit  string // empty when the rule has no limit to report
}

// RuleResult is what a rule returns from one evaluation. A non-triggering
// rule returns Triggered=false and the zero Evidence.
type RuleResult struct {
	Triggered bool
	Action    Decision
	Evidence  Evidence
}

// NoTrigger is the canonical non-triggering RuleResult.
var NoTrigger = RuleResult{}

// DecisionRecord is the audit row written exactly once per completed
// request, whether or not a subject was ever resolved.
type DecisionRecord struct {
	ID            int64
	SubjectID     *int64 // nil when Phase 1 short-circuited before subject resolution
	Request       []byte // serialized DecisionRequest, opaque to storage
	Decision      Decision
	DecisionCode  string
	PolicyVersion string
	Evidence      []Evidence
	LatencyMS     float64
	CreatedAt     time.Time
}
