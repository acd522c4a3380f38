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

// Package rules implements the two rule families the engine evaluates:
// inline rules (pure functions of the event) and streaming rules
// (consult the storage port for per-subject aggregates). Both are
// modeled as capability interfaces the engine iterates over in
// declaration order, never reflecting on concrete rule types.
package rules

import (
	"context"

	"github.com/chainrisk/riskengine/internal/domain"
	"github.com/chainrisk/riskengine/internal/sanctions"
	"github.com/chainrisk/riskengine/internal/storage"
)

// Inline is a stateless rule evaluated purely against the incoming
// event. Implementations must not perform I/O and must never suspend.
type Inline interface {
	ID() string
	Evaluate(event domain.TxEvent, screen *sanctions.Screen) domain.RuleResult
}

// Streaming is a stateful rule evaluated against per-subject rolling
// aggregates fetched through the storage port.
type Streaming interface {
	ID() string
	Evaluate(ctx context.Context, store storage.Port, subjectID int64, event domain.TxEvent) (domain.RuleResult, error)
}

// Set is one ordered, immutable evaluation unit: the inline rules run
// in Phase 1, the streaming rules in Phase 2, each in declaration
// order from the active policy. A Set is built fresh by the policy
// compiler (internal/policy) every time a new policy version or
// sanctions set is observed, and is never mutated after construction.
type Set struct {
	PolicyVersion string
	Inline        []Inline
	Streaming     []Streaming
	Screen        *sanctions.Screen
}
