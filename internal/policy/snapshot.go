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

package policy

import (
	"sync/atomic"

	"github.com/chainrisk/riskengine/internal/rules"
)

// SnapshotSlot is the single-writer/multi-reader publish-replace slot
// rule-set snapshots flow through. One writer (the refresh subsystem)
// calls Store; any number of readers call Load once per request and
// hold the returned *rules.Set for the whole request. Publication is
// atomic: a reader never observes a partially built Set.
type SnapshotSlot struct {
	ptr atomic.Pointer[rules.Set]
}

// NewSnapshotSlot returns an empty slot. Load returns nil until the
// first Store.
func NewSnapshotSlot() *SnapshotSlot {
	return &SnapshotSlot{}
}

// Load returns the current snapshot, or nil if none has been published
// yet (callers must treat nil as PolicyUnavailable).
func (s *SnapshotSlot) Load() *rules.Set {
	return s.ptr.Load()
}

// Store publishes a new snapshot, replacing whatever was there. Safe to
// call concurrently with Load from any number of readers; never safe to
// call concurrently with itself from more than one writer (the refresh
// subsystem guarantees this by running as a single goroutine).
func (s *SnapshotSlot) Store(set *rules.Set) {
	s.ptr.Store(set)
}
