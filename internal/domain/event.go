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

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the flow direction of a transaction relative to Subject.
type Direction string

const (
	Inbound  Direction = "Inbound"
	Outbound Direction = "Outbound"
)

// TxEvent is a single incoming transaction to be evaluated. UsdValue is
// an exact decimal, never a float, per the no-floating-point rule at
// every monetary boundary.
type TxEvent struct {
	SchemaVersion int
	EventID       string
	OccurredAt    time.Time
	ObservedAt    time.Time
	Subject       Subject
	Chain         string
	TxHash        string
	DestAddress   string
	Direction     Direction
	Asset         string
	Amount        decimal.Decimal
	UsdValue      decimal.Decimal
	Confirmations int64
}

// TransactionRecord is the append-only row written after Phase 2
// evaluates successfully. A Phase-1 RejectFatal short-circuit records
// no transaction.
type TransactionRecord struct {
	ID          int64
	SubjectID   int64
	TxType      string
	Asset       string
	Amount      decimal.Decimal
	UsdValue    decimal.Decimal
	DestAddress string
	CreatedAt   time.Time
}
