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

package httpapi

import "errors"

var (
	errMissingUserID    = errors.New("subject.user_id is required")
	errInvalidAmount    = errors.New("tx.amount is not a valid decimal")
	errInvalidUsdValue  = errors.New("tx.usd_value is not a valid decimal")
	errNegativeUsdValue = errors.New("tx.usd_value must be >= 0")
)
