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

package engineerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 400, KindValidation.HTTPStatus())
	assert.Equal(t, 500, KindStorageTransient.HTTPStatus())
	assert.Equal(t, 500, KindStoragePermanent.HTTPStatus())
	assert.Equal(t, 500, KindPolicyUnavailable.HTTPStatus())
	assert.Equal(t, 500, KindTimeout.HTTPStatus())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(KindStorageTransient, "Op", "failed", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWithCorrelationID(t *testing.T) {
	base := New(KindValidation, "Op", "bad input", nil)
	withID := base.WithCorrelationID("corr-123")
	assert.Equal(t, "", base.CorrelationID, "original must not be mutated")
	assert.Equal(t, "corr-123", withID.CorrelationID)
}

func TestAsFindsWrappedError(t *testing.T) {
	inner := New(KindStoragePermanent, "Op", "constraint violation", nil)
	wrapped := fmt.Errorf("context: %w", inner)

	kind, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindStoragePermanent, kind)
}

func TestAsFailsClosedOnUnknownError(t *testing.T) {
	kind, ok := As(errors.New("some raw driver error"))
	assert.True(t, ok)
	assert.Equal(t, KindStoragePermanent, kind)
}

func TestAsNil(t *testing.T) {
	_, ok := As(nil)
	assert.False(t, ok)
}
