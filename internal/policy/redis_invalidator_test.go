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
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func newMiniredisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisInvalidatorWaitUnblocksOnPublish(t *testing.T) {
	client := newMiniredisClient(t)
	invalidator := NewRedisInvalidator(client)

	done := make(chan error, 1)
	go func() {
		done <- invalidator.Wait(context.Background())
	}()

	// give the subscriber time to establish before publishing.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, Publish(context.Background(), client))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after Publish")
	}
}

func TestRedisInvalidatorWaitRespectsContextCancellation(t *testing.T) {
	client := newMiniredisClient(t)
	invalidator := NewRedisInvalidator(client)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := invalidator.Wait(ctx)
	require.Error(t, err)
}
