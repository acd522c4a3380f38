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

	"github.com/go-redis/redis/v8"
)

// invalidationChannel is the pub/sub channel operators (or another
// instance's policy-write path) publish to after changing the active
// policy or sanctions set.
const invalidationChannel = "riskengine:refresh-invalidate"

// RedisInvalidator is the optional cross-instance refresh hint of
// §4.13. It is strictly an optimization: the Refresher already polls
// on its own interval, so a missed or delayed pub/sub message never
// produces stale-beyond-the-interval behavior.
type RedisInvalidator struct {
	client *redis.Client
}

// NewRedisInvalidator wraps client without subscribing; each Wait call
// subscribes to the invalidation channel for as long as it blocks.
func NewRedisInvalidator(client *redis.Client) *RedisInvalidator {
	return &RedisInvalidator{client: client}
}

// Wait blocks until a message is published on the invalidation channel
// or ctx is done.
func (r *RedisInvalidator) Wait(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, invalidationChannel)
	defer func() { _ = sub.Close() }()

	_, err := sub.ReceiveMessage(ctx)
	return err
}

// Publish notifies every subscribed instance that the active policy or
// sanctions set changed. Called by operator tooling or by whichever
// instance performed the write; never required for correctness.
func Publish(ctx context.Context, client *redis.Client) error {
	return client.Publish(ctx, invalidationChannel, "changed").Err()
}
