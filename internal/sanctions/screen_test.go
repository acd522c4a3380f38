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

package sanctions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScreenExactMatch(t *testing.T) {
	screen := Build([]string{"0xDEADBEEF", "0xcafebabe"})
	assert.True(t, screen.Contains("0xdeadbeef"))
	assert.True(t, screen.Contains("0xDEADBEEF"))
	assert.True(t, screen.Contains("0xCafeBabe"))
	assert.False(t, screen.Contains("0x1234"))
}

func TestScreenEmptySetNeverMatches(t *testing.T) {
	screen := Build(nil)
	assert.False(t, screen.Contains("0xdeadbeef"))
	assert.Equal(t, 0, screen.Size())
}

func TestScreenNilSafe(t *testing.T) {
	var screen *Screen
	assert.False(t, screen.Contains("anything"))
	assert.Equal(t, 0, screen.Size())
}

func TestScreenSize(t *testing.T) {
	screen := Build([]string{"a", "b", "a"})
	assert.Equal(t, 2, screen.Size())
}
