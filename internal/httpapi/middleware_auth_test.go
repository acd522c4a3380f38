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

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passthroughHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func signedToken(t *testing.T, secret []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestBearerAuthNoopWithoutSecret(t *testing.T) {
	handler := BearerAuth(nil, passthroughHandler())
	req := httptest.NewRequest(http.MethodPost, "/v1/decision/check", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerAuthBypassesHealthReadyMetrics(t *testing.T) {
	secret := []byte("supersecret")
	handler := BearerAuth(secret, passthroughHandler())

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "path %s should bypass auth", path)
	}
}

func TestBearerAuthMissingTokenRejected(t *testing.T) {
	secret := []byte("supersecret")
	handler := BearerAuth(secret, passthroughHandler())
	req := httptest.NewRequest(http.MethodPost, "/v1/decision/check", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuthInvalidTokenRejected(t *testing.T) {
	secret := []byte("supersecret")
	handler := BearerAuth(secret, passthroughHandler())
	req := httptest.NewRequest(http.MethodPost, "/v1/decision/check", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuthWrongSecretRejected(t *testing.T) {
	secret := []byte("supersecret")
	handler := BearerAuth(secret, passthroughHandler())
	req := httptest.NewRequest(http.MethodPost, "/v1/decision/check", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, []byte("wrong-secret")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuthValidTokenPasses(t *testing.T) {
	secret := []byte("supersecret")
	handler := BearerAuth(secret, passthroughHandler())
	req := httptest.NewRequest(http.MethodPost, "/v1/decision/check", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, secret))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
