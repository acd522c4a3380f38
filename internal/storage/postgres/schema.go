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

package postgres

import (
	"context"
	"database/sql"
)

// schemaDDL realizes the persisted state layout: subjects,
// subject_addresses, transactions, sanctions, policies, decisions,
// with the indices the storage port's contract requires. Applied with
// idempotent CREATE-IF-NOT-EXISTS statements rather than a migration
// framework — no migration tool appears anywhere in the retrieved
// reference pack, so initializeSchema-style inline DDL is followed.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS subjects (
    id          BIGSERIAL PRIMARY KEY,
    user_id     TEXT NOT NULL UNIQUE,
    account_id  TEXT NOT NULL DEFAULT '',
    geo_iso     TEXT NOT NULL DEFAULT '',
    kyc_tier    TEXT NOT NULL DEFAULT 'L0',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS subject_addresses (
    subject_id BIGINT NOT NULL REFERENCES subjects(id),
    address    TEXT NOT NULL,
    PRIMARY KEY (subject_id, address)
);

CREATE TABLE IF NOT EXISTS transactions (
    id           BIGSERIAL PRIMARY KEY,
    subject_id   BIGINT REFERENCES subjects(id),
    tx_type      TEXT NOT NULL,
    asset        TEXT NOT NULL,
    amount       NUMERIC NOT NULL,
    usd_value    NUMERIC NOT NULL,
    dest_address TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_transactions_subject_created
    ON transactions (subject_id, created_at DESC);

CREATE TABLE IF NOT EXISTS sanctions (
    address TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS policies (
    version    TEXT PRIMARY KEY,
    active     BOOLEAN NOT NULL DEFAULT false,
    document   JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_policies_one_active
    ON policies (active) WHERE active;

CREATE TABLE IF NOT EXISTS decisions (
    id             BIGSERIAL PRIMARY KEY,
    subject_id     BIGINT REFERENCES subjects(id),
    request        JSONB NOT NULL,
    decision       TEXT NOT NULL,
    decision_code  TEXT NOT NULL,
    policy_version TEXT NOT NULL,
    evidence       JSONB NOT NULL,
    latency_ms     DOUBLE PRECISION NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_decisions_subject_created
    ON decisions (subject_id, created_at DESC);
`

// applySchema runs schemaDDL. Safe to call on every startup; every
// statement is idempotent.
func applySchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}
