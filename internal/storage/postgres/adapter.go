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

// Package postgres is the relational storage.Port adapter: schema,
// upsert/query/insert logic, and connection-pool lifecycle, grounded
// on the teacher's connectors/postgres connector and its
// db_dynamic_policies.go pool-configuration idiom.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/chainrisk/riskengine/internal/domain"
	"github.com/chainrisk/riskengine/internal/engineerr"
)

// Config configures the connection pool. Zero values fall back to the
// teacher's own defaults (max_open_conns=25, max_idle_conns=5,
// conn_max_lifetime=5m).
type Config struct {
	ConnectionURL      string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	MigrateOnStart     bool
}

// Adapter implements storage.Port against a PostgreSQL database.
type Adapter struct {
	db *sql.DB
}

// Open establishes the connection pool and, if cfg.MigrateOnStart,
// applies the schema.
func Open(ctx context.Context, cfg Config) (*Adapter, error) {
	db, err := sql.Open("postgres", cfg.ConnectionURL)
	if err != nil {
		return nil, engineerr.New(engineerr.KindStoragePermanent, "Open", "failed to open connection", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime == 0 {
		lifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	if err := db.PingContext(ctx); err != nil {
		return nil, engineerr.New(engineerr.KindStorageTransient, "Open", "failed to ping database", err)
	}

	a := &Adapter{db: db}
	if cfg.MigrateOnStart {
		if err := applySchema(ctx, db); err != nil {
			return nil, engineerr.New(engineerr.KindStoragePermanent, "Open", "failed to apply schema", err)
		}
	}
	return a, nil
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	return a.db.Close()
}

func classifyErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return err
	}
	kind := engineerr.KindStorageTransient
	if strings.Contains(err.Error(), "constraint") || strings.Contains(err.Error(), "syntax") {
		kind = engineerr.KindStoragePermanent
	}
	return engineerr.New(kind, op, "storage operation failed", err)
}

func (a *Adapter) GetSubjectByUserID(ctx context.Context, userID string) (domain.StoredSubject, bool, error) {
	var out domain.StoredSubject
	row := a.db.QueryRowContext(ctx, `
		SELECT id, user_id, account_id, geo_iso, kyc_tier
		FROM subjects WHERE user_id = $1`, userID)

	var geoISO, kycTier string
	if err := row.Scan(&out.ID, &out.UserID, &out.AccountID, &geoISO, &kycTier); err != nil {
		if err == sql.ErrNoRows {
			return domain.StoredSubject{}, false, nil
		}
		return domain.StoredSubject{}, false, classifyErr("GetSubjectByUserID", err)
	}
	out.GeoISO = geoISO
	out.KYCTier = domain.KYCTier(kycTier)

	addrs, err := a.loadAddresses(ctx, out.ID)
	if err != nil {
		return domain.StoredSubject{}, false, classifyErr("GetSubjectByUserID", err)
	}
	out.Addresses = addrs
	return out, true, nil
}

func (a *Adapter) loadAddresses(ctx context.Context, subjectID int64) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT address FROM subject_addresses WHERE subject_id = $1`, subjectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var addrs []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, rows.Err()
}

// UpsertSubject is last-write-wins on account_id/kyc_tier/geo_iso and
// union-extend on addresses, implemented as a transaction so the
// address union and the subject row stay consistent.
func (a *Adapter) UpsertSubject(ctx context.Context, subject domain.Subject) (int64, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classifyErr("UpsertSubject", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO subjects (user_id, account_id, geo_iso, kyc_tier)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			geo_iso    = EXCLUDED.geo_iso,
			kyc_tier   = EXCLUDED.kyc_tier,
			updated_at = now()
		RETURNING id`,
		subject.UserID, subject.AccountID, subject.GeoISO, string(subject.KYCTier),
	).Scan(&id)
	if err != nil {
		return 0, classifyErr("UpsertSubject", err)
	}

	for _, addr := range subject.NormalizedAddresses() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO subject_addresses (subject_id, address)
			VALUES ($1, $2)
			ON CONFLICT (subject_id, address) DO NOTHING`, id, addr); err != nil {
			return 0, classifyErr("UpsertSubject", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, classifyErr("UpsertSubject", err)
	}
	return id, nil
}

func (a *Adapter) RecordTransaction(ctx context.Context, rec domain.TransactionRecord) (int64, error) {
	var id int64
	var subjectID interface{}
	if rec.SubjectID != 0 {
		subjectID = rec.SubjectID
	}
	err := a.db.QueryRowContext(ctx, `
		INSERT INTO transactions (subject_id, tx_type, asset, amount, usd_value, dest_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		subjectID, rec.TxType, rec.Asset, rec.Amount.String(), rec.UsdValue.String(), rec.DestAddress,
	).Scan(&id)
	if err != nil {
		return 0, classifyErr("RecordTransaction", err)
	}
	return id, nil
}

func (a *Adapter) GetRollingVolume(ctx context.Context, subjectID int64, window time.Duration) (decimal.Decimal, error) {
	var sumStr sql.NullString
	err := a.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(usd_value), 0)::text FROM transactions
		WHERE subject_id = $1 AND created_at > now() - make_interval(secs => $2)`,
		subjectID, window.Seconds(),
	).Scan(&sumStr)
	if err != nil {
		return decimal.Zero, classifyErr("GetRollingVolume", err)
	}
	if !sumStr.Valid || sumStr.String == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(sumStr.String)
	if err != nil {
		return decimal.Zero, classifyErr("GetRollingVolume", err)
	}
	return d, nil
}

func (a *Adapter) GetSmallTxCount(ctx context.Context, subjectID int64, window time.Duration, threshold decimal.Decimal) (int64, error) {
	var count int64
	err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE subject_id = $1
		  AND created_at > now() - make_interval(secs => $2)
		  AND usd_value < $3`,
		subjectID, window.Seconds(), threshold.String(),
	).Scan(&count)
	if err != nil {
		return 0, classifyErr("GetSmallTxCount", err)
	}
	return count, nil
}

func (a *Adapter) GetAllSanctions(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT address FROM sanctions`)
	if err != nil {
		return nil, classifyErr("GetAllSanctions", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, classifyErr("GetAllSanctions", err)
		}
		out = append(out, addr)
	}
	return out, classifyErr("GetAllSanctions", rows.Err())
}

// UpsertSanctions bulk-inserts addresses into the sanctions table inside
// a single transaction, skipping any already present.
func (a *Adapter) UpsertSanctions(ctx context.Context, addresses []string) error {
	if len(addresses) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyErr("UpsertSanctions", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, addr := range addresses {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sanctions (address) VALUES ($1)
			ON CONFLICT (address) DO NOTHING`, strings.ToLower(addr)); err != nil {
			return classifyErr("UpsertSanctions", err)
		}
	}
	return classifyErr("UpsertSanctions", tx.Commit())
}

func (a *Adapter) IsSanctioned(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := a.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM sanctions WHERE address = $1)`,
		strings.ToLower(address),
	).Scan(&exists)
	if err != nil {
		return false, classifyErr("IsSanctioned", err)
	}
	return exists, nil
}

func (a *Adapter) GetActivePolicy(ctx context.Context) (domain.Policy, bool, error) {
	var version string
	var doc []byte
	err := a.db.QueryRowContext(ctx, `
		SELECT version, document FROM policies WHERE active LIMIT 1`,
	).Scan(&version, &doc)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Policy{}, false, nil
		}
		return domain.Policy{}, false, classifyErr("GetActivePolicy", err)
	}

	var policy domain.Policy
	if err := json.Unmarshal(doc, &policy); err != nil {
		return domain.Policy{}, false, engineerr.New(engineerr.KindStoragePermanent, "GetActivePolicy", "stored policy document is corrupt", err)
	}
	return policy, true, nil
}

func (a *Adapter) SetActivePolicy(ctx context.Context, policy domain.Policy, policyJSON []byte) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyErr("SetActivePolicy", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE policies SET active = false WHERE active`); err != nil {
		return classifyErr("SetActivePolicy", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO policies (version, active, document)
		VALUES ($1, true, $2)
		ON CONFLICT (version) DO UPDATE SET active = true, document = EXCLUDED.document`,
		policy.Version, policyJSON,
	); err != nil {
		return classifyErr("SetActivePolicy", err)
	}
	return classifyErr("SetActivePolicy", tx.Commit())
}

func (a *Adapter) RecordDecision(ctx context.Context, rec domain.DecisionRecord) (int64, error) {
	evidenceJSON, err := json.Marshal(rec.Evidence)
	if err != nil {
		return 0, engineerr.New(engineerr.KindStoragePermanent, "RecordDecision", "failed to marshal evidence", err)
	}

	var subjectID interface{}
	if rec.SubjectID != nil {
		subjectID = *rec.SubjectID
	}

	var id int64
	qerr := a.db.QueryRowContext(ctx, `
		INSERT INTO decisions (subject_id, request, decision, decision_code, policy_version, evidence, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		subjectID, rec.Request, rec.Decision.String(), rec.DecisionCode, rec.PolicyVersion, evidenceJSON, rec.LatencyMS,
	).Scan(&id)
	if qerr != nil {
		return 0, classifyErr("RecordDecision", qerr)
	}
	return id, nil
}

func (a *Adapter) Ping(ctx context.Context) error {
	return classifyErr("Ping", a.db.PingContext(ctx))
}
