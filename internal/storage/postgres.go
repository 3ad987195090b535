package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// PostgresStore is the durable Store and audit Ledger backed by PostgreSQL.
// Audit sequence numbers are assigned under a per-partition advisory lock so
// they stay gapless even with concurrent writers.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool against dsn, verifies
// connectivity, and applies embedded migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading embedded migrations: %w", err)
	}
	for _, e := range entries {
		raw, err := migrationFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", e.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(raw)); err != nil {
			return fmt.Errorf("applying migration %s: %w", e.Name(), err)
		}
	}
	return nil
}

// --- resources ---

func (s *PostgresStore) SaveResource(ctx context.Context, res *models.ResourceEntity) error {
	samples, err := json.Marshal(res.Samples)
	if err != nil {
		return fmt.Errorf("encoding samples for %s: %w", res.ResourceID, err)
	}
	tags, err := json.Marshal(res.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags for %s: %w", res.ResourceID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resources (resource_id, provider, type, region, current_state,
			provisioned_capacity, monthly_cost_usd, last_seen_at, samples, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (resource_id) DO UPDATE SET
			provider = EXCLUDED.provider,
			type = EXCLUDED.type,
			region = EXCLUDED.region,
			current_state = EXCLUDED.current_state,
			provisioned_capacity = EXCLUDED.provisioned_capacity,
			monthly_cost_usd = EXCLUDED.monthly_cost_usd,
			last_seen_at = EXCLUDED.last_seen_at,
			samples = EXCLUDED.samples,
			tags = EXCLUDED.tags`,
		res.ResourceID, res.Provider, res.Type, res.Region, res.State,
		res.ProvisionedCapacity, res.MonthlyCostUSD, res.LastSeenAt, samples, tags)
	if err != nil {
		return fmt.Errorf("saving resource %s: %w", res.ResourceID, err)
	}
	return nil
}

func (s *PostgresStore) GetResource(ctx context.Context, resourceID string) (*models.ResourceEntity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT resource_id, provider, type, region, current_state,
			provisioned_capacity, monthly_cost_usd, last_seen_at, samples, tags
		FROM resources WHERE resource_id = $1`, resourceID)
	res, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resource %s: %w", resourceID, ErrNotFound)
	}
	return res, err
}

func (s *PostgresStore) ListResources(ctx context.Context) ([]*models.ResourceEntity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT resource_id, provider, type, region, current_state,
			provisioned_capacity, monthly_cost_usd, last_seen_at, samples, tags
		FROM resources ORDER BY resource_id`)
	if err != nil {
		return nil, fmt.Errorf("listing resources: %w", err)
	}
	defer rows.Close()

	var out []*models.ResourceEntity
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*models.ResourceEntity, error) {
	var (
		res     models.ResourceEntity
		samples []byte
		tags    []byte
	)
	err := row.Scan(&res.ResourceID, &res.Provider, &res.Type, &res.Region,
		&res.State, &res.ProvisionedCapacity, &res.MonthlyCostUSD,
		&res.LastSeenAt, &samples, &tags)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(samples, &res.Samples); err != nil {
		return nil, fmt.Errorf("decoding samples for %s: %w", res.ResourceID, err)
	}
	if err := json.Unmarshal(tags, &res.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags for %s: %w", res.ResourceID, err)
	}
	return &res, nil
}

// --- recommendations ---

func (s *PostgresStore) SaveRecommendation(ctx context.Context, rec *models.Recommendation) error {
	params, err := json.Marshal(rec.ActionParams)
	if err != nil {
		return fmt.Errorf("encoding action params for %s: %w", rec.ID, err)
	}
	evidence, err := json.Marshal(rec.Evidence)
	if err != nil {
		return fmt.Errorf("encoding evidence for %s: %w", rec.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recommendations (id, rule_id, resource_id, action_type,
			action_params, estimated_monthly_savings_usd, confidence, evidence,
			explanation, status, created_at, updated_at, attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			attempts = EXCLUDED.attempts,
			explanation = EXCLUDED.explanation`,
		rec.ID, rec.RuleID, rec.ResourceID, rec.ActionType, params,
		rec.EstimatedMonthlySavings, rec.Confidence, evidence,
		rec.Explanation, rec.Status, rec.CreatedAt, rec.UpdatedAt, rec.Attempts)
	if err != nil {
		return fmt.Errorf("saving recommendation %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetRecommendation(ctx context.Context, id string) (*models.Recommendation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, rule_id, resource_id, action_type, action_params,
			estimated_monthly_savings_usd, confidence, evidence, explanation,
			status, created_at, updated_at, attempts
		FROM recommendations WHERE id = $1`, id)
	rec, err := scanRecommendation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
	}
	return rec, err
}

func (s *PostgresStore) ListRecommendations(ctx context.Context, statuses ...models.RecommendationStatus) ([]*models.Recommendation, error) {
	query := `
		SELECT id, rule_id, resource_id, action_type, action_params,
			estimated_monthly_savings_usd, confidence, evidence, explanation,
			status, created_at, updated_at, attempts
		FROM recommendations`
	var args []any
	if len(statuses) > 0 {
		in := make([]string, len(statuses))
		for i, st := range statuses {
			in[i] = fmt.Sprintf("$%d", i+1)
			args = append(args, st)
		}
		query += " WHERE status IN (" + strings.Join(in, ", ") + ")"
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing recommendations: %w", err)
	}
	defer rows.Close()

	var out []*models.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecommendation(row rowScanner) (*models.Recommendation, error) {
	var (
		rec      models.Recommendation
		params   []byte
		evidence []byte
	)
	err := row.Scan(&rec.ID, &rec.RuleID, &rec.ResourceID, &rec.ActionType,
		&params, &rec.EstimatedMonthlySavings, &rec.Confidence, &evidence,
		&rec.Explanation, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt, &rec.Attempts)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(params, &rec.ActionParams); err != nil {
		return nil, fmt.Errorf("decoding action params for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(evidence, &rec.Evidence); err != nil {
		return nil, fmt.Errorf("decoding evidence for %s: %w", rec.ID, err)
	}
	return &rec, nil
}

// --- anomaly events ---

func (s *PostgresStore) SaveAnomaly(ctx context.Context, ev *models.AnomalyEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO anomaly_events (id, dimension_kind, dimension_key, metric,
			baseline_mean, baseline_stddev, observed_value, deviation_score,
			severity, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.Dimension.Kind, ev.Dimension.Key, ev.Metric,
		ev.BaselineMean, ev.BaselineStddev, ev.Observed, ev.DeviationScore,
		ev.Severity, ev.DetectedAt)
	if err != nil {
		return fmt.Errorf("saving anomaly %s: %w", ev.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetAnomaly(ctx context.Context, id string) (*models.AnomalyEvent, error) {
	var ev models.AnomalyEvent
	err := s.db.QueryRowContext(ctx, `
		SELECT id, dimension_kind, dimension_key, metric, baseline_mean,
			baseline_stddev, observed_value, deviation_score, severity, detected_at
		FROM anomaly_events WHERE id = $1`, id).
		Scan(&ev.ID, &ev.Dimension.Kind, &ev.Dimension.Key, &ev.Metric,
			&ev.BaselineMean, &ev.BaselineStddev, &ev.Observed,
			&ev.DeviationScore, &ev.Severity, &ev.DetectedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("anomaly %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting anomaly %s: %w", id, err)
	}
	return &ev, nil
}

// --- forecasts ---

func (s *PostgresStore) SaveForecast(ctx context.Context, series *models.ForecastSeries) error {
	points, err := json.Marshal(series.Points)
	if err != nil {
		return fmt.Errorf("encoding forecast points for %s: %w", series.Dimension, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning forecast transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE forecast_series SET is_current = FALSE
		WHERE dimension_kind = $1 AND dimension_key = $2 AND is_current`,
		series.Dimension.Kind, series.Dimension.Key)
	if err != nil {
		return fmt.Errorf("superseding forecast for %s: %w", series.Dimension, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO forecast_series (dimension_kind, dimension_key, horizon_days,
			points, generated_at, model_version, is_current)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)`,
		series.Dimension.Kind, series.Dimension.Key, series.HorizonDays,
		points, series.GeneratedAt, series.ModelVersion)
	if err != nil {
		return fmt.Errorf("saving forecast for %s: %w", series.Dimension, err)
	}
	return tx.Commit()
}

func (s *PostgresStore) CurrentForecast(ctx context.Context, dim models.Dimension) (*models.ForecastSeries, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT dimension_kind, dimension_key, horizon_days, points, generated_at, model_version
		FROM forecast_series
		WHERE dimension_kind = $1 AND dimension_key = $2 AND is_current`,
		dim.Kind, dim.Key)
	series, err := scanForecast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("forecast for %s: %w", dim, ErrNotFound)
	}
	return series, err
}

func (s *PostgresStore) ForecastHistory(ctx context.Context, dim models.Dimension) ([]*models.ForecastSeries, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dimension_kind, dimension_key, horizon_days, points, generated_at, model_version
		FROM forecast_series
		WHERE dimension_kind = $1 AND dimension_key = $2
		ORDER BY id`, dim.Kind, dim.Key)
	if err != nil {
		return nil, fmt.Errorf("listing forecast history for %s: %w", dim, err)
	}
	defer rows.Close()

	var out []*models.ForecastSeries
	for rows.Next() {
		series, err := scanForecast(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, series)
	}
	return out, rows.Err()
}

func scanForecast(row rowScanner) (*models.ForecastSeries, error) {
	var (
		series models.ForecastSeries
		points []byte
	)
	err := row.Scan(&series.Dimension.Kind, &series.Dimension.Key,
		&series.HorizonDays, &points, &series.GeneratedAt, &series.ModelVersion)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(points, &series.Points); err != nil {
		return nil, fmt.Errorf("decoding forecast points for %s: %w", series.Dimension, err)
	}
	return &series, nil
}

// --- approval decisions ---

func (s *PostgresStore) SaveDecision(ctx context.Context, dec *models.ApprovalDecision) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO approval_decisions (recommendation_id, decision, actor, decided_at, rationale)
		VALUES ($1, $2, $3, $4, $5)`,
		dec.RecommendationID, dec.Decision, dec.Actor, dec.Timestamp, dec.Rationale)
	if err != nil {
		return fmt.Errorf("saving decision for %s: %w", dec.RecommendationID, err)
	}
	return nil
}

func (s *PostgresStore) DecisionsFor(ctx context.Context, recommendationID string) ([]*models.ApprovalDecision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recommendation_id, decision, actor, decided_at, rationale
		FROM approval_decisions WHERE recommendation_id = $1 ORDER BY id`,
		recommendationID)
	if err != nil {
		return nil, fmt.Errorf("listing decisions for %s: %w", recommendationID, err)
	}
	defer rows.Close()

	var out []*models.ApprovalDecision
	for rows.Next() {
		var dec models.ApprovalDecision
		if err := rows.Scan(&dec.RecommendationID, &dec.Decision, &dec.Actor,
			&dec.Timestamp, &dec.Rationale); err != nil {
			return nil, err
		}
		out = append(out, &dec)
	}
	return out, rows.Err()
}

// --- audit ledger ---

// Append implements audit.Ledger. The per-partition advisory lock serializes
// sequence assignment so numbers stay gapless under concurrent writers; the
// lock is released automatically at transaction end.
func (s *PostgresStore) Append(ctx context.Context, entry models.AuditEntry) (models.AuditEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("beginning audit transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, entry.Partition); err != nil {
		return models.AuditEntry{}, fmt.Errorf("locking audit partition %s: %w", entry.Partition, err)
	}

	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(sequence_no), 0) + 1 FROM audit_entries WHERE partition = $1`,
		entry.Partition).Scan(&entry.SequenceNo)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("assigning audit sequence in %s: %w", entry.Partition, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_entries (partition, sequence_no, entity_type, entity_id,
			from_state, to_state, actor, recorded_at, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.Partition, entry.SequenceNo, entry.EntityType, entry.EntityID,
		entry.FromState, entry.ToState, entry.Actor, entry.Timestamp, entry.Detail)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("appending audit entry in %s: %w", entry.Partition, err)
	}
	if err := tx.Commit(); err != nil {
		return models.AuditEntry{}, fmt.Errorf("committing audit entry in %s: %w", entry.Partition, err)
	}
	return entry, nil
}

// Entries implements audit.Ledger.
func (s *PostgresStore) Entries(ctx context.Context, partition string) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT partition, sequence_no, entity_type, entity_id, from_state,
			to_state, actor, recorded_at, detail
		FROM audit_entries WHERE partition = $1 ORDER BY sequence_no`, partition)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries for %s: %w", partition, err)
	}
	defer rows.Close()
	return collectAuditRows(rows)
}

// EntriesByEntity implements audit.Ledger.
func (s *PostgresStore) EntriesByEntity(ctx context.Context, entityType models.EntityType, entityID string) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT partition, sequence_no, entity_type, entity_id, from_state,
			to_state, actor, recorded_at, detail
		FROM audit_entries WHERE entity_type = $1 AND entity_id = $2
		ORDER BY recorded_at, sequence_no`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries for %s %s: %w", entityType, entityID, err)
	}
	defer rows.Close()
	return collectAuditRows(rows)
}

// LastByEntity implements audit.Ledger.
func (s *PostgresStore) LastByEntity(ctx context.Context, entityType models.EntityType, entityID string) (*models.AuditEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT partition, sequence_no, entity_type, entity_id, from_state,
			to_state, actor, recorded_at, detail
		FROM audit_entries WHERE entity_type = $1 AND entity_id = $2
		ORDER BY recorded_at DESC, sequence_no DESC LIMIT 1`, entityType, entityID)

	var e models.AuditEntry
	err := row.Scan(&e.Partition, &e.SequenceNo, &e.EntityType, &e.EntityID,
		&e.FromState, &e.ToState, &e.Actor, &e.Timestamp, &e.Detail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting last audit entry for %s %s: %w", entityType, entityID, err)
	}
	return &e, nil
}

func collectAuditRows(rows *sql.Rows) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.Partition, &e.SequenceNo, &e.EntityType, &e.EntityID,
			&e.FromState, &e.ToState, &e.Actor, &e.Timestamp, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
