package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	claimColumns = []string{
		"id", "project_id", "period_start", "period_end", "po_ref", "invoice_ref", "status", "created_at",
	}
	claimLineColumns = []string{
		"l.id", "l.claim_id", "l.service_id", "l.stage_label", "l.prev_pct", "l.curr_pct",
		"l.delta_pct", "l.amount_this_claim", "l.note",
	}
)

type ClaimRepository struct {
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewClaimRepository(log *slog.Logger) *ClaimRepository {
	return &ClaimRepository{
		log: log,
		sq:  builder(),
	}
}

func (r *ClaimRepository) LockProject(ctx context.Context, tx *sqlx.Tx, projectID int64) error {
	const op = "internal.repository.postgres.LockProject"

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", projectID); err != nil {
		return mapWriteError(op, err, "project lock")
	}

	return nil
}

func (r *ClaimRepository) LatestClaimedPct(ctx context.Context, tx *sqlx.Tx, projectID int64) (map[int64]float64, error) {
	const op = "internal.repository.postgres.LatestClaimedPct"

	query, args, err := r.sq.Select("DISTINCT ON (l.service_id) l.service_id", "l.curr_pct").
		From("billing_claim_lines l").
		Join("billing_claims c ON c.id = l.claim_id").
		Where(sq.Eq{"c.project_id": projectID}).
		OrderBy("l.service_id", "c.created_at DESC", "c.id DESC", "l.id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var rows []struct {
		ServiceID int64   `db:"service_id"`
		CurrPct   float64 `db:"curr_pct"`
	}

	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapReadError(op, err, "claim lines")
	}

	latest := make(map[int64]float64, len(rows))
	for _, row := range rows {
		latest[row.ServiceID] = row.CurrPct
	}

	return latest, nil
}

func (r *ClaimRepository) InsertClaim(ctx context.Context, tx *sqlx.Tx, claim *domain.BillingClaim) error {
	const op = "internal.repository.postgres.InsertClaim"

	query, args, err := r.sq.Insert("billing_claims").
		Columns("project_id", "period_start", "period_end", "po_ref", "invoice_ref", "status").
		Values(claim.ProjectID, claim.PeriodStart, claim.PeriodEnd, claim.PORef, claim.InvoiceRef, claim.Status).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&claim.ID, &claim.CreatedAt); err != nil {
		return mapWriteError(op, err, fmt.Sprintf("claim of project %d", claim.ProjectID))
	}

	return nil
}

func (r *ClaimRepository) InsertLines(ctx context.Context, tx *sqlx.Tx, claimID int64, lines []domain.BillingClaimLine) error {
	const op = "internal.repository.postgres.InsertClaimLines"

	if len(lines) == 0 {
		return nil
	}

	builder := r.sq.Insert("billing_claim_lines").
		Columns("claim_id", "service_id", "stage_label", "prev_pct", "curr_pct", "delta_pct", "amount_this_claim", "note")

	for _, l := range lines {
		builder = builder.Values(claimID, l.ServiceID, l.StageLabel, l.PrevPct, l.CurrPct, l.DeltaPct, l.Amount, l.Note)
	}

	query, args, err := builder.Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	var ids []int64
	if err := tx.SelectContext(ctx, &ids, query, args...); err != nil {
		return mapWriteError(op, err, "claim line")
	}

	for i := range lines {
		lines[i].ClaimID = claimID
		if i < len(ids) {
			lines[i].ID = ids[i]
		}
	}

	return nil
}

func (r *ClaimRepository) GetClaim(ctx context.Context, ext sqlx.ExtContext, claimID int64) (*domain.BillingClaim, error) {
	return r.getClaim(ctx, ext, claimID, "internal.repository.postgres.GetClaim", "")
}

func (r *ClaimRepository) GetClaimForUpdate(ctx context.Context, tx *sqlx.Tx, claimID int64) (*domain.BillingClaim, error) {
	return r.getClaim(ctx, tx, claimID, "internal.repository.postgres.GetClaimForUpdate", "FOR UPDATE")
}

func (r *ClaimRepository) getClaim(ctx context.Context, ext sqlx.ExtContext, claimID int64, op, suffix string) (*domain.BillingClaim, error) {
	builder := r.sq.Select(claimColumns...).
		From("billing_claims").
		Where(sq.Eq{"id": claimID})

	if suffix != "" {
		builder = builder.Suffix(suffix)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var claim domain.BillingClaim
	if err := sqlx.GetContext(ctx, ext, &claim, query, args...); err != nil {
		return nil, mapReadError(op, err, fmt.Sprintf("claim with id %d", claimID))
	}

	lines, err := r.selectLines(ctx, ext, op, sq.Eq{"l.claim_id": claimID})
	if err != nil {
		return nil, err
	}

	claim.Lines = lines

	return &claim, nil
}

func (r *ClaimRepository) ListClaims(ctx context.Context, ext sqlx.ExtContext, projectID int64) ([]domain.BillingClaim, error) {
	const op = "internal.repository.postgres.ListClaims"

	query, args, err := r.sq.Select(claimColumns...).
		From("billing_claims").
		Where(sq.Eq{"project_id": projectID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	claims := []domain.BillingClaim{}
	if err := sqlx.SelectContext(ctx, ext, &claims, query, args...); err != nil {
		return nil, mapReadError(op, err, "claims")
	}

	if len(claims) == 0 {
		return claims, nil
	}

	lines, err := r.selectLines(ctx, ext, op, sq.Eq{"c.project_id": projectID})
	if err != nil {
		return nil, err
	}

	byClaim := make(map[int64][]domain.BillingClaimLine, len(claims))
	for _, l := range lines {
		byClaim[l.ClaimID] = append(byClaim[l.ClaimID], l)
	}

	for i := range claims {
		claims[i].Lines = byClaim[claims[i].ID]
	}

	return claims, nil
}

func (r *ClaimRepository) selectLines(ctx context.Context, ext sqlx.ExtContext, op string, where sq.Eq) ([]domain.BillingClaimLine, error) {
	query, args, err := r.sq.Select(claimLineColumns...).
		From("billing_claim_lines l").
		Join("billing_claims c ON c.id = l.claim_id").
		Where(where).
		OrderBy("l.claim_id", "l.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build lines query: %w", op, err)
	}

	lines := []domain.BillingClaimLine{}
	if err := sqlx.SelectContext(ctx, ext, &lines, query, args...); err != nil {
		return nil, mapReadError(op, err, "claim lines")
	}

	return lines, nil
}

func (r *ClaimRepository) UpdateClaimStatus(ctx context.Context, tx *sqlx.Tx, claimID int64, status domain.ClaimStatus, invoiceRef *string) error {
	const op = "internal.repository.postgres.UpdateClaimStatus"

	builder := r.sq.Update("billing_claims").
		Set("status", status).
		Where(sq.Eq{"id": claimID})

	if invoiceRef != nil {
		builder = builder.Set("invoice_ref", *invoiceRef)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return mapWriteError(op, err, "claim")
	}

	return nil
}

func (r *ClaimRepository) SumClaimed(ctx context.Context, ext sqlx.ExtContext, projectID int64) (decimal.Decimal, error) {
	const op = "internal.repository.postgres.SumClaimed"

	query, args, err := r.sq.Select("COALESCE(SUM(l.amount_this_claim), 0)").
		From("billing_claim_lines l").
		Join("billing_claims c ON c.id = l.claim_id").
		Where(sq.Eq{"c.project_id": projectID}).
		ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: failed to build sum query: %w", op, err)
	}

	var total decimal.Decimal
	if err := sqlx.GetContext(ctx, ext, &total, query, args...); err != nil {
		return decimal.Zero, mapReadError(op, err, "claimed total")
	}

	return total, nil
}
