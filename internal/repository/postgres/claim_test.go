//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertClaim(t *testing.T, projectID int64, lines ...domain.BillingClaimLine) *domain.BillingClaim {
	t.Helper()

	repo := NewClaimRepository(logger)
	ctx := context.Background()

	claim := &domain.BillingClaim{
		ProjectID:   projectID,
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Status:      domain.ClaimDraft,
		Lines:       lines,
	}

	inTx(t, func(tx *sqlx.Tx) {
		require.NoError(t, repo.LockProject(ctx, tx, projectID))
		require.NoError(t, repo.InsertClaim(ctx, tx, claim))
		require.NoError(t, repo.InsertLines(ctx, tx, claim.ID, claim.Lines))
	})

	return claim
}

func TestClaimRepository_Flow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	truncateTables(t, testDB)
	repo := NewClaimRepository(logger)
	ctx := context.Background()

	projectID := seedProject(t, "HOS-5")
	svc := reviewService(projectID, "DR-01", 4)
	seedService(t, svc)

	first := insertClaim(t, projectID, domain.NewClaimLine(svc, 0, 25))
	require.NotZero(t, first.ID)
	require.Len(t, first.Lines, 1)
	assert.NotZero(t, first.Lines[0].ID)
	assert.Equal(t, first.ID, first.Lines[0].ClaimID)

	second := insertClaim(t, projectID, domain.NewClaimLine(svc, 25, 75))

	inTx(t, func(tx *sqlx.Tx) {
		latest, err := repo.LatestClaimedPct(ctx, tx, projectID)
		require.NoError(t, err)
		assert.Equal(t, map[int64]float64{svc.ID: 75}, latest)
	})

	got, err := repo.GetClaim(ctx, testDB, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimDraft, got.Status)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 50.0, got.Lines[0].DeltaPct)
	assert.True(t, got.Lines[0].Amount.Equal(decimal.NewFromInt(2000)), "got %s", got.Lines[0].Amount)
	assert.True(t, got.Total().Equal(decimal.NewFromInt(2000)))

	claims, err := repo.ListClaims(ctx, testDB, projectID)
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, second.ID, claims[0].ID)
	require.Len(t, claims[1].Lines, 1)

	total, err := repo.SumClaimed(ctx, testDB, projectID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(3000)), "got %s", total)

	invoice := "INV-0042"

	inTx(t, func(tx *sqlx.Tx) {
		locked, err := repo.GetClaimForUpdate(ctx, tx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ClaimDraft, locked.Status)

		require.NoError(t, repo.UpdateClaimStatus(ctx, tx, first.ID, domain.ClaimSubmitted, &invoice))

		count, err := NewServiceRepository(logger).CountLockedClaimLines(ctx, tx, svc.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	got, err = repo.GetClaim(ctx, testDB, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimSubmitted, got.Status)
	require.NotNil(t, got.InvoiceRef)
	assert.Equal(t, invoice, *got.InvoiceRef)

	_, err = repo.GetClaim(ctx, testDB, 9999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClaimRepository_EmptyProject(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	truncateTables(t, testDB)
	repo := NewClaimRepository(logger)
	ctx := context.Background()

	projectID := seedProject(t, "HOS-6")

	claims, err := repo.ListClaims(ctx, testDB, projectID)
	require.NoError(t, err)
	assert.Empty(t, claims)

	total, err := repo.SumClaimed(ctx, testDB, projectID)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	inTx(t, func(tx *sqlx.Tx) {
		latest, err := repo.LatestClaimedPct(ctx, tx, projectID)
		require.NoError(t, err)
		assert.Empty(t, latest)
	})
}

func TestTemplateRepository_InsertIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	truncateTables(t, testDB)
	repo := NewTemplateRepository(logger)
	ctx := context.Background()

	qty := 12.0
	newTemplate := func() *domain.Template {
		return &domain.Template{
			Name:    "Healthcare BIM",
			Version: 2,
			Sector:  "health",
			Items: []domain.TemplateItem{
				{
					Phase: "Design", ServiceCode: "DR", ServiceName: "Design reviews",
					UnitType: domain.UnitReview, UnitQty: &qty,
					UnitRate:          decimal.NewNullDecimal(decimal.NewFromInt(900)),
					BillRule:          domain.BillProgress,
					ScheduleFrequency: domain.FrequencyBiWeekly,
				},
				{
					Phase: "Handover", ServiceCode: "AIR", ServiceName: "Asset information audit",
					UnitType:   domain.UnitLumpSum,
					LumpSumFee: decimal.NewNullDecimal(decimal.NewFromInt(8000)),
					BillRule:   domain.BillOnCompletion,
				},
			},
		}
	}

	first := newTemplate()

	inTx(t, func(tx *sqlx.Tx) {
		created, err := repo.InsertTemplate(ctx, tx, first)
		require.NoError(t, err)
		assert.True(t, created)
	})

	again := newTemplate()

	inTx(t, func(tx *sqlx.Tx) {
		created, err := repo.InsertTemplate(ctx, tx, again)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
	})

	templates, err := repo.ListTemplates(ctx, testDB)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	require.Len(t, templates[0].Items, 2)
	assert.Equal(t, "DR", templates[0].Items[0].ServiceCode)
	assert.Equal(t, 1, templates[0].Items[0].Position)
	assert.Equal(t, domain.BillOnCompletion, templates[0].Items[1].BillRule)
	assert.True(t, templates[0].Items[1].LumpSumFee.Decimal.Equal(decimal.NewFromInt(8000)))
}
