package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/YusovID/bim-delivery-service/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memDB opens throwaway sqlmock transactions for services backed by memStore.
type memDB struct {
	sqlx.ExtContext
	t *testing.T
}

func (m *memDB) BeginTxx(_ context.Context, _ *sql.TxOptions) (*sqlx.Tx, error) {
	mockDB, smock, err := sqlmock.New()
	require.NoError(m.t, err)

	m.t.Cleanup(func() { mockDB.Close() })

	smock.MatchExpectationsInOrder(false)
	smock.ExpectBegin()
	smock.ExpectCommit()
	smock.ExpectRollback()

	return sqlx.NewDb(mockDB, "sqlmock").Beginx()
}

// memStore is an in-memory implementation of every repository port.
// Transactions are ignored, so it only suits happy-path scenarios.
type memStore struct {
	nextID    int64
	projects  map[int64]domain.Project
	services  map[int64]domain.Service
	cycles    map[int64]domain.ReviewCycle
	claims    map[int64]domain.BillingClaim
	templates []domain.Template
}

var (
	_ repository.ProjectRepository     = (*memStore)(nil)
	_ repository.ServiceRepository     = (*memStore)(nil)
	_ repository.ReviewCycleRepository = (*memStore)(nil)
	_ repository.ClaimRepository       = (*memStore)(nil)
	_ repository.TemplateRepository    = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		projects: make(map[int64]domain.Project),
		services: make(map[int64]domain.Service),
		cycles:   make(map[int64]domain.ReviewCycle),
		claims:   make(map[int64]domain.BillingClaim),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateProject(_ context.Context, _ *sqlx.Tx, p *domain.Project) (int64, error) {
	for _, existing := range m.projects {
		if existing.Code == p.Code {
			return 0, apperrors.ErrConflict
		}
	}

	p.ID = m.id()
	p.CreatedAt = time.Now().UTC()
	m.projects[p.ID] = *p

	return p.ID, nil
}

func (m *memStore) GetProject(_ context.Context, _ sqlx.ExtContext, id int64) (*domain.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	return &p, nil
}

func (m *memStore) DeleteProject(_ context.Context, _ *sqlx.Tx, id int64) (bool, error) {
	if _, ok := m.projects[id]; !ok {
		return false, nil
	}

	delete(m.projects, id)

	for sid, svc := range m.services {
		if svc.ProjectID == id {
			_, _ = m.DeleteService(context.Background(), nil, sid)
		}
	}

	return true, nil
}

func (m *memStore) CreateService(_ context.Context, _ *sqlx.Tx, svc *domain.Service) (int64, error) {
	if _, ok := m.projects[svc.ProjectID]; !ok {
		return 0, apperrors.ErrNotFound
	}

	svc.ID = m.id()
	m.services[svc.ID] = *svc

	return svc.ID, nil
}

func (m *memStore) UpdateService(_ context.Context, _ *sqlx.Tx, svc *domain.Service) error {
	if _, ok := m.services[svc.ID]; !ok {
		return apperrors.ErrNotFound
	}

	m.services[svc.ID] = *svc

	return nil
}

func (m *memStore) DeleteService(_ context.Context, _ *sqlx.Tx, id int64) (bool, error) {
	if _, ok := m.services[id]; !ok {
		return false, nil
	}

	delete(m.services, id)

	for cid, c := range m.cycles {
		if c.ServiceID == id {
			delete(m.cycles, cid)
		}
	}

	return true, nil
}

func (m *memStore) GetService(_ context.Context, _ sqlx.ExtContext, id int64) (*domain.Service, error) {
	svc, ok := m.services[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	return &svc, nil
}

func (m *memStore) GetServiceForUpdate(ctx context.Context, _ *sqlx.Tx, id int64) (*domain.Service, error) {
	return m.GetService(ctx, nil, id)
}

func (m *memStore) ListServices(_ context.Context, _ sqlx.ExtContext, projectID int64) ([]domain.Service, error) {
	out := []domain.Service{}

	for _, svc := range m.services {
		if svc.ProjectID == projectID {
			out = append(out, svc)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Phase != out[j].Phase {
			return out[i].Phase < out[j].Phase
		}

		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}

		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (m *memStore) SetProgress(_ context.Context, _ *sqlx.Tx, id int64, pct float64) error {
	svc, ok := m.services[id]
	if !ok {
		return apperrors.ErrNotFound
	}

	svc.ProgressPct = pct
	m.services[id] = svc

	return nil
}

func (m *memStore) CountLockedClaimLines(_ context.Context, _ *sqlx.Tx, serviceID int64) (int, error) {
	var n int

	for _, c := range m.claims {
		if c.Status == domain.ClaimDraft {
			continue
		}

		for _, l := range c.Lines {
			if l.ServiceID == serviceID {
				n++
			}
		}
	}

	return n, nil
}

func (m *memStore) sortedCycles(keep func(domain.ReviewCycle) bool) []domain.ReviewCycle {
	out := []domain.ReviewCycle{}

	for _, c := range m.cycles {
		if keep(c) {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ServiceID != out[j].ServiceID {
			return out[i].ServiceID < out[j].ServiceID
		}

		return out[i].CycleNo < out[j].CycleNo
	})

	return out
}

func (m *memStore) inProject(projectID int64) func(domain.ReviewCycle) bool {
	return func(c domain.ReviewCycle) bool {
		return m.services[c.ServiceID].ProjectID == projectID
	}
}

func (m *memStore) ListByService(_ context.Context, _ sqlx.ExtContext, serviceID int64) ([]domain.ReviewCycle, error) {
	return m.sortedCycles(func(c domain.ReviewCycle) bool { return c.ServiceID == serviceID }), nil
}

func (m *memStore) ListByProject(_ context.Context, _ sqlx.ExtContext, projectID int64) ([]domain.ReviewCycle, error) {
	return m.sortedCycles(m.inProject(projectID)), nil
}

func (m *memStore) ListDueBetween(_ context.Context, _ sqlx.ExtContext, projectID int64, from, to time.Time) ([]domain.ReviewCycle, error) {
	inProject := m.inProject(projectID)

	return m.sortedCycles(func(c domain.ReviewCycle) bool {
		return inProject(c) &&
			(from.IsZero() || !c.DueDate.Before(from)) &&
			(to.IsZero() || !c.DueDate.After(to))
	}), nil
}

func (m *memStore) GetForUpdate(_ context.Context, _ *sqlx.Tx, reviewID int64) (*domain.ReviewCycle, error) {
	c, ok := m.cycles[reviewID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	return &c, nil
}

func (m *memStore) NextPlanned(_ context.Context, _ *sqlx.Tx, serviceID int64) (*domain.ReviewCycle, error) {
	planned := m.sortedCycles(func(c domain.ReviewCycle) bool {
		return c.ServiceID == serviceID && c.Status == domain.ReviewPlanned
	})
	if len(planned) == 0 {
		return nil, apperrors.ErrNoPlannedCycle
	}

	return &planned[0], nil
}

func (m *memStore) InsertCycles(_ context.Context, _ *sqlx.Tx, cycles []domain.ReviewCycle) ([]int64, error) {
	ids := make([]int64, len(cycles))

	for i, c := range cycles {
		c.ID = m.id()
		m.cycles[c.ID] = c
		ids[i] = c.ID
	}

	return ids, nil
}

func (m *memStore) DeleteCycles(_ context.Context, _ *sqlx.Tx, reviewIDs []int64) error {
	for _, id := range reviewIDs {
		delete(m.cycles, id)
	}

	return nil
}

func (m *memStore) DeleteByService(_ context.Context, _ *sqlx.Tx, serviceID int64) (int, error) {
	var n int

	for id, c := range m.cycles {
		if c.ServiceID == serviceID {
			delete(m.cycles, id)
			n++
		}
	}

	return n, nil
}

func (m *memStore) Renumber(_ context.Context, _ *sqlx.Tx, reviewID int64, cycleNo int) error {
	c, ok := m.cycles[reviewID]
	if !ok {
		return apperrors.ErrNotFound
	}

	c.CycleNo = cycleNo
	m.cycles[reviewID] = c

	return nil
}

func (m *memStore) UpdateStatus(_ context.Context, _ *sqlx.Tx, cycle *domain.ReviewCycle) error {
	c, ok := m.cycles[cycle.ID]
	if !ok {
		return apperrors.ErrNotFound
	}

	c.Status = cycle.Status
	c.EvidenceLinks = cycle.EvidenceLinks
	c.ActualIssuedAt = cycle.ActualIssuedAt
	m.cycles[cycle.ID] = c

	return nil
}

func (m *memStore) CompleteOverdue(_ context.Context, _ *sqlx.Tx, projectID int64, today time.Time) ([]int64, error) {
	var serviceIDs []int64

	for _, c := range m.sortedCycles(m.inProject(projectID)) {
		if c.Status == domain.ReviewInProgress && c.DueDate.Before(today) {
			c.Status = domain.ReviewCompleted
			m.cycles[c.ID] = c
			serviceIDs = append(serviceIDs, c.ServiceID)
		}
	}

	return serviceIDs, nil
}

func (m *memStore) LockProject(context.Context, *sqlx.Tx, int64) error { return nil }

func (m *memStore) LatestClaimedPct(_ context.Context, _ *sqlx.Tx, projectID int64) (map[int64]float64, error) {
	latest := make(map[int64]float64)

	for _, c := range m.sortedClaims(projectID, true) {
		for _, l := range c.Lines {
			latest[l.ServiceID] = l.CurrPct
		}
	}

	return latest, nil
}

// sortedClaims lists project claims oldest first, or newest first when oldestFirst is false.
func (m *memStore) sortedClaims(projectID int64, oldestFirst bool) []domain.BillingClaim {
	out := []domain.BillingClaim{}

	for _, c := range m.claims {
		if c.ProjectID == projectID {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if oldestFirst {
			return out[i].ID < out[j].ID
		}

		return out[i].ID > out[j].ID
	})

	return out
}

func (m *memStore) InsertClaim(_ context.Context, _ *sqlx.Tx, claim *domain.BillingClaim) error {
	claim.ID = m.id()
	claim.CreatedAt = time.Now().UTC()

	stored := *claim
	stored.Lines = nil
	m.claims[claim.ID] = stored

	return nil
}

func (m *memStore) InsertLines(_ context.Context, _ *sqlx.Tx, claimID int64, lines []domain.BillingClaimLine) error {
	c, ok := m.claims[claimID]
	if !ok {
		return apperrors.ErrNotFound
	}

	for i := range lines {
		lines[i].ID = m.id()
		lines[i].ClaimID = claimID
		c.Lines = append(c.Lines, lines[i])
	}

	m.claims[claimID] = c

	return nil
}

func (m *memStore) GetClaim(_ context.Context, _ sqlx.ExtContext, claimID int64) (*domain.BillingClaim, error) {
	c, ok := m.claims[claimID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	c.Lines = append([]domain.BillingClaimLine{}, c.Lines...)

	return &c, nil
}

func (m *memStore) GetClaimForUpdate(ctx context.Context, _ *sqlx.Tx, claimID int64) (*domain.BillingClaim, error) {
	return m.GetClaim(ctx, nil, claimID)
}

func (m *memStore) ListClaims(_ context.Context, _ sqlx.ExtContext, projectID int64) ([]domain.BillingClaim, error) {
	return m.sortedClaims(projectID, false), nil
}

func (m *memStore) UpdateClaimStatus(_ context.Context, _ *sqlx.Tx, claimID int64, status domain.ClaimStatus, invoiceRef *string) error {
	c, ok := m.claims[claimID]
	if !ok {
		return apperrors.ErrNotFound
	}

	c.Status = status
	c.InvoiceRef = invoiceRef
	m.claims[claimID] = c

	return nil
}

func (m *memStore) SumClaimed(_ context.Context, _ sqlx.ExtContext, projectID int64) (decimal.Decimal, error) {
	total := decimal.Zero

	for _, c := range m.sortedClaims(projectID, true) {
		total = total.Add(c.Total())
	}

	return total, nil
}

func (m *memStore) ListTemplates(context.Context, sqlx.ExtContext) ([]domain.Template, error) {
	return append([]domain.Template{}, m.templates...), nil
}

func (m *memStore) InsertTemplate(_ context.Context, _ *sqlx.Tx, tpl *domain.Template) (bool, error) {
	for _, existing := range m.templates {
		if strings.EqualFold(existing.Name, tpl.Name) && existing.Version == tpl.Version {
			tpl.ID = existing.ID
			return false, nil
		}
	}

	tpl.ID = m.id()

	for i := range tpl.Items {
		tpl.Items[i].ID = m.id()
		tpl.Items[i].TemplateID = tpl.ID
		tpl.Items[i].Position = i + 1
	}

	m.templates = append(m.templates, *tpl)

	return true, nil
}

// engine wires every service onto one memStore.
type engine struct {
	store      *memStore
	catalog    *CatalogServiceImpl
	cycles     *CycleServiceImpl
	status     *StatusServiceImpl
	completion *CompletionServiceImpl
	billing    *BillingServiceImpl
	templates  *TemplateServiceImpl
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	store := newMemStore()
	db := &memDB{t: t}
	log := quietLogger()
	opts := DefaultOptions()

	return &engine{
		store:      store,
		catalog:    NewCatalogService(db, log, store, store),
		cycles:     NewCycleService(db, log, store, store, opts),
		status:     NewStatusService(db, log, store, store),
		completion: NewCompletionService(db, log, store, store, store, store, opts),
		billing:    NewBillingService(db, log, store, store, store, store),
		templates:  NewTemplateService(db, log, store, store, store),
	}
}
