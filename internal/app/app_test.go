package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/YusovID/bim-delivery-service/internal/config"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/YusovID/bim-delivery-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type templateServiceMock struct {
	service.TemplateService
	mock.Mock
}

func (m *templateServiceMock) ImportCatalog(ctx context.Context, templates []domain.Template) (int, error) {
	args := m.Called(ctx, templates)
	return args.Int(0), args.Error(1)
}

const catalog = `
templates:
  - name: Education
    items:
      - service_code: BEP
        service_name: BIM execution plan
        unit_type: lump_sum
        lump_sum_fee: "3500"
`

func writeCatalog(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o600))

	return path
}

func TestImportCatalogFile(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		templates := new(templateServiceMock)
		templates.On("ImportCatalog", ctx, mock.MatchedBy(func(c []domain.Template) bool {
			return len(c) == 1 && c[0].Name == "Education" && len(c[0].Items) == 1
		})).Return(1, nil).Once()

		total, created, err := ImportCatalogFile(ctx, templates, writeCatalog(t))
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, 1, created)
		templates.AssertExpectations(t)
	})

	t.Run("Import failure", func(t *testing.T) {
		templates := new(templateServiceMock)
		templates.On("ImportCatalog", ctx, mock.Anything).Return(0, errors.New("db down")).Once()

		_, _, err := ImportCatalogFile(ctx, templates, writeCatalog(t))
		assert.Error(t, err)
	})

	t.Run("Missing file never reaches the service", func(t *testing.T) {
		templates := new(templateServiceMock)

		_, _, err := ImportCatalogFile(ctx, templates, filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
		templates.AssertNotCalled(t, "ImportCatalog", mock.Anything, mock.Anything)
	})
}

func TestEngineOptions(t *testing.T) {
	testCases := []struct {
		name              string
		cfg               config.Engine
		expectedTurnround int
		expectedLookahead int
	}{
		{name: "Configured values", cfg: config.Engine{TurnaroundDays: 10, UpcomingLookahead: 21}, expectedTurnround: 10, expectedLookahead: 21},
		{name: "Zero turnaround is kept", cfg: config.Engine{TurnaroundDays: 0, UpcomingLookahead: 7}, expectedTurnround: 0, expectedLookahead: 7},
		{name: "Missing look-ahead falls back", cfg: config.Engine{TurnaroundDays: 7}, expectedTurnround: 7, expectedLookahead: 14},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := EngineOptions(tc.cfg)
			assert.Equal(t, tc.expectedTurnround, opts.TurnaroundDays)
			assert.Equal(t, tc.expectedLookahead, opts.UpcomingLookahead)
		})
	}
}
