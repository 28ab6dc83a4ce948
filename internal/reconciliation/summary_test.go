package reconciliation

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSummaryAggregator_AccountSummary(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	env.seed(t,
		[]*glentry.Entry{
			newGL(t, "511", 100000, "PRJ-ACME", 0),
			newGL(t, "511", 25000, "", 1),
			newGL(t, "706", -4000, "", 2),
		},
		[]*forecast.Line{newFC(t, "511", 100000, "PRJ-ACME", 0)},
	)
	ctx := context.Background()

	_, err := env.orch.Run(ctx, RunRequest{Period: "2024-04", Mode: shared.ModeExact})
	require.NoError(t, err)

	summary, err := env.summary.AccountSummary(ctx, "2024-04")
	require.NoError(t, err)

	assert.Equal(t, april, summary.Period)
	assert.Equal(t, []string{"511", "706"}, summary.SortedAccounts())
	assert.Equal(t, AccountTotals{MatchedAmount: 100000, UnmatchedAmount: 25000, MatchedCount: 1, UnmatchedCount: 1}, summary.Accounts["511"])
	assert.Equal(t, AccountTotals{UnmatchedAmount: -4000, UnmatchedCount: 1}, summary.Accounts["706"])
}

func TestSummaryAggregator_EmptyAndInvalidPeriods(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())

	summary, err := env.summary.AccountSummary(context.Background(), "2030-01")
	require.NoError(t, err)
	assert.Empty(t, summary.Accounts)

	_, err = env.summary.AccountSummary(context.Background(), "April")
	assert.True(t, errors.Is(err, shared.ErrInvalidPeriod{}))
}

func TestAccountSummary_WriteXLSX(t *testing.T) {
	summary := &AccountSummary{
		Period: april,
		Accounts: map[string]AccountTotals{
			"706": {UnmatchedAmount: 1250, UnmatchedCount: 1},
			"511": {MatchedAmount: 100000, MatchedCount: 2},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, summary.WriteXLSX(&buf))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, summaryHeadings, rows[0])
	assert.Equal(t, "511", rows[1][0])
	assert.Equal(t, "1000", rows[1][1])
	assert.Equal(t, "2", rows[1][3])
	assert.Equal(t, "706", rows[2][0])
	assert.Equal(t, "12.5", rows[2][2])
	assert.Equal(t, "Total 2024-04", rows[3][0])
	assert.Equal(t, "1", rows[3][4])
}
