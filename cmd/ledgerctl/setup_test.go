package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExportInput(t *testing.T) {
	tests := []struct {
		arg        string
		wantType   ledger.RecordType
		wantStatus ledger.Status
		wantSource string
		wantErr    bool
	}{
		{arg: "payables:pending=p.xlsx", wantType: ledger.Expense, wantStatus: ledger.StatusPending, wantSource: "p.xlsx"},
		{arg: "receivables:ACQUITTED=gs://b/r.xlsx", wantType: ledger.Revenue, wantStatus: ledger.StatusAcquitted, wantSource: "gs://b/r.xlsx"},
		{arg: "expense:OVERDUE= o.csv ", wantType: ledger.Expense, wantStatus: ledger.StatusOverdue, wantSource: "o.csv"},
		{arg: "revenue:custom=x.csv", wantType: ledger.Revenue, wantStatus: ledger.Status("CUSTOM"), wantSource: "x.csv"},
		{arg: "payables:pending", wantErr: true},
		{arg: "payables=p.xlsx", wantErr: true},
		{arg: "assets:pending=p.xlsx", wantErr: true},
		{arg: "payables:pending=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseExportInput(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, got.Request.Type)
			assert.Equal(t, tt.wantStatus, got.Request.Status)
			assert.Equal(t, tt.wantSource, got.Source)
		})
	}
}

func TestLoadBatches_LocalCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pending.csv")
	csv := "id;Data original de vencimento;Valor (R$);Centro de Custo 1;Valor no Centro de Custo 1\n" +
		"p1;2024-03-10;100,00;Ops;100,00\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	in, err := parseExportInput("payables:PENDING=" + path)
	require.NoError(t, err)

	batches, err := loadBatches(context.Background(), []exportInput{in}, 1, nil)
	require.NoError(t, err)
	require.Len(t, batches, 1)

	b := batches[0]
	assert.Equal(t, ledger.Expense, b.Type)
	assert.Equal(t, ledger.StatusPending, b.Status)
	assert.Contains(t, b.Columns, ledger.ColID)
	assert.Contains(t, b.Columns, ledger.ColDueDate)
	require.Len(t, b.Rows, 1)
	assert.Equal(t, "p1", b.Rows[0][ledger.ColID])
}

func TestLoadBatches_RemoteSources(t *testing.T) {
	in, err := parseExportInput("receivables:ACQUITTED=gs://bucket/run/REVENUE-ACQUITTED.csv")
	require.NoError(t, err)

	t.Run("without storage", func(t *testing.T) {
		_, err := loadBatches(context.Background(), []exportInput{in}, 1, nil)
		assert.ErrorContains(t, err, "no storage configured")
	})

	t.Run("fetch error", func(t *testing.T) {
		fetch := func(ctx context.Context, uri string) ([]byte, error) {
			return nil, errors.New("not found")
		}
		_, err := loadBatches(context.Background(), []exportInput{in}, 1, fetch)
		assert.ErrorContains(t, err, "not found")
	})

	t.Run("fetched", func(t *testing.T) {
		var gotURI string
		fetch := func(ctx context.Context, uri string) ([]byte, error) {
			gotURI = uri
			return []byte("id,Data de vencimento\nr1,2024-01-05\nr2,2024-02-05\n"), nil
		}
		batches, err := loadBatches(context.Background(), []exportInput{in}, 1, fetch)
		require.NoError(t, err)
		assert.Equal(t, in.Source, gotURI)
		require.Len(t, batches, 1)
		assert.Len(t, batches[0].Rows, 2)
		assert.Equal(t, ledger.Revenue, batches[0].Type)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
