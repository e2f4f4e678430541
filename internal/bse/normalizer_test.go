package bse

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBasicTable(t *testing.T) {
	rt := &RawTable{
		Header: []string{"Month", "Open", "High", "Low", "Close"},
		Rows: [][]string{
			{"Mar 24", "1200.00", "1300.00", "1100.00", "1,234.50"},
			{"Apr 24", "1235.00", "1260.00", "1190.00", "1250.00"},
		},
	}

	table, err := Normalize(rt)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "Mar 24", table[0].PeriodLabel)
	assert.True(t, table[0].HasClose)
	assert.True(t, table[0].Close.Equal(decimal.RequireFromString("1234.50")))
}

func TestNormalizeDropsResidualHeaderAndFootnotes(t *testing.T) {
	rt := &RawTable{
		Header: []string{"Month", "Close"},
		Rows: [][]string{
			{"Month", "Close"},
			{"Mar 24", "100.00"},
			{"* Spread adjusted", ""},
			{"High-Low range note", ""},
		},
	}

	table, err := Normalize(rt)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, "Mar 24", table[0].PeriodLabel)
}

func TestNormalizeStarredCloseColumn(t *testing.T) {
	rt := &RawTable{
		Header: []string{"Month", "Close*"},
		Rows:   [][]string{{"Jun 23", "987.65"}},
	}

	table, err := Normalize(rt)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.True(t, table[0].Close.Equal(decimal.RequireFromString("987.65")))
}

func TestNormalizeSubstringColumnResolution(t *testing.T) {
	rt := &RawTable{
		Header: []string{"Trading Month", "Close Price"},
		Rows:   [][]string{{"Sep 23", "456.00"}},
	}

	table, err := Normalize(rt)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, "Sep 23", table[0].PeriodLabel)
	assert.True(t, table[0].HasClose)
}

func TestNormalizeMultiLevelLabels(t *testing.T) {
	rt := &RawTable{
		Header: []string{"Period\nMonth", "Prices\nClose"},
		Rows:   [][]string{{"Dec 22", "321.00"}},
	}

	table, err := Normalize(rt)
	require.NoError(t, err)
	require.Len(t, table, 1)
}

func TestNormalizeMissingCloseRetained(t *testing.T) {
	rt := &RawTable{
		Header: []string{"Month", "Close"},
		Rows: [][]string{
			{"May 24", "-"},
			{"Jun 24", "1100.00"},
		},
	}

	table, err := Normalize(rt)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.False(t, table[0].HasClose)
	assert.True(t, table[1].HasClose)
}

func TestNormalizeSchemaError(t *testing.T) {
	rt := &RawTable{
		Header: []string{"Period", "Value"},
		Rows:   [][]string{{"Mar 24", "100"}},
	}

	_, err := Normalize(rt)
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "month", schemaErr.Missing)
}

func TestNormalizeNonEmptyPeriodLabels(t *testing.T) {
	rt := &RawTable{
		Header: []string{"Month", "Close"},
		Rows: [][]string{
			{"Jan 20", "10"},
			{"Feb 20", "20"},
		},
	}

	table, err := Normalize(rt)
	require.NoError(t, err)
	for _, row := range table {
		assert.NotEmpty(t, row.PeriodLabel)
	}
}
