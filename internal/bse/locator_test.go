package bse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateStructuralMatch(t *testing.T) {
	markup := `<html><body>
		<table><tr><th>Sensex</th><th>Points</th></tr><tr><td>x</td><td>y</td></tr></table>
		<table>
			<tr><th>Month</th><th>Open</th><th>Close</th></tr>
			<tr><td>Mar 24</td><td>1200.00</td><td>1,234.50</td></tr>
			<tr><td>Apr 24</td><td>1230.00</td><td>1250.00</td></tr>
		</table>
	</body></html>`

	rt, err := Locate(markup)
	require.NoError(t, err)
	assert.Equal(t, []string{"Month", "Open", "Close"}, rt.Header)
	require.Len(t, rt.Rows, 2)
	assert.Equal(t, "Mar 24", rt.Rows[0][0])
}

func TestLocateCaseInsensitiveHeaders(t *testing.T) {
	markup := `<table>
		<tr><td> MONTH </td><td>close</td></tr>
		<tr><td>Jan 24</td><td>100</td></tr>
	</table>`

	rt, err := Locate(markup)
	require.NoError(t, err)
	require.Len(t, rt.Rows, 1)
	assert.Equal(t, "Jan 24", rt.Rows[0][0])
}

func TestLocatePromotesEmbeddedHeader(t *testing.T) {
	// Numeric placeholder headers with the real header as row 0.
	markup := `<table>
		<tr><td>1</td><td>2</td></tr>
		<tr><td>Month</td><td>Close</td></tr>
		<tr><td>Jan 24</td><td>100</td></tr>
	</table>`

	rt, err := Locate(markup)
	require.NoError(t, err)
	assert.Equal(t, []string{"Month", "Close"}, rt.Header)
	require.Len(t, rt.Rows, 1)
	assert.Equal(t, []string{"Jan 24", "100"}, rt.Rows[0])
}

func TestLocateTextualFallback(t *testing.T) {
	// Header cells carry extra words, so the strict structural pass fails,
	// but the fragment mentions both words.
	markup := `<table>
		<tr><th>Trading Month</th><th>Close Price</th></tr>
		<tr><td>Feb 24</td><td>210.10</td></tr>
	</table>`

	rt, err := Locate(markup)
	require.NoError(t, err)
	assert.Equal(t, []string{"Trading Month", "Close Price"}, rt.Header)
	require.Len(t, rt.Rows, 1)
}

func TestLocateNotFound(t *testing.T) {
	markup := `<html><body><table><tr><th>High</th><th>Low</th></tr></table></body></html>`

	_, err := Locate(markup)
	var notFound *TableNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, 1, notFound.Tables)
}

func TestPromoteEmbeddedHeaderScanBound(t *testing.T) {
	rt := &RawTable{
		Header: []string{"1", "2"},
		Rows: [][]string{
			{"a", "b"}, {"c", "d"}, {"e", "f"}, {"g", "h"}, {"i", "j"}, {"k", "l"},
			{"Month", "Close"}, // beyond the 6-row scan window
		},
	}
	promoteEmbeddedHeader(rt)
	assert.Equal(t, []string{"1", "2"}, rt.Header)
}
