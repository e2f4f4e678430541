package bse

import "fmt"

// TableNotFoundError indicates no table carrying Month/Close headers was
// located after both structural and textual fallback attempts. The caller is
// expected to persist the raw markup for diagnostics before propagating.
type TableNotFoundError struct {
	Tables int // number of tables inspected
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("monthly price table not found (%d tables inspected)", e.Tables)
}

// SchemaError indicates a table was located but the Month or Close column
// could not be resolved after cleanup.
type SchemaError struct {
	Missing string // "month" or "close"
	Columns []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("no %q column resolvable in table columns %v", e.Missing, e.Columns)
}

// NavigationTimeoutError indicates the report page never reached a usable
// state within the bounded retry/poll budget.
type NavigationTimeoutError struct {
	Window   FetchWindow
	Attempts int
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for monthly table for %s after %d attempts", e.Window, e.Attempts)
}

// MissingTokenError indicates a mandatory WebForms state token was absent
// from the harvested form payload. Fatal for the entire run: no POST can
// succeed without it.
type MissingTokenError struct {
	Token string
}

func (e *MissingTokenError) Error() string {
	return fmt.Sprintf("required form token %s missing from report page", e.Token)
}

// FormSubmissionError indicates every known submission mechanism was tried
// and none produced a usable response, including the download fallback.
type FormSubmissionError struct {
	Window FetchWindow
	Cause  error
}

func (e *FormSubmissionError) Error() string {
	return fmt.Sprintf("form submission failed for %s: %v", e.Window, e.Cause)
}

func (e *FormSubmissionError) Unwrap() error { return e.Cause }
