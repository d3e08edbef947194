// Package domain models daily weather observations and the yearly statistics
// derived from them.
//
// # Source Data
//
// Observations arrive as plain text files, one day per line, four
// tab-separated fields:
//
//	<YYYYMMDD> <max temp> <min temp> <precipitation>
//	19850101	  -22	 -128	   94
//
// Fields may carry leading or trailing spaces. The three measurements are
// integers in tenths of a unit: tenths of a degree Celsius for the
// temperatures and tenths of a millimetre for precipitation. [ParseLine]
// divides each by 10 so stored values are in whole units with one decimal.
//
// Missing-value sentinels (-9999) are not special-cased; they are stored as
// -999.9 exactly as the source reports them.
//
// # Identity
//
// An observation has no surrogate identity inside the pipeline. Its
// [NaturalKey] is the full (date, max, min, precipitation) tuple, so two
// readings for the same day that differ in any field are distinct records.
//
// # Yearly Statistics
//
// A [YearlyStat] summarises every stored observation of one calendar year:
// the arithmetic means of the daily maxima and minima, and the sum of
// precipitation. Stats are appended, never updated; recomputing over an
// unchanged dataset yields a second identical row per year.
package domain
