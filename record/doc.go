// Package record holds the raw side of a conversion: rows of string fields
// tagged with the line they came from, the sources that produce them and the
// sinks that accept rendered rows.
//
// CSVSource and CSVSink tokenize and render delimited text with encoding/csv.
// Malformed input, such as an unterminated quoted field, surfaces as a fatal
// SOURCE_FAILURE error carrying the line and column.
package record
