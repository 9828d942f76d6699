// Package errors provides the error taxonomy shared by record conversion.
//
// Every failure raised while converting a record is an *AppError carrying a
// closed ErrorCode (the error kind), the originating line number and optional
// details such as the offending value or the raw record. Kinds are split into
// fatal ones, which always stop a pipeline, and per-record ones, which are
// subject to the configured error policy.
package errors
