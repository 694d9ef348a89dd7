// Package report renders scan results and coverage as plain text and
// Markdown. It performs no I/O beyond writing to the given writer.
package report
