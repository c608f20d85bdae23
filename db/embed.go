// Package db provides the embedded schema for the terminal's local journal.
package db

import _ "embed"

// Schema contains the DDL for the sales journal table.
//
//go:embed migrations/001_journal.sql
var Schema string
