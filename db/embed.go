// Package db embeds the SQL schema applied at startup.
package db

import _ "embed"

// Schema holds the DDL for the discount_codes and orders tables. The
// statements are idempotent, so applying them on every start is safe.
//
//go:embed migrations/001_schema.sql
var Schema string
