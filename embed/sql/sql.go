package sql

import _ "embed"

// Schema contains the DDL for the users, tasks and rules tables.
//
//go:embed schema.sql
var Schema string
