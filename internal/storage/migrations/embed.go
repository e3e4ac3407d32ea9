package migrations

import "embed"

// PostgresFS holds the layout-store schema files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the series-archive schema files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
