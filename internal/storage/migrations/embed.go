// Package migrations embeds and applies the schema files for both stores:
// the Postgres operational schema and the ClickHouse analytics schema.
package migrations

import "embed"

//go:embed postgres/*.sql
var PostgresFS embed.FS

//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
