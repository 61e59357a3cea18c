// Package all registers every built-in datasource adapter.
package all

import (
	_ "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/duckdb"
	_ "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/sqlite"
)
