package orm

import (
	"strings"

	"gorm.io/gorm/schema"
)

// NamingStrategy strips the sql prefix off the row structs before the
// default naming rules run, so sqlRun maps to table "runs".
type NamingStrategy struct {
	schema.NamingStrategy
}

func (n *NamingStrategy) TableName(table string) string {
	return n.NamingStrategy.TableName(strings.TrimPrefix(table, "sql"))
}
