package parser

import "strings"

// CommonKeywords are SQL keywords shared across all dialects.
var CommonKeywords = []string{
	"SELECT", "FROM", "WHERE", "JOIN", "LEFT", "RIGHT", "INNER", "OUTER",
	"FULL", "CROSS", "ON", "AND", "OR", "NOT", "IN", "EXISTS", "BETWEEN",
	"LIKE", "ILIKE", "IS", "NULL", "AS", "CASE", "WHEN", "THEN", "ELSE",
	"END", "INSERT", "INTO", "VALUES", "UPDATE", "SET", "DELETE", "CREATE",
	"ALTER", "DROP", "TABLE", "VIEW", "INDEX", "UNIQUE", "PRIMARY", "KEY",
	"FOREIGN", "REFERENCES", "CONSTRAINT", "DEFAULT", "CHECK", "CASCADE",
	"RESTRICT", "GROUP", "BY", "ORDER", "ASC", "DESC", "HAVING", "LIMIT",
	"OFFSET", "DISTINCT", "ALL", "ANY", "SOME", "UNION", "INTERSECT",
	"EXCEPT", "WITH", "RECURSIVE", "RETURNING", "BEGIN", "COMMIT",
	"ROLLBACK", "TRANSACTION", "GRANT", "REVOKE", "EXPLAIN", "ANALYZE",
	"VACUUM", "TRUNCATE", "IF", "REPLACE", "TEMPORARY", "TEMP",
}

// CatalogKeywords are the statement words the catalog understands beyond
// CommonKeywords.
var CatalogKeywords = []string{
	"DATABASE", "DATABASES", "USE", "SHOW", "TABLES", "DESCRIBE", "ADD",
	"COLUMN",
}

// CommonFunctions are SQL functions shared across all dialects.
var CommonFunctions = []string{
	"COUNT", "SUM", "AVG", "MIN", "MAX", "COALESCE", "NULLIF", "CAST",
	"CASE", "LOWER", "UPPER", "TRIM", "LTRIM", "RTRIM", "LENGTH",
	"SUBSTRING", "REPLACE", "CONCAT", "ABS", "CEIL", "FLOOR", "ROUND",
	"NOW", "CURRENT_TIMESTAMP", "CURRENT_DATE", "CURRENT_TIME", "EXTRACT",
	"DATE_TRUNC", "TO_CHAR", "TO_DATE", "TO_NUMBER", "ROW_NUMBER", "RANK",
	"DENSE_RANK", "LAG", "LEAD", "FIRST_VALUE", "LAST_VALUE", "NTILE",
	"STRING_AGG", "ARRAY_AGG", "JSON_AGG", "BOOL_AND", "BOOL_OR", "EVERY",
}

// PostgresKeywords are additional keywords specific to PostgreSQL.
var PostgresKeywords = []string{
	"SERIAL", "BIGSERIAL", "RETURNING", "ILIKE", "SIMILAR", "LATERAL",
	"MATERIALIZED", "CONCURRENTLY", "TABLESPACE", "SCHEMA", "EXTENSION",
	"SEQUENCE", "OWNED", "NOTIFY", "LISTEN", "PERFORM", "RAISE", "COPY",
}

// MySQLKeywords are additional keywords specific to MySQL.
var MySQLKeywords = []string{
	"AUTO_INCREMENT", "ENGINE", "CHARSET", "COLLATE", "SHOW", "DESCRIBE",
	"USE", "DATABASES", "TABLES", "COLUMNS", "STATUS", "VARIABLES",
	"PROCESSLIST", "BINARY", "UNSIGNED", "ZEROFILL", "ENUM", "MEDIUMTEXT",
	"LONGTEXT", "TINYINT", "MEDIUMINT",
}

// SQLiteKeywords are additional keywords specific to SQLite.
var SQLiteKeywords = []string{
	"PRAGMA", "AUTOINCREMENT", "GLOB", "ATTACH", "DETACH", "REINDEX",
	"INDEXED", "WITHOUT", "ROWID", "STRICT",
}

// KeywordsForDialect returns CommonKeywords and CatalogKeywords combined
// with the keywords of the catalog's store dialect, without duplicates.
func KeywordsForDialect(dialect string) []string {
	result := make([]string, 0, len(CommonKeywords)+len(CatalogKeywords)+24)
	result = append(result, CommonKeywords...)
	result = append(result, CatalogKeywords...)

	switch dialect {
	case "postgres", "postgresql":
		result = append(result, PostgresKeywords...)
	case "mysql":
		result = append(result, MySQLKeywords...)
	case "sqlite":
		result = append(result, SQLiteKeywords...)
	}

	seen := make(map[string]bool, len(result))
	out := result[:0]
	for _, kw := range result {
		if !seen[kw] {
			seen[kw] = true
			out = append(out, kw)
		}
	}
	return out
}

// FunctionsForDialect returns the function list for the given dialect.
// For now, all dialects share the same function list.
func FunctionsForDialect(dialect string) []string {
	result := make([]string, len(CommonFunctions))
	copy(result, CommonFunctions)
	return result
}

// reserved holds the words lexed as keywords inside queries: they render
// upper-cased and never name a relation.
var reserved = func() map[string]bool {
	m := make(map[string]bool)
	for _, list := range [][]string{CommonKeywords, CommonFunctions, {
		"TRUE", "FALSE", "NATURAL", "USING", "LATERAL", "ONLY", "OVER",
		"PARTITION", "FILTER", "WINDOW", "FETCH", "FOR", "MATERIALIZED",
		"INTERVAL", "ROWS", "RANGE", "NULLS", "FIRST", "LAST",
	}} {
		for _, w := range list {
			m[w] = true
		}
	}
	return m
}()

// IsReserved reports whether word is lexed as a keyword.
func IsReserved(word string) bool {
	return reserved[strings.ToUpper(word)]
}
