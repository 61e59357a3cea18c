package sampling

import (
	"strings"

	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// Matched first. "interval" and "point" both contain "int"; range types
// (int4range, daterange, tstzrange) contain numeric and date tokens.
var otherTypeTokens = []string{"interval", "point", "range", "json", "bytea", "array", "[]", "blob", "binary", "geometry", "geography"}

var categoryTokens = []struct {
	category models.TypeCategory
	tokens   []string
}{
	{models.TypeCategoryBoolean, []string{"bool", "bit"}},
	{models.TypeCategoryDate, []string{"date", "time"}},
	{models.TypeCategoryNumeric, []string{"int", "numeric", "decimal", "float", "double", "real", "serial", "money", "number"}},
	{models.TypeCategoryString, []string{"char", "text", "string", "uuid", "uniqueidentifier", "clob", "enum"}},
}

// ClassifyType maps a declared engine type name to a statistics category.
func ClassifyType(declaredType string) models.TypeCategory {
	t := strings.ToLower(strings.TrimSpace(declaredType))
	if t == "" {
		return models.TypeCategoryOther
	}
	for _, token := range otherTypeTokens {
		if strings.Contains(t, token) {
			return models.TypeCategoryOther
		}
	}
	for _, c := range categoryTokens {
		for _, token := range c.tokens {
			if strings.Contains(t, token) {
				return c.category
			}
		}
	}
	return models.TypeCategoryOther
}
