package audit

import (
	"strings"

	"github.com/roundupgames/audit-backend/internal/models"
)

// InferCategory derives the action category from the action name's prefix
// (the part before the first dot). Unknown prefixes fall back to DATA.
func InferCategory(action string) models.ActionCategory {
	prefix, _, _ := strings.Cut(action, ".")
	switch c := models.ActionCategory(strings.ToUpper(prefix)); c {
	case models.CategoryAuth, models.CategoryAdmin, models.CategoryData,
		models.CategoryExport, models.CategorySecurity:
		return c
	}
	return models.CategoryData
}
