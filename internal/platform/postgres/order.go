package postgres

import (
	"database/sql"

	"github.com/phrazzld/cramdeck/internal/domain"
)

func scanDisplayOrder(n sql.NullInt64) domain.DisplayOrder {
	if !n.Valid {
		return domain.Unordered()
	}
	return domain.Ordered(int(n.Int64))
}

func displayOrderValue(o domain.DisplayOrder) sql.NullInt64 {
	i, ok := o.Index()
	return sql.NullInt64{Int64: int64(i), Valid: ok}
}

// displayOrderColumn is selected in place of display_order on an old schema.
func displayOrderColumn(supported bool) string {
	if supported {
		return "display_order"
	}
	return "NULL::integer"
}
