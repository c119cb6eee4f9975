package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Cursor carries the cursor-pagination query parameters.
type Cursor struct {
	Cursor string
	Limit  int
}

// ParseCursor reads ?cursor= and ?limit= with defaults and clamping.
func ParseCursor(c *fiber.Ctx) Cursor {
	return Cursor{
		Cursor: c.Query("cursor"),
		Limit:  clampLimit(c.QueryInt("limit", DefaultLimit)),
	}
}

// ParsePage reads ?page= and ?limit=; page is 1-based.
func ParsePage(c *fiber.Ctx) (page, limit int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	return page, clampLimit(c.QueryInt("limit", DefaultLimit))
}

func clampLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NextCursor trims the extra row fetched with limit+1 and returns the id
// to resume from, or nil when the page is the last one.
func NextCursor[T any](items []T, limit int, id func(T) string) ([]T, *string) {
	if len(items) <= limit {
		return items, nil
	}
	next := id(items[limit])
	return items[:limit], &next
}

// QueryBool parses an optional boolean query flag.
func QueryBool(c *fiber.Ctx, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// CursorScope orders by column then id and, when a cursor is set, resumes
// from the cursor row inclusive. It fetches limit+1 rows so NextCursor can
// tell whether another page exists.
func CursorScope(table, column string, desc bool, cur Cursor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		dir, cmp, eq := "ASC", ">", ">="
		if desc {
			dir, cmp, eq = "DESC", "<", "<="
		}
		col := table + "." + column
		if cur.Cursor != "" {
			sub := "(SELECT " + column + " FROM " + table + " WHERE id = ?)"
			db = db.Where("("+col+" "+cmp+" "+sub+") OR ("+col+" = "+sub+" AND "+table+".id "+eq+" ?)",
				cur.Cursor, cur.Cursor, cur.Cursor)
		}
		return db.Order(col + " " + dir).Order(table + ".id " + dir).Limit(cur.Limit + 1)
	}
}
