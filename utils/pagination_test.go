package utils_test

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type item struct {
	ID   string `gorm:"primaryKey"`
	Score int
}

func itemsDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:pagination?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrator().DropTable(&item{}))
	require.NoError(t, db.AutoMigrate(&item{}))
	// Scores tie so the id breaks the order.
	rows := []item{{"a", 3}, {"b", 2}, {"c", 2}, {"d", 2}, {"e", 1}}
	require.NoError(t, db.Create(&rows).Error)
	return db
}

func ids(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func page(t *testing.T, db *gorm.DB, desc bool, cur utils.Cursor) ([]string, *string) {
	t.Helper()
	var rows []item
	require.NoError(t, db.Scopes(utils.CursorScope("items", "score", desc, cur)).Find(&rows).Error)
	rows, next := utils.NextCursor(rows, cur.Limit, func(it item) string { return it.ID })
	return ids(rows), next
}

func TestCursorScope_WalksTiesWithoutGapsOrRepeats(t *testing.T) {
	db := itemsDB(t)

	for _, tc := range []struct {
		desc bool
		want [][]string
	}{
		{desc: true, want: [][]string{{"a", "d"}, {"c", "b"}, {"e"}}},
		{desc: false, want: [][]string{{"e", "b"}, {"c", "d"}, {"a"}}},
	} {
		t.Run(fmt.Sprintf("desc=%v", tc.desc), func(t *testing.T) {
			cur := utils.Cursor{Limit: 2}
			for i, want := range tc.want {
				got, next := page(t, db, tc.desc, cur)
				assert.Equal(t, want, got)
				if i == len(tc.want)-1 {
					assert.Nil(t, next)
					return
				}
				require.NotNil(t, next)
				// The cursor is the first row of the next page.
				assert.Equal(t, tc.want[i+1][0], *next)
				cur.Cursor = *next
			}
		})
	}
}

func TestNextCursor(t *testing.T) {
	items, next := utils.NextCursor([]int{1, 2}, 2, func(i int) string { return fmt.Sprint(i) })
	assert.Equal(t, []int{1, 2}, items)
	assert.Nil(t, next)

	items, next = utils.NextCursor([]int{1, 2, 3}, 2, func(i int) string { return fmt.Sprint(i) })
	assert.Equal(t, []int{1, 2}, items)
	require.NotNil(t, next)
	assert.Equal(t, "3", *next)
}

func TestParseCursorAndPage(t *testing.T) {
	app := fiber.New()
	var cur utils.Cursor
	var p, l int
	app.Get("/", func(c *fiber.Ctx) error {
		cur = utils.ParseCursor(c)
		p, l = utils.ParsePage(c)
		return nil
	})

	_, err := app.Test(httptest.NewRequest("GET", "/?cursor=x&limit=500&page=0", nil))
	require.NoError(t, err)
	assert.Equal(t, utils.Cursor{Cursor: "x", Limit: utils.MaxLimit}, cur)
	assert.Equal(t, 1, p)
	assert.Equal(t, utils.MaxLimit, l)

	_, err = app.Test(httptest.NewRequest("GET", "/?limit=0", nil))
	require.NoError(t, err)
	assert.Equal(t, utils.DefaultLimit, cur.Limit)
}
