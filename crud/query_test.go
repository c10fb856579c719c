package crud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"miniFeed/domain"
	"miniFeed/errs"
)

// dryRunDB returns a gorm handle that renders SQL without ever touching a database.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=minifeed dbname=minifeed sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

type queryFn func(tx *gorm.DB) (*gorm.DB, error)

// render returns the SQL a query builder produces, with its variables inlined.
func render(t *testing.T, build queryFn, dest interface{}) string {
	t.Helper()
	db := dryRunDB(t)
	var buildErr error
	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		q, err := build(tx)
		if err != nil {
			buildErr = err
			return tx
		}
		return q.Find(dest)
	})
	require.NoError(t, buildErr)
	return sql
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name string
		in   domain.Page
		want domain.Page
	}{
		{"defaults", domain.Page{}, domain.Page{Limit: domain.DefaultLimit}},
		{"negative offset", domain.Page{Offset: -5, Limit: 3}, domain.Page{Limit: 3}},
		{"limit capped", domain.Page{Offset: 7, Limit: 1000}, domain.Page{Offset: 7, Limit: domain.MaxLimit}},
		{"kept", domain.Page{Offset: 20, Limit: 5, Sort: "title", Order: "desc"}, domain.Page{Offset: 20, Limit: 5, Sort: "title", Order: "desc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, paginate(tt.in))
		})
	}
}

func TestOrderByRejectsUnknownInput(t *testing.T) {
	_, _, err := orderBy("posts", postSortColumns, domain.Page{Sort: "content; DROP TABLE posts"})
	require.Error(t, err)
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	assert.Contains(t, errs.ErrorMessage(err), "created_at, title")

	_, _, err = orderBy("posts", postSortColumns, domain.Page{Sort: "title", Order: "sideways"})
	require.Error(t, err)
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
}

func TestPostFeedQuery(t *testing.T) {
	var posts []domain.Post

	sql := render(t, func(tx *gorm.DB) (*gorm.DB, error) {
		return postFeedQuery(tx, domain.Page{Offset: 20, Limit: 10})
	}, &posts)
	assert.Contains(t, sql, `FROM "posts"`)
	assert.Contains(t, sql, `ORDER BY "posts"."created_at"`)
	assert.NotContains(t, sql, "DESC")
	assert.Contains(t, sql, "LIMIT 10")
	assert.Contains(t, sql, "OFFSET 20")

	sql = render(t, func(tx *gorm.DB) (*gorm.DB, error) {
		return postFeedQuery(tx, domain.Page{Sort: "title", Order: domain.OrderDesc})
	}, &posts)
	assert.Contains(t, sql, `ORDER BY "posts"."title" DESC`)
	assert.Contains(t, sql, "LIMIT 10")
}

func TestUserListQuery(t *testing.T) {
	var users []domain.User

	sql := render(t, func(tx *gorm.DB) (*gorm.DB, error) {
		return userListQuery(tx, domain.Page{Sort: "email", Limit: 500})
	}, &users)
	assert.Contains(t, sql, `FROM "users"`)
	assert.Contains(t, sql, `ORDER BY "users"."email"`)
	assert.Contains(t, sql, "LIMIT 100")

	_, err := userListQuery(dryRunDB(t), domain.Page{Sort: "password"})
	require.Error(t, err)
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
}

func TestPostSearchQuery(t *testing.T) {
	var posts []domain.Post

	sql := render(t, func(tx *gorm.DB) (*gorm.DB, error) {
		return postSearchQuery(tx, "gopher news", domain.Page{Offset: 20, Limit: 10})
	}, &posts)
	assert.Contains(t, sql, "websearch_to_tsquery('english', 'gopher news')")
	assert.Contains(t, sql, "ts_rank_cd(posts.content_search")
	assert.Contains(t, sql, "content_search @@")
	assert.Contains(t, sql, ") AS ranked")
	assert.Contains(t, sql, `ORDER BY "ranked"."rank" DESC`)
	assert.Contains(t, sql, "LIMIT 10")
	assert.Contains(t, sql, "OFFSET 20")

	// An explicit sort replaces the rank order.
	sql = render(t, func(tx *gorm.DB) (*gorm.DB, error) {
		return postSearchQuery(tx, "gopher", domain.Page{Sort: "created_at", Order: domain.OrderDesc})
	}, &posts)
	assert.Contains(t, sql, `ORDER BY "ranked"."created_at" DESC`)
	assert.NotContains(t, sql, `"ranked"."rank"`)

	_, err := postSearchQuery(dryRunDB(t), "gopher", domain.Page{Sort: "rank"})
	require.Error(t, err)
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
}

func TestUserSearchQuery(t *testing.T) {
	var users []domain.User

	sql := render(t, func(tx *gorm.DB) (*gorm.DB, error) {
		return userSearchQuery(tx, "Alic", domain.Page{Limit: 5})
	}, &users)
	assert.Contains(t, sql, "similarity(users.username, 'Alic') AS score")
	assert.Contains(t, sql, "lower(users.username) % lower('Alic')")
	assert.Contains(t, sql, ") AS ranked")
	assert.Contains(t, sql, `ORDER BY "ranked"."score" DESC`)
	assert.Contains(t, sql, "LIMIT 5")
}
