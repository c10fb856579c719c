package crud

import (
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"miniFeed/domain"
	"miniFeed/errs"
)

// Columns that listings may be sorted by. Keys are what clients send,
// values are the column names they map to.
var (
	postSortColumns = map[string]string{
		"created_at": "created_at",
		"title":      "title",
	}
	userSortColumns = map[string]string{
		"username":   "username",
		"email":      "email",
		"created_at": "created_at",
	}
)

// rankedTable is the alias of the derived table that search queries select from.
const rankedTable = "ranked"

// paginate fills in defaults for a page and clamps its limit to domain.MaxLimit.
func paginate(page domain.Page) domain.Page {
	if page.Offset < 0 {
		page.Offset = 0
	}
	if page.Limit <= 0 {
		page.Limit = domain.DefaultLimit
	}
	if page.Limit > domain.MaxLimit {
		page.Limit = domain.MaxLimit
	}
	return page
}

// orderBy turns the sort and order of a page into an ORDER BY column of table.
// ok is false if the page doesn't ask for a sort. Unknown columns and directions
// are rejected before they get anywhere near the query.
func orderBy(table string, columns map[string]string, page domain.Page) (col clause.OrderByColumn, ok bool, err error) {
	switch page.Order {
	case "", domain.OrderAsc, domain.OrderDesc:
	default:
		return col, false, errs.Errorf(errs.EINVALID, "Invalid order %q. Order must be %q or %q.", page.Order, domain.OrderAsc, domain.OrderDesc)
	}
	if page.Sort == "" {
		return col, false, nil
	}
	name, found := columns[page.Sort]
	if !found {
		return col, false, errs.Errorf(errs.EINVALID, "Invalid sort field %q. Sort by one of: %s.", page.Sort, sortKeys(columns))
	}
	return clause.OrderByColumn{
		Column: clause.Column{Table: table, Name: name},
		Desc:   page.Desc(),
	}, true, nil
}

func sortKeys(columns map[string]string) string {
	keys := make([]string, 0, len(columns))
	for k := range columns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// listQuery builds the query for a plain listing of a table: ordered by the requested
// column, or by insertion order if there is none, then windowed by the page.
func listQuery(db *gorm.DB, model interface{}, table string, columns map[string]string, page domain.Page) (*gorm.DB, error) {
	page = paginate(page)
	col, ok, err := orderBy(table, columns, page)
	if err != nil {
		return nil, err
	}
	if !ok {
		col = clause.OrderByColumn{Column: clause.Column{Table: table, Name: "created_at"}}
	}
	return db.Model(model).Order(col).Offset(page.Offset).Limit(page.Limit), nil
}

// postFeedQuery builds the query behind the post feed.
func postFeedQuery(db *gorm.DB, page domain.Page) (*gorm.DB, error) {
	return listQuery(db, &domain.Post{}, "posts", postSortColumns, page)
}

// userListQuery builds the query behind the user listing.
func userListQuery(db *gorm.DB, page domain.Page) (*gorm.DB, error) {
	return listQuery(db, &domain.User{}, "users", userSortColumns, page)
}

// postSearchQuery builds a full-text search over post content in three stages.
// The inner query selects matching posts along with their cover density rank,
// the outer one orders them (by rank, unless the page asks for a sort column)
// and applies the page window.
func postSearchQuery(db *gorm.DB, q string, page domain.Page) (*gorm.DB, error) {
	page = paginate(page)
	col, sorted, err := orderBy(rankedTable, postSortColumns, page)
	if err != nil {
		return nil, err
	}
	matches := db.Model(&domain.Post{}).
		Select("posts.*, ts_rank_cd(posts.content_search, websearch_to_tsquery('english', ?)) AS rank", q).
		Where("posts.content_search @@ websearch_to_tsquery('english', ?)", q)

	tx := db.Table("(?) AS "+rankedTable, matches)
	if sorted {
		tx = tx.Order(col)
	} else {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Table: rankedTable, Name: "rank"}, Desc: true})
	}
	return tx.Offset(page.Offset).Limit(page.Limit), nil
}

// userSearchQuery builds a fuzzy search over usernames in three stages.
// The inner query selects users whose name is similar to q according to pg_trgm,
// the outer one orders them by similarity and applies the page window.
func userSearchQuery(db *gorm.DB, q string, page domain.Page) (*gorm.DB, error) {
	page = paginate(page)
	if _, _, err := orderBy(rankedTable, userSortColumns, page); err != nil {
		return nil, err
	}
	matches := db.Model(&domain.User{}).
		Select("users.*, similarity(users.username, ?) AS score", q).
		Where("lower(users.username) % lower(?)", q)

	return db.Table("(?) AS "+rankedTable, matches).
		Order(clause.OrderByColumn{Column: clause.Column{Table: rankedTable, Name: "score"}, Desc: true}).
		Offset(page.Offset).
		Limit(page.Limit), nil
}
