package domain

const (
	// OrderAsc and OrderDesc are the accepted values of Page.Order.
	OrderAsc  = "asc"
	OrderDesc = "desc"

	DefaultLimit = 10
	MaxLimit     = 100
)

// Page describes a window into a listing. Sort names a column to order by; if it's
// empty, the listing's default order applies. Order is OrderAsc (the default, also
// used when empty) or OrderDesc.
type Page struct {
	Offset int
	Limit  int
	Sort   string
	Order  string
}

// Desc reports whether the page asks for descending order.
func (p Page) Desc() bool {
	return p.Order == OrderDesc
}
