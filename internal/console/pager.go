// ABOUTME: Page math shared by every listing screen
// ABOUTME: Fixed page size, exact totals, and boundary-safe navigation

package console

// PageSize is the fixed page size used by every listing screen.
const PageSize = 20

// Pager describes the pagination state of one listing: the zero-based page
// and the exact total reported by the backend alongside the page rows.
type Pager struct {
	Page  int
	Total int64
}

// TotalPages returns ceil(total/PageSize), never less than one.
func (p Pager) TotalPages() int {
	pages := int((p.Total + PageSize - 1) / PageSize)
	if pages < 1 {
		return 1
	}
	return pages
}

// CanPrev reports whether an earlier page exists.
func (p Pager) CanPrev() bool {
	return p.Page > 0
}

// CanNext reports whether a later page exists.
func (p Pager) CanNext() bool {
	return int64(p.Page+1)*PageSize < p.Total
}

// Window returns the inclusive row range for the page.
func (p Pager) Window() (from, to int) {
	from = p.Page * PageSize
	return from, from + PageSize - 1
}

// clampPage floors a requested page index at zero. Upper bounds are
// enforced by the navigation helpers once a total is known.
func clampPage(page int) int {
	if page < 0 {
		return 0
	}
	return page
}
