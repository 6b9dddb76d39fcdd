package models

// MaxPage bounds page numbers so offsets stay far from integer overflow.
const MaxPage = 100000

func pageOffset(page, pageSize int) int {
	page = min(max(page, 1), MaxPage)
	return (page - 1) * pageSize
}
