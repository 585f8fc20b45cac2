package service

import "math"

// PageSize — размер страницы списков анкет.
const PageSize = 15

// maxPage ограничивает номер страницы, чтобы смещение не переполнило int.
const maxPage = math.MaxInt32

// Page — страница списка.
type Page[T any] struct {
	Items    []T `json:"data"`
	Page     int `json:"current_page"`
	PerPage  int `json:"per_page"`
	Total    int `json:"total"`
	LastPage int `json:"last_page"`
}

// newPage собирает страницу; LastPage не меньше 1.
func newPage[T any](items []T, page, total int) Page[T] {
	last := (total + PageSize - 1) / PageSize
	if last < 1 {
		last = 1
	}
	return Page[T]{Items: items, Page: page, PerPage: PageSize, Total: total, LastPage: last}
}

// HasNext сообщает, есть ли следующая страница.
func (p Page[T]) HasNext() bool { return p.Page < p.LastPage }

// HasPrev сообщает, есть ли предыдущая страница.
func (p Page[T]) HasPrev() bool { return p.Page > 1 }

// normalizePage приводит номер страницы к диапазону [1, maxPage].
// Страница за последней даёт пустой список, а не ошибку.
func normalizePage(page int) int {
	switch {
	case page < 1:
		return 1
	case page > maxPage:
		return maxPage
	}
	return page
}

func pageOffset(page int) int {
	return (page - 1) * PageSize
}
