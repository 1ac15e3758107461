package models

import "math"

const maxPageLimit = 100

// maxPageNumber держит смещение в пределах int32
const maxPageNumber = math.MaxInt32 / maxPageLimit

// Page - параметры постраничной выборки
type Page struct {
	Number int
	Limit  int
}

// NewPage нормализует номер страницы и лимит
func NewPage(number, limit, defaultLimit int) Page {
	if number < 1 {
		number = 1
	}
	if number > maxPageNumber {
		number = maxPageNumber
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return Page{Number: number, Limit: limit}
}

// Offset возвращает смещение для SQL
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// Pagination описывает страницу в ответе API
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Paginate строит описание страницы для общего числа записей
func (p Page) Paginate(total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{Page: p.Number, Limit: p.Limit, Total: total, Pages: pages}
}
