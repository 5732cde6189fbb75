// Package handlers contains the read-side query handlers. They load from
// repositories and project aggregates into view models, never mutating
// anything.
package handlers

import "tutormatch-backend/application/ports"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageFrom normalizes raw pagination input into a repository page
func pageFrom(number, size int, sort string, desc bool) ports.Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return ports.Page{Number: number, Size: size, Sort: sort, Desc: desc}
}
