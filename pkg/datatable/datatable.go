// Package datatable speaks the server-side protocol of the DataTables grid:
// draw/start/length/search[value] in, {draw, recordsTotal,
// recordsFiltered, data} out.
package datatable

import (
	"net/http"

	"github.com/spf13/cast"
)

const (
	defaultLength = 10
	maxLength     = 100
)

type Params struct {
	Draw   int
	Start  int
	Length int
	Search string
}

// Parse reads the grid parameters from the query string. Garbage falls back
// to the first page of default size; length -1 ("all") is capped.
func Parse(r *http.Request) Params {
	q := r.URL.Query()
	p := Params{
		Draw:   cast.ToInt(q.Get("draw")),
		Start:  cast.ToInt(q.Get("start")),
		Length: cast.ToInt(q.Get("length")),
		Search: q.Get("search[value]"),
	}
	if p.Draw < 0 {
		p.Draw = 0
	}
	if p.Start < 0 {
		p.Start = 0
	}
	switch {
	case p.Length == -1 || p.Length > maxLength:
		p.Length = maxLength
	case p.Length <= 0:
		p.Length = defaultLength
	}
	return p
}

type Result struct {
	Draw            int `json:"draw"`
	RecordsTotal    int `json:"recordsTotal"`
	RecordsFiltered int `json:"recordsFiltered"`
	Data            any `json:"data"`
}

// NewResult echoes the draw counter and wraps rows. A nil slice is sent as
// an empty array, which the grid requires.
func NewResult[T any](p Params, total, filtered int, rows []T) Result {
	if rows == nil {
		rows = []T{}
	}
	return Result{Draw: p.Draw, RecordsTotal: total, RecordsFiltered: filtered, Data: rows}
}
