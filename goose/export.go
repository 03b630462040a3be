package goose

import (
	"strings"

	"bmp2goose/bitmap"
	"bmp2goose/parallel"
)

// tokenSep terminates every token.
const tokenSep = "|"

// Reporter receives progress from Export. RowExported is called once per
// row, from whichever worker rendered it, so implementations must be safe
// for concurrent use.
type Reporter interface {
	RowExported(row uint32, tokens int)
}

type Options struct {
	// Workers is the number of rows rendered concurrently. Values below 1
	// use GOMAXPROCS.
	Workers  int
	Reporter Reporter
}

// Export renders every kept pixel of g into a document. Rows are rendered
// concurrently but joined top to bottom, so the result does not depend on
// the number of workers.
func Export(g *bitmap.Grid, p Params, opts Options) string {
	if g.Empty() {
		return ""
	}

	rows := parallel.Map(opts.Workers, int(g.Height), func(i int) string {
		y := uint32(i)
		row, n := exportRow(g, y, p)
		if opts.Reporter != nil {
			opts.Reporter.RowExported(y, n)
		}
		return row
	})

	return strings.Join(rows, "")
}

// exportRow renders row y left to right and returns it with its token count.
func exportRow(g *bitmap.Grid, y uint32, p Params) (string, int) {
	var (
		buf []byte
		n   int
	)
	for x, px := range g.Row(y) {
		if p.ExcludeWhite && px.IsWhite() {
			continue
		}
		buf = NewPlatform(uint32(x), y, g, p).AppendToken(buf)
		n++
	}
	return string(buf), n
}

// CountTokens returns the number of platforms in doc.
func CountTokens(doc string) int {
	return strings.Count(doc, tokenSep)
}
