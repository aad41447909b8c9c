package query

import (
	"cmp"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
	"github.com/kk-code-lab/rbrowse/internal/listing"
	"golang.org/x/text/unicode/norm"
)

// Direction orders the name key.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Toggle flips the direction.
func (d Direction) Toggle() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// ViewQuery is the client-local filter and sort state.
type ViewQuery struct {
	Search    string
	Category  fsutil.Category
	Direction Direction
}

// DefaultQuery matches everything in ascending order.
func DefaultQuery() ViewQuery {
	return ViewQuery{Category: fsutil.AllFiles, Direction: Asc}
}

func (q ViewQuery) allFiles() bool {
	return q.Category == "" || q.Category == fsutil.AllFiles
}

// Row is an entry decorated for display.
type Row struct {
	Entry    fsutil.Entry
	Path     string
	Category fsutil.Category
	// FormattedSize is empty for directories and for entries without a size.
	FormattedSize string
}

// Group is a run of rows sharing a category.
type Group struct {
	Category fsutil.Category
	Rows     []Row
}

// View is the derived model the renderer consumes.
type View struct {
	// Rows are filtered and sorted by the comparator.
	Rows []Row
	// Counts come from the name-filtered set, before the category filter.
	Counts map[fsutil.Category]int
	// Groups is populated only in AllFiles mode, in display order, without empty groups.
	Groups  []Group
	Grouped bool
}

// Count returns the badge value for a category, including AllFiles.
func (v View) Count(c fsutil.Category) int {
	return v.Counts[c]
}

// Ordered returns rows in on-screen order: grouped order in AllFiles mode,
// otherwise the sorted rows.
func (v View) Ordered() []Row {
	if !v.Grouped {
		return v.Rows
	}
	out := make([]Row, 0, len(v.Rows))
	for _, g := range v.Groups {
		out = append(out, g.Rows...)
	}
	return out
}

// DeriveView runs filter, decorate, category filter, sort and group over
// entries. It does not modify its inputs.
func DeriveView(entries []fsutil.Entry, q ViewQuery, currentPath string) View {
	currentPath = listing.NormalizePath(currentPath)
	needle := foldName(q.Search)

	counts := make(map[fsutil.Category]int, len(fsutil.Categories())+1)
	rows := make([]Row, 0, len(entries))
	total := 0

	for _, e := range entries {
		if needle != "" && !strings.Contains(foldName(e.Name), needle) {
			continue
		}

		row := decorate(e, currentPath)
		total++
		counts[row.Category]++

		if !q.allFiles() && row.Category != q.Category {
			continue
		}
		rows = append(rows, row)
	}
	counts[fsutil.AllFiles] = total

	sort.SliceStable(rows, func(i, j int) bool {
		return Compare(rows[i], rows[j], q) < 0
	})

	view := View{Rows: rows, Counts: counts}
	if q.allFiles() {
		view.Grouped = true
		view.Groups = group(rows)
	}
	return view
}

func decorate(e fsutil.Entry, dir string) Row {
	row := Row{
		Entry:    e,
		Path:     listing.JoinPath(dir, e.Name),
		Category: fsutil.Classify(e),
	}
	if !e.IsDir {
		switch {
		case e.Size != nil:
			row.FormattedSize = fsutil.FormatSize(*e.Size)
		case e.SizeText != "":
			row.FormattedSize = e.SizeText
		}
	}
	return row
}

// Compare orders two rows: directories first in AllFiles mode, then
// category name ascending, then lowercase name in the query direction.
func Compare(a, b Row, q ViewQuery) int {
	if q.allFiles() && a.Entry.IsDir != b.Entry.IsDir {
		if a.Entry.IsDir {
			return -1
		}
		return 1
	}

	if c := strings.Compare(string(a.Category), string(b.Category)); c != 0 {
		return c
	}

	c := compareUTF16(strings.ToLower(a.Entry.Name), strings.ToLower(b.Entry.Name))
	if q.Direction == Desc {
		return -c
	}
	return c
}

// compareUTF16 orders strings by UTF-16 code units, so characters outside
// the BMP sort before U+E000..U+FFFF as they do in browser clients.
func compareUTF16(a, b string) int {
	for a != "" && b != "" {
		ra, na := utf8.DecodeRuneInString(a)
		rb, nb := utf8.DecodeRuneInString(b)
		if ra != rb {
			ua, ub := firstUnit(ra), firstUnit(rb)
			if ua != ub {
				return cmp.Compare(ua, ub)
			}
			return cmp.Compare(ra, rb)
		}
		a, b = a[na:], b[nb:]
	}
	return cmp.Compare(len(a), len(b))
}

func firstUnit(r rune) rune {
	if hi, _ := utf16.EncodeRune(r); hi != utf8.RuneError {
		return hi
	}
	return r
}

func group(rows []Row) []Group {
	buckets := make(map[fsutil.Category][]Row)
	for _, r := range rows {
		buckets[r.Category] = append(buckets[r.Category], r)
	}

	groups := make([]Group, 0, len(buckets))
	for _, c := range fsutil.Categories() {
		if len(buckets[c]) == 0 {
			continue
		}
		groups = append(groups, Group{Category: c, Rows: buckets[c]})
	}
	return groups
}

func foldName(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
