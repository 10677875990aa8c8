package attendance

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

const unknownName = "Unknown"

// Roster is the set of employees seen in one run, in natural ID order.
type Roster struct {
	IDs   []string
	names map[string]string
}

// NewRoster collects every employee ID present in records. The name of an
// employee is the one on their first record.
func NewRoster(records []Record) Roster {
	names := make(map[string]string)
	for _, r := range records {
		if _, ok := names[r.EmployeeID]; !ok {
			names[r.EmployeeID] = r.EmployeeName
		}
	}
	ids := make([]string, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sortNatural(ids)
	return Roster{IDs: ids, names: names}
}

func sortNatural(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool { return naturalLess(ids[i], ids[j]) })
}

func (r Roster) Name(id string) string {
	if name, ok := r.names[id]; ok && name != "" {
		return name
	}
	return unknownName
}

func (r Roster) Len() int { return len(r.IDs) }

// naturalLess orders "2" before "10" and compares text runs case-insensitively.
func naturalLess(a, b string) bool {
	ac, bc := naturalChunks(a), naturalChunks(b)
	for i := 0; i < len(ac) && i < len(bc); i++ {
		x, y := ac[i], bc[i]
		xn, xerr := strconv.Atoi(x)
		yn, yerr := strconv.Atoi(y)
		switch {
		case xerr == nil && yerr == nil:
			if xn != yn {
				return xn < yn
			}
		case xerr == nil:
			return true
		case yerr == nil:
			return false
		default:
			xl, yl := strings.ToLower(x), strings.ToLower(y)
			if xl != yl {
				return xl < yl
			}
		}
	}
	if len(ac) != len(bc) {
		return len(ac) < len(bc)
	}
	return a < b
}

func naturalChunks(s string) []string {
	var chunks []string
	var b strings.Builder
	digit := false
	for i, r := range s {
		isDigit := unicode.IsDigit(r)
		if i > 0 && isDigit != digit {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		digit = isDigit
		b.WriteRune(r)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
