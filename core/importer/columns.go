package importer

import (
	"math"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/resultportal/core"
)

// Role is what a spreadsheet column holds.
type Role string

// Roles
const (
	RoleRoll       Role = "roll"
	RoleClass      Role = "class"
	RoleName       Role = "name"
	RoleFather     Role = "father"
	RoleTotal      Role = "total"
	RolePercentage Role = "percentage"
)

// requiredRoles must all be found in the header.
var requiredRoles = []Role{RoleRoll, RoleClass, RoleName}

// columnRules are tried in order against the lower-cased header text; the first match wins.
var columnRules = []struct {
	role  Role
	match func(h string) bool
}{
	{RoleRoll, func(h string) bool { return strings.Contains(h, "roll") }},
	{RoleFather, func(h string) bool { return strings.Contains(h, "father") }},
	{RoleName, func(h string) bool { return strings.Contains(h, "name") }},
	{RoleClass, func(h string) bool { return strings.Contains(h, "class") }},
	{RoleTotal, func(h string) bool { return strings.Contains(h, "total") }},
	{RolePercentage, func(h string) bool { return strings.Contains(h, "percent") || strings.Contains(h, "%") }},
}

// ColumnMap locates every column role in the header. Missing optional roles are -1.
type ColumnMap struct {
	Roll       int `json:"roll"`
	Class      int `json:"class"`
	Name       int `json:"name"`
	Father     int `json:"father"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
	// Candidates are the header-eligible subject columns.
	Candidates []int `json:"candidates"`
	// Subjects are the candidates that hold at least one positive mark (see AcceptSubjects).
	Subjects []int `json:"subjects"`
}

func (cm *ColumnMap) index(role Role) *int {
	switch role {
	case RoleRoll:
		return &cm.Roll
	case RoleClass:
		return &cm.Class
	case RoleName:
		return &cm.Name
	case RoleFather:
		return &cm.Father
	case RoleTotal:
		return &cm.Total
	default:
		return &cm.Percentage
	}
}

func classifyHeader(h string) (Role, bool) {
	h = core.CleanString(h, true /* lower */)
	for _, rule := range columnRules {
		if rule.match(h) {
			return rule.role, true
		}
	}
	return "", false
}

// ClassifyColumns assigns a role to each header cell by keyword.
// Unmatched non-blank headers become subject candidates.
func ClassifyColumns(header []string) (ColumnMap, error) {
	cm := ColumnMap{Roll: -1, Class: -1, Name: -1, Father: -1, Total: -1, Percentage: -1}
	for i, h := range header {
		if core.CleanString(h) == "" {
			continue
		}
		role, ok := classifyHeader(h)
		if !ok {
			cm.Candidates = append(cm.Candidates, i)
			continue
		}
		if idx := cm.index(role); *idx < 0 {
			*idx = i
		}
	}

	var missing []Role
	for _, role := range requiredRoles {
		if *cm.index(role) < 0 {
			missing = append(missing, role)
		}
	}
	if len(missing) > 0 {
		return cm, &MissingColumnError{Missing: missing, Suggestions: suggest(missing, header, cm.Candidates)}
	}
	return cm, nil
}

// suggest finds, for each missing role, the candidate header that looks the most like it.
func suggest(missing []Role, header []string, candidates []int) map[Role]string {
	hints := make(map[Role]string)
	matcher := difflib.NewMatcher(nil, nil)
	for _, role := range missing {
		matcher.SetSeq2(splitChars(string(role)))
		best, bestRatio := "", 0.6
		for _, i := range candidates {
			text := core.CleanString(header[i])
			matcher.SetSeq1(splitChars(strings.ToLower(text)))
			if ratio := matcher.QuickRatio(); ratio >= bestRatio {
				best, bestRatio = text, ratio
			}
		}
		if best != "" {
			hints[role] = best
		}
	}
	return hints
}

func splitChars(s string) []string {
	return strings.Split(s, "")
}

// parseNumber reads a numeric cell. Blank, "-", "A" & friends are not numbers.
func parseNumber(cell string) (float64, bool) {
	f, err := strconv.ParseFloat(core.CleanString(cell), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// AcceptSubjects keeps the candidate columns where at least one student row holds a strictly positive number.
// Columns that are blank, "-", "A" or zero for every student are dropped.
func AcceptSubjects(cm ColumnMap, rows [][]string) ColumnMap {
	cm.Subjects = make([]int, 0, len(cm.Candidates))
	for _, col := range cm.Candidates {
		for _, row := range rows {
			if col >= len(row) {
				continue
			}
			if v, ok := parseNumber(row[col]); ok && v > 0 {
				cm.Subjects = append(cm.Subjects, col)
				break
			}
		}
	}
	return cm
}

// ParseObtained converts a mark cell: the absentee marker "A", blanks and anything
// non-numeric become 0. Negative values are clamped to 0.
func ParseObtained(cell string) float64 {
	v, ok := parseNumber(cell)
	if !ok || v < 0 {
		return 0
	}
	return v
}
