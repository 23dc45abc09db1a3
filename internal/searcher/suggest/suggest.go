package suggest

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/filter"
)

type Field string

const (
	FieldCollegeName Field = "college_name"
	FieldLocation    Field = "location"
	FieldState       Field = "state"
	FieldBranch      Field = "branch"
)

var Fields = []Field{FieldCollegeName, FieldLocation, FieldState, FieldBranch}

func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown suggestion field %q", s)
}

// Suggestions is the autocomplete payload, one list per field.
type Suggestions struct {
	CollegeName []string `json:"college_name"`
	Location    []string `json:"location"`
	State       []string `json:"state"`
	Branch      []string `json:"branch"`
}

func value(c catalog.College, field Field) string {
	switch field {
	case FieldCollegeName:
		return c.Name
	case FieldLocation:
		return c.Location
	case FieldState:
		return c.State
	case FieldBranch:
		return c.Branch
	}
	return ""
}

// Distinct returns every non-empty value of field across colleges, exact
// duplicates removed, sorted case-insensitively.
func Distinct(colleges []catalog.College, field Field) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, c := range colleges {
		v := value(c, field)
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	filter.SortFold(out)
	return out
}

// Suggest narrows the distinct values of field to those containing partial,
// ignoring case. An empty partial, or one that matches nothing, yields the
// full distinct set so a failed lookup still shows what the catalog holds.
func Suggest(colleges []catalog.College, partial string, field Field) []string {
	all := Distinct(colleges, field)
	needle := strings.ToLower(strings.TrimSpace(partial))
	if needle == "" {
		return all
	}
	matched := make([]string, 0)
	for _, v := range all {
		if strings.Contains(strings.ToLower(v), needle) {
			matched = append(matched, v)
		}
	}
	if len(matched) == 0 {
		return all
	}
	return matched
}

// Partials carries the user's input per field.
type Partials struct {
	CollegeName string
	Location    string
	State       string
	Branch      string
}

func Build(colleges []catalog.College, p Partials) Suggestions {
	return Suggestions{
		CollegeName: Suggest(colleges, p.CollegeName, FieldCollegeName),
		Location:    Suggest(colleges, p.Location, FieldLocation),
		State:       Suggest(colleges, p.State, FieldState),
		Branch:      Suggest(colleges, p.Branch, FieldBranch),
	}
}
