package discovery

import (
	"strings"
	"tripmarket/pkg/model"
)

// Search matches query case-insensitively against name, description,
// location address, categories and tags. The whole query may appear in one
// field, or every whitespace separated token may appear somewhere.
// A blank query matches everything.
func Search(query string) Predicate {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return All()
	}
	tokens := strings.Fields(query)

	return func(o *model.Offering) bool {
		fields := searchableFields(o)
		if containsAny(fields, query) {
			return true
		}
		if len(tokens) < 2 {
			return false
		}
		for _, tok := range tokens {
			if !containsAny(fields, tok) {
				return false
			}
		}
		return true
	}
}

func searchableFields(o *model.Offering) []string {
	fields := make([]string, 0, 3+len(o.Categories)+len(o.Tags))
	fields = append(fields,
		strings.ToLower(o.Name),
		strings.ToLower(o.Description),
		strings.ToLower(o.Location.Address),
	)
	for _, c := range o.Categories {
		fields = append(fields, strings.ToLower(c))
	}
	for _, t := range o.Tags {
		fields = append(fields, strings.ToLower(t))
	}
	return fields
}

func containsAny(fields []string, needle string) bool {
	for _, f := range fields {
		if strings.Contains(f, needle) {
			return true
		}
	}
	return false
}

// Intersect returns the members of a whose ID also appears in b, in a's order.
func Intersect(a, b []*model.Offering) []*model.Offering {
	keep := idSet(b)
	out := make([]*model.Offering, 0, len(a))
	for _, o := range a {
		if _, ok := keep[o.ID]; ok {
			out = append(out, o)
		}
	}
	return out
}

func idSet(pool []*model.Offering) map[string]struct{} {
	ids := make(map[string]struct{}, len(pool))
	for _, o := range pool {
		ids[o.ID] = struct{}{}
	}
	return ids
}
