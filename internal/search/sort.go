// Sort-token validation.
//
// Callers supply sort specifications as "field,direction" tokens. Fields are
// resolved against a closed whitelist and mapped to column identifiers here,
// at the boundary; raw caller strings never reach the query layer.
package search

import (
	"fmt"
	"strings"
)

// SortField is a validated, sortable drug attribute.
type SortField string

// The sortable-field whitelist.
const (
	SortByName        SortField = "name"
	SortByForm        SortField = "form"
	SortByExpiration  SortField = "expirationDate"
	SortByDescription SortField = "description"
)

// Direction is a validated sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// SortSpec is one validated (field, direction) pair.
type SortSpec struct {
	Field     SortField
	Direction Direction
}

// Column returns the database column a sort field maps to.
func (f SortField) Column() string {
	switch f {
	case SortByExpiration:
		return "expiration_date"
	default:
		return string(f)
	}
}

// sortFields maps lowercase tokens to canonical fields. Lookup is
// case-insensitive so "NAME" and "name" both resolve to SortByName.
var sortFields = map[string]SortField{
	"name":           SortByName,
	"form":           SortByForm,
	"expirationdate": SortByExpiration,
	"description":    SortByDescription,
}

// ParseSortField resolves a raw field token against the whitelist.
func ParseSortField(raw string) (SortField, bool) {
	f, ok := sortFields[strings.ToLower(strings.TrimSpace(raw))]
	return f, ok
}

// ParseDirection resolves a raw direction token case-insensitively.
// An empty token defaults to ascending.
func ParseDirection(raw string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "ASC":
		return Asc, true
	case "DESC":
		return Desc, true
	default:
		return "", false
	}
}

// parseSortToken splits and validates one "field[,direction]" token,
// recording failures on v under the given request field name.
func parseSortToken(v *ValidationError, field, token string) (SortSpec, bool) {
	name, dir, _ := strings.Cut(token, ",")

	sf, ok := ParseSortField(name)
	if !ok {
		v.add(field, CodeInvalidSortField,
			fmt.Sprintf("unknown sort field %q (one of: name, form, expirationDate, description)", strings.TrimSpace(name)))
		return SortSpec{}, false
	}
	d, ok := ParseDirection(dir)
	if !ok {
		v.add(field, CodeInvalidSortDirection,
			fmt.Sprintf("sort direction %q must be asc or desc", strings.TrimSpace(dir)))
		return SortSpec{}, false
	}
	return SortSpec{Field: sf, Direction: d}, true
}
