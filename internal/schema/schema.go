package schema

import (
	"fmt"
	"strings"
)

// Role identifies a canonical field of a flight-records table. Real datasets
// name these columns unpredictably; the resolver binds each role to an actual
// column so the rest of the pipeline never touches raw header names.
type Role string

const (
	RoleAirline        Role = "airline"
	RoleArrivalDelay   Role = "arrival_delay"
	RoleDepartureDelay Role = "departure_delay"
	RoleOriginAirport  Role = "origin_airport"
	RoleMonth          Role = "month"
	RoleCancelled      Role = "cancelled"
)

// Roles lists every role in resolution order.
var Roles = []Role{
	RoleAirline,
	RoleArrivalDelay,
	RoleDepartureDelay,
	RoleOriginAirport,
	RoleMonth,
	RoleCancelled,
}

// NumericRoles are the roles whose bound columns get coerced to floats.
var NumericRoles = []Role{RoleArrivalDelay, RoleDepartureDelay, RoleCancelled}

// MatchMode selects how alias lists are matched against column names.
type MatchMode string

const (
	// MatchExact binds a role to the first column whose normalized name equals
	// an alias. Aliases are tried in priority order; within one alias, columns
	// in their original order.
	MatchExact MatchMode = "exact"
	// MatchSubstring binds a role to the first column whose normalized name
	// contains a keyword. Columns are scanned in their original order; within
	// one column, keywords in priority order.
	MatchSubstring MatchMode = "substring"
)

// ParseMode validates a mode string from config or flags.
func ParseMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(MatchExact):
		return MatchExact, nil
	case string(MatchSubstring):
		return MatchSubstring, nil
	default:
		return "", fmt.Errorf("unknown match mode %q (want %q or %q)", s, MatchExact, MatchSubstring)
	}
}

// ParseRole validates a role name from config.
func ParseRole(s string) (Role, error) {
	r := Role(normalize(s))
	for _, known := range Roles {
		if r == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// ParseOverrides validates per-role alias overrides keyed by role name, as
// read from config. Blank aliases are dropped; a role whose list becomes
// empty keeps its built-in aliases.
func ParseOverrides(raw map[string][]string) (map[Role][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[Role][]string, len(raw))
	for name, aliases := range raw {
		role, err := ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("aliases: %w", err)
		}
		var cleaned []string
		for _, a := range aliases {
			if t := strings.TrimSpace(a); t != "" {
				cleaned = append(cleaned, t)
			}
		}
		if len(cleaned) > 0 {
			out[role] = cleaned
		}
	}
	return out, nil
}

// Map binds roles to actual column names. Roles without a usable column are
// simply absent; downstream features degrade per role.
type Map map[Role]string

// Column returns the bound column name for role.
func (m Map) Column(role Role) (string, bool) {
	col, ok := m[role]
	return col, ok
}

// Has reports whether every given role is bound.
func (m Map) Has(roles ...Role) bool {
	for _, r := range roles {
		if _, ok := m[r]; !ok {
			return false
		}
	}
	return true
}

// Unbound returns the roles without a column, in Roles order.
func (m Map) Unbound() []Role {
	var out []Role
	for _, r := range Roles {
		if _, ok := m[r]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// DefaultAliases returns the built-in per-role alias lists in priority order.
// Lists are lowercase; matching normalizes column names the same way.
func DefaultAliases() map[Role][]string {
	return map[Role][]string{
		RoleAirline:        {"airline", "carrier", "airline_name", "carrier_name", "op_carrier", "op_unique_carrier", "operating_airline"},
		RoleArrivalDelay:   {"arrival_delay", "arr_delay", "arrdelay", "arrival delay", "arrival_delay_minutes"},
		RoleDepartureDelay: {"departure_delay", "dep_delay", "depdelay", "departure delay", "departure_delay_minutes"},
		RoleOriginAirport:  {"origin_airport", "origin_iata", "origin_code", "orig_airport", "origin", "from_airport"},
		RoleMonth:          {"month", "flight_month"},
		RoleCancelled:      {"cancelled", "canceled", "is_cancelled", "is_canceled", "cancellation", "cancel_flag"},
	}
}

// Resolver maps table columns to roles. The zero value is not usable; build
// one with NewResolver and adjust Aliases for per-role overrides.
type Resolver struct {
	Mode    MatchMode
	Aliases map[Role][]string
}

// NewResolver returns a resolver for mode with the built-in alias lists.
func NewResolver(mode MatchMode) Resolver {
	return Resolver{Mode: mode, Aliases: DefaultAliases()}
}

// WithOverrides returns a resolver whose alias lists for the overridden roles
// are replaced wholesale. Roles absent from overrides keep their current
// lists; r itself is not modified.
func (r Resolver) WithOverrides(overrides map[Role][]string) Resolver {
	if len(overrides) == 0 {
		return r
	}
	merged := make(map[Role][]string, len(r.Aliases))
	for role, list := range r.Aliases {
		merged[role] = list
	}
	for role, list := range overrides {
		merged[role] = list
	}
	return Resolver{Mode: r.Mode, Aliases: merged}
}

// Resolve binds roles to columns. Roles resolve independently: the same
// column may serve two roles, and an unmatched role is not an error. The
// result depends only on the column list, never on row data.
func (r Resolver) Resolve(columns []string) Map {
	norm := make([]string, len(columns))
	for i, c := range columns {
		norm[i] = normalize(c)
	}
	out := Map{}
	for _, role := range Roles {
		aliases := r.Aliases[role]
		var col string
		var ok bool
		if r.Mode == MatchSubstring {
			col, ok = firstContaining(columns, norm, aliases)
		} else {
			col, ok = firstEqual(columns, norm, aliases)
		}
		if ok {
			out[role] = col
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// firstEqual scans aliases in priority order, columns in table order.
func firstEqual(columns, norm, aliases []string) (string, bool) {
	for _, a := range aliases {
		an := normalize(a)
		for i, n := range norm {
			if n == an {
				return columns[i], true
			}
		}
	}
	return "", false
}

// firstContaining scans columns in table order, keywords in priority order.
func firstContaining(columns, norm, aliases []string) (string, bool) {
	for i, n := range norm {
		for _, a := range aliases {
			if strings.Contains(n, normalize(a)) {
				return columns[i], true
			}
		}
	}
	return "", false
}
