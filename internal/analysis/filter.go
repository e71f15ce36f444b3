package analysis

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/aerodeck/flightdeck-cli/internal/schema"
)

// Airlines returns the distinct non-missing airline values in first-seen row
// order. It is computed on the unfiltered table at load time: the selectable
// set offered to users never shrinks because of a current filter.
func Airlines(df dataframe.DataFrame, sm schema.Map) []string {
	col, ok := sm.Column(schema.RoleAirline)
	if !ok {
		return nil
	}
	s := df.Col(col)
	if s.Err != nil {
		return nil
	}
	recs := s.Records()
	nas := s.IsNaN()
	seen := make(map[string]bool, len(recs))
	var out []string
	for i, r := range recs {
		if r == "" || nas[i] {
			continue
		}
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// ApplyFilter restricts rows to the selected airlines. A nil selection means
// no restriction, matching the default "all airlines selected" interaction.
// An unbound airline role leaves the table unchanged, and so does a selection
// covering every distinct value; both make the stage idempotent. An empty
// non-nil selection keeps zero rows.
func ApplyFilter(df dataframe.DataFrame, sm schema.Map, selection []string) dataframe.DataFrame {
	col, ok := sm.Column(schema.RoleAirline)
	if !ok {
		return df
	}
	if selection == nil || coversAll(df, sm, selection) {
		return df
	}
	return df.Filter(dataframe.F{
		Colname:    col,
		Comparator: series.In,
		Comparando: selection,
	})
}

func coversAll(df dataframe.DataFrame, sm schema.Map, selection []string) bool {
	set := make(map[string]bool, len(selection))
	for _, s := range selection {
		set[s] = true
	}
	for _, a := range Airlines(df, sm) {
		if !set[a] {
			return false
		}
	}
	return true
}
