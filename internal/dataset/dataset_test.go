package dataset

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var flightRows = []string{
	"AIRLINE,ORIGIN_AIRPORT,DEPARTURE_DELAY,ARRIVAL_DELAY,CANCELLED,MONTH",
	"DL,ATL,5,-3,0,1",
	"UA,ORD,12,20,0,1",
	"DL,ATL,0,0,0,2",
	"WN,DAL,n/a,15,1,2",
	"UA,ORD,-2,-8,0,3",
}

func writeFixtureCSV(t *testing.T, name string, rows []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.Join(rows, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFixtureCSV(t, "flights.csv", flightRows)
	ds, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.ID == "" {
		t.Fatalf("dataset id empty")
	}
	if ds.Name != "flights.csv" || ds.Format != "csv" {
		t.Fatalf("name/format = %q/%q", ds.Name, ds.Format)
	}
	if ds.Rows() != 5 {
		t.Fatalf("rows = %d, want 5", ds.Rows())
	}
	wantCols := []string{"AIRLINE", "ORIGIN_AIRPORT", "DEPARTURE_DELAY", "ARRIVAL_DELAY", "CANCELLED", "MONTH"}
	if got := ds.Columns(); !reflect.DeepEqual(got, wantCols) {
		t.Fatalf("columns = %v, want %v", got, wantCols)
	}
	// Every column stays a string series until normalization.
	for _, typ := range ds.Frame.Types() {
		if typ != series.String {
			t.Fatalf("column type = %v, want string", typ)
		}
	}
	if got := ds.Frame.Col("AIRLINE").Records(); !reflect.DeepEqual(got, []string{"DL", "UA", "DL", "WN", "UA"}) {
		t.Fatalf("airline column = %v", got)
	}
}

func TestLoadTSVSniffsDelimiter(t *testing.T) {
	rows := []string{
		"AIRLINE\tARRIVAL_DELAY",
		"DL\t4",
		"UA\t-1",
	}
	path := writeFixtureCSV(t, "flights.tsv", rows)
	ds, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", ds.Rows())
	}
	if got := ds.Frame.Col("AIRLINE").Records(); !reflect.DeepEqual(got, []string{"DL", "UA"}) {
		t.Fatalf("airline column = %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.csv"), LoadOptions{}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadHeaderOnlyFails(t *testing.T) {
	path := writeFixtureCSV(t, "empty.csv", []string{"AIRLINE,ARRIVAL_DELAY"})
	if _, err := Load(path, LoadOptions{}); err == nil {
		t.Fatalf("expected error for header-only file")
	}
}

func TestParseDelimiter(t *testing.T) {
	cases := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{"", 0, false},
		{",", ',', false},
		{";", ';', false},
		{"tab", '\t', false},
		{"\t", '\t', false},
		{"multi", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseDelimiter(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseDelimiter(%q) err = nil, want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDelimiter(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseDelimiter(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCSVExportRoundTrip(t *testing.T) {
	path := writeFixtureCSV(t, "flights.csv", flightRows)
	ds, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	out := filepath.Join(t.TempDir(), "exported.csv")
	if err := WriteCSV(ds.Frame, out); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	back, err := Load(out, LoadOptions{})
	if err != nil {
		t.Fatalf("reload export: %v", err)
	}
	if back.Rows() != ds.Rows() {
		t.Fatalf("round-trip rows = %d, want %d", back.Rows(), ds.Rows())
	}
	if !reflect.DeepEqual(back.Frame.Records(), ds.Frame.Records()) {
		t.Fatalf("round-trip records differ:\n%v\n%v", back.Frame.Records(), ds.Frame.Records())
	}
}

func TestXLSXExportAndLoad(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"DL", "UA", "WN"}, series.String, "AIRLINE"),
		series.New([]string{"4", "-1", "22"}, series.String, "ARRIVAL_DELAY"),
	)
	dir := t.TempDir()
	path := filepath.Join(dir, "flights.xlsx")
	if err := WriteXLSX(df, path); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	ds, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load xlsx: %v", err)
	}
	if ds.Format != "xlsx" {
		t.Fatalf("format = %q, want xlsx", ds.Format)
	}
	if ds.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", ds.Rows())
	}
	if got := ds.Frame.Col("AIRLINE").Records(); !reflect.DeepEqual(got, []string{"DL", "UA", "WN"}) {
		t.Fatalf("airline column = %v", got)
	}

	if _, err := Load(path, LoadOptions{Sheet: "Missing"}); err == nil {
		t.Fatalf("expected error for unknown sheet")
	}
	byName, err := Load(path, LoadOptions{Sheet: "Sheet1"})
	if err != nil {
		t.Fatalf("Load by sheet name: %v", err)
	}
	if byName.Rows() != 3 {
		t.Fatalf("rows by name = %d, want 3", byName.Rows())
	}
}

func TestXLSXBytesSkipsMissing(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"DL", "UA"}, series.String, "AIRLINE"),
		series.New([]float64{4, math.NaN()}, series.Float, "ARRIVAL_DELAY"),
	)
	data, err := XLSXBytes(df)
	if err != nil {
		t.Fatalf("XLSXBytes: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatalf("xlsx bytes missing zip magic")
	}

	path := filepath.Join(t.TempDir(), "sparse.xlsx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	ds, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load xlsx: %v", err)
	}
	got := ds.Frame.Col("ARRIVAL_DELAY").Records()
	if len(got) != 2 || got[1] != "" {
		t.Fatalf("missing cell = %v, want empty second value", got)
	}
}

func TestCacheReusesUntilSourceChanges(t *testing.T) {
	path := writeFixtureCSV(t, "flights.csv", flightRows)
	cache := NewCache()

	first, err := cache.Get(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	again, err := cache.Get(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if first.ID != again.ID {
		t.Fatalf("cache miss on unchanged file: %s vs %s", first.ID, again.ID)
	}
	if cache.Len() != 1 {
		t.Fatalf("cache len = %d, want 1", cache.Len())
	}

	// Rewrite with one more row and force a newer modtime; same-second
	// writes would otherwise look unchanged.
	rows := append(append([]string{}, flightRows...), "AA,JFK,9,9,0,3")
	if err := os.WriteFile(path, []byte(strings.Join(rows, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("rewrite fixture: %v", err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	reloaded, err := cache.Get(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Get after change: %v", err)
	}
	if reloaded.ID == first.ID {
		t.Fatalf("expected reload after source change")
	}
	if reloaded.Rows() != 6 {
		t.Fatalf("reloaded rows = %d, want 6", reloaded.Rows())
	}
}

func TestCacheInvalidate(t *testing.T) {
	path := writeFixtureCSV(t, "flights.csv", flightRows)
	cache := NewCache()
	first, err := cache.Get(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	cache.Invalidate(path)
	second, err := cache.Get(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected fresh load after invalidate")
	}
}

func TestWatcherInvalidatesOnWrite(t *testing.T) {
	path := writeFixtureCSV(t, "flights.csv", flightRows)
	cache := NewCache()
	if _, err := cache.Get(path, LoadOptions{}); err != nil {
		t.Fatalf("Get: %v", err)
	}

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(cache, path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- w.Run() }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(strings.Join(flightRows, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("rewrite fixture: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher did not report change")
	}
	if cache.Len() != 0 {
		t.Fatalf("cache len = %d, want 0 after invalidation", cache.Len())
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not exit after Close")
	}
}
