package engine

import (
	"testing"

	"github.com/lmikael/conntop/model"
)

func hostEntry(id, host string, download uint64) model.Entry {
	return model.Entry{Connection: model.Connection{
		ID:       id,
		Metadata: model.Metadata{Host: host},
		Counters: model.Counters{Download: download},
	}}
}

func TestProjectKeywordFilter(t *testing.T) {
	in := []model.Entry{
		hostEntry("1", "example.com", 0),
		hostEntry("2", "test.com", 0),
	}

	tests := []struct {
		name    string
		keyword string
		want    []string
	}{
		{"match", "exa", []string{"1"}},
		{"empty selects all", "", []string{"1", "2"}},
		{"case sensitive", "EXA", nil},
		{"no match", "zzz", nil},
		{"shared suffix", ".com", []string{"1", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Project(in, tt.keyword, "", false)
			var got []string
			for _, e := range out {
				got = append(got, e.ID)
			}
			if !equalIDs(got, tt.want) {
				t.Errorf("Project(%q) = %v, want %v", tt.keyword, got, tt.want)
			}
		})
	}
}

func TestProjectSort(t *testing.T) {
	in := []model.Entry{
		hostEntry("1", "bbb.com", 10),
		hostEntry("2", "aaa.com", 30),
		hostEntry("3", "ccc.com", 20),
	}

	tests := []struct {
		name string
		key  string
		desc bool
		want []string
	}{
		{"host ascending", "host", false, []string{"2", "1", "3"}},
		{"host descending", "host", true, []string{"3", "1", "2"}},
		{"download numeric", "dl", true, []string{"2", "3", "1"}},
		{"unknown key keeps order", "bogus", false, []string{"1", "2", "3"}},
		{"no key keeps order", "", true, []string{"1", "2", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Project(in, "", tt.key, tt.desc)
			var got []string
			for _, e := range out {
				got = append(got, e.ID)
			}
			if !equalIDs(got, tt.want) {
				t.Errorf("Project(sort=%q desc=%v) = %v, want %v", tt.key, tt.desc, got, tt.want)
			}
		})
	}
}

func TestProjectDoesNotMutateInput(t *testing.T) {
	in := []model.Entry{
		hostEntry("1", "bbb.com", 0),
		hostEntry("2", "aaa.com", 0),
	}
	Project(in, "", "host", false)
	if in[0].ID != "1" || in[1].ID != "2" {
		t.Errorf("input slice reordered: %v %v", in[0].ID, in[1].ID)
	}
}

func TestColumnsByKeysTolerateSubsets(t *testing.T) {
	cols := ColumnsByKeys([]string{"dl", "host", "nope", "start"})
	if len(cols) != 3 {
		t.Fatalf("got %d columns, want 3", len(cols))
	}
	if cols[0].Key != "dl" || cols[1].Key != "host" || cols[2].Key != "start" {
		t.Errorf("columns out of caller order: %v %v %v", cols[0].Key, cols[1].Key, cols[2].Key)
	}
}

func TestColumnRatesCompareOnRates(t *testing.T) {
	a := model.Entry{
		Connection: model.Connection{Counters: model.Counters{Download: 1000}},
		Rates:      model.Rates{Download: 5},
	}
	b := model.Entry{
		Connection: model.Connection{Counters: model.Counters{Download: 10}},
		Rates:      model.Rates{Download: 50},
	}

	speed, _ := ColumnByKey("dlspeed")
	if speed.Compare(&a, &b) >= 0 {
		t.Error("dlspeed should compare on derived rates, not cumulative totals")
	}
	total, _ := ColumnByKey("dl")
	if total.Compare(&a, &b) <= 0 {
		t.Error("dl should compare on cumulative totals")
	}
}
