package engine

import (
	"testing"

	"github.com/lmikael/conntop/model"
)

func conn(id string, up, down uint64) model.Connection {
	return model.Connection{
		ID:       id,
		Counters: model.Counters{Upload: up, Download: down},
	}
}

func TestComputeRatesFirstObservation(t *testing.T) {
	prev := map[string]model.Counters{}
	next, entries := ComputeRates(prev, []model.Connection{conn("a", 1000, 5000)})

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	// First sight of an identity must not spike from its cumulative totals.
	if entries[0].Rates.Upload != 0 || entries[0].Rates.Download != 0 {
		t.Errorf("first observation rates = %+v, want zero", entries[0].Rates)
	}
	if next["a"].Upload != 1000 || next["a"].Download != 5000 {
		t.Errorf("baseline not stored: %+v", next["a"])
	}
}

func TestComputeRatesDelta(t *testing.T) {
	prev := map[string]model.Counters{"a": {Upload: 100, Download: 200}}
	_, entries := ComputeRates(prev, []model.Connection{conn("a", 150, 260)})

	if got := entries[0].Rates; got.Upload != 50 || got.Download != 60 {
		t.Errorf("rates = %+v, want {50 60}", got)
	}
}

func TestComputeRatesClampsDecreasingCounters(t *testing.T) {
	tests := []struct {
		name           string
		prevUp, prevDn uint64
		curUp, curDn   uint64
		wantUp, wantDn uint64
	}{
		{"upload reset", 100, 10, 40, 20, 0, 10},
		{"download reset", 10, 100, 20, 40, 10, 0},
		{"both reset", 100, 100, 40, 40, 0, 0},
		{"identical replay", 100, 100, 100, 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := map[string]model.Counters{"a": {Upload: tt.prevUp, Download: tt.prevDn}}
			_, entries := ComputeRates(prev, []model.Connection{conn("a", tt.curUp, tt.curDn)})
			got := entries[0].Rates
			if got.Upload != tt.wantUp || got.Download != tt.wantDn {
				t.Errorf("rates = {%d %d}, want {%d %d}", got.Upload, got.Download, tt.wantUp, tt.wantDn)
			}
		})
	}
}

func TestComputeRatesDropsDepartedBaselines(t *testing.T) {
	prev := map[string]model.Counters{
		"a": {Upload: 1, Download: 1},
		"b": {Upload: 2, Download: 2},
	}
	next, _ := ComputeRates(prev, []model.Connection{conn("a", 5, 5)})

	if _, ok := next["b"]; ok {
		t.Error("departed identity kept its baseline; reappearance would not start from zero")
	}
	if len(next) != 1 {
		t.Errorf("next baseline has %d identities, want 1", len(next))
	}
}

func TestComputeRatesDuplicateIdentityLastWins(t *testing.T) {
	prev := map[string]model.Counters{"a": {Upload: 100, Download: 0}}
	next, entries := ComputeRates(prev, []model.Connection{
		conn("a", 110, 0),
		conn("b", 1, 1),
		conn("a", 130, 0),
	})

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after dedup, got %d", len(entries))
	}
	// Last occurrence wins, measured against the previous batch.
	if entries[0].ID != "a" || entries[0].Counters.Upload != 130 {
		t.Errorf("entry = %+v, want last occurrence of a", entries[0])
	}
	if entries[0].Rates.Upload != 30 {
		t.Errorf("duplicate delta = %d, want 30 (vs previous batch, not earlier duplicate)", entries[0].Rates.Upload)
	}
	if next["a"].Upload != 130 {
		t.Errorf("stored baseline = %d, want 130", next["a"].Upload)
	}
}

func TestComputeRatesEmptyBatch(t *testing.T) {
	prev := map[string]model.Counters{"a": {Upload: 1}}
	next, entries := ComputeRates(prev, nil)
	if len(entries) != 0 || len(next) != 0 {
		t.Errorf("empty batch produced entries=%d baselines=%d", len(entries), len(next))
	}
}
