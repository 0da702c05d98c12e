package markets

import (
	"testing"
	"time"
)

func TestOpportunityID(t *testing.T) {
	if got := OpportunityID("0xabc", "PRES-24"); got != "0xabc-PRES-24" {
		t.Fatalf("OpportunityID = %q", got)
	}
}

func TestYesTokenID(t *testing.T) {
	ref := PolymarketRef{YesTokenID: "yes-1", NoTokenID: "no-1"}
	cases := []struct {
		name string
		m    Market
		want string
	}{
		{"value", Market{Raw: ref}, "yes-1"},
		{"pointer", Market{Raw: &ref}, "yes-1"},
		{"nil pointer", Market{Raw: (*PolymarketRef)(nil)}, ""},
		{"kalshi", Market{Raw: KalshiRef{}}, ""},
		{"none", Market{}, ""},
	}
	for _, c := range cases {
		if got := c.m.YesTokenID(); got != c.want {
			t.Errorf("%s: YesTokenID = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestEntryKeyDistinguishesRuns(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a := Opportunity{ID: "p-k", RunID: "run-1", DetectedAt: at}
	b := a
	b.RunID = "run-2"

	if a.EntryKey() == b.EntryKey() {
		t.Fatal("expected distinct keys for distinct runs")
	}
	if a.EntryKey() != a.EntryKey() {
		t.Fatal("expected stable key")
	}
}
