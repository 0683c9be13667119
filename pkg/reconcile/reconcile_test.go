package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/theoremgap/pkg/wiki"
	"github.com/codeGROOVE-dev/theoremgap/pkg/wikidata"
)

type fakeReference struct {
	titles []string
	err    error
}

func (f fakeReference) ReferenceTitles(context.Context) ([]string, error) {
	return append([]string(nil), f.titles...), f.err
}

type fakeResolver struct {
	targets map[string]string // name -> resolved title

	mu    sync.Mutex
	calls []string
}

func (f *fakeResolver) Resolve(_ context.Context, name string) wiki.Resolution {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	title, ok := f.targets[name]
	if !ok {
		return wiki.Resolution{}
	}
	return wiki.Resolution{Title: title, URL: "https://wiki.test/wiki/" + title}
}

type fakePages map[string]string

func (f fakePages) Raw(_ context.Context, title string) (string, error) {
	raw, ok := f[title]
	if !ok {
		return "", errors.New("no such page")
	}
	return raw, nil
}

type fakeKB struct {
	labeled, unlabeled []wikidata.Entry
}

func (f fakeKB) Theorems(context.Context) (labeled, unlabeled []wikidata.Entry) {
	return f.labeled, f.unlabeled
}

type fakeFields map[string][]string

func (f fakeFields) Fields(context.Context) map[string][]string { return f }

func classes(cs []Classified) map[string]Classification {
	out := make(map[string]Classification, len(cs))
	for _, c := range cs {
		out[c.Entry.ID] = c.Class
	}
	return out
}

func ids(entries []wikidata.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestRun_EndToEnd(t *testing.T) {
	kb := fakeKB{labeled: []wikidata.Entry{
		{ID: "Q1", Label: "Pythagorean theorem", Identifier: "P1"},
		{ID: "Q2", Label: "Fermat's Last Theorem", Identifier: "P2"},
	}}
	resolver := &fakeResolver{}

	r := New(fakeReference{titles: []string{"Pythagorean theorem"}}, resolver, fakePages{}, kb)
	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if diff := cmp.Diff([]string{"Q1"}, ids(report.Matched)); diff != "" {
		t.Errorf("Matched mismatch (-want +got):\n%s", diff)
	}
	want := []Classified{{
		Entry: wikidata.Entry{ID: "Q2", Label: "Fermat's Last Theorem", Identifier: "P2"},
		Class: NoRedirect,
	}}
	if diff := cmp.Diff(want, report.Classified); diff != "" {
		t.Errorf("Classified mismatch (-want +got):\n%s", diff)
	}
	if got := report.Unresolved(); got != 1 {
		t.Errorf("Unresolved() = %d, want 1", got)
	}
	if got := len(report.Missing()); got != 0 {
		t.Errorf("len(Missing()) = %d, want 0", got)
	}
	// Q1 matched at the diff stage, so only the reference title and Q2 were looked up.
	if diff := cmp.Diff([]string{"Pythagorean theorem", "Fermat's Last Theorem"}, resolver.calls); diff != "" {
		t.Errorf("resolver calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_Classification(t *testing.T) {
	ref := fakeReference{titles: []string{"Alpha theorem", "Alpha theorem", "Omega lemma"}}
	resolver := &fakeResolver{targets: map[string]string{
		"Alpha theorem":    "Alpha theorem",
		"Omega lemma":      "Alpha theorem",
		"Gamma lemma":      "Alpha theorem",
		"Delta conjecture": "Delta conjecture",
		"Epsilon identity": "Zeta identity",
	}}
	pages := fakePages{
		"Alpha theorem": "The '''Alpha's main theorem''' (also '''theorem''') states ...",
	}
	kb := fakeKB{
		labeled: []wikidata.Entry{
			{ID: "Q10", Label: "Beta theorem"},
			{ID: "Q5", Label: "Alpha main theorem"},
			{ID: "QX", Label: "Eta duality"},
			{ID: "Q4", Label: "Epsilon identity"},
			{ID: "Q3", Label: "Delta conjecture"},
			{ID: "Q2", Label: "Gamma lemma"},
		},
		unlabeled: []wikidata.Entry{{ID: "Q99", Label: "Q99"}},
	}
	fields := fakeFields{"Q3": {"algebra"}}

	r := New(ref, resolver, pages, kb, WithFieldSource(fields), WithConcurrency(3))
	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got, want := report.ReferenceTitles, 2; got != want {
		t.Errorf("ReferenceTitles = %d, want %d", got, want)
	}
	if got, want := report.Redirected, 1; got != want {
		t.Errorf("Redirected = %d, want %d", got, want)
	}
	if got, want := report.Alternates, 1; got != want {
		t.Errorf("Alternates = %d, want %d", got, want)
	}
	wantExcl := []string{"alpha main theorem", "alpha theorem", "omega lemma"}
	if diff := cmp.Diff(wantExcl, report.Exclusions); diff != "" {
		t.Errorf("Exclusions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Q5"}, ids(report.Matched)); diff != "" {
		t.Errorf("Matched mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Q99"}, ids(report.Unlabeled)); diff != "" {
		t.Errorf("Unlabeled mismatch (-want +got):\n%s", diff)
	}

	var order []string
	for _, c := range report.Classified {
		order = append(order, c.Entry.ID)
	}
	if diff := cmp.Diff([]string{"Q2", "Q3", "Q4", "Q10", "QX"}, order); diff != "" {
		t.Errorf("Classified order mismatch (-want +got):\n%s", diff)
	}

	wantClasses := map[string]Classification{
		"Q2":  MatchedViaRedirect,
		"Q3":  MismatchSameTarget,
		"Q4":  MismatchDifferentTarget,
		"Q10": NoRedirect,
		"QX":  NoRedirect,
	}
	if diff := cmp.Diff(wantClasses, classes(report.Classified)); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}

	// Every unmatched entry lands in exactly one bucket.
	total := 0
	for _, c := range []Classification{NoRedirect, MatchedViaRedirect, MismatchDifferentTarget, MismatchSameTarget} {
		total += report.Count(c)
	}
	if total != len(report.Labeled)-len(report.Matched) {
		t.Errorf("classified %d entries, want %d", total, len(report.Labeled)-len(report.Matched))
	}

	var missing []string
	for _, c := range report.Missing() {
		missing = append(missing, c.Entry.ID)
	}
	if diff := cmp.Diff([]string{"Q3", "Q4"}, missing); diff != "" {
		t.Errorf("Missing mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"algebra"}, report.Classified[1].Fields); diff != "" {
		t.Errorf("Fields mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_SubstringMatching(t *testing.T) {
	ref := fakeReference{titles: []string{"Extra big theorem"}}
	kb := fakeKB{labeled: []wikidata.Entry{{ID: "Q7", Label: "Big theorem"}}}

	tests := []struct {
		name          string
		mode          MatchMode
		wantMatched   []string
		wantUnmatched int
	}{
		// "big theorem" occurs inside "extra big theorem": a false positive of
		// substring matching.
		{"substring", MatchSubstring, []string{"Q7"}, 0},
		{"exact", MatchExact, []string{}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(ref, &fakeResolver{}, fakePages{}, kb, WithMatchMode(tt.mode))
			report, err := r.Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if diff := cmp.Diff(tt.wantMatched, ids(report.Matched)); diff != "" {
				t.Errorf("Matched mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]string{"Q7"}, ids(report.SubstringOnly)); diff != "" {
				t.Errorf("SubstringOnly mismatch (-want +got):\n%s", diff)
			}
			if got := len(report.Classified); got != tt.wantUnmatched {
				t.Errorf("len(Classified) = %d, want %d", got, tt.wantUnmatched)
			}
		})
	}
}

func TestRun_ShortNamesLeaveCorpus(t *testing.T) {
	ref := fakeReference{titles: []string{"ABC", "Long enough theorem"}}
	kb := fakeKB{labeled: []wikidata.Entry{{ID: "Q1", Label: "abc"}}}

	r := New(ref, &fakeResolver{}, fakePages{}, kb)
	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.CorpusSize != 1 {
		t.Errorf("CorpusSize = %d, want 1", report.CorpusSize)
	}
	if len(report.Matched) != 0 || len(report.Classified) != 1 {
		t.Errorf("Matched = %v, Classified = %v; want abc unmatched", report.Matched, report.Classified)
	}
}

func TestRun_ReferenceUnavailable(t *testing.T) {
	ref := fakeReference{err: errors.New("HTTP 503")}
	r := New(ref, &fakeResolver{}, fakePages{}, fakeKB{})

	_, err := r.Run(context.Background())
	if !errors.Is(err, ErrReferenceUnavailable) {
		t.Errorf("Run() error = %v, want ErrReferenceUnavailable", err)
	}
}

func TestRun_KnowledgeBaseUnavailable(t *testing.T) {
	r := New(fakeReference{titles: []string{"Pythagorean theorem"}}, &fakeResolver{}, fakePages{}, fakeKB{})

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Classified) != 0 || len(report.Matched) != 0 {
		t.Errorf("Run() = %+v, want empty diff", report)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := &fakeResolver{}
	r := New(fakeReference{titles: []string{"A theorem", "B theorem"}}, resolver, fakePages{}, fakeKB{})
	if _, err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(resolver.calls) != 0 {
		t.Errorf("resolver called %d times after cancellation", len(resolver.calls))
	}
}

type slowResolver struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowResolver) Resolve(ctx context.Context, _ string) wiki.Resolution {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(5 * time.Millisecond):
	case <-ctx.Done():
	}
	return wiki.Resolution{}
}

func TestRun_BoundedConcurrency(t *testing.T) {
	titles := make([]string, 40)
	for i := range titles {
		titles[i] = "Theorem " + string(rune('A'+i%26)) + string(rune('a'+i/26))
	}
	resolver := &slowResolver{}

	r := New(fakeReference{titles: titles}, resolver, fakePages{}, fakeKB{}, WithConcurrency(4))
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := resolver.peak.Load(); got > 4 || got < 1 {
		t.Errorf("peak concurrency = %d, want 1..4", got)
	}
}
