package theoremgap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/theoremgap/pkg/httpcache"
	"github.com/codeGROOVE-dev/theoremgap/pkg/reconcile"
)

func TestMain(m *testing.M) {
	httpcache.DefaultLimiter.SetDelay(0)
	os.Exit(m.Run())
}

const sparqlJSON = `{"results": {"bindings": [
  {"theorem": {"value": "http://www.wikidata.org/entity/Q1"}, "theoremLabel": {"value": "Pythagorean theorem"}},
  {"theorem": {"value": "http://www.wikidata.org/entity/Q2"}, "theoremLabel": {"value": "Pythagoras' theorem"}},
  {"theorem": {"value": "http://www.wikidata.org/entity/Q30"}, "theoremLabel": {"value": "Fermat's Last Theorem"}},
  {"theorem": {"value": "http://www.wikidata.org/entity/Q4"}, "theoremLabel": {"value": "Unknown lemma"}},
  {"theorem": {"value": "http://www.wikidata.org/entity/Q5"}, "theoremLabel": {"value": "Q5"}}
]}}`

func newWikiServer(t *testing.T, reference string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/w/index.php", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("title") {
		case "List_of_theorems":
			if reference == "" {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(reference))
		case "Pythagorean_theorem":
			_, _ = w.Write([]byte("The '''Pythagorean theorem''' or '''Pythagoras's theorem''' relates ..."))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/wiki/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wiki/Pythagorean_theorem", "/wiki/Fermat's_Last_Theorem":
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/sparql", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sparqlJSON))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestReconcile(t *testing.T) {
	srv := newWikiServer(t, "* [[Pythagorean theorem]] (geometry)\n")

	report, err := Reconcile(context.Background(), "test@example.com",
		WithWikiURL(srv.URL), WithSPARQLEndpoint(srv.URL+"/sparql"), WithConcurrency(2))
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	var matched []string
	for _, e := range report.Matched {
		matched = append(matched, e.ID)
	}
	if diff := cmp.Diff([]string{"Q1", "Q2"}, matched); diff != "" {
		t.Errorf("Matched mismatch (-want +got):\n%s", diff)
	}

	got := make(map[string]reconcile.Classification)
	for _, c := range report.Classified {
		got[c.Entry.ID] = c.Class
	}
	want := map[string]reconcile.Classification{
		"Q4":  reconcile.NoRedirect,
		"Q30": reconcile.MismatchSameTarget,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}
	if len(report.Unlabeled) != 1 {
		t.Errorf("len(Unlabeled) = %d, want 1", len(report.Unlabeled))
	}
	if missing := report.Missing(); len(missing) != 1 || missing[0].Entry.ID != "Q30" {
		t.Errorf("Missing() = %+v, want Q30", missing)
	}
}

func TestReconcile_ReferenceUnavailable(t *testing.T) {
	srv := newWikiServer(t, "")

	_, err := Reconcile(context.Background(), "test@example.com",
		WithWikiURL(srv.URL), WithSPARQLEndpoint(srv.URL+"/sparql"))
	if !errors.Is(err, ErrReferenceUnavailable) {
		t.Errorf("Reconcile() error = %v, want ErrReferenceUnavailable", err)
	}
}

func TestCatalog(t *testing.T) {
	const index = `<html><body><ul>
<li><a href="/nlab/show/Yoneda+lemma">Yoneda lemma</a></li>
<li><a href="/nlab/show/lemma">lemma</a></li>
<li><a href="/nlab/show/Stone+duality">Stone duality</a></li>
</ul></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(index))
	}))
	defer srv.Close()

	categories, err := Catalog(context.Background(), WithCatalogURL(srv.URL))
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}

	got := make(map[string][]string)
	for _, c := range categories {
		if len(c.Titles) > 0 {
			got[c.Keyword] = c.Titles
		}
	}
	want := map[string][]string{
		"lemma":   {"Yoneda lemma"},
		"duality": {"Stone duality"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Catalog() mismatch (-want +got):\n%s", diff)
	}
}
