package htmlutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLinks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []Link
	}{
		{
			name: "page index",
			html: `<html><body><ul>
<li><a href="/nlab/show/Yoneda+lemma">Yoneda lemma</a></li>
<li><a href="/nlab/show/adjoint+functor+theorem"> adjoint functor <em>theorem</em> </a></li>
</ul></body></html>`,
			want: []Link{
				{Text: "Yoneda lemma", Href: "/nlab/show/Yoneda+lemma"},
				{Text: "adjoint functor theorem", Href: "/nlab/show/adjoint+functor+theorem"},
			},
		},
		{
			name: "anchor without href",
			html: `<a name="top">theorem</a>`,
			want: []Link{{Text: "theorem"}},
		},
		{
			name: "entities decoded",
			html: `<a href="/x">Fermat&#39;s theorem &amp; more</a>`,
			want: []Link{{Text: "Fermat's theorem & more", Href: "/x"}},
		},
		{
			name: "no anchors",
			html: `<p>nothing here</p>`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Links(tt.html)
			if err != nil {
				t.Fatalf("Links() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Links() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
