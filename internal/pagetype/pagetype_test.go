package pagetype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		want Type
	}{
		{"/", Page},
		{"/blog/some-article", Page},
		{"/index.html", Page},
		{"/legacy/page.PHP", Page},
		{"/static/app.min.js", JavaScript},
		{"/static/site.css", CSS},
		{"/img/Logo.PNG", Image},
		{"/fonts/inter.woff2", Font},
		{"/sitemap.xml", XML},
		{"/feed.rss", XML},
		{"/api/data.json", JSON},
		{"/docs/manual.pdf", PDF},
		{"/downloads/archive.tar.gz", Other},
		{"/.well-known/security", Page},
		{"/.htaccess", Page},
		{"/v1.2/resource", Page},
		{"/dir.d/", Page},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Classify(tc.url), tc.url)
	}
}

func TestClassifyIgnoresQueryAndFragment(t *testing.T) {
	t.Parallel()

	require.Equal(t, Page, Classify("/search?file=report.pdf"))
	require.Equal(t, Page, Classify("/article#section.css"))
	require.Equal(t, Image, Classify("/img/photo.jpg?w=200&h=100"))
	require.Equal(t, Classify("/img/photo.jpg"), Classify("/img/photo.jpg?v=2#top"))
	require.Equal(t, JavaScript, Classify("https://example.com/main.js?x=1.css"))
}
