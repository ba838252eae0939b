package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSitemap(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://stmary.org/</loc></url>
  <url><loc> https://stmary.org/mass-times </loc><lastmod>2025-01-01</lastmod></url>
  <url><loc></loc></url>
</urlset>`

	urls, err := ParseSitemap(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://stmary.org/", "https://stmary.org/mass-times"}, urls)
}

func TestParseSitemapIndex(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://stmary.org/page-sitemap.xml</loc></sitemap>
  <sitemap><loc>https://stmary.org/post-sitemap.xml</loc></sitemap>
</sitemapindex>`

	urls, err := ParseSitemapIndex(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://stmary.org/page-sitemap.xml", "https://stmary.org/post-sitemap.xml"}, urls)
}

func TestParseSitemap_Malformed(t *testing.T) {
	_, err := ParseSitemap("<html><body>not found</body></html>")
	assert.Error(t, err)
}
