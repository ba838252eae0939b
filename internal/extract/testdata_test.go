package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const cardsHTML = `<html><body>
<h1>Parishes of the Diocese</h1>
<div class="parish-list">
  <div class="parish-card">
    <h3>St. Mary Parish</h3>
    <p class="address">123 Main St<br>Springfield, IL 62701</p>
    <p>Phone: (217) 555-0100</p>
    <a href="https://stmaryspringfield.org">Website</a>
    <a href="/parishes/st-mary">Details</a>
  </div>
  <div class="parish-card">
    <h3>St. Joseph Parish</h3>
    <p class="address">45 Oak Ave<br>Decatur, IL 62521</p>
    <p>Phone: 217-555-0111</p>
  </div>
  <div class="parish-card">
    <h3>Holy Family</h3>
    <p class="address">9 Elm Street, Peoria, IL 61602</p>
  </div>
</div>
</body></html>`

const tableHTML = `<html><body>
<table class="layout"><tr><td>Welcome</td><td>News</td></tr></table>
<table id="parishes">
  <thead><tr><th>Name</th><th>Address</th><th>City</th><th>Phone</th></tr></thead>
  <tbody>
    <tr><td>St. Anne</td><td>1 Church Rd</td><td>Alton</td><td>618-555-0101</td></tr>
    <tr><td>St. Paul</td><td>22 River Dr</td><td>Bethalto</td><td>618-555-0102</td></tr>
    <tr><td>Our Lady of Lourdes</td><td>300 Hill Ave</td><td>Godfrey</td><td>618-555-0103</td></tr>
  </tbody>
</table>
</body></html>`

func mustPage(t *testing.T, rawURL, html string) *Page {
	t.Helper()
	p, err := ParseHTML(rawURL, html)
	require.NoError(t, err)
	return p
}
