package adapters

import (
	"context"
	"strings"
	"testing"

	"github.com/ppiankov/parishscope/internal/llm"
	"github.com/ppiankov/parishscope/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardsFixture = `<html><body>
<h1>Parishes of the Diocese</h1>
<div class="parish-list">
  <div class="parish-card"><h3>St. Anne</h3><p class="address">1 Church Rd, Alton, IL 62002</p><p>618-555-0101</p></div>
  <div class="parish-card"><h3>St. Paul</h3><p class="address">22 River Dr, Bethalto, IL 62010</p><a href="/parishes/st-paul">More</a></div>
  <div class="parish-card"><h3>Holy Family</h3><p class="address">9 Elm Street, Peoria, IL 61602</p><a href="https://holyfamilypeoria.org">Website</a></div>
  <div class="parish-card"><h3>Details</h3><p class="address">5 Oak Ave, Peoria, IL</p></div>
</div>
</body></html>`

func names(records []model.ParishRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestDispatcher_CardLayout(t *testing.T) {
	env := newEnv(t, directoryURL, cardsFixture)

	res := NewDispatcher().Run(context.Background(), env)
	require.NoError(t, res.Err)
	assert.Equal(t, model.PatternCardLayout, res.Classification.Pattern)
	assert.Equal(t, model.StrategyCardLayout, res.Strategy)

	// four cards, one with a placeholder name
	assert.Equal(t, []string{"St. Anne", "St. Paul", "Holy Family"}, names(res.Records))
	assert.Equal(t, 1, res.Rejected)

	for _, r := range res.Records {
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, 85, r.Confidence)
		assert.Equal(t, model.StrategyCardLayout, r.Strategy)
		assert.Equal(t, directoryURL, r.SourceURL)
		assert.False(t, r.ExtractedAt.IsZero())
	}
	assert.Equal(t, "618-555-0101", res.Records[0].Phone)
	assert.Equal(t, "https://holyfamilypeoria.org", res.Records[2].WebsiteURL)
	assert.Equal(t, model.ParishID(directoryURL, "St. Anne"), res.Records[0].ID)
}

func TestCardStrategy_FollowsDetailPages(t *testing.T) {
	env := newEnv(t, directoryURL, cardsFixture)
	env.Fetcher = siteFetcher(map[string]string{
		"https://diocese.example.org/parishes/st-paul": `<html><body><h1>St. Paul</h1>
<p>22 River Dr<br>Bethalto, IL 62010</p><p>Phone: 618-555-0102</p>
<a href="https://stpaulbethalto.org">Visit our website</a></body></html>`,
	})

	res := NewDispatcher().Execute(context.Background(), model.StrategyCardLayout, 85, env)
	require.NoError(t, res.Err)
	require.Len(t, res.Records, 3)

	paul := res.Records[1]
	assert.Equal(t, "618-555-0102", paul.Phone)
	assert.Equal(t, "https://stpaulbethalto.org", paul.WebsiteURL)
	assert.Equal(t, "Bethalto", paul.City)
}

func TestDispatcher_StaticTable(t *testing.T) {
	env := newEnv(t, directoryURL, tableFixture)

	res := NewDispatcher().Run(context.Background(), env)
	require.NoError(t, res.Err)
	assert.Equal(t, model.StrategyStaticTable, res.Strategy)
	require.Len(t, res.Records, 3)

	anne := res.Records[0]
	assert.Equal(t, "St. Anne", anne.Name)
	assert.Equal(t, "1 Church Rd", anne.StreetAddress)
	assert.Equal(t, "Alton", anne.City)
	assert.Equal(t, "618-555-0101", anne.Phone)
	assert.Equal(t, 90, anne.Confidence)

	assert.Equal(t, "Our Lady of Lourdes", res.Records[2].Name)
	assert.Equal(t, "Godfrey", res.Records[2].City)
}

func TestDispatcher_GenericFallbackIsLowConfidence(t *testing.T) {
	page := `<html><body>
<p>Welcome to the Diocese of Springfield.</p>
<p>St. Agnes Church</p><p>245 Walnut Street, Springfield, IL 62704</p>
<p>Holy Cross</p><p>1701 Vine Ave, Decatur, IL 62521</p>
</body></html>`
	env := newEnv(t, directoryURL, page)

	res := NewDispatcher().Run(context.Background(), env)
	require.NoError(t, res.Err)
	assert.Equal(t, model.PatternUnknown, res.Classification.Pattern)
	assert.Equal(t, model.StrategyGeneric, res.Strategy)

	require.Equal(t, []string{"St. Agnes Church", "Holy Cross"}, names(res.Records))
	for _, r := range res.Records {
		assert.LessOrEqual(t, r.Confidence, GenericConfidence)
	}
	assert.Equal(t, "Decatur", res.Records[1].City)
}

func TestGenericStrategy_PlainNamesWithoutClassifier(t *testing.T) {
	page := `<html><body>
<p>Good Shepherd</p><p>123 College Ave, Normal, IL 61761</p>
<p>Corpus Christi</p><p>5 Elm St, Normal, IL</p>
</body></html>`

	env := newEnv(t, directoryURL, page)
	res := NewDispatcher().Execute(context.Background(), model.StrategyGeneric, GenericConfidence, env)
	require.Equal(t, []string{"Good Shepherd", "Corpus Christi"}, names(res.Records))
	assert.Equal(t, GenericConfidence-ambiguityPenalty, res.Records[0].Confidence)
	assert.Equal(t, GenericConfidence, res.Records[1].Confidence)
}

func TestGenericStrategy_ClassifierVetoesPlainNames(t *testing.T) {
	page := `<html><body>
<p>Newman Center</p><p>123 College Ave, Normal, IL 61761</p>
<p>Wesley Hall</p><p>5 Elm St, Normal, IL</p>
</body></html>`

	env := newEnv(t, directoryURL, page)
	env.Classifier = fakeClassifier(func(text, _ string) llm.Label {
		if strings.Contains(text, "Newman") {
			return llm.Label{Label: llm.LabelYes, Confidence: 0.9}
		}
		return llm.Label{Label: llm.LabelNo, Confidence: 0.9}
	})
	res := NewDispatcher().Execute(context.Background(), model.StrategyGeneric, GenericConfidence, env)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Newman Center", res.Records[0].Name)
	assert.Equal(t, GenericConfidence-ambiguityPenalty, res.Records[0].Confidence)
}

const iframeFixture = `<html><body>
<h1>Find a Parish</h1>
<iframe id="dir" src="https://widgets.parishesonline.com/directory/42"></iframe>
</body></html>`

func TestIframeStrategy_SelectAllText(t *testing.T) {
	frame := &fakeSession{selectAll: "Saint Mary123 Main St, Springfield, IL\nSaint Joseph45 Oak Ave, Springfield, IL"}
	env := newEnv(t, directoryURL, iframeFixture)
	env.Session = &fakeSession{url: directoryURL, pages: []string{iframeFixture}, frames: map[string]*fakeSession{"#dir": frame}}

	res := NewDispatcher().Run(context.Background(), env)
	require.NoError(t, res.Err)
	assert.Equal(t, model.PatternIframeEmbedded, res.Classification.Pattern)
	assert.Equal(t, model.HintParishesOnline, res.Classification.Hint)
	assert.Equal(t, model.StrategyIframeEmbedded, res.Strategy)

	require.Equal(t, []string{"Saint Mary", "Saint Joseph"}, names(res.Records))
	assert.Equal(t, "123 Main St", res.Records[0].StreetAddress)
	assert.Equal(t, "45 Oak Ave", res.Records[1].StreetAddress)
	assert.Equal(t, 70, res.Records[0].Confidence)
}

func TestIframeStrategy_FetchesSourceWithoutSession(t *testing.T) {
	env := newEnv(t, directoryURL, iframeFixture)
	env.Fetcher = siteFetcher(map[string]string{
		"https://widgets.parishesonline.com/directory/42": `<html><body>
<div>Saint Mary<br>123 Main St<br>Springfield, IL 62701</div>
<div>St. Joseph<br>45 Oak Ave, Springfield, IL</div>
</body></html>`,
	})

	res := NewDispatcher().Run(context.Background(), env)
	require.NoError(t, res.Err)
	require.Equal(t, []string{"Saint Mary", "St. Joseph"}, names(res.Records))
	assert.Equal(t, "62701", res.Records[0].PostalCode)
}

func TestIframeStrategy_FailureIsPolicyError(t *testing.T) {
	env := newEnv(t, directoryURL, iframeFixture)
	env.Fetcher = siteFetcher(nil)

	res := NewDispatcher().Run(context.Background(), env)
	assert.Empty(t, res.Records)

	var pe *model.ExtractionPolicyError
	require.ErrorAs(t, res.Err, &pe)
	assert.Equal(t, model.StrategyIframeEmbedded, pe.Strategy)
	assert.True(t, model.IsFetchError(res.Err, model.FetchNotFound))
}

const hoverFixture = `<html><body>
<nav><ul>
  <li><a href="/">Home</a></li>
  <li><a href="#">Parishes</a>
    <ul class="sub-menu">
      <li><a href="/about/history">History</a></li>
      <li><a href="/parish-directory">Parish Directory</a></li>
    </ul>
  </li>
</ul></nav>
<p>Welcome</p>
</body></html>`

func TestHoverStrategy_FollowsDirectoryLink(t *testing.T) {
	env := newEnv(t, "https://diocese.example.org/", hoverFixture)
	env.Fetcher = siteFetcher(map[string]string{
		"https://diocese.example.org/parish-directory": tableFixture,
	})

	res := NewDispatcher().Run(context.Background(), env)
	require.NoError(t, res.Err)
	assert.Equal(t, model.PatternHoverNavigation, res.Classification.Pattern)
	assert.Equal(t, model.StrategyHoverNavigation, res.Strategy)

	require.Len(t, res.Records, 3)
	for _, r := range res.Records {
		assert.Equal(t, model.StrategyStaticTable, r.Strategy)
		assert.Equal(t, 90-env.Limits.HoverPenalty, r.Confidence)
		assert.Equal(t, "https://diocese.example.org/parish-directory", r.SourceURL)
	}
}

const tiedHoverFixture = `<html><body>
<nav><ul>
  <li><a href="#">Parishes</a>
    <ul class="sub-menu">
      <li><a href="/north">Parishes (North)</a></li>
      <li><a href="/south">Parishes (South)</a></li>
    </ul>
  </li>
</ul></nav>
</body></html>`

func tiedFetcher() model.PageFetcher {
	return siteFetcher(map[string]string{
		"https://diocese.example.org/north": tableFixture,
		"https://diocese.example.org/south": strings.Replace(tableFixture, "St. Anne", "St. Rita", 1),
	})
}

func TestHoverStrategy_TieWithoutClassifierIsPenalized(t *testing.T) {
	env := newEnv(t, "https://diocese.example.org/", tiedHoverFixture)
	env.Fetcher = tiedFetcher()

	res := NewDispatcher().Run(context.Background(), env)
	require.NoError(t, res.Err)
	require.NotEmpty(t, res.Records)
	assert.Equal(t, "St. Anne", res.Records[0].Name)
	assert.Equal(t, 90-env.Limits.HoverPenalty-ambiguityPenalty, res.Records[0].Confidence)
}

func TestHoverStrategy_ClassifierBreaksTie(t *testing.T) {
	env := newEnv(t, "https://diocese.example.org/", tiedHoverFixture)
	env.Fetcher = tiedFetcher()
	env.Classifier = fakeClassifier(func(text, _ string) llm.Label {
		if strings.Contains(text, "South") {
			return llm.Label{Label: llm.LabelYes, Confidence: 0.9}
		}
		return llm.Label{Label: llm.LabelNo, Confidence: 0.8}
	})

	res := NewDispatcher().Run(context.Background(), env)
	require.NoError(t, res.Err)
	require.NotEmpty(t, res.Records)
	assert.Equal(t, "St. Rita", res.Records[0].Name)
	assert.Equal(t, 90-env.Limits.HoverPenalty, res.Records[0].Confidence)
}

const searchPage1 = `<html><body>
<div class="parish-finder">
  <form><input type="search" name="q"></form>
  <ul id="results">
    <li>St. Anne<br>1 Church Rd, Alton, IL</li>
    <li>St. Paul<br>22 River Dr, Bethalto, IL</li>
  </ul>
  <div class="pagination"><a rel="next" href="/finder?page=2">Next</a></div>
</div>
</body></html>`

const searchPage2 = `<html><body>
<ul id="results">
  <li>Holy Family<br>9 Elm Street, Peoria, IL</li>
</ul>
<div class="pagination"><a class="prev" href="/finder?page=1">Prev</a></div>
</body></html>`

func TestSearchStrategy_PaginatesWithoutSession(t *testing.T) {
	env := newEnv(t, directoryURL, searchPage1)
	env.Fetcher = siteFetcher(map[string]string{
		"https://diocese.example.org/finder?page=2": searchPage2,
	})

	res := NewDispatcher().Execute(context.Background(), model.StrategyInteractiveSearch, 80, env)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"St. Anne", "St. Paul", "Holy Family"}, names(res.Records))
	for _, r := range res.Records {
		assert.Equal(t, 80, r.Confidence)
	}
}

func TestSearchStrategy_PageCap(t *testing.T) {
	env := newEnv(t, directoryURL, searchPage1)
	env.Limits.MaxSearchPages = 1
	env.Fetcher = siteFetcher(map[string]string{
		"https://diocese.example.org/finder?page=2": searchPage2,
	})

	res := NewDispatcher().Execute(context.Background(), model.StrategyInteractiveSearch, 80, env)
	assert.Len(t, res.Records, 2)
}

func TestSearchStrategy_InteractiveStopsOnRepeatedPage(t *testing.T) {
	page1 := strings.Replace(searchPage1, `<a rel="next" href="/finder?page=2">Next</a>`, `<button class="next">Next</button>`, 1)
	page2 := `<html><body><ul id="results">
<li>Holy Family<br>9 Elm Street, Peoria, IL</li>
<li>St. Rita<br>7 Oak Lane, Peoria, IL</li>
</ul><button class="next">Next</button></body></html>`

	sess := &fakeSession{url: directoryURL, pages: []string{page1, page2, page2}}
	env := newEnv(t, directoryURL, page1)
	env.Limits.SearchQuery = "parish"
	env.Session = sess

	res := NewDispatcher().Execute(context.Background(), model.StrategyInteractiveSearch, 80, env)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"St. Anne", "St. Paul", "Holy Family", "St. Rita"}, names(res.Records))
	require.Len(t, sess.typed, 1)
	assert.True(t, strings.HasSuffix(sess.typed[0], "=parish"))
	assert.Len(t, sess.clicks, 2)
}

func TestMapStrategy_StaticMarkers(t *testing.T) {
	page := `<html><body><h1>Parish Map</h1><div id="map"></div>
<script>var parishes = [{"title":"St. Anne","address":"1 Church Rd, Alton, IL 62002","lat":38.89,"lng":-90.18},{"title":"St. Paul","address":"22 River Dr, Bethalto, IL 62010","lat":38.91,"lng":-90.04}];</script>
</body></html>`
	env := newEnv(t, directoryURL, page)

	res := NewDispatcher().Run(context.Background(), env)
	require.NoError(t, res.Err)
	assert.Equal(t, model.StrategyInteractiveMap, res.Strategy)
	require.Equal(t, []string{"St. Anne", "St. Paul"}, names(res.Records))

	anne := res.Records[0]
	require.NotNil(t, anne.Latitude)
	require.NotNil(t, anne.Longitude)
	assert.InDelta(t, 38.89, *anne.Latitude, 1e-9)
	assert.InDelta(t, -90.18, *anne.Longitude, 1e-9)
	assert.Equal(t, "Alton", anne.City)
	assert.Equal(t, 75, anne.Confidence)
}

func TestMapStrategy_ClicksMarkers(t *testing.T) {
	initial := `<html><body><div class="leaflet-container">
<img class="leaflet-marker-icon" data-lat="38.89" data-lng="-90.18">
<img class="leaflet-marker-icon">
</div></body></html>`
	withPopup := func(body string) string {
		return strings.Replace(initial, "</body>", `<div class="leaflet-popup-content">`+body+`</div></body>`, 1)
	}

	sess := &fakeSession{url: directoryURL, pages: []string{
		initial,
		withPopup(`<b>St. Anne</b><br>1 Church Rd<br>Alton, IL 62002`),
		withPopup(`<b>St. Paul</b><br>22 River Dr<br>Bethalto, IL 62010<br><a href="https://stpaulbethalto.org">stpaulbethalto.org</a>`),
	}}
	env := newEnv(t, directoryURL, initial)
	env.Session = sess

	res := NewDispatcher().Run(context.Background(), env)
	require.NoError(t, res.Err)
	assert.Equal(t, model.StrategyInteractiveMap, res.Strategy)
	require.Equal(t, []string{"St. Anne", "St. Paul"}, names(res.Records))
	assert.Len(t, sess.clicks, 2)

	require.NotNil(t, res.Records[0].Latitude)
	assert.Nil(t, res.Records[1].Latitude)
	assert.Equal(t, "https://stpaulbethalto.org", res.Records[1].WebsiteURL)
}

func TestMapStrategy_NoMarkersWithoutSession(t *testing.T) {
	page := `<html><body><div class="leaflet-container"><img class="leaflet-marker-icon"></div></body></html>`
	env := newEnv(t, directoryURL, page)

	res := NewDispatcher().Run(context.Background(), env)
	assert.Empty(t, res.Records)
	assert.Error(t, res.Err)
}

type panicStrategy struct{}

func (panicStrategy) Name() model.StrategyName { return model.StrategyGeneric }
func (panicStrategy) Extract(context.Context, *Env) ([]model.ParishRecord, error) {
	panic("boom")
}

func TestDispatcher_RecoversStrategyPanic(t *testing.T) {
	d := NewDispatcher()
	d.strategies[model.StrategyGeneric] = panicStrategy{}

	res := d.Execute(context.Background(), model.StrategyGeneric, GenericConfidence, newEnv(t, directoryURL, "<html></html>"))
	assert.Empty(t, res.Records)

	var pe *model.ExtractionPolicyError
	require.ErrorAs(t, res.Err, &pe)
	assert.Equal(t, "panic", pe.Step)
	assert.Contains(t, pe.Error(), "boom")
}

type fixedStrategy []model.ParishRecord

func (fixedStrategy) Name() model.StrategyName { return model.StrategyGeneric }
func (f fixedStrategy) Extract(context.Context, *Env) ([]model.ParishRecord, error) {
	return f, nil
}

func TestDispatcher_FinalizeInvariants(t *testing.T) {
	d := NewDispatcher()
	d.strategies[model.StrategyGeneric] = fixedStrategy{
		{Name: "  St.   Anne ", StreetAddress: "1 Church Rd", Confidence: 95},
		{Name: "st. anne", StreetAddress: "1 Church Rd"},
		{Name: "Read More"},
		{Name: "Holy Cross", State: "il", Confidence: -4},
	}

	res := d.Execute(context.Background(), model.StrategyGeneric, GenericConfidence, newEnv(t, directoryURL, "<html></html>"))
	require.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.Rejected)

	anne := res.Records[0]
	assert.Equal(t, "St. Anne", anne.Name)
	assert.Equal(t, GenericConfidence, anne.Confidence, "generic is capped")

	cross := res.Records[1]
	assert.Equal(t, "IL", cross.State)
	assert.Equal(t, 0, cross.Confidence)
}
