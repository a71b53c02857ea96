package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBrief/internal/logging"
)

var (
	longParagraph  = strings.Repeat("Chip demand keeps climbing across data centers. ", 2)
	shortParagraph = "Too short to keep."
)

func TestExtractBodyPrefersArticle(t *testing.T) {
	t.Parallel()

	html := `<html><body>
	<nav><p>` + longParagraph + `navigation</p></nav>
	<p>` + longParagraph + `outside</p>
	<article><p>` + longParagraph + `first</p><p>` + shortParagraph + `</p><p>` + longParagraph + `second</p>
	<script>var x = "` + longParagraph + `";</script></article>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	body := ExtractBody(doc)
	parts := strings.Split(body, "\n\n")
	require.Len(t, parts, 2)
	assert.True(t, strings.HasSuffix(parts[0], "first"))
	assert.True(t, strings.HasSuffix(parts[1], "second"))
	assert.NotContains(t, body, "outside")
	assert.NotContains(t, body, "navigation")
}

func TestExtractBodyClassHintAndFallback(t *testing.T) {
	t.Parallel()

	html := `<div class="layout story-body main"><p>` + longParagraph + `hinted</p></div><p>` + longParagraph + `loose</p>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ExtractBody(doc), "hinted"))

	html = `<div><p>` + longParagraph + `one</p><p>` + longParagraph + `two</p></div>`
	doc, err = goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	assert.Len(t, strings.Split(ExtractBody(doc), "\n\n"), 2)
}

func TestExtractBodyTruncates(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("<article>")
	for i := 0; i < 40; i++ {
		sb.WriteString("<p>" + longParagraph + "</p>")
	}
	sb.WriteString("</article>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sb.String()))
	require.NoError(t, err)

	body := ExtractBody(doc)
	assert.True(t, strings.HasSuffix(body, "..."))
	assert.Equal(t, maxBodyRunes+3, utf8.RuneCountInString(body))
}

func TestBodyExtractorExtract(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		switch r.URL.Path {
		case "/full":
			_, _ = w.Write([]byte(`<article><p>` + longParagraph + `</p><p>` + longParagraph + `</p></article>`))
		case "/thin":
			_, _ = w.Write([]byte(`<article><p>` + longParagraph + `</p></article>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	extractor := NewBodyExtractor(srv.Client(), 0, "", logging.Discard())

	body, ok := extractor.Extract(context.Background(), srv.URL+"/full")
	require.True(t, ok)
	assert.Greater(t, utf8.RuneCountInString(body), minBodyRunes)

	_, ok = extractor.Extract(context.Background(), srv.URL+"/thin")
	assert.False(t, ok)

	_, ok = extractor.Extract(context.Background(), srv.URL+"/missing")
	assert.False(t, ok)
}
