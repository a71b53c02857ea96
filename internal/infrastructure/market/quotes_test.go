package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientQuote(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v8/finance/chart/^GSPC":
			assert.Equal(t, "1d", r.URL.Query().Get("interval"))
			_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"^GSPC","regularMarketPrice":5010.5,"chartPreviousClose":5000}}],"error":null}}`))
		case "/v8/finance/chart/PREV":
			_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":10,"previousClose":8}}],"error":null}}`))
		case "/v8/finance/chart/BAD":
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
		default:
			http.Error(w, "nope", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", "test-agent", srv.Client())

	quote, err := client.Quote(context.Background(), "^GSPC")
	require.NoError(t, err)
	assert.InDelta(t, 5010.5, quote.Price, 0.0001)
	assert.InDelta(t, 5000, quote.PreviousClose, 0.0001)

	quote, err = client.Quote(context.Background(), "PREV")
	require.NoError(t, err)
	assert.InDelta(t, 8, quote.PreviousClose, 0.0001)

	_, err = client.Quote(context.Background(), "BAD")
	assert.ErrorContains(t, err, "No data found")

	_, err = client.Quote(context.Background(), "BOOM")
	assert.ErrorContains(t, err, "unexpected status")

	_, err = client.Quote(context.Background(), " ")
	assert.Error(t, err)
}
