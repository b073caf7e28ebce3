package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexconsult/nfse-api/internal/config"
	"github.com/nexconsult/nfse-api/internal/logger"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestWindows_Partition(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		count int
	}{
		{"single day", day(2024, 1, 1), day(2024, 1, 1), 1},
		{"exactly thirty days", day(2024, 1, 1), day(2024, 1, 30), 1},
		{"thirty one days", day(2024, 1, 1), day(2024, 1, 31), 2},
		{"leap february to march", day(2024, 2, 1), day(2024, 3, 31), 2},
		{"full year", day(2023, 1, 1), day(2023, 12, 31), 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows := Windows(tt.start, tt.end)
			require.Len(t, windows, tt.count)

			assert.Equal(t, tt.start, windows[0].Start)
			assert.Equal(t, tt.end, windows[len(windows)-1].End)

			for i, w := range windows {
				assert.False(t, w.Start.After(w.End), "window %d is inverted", i)
				assert.LessOrEqual(t, int(w.End.Sub(w.Start).Hours()/24)+1, 30, "window %d is too wide", i)
				if i > 0 {
					assert.Equal(t, windows[i-1].End.AddDate(0, 0, 1), w.Start, "window %d is not contiguous", i)
				}
			}
		})
	}
}

func TestWindows_TruncatesClock(t *testing.T) {
	windows := Windows(
		time.Date(2024, 1, 1, 18, 45, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC),
	)
	require.Len(t, windows, 1)
	assert.Equal(t, DateWindow{Start: day(2024, 1, 1), End: day(2024, 1, 2)}, windows[0])
}

func TestWindows_StartAfterEnd(t *testing.T) {
	windows := Windows(day(2024, 2, 1), day(2024, 1, 1))
	assert.NotNil(t, windows)
	assert.Empty(t, windows)
}

// listingPortal serves the listing page, letting tests choose the response
// for each requested window start date
type listingPortal struct {
	mu       sync.Mutex
	requests []string
	cookies  []string
	respond  func(w http.ResponseWriter, r *http.Request, n int)
}

func (p *listingPortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/EmissorNacional/Login":
		_, _ = w.Write([]byte("<html><body>login</body></html>"))
		return
	case "/EmissorNacional/Notas/Emitidas":
	default:
		http.NotFound(w, r)
		return
	}

	p.mu.Lock()
	p.requests = append(p.requests, r.URL.Query().Get("datainicio")+"-"+r.URL.Query().Get("datafim"))
	p.cookies = append(p.cookies, r.Header.Get("Cookie"))
	n := len(p.requests)
	p.mu.Unlock()

	p.respond(w, r, n)
}

func listingRow(key string) string {
	return fmt.Sprintf(`<tr data-situacao="100"><td class="td-valor">1,00</td><td><a href="/Notas/Download/NFSe/%s">x</a></td></tr>`, key)
}

func listingPage(rows ...string) string {
	page := `<html><body><table class="table"><tbody>`
	for _, row := range rows {
		page += row
	}
	return page + `</tbody></table></body></html>`
}

func newTestCrawler(baseURL string) *ListingCrawler {
	cfg := config.PortalConfig{BaseURL: baseURL + "/EmissorNacional", UserAgent: "nfse-test"}
	client := NewPortalClient(ClientOptions{Timeout: 5 * time.Second, FollowRedirects: true})
	return NewListingCrawler(cfg, client, nil, logger.NewDiscard())
}

func TestListingCrawler_Search(t *testing.T) {
	portal := &listingPortal{respond: func(w http.ResponseWriter, r *http.Request, n int) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(listingPage(listingRow(fmt.Sprintf("%d1", n)), listingRow(fmt.Sprintf("%d2", n)))))
	}}
	server := httptest.NewServer(portal)
	defer server.Close()

	session := Session{Cookies: []string{"a=1", "b=2"}}
	items, err := newTestCrawler(server.URL).Search(context.Background(), session, day(2024, 1, 1), day(2024, 2, 15))
	require.NoError(t, err)

	require.Len(t, items, 4)
	assert.Equal(t, []string{"11", "12", "21", "22"}, []string{items[0].Chave, items[1].Chave, items[2].Chave, items[3].Chave})
	assert.Equal(t, 1.0, items[0].Valor)

	assert.Equal(t, []string{"01/01/2024-30/01/2024", "31/01/2024-15/02/2024"}, portal.requests)
	assert.Equal(t, []string{"a=1; b=2", "a=1; b=2"}, portal.cookies)
}

func TestListingCrawler_SkipsFailingWindow(t *testing.T) {
	portal := &listingPortal{respond: func(w http.ResponseWriter, r *http.Request, n int) {
		if n == 2 {
			http.Error(w, "erro interno", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(listingPage(listingRow(fmt.Sprintf("%d", n)))))
	}}
	server := httptest.NewServer(portal)
	defer server.Close()

	items, err := newTestCrawler(server.URL).Search(context.Background(), Session{Cookies: []string{"a=1"}}, day(2024, 1, 1), day(2024, 3, 30))
	require.NoError(t, err)

	require.Len(t, portal.requests, 3, "every window is still requested")
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].Chave)
	assert.Equal(t, "3", items[1].Chave)
}

func TestListingCrawler_AbortsOnExpiredSession(t *testing.T) {
	portal := &listingPortal{respond: func(w http.ResponseWriter, r *http.Request, n int) {
		if n == 2 {
			http.Redirect(w, r, "/EmissorNacional/Login?ReturnUrl=%2FEmissorNacional%2FNotas%2FEmitidas", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte(listingPage(listingRow(fmt.Sprintf("%d", n)))))
	}}
	server := httptest.NewServer(portal)
	defer server.Close()

	items, err := newTestCrawler(server.URL).Search(context.Background(), Session{Cookies: []string{"a=1"}}, day(2024, 1, 1), day(2024, 3, 30))
	require.Error(t, err)
	assert.True(t, IsUnauthenticated(err))
	assert.Nil(t, items, "partial results are discarded")
	assert.Len(t, portal.requests, 2, "no window is requested after the expiry")
}

func TestListingCrawler_EmptyRange(t *testing.T) {
	portal := &listingPortal{respond: func(w http.ResponseWriter, r *http.Request, n int) {
		t.Error("no request expected")
	}}
	server := httptest.NewServer(portal)
	defer server.Close()

	items, err := newTestCrawler(server.URL).Search(context.Background(), Session{}, day(2024, 2, 1), day(2024, 1, 1))
	require.NoError(t, err)
	assert.Empty(t, items)
}
