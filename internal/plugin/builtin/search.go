package builtin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/troupehq/troupe/internal/plugin"
)

const (
	searchEndpoint   = "https://html.duckduckgo.com/html/"
	searchMaxResults = 5
	searchTimeout    = 20 * time.Second
)

// Search looks the query up on DuckDuckGo's HTML frontend and returns the
// top result titles and snippets as a system note.
func Search() plugin.Plugin {
	client := &http.Client{Timeout: searchTimeout}
	return plugin.Func{
		PluginName:     "search",
		PluginTriggers: []string{"search>"},
		Run: func(ctx context.Context, inv plugin.Invocation) (map[string]string, error) {
			query := strings.TrimSpace(strings.ReplaceAll(inv.Message.Content, "search>", ""))
			if query == "" {
				return map[string]string{"result": "[System Note: Search requested with an empty query.]"}, nil
			}
			results, err := webSearch(ctx, client, query)
			if err != nil {
				return nil, fmt.Errorf("search %q: %w", query, err)
			}
			return map[string]string{
				"result": fmt.Sprintf("[System Note: The user requested a search. Here are the results for '%s':\n%s]", query, results),
			}, nil
		},
	}
}

func webSearch(ctx context.Context, client *http.Client, query string) (string, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; troupe/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	var entries []string
	doc.Find("div.result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= searchMaxResults {
			return false
		}
		title := strings.TrimSpace(s.Find("a.result__a").Text())
		snippet := strings.TrimSpace(s.Find("a.result__snippet").Text())
		href, _ := s.Find("a.result__a").Attr("href")
		if title == "" {
			return true
		}
		entries = append(entries, fmt.Sprintf("%s\n%s\n%s", title, snippet, href))
		return true
	})

	if len(entries) == 0 {
		return "No results found.", nil
	}
	return strings.Join(entries, "\n\n"), nil
}
