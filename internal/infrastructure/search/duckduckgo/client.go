package duckduckgo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

var _ output.WebSearcher = (*Client)(nil)

const DefaultEndpoint = "https://html.duckduckgo.com/html/"

type Config struct {
	Endpoint   string
	Region     string
	MaxResults int
	Timeout    time.Duration
	UserAgent  string
}

func DefaultConfig() Config {
	return Config{
		Endpoint:   DefaultEndpoint,
		Region:     "wt-wt",
		MaxResults: 5,
		Timeout:    15 * time.Second,
		UserAgent:  "Mozilla/5.0 (compatible; content-crew/1.0)",
	}
}

// Client queries the DuckDuckGo HTML endpoint and scrapes the result list.
type Client struct {
	http   *http.Client
	cfg    Config
	logger output.LoggerPort
}

func New(cfg Config, logger output.LoggerPort) *Client {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	return &Client{
		http:   &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

func (c *Client) Search(ctx context.Context, query string) ([]entity.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	form := url.Values{"q": {query}}
	if c.cfg.Region != "" {
		form.Set("kl", c.cfg.Region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, entity.NewTransportError("web search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, entity.NewTransportError("web search", err)
		}
		return nil, fmt.Errorf("web search: %w", err)
	}

	results, err := parseResults(resp.Body, c.cfg.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug("Web search finished", "query", query, "results", len(results))
	}
	return results, nil
}

func parseResults(r io.Reader, max int) ([]entity.SearchResult, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var out []entity.SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n == nil || len(out) >= max {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") && !hasClass(n, "result--ad") {
			if res, ok := parseResult(n); ok {
				out = append(out, res)
			}
			return
		}
		for c := n.FirstChild; c != nil && len(out) < max; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out, nil
}

func parseResult(n *html.Node) (entity.SearchResult, bool) {
	var res entity.SearchResult
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if x.Type == html.ElementNode {
			switch {
			case x.Data == "a" && hasClass(x, "result__a"):
				res.Title = nodeText(x)
				res.URL = resolveRedirect(attr(x, "href"))
			case hasClass(x, "result__snippet"):
				res.Snippet = nodeText(x)
			}
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return res, res.Title != "" && res.URL != ""
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(x *html.Node) {
		if x.Type == html.TextNode {
			b.WriteString(x.Data)
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
