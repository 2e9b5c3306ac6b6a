package severity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// EnsemblURL is the Ensembl page listing consequence terms by severity.
const EnsemblURL = "https://m.ensembl.org/info/genome/variation/prediction/predicted_data.html"

// Fetch downloads an HTML page and extracts the severity table from it.
func Fetch(ctx context.Context, client *http.Client, url string) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	return ParseHTML(resp.Body)
}

// ParseHTML finds the first table with an "SO term" header cell and ranks its
// rows in document order, starting at 0.
func ParseHTML(r io.Reader) (*Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	for _, tbl := range findAll(doc, "table") {
		rows := findAll(tbl, "tr")
		if len(rows) == 0 {
			continue
		}
		termIdx := -1
		for i, cell := range cells(rows[0]) {
			if strings.EqualFold(cell, "SO term") {
				termIdx = i
				break
			}
		}
		if termIdx < 0 {
			continue
		}

		var entries []Entry
		for _, row := range rows[1:] {
			cs := cells(row)
			if len(cs) <= termIdx || cs[termIdx] == "" {
				continue
			}
			entries = append(entries, Entry{Rank: len(entries), Term: cs[termIdx]})
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("consequence table has no rows")
		}
		return New(entries), nil
	}

	return nil, fmt.Errorf("no table with an \"SO term\" column found")
}

// findAll returns all element descendants of n with the given tag, in document order.
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		walk(ch)
	}
	return out
}

// cells returns the trimmed text of the th/td children of a row.
func cells(row *html.Node) []string {
	var out []string
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			out = append(out, strings.TrimSpace(text(c)))
		}
	}
	return out
}

func text(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(text(c))
	}
	return b.String()
}
