package discovery

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractLinks walks a parsed HTML document and returns every href value
// found on anchor elements, in document order. The walk is structural; no
// regex scraping of markup.
func ExtractLinks(doc string) []string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		// html.Parse is extremely tolerant; a hard failure means the input
		// was not markup at all.
		return nil
	}

	var links []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" {
					links = append(links, attr.Val)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return links
}
