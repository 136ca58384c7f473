package kb

import (
	"strings"

	"golang.org/x/net/html"
)

// collectTags walks n in document order and returns every element node
// whose tag name is in tags, descending into matched nodes as well (the
// same behavior as a BeautifulSoup find_all over multiple tag names).
func collectTags(n *html.Node, tags map[string]bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && tags[node.Data] {
			out = append(out, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// findAllDescendants returns every descendant element node with the given
// tag name, in document order.
func findAllDescendants(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// findAllDescendantsAny is findAllDescendants for a set of tag names.
func findAllDescendantsAny(n *html.Node, tags map[string]bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && tags[c.Data] {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// directChildren returns the immediate element children with the given
// tag name (mirrors find_all(tag, recursive=False)).
func directChildren(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

// textOf concatenates every descendant text node's data, separated by a
// single space, approximating get_text(" ").
func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	first := true
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			if node.Data == "" {
				return
			}
			if !first {
				sb.WriteByte(' ')
			}
			sb.WriteString(node.Data)
			first = false
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
