// Package view builds the HTML nodes that stand in for a diagram block.
//
// Every node carries the [ClassDiagram] class plus the block's style tokens,
// so the surrounding document can style results without knowing which render
// path produced them:
//
//	<img class="ai-diagram flowchart" src="data:image/png;base64,...">
//	<svg class="ai-diagram ai-diagram-svg flowchart" ...>...</svg>
//	<div class="ai-diagram ai-diagram-direct flowchart"><svg ...>...</svg></div>
//	<pre class="ai-diagram ai-diagram-error">message</pre>
package view

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CSS classes attached by this package.
const (
	ClassDiagram = "ai-diagram"
	ClassSVG     = "ai-diagram-svg"
	ClassDirect  = "ai-diagram-direct"
	ClassError   = "ai-diagram-error"
	ClassBlock   = "ai-diagram-block"
)

// ErrNoSVG is returned by [InlineSVG] when the markup has no <svg> element.
var ErrNoSVG = errors.New("no <svg> element in markup")

// Image returns an <img> element embedding data as a data URI.
func Image(data []byte, mime, alt string, tokens []string) *html.Node {
	n := element(atom.Img)
	SetAttr(n, "src", "data:"+mime+";base64,"+base64.StdEncoding.EncodeToString(data))
	if alt != "" {
		SetAttr(n, "alt", alt)
	}
	AddClass(n, append([]string{ClassDiagram}, tokens...)...)
	return n
}

// InlineSVG parses markup and returns its first <svg> element, detached and
// tagged with [ClassSVG]. Anything around the element, such as an XML
// declaration or doctype, is dropped.
func InlineSVG(markup string, tokens []string) (*html.Node, error) {
	nodes, err := parseFragment(markup)
	if err != nil {
		return nil, err
	}
	var svg *html.Node
	for _, n := range nodes {
		if svg = findElement(n, atom.Svg); svg != nil {
			break
		}
	}
	if svg == nil {
		return nil, ErrNoSVG
	}
	if svg.Parent != nil {
		svg.Parent.RemoveChild(svg)
	}
	AddClass(svg, append([]string{ClassDiagram, ClassSVG}, tokens...)...)
	return svg, nil
}

// Direct returns a <div> holding markup as parsed, tagged with [ClassDirect].
func Direct(markup string, tokens []string) (*html.Node, error) {
	nodes, err := parseFragment(markup)
	if err != nil {
		return nil, err
	}
	div := element(atom.Div)
	AddClass(div, append([]string{ClassDiagram, ClassDirect}, tokens...)...)
	for _, n := range nodes {
		div.AppendChild(n)
	}
	return div, nil
}

// Error returns a <pre> element holding msg as text.
func Error(msg string) *html.Node {
	pre := element(atom.Pre)
	AddClass(pre, ClassDiagram, ClassError)
	pre.AppendChild(&html.Node{Type: html.TextNode, Data: msg})
	return pre
}

// Container returns an empty <div> to receive one block's result.
func Container() *html.Node {
	div := element(atom.Div)
	AddClass(div, ClassBlock)
	return div
}

// AddClass appends classes to n's class attribute, skipping blanks and
// classes already present.
func AddClass(n *html.Node, classes ...string) {
	existing := Classes(n)
	seen := make(map[string]bool, len(existing)+len(classes))
	for _, c := range existing {
		seen[c] = true
	}
	for _, c := range classes {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		existing = append(existing, c)
	}
	if len(existing) > 0 {
		SetAttr(n, "class", strings.Join(existing, " "))
	}
}

// Classes returns the whitespace-separated tokens of n's class attribute.
func Classes(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// HasClass reports whether n carries class c.
func HasClass(n *html.Node, c string) bool {
	for _, have := range Classes(n) {
		if have == c {
			return true
		}
	}
	return false
}

// Attr returns the value of n's attribute key, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Render serializes n and its descendants.
func Render(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderChildren serializes the children of n without n itself.
func RenderChildren(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

// SetAttr sets key to val on n, replacing an existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func parseFragment(markup string) ([]*html.Node, error) {
	return html.ParseFragment(strings.NewReader(markup), element(atom.Body))
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
