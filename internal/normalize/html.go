package normalize

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var converter = md.NewConverter("", true, nil)

// Markdown converts a description HTML fragment into markdown.
func Markdown(fragment string) (string, error) {
	out, err := converter.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("converting html to markdown: %w", err)
	}
	return out, nil
}

// blockAtoms end the current line when entered or left.
var blockAtoms = map[atom.Atom]bool{
	atom.Br: true, atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true,
	atom.Ol: true, atom.Tr: true, atom.Td: true, atom.Th: true, atom.Table: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true,
	atom.H6: true, atom.Pre: true, atom.Blockquote: true,
}

// HTMLLines flattens an HTML fragment into its non-blank text lines. Block
// elements and <br> break lines; runs of whitespace collapse to one space;
// links contribute only their text.
func HTMLLines(fragment string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parsing html fragment: %w", err)
	}

	var (
		lines []string
		cur   strings.Builder
	)
	flush := func() {
		if line := strings.TrimSpace(cur.String()); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if words := strings.Fields(n.Data); len(words) > 0 {
				if isSpace(n.Data[0]) && cur.Len() > 0 && !strings.HasSuffix(cur.String(), " ") {
					cur.WriteByte(' ')
				}
				cur.WriteString(strings.Join(words, " "))
				if isSpace(n.Data[len(n.Data)-1]) {
					cur.WriteByte(' ')
				}
			}
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}

		block := n.Type == html.ElementNode && blockAtoms[n.DataAtom]
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(doc)
	flush()

	return lines, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
