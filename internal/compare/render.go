package compare

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const stylesheet = `
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; vertical-align: top; }
th { background: #f4f4f4; }
pre { white-space: pre-wrap; margin: 0; font-size: 0.85em; }
tr.changed td { background: #fff7e0; }
img.preview { max-width: 240px; }
`

// Markdown renders the summary, per-page counts and the three texts of
// every page.
func (r Report) Markdown() []byte {
	var b bytes.Buffer
	b.Write(r.summaryMarkdown())

	for _, row := range r.Rows {
		fmt.Fprintf(&b, "\n## Page %d\n", row.Page)
		if row.Preview != "" {
			fmt.Fprintf(&b, "\n![page %d](%s)\n", row.Page, row.Preview)
		}
		writeSection(&b, "Original", row.Original)
		writeSection(&b, "OCR", row.OCR)
		writeSection(&b, "Converted", row.Converted)
	}
	return b.Bytes()
}

func (r Report) summaryMarkdown() []byte {
	var b bytes.Buffer
	orig, ocrd, conv := r.Totals()

	fmt.Fprintf(&b, "# Comparison: %s\n\n", r.Title)
	fmt.Fprintf(&b, "%d pages, %d changed by OCR.\n\n", len(r.Rows), r.ChangedPages())
	b.WriteString("| Page | Original chars | OCR chars | Converted chars | Changed |\n")
	b.WriteString("|---:|---:|---:|---:|:---:|\n")
	for _, row := range r.Rows {
		changed := ""
		if row.Changed {
			changed = "yes"
		}
		fmt.Fprintf(&b, "| %d | %d | %d | %d | %s |\n",
			row.Page, row.OriginalChars, row.OCRChars, row.ConvertedChars, changed)
	}
	fmt.Fprintf(&b, "| **Total** | %d | %d | %d | %d |\n", orig, ocrd, conv, r.ChangedPages())
	return b.Bytes()
}

func writeSection(b *bytes.Buffer, label, text string) {
	fmt.Fprintf(b, "\n### %s\n\n", label)
	if strings.TrimSpace(text) == "" {
		b.WriteString("_(empty)_\n")
		return
	}
	f := fence(text)
	fmt.Fprintf(b, "%stext\n%s\n%s\n", f, strings.TrimRight(text, "\n"), f)
}

// fence returns a backtick fence longer than any backtick run in text.
func fence(text string) string {
	longest, run := 0, 0
	for _, c := range text {
		if c == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

// HTML renders a standalone page: the summary table converted with
// goldmark, followed by a side-by-side table of the three texts.
func (r Report) HTML(title string) ([]byte, error) {
	if title == "" {
		title = "Comparison: " + r.Title
	}

	var summary bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert(r.summaryMarkdown(), &summary); err != nil {
		return nil, fmt.Errorf("render summary: %w", err)
	}

	body := element(atom.Body)
	frag, err := html.ParseFragment(&summary, body)
	if err != nil {
		return nil, fmt.Errorf("parse summary html: %w", err)
	}
	for _, n := range frag {
		body.AppendChild(n)
	}
	body.AppendChild(r.sideBySide())

	head := element(atom.Head)
	meta := element(atom.Meta)
	meta.Attr = []html.Attribute{{Key: "charset", Val: "utf-8"}}
	head.AppendChild(meta)
	head.AppendChild(withText(element(atom.Title), title))
	head.AppendChild(withText(element(atom.Style), stylesheet))

	root := element(atom.Html)
	root.AppendChild(head)
	root.AppendChild(body)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(root)

	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return out.Bytes(), nil
}

func (r Report) sideBySide() *html.Node {
	previews := false
	for _, row := range r.Rows {
		if row.Preview != "" {
			previews = true
			break
		}
	}

	table := element(atom.Table)
	table.Attr = []html.Attribute{{Key: "class", Val: "pages"}}

	headings := []string{"Page"}
	if previews {
		headings = append(headings, "Image")
	}
	headings = append(headings, "Original", "OCR", "Converted")

	thead := element(atom.Thead)
	tr := element(atom.Tr)
	for _, h := range headings {
		tr.AppendChild(withText(element(atom.Th), h))
	}
	thead.AppendChild(tr)
	table.AppendChild(thead)

	tbody := element(atom.Tbody)
	for _, row := range r.Rows {
		tr := element(atom.Tr)
		if row.Changed {
			tr.Attr = []html.Attribute{{Key: "class", Val: "changed"}}
		}
		tr.AppendChild(withText(element(atom.Td), fmt.Sprint(row.Page)))
		if previews {
			td := element(atom.Td)
			if row.Preview != "" {
				img := element(atom.Img)
				img.Attr = []html.Attribute{
					{Key: "class", Val: "preview"},
					{Key: "src", Val: row.Preview},
					{Key: "alt", Val: fmt.Sprintf("page %d", row.Page)},
				}
				td.AppendChild(img)
			}
			tr.AppendChild(td)
		}
		for _, text := range []string{row.Original, row.OCR, row.Converted} {
			td := element(atom.Td)
			td.AppendChild(withText(element(atom.Pre), text))
			tr.AppendChild(td)
		}
		tbody.AppendChild(tr)
	}
	table.AppendChild(tbody)
	return table
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func withText(n *html.Node, text string) *html.Node {
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}
