package tui

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var (
	mdCodeBlockRe = regexp.MustCompile(`(?s)<pre><code(?: class="language-([a-zA-Z0-9]+)")?>(.*?)</code></pre>`)
	mdHeadingRe   = regexp.MustCompile(`<h[1-3][^>]*>(.*?)</h[1-3]>`)
	mdStrongRe    = regexp.MustCompile(`<strong>(.*?)</strong>`)
	mdEmRe        = regexp.MustCompile(`<em>(.*?)</em>`)
	mdInlineCode  = regexp.MustCompile(`<code>([^<]+)</code>`)
	mdListItemRe  = regexp.MustCompile(`<li>(.*?)</li>`)
	mdTagRe       = regexp.MustCompile(`<[^>]+>`)
	mdBlankRunsRe = regexp.MustCompile(`\n{3,}`)
)

var (
	mdHeadingStyle = lipgloss.NewStyle().Bold(true)
	mdStrongStyle  = lipgloss.NewStyle().Bold(true)
	mdEmStyle      = lipgloss.NewStyle().Italic(true)
	mdCodeStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#b45309", Dark: "#f4b27d"})
)

// ReplyRenderer turns assistant markdown into styled terminal text with
// highlighted code blocks.
type ReplyRenderer struct {
	md goldmark.Markdown
}

func NewReplyRenderer() *ReplyRenderer {
	return &ReplyRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(htmlrenderer.WithHardWraps()),
		),
	}
}

// Render formats content wrapped to width. Falls back to the raw text when
// markdown conversion fails.
func (r *ReplyRenderer) Render(content string, width int) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		return lipgloss.NewStyle().Width(width).Render(content)
	}
	out := buf.String()

	out = mdCodeBlockRe.ReplaceAllStringFunc(out, func(block string) string {
		parts := mdCodeBlockRe.FindStringSubmatch(block)
		return "\n" + highlightCode(html.UnescapeString(parts[2]), parts[1]) + "\n"
	})
	out = mdHeadingRe.ReplaceAllStringFunc(out, func(h string) string {
		inner := mdTagRe.ReplaceAllString(h, "")
		return mdHeadingStyle.Render(inner) + "\n"
	})
	out = mdStrongRe.ReplaceAllString(out, mdStrongStyle.Render("$1"))
	out = mdEmRe.ReplaceAllString(out, mdEmStyle.Render("$1"))
	out = mdInlineCode.ReplaceAllStringFunc(out, func(c string) string {
		inner := mdInlineCode.FindStringSubmatch(c)[1]
		return mdCodeStyle.Render(html.UnescapeString(inner))
	})
	out = mdListItemRe.ReplaceAllString(out, "  • $1\n")
	out = mdTagRe.ReplaceAllString(out, "")
	out = html.UnescapeString(out)
	out = mdBlankRunsRe.ReplaceAllString(out, "\n\n")
	out = strings.TrimSpace(out)

	return lipgloss.NewStyle().Width(width).Render(out)
}

// highlightCode runs a code block through chroma for 256-color terminals.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	formatter := formatters.Get("terminal256")
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var b strings.Builder
	if err := formatter.Format(&b, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(b.String(), "\n")
}
