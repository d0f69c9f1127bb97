package models

// LinkFormat is a textual pattern used to embed a promotional URL in a post
type LinkFormat string

const (
	LinkFormatNone         LinkFormat = "none"
	LinkFormatHTMLLink     LinkFormat = "html_link"      // <a href="URL">text</a>
	LinkFormatMarkdownLink LinkFormat = "markdown_link"  // [text](URL)
	LinkFormatEmojiURL     LinkFormat = "emoji_url"      // 👉 URL
	LinkFormatTextArrowURL LinkFormat = "text_arrow_url" // text → URL, text: URL
	LinkFormatURLDashText  LinkFormat = "url_dash_text"  // URL - text
	LinkFormatTextDashURL  LinkFormat = "text_dash_url"  // text - URL
	LinkFormatBareURL      LinkFormat = "bare_url"
)

// AllLinkFormats lists every format that can carry a link, in
// classification precedence order
var AllLinkFormats = []LinkFormat{
	LinkFormatHTMLLink,
	LinkFormatMarkdownLink,
	LinkFormatEmojiURL,
	LinkFormatTextArrowURL,
	LinkFormatURLDashText,
	LinkFormatTextDashURL,
	LinkFormatBareURL,
}

// ParseLinkFormat returns the format with the given name
func ParseLinkFormat(name string) (LinkFormat, bool) {
	for _, f := range AllLinkFormats {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}
