package mailseed

import (
	"bytes"
	"encoding/base64"
	"html"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// Message is one mail as pulled from the mailbox.
type Message struct {
	From    string
	Subject string
	Date    time.Time
	// Raw is the full RFC822 message.
	Raw []byte
}

var (
	reHref = regexp.MustCompile(`(?is)<a[^>]+href=["']([^"'#]+)["'][^>]*>`)
	reTags = regexp.MustCompile(`(?is)<[^>]+>`)
	reURL  = regexp.MustCompile(`https?://[^\s<>"']+`)
)

// parseRFC822 returns the decoded subject and the best plain and HTML
// bodies. Unparseable input is treated as plain text.
func parseRFC822(raw []byte, fallbackSubject string) (subject, plain, htmlBody string) {
	subject = fallbackSubject
	if len(raw) == 0 {
		return subject, "", ""
	}
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return subject, string(raw), ""
	}
	if s := strings.TrimSpace(msg.Header.Get("Subject")); s != "" {
		subject = s
	}
	subject = decodeRFC2047(subject)

	body, _ := io.ReadAll(io.LimitReader(msg.Body, 25<<20))
	plain, htmlBody = mimeTextParts(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), body)
	if plain == "" && htmlBody == "" {
		plain = string(body)
	}
	return subject, plain, htmlBody
}

// mimeTextParts walks a (possibly nested) multipart body and keeps the
// longest text/plain and text/html parts.
func mimeTextParts(contentType, cte string, body []byte) (plain, htmlPart string) {
	cte = strings.ToLower(strings.TrimSpace(cte))
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(decodeTransferEncoding(body, cte)), ""
	}
	mediaType = strings.ToLower(mediaType)

	if !strings.HasPrefix(mediaType, "multipart/") {
		s := string(decodeTransferEncoding(body, cte))
		if strings.HasPrefix(mediaType, "text/html") {
			return "", s
		}
		return s, ""
	}
	boundary := params["boundary"]
	if boundary == "" {
		return string(decodeTransferEncoding(body, cte)), ""
	}

	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		p, err := mr.NextPart()
		if err != nil {
			break
		}
		b, _ := io.ReadAll(io.LimitReader(p, 20<<20))
		// multipart.Reader already undoes quoted-printable
		partCTE := p.Header.Get("Content-Transfer-Encoding")
		pl, ht := mimeTextParts(p.Header.Get("Content-Type"), partCTE, b)
		if len(pl) > len(plain) {
			plain = pl
		}
		if len(ht) > len(htmlPart) {
			htmlPart = ht
		}
	}
	return plain, htmlPart
}

func decodeTransferEncoding(b []byte, cte string) []byte {
	var r io.Reader
	switch cte {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, bytes.NewReader(b))
	case "quoted-printable":
		r = quotedprintable.NewReader(bytes.NewReader(b))
	default:
		return b
	}
	out, err := io.ReadAll(io.LimitReader(r, 6<<20))
	if err != nil && len(out) == 0 {
		return b
	}
	return out
}

func decodeRFC2047(s string) string {
	out, err := new(mime.WordDecoder).DecodeHeader(strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return out
}

// extractLinks returns anchor hrefs from the HTML body and naked URLs from
// the plain body, in order of appearance.
func extractLinks(plain, htmlBody string) []string {
	var out []string
	for _, m := range reHref.FindAllStringSubmatch(htmlBody, -1) {
		if href := strings.TrimSpace(html.UnescapeString(m[1])); href != "" {
			out = append(out, href)
		}
	}
	text := plain
	if text == "" && htmlBody != "" {
		text = html.UnescapeString(reTags.ReplaceAllString(htmlBody, " "))
	}
	for _, u := range reURL.FindAllString(text, -1) {
		out = append(out, strings.TrimRight(u, ".,);:]\"'"))
	}
	return out
}
