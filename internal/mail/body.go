package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ParsedMessage is the subset of an email the analyzer and dedup layer
// care about: headers used for fallback-id/sender resolution, and a
// plain-text body.
type ParsedMessage struct {
	MessageID string
	From      string
	Subject   string
	Body      string
	// Date is the message's own Date header, zero if absent or
	// unparseable (§6 raw_data schema records the email's date, not
	// capture time).
	Date time.Time
}

// Parse decodes an RFC822 byte stream into headers and a plain-text body,
// preferring the text/plain part of a multipart message and falling back
// to a stripped-down rendering of text/html when no plain part exists
// (§6: "body extraction prefers text/plain, else text/html converted to
// text").
func Parse(raw []byte) (*ParsedMessage, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	subject := DecodeHeaderValue(msg.Header.Get("Subject"))
	from := msg.Header.Get("From")
	if addr, err := ExtractEmailFromHeader(from); err == nil {
		from = addr
	}

	body, err := extractBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, err
	}

	date, _ := msg.Header.Date()

	return &ParsedMessage{
		MessageID: msg.Header.Get("Message-Id"),
		From:      from,
		Subject:   subject,
		Body:      body,
		Date:      date,
	}, nil
}

func extractBody(contentType, transferEncoding string, body io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return decodeTransferEncoding(transferEncoding, body)
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipart(body, params["boundary"])
	}

	decoded, err := decodeTransferEncoding(transferEncoding, body)
	if err != nil {
		return "", err
	}
	if mediaType == "text/html" {
		return htmlToText(decoded), nil
	}
	return decoded, nil
}

func extractMultipart(body io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", fmt.Errorf("multipart message missing boundary")
	}
	reader := multipart.NewReader(body, boundary)

	var plainPart, htmlPart string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read multipart section: %w", err)
		}

		partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		decoded, err := decodeTransferEncoding(part.Header.Get("Content-Transfer-Encoding"), part)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(partType, "multipart/"):
			continue
		case partType == "text/plain" && plainPart == "":
			plainPart = decoded
		case partType == "text/html" && htmlPart == "":
			htmlPart = decoded
		}
	}

	if plainPart != "" {
		return plainPart, nil
	}
	if htmlPart != "" {
		return htmlToText(htmlPart), nil
	}
	return "", nil
}

func decodeTransferEncoding(encoding string, r io.Reader) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		data, err := io.ReadAll(quotedprintable.NewReader(r))
		if err != nil {
			return "", fmt.Errorf("failed to decode quoted-printable body: %w", err)
		}
		return string(data), nil
	case "base64":
		return decodeBase64Body(r)
	default:
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read body: %w", err)
		}
		return string(data), nil
	}
}

func decodeBase64Body(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read base64 body: %w", err)
	}
	stripped := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, string(raw))
	data, err := base64.StdEncoding.DecodeString(stripped)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 body: %w", err)
	}
	return string(data), nil
}

// htmlToText strips markup and collapses whitespace, producing a plain
// rendering good enough for the analyzer's prompt input.
func htmlToText(input string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(input))
	var sb strings.Builder
	skip := map[string]bool{"script": true, "style": true}
	var inSkip string

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skip[tag] {
				inSkip = tag
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == inSkip {
				inSkip = ""
			}
		case html.TextToken:
			if inSkip == "" {
				sb.Write(tokenizer.Text())
				sb.WriteByte(' ')
			}
		}
	}

	fields := strings.Fields(sb.String())
	return strings.Join(fields, " ")
}
