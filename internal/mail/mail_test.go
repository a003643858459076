package mail

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFallbackIDFormat(t *testing.T) {
	id := FallbackID(42, "INBOX", 12345, 7)
	require.True(t, strings.HasPrefix(id, "fallback:42:"))
	require.True(t, strings.HasSuffix(id, ":12345:7"))

	parts := strings.Split(id, ":")
	require.Len(t, parts, 5)
	require.Len(t, parts[2], 16)
}

func TestFallbackIDNoUIDValidity(t *testing.T) {
	id := FallbackID(1, "INBOX", 0, 3)
	require.Equal(t, "no-uidvalidity", strings.Split(id, ":")[3])
}

func TestFallbackIDDeterministic(t *testing.T) {
	a := FallbackID(1, "INBOX", 100, 5)
	b := FallbackID(1, "INBOX", 100, 5)
	require.Equal(t, a, b)
}

func TestFallbackIDDiffersByFolder(t *testing.T) {
	a := FallbackID(1, "INBOX", 100, 5)
	b := FallbackID(1, "Archive", 100, 5)
	require.NotEqual(t, a, b)
}

func TestStableIDPrefersMessageIDHeader(t *testing.T) {
	id := StableID(1, "INBOX", 100, 5, "<abc123@example.com>")
	require.Equal(t, "abc123@example.com", id)
}

func TestStableIDFallsBackWhenHeaderMissing(t *testing.T) {
	id := StableID(1, "INBOX", 100, 5, "")
	require.True(t, strings.HasPrefix(id, "fallback:"))
}

func TestExtractEmailFromHeaderPlain(t *testing.T) {
	addr, err := ExtractEmailFromHeader("Jane Doe <jane@example.com>")
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", addr)
}

func TestExtractEmailFromHeaderEncodedWord(t *testing.T) {
	addr, err := ExtractEmailFromHeader("=?UTF-8?B?SmFuZSBEb2U=?= <jane@example.com>")
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", addr)
}

func TestParsePlainTextMessage(t *testing.T) {
	raw := "From: shop@example.com\r\n" +
		"Subject: Your order\r\n" +
		"Message-Id: <order-1@example.com>\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"Order #1234 has shipped.\r\n"

	parsed, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, "shop@example.com", parsed.From)
	require.Equal(t, "<order-1@example.com>", parsed.MessageID)
	require.Contains(t, parsed.Body, "Order #1234 has shipped.")
}

func TestParsePrefersPlainOverHTMLInMultipart(t *testing.T) {
	raw := "From: shop@example.com\r\n" +
		"Subject: Your order\r\n" +
		"Content-Type: multipart/alternative; boundary=BOUND\r\n\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"plain version\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/html\r\n\r\n" +
		"<html><body><b>html</b> version</body></html>\r\n" +
		"--BOUND--\r\n"

	parsed, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Contains(t, parsed.Body, "plain version")
}

func TestParseFallsBackToHTMLWhenNoPlainPart(t *testing.T) {
	raw := "From: shop@example.com\r\n" +
		"Subject: Your order\r\n" +
		"Content-Type: multipart/alternative; boundary=BOUND\r\n\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/html\r\n\r\n" +
		"<html><body>Order <b>shipped</b> today</body></html>\r\n" +
		"--BOUND--\r\n"

	parsed, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Contains(t, parsed.Body, "Order shipped today")
	require.NotContains(t, parsed.Body, "<b>")
}

func TestParseExtractsDateHeader(t *testing.T) {
	raw := "From: shop@example.com\r\n" +
		"Subject: Your order\r\n" +
		"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"Order #1234 has shipped.\r\n"

	parsed, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.False(t, parsed.Date.IsZero())
	require.True(t, parsed.Date.Equal(time.Date(2006, 1, 2, 15, 4, 5, 0, time.FixedZone("", -7*60*60))))
}

func TestParseDateZeroWhenHeaderMissing(t *testing.T) {
	raw := "From: shop@example.com\r\n" +
		"Subject: Your order\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"Order #1234 has shipped.\r\n"

	parsed, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.True(t, parsed.Date.IsZero())
}

func TestHtmlToTextSkipsScriptAndStyle(t *testing.T) {
	text := htmlToText(`<html><head><style>.a{color:red}</style></head>
<body><script>alert(1)</script>Hello <b>world</b></body></html>`)
	require.Equal(t, "Hello world", text)
}
