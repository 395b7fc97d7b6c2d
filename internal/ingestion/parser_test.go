package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func crlf(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n"))
}

func TestParseMessagePrefersPlainText(t *testing.T) {
	raw := crlf(
		"From: Jane Doe <jane@customer.test>",
		"To: desk@acme.test, it@acme.test",
		"Cc: Boss <boss@acme.test>",
		"Subject: =?UTF-8?Q?Caf=C3=A9_printer?=",
		"Message-ID: <abc123@customer.test>",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="outer"`,
		"",
		"--outer",
		`Content-Type: multipart/alternative; boundary="inner"`,
		"",
		"--inner",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>HTML body</p>",
		"--inner",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Plain body",
		"--inner--",
		"--outer",
		"Content-Type: text/plain",
		`Content-Disposition: attachment; filename="error.log"`,
		"",
		"line one",
		"--outer--",
		"",
	)

	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	require.Equal(t, "abc123@customer.test", msg.MessageID)
	require.Equal(t, "jane@customer.test", msg.From)
	require.Equal(t, []string{"desk@acme.test", "it@acme.test"}, msg.To)
	require.Equal(t, []string{"boss@acme.test"}, msg.Cc)
	require.Equal(t, []string{"desk@acme.test", "it@acme.test", "boss@acme.test"}, msg.Destinations())
	require.Equal(t, "Café printer", msg.Subject)
	require.Equal(t, "Plain body", msg.Body)
	require.Len(t, msg.Attachments, 1)
	require.Equal(t, "error.log", msg.Attachments[0].FileName)
	require.Equal(t, "text/plain", msg.Attachments[0].ContentType)
	require.Equal(t, int64(len("line one")), msg.Attachments[0].SizeBytes)
}

func TestParseMessageStripsHTMLWhenNoPlainPart(t *testing.T) {
	raw := crlf(
		"From: user@customer.test",
		"To: desk@acme.test",
		"Subject: Help",
		"Content-Type: text/html; charset=iso-8859-1",
		"",
		"<html><head><style>p{color:red}</style></head><body><p>Caf\xe9 is</p><p>down</p><script>x()</script></body></html>",
	)

	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	require.Equal(t, "Café is down", msg.Body)
	require.Empty(t, msg.Attachments)
}

func TestParseMessageWithoutSubject(t *testing.T) {
	msg, err := ParseMessage(crlf("From: user@customer.test", "To: desk@acme.test", "", "hello"))
	require.NoError(t, err)
	require.Empty(t, msg.Subject)
	require.Equal(t, "hello", msg.Body)
}

func TestParseMessageRejectsEmptyInput(t *testing.T) {
	_, err := ParseMessage([]byte("  "))
	require.Error(t, err)
}

func TestStripHTML(t *testing.T) {
	require.Equal(t, "a b c", stripHTML("<div>a</div><br>b<span> c </span>"))
}
