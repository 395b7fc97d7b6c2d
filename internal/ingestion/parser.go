package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	gomessage "github.com/emersion/go-message"
	gomail "github.com/emersion/go-message/mail"
	"golang.org/x/net/html"
	htmlcharset "golang.org/x/net/html/charset"

	"github.com/spec-kit/ticket-router/internal/domain"
)

const maxBodyBytes = 1 << 20

func init() {
	gomessage.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return htmlcharset.NewReaderLabel(charset, input)
	}
}

// InboundMessage is the decoded view of one email.
type InboundMessage struct {
	MessageID   string
	From        string
	To          []string
	Cc          []string
	Subject     string
	Body        string
	Attachments []domain.AttachmentSummary
}

// Destinations returns To addresses followed by Cc addresses.
func (m *InboundMessage) Destinations() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc))
	out = append(out, m.To...)
	return append(out, m.Cc...)
}

// ParseMessage decodes raw RFC 5322 bytes. text/plain wins over text/html; HTML bodies are reduced to text.
func ParseMessage(raw []byte) (*InboundMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("empty message")
	}
	reader, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil && !gomessage.IsUnknownCharset(err) {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	defer reader.Close()

	msg := &InboundMessage{
		From: firstAddress(&reader.Header, "From"),
		To:   addresses(&reader.Header, "To"),
		Cc:   addresses(&reader.Header, "Cc"),
	}
	if subject, err := reader.Header.Subject(); err == nil {
		msg.Subject = strings.TrimSpace(subject)
	} else {
		msg.Subject = strings.TrimSpace(reader.Header.Get("Subject"))
	}
	if id, err := reader.Header.MessageID(); err == nil {
		msg.MessageID = id
	}

	var plain, htmlBody string
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if gomessage.IsUnknownCharset(err) {
				continue
			}
			return nil, fmt.Errorf("read message part: %w", err)
		}
		switch header := part.Header.(type) {
		case *gomail.InlineHeader:
			mediaType, _, ctErr := header.ContentType()
			if ctErr != nil || mediaType == "" {
				mediaType = "text/plain"
			}
			body, err := io.ReadAll(io.LimitReader(part.Body, maxBodyBytes))
			if err != nil {
				return nil, fmt.Errorf("read inline part: %w", err)
			}
			switch strings.ToLower(mediaType) {
			case "text/plain":
				if plain == "" {
					plain = string(body)
				}
			case "text/html":
				if htmlBody == "" {
					htmlBody = string(body)
				}
			}
		case *gomail.AttachmentHeader:
			msg.Attachments = append(msg.Attachments, readAttachment(part, header))
		}
	}

	switch {
	case strings.TrimSpace(plain) != "":
		msg.Body = strings.TrimSpace(plain)
	case htmlBody != "":
		msg.Body = stripHTML(htmlBody)
	}
	return msg, nil
}

func readAttachment(part *gomail.Part, header *gomail.AttachmentHeader) domain.AttachmentSummary {
	summary := domain.AttachmentSummary{ContentType: "application/octet-stream"}
	if name, err := header.Filename(); err == nil {
		summary.FileName = name
	}
	if mediaType, _, err := header.ContentType(); err == nil && mediaType != "" {
		summary.ContentType = strings.ToLower(mediaType)
	}
	if n, err := io.Copy(io.Discard, part.Body); err == nil {
		summary.SizeBytes = n
	}
	return summary
}

func firstAddress(header *gomail.Header, key string) string {
	list := addresses(header, key)
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

func addresses(header *gomail.Header, key string) []string {
	list, err := header.AddressList(key)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, addr := range list {
		if value := strings.TrimSpace(addr.Address); value != "" {
			out = append(out, value)
		}
	}
	return out
}

// stripHTML keeps the text nodes of an HTML document, dropping script and style content.
func stripHTML(doc string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(doc))
	var (
		b    strings.Builder
		skip int
	)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "br", "p", "div", "li", "tr":
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}
