package ingest

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
)

var (
	subjectRe   = regexp.MustCompile(`(?i)(?:Song|Fussin'?\s*and\s*Lovin'?|FAL)\s*#\s*(\d+)`)
	slashLineRe = regexp.MustCompile(`(?m)^[ \t]*/{20,}[ \t]*$`)
)

// SplitMbox cuts an mbox export into one block per archive post. Replies
// and messages whose subject is not an entry subject are skipped; so are
// messages that cannot be parsed, with a warning.
func SplitMbox(r io.Reader) ([]Block, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read mbox: %w", err)
	}
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	if !strings.HasPrefix(text, "\n") {
		text = "\n" + text
	}

	var blocks []Block
	parts := strings.Split(text, "\nFrom ")
	for i, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		// drop the rest of the envelope line
		if nl := strings.IndexByte(part, '\n'); nl >= 0 {
			part = part[nl+1:]
		}

		msg, err := mail.ReadMessage(strings.NewReader(part))
		if err != nil {
			slog.Warn("Skipping unparseable message", "index", i, "error", err)
			continue
		}
		if msg.Header.Get("In-Reply-To") != "" {
			slog.Debug("Skipping reply", "index", i)
			continue
		}

		subject := decodeHeader(msg.Header.Get("Subject"))
		m := subjectRe.FindStringSubmatch(subject)
		if m == nil {
			slog.Debug("Skipping message, not an entry", "subject", subject)
			continue
		}
		number, _ := strconv.Atoi(m[1])

		body, err := messageText(msg)
		if err != nil {
			slog.Warn("Skipping message with unreadable body", "subject", subject, "error", err)
			continue
		}
		blocks = append(blocks, Block{
			Source: "mbox:" + subject,
			Number: number,
			Text:   songSection(body),
		})
	}

	slog.Debug("Split mbox", "messages", len(parts), "blocks", len(blocks))
	return blocks, nil
}

// SplitText cuts a text dump of the archive PDF on its long slash rules.
func SplitText(r io.Reader) ([]Block, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read text dump: %w", err)
	}

	var blocks []Block
	for i, chunk := range slashLineRe.Split(string(raw), -1) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		blocks = append(blocks, Block{Source: "text:" + strconv.Itoa(i), Text: chunk})
	}
	return blocks, nil
}

// songSection returns the underscore-delimited part of an email body that
// starts with the entry header, or the whole body when there is none.
func songSection(body string) string {
	for _, part := range strings.Split(body, "___") {
		trimmed := strings.Trim(part, "_ \t\n")
		if strings.HasPrefix(trimmed, "Song #") {
			return trimmed
		}
	}
	return body
}

func decodeHeader(s string) string {
	dec := new(mime.WordDecoder)
	out, err := dec.DecodeHeader(s)
	if err != nil {
		return s
	}
	return out
}

// messageText returns the plain text of a message, preferring a text/plain
// part over text/html in multipart mail.
func messageText(msg *mail.Message) (string, error) {
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "text/plain"
	}
	return partText(mediaType, params, msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
}

func partText(mediaType string, params map[string]string, encoding string, body io.Reader) (string, error) {
	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		var htmlText string
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", fmt.Errorf("failed to read multipart body: %w", err)
			}
			pt, pp, err := mime.ParseMediaType(p.Header.Get("Content-Type"))
			if err != nil {
				pt = "text/plain"
			}
			text, err := partText(pt, pp, p.Header.Get("Content-Transfer-Encoding"), p)
			if err != nil {
				return "", err
			}
			switch {
			case pt == "text/plain" || strings.HasPrefix(pt, "multipart/") && text != "":
				return text, nil
			case pt == "text/html" && htmlText == "":
				htmlText = text
			}
		}
		return htmlText, nil
	}

	if !strings.HasPrefix(mediaType, "text/") {
		return "", nil
	}

	var r io.Reader = body
	if strings.EqualFold(strings.TrimSpace(encoding), "quoted-printable") {
		r = quotedprintable.NewReader(body)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("failed to decode body: %w", err)
	}
	return buf.String(), nil
}
