package multipart_test

import (
	"strings"
	"testing"

	"github.com/embedserve/emhttpd/multipart"
)

type chunk struct {
	data    string
	meta    multipart.PartMeta
	pos     int64
	isFinal bool
}

func collect(t *testing.T, boundary, body string) []chunk {
	t.Helper()
	var chunks []chunk
	p := multipart.NewParser(boundary, func(data []byte, meta multipart.PartMeta, pos int64, isFinal bool) {
		chunks = append(chunks, chunk{data: string(data), meta: meta, pos: pos, isFinal: isFinal})
	})
	if err := p.Feed([]byte(body)); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if !p.IsDone() {
		t.Fatalf("expected parser to reach StateEnd, got err=%v", p.Err())
	}
	return chunks
}

func TestParseSingleTextField(t *testing.T) {
	boundary := "XYZ123"
	body := "--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"field1\"\r\n\r\n" +
		"hello world" +
		"\r\n--" + boundary + "--\r\n"

	chunks := collect(t, boundary, body)
	if len(chunks) != 1 {
		t.Fatalf("chunks = %+v, want 1", chunks)
	}
	if chunks[0].data != "hello world" || !chunks[0].isFinal {
		t.Fatalf("chunk = %+v", chunks[0])
	}
	if chunks[0].meta.Name != "field1" {
		t.Fatalf("meta.Name = %q, want field1", chunks[0].meta.Name)
	}
}

func TestParseFileUploadWithOptionalHeaders(t *testing.T) {
	boundary := "boundaryABC"
	body := "--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"a.bin\"\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"FileLengthBytes: 4\r\n" +
		"CRC16: 1234\r\n\r\n" +
		"\x01\x02\x03\x04" +
		"\r\n--" + boundary + "--\r\n"

	chunks := collect(t, boundary, body)
	if len(chunks) != 1 {
		t.Fatalf("chunks = %+v", chunks)
	}
	c := chunks[0]
	if c.data != "\x01\x02\x03\x04" {
		t.Fatalf("payload = %q", c.data)
	}
	if c.meta.Filename != "a.bin" || c.meta.ContentType != "application/octet-stream" {
		t.Fatalf("meta = %+v", c.meta)
	}
	if c.meta.FileLengthBytes == nil || *c.meta.FileLengthBytes != 4 {
		t.Fatalf("FileLengthBytes = %v", c.meta.FileLengthBytes)
	}
	if c.meta.CRC16 == nil || *c.meta.CRC16 != 1234 {
		t.Fatalf("CRC16 = %v", c.meta.CRC16)
	}
}

func TestParseMultipleParts(t *testing.T) {
	boundary := "sep"
	body := "--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n\r\n" +
		"one" +
		"\r\n--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"b\"\r\n\r\n" +
		"two" +
		"\r\n--" + boundary + "--\r\n"

	chunks := collect(t, boundary, body)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %+v, want 2", chunks)
	}
	if chunks[0].meta.Name != "a" || chunks[0].data != "one" {
		t.Fatalf("first part = %+v", chunks[0])
	}
	if chunks[0].isFinal {
		t.Fatalf("first part's chunk must not be marked final (a second part follows): %+v", chunks[0])
	}
	if chunks[1].meta.Name != "b" || chunks[1].data != "two" {
		t.Fatalf("second part = %+v", chunks[1])
	}
	if !chunks[1].isFinal {
		t.Fatalf("last part's chunk must be marked final (closing boundary follows): %+v", chunks[1])
	}
}

func TestParseAcrossFeedCallsPreservesBoundaryAcrossSplit(t *testing.T) {
	boundary := "split-me"
	full := "--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"x\"\r\n\r\n" +
		"payload-data" +
		"\r\n--" + boundary + "--\r\n"

	// Split exactly in the middle of the closing boundary sequence.
	splitAt := strings.Index(full, "--"+boundary+"--") + 3

	var chunks []chunk
	p := multipart.NewParser(boundary, func(data []byte, meta multipart.PartMeta, pos int64, isFinal bool) {
		chunks = append(chunks, chunk{data: string(data), meta: meta, pos: pos, isFinal: isFinal})
	})
	if err := p.Feed([]byte(full[:splitAt])); err != nil {
		t.Fatalf("Feed first half: %v", err)
	}
	if err := p.Feed([]byte(full[splitAt:])); err != nil {
		t.Fatalf("Feed second half: %v", err)
	}
	if !p.IsDone() {
		t.Fatalf("expected parser done, err=%v", p.Err())
	}

	var combined strings.Builder
	for _, c := range chunks {
		combined.WriteString(c.data)
	}
	if combined.String() != "payload-data" {
		t.Fatalf("reassembled payload = %q, want %q", combined.String(), "payload-data")
	}
}

func TestMalformedBoundaryEntersErrorState(t *testing.T) {
	p := multipart.NewParser("b1", func([]byte, multipart.PartMeta, int64, bool) {})
	err := p.Feed([]byte("not-a-boundary-at-all\r\n\r\n"))
	if err == nil {
		t.Fatal("expected an error for a malformed opening boundary")
	}
	if err2 := p.Feed([]byte("more data")); err2 == nil {
		t.Fatal("expected subsequent Feed calls to keep failing once in error state")
	}
}
