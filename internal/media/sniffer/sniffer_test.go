package sniffer

import (
	"bytes"
	"errors"
	"net/http"
	"testing"
)

func TestDetectHead(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		head []byte
		want MediaType
		mime string
	}{
		{name: "jpeg", head: []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, want: TypeJPEG, mime: "image/jpeg"},
		{name: "png", head: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00}, want: TypePNG, mime: "image/png"},
		{name: "webp", head: []byte("RIFF\x10\x00\x00\x00WEBPVP8 "), want: TypeWEBP, mime: "image/webp"},
		{name: "pdf", head: []byte("%PDF-1.7\n%\xe2\xe3"), want: TypePDF, mime: "application/pdf"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := DetectHead(tc.head)
			if err != nil {
				t.Fatalf("DetectHead returned error: %v", err)
			}
			if got.Type != tc.want || got.MIME != tc.mime {
				t.Fatalf("expected %s (%s), got %s (%s)", tc.want, tc.mime, got.Type, got.MIME)
			}
		})
	}
}

func TestDetectHeadRejectsOtherFormats(t *testing.T) {
	t.Parallel()

	for _, head := range [][]byte{
		nil,
		[]byte("GIF89a...."),
		[]byte("<svg xmlns=\"http://www.w3.org/2000/svg\"></svg>"),
		[]byte("plain text receipt"),
	} {
		if _, err := DetectHead(head); !errors.Is(err, ErrUnknownType) {
			t.Fatalf("expected ErrUnknownType for %q, got %v", head, err)
		}
	}
}

func TestDetectReturnsConsumedHead(t *testing.T) {
	t.Parallel()

	payload := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 2*HeadSize)...)
	result, head, err := Detect(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if result.Type != TypePDF {
		t.Fatalf("expected pdf, got %s", result.Type)
	}
	if len(head) != HeadSize || !bytes.Equal(head, payload[:HeadSize]) {
		t.Fatalf("expected first %d bytes back, got %d", HeadSize, len(head))
	}
}

func TestMimeTypeFromHTTP(t *testing.T) {
	t.Parallel()

	header := http.Header{}
	header.Set("Content-Type", "application/pdf; name=receipt.pdf")
	if got := MimeTypeFromHTTP(header); got != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", got)
	}
	header.Set("Content-Type", " Image/PNG ")
	if got := MimeTypeFromHTTP(header); got != "image/png" {
		t.Fatalf("expected image/png, got %q", got)
	}
	if got := MimeTypeFromHTTP(http.Header{}); got != "" {
		t.Fatalf("expected empty type, got %q", got)
	}
}
