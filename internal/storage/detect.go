package storage

import (
	"bytes"
	"errors"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedType is returned by Sniff when content is not one of the
// accepted types.
var ErrUnsupportedType = errors.New("unsupported file type")

// Accepted content types per folder.  Entries match the detected type or
// any of its parents, so zip-based office formats and plain text variants
// are covered.
var accepted = map[string][]string{
	FolderResumes: {
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.oasis.opendocument.text",
		"application/rtf",
		"text/rtf",
		"text/plain",
		"application/x-ole-storage",
	},
	FolderBlog:    {"image/jpeg", "image/png", "image/gif", "image/webp"},
	FolderAuthors: {"image/jpeg", "image/png", "image/gif", "image/webp"},
}

// sniffLen is how much of the body is read to detect its type.
const sniffLen = 3072

// Sniff detects the content type of r and checks it against the folder's
// accepted list.  It returns the detected type and a reader that replays the
// sniffed prefix followed by the rest of r.
func Sniff(r io.Reader, folder string) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	allowed := accepted[folder]
	for m := mt; m != nil; m = m.Parent() {
		for _, a := range allowed {
			if m.Is(a) {
				return mt.String(), io.MultiReader(bytes.NewReader(head), r), nil
			}
		}
	}
	return mt.String(), nil, ErrUnsupportedType
}
