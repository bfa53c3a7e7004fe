package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"notes.txt", true},
		{"page.html", true},
		{"README", true},
		{"trace.unknownext", true},
		{"shot.png", false},
		{"photo.JPG", false},
		{"bundle.zip", false},
		{"setup.exe", false},
		{"archive.7z", false},
		{"report.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPlainText(model.Attachment{Name: tt.name}))
		})
	}
}

func TestPartitionAttachments(t *testing.T) {
	all := []model.Attachment{
		{Name: "a.txt"}, {Name: "b.png"}, {Name: "c"}, {Name: "d.zip"}, {Name: "e.html"},
	}

	plain, binary := PartitionAttachments(all)

	assert.Len(t, append(plain, binary...), len(all))
	assert.Equal(t, []model.Attachment{{Name: "a.txt"}, {Name: "c"}, {Name: "e.html"}}, plain)
	assert.Equal(t, []model.Attachment{{Name: "b.png"}, {Name: "d.zip"}}, binary)
	for _, p := range plain {
		assert.NotContains(t, binary, p)
	}
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name        string
		body        []byte
		contentType string
		want        string
	}{
		{"utf-8 undeclared", []byte("café"), "", "café"},
		{"utf-8 declared", []byte("café"), "text/plain; charset=utf-8", "café"},
		{"windows-1252 declared", []byte("caf\xe9"), "text/plain; charset=windows-1252", "café"},
		{"windows-1252 sniffed", []byte("caf\xe9"), "application/octet-stream", "café"},
		{"unknown charset", []byte("plain"), "text/plain; charset=x-nonsense", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeText(tt.body, tt.contentType))
		})
	}
}

func TestAddGistFile(t *testing.T) {
	files := map[string]string{}

	assert.Equal(t, "log.txt", addGistFile(files, "log.txt", "first"))
	assert.Equal(t, "log (2).txt", addGistFile(files, "log.txt", "second"))
	assert.Equal(t, "log (3).txt", addGistFile(files, "log.txt", "third"))
	assert.Equal(t, "README", addGistFile(files, "README", "a"))
	assert.Equal(t, "README (2)", addGistFile(files, "README", "b"))
	assert.Equal(t, "empty.txt", addGistFile(files, "empty.txt", ""))
	assert.Equal(t, "attachment", addGistFile(files, " ", "x"))

	assert.Equal(t, map[string]string{
		"log.txt":     "first",
		"log (2).txt": "second",
		"log (3).txt": "third",
		"README":      "a",
		"README (2)":  "b",
		"empty.txt":   emptyGistFile,
		"attachment":  "x",
	}, files)
}
