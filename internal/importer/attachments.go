package importer

import (
	"fmt"
	"mime"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/ALT-F4-LLC/ferry/internal/model"
)

// binaryExts are extensions treated as binary when the MIME table does not
// know them.
var binaryExts = map[string]bool{
	".dll": true, ".dat": true, ".zip": true, ".exe": true, ".7z": true,
	".png": true, ".jpg": true, ".jpeg": true, ".docx": true, ".doc": true,
	".ppt": true, ".pptx": true, ".xls": true, ".xlsx": true, ".bmp": true,
	".gif": true, ".rtf": true, ".swf": true, ".blg": true, ".rar": true,
}

// IsPlainText reports whether an attachment can be pasted into a gist. A
// known MIME type is plain text when it is text/*; an unknown one is plain
// text unless its extension is a known binary format.
func IsPlainText(a model.Attachment) bool {
	ext := a.Ext()
	if t := mime.TypeByExtension(ext); ext != "" && t != "" {
		return strings.HasPrefix(t, "text/")
	}
	return !binaryExts[ext]
}

// PartitionAttachments splits attachments into plain-text and binary sets,
// keeping their order. Every attachment lands in exactly one set.
func PartitionAttachments(attachments []model.Attachment) (plain, binary []model.Attachment) {
	for _, a := range attachments {
		if IsPlainText(a) {
			plain = append(plain, a)
		} else {
			binary = append(binary, a)
		}
	}
	return plain, binary
}

// DecodeText turns downloaded attachment bytes into text. The charset
// declared in contentType is tried first, then UTF-8, then Windows-1252.
// When nothing fits the bytes are used as is.
func DecodeText(body []byte, contentType string) string {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if name := params["charset"]; name != "" {
			if enc, err := htmlindex.Get(name); err == nil {
				if decoded, err := enc.NewDecoder().Bytes(body); err == nil {
					return string(decoded)
				}
			}
		}
	}

	if utf8.Valid(body) {
		return string(body)
	}
	if decoded, err := charmap.Windows1252.NewDecoder().Bytes(body); err == nil {
		return string(decoded)
	}
	return string(body)
}

// emptyGistFile replaces blank attachment content, which gists reject.
const emptyGistFile = "(empty attachment)"

// addGistFile stores content in files under name, numbering the name
// "log (2).txt", "log (3).txt", ... while it is taken. It returns the name
// used.
func addGistFile(files map[string]string, name, content string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "attachment"
	}
	if strings.TrimSpace(content) == "" {
		content = emptyGistFile
	}

	unique := name
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		if _, taken := files[unique]; !taken {
			break
		}
		unique = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
	files[unique] = content
	return unique
}
