package constants

import "strings"

// FileKind is how an upload arrived in the chat.
type FileKind string

const (
	KindPhoto    FileKind = "photo"
	KindDocument FileKind = "document"
	KindOther    FileKind = "other" // video, voice, sticker and other media
)

// DefaultExt is used for inline photos and for documents without a usable file name.
const DefaultExt = "jpg"

const (
	MimeJPEG = "image/jpeg"
	MimePDF  = "application/pdf"
)

// MimeTypes maps upload extensions to the MIME tag sent with the image data URL.
var MimeTypes = map[string]string{
	"jpg":  MimeJPEG,
	"jpeg": MimeJPEG,
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"pdf":  MimePDF,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ExtFromName returns the normalized extension of a file name, or DefaultExt.
func ExtFromName(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return DefaultExt
	}
	return NormalizeExt(name[i+1:])
}

// MimeForExt returns the MIME type for ext, defaulting to JPEG.
func MimeForExt(ext string) string {
	if mt, ok := MimeTypes[NormalizeExt(ext)]; ok {
		return mt
	}
	return MimeJPEG
}

// IsSupportedDocument reports whether a document upload carries an image or a PDF.
// The declared MIME type wins; the file name is only consulted when the type is missing.
func IsSupportedDocument(mimeType, fileName string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if mt != "" {
		return strings.HasPrefix(mt, "image/") || mt == MimePDF
	}
	if fileName == "" || !strings.Contains(fileName, ".") {
		return false
	}
	_, ok := MimeTypes[ExtFromName(fileName)]
	return ok
}
