package http

import (
	"crypto/rand"
	"fmt"
	"mime"
	"path"
	"strings"
)

// contentTypes covers the extensions most commonly attached to multipart
// form uploads. Extensions not listed here fall back to the standard
// library's mime package, then to application/octet-stream.
var contentTypes = map[string]string{
	"bin":  "application/octet-stream",
	"bmp":  "image/bmp",
	"css":  "text/css",
	"csv":  "text/csv",
	"gif":  "image/gif",
	"htm":  "text/html",
	"html": "text/html",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"js":   "text/javascript",
	"json": "application/json",
	"mp3":  "audio/mp3",
	"mp4":  "video/mp4",
	"pdf":  "application/pdf",
	"png":  "image/png",
	"svg":  "image/svg+xml",
	"tar":  "application/x-tar",
	"txt":  "text/plain",
	"wav":  "audio/wave",
	"webp": "image/webp",
	"xml":  "text/xml",
	"zip":  "application/zip",
}

func contentTypeForFilename(filename string) string {
	return DetectContentType(filename)
}

// DetectContentType maps a filename's extension to a Content-Type value,
// consulting a small static table before falling back to the standard
// library's mime package and finally to application/octet-stream.
func DetectContentType(filename string) string {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		return "application/octet-stream"
	}
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// CreateBoundary generates a random multipart boundary: printable ASCII,
// between 1 and 70 characters, per RFC 2046 §5.1.1.
func CreateBoundary() (string, error) {
	n, err := randomInt(1, 70)
	if err != nil {
		return "", err
	}

	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i, c := range b {
		b[i] = 32 + c%(127-32)
	}
	return string(b), nil
}

func randomInt(min, max int) (int, error) {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return min + int(b[0])%(max-min+1), nil
}

// CreateMultipartFormField encodes a single form field, not including the
// trailing CRLF that separates it from the next part.
func CreateMultipartFormField(key, value, boundary string) string {
	return fmt.Sprintf("--%s\r\nContent-Disposition: form-data; name=%q\r\n\r\n%s", boundary, key, value)
}

// CreateMultipartFormData joins a set of key/value pairs into a full
// multipart/form-data body (without the closing boundary; callers append
// "--boundary--\r\n" once all parts, including files, have been written).
func CreateMultipartFormData(fields [][2]string, boundary string) string {
	var b strings.Builder
	for _, kv := range fields {
		b.WriteString(CreateMultipartFormField(kv[0], kv[1], boundary))
		b.WriteString("\r\n")
	}
	return b.String()
}

// CreateMultipartFormDataFile encodes a file part, including the trailing
// "\r\n" after the opening boundary line that a malformed part header
// would otherwise be missing.
func CreateMultipartFormDataFile(name string, fileContents []byte, filename, boundary string) string {
	contentType := contentTypeForFilename(filename)
	return fmt.Sprintf(
		"--%s\r\nContent-Disposition: form-data; name=%q; filename=%q\r\nContent-Type: %s\r\n\r\n%s",
		boundary, name, filename, contentType, string(fileContents),
	)
}

// CreateApplicationXWWWFormURLEncoded appends a single "key=value&" pair
// to an incrementally built body rather than URL-encoding the whole set
// at once; callers trim the trailing '&' after the last pair.
func CreateApplicationXWWWFormURLEncoded(key, value string) string {
	return fmt.Sprintf("%s=%s&", key, value)
}
