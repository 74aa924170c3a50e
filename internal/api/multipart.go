package api

import "bytes"

// multipartBoundary is shared by every upload. Bodies are always single-part
// so a fixed token cannot collide with a nested boundary.
const multipartBoundary = "----BarcodeAPIBoundary"

// formFile describes the one file part of an upload endpoint.
type formFile struct {
	field       string
	filename    string
	contentType string
}

var (
	decodeForm = formFile{field: "image", filename: "image.png", contentType: "application/octet-stream"}
	bulkForm   = formFile{field: "csvFile", filename: "bulk.csv", contentType: "text/csv"}
)

// encode frames payload as a multipart/form-data body and returns it together
// with the matching Content-Type header value.
func (f formFile) encode(payload []byte) (contentType string, body []byte) {
	var b bytes.Buffer
	b.Grow(len(payload) + 192)
	b.WriteString("--" + multipartBoundary + "\r\n")
	b.WriteString(`Content-Disposition: form-data; name="` + f.field + `"; filename="` + f.filename + "\"\r\n")
	b.WriteString("Content-Type: " + f.contentType + "\r\n\r\n")
	b.Write(payload)
	b.WriteString("\r\n--" + multipartBoundary + "--\r\n")
	return "multipart/form-data; boundary=" + multipartBoundary, b.Bytes()
}
