package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/spigell/resume-matcher/internal/document"
	"github.com/tidwall/gjson"
)

const (
	fieldJD     = "jd"
	fieldResume = "resume"
	fieldFile   = "file"
)

var errInvalidJSON = errors.New("request body is not valid json")

// scoreInput is the parsed form of a /get_score request.
type scoreInput struct {
	jd     *document.Document
	resume *document.Document
	file   *upload
}

type upload struct {
	name string
	size int64
	file multipart.File
}

func (u *upload) Close() error {
	if u == nil || u.file == nil {
		return nil
	}
	return u.file.Close()
}

// parseInput detects the body shape from Content-Type. Unknown types carry no data.
func parseInput(r *http.Request) (*scoreInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case mediaType == "application/json", strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json"):
		return parseJSON(r.Body)
	case mediaType == "multipart/form-data":
		return parseMultipart(r)
	case mediaType == "application/x-www-form-urlencoded":
		return parseForm(r)
	default:
		return &scoreInput{}, nil
	}
}

func parseJSON(body io.Reader) (*scoreInput, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	if !gjson.ValidBytes(data) {
		return nil, errInvalidJSON
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return &scoreInput{}, nil
	}

	return &scoreInput{
		jd:     document.FromJSON(root.Get(fieldJD)),
		resume: document.FromJSON(root.Get(fieldResume)),
	}, nil
}

func parseForm(r *http.Request) (*scoreInput, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parsing form: %w", err)
	}

	return &scoreInput{
		jd:     formDocument(r.PostForm.Get(fieldJD)),
		resume: formDocument(r.PostForm.Get(fieldResume)),
	}, nil
}

func parseMultipart(r *http.Request) (*scoreInput, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("parsing multipart form: %w", err)
	}

	in := &scoreInput{
		jd:     formDocument(r.MultipartForm.Value[fieldJD]...),
		resume: formDocument(r.MultipartForm.Value[fieldResume]...),
	}

	if headers := r.MultipartForm.File[fieldFile]; len(headers) > 0 {
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("opening uploaded file: %w", err)
		}
		in.file = &upload{name: fh.Filename, size: fh.Size, file: f}
	}

	return in, nil
}

// formDocument parses the first form value: a JSON object becomes a
// structured document, anything else is treated as text.
func formDocument(values ...string) *document.Document {
	if len(values) == 0 {
		return nil
	}
	return document.Parse([]byte(values[0]))
}

func isPDF(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}
