package client

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"http-toolkit/application/http/semantic"
	"http-toolkit/application/http/stream"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// EncodeBody serializes the payload of req into its body.
// An [*semantic.Upload] becomes multipart/form-data,
// strings and bytes are sent as is, and any other value is sent as JSON.
// Content-Type and Content-Length are set accordingly.
// Without payload, the body stream is sent as it is.
func EncodeBody(req semantic.Request) (semantic.Request, error) {
	var (
		data        []byte
		contentType string
		err         error
	)

	switch payload := req.Payload().(type) {
	case nil:
		if !req.HasBody() {
			return req, nil
		}
		contents, err := req.Body().Contents()
		if err != nil {
			return semantic.Request{}, errors.Wrap(err, "reading request body")
		}
		data = []byte(contents)
	case *semantic.Upload:
		data, contentType, err = encodeMultipart(payload)
		if err != nil {
			return semantic.Request{}, errors.Wrap(err, "encoding multipart body")
		}
	case string:
		data = []byte(payload)
	case []byte:
		data = payload
	default:
		data, err = sonic.Marshal(payload)
		if err != nil {
			return semantic.Request{}, errors.Wrap(err, "encoding json body")
		}
		contentType = "application/json"
	}

	if contentType != "" {
		if req, err = req.WithHeader("Content-Type", contentType); err != nil {
			return semantic.Request{}, err
		}
	}
	if req, err = req.WithHeader("Content-Length", strconv.Itoa(len(data))); err != nil {
		return semantic.Request{}, err
	}

	return req.WithBody(stream.NewBytes(data)), nil
}

func encodeMultipart(upload *semantic.Upload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(newBoundary()); err != nil {
		return nil, "", errors.Wrap(err, "setting boundary")
	}

	var err error
	upload.Fields.Each(func(name, value string) bool {
		err = w.WriteField(name, value)
		return err == nil
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "writing field")
	}

	for _, file := range upload.Files {
		if err := writeFilePart(w, file); err != nil {
			return nil, "", errors.Wrapf(err, "attaching %q", file.Path)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "closing multipart writer")
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, file semantic.UploadFile) error {
	mt, err := mimetype.DetectFile(file.Path)
	if err != nil {
		return errors.Wrap(err, "detecting media type")
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return errors.Wrap(err, "opening file")
	}
	defer f.Close()

	filename := file.Name
	if filename == "" {
		filename = filepath.Base(file.Path)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(file.Name), escapeQuotes(filename)))
	h.Set("Content-Type", mt.String())

	part, err := w.CreatePart(h)
	if err != nil {
		return errors.Wrap(err, "creating part")
	}

	if _, err := io.Copy(part, f); err != nil {
		return errors.Wrap(err, "writing part")
	}
	return nil
}

func newBoundary() string {
	return "http-toolkit-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
