package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"sort"

	"github.com/patrickwarner/consentstudio/internal/assets"
	"github.com/patrickwarner/consentstudio/internal/models"
)

// Multipart field names understood by the template store.
const (
	FieldBanner = "banner"
	FieldImages = "images"
)

// Upload is one binary sent along with a banner, keyed by the reference
// token it resolves.
type Upload struct {
	Token  string
	Handle models.BinaryHandle
}

// Payload is an encoded save request: either a JSON document or a multipart
// body carrying the document and its pending images.
type Payload struct {
	ContentType string
	Body        []byte
	// Uploads lists the tokens carried by a multipart payload.
	Uploads []string
}

// IsMultipart reports whether the payload carries binaries.
func (p Payload) IsMultipart() bool { return len(p.Uploads) > 0 }

// Mode labels the payload for logs and metrics.
func (p Payload) Mode() string {
	if p.IsMultipart() {
		return "multipart"
	}
	return "json"
}

// JSONPayload encodes doc as a plain JSON payload.
func JSONPayload(doc *models.BannerDocument) (Payload, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return Payload{}, fmt.Errorf("encode banner: %w", err)
	}
	return Payload{ContentType: "application/json", Body: body}, nil
}

// MultipartPayload encodes doc in the "banner" part and each upload in an
// "images" part whose file name embeds the token. Without uploads it falls
// back to JSONPayload.
func MultipartPayload(doc *models.BannerDocument, uploads []Upload) (Payload, error) {
	if len(uploads) == 0 {
		return JSONPayload(doc)
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return Payload{}, fmt.Errorf("encode banner: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+FieldBanner+`"`)
	h.Set("Content-Type", "application/json")
	part, err := w.CreatePart(h)
	if err != nil {
		return Payload{}, fmt.Errorf("create banner part: %w", err)
	}
	if _, err := part.Write(docJSON); err != nil {
		return Payload{}, fmt.Errorf("write banner part: %w", err)
	}

	tokens := make([]string, 0, len(uploads))
	for _, u := range uploads {
		u.Handle = assets.SniffMimeType(u.Handle)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     FieldImages,
			"filename": assets.FileNameFor(u.Token, u.Handle.Name),
		}))
		ct := u.Handle.MimeType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return Payload{}, fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(u.Handle.Data); err != nil {
			return Payload{}, fmt.Errorf("write image part: %w", err)
		}
		tokens = append(tokens, u.Token)
	}
	if err := w.Close(); err != nil {
		return Payload{}, fmt.Errorf("close multipart: %w", err)
	}
	return Payload{ContentType: w.FormDataContentType(), Body: buf.Bytes(), Uploads: tokens}, nil
}

// UploadsFrom turns a token map into a slice ordered by token.
func UploadsFrom(handles map[string]models.BinaryHandle) []Upload {
	out := make([]Upload, 0, len(handles))
	for token, h := range handles {
		out = append(out, Upload{Token: token, Handle: h})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// Decoded is a payload read back on the receiving side.
type Decoded struct {
	Document []byte
	Uploads  []Upload
}

// ErrPayloadTooLarge is returned when a payload exceeds the configured limit.
var ErrPayloadTooLarge = errors.New("payload too large")

// DecodePayload reads a JSON or multipart payload. Image parts whose file
// name carries no token are skipped.
func DecodePayload(contentType string, body io.Reader, maxBytes int64) (Decoded, error) {
	limited := io.LimitReader(body, maxBytes+1)
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "application/json"
	}

	if mediaType != "multipart/form-data" {
		raw, err := io.ReadAll(limited)
		if err != nil {
			return Decoded{}, fmt.Errorf("read payload: %w", err)
		}
		if int64(len(raw)) > maxBytes {
			return Decoded{}, ErrPayloadTooLarge
		}
		return Decoded{Document: raw}, nil
	}

	var (
		out  Decoded
		read int64
	)
	r := multipart.NewReader(limited, params["boundary"])
	for {
		part, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Decoded{}, fmt.Errorf("read multipart: %w", err)
		}
		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return Decoded{}, fmt.Errorf("read part %s: %w", part.FormName(), err)
		}
		read += int64(len(data))
		if read > maxBytes {
			return Decoded{}, ErrPayloadTooLarge
		}

		switch part.FormName() {
		case FieldBanner:
			out.Document = data
		case FieldImages:
			token, name, ok := assets.TokenFromFileName(part.FileName())
			if !ok {
				continue
			}
			out.Uploads = append(out.Uploads, Upload{Token: token, Handle: assets.SniffMimeType(models.BinaryHandle{
				Name:     name,
				Size:     int64(len(data)),
				MimeType: part.Header.Get("Content-Type"),
				Data:     data,
			})})
		}
	}
	if out.Document == nil {
		return Decoded{}, fmt.Errorf("multipart payload without %q part", FieldBanner)
	}
	return out, nil
}
