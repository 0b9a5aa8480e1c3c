package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultLanguage is the canonical language slot of multi-language content.
const DefaultLanguage = "en"

// ContentKind discriminates the Content union.
type ContentKind int

const (
	// ContentNone marks absent content. Normalization never leaves it behind.
	ContentNone ContentKind = iota
	ContentPlainText
	ContentMultiLang
	ContentImageURL
	ContentImageReference
)

func (k ContentKind) String() string {
	switch k {
	case ContentPlainText:
		return "plain_text"
	case ContentMultiLang:
		return "multi_lang"
	case ContentImageURL:
		return "image_url"
	case ContentImageReference:
		return "image_reference"
	default:
		return "none"
	}
}

// Content is the payload of a component. On the wire it is either a bare
// string (plain text, image URL or reference token) or an object of the form
// {"texts": {...}, "translatable": bool} with an optional legacy "text" mirror.
type Content struct {
	Kind ContentKind
	// Value holds the string for PlainText, ImageURL and ImageReference.
	Value string
	// Texts, Translatable and LegacyText are used by MultiLang only.
	Texts        map[string]string
	Translatable bool
	LegacyText   *string
}

// PlainText returns raw text content.
func PlainText(s string) Content { return Content{Kind: ContentPlainText, Value: s} }

// ImageURL returns content pointing at an already uploaded image.
func ImageURL(u string) Content { return Content{Kind: ContentImageURL, Value: u} }

// ImageReference returns content pointing at a pending asset.
func ImageReference(token string) Content {
	return Content{Kind: ContentImageReference, Value: token}
}

// MultiLang returns translatable text content. texts is copied.
func MultiLang(texts map[string]string, translatable bool) Content {
	c := Content{Kind: ContentMultiLang, Texts: make(map[string]string, len(texts)), Translatable: translatable}
	for k, v := range texts {
		c.Texts[k] = v
	}
	return c
}

// StringContent classifies a bare string: reference tokens become
// ImageReference, everything else PlainText.
func StringContent(s string) Content {
	if IsReferenceToken(s) {
		return ImageReference(s)
	}
	return PlainText(s)
}

// IsString reports whether the content serializes as a bare string.
func (c Content) IsString() bool {
	return c.Kind == ContentPlainText || c.Kind == ContentImageURL || c.Kind == ContentImageReference
}

// Text returns the text for lang, falling back to the default language and
// then to the legacy mirror. String kinds return Value.
func (c Content) Text(lang string) string {
	if c.IsString() {
		return c.Value
	}
	if t, ok := c.Texts[lang]; ok {
		return t
	}
	if t, ok := c.Texts[DefaultLanguage]; ok {
		return t
	}
	if c.LegacyText != nil {
		return *c.LegacyText
	}
	return ""
}

// Clone returns a deep copy.
func (c Content) Clone() Content {
	out := c
	if c.Texts != nil {
		out.Texts = make(map[string]string, len(c.Texts))
		for k, v := range c.Texts {
			out.Texts[k] = v
		}
	}
	if c.LegacyText != nil {
		t := *c.LegacyText
		out.LegacyText = &t
	}
	return out
}

type multiLangWire struct {
	Texts        map[string]string `json:"texts"`
	Translatable bool              `json:"translatable"`
	Text         *string           `json:"text,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c Content) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ContentNone:
		return []byte("null"), nil
	case ContentMultiLang:
		texts := c.Texts
		if texts == nil {
			texts = map[string]string{}
		}
		return json.Marshal(multiLangWire{Texts: texts, Translatable: c.Translatable, Text: c.LegacyText})
	default:
		return json.Marshal(c.Value)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Objects without a "texts" key
// keep Texts nil so normalization can tell legacy objects apart.
func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Content{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = StringContent(s)
		return nil
	case '{':
		var w multiLangWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*c = Content{Kind: ContentMultiLang, Texts: w.Texts, Translatable: w.Translatable, LegacyText: w.Text}
		return nil
	}
	return fmt.Errorf("content must be a string or an object, got %s", string(data[:1]))
}
