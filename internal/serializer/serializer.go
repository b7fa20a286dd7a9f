// Package serializer converts snippets to and from their JSON representation.
//
// OUTBOUND (ToExternal):
// A model.Snippet becomes a Resource whose url and highlight_url are absolute
// links built from the base URL of the current request. The base URL is passed
// in explicitly; this package never looks at an *http.Request.
//
// INBOUND (Decode + Payload.Apply):
// Decoding and validation are split in two steps because a partial update can
// only be validated after it has been merged onto the stored record:
//
//	payload, err := serializer.Decode(body)        // JSON -> which fields were sent
//	fields, err := payload.Apply(base, partial)    // merge + validate
//
// Unknown keys are ignored. That includes "owner", "id" and "highlighted": the
// owner always comes from the caller's identity and highlighted is derived.
package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/snippets-api/internal/apperror"
	"github.com/sakif/snippets-api/internal/model"
)

// MaxTitleLength is the longest title accepted, in characters.
const MaxTitleLength = 100

// Resource is the external shape of a snippet.
type Resource struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"`
	HighlightURL string `json:"highlight_url"`
	Owner        string `json:"owner"`
	Title        string `json:"title"`
	Code         string `json:"code"`
	Linenos      bool   `json:"linenos"`
	Language     string `json:"language"`
	Style        string `json:"style"`
}

// UserResource is the external shape of a user, listing links to every
// snippet the user owns.
type UserResource struct {
	ID       string   `json:"id"`
	URL      string   `json:"url"`
	Username string   `json:"username"`
	Snippets []string `json:"snippets"`
}

// SnippetURL returns the canonical location of a snippet.
func SnippetURL(baseURL string, id int64) string {
	return fmt.Sprintf("%s/snippets/%d/", strings.TrimRight(baseURL, "/"), id)
}

// HighlightURL returns the location of a snippet's rendered HTML.
func HighlightURL(baseURL string, id int64) string {
	return SnippetURL(baseURL, id) + "highlight/"
}

// UserURL returns the canonical location of a user.
func UserURL(baseURL, id string) string {
	return fmt.Sprintf("%s/users/%s/", strings.TrimRight(baseURL, "/"), id)
}

// ToExternal renders a snippet for a response body.
func ToExternal(s *model.Snippet, baseURL string) Resource {
	return Resource{
		ID:           s.ID,
		URL:          SnippetURL(baseURL, s.ID),
		HighlightURL: HighlightURL(baseURL, s.ID),
		Owner:        s.Owner,
		Title:        s.Title,
		Code:         s.Code,
		Linenos:      s.Linenos,
		Language:     s.Language,
		Style:        s.Style,
	}
}

// ToExternalList renders a page of snippets. It never returns nil so an empty
// page encodes as [] rather than null.
func ToExternalList(snippets []model.Snippet, baseURL string) []Resource {
	out := make([]Resource, 0, len(snippets))
	for i := range snippets {
		out = append(out, ToExternal(&snippets[i], baseURL))
	}
	return out
}

// ToExternalUser renders a user together with links to the snippets they own.
func ToExternalUser(u *model.User, snippetIDs []int64, baseURL string) UserResource {
	links := make([]string, 0, len(snippetIDs))
	for _, id := range snippetIDs {
		links = append(links, SnippetURL(baseURL, id))
	}
	return UserResource{
		ID:       u.ID,
		URL:      UserURL(baseURL, u.ID),
		Username: u.Username,
		Snippets: links,
	}
}

// Fields holds the client-writable snippet fields after validation.
//
// The validate tags are read by go-playground/validator; "language" and "style"
// are custom tags registered in validate.go.
type Fields struct {
	Title    string `json:"title" validate:"max=100"`
	Code     string `json:"code" validate:"notblank"`
	Linenos  bool   `json:"linenos"`
	Language string `json:"language" validate:"language"`
	Style    string `json:"style" validate:"style"`
}

// DefaultFields is the starting point for a new snippet.
func DefaultFields() Fields {
	return Fields{
		Language: model.DefaultLanguage,
		Style:    model.DefaultStyle,
	}
}

// FieldsOf extracts the writable fields of a stored snippet.
func FieldsOf(s *model.Snippet) Fields {
	return Fields{
		Title:    s.Title,
		Code:     s.Code,
		Linenos:  s.Linenos,
		Language: s.Language,
		Style:    s.Style,
	}
}

// ApplyTo copies the fields onto s. Identity, ownership and the derived
// highlighted field are left alone.
func (f Fields) ApplyTo(s *model.Snippet) {
	s.Title = f.Title
	s.Code = f.Code
	s.Linenos = f.Linenos
	s.Language = f.Language
	s.Style = f.Style
}

// Payload records which writable fields a request body supplied.
// A nil pointer means the key was absent.
type Payload struct {
	Title    *string
	Code     *string
	Linenos  *bool
	Language *string
	Style    *string

	// errs holds type errors found while decoding (e.g. "linenos": "maybe").
	errs map[string][]string
}

// Decode parses a request body. An empty body is an empty mapping, so a PUT
// with no body reports the missing required fields instead of a parse error.
func Decode(body []byte) (Payload, error) {
	var p Payload
	if len(bytes.TrimSpace(body)) == 0 {
		return p, nil
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return p, apperror.ParseError(err)
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return p, apperror.ValidationFailed("non_field_errors",
			fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", jsonKind(raw)))
	}

	p.errs = make(map[string][]string)
	p.Title = p.stringField(obj, "title")
	p.Code = p.stringField(obj, "code")
	p.Language = p.stringField(obj, "language")
	p.Style = p.stringField(obj, "style")
	p.Linenos = p.boolField(obj, "linenos")

	return p, nil
}

func (p *Payload) stringField(obj map[string]any, key string) *string {
	v, present := obj[key]
	if !present {
		return nil
	}
	switch val := v.(type) {
	case string:
		return &val
	case nil:
		p.errs[key] = append(p.errs[key], "This field may not be null.")
	default:
		p.errs[key] = append(p.errs[key], "Not a valid string.")
	}
	return nil
}

func (p *Payload) boolField(obj map[string]any, key string) *bool {
	v, present := obj[key]
	if !present {
		return nil
	}
	switch val := v.(type) {
	case bool:
		return &val
	case float64:
		if val == 0 || val == 1 {
			b := val == 1
			return &b
		}
	case string:
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			return &b
		}
	case nil:
		p.errs[key] = append(p.errs[key], "This field may not be null.")
		return nil
	}
	p.errs[key] = append(p.errs[key], "Must be a valid boolean.")
	return nil
}

// Apply overlays the payload on base and validates the result.
//
// In full mode (PUT, POST) every required field must be present in the payload;
// in partial mode (PATCH) absent fields keep their base value. Optional fields
// that are absent keep their base value in both modes.
func (p Payload) Apply(base Fields, partial bool) (Fields, error) {
	errs := make(map[string][]string, len(p.errs))
	for k, v := range p.errs {
		errs[k] = append([]string(nil), v...)
	}

	if !partial && p.Code == nil && len(errs["code"]) == 0 {
		errs["code"] = []string{apperror.MsgFieldRequired}
	}

	out := base
	if p.Title != nil {
		out.Title = strings.TrimSpace(*p.Title)
	}
	if p.Code != nil {
		out.Code = *p.Code
	}
	if p.Linenos != nil {
		out.Linenos = *p.Linenos
	}
	if p.Language != nil {
		out.Language = *p.Language
	}
	if p.Style != nil {
		out.Style = *p.Style
	}

	for field, msgs := range validateFields(out) {
		if len(errs[field]) > 0 {
			continue // report the decode or presence error, not a follow-on
		}
		errs[field] = msgs
	}

	if len(errs) > 0 {
		return Fields{}, apperror.Invalid(errs)
	}
	return out, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case []any:
		return "list"
	case string:
		return "str"
	case float64:
		return "int"
	case bool:
		return "bool"
	case nil:
		return "NoneType"
	default:
		return fmt.Sprintf("%T", v)
	}
}
