package generate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/matzehuels/aidiagram/pkg/config"
	aerrors "github.com/matzehuels/aidiagram/pkg/errors"
)

// Response is the decoded diagram payload.
//
// Every field is optional. A key counts as present only when its value is a
// non-empty string, because strict schemas make the service emit every
// property and leave the unused ones blank.
type Response struct {
	DOTCode      string `mapstructure:"dot_code"`
	DOT          string `mapstructure:"dot"`
	SVGCode      string `mapstructure:"svg_code"`
	SVG          string `mapstructure:"svg"`
	ErrorMessage string `mapstructure:"error_message"`
	Error        string `mapstructure:"error"`
	Explanation  string `mapstructure:"explanation"`

	raw map[string]any
}

// NewResponse decodes payload into a Response. Values that are not strings
// are converted with weak typing; a value that cannot be converted makes the
// payload malformed.
func NewResponse(payload map[string]any) (*Response, error) {
	r := &Response{raw: payload}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           r,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(payload); err != nil {
		return nil, aerrors.Wrap(aerrors.ErrCodeMalformedResponse, err, "decode response payload")
	}
	return r, nil
}

// Has reports whether key carries a non-empty value.
func (r *Response) Has(key string) bool {
	return strings.TrimSpace(r.value(key)) != ""
}

// Keys returns every key the service sent, sorted.
func (r *Response) Keys() []string {
	keys := make([]string, 0, len(r.raw))
	for k := range r.raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Code returns the diagram source for mode, trying the primary key before the
// legacy one. It returns "" when neither is present.
func (r *Response) Code(mode config.Mode) string {
	return r.first(codeKeys(mode))
}

// Message returns the service's error message, or "".
func (r *Response) Message() string {
	return r.first(errorKeys)
}

// validate accepts the response when any checked key is present.
func (r *Response) validate(mode config.Mode) error {
	checked := CheckedKeys(mode)
	for _, k := range checked {
		if r.Has(k) {
			return nil
		}
	}
	return aerrors.New(aerrors.ErrCodeMalformedResponse,
		"response missing expected fields: checked %v, received %v", checked, r.Keys())
}

func (r *Response) first(keys []string) string {
	for _, k := range keys {
		if r.Has(k) {
			return r.value(k)
		}
	}
	return ""
}

func (r *Response) value(key string) string {
	switch key {
	case KeyDOTCode:
		return r.DOTCode
	case KeyDOT:
		return r.DOT
	case KeySVGCode:
		return r.SVGCode
	case KeySVG:
		return r.SVG
	case KeyErrorMessage:
		return r.ErrorMessage
	case KeyError:
		return r.Error
	case KeyExplanation:
		return r.Explanation
	}
	if v, ok := r.raw[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}
