package fetcher

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedEnvelope is returned when a JSON relay response carries no resource
var ErrMalformedEnvelope = errors.New("malformed relay envelope")

type envelopeStatus struct {
	HTTPCode int `json:"http_code"`
}

type jsonEnvelope struct {
	Contents json.RawMessage `json:"contents"`
	Body     json.RawMessage `json:"body"`
	Data     json.RawMessage `json:"data"`
	Base64   bool            `json:"base64"`
	Encoding string          `json:"encoding"`
	Status   *envelopeStatus `json:"status"`
}

// decodeJSONEnvelope extracts the resource from bodies such as
// {"contents": "...", "status": {"http_code": 200}}
func decodeJSONEnvelope(body []byte) ([]byte, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Status != nil && env.Status.HTTPCode != 0 &&
		(env.Status.HTTPCode < 200 || env.Status.HTTPCode > 299) {
		return nil, &StatusError{Code: env.Status.HTTPCode, Relayed: true}
	}

	content, ok := firstString(env.Contents, env.Body, env.Data)
	if !ok {
		return nil, fmt.Errorf("%w: no contents field", ErrMalformedEnvelope)
	}

	if strings.HasPrefix(content, "data:") {
		return decodeDataURL(content)
	}
	if env.Base64 || strings.EqualFold(env.Encoding, "base64") {
		decoded, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		return decoded, nil
	}
	return []byte(content), nil
}

func firstString(fields ...json.RawMessage) (string, bool) {
	for _, raw := range fields {
		if len(raw) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			continue
		}
		return s, true
	}
	return "", false
}

// decodeDataURL decodes "data:[<mediatype>][;base64],<data>"
func decodeDataURL(s string) ([]byte, error) {
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return nil, fmt.Errorf("%w: data URL without payload", ErrMalformedEnvelope)
	}
	meta, payload := s[len("data:"):comma], s[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		return decoded, nil
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return []byte(unescaped), nil
}
