// Package http serves the JSON API over the budget tracker.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies may be JSON objects or form encoded; both are read through the same
// accessor.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"brokeometer/internal/core"
)

const maxBodyBytes = 64 << 10

var ErrBodyTooLarge = errors.New("request body too large")

// RequestBodyParser handles different content types for request body parsing.
// It reads the body once and stores it for subsequent parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = ErrBodyTooLarge
	}
	return p
}

// Parse decodes the body as JSON when the content type says so or the body
// starts with '{', and as a form otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = fmt.Errorf("decode json body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Get returns a trimmed, sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether the key was present in the body.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// Amount parses the key as a non-negative amount.
func (p *RequestBodyParser) Amount(key string) (float64, error) {
	v, err := core.ParseAmount(p.Get(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// Limit parses the key as a budget ceiling, where empty means zero.
func (p *RequestBodyParser) Limit(key string) (float64, error) {
	v, err := core.ParseLimit(p.Get(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string. Numbers keep their
// shortest exact form so "12.5" and 12.5 parse the same.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
