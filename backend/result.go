package backend

import (
	"bytes"
	"encoding/json"
)

// BodyKind tags which variant a Body holds
type BodyKind int

const (
	KindText BodyKind = iota
	KindJSON
)

func (k BodyKind) String() string {
	if k == KindJSON {
		return "json"
	}
	return "text"
}

// Body is the payload of a backend response: either a JSON document or raw text.
// Callers must branch on Kind rather than guess at the content.
type Body struct {
	kind BodyKind
	json json.RawMessage
	text string
}

func JSONBody(raw json.RawMessage) Body {
	return Body{kind: KindJSON, json: raw}
}

func TextBody(text string) Body {
	return Body{kind: KindText, text: text}
}

// ParseBody returns a JSON body when data is valid JSON and a text body otherwise
func ParseBody(data []byte) Body {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return JSONBody(json.RawMessage(trimmed))
	}
	return TextBody(string(data))
}

func (b Body) Kind() BodyKind {
	return b.kind
}

func (b Body) JSON() (json.RawMessage, bool) {
	return b.json, b.kind == KindJSON
}

func (b Body) Text() (string, bool) {
	return b.text, b.kind == KindText
}

// Object decodes a JSON object body. Arrays, scalars and text bodies report false.
func (b Body) Object() (map[string]any, bool) {
	if b.kind != KindJSON {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal(b.json, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// Bytes is the body as it should be written back to a client
func (b Body) Bytes() []byte {
	if b.kind == KindJSON {
		return b.json
	}
	return []byte(b.text)
}

func (b Body) ContentType() string {
	if b.kind == KindJSON {
		return "application/json; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// Result is the normalized envelope returned by every backend call
type Result struct {
	Status int
	Body   Body
}

// OK reports a 2xx status
func (r Result) OK() bool {
	return r.Status >= 200 && r.Status < 300
}
