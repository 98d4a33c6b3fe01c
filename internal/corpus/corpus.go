// Package corpus reads the dialogue documents raters step through. The
// source is line-delimited JSON: one document per line, carrying the prior
// sessions, the current session and one candidate response per model.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineBytes bounds a single corpus line.
const maxLineBytes = 16 << 20

// Role identifies who spoke a turn.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Speaker returns the role for the turn at position i. Sessions always
// alternate starting with the human.
func Speaker(i int) Role {
	if i%2 == 0 {
		return RoleHuman
	}
	return RoleAssistant
}

// Turn is one utterance within a session.
type Turn struct {
	Utterance string `json:"utterance"`
}

// Session is an ordered list of turns.
type Session []Turn

// Document is one corpus line.
type Document struct {
	Index     int
	History   []Session
	Current   Session
	Responses map[string]string
}

// Response returns the candidate response for a model.
func (d Document) Response(model string) string {
	return d.Responses[model]
}

type rawDocument struct {
	History []Session `json:"History"`
	Current Session   `json:"Current"`
}

// Load reads the corpus file at path. Every line must carry a response for
// each configured model.
func Load(path string, models []string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: open %s: %w", path, err)
	}
	defer f.Close()
	docs, err := Read(f, models)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return docs, nil
}

// Read parses line-delimited documents from r. Blank lines are skipped.
func Read(r io.Reader, models []string) ([]Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var docs []Document
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		doc, err := parseLine(line, models)
		if err != nil {
			return nil, fmt.Errorf("corpus: line %d: %w", lineNo, err)
		}
		doc.Index = len(docs)
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("corpus: scan: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("corpus: no documents")
	}
	return docs, nil
}

func parseLine(line []byte, models []string) (Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(line, &raw); err != nil {
		return Document{}, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return Document{}, err
	}
	responses := make(map[string]string, len(models))
	for _, model := range models {
		value, ok := fields[model]
		if !ok {
			return Document{}, fmt.Errorf("missing response for model %q", model)
		}
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			return Document{}, fmt.Errorf("response for model %q must be a string", model)
		}
		responses[model] = strings.TrimSpace(text)
	}
	return Document{
		History:   raw.History,
		Current:   raw.Current,
		Responses: responses,
	}, nil
}
