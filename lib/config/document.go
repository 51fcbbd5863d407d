// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warble-foundation/warble/lib/atomicfile"
)

// defaultIndent matches the four-space layout of the shipped node.yaml.
// It is used when a document has no nested mapping to measure.
const defaultIndent = 4

// Document is a configuration file held as a YAML node tree. Every
// mapping keeps its key order, and every node keeps its head, line and
// foot comments, so re-encoding reproduces the file apart from the
// values that were changed.
//
// Indentation is measured at parse time and reused on output. Blank
// lines are not part of the yaml.v3 node tree and do not survive a
// round trip.
//
// A Document is not safe for concurrent use.
type Document struct {
	root   *yaml.Node
	indent int
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrConfigRead, err)
	}

	document, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return document, nil
}

// Parse builds a Document from YAML text. The top level must be a
// mapping. An empty input yields an empty mapping.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}

	if root.Kind == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode}
	}
	if root.Kind != yaml.DocumentNode {
		return nil, fmt.Errorf("%w: unexpected root node kind %d", ErrConfigParse, root.Kind)
	}
	if len(root.Content) == 0 {
		root.Content = append(root.Content, newMapping())
	}
	if top := root.Content[0]; top.Kind != yaml.MappingNode {
		if !isNull(top) {
			return nil, fmt.Errorf("%w: top level must be a mapping (line %d)", ErrConfigParse, top.Line)
		}
		convertToMapping(top)
	}

	indent := measureIndent(root.Content[0])
	if indent == 0 {
		indent = defaultIndent
	}
	return &Document{root: &root, indent: indent}, nil
}

// measureIndent returns the column step between the first mapping key
// that holds a nested mapping and that mapping's first key, or 0 when
// the tree has no such pair. yaml.v3 accepts indents of 2 to 9.
func measureIndent(node *yaml.Node) int {
	if node.Kind != yaml.MappingNode {
		return 0
	}
	for index := 0; index+1 < len(node.Content); index += 2 {
		key, value := node.Content[index], node.Content[index+1]
		if value.Kind != yaml.MappingNode || len(value.Content) == 0 {
			continue
		}
		if step := value.Content[0].Column - key.Column; step >= 2 && step <= 9 {
			return step
		}
		if nested := measureIndent(value); nested != 0 {
			return nested
		}
	}
	return 0
}

// Save atomically writes document to path. An existing file keeps its
// permission bits; a new file is created 0644.
func Save(document *Document, path string) error {
	data, err := document.Bytes()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigWrite, err)
	}

	lock, err := atomicfile.Acquire(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigWrite, err)
	}
	defer lock.Release()

	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := atomicfile.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigWrite, err)
	}
	return nil
}

// Bytes renders the document as YAML.
func (d *Document) Bytes() ([]byte, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(d.indent)
	if err := encoder.Encode(d.root); err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	return buffer.Bytes(), nil
}

// Decode decodes the whole document into v, which is typically a
// *NodeConfig or a *map[string]any.
func (d *Document) Decode(v any) error {
	return d.top().Decode(v)
}

// Get returns the decoded value at keyPath. The second result is false
// when any segment of the path is missing.
func (d *Document) Get(keyPath string) (any, bool) {
	node := d.lookup(keyPath)
	if node == nil {
		return nil, false
	}
	var value any
	if err := node.Decode(&value); err != nil {
		return nil, false
	}
	return value, true
}

// Has reports whether keyPath is present.
func (d *Document) Has(keyPath string) bool {
	return d.lookup(keyPath) != nil
}

// GetString returns the scalar at keyPath as text, or fallback when it
// is missing, null, or not a scalar.
func (d *Document) GetString(keyPath, fallback string) string {
	node := d.lookup(keyPath)
	if node == nil || node.Kind != yaml.ScalarNode || isNull(node) {
		return fallback
	}
	return node.Value
}

// GetFloat returns the number at keyPath, or fallback when it is
// missing or not numeric.
func (d *Document) GetFloat(keyPath string, fallback float64) float64 {
	node := d.lookup(keyPath)
	if node == nil || node.Kind != yaml.ScalarNode || isNull(node) {
		return fallback
	}
	value, err := strconv.ParseFloat(node.Value, 64)
	if err != nil {
		return fallback
	}
	return value
}

// GetInt returns the integer at keyPath, or fallback when it is missing
// or not an integer.
func (d *Document) GetInt(keyPath string, fallback int) int {
	node := d.lookup(keyPath)
	if node == nil || node.Kind != yaml.ScalarNode || isNull(node) {
		return fallback
	}
	var value int
	if err := node.Decode(&value); err != nil {
		return fallback
	}
	return value
}

// GetDuration returns the duration at keyPath. Both Go duration strings
// ("5s", "1500ms") and plain numbers of seconds are accepted. Missing
// or unparseable values yield fallback.
func (d *Document) GetDuration(keyPath string, fallback time.Duration) time.Duration {
	node := d.lookup(keyPath)
	if node == nil || node.Kind != yaml.ScalarNode || isNull(node) {
		return fallback
	}
	if duration, ok := parseDuration(node.Value); ok {
		return duration
	}
	return fallback
}

// parseDuration accepts a Go duration string or a number of seconds.
func parseDuration(text string) (time.Duration, bool) {
	if duration, err := time.ParseDuration(text); err == nil {
		return duration, true
	}
	if seconds, err := strconv.ParseFloat(text, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), true
	}
	return 0, false
}

// Set stores value at keyPath, creating intermediate mappings as
// needed. When the key already exists its value node is replaced in
// place: comments attached to the key and the value are kept, and a
// scalar keeps its quoting style when the new value has the same type.
// Set fails if the path runs through an existing non-mapping value.
func (d *Document) Set(keyPath string, value any) error {
	segments, err := splitKeyPath(keyPath)
	if err != nil {
		return err
	}

	var replacement yaml.Node
	if err := replacement.Encode(value); err != nil {
		return fmt.Errorf("encoding value for %s: %w", keyPath, err)
	}

	mapping := d.top()
	for index, segment := range segments[:len(segments)-1] {
		child := mappingValue(mapping, segment)
		if child == nil {
			child = newMapping()
			mapping.Content = append(mapping.Content, newKey(segment), child)
		}
		child = resolveAlias(child)
		if child.Kind != yaml.MappingNode {
			if !isNull(child) {
				return fmt.Errorf("cannot set %s: %s is not a mapping",
					keyPath, strings.Join(segments[:index+1], "."))
			}
			convertToMapping(child)
		}
		mapping = child
	}

	last := segments[len(segments)-1]
	existing := mappingValue(mapping, last)
	if existing == nil {
		mapping.Content = append(mapping.Content, newKey(last), &replacement)
		return nil
	}
	replaceKeepingComments(existing, &replacement)
	return nil
}

// Delete removes keyPath and reports whether it was present.
func (d *Document) Delete(keyPath string) bool {
	segments, err := splitKeyPath(keyPath)
	if err != nil {
		return false
	}
	mapping := d.top()
	if len(segments) > 1 {
		mapping = d.lookup(strings.Join(segments[:len(segments)-1], "."))
		if mapping == nil || mapping.Kind != yaml.MappingNode {
			return false
		}
	}
	last := segments[len(segments)-1]
	for index := 0; index+1 < len(mapping.Content); index += 2 {
		if mapping.Content[index].Value == last {
			mapping.Content = append(mapping.Content[:index], mapping.Content[index+2:]...)
			return true
		}
	}
	return false
}

// top returns the top-level mapping node.
func (d *Document) top() *yaml.Node {
	return d.root.Content[0]
}

// lookup walks keyPath and returns the value node, or nil.
func (d *Document) lookup(keyPath string) *yaml.Node {
	segments, err := splitKeyPath(keyPath)
	if err != nil {
		return nil
	}
	node := d.top()
	for _, segment := range segments {
		if node.Kind != yaml.MappingNode {
			return nil
		}
		node = mappingValue(node, segment)
		if node == nil {
			return nil
		}
		node = resolveAlias(node)
	}
	return node
}

func splitKeyPath(keyPath string) ([]string, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("empty key path")
	}
	segments := strings.Split(keyPath, ".")
	for _, segment := range segments {
		if segment == "" {
			return nil, fmt.Errorf("key path %q has an empty segment", keyPath)
		}
	}
	return segments, nil
}

// mappingValue returns the value node for key in mapping, or nil.
func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for index := 0; index+1 < len(mapping.Content); index += 2 {
		if mapping.Content[index].Value == key {
			return mapping.Content[index+1]
		}
	}
	return nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func replaceKeepingComments(existing, replacement *yaml.Node) {
	headComment := existing.HeadComment
	lineComment := existing.LineComment
	footComment := existing.FootComment
	style := existing.Style
	// Keep the original quoting only where the encoder had no reason
	// to quote: a plain string that looks like a number must stay
	// quoted.
	keepStyle := existing.Kind == yaml.ScalarNode &&
		replacement.Kind == yaml.ScalarNode &&
		existing.Tag == replacement.Tag &&
		replacement.Style == 0

	*existing = *replacement
	existing.HeadComment = headComment
	existing.LineComment = lineComment
	existing.FootComment = footComment
	if keepStyle {
		existing.Style = style
	}
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

// convertToMapping turns an empty ("key:") value into a mapping in
// place, keeping its comments.
func convertToMapping(node *yaml.Node) {
	node.Kind = yaml.MappingNode
	node.Tag = "!!map"
	node.Value = ""
	node.Style = 0
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func newKey(name string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
}
