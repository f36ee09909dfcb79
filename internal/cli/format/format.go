// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package format renders scenario sources for the terminal.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"
)

// MaxSourceSize bounds the input accepted by the renderers.
const MaxSourceSize = 2 * 1024 * 1024

// ansiEscapeRegex matches ANSI escape sequences.
var ansiEscapeRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape sequences. Scenario files are user
// content and must not drive the terminal directly.
func StripANSI(s string) string {
	return ansiEscapeRegex.ReplaceAllString(s, "")
}

func checkSize(content, kind string) error {
	if len(content) > MaxSourceSize {
		return fmt.Errorf("%s is %d bytes, larger than the %d byte limit", kind, len(content), MaxSourceSize)
	}
	return nil
}

// Markdown renders a scenario description. Without color the sanitized
// text is returned unchanged, as it is if glamour fails.
func Markdown(content string, color bool) (string, error) {
	if err := checkSize(content, "description"); err != nil {
		return "", err
	}
	content = StripANSI(content)
	if !color {
		return content, nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return content, nil
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content, nil
	}
	return rendered, nil
}

// Source highlights a file in language ("yaml", "json", ...). Unknown
// languages and colorless output return the sanitized source.
func Source(content, language string, color bool) (string, error) {
	if err := checkSize(content, "source"); err != nil {
		return "", err
	}
	content = StripANSI(content)
	if !color || language == "" {
		return content, nil
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, content, strings.ToLower(language), "terminal256", "monokai"); err != nil {
		return content, nil
	}
	return buf.String(), nil
}

// Value pretty-prints a step value as indented JSON. Strings are
// returned as they are.
func Value(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format value: %w", err)
	}
	return string(data), nil
}
