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

package format

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "red text", StripANSI("\x1b[31mred\x1b[0m text"))
	assert.Equal(t, "plain", StripANSI("plain"))
}

func TestMarkdown(t *testing.T) {
	out, err := Markdown("# Title\n\x1b[2Jbody", false)
	require.NoError(t, err)
	assert.Equal(t, "# Title\nbody", out)

	out, err = Markdown("**bold** text", true)
	require.NoError(t, err)
	assert.Contains(t, StripANSI(out), "bold")
}

func TestSource(t *testing.T) {
	src := "name: demo\nsteps: []\n"

	out, err := Source(src, "yaml", false)
	require.NoError(t, err)
	assert.Equal(t, src, out)

	out, err = Source(src, "yaml", true)
	require.NoError(t, err)
	assert.Contains(t, out, "\x1b[", "highlighted output carries escapes")
	assert.Contains(t, StripANSI(out), "steps: []")

	out, err = Source(src, "no-such-language", true)
	require.NoError(t, err)
	assert.Contains(t, StripANSI(out), "name: demo")
}

func TestSizeLimit(t *testing.T) {
	big := strings.Repeat("a", MaxSourceSize+1)

	_, err := Source(big, "yaml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")

	_, err = Markdown(big, false)
	require.Error(t, err)
}

func TestValue(t *testing.T) {
	out, err := Value("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	out, err = Value(map[string]any{"keys": []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"keys\": [\n    \"a\"\n  ]\n}", out)

	_, err = Value(make(chan int))
	require.Error(t, err)
}

func TestColorEnabled(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	assert.False(t, ColorEnabled(&bytes.Buffer{}))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, ColorEnabled(&bytes.Buffer{}))
}
