package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const porchRules = `package rules

source: lights: {
	label: "Lights"
	vars: on: false
}

source: motion: {
	label: "Motion"
	vars: {}
}

watch: porch: conditions: [
	{id: "lit", source: "lights", kind: "flag", params: var: "on"},
	{id: "moving", source: "motion", kind: "present", params: var: "zone"},
]
`

// writeRules creates a rules directory holding one rules.cue file.
func writeRules(t *testing.T, content string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "rules")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.cue"), []byte(content), 0o644))
	return dir
}
