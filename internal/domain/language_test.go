package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinLanguages(t *testing.T) {
	reg := BuiltinLanguages()
	assert.Equal(t, []string{"cpp", "java", "javascript", "python", "sql"}, reg.Names())

	py, ok := reg.Lookup("python")
	require.True(t, ok)
	assert.Empty(t, py.CompileCmd)
	assert.False(t, py.IsCompiled)
	assert.Equal(t, "main.py", py.SourceFile)

	cpp, ok := reg.Lookup("cpp")
	require.True(t, ok)
	assert.NotEmpty(t, cpp.CompileCmd)
	assert.True(t, cpp.IsCompiled)

	_, ok = reg.Lookup("brainfuck")
	assert.False(t, ok)
}

func TestLoadLanguages_EmptyPath(t *testing.T) {
	reg, err := LoadLanguages("")
	require.NoError(t, err)
	assert.Len(t, reg, 5)
}

func TestLoadLanguages_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "languages.yaml")
	data := `
python:
  source_file: prog.py
  run_cmd: /usr/local/bin/pypy3 prog.py
rust:
  source_file: main.rs
  compile_cmd: /usr/bin/rustc main.rs
  run_cmd: ./main
  is_compiled: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	reg, err := LoadLanguages(path)
	require.NoError(t, err)

	py, _ := reg.Lookup("python")
	assert.Equal(t, "prog.py", py.SourceFile)
	assert.Equal(t, "/usr/local/bin/pypy3 prog.py", py.RunCmd)
	// name is filled from the map key when omitted
	assert.Equal(t, "python", py.Name)

	rs, ok := reg.Lookup("rust")
	require.True(t, ok)
	assert.True(t, rs.IsCompiled)
	// builtins not named in the file survive
	_, ok = reg.Lookup("java")
	assert.True(t, ok)
}

func TestLoadLanguages_Errors(t *testing.T) {
	_, err := LoadLanguages(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("::not yaml::"), 0o600))
	_, err = LoadLanguages(bad)
	assert.Error(t, err)
}
