package domain

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Language is a preset describing how to materialise and run a submission
// inside the box. Commands are shell-level strings; the executor hands them
// to /usr/bin/sh -c verbatim. An empty CompileCmd means no compile phase.
type Language struct {
	Name       string `json:"name" yaml:"name"`
	SourceFile string `json:"source_file" yaml:"source_file"`
	CompileCmd string `json:"compile_cmd,omitempty" yaml:"compile_cmd,omitempty"`
	RunCmd     string `json:"run_cmd" yaml:"run_cmd"`
	IsCompiled bool   `json:"is_compiled" yaml:"is_compiled"`
}

// Registry maps a submission language name to its preset.
type Registry map[string]Language

// BuiltinLanguages returns the fixed preset table.
func BuiltinLanguages() Registry {
	return Registry{
		"python": {
			Name:       "python",
			SourceFile: "main.py",
			RunCmd:     "/usr/bin/python3 main.py",
		},
		"cpp": {
			Name:       "cpp",
			SourceFile: "main.cpp",
			CompileCmd: "/usr/bin/g++ main.cpp -o main",
			RunCmd:     "./main",
			IsCompiled: true,
		},
		"javascript": {
			Name:       "javascript",
			SourceFile: "main.js",
			RunCmd:     "/usr/bin/node main.js",
		},
		"java": {
			Name:       "java",
			SourceFile: "Main.java",
			CompileCmd: "/usr/bin/javac Main.java",
			RunCmd:     "/usr/bin/java Main",
			IsCompiled: true,
		},
		"sql": {
			Name:       "sql",
			SourceFile: "main.sql",
			RunCmd:     "/usr/bin/sqlite3 -batch -init main.sql :memory: .quit",
		},
	}
}

// LoadLanguages returns the builtin table, optionally merged with presets
// from a YAML file (a mapping of name to preset). File entries override
// builtins of the same name.
func LoadLanguages(path string) (Registry, error) {
	reg := BuiltinLanguages()
	if path == "" {
		return reg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("op=domain.LoadLanguages: %w", err)
	}
	var overrides map[string]Language
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("op=domain.LoadLanguages: %w", err)
	}
	for name, lang := range overrides {
		if lang.Name == "" {
			lang.Name = name
		}
		reg[name] = lang
	}
	return reg, nil
}

// Lookup resolves a language by name.
func (r Registry) Lookup(name string) (Language, bool) {
	l, ok := r[name]
	return l, ok
}

// Names returns the registered language names, sorted for stable output.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
