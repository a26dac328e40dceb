package repodocs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldSkipPath(t *testing.T) {
	skipped := []string{
		".git/config",
		".github/workflows/ci.yml",
		"node_modules/react/index.js",
		"packages/app/node_modules/x.js",
		"dist/bundle.js",
		"build/output.txt",
		"coverage/lcov.info",
		".venv/lib/python3.11/site.py",
		"__pycache__/mod.pyc",
		"assets/logo.PNG",
		"docs/diagram.svg",
		"release.tar",
		"release.gz",
		"bin/tool.exe",
		"lib/native.so",
		"Cargo.lock",
		"package-lock.json",
		"web/yarn.lock",
		"pnpm-lock.yaml",
		"poetry.lock",
		"static/app.min.js",
		"static/styles.min.css",
	}
	for _, p := range skipped {
		assert.True(t, shouldSkipPath(p), "expected %q to be skipped", p)
	}

	kept := []string{
		"main.go",
		"src/app.py",
		"README.md",
		"cmd/server/main.go",
		"config.yml",
		"Makefile",
		"distribution/notes.md",
		"builder/setup.go",
	}
	for _, p := range kept {
		assert.False(t, shouldSkipPath(p), "expected %q to be kept", p)
	}
}
