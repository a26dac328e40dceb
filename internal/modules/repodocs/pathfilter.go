package repodocs

import (
	"path"
	"strings"
)

var skipDirs = map[string]struct{}{
	".git":         {},
	".github":      {},
	"node_modules": {},
	"dist":         {},
	"build":        {},
	"out":          {},
	"coverage":     {},
	".venv":        {},
	"venv":         {},
	"__pycache__":  {},
}

var skipExtensions = map[string]struct{}{
	".png":   {},
	".jpg":   {},
	".jpeg":  {},
	".gif":   {},
	".bmp":   {},
	".svg":   {},
	".ico":   {},
	".pdf":   {},
	".zip":   {},
	".tar":   {},
	".gz":    {},
	".rar":   {},
	".7z":    {},
	".exe":   {},
	".dll":   {},
	".so":    {},
	".dylib": {},
	".class": {},
	".jar":   {},
	".lock":  {},
}

var skipFilenames = map[string]struct{}{
	"package-lock.json": {},
	"yarn.lock":         {},
	"pnpm-lock.yaml":    {},
	"poetry.lock":       {},
	"pipfile.lock":      {},
}

// shouldSkipPath reports whether a repository path is excluded from
// summarization: version-control metadata, build output, dependency locks
// and binary/media files never reach the AI or the cache.
func shouldSkipPath(p string) bool {
	lowered := strings.ToLower(p)
	for _, part := range strings.Split(lowered, "/") {
		if _, ok := skipDirs[part]; ok {
			return true
		}
	}
	filename := path.Base(lowered)
	if _, ok := skipFilenames[filename]; ok {
		return true
	}
	if _, ok := skipExtensions[path.Ext(lowered)]; ok {
		return true
	}
	if strings.HasSuffix(filename, ".min.js") || strings.HasSuffix(filename, ".min.css") {
		return true
	}
	return false
}
