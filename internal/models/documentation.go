package models

// DocumentationModel caches per-commit generated documentation, one row per
// (user, repo, commit, style, complexity).
type DocumentationModel struct {
	Base
	UserID       string `json:"user_id"        gorm:"index:idx_docs_cache,unique;not null"`
	RepoFullName string `json:"repo_full_name" gorm:"index:idx_docs_cache,unique;size:200;not null"`
	CommitSHA    string `json:"commit_sha"     gorm:"index:idx_docs_cache,unique;size:64;not null"`
	Style        string `json:"style"          gorm:"index:idx_docs_cache,unique;size:32;not null"`
	Complexity   int    `json:"complexity"     gorm:"index:idx_docs_cache,unique;not null;default:-1"`
	Content      string `json:"content"        gorm:"type:longtext;not null"`
}

func (DocumentationModel) TableName() string { return "documentations" }
