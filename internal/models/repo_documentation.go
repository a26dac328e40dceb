package models

// RepoDocumentationModel is the repository-level generated documentation
// artifact, one row per (repo, style, complexity) cache key. Content is
// replaced in place on every regeneration.
type RepoDocumentationModel struct {
	Base
	RepoID     string `json:"repo_id"    gorm:"index:idx_repo_docs,unique;not null"`
	Style      string `json:"style"      gorm:"index:idx_repo_docs,unique;size:32;not null;default:'plainText'"`
	Complexity int    `json:"complexity" gorm:"index:idx_repo_docs,unique;not null;default:-1"`
	Content    string `json:"content"    gorm:"type:longtext;not null"`
}

func (RepoDocumentationModel) TableName() string { return "repo_documentations" }
