package models

// FileSummaryModel caches the last AI-generated summary of one file in one
// repository. BlobSHA is the content fingerprint used to decide whether a
// path needs re-summarization.
type FileSummaryModel struct {
	Base
	RepoID        string `json:"repo_id" gorm:"index:idx_file_summary,unique;not null"`
	Path          string `json:"path"    gorm:"index:idx_file_summary,unique;size:500;not null"`
	Summary       string `json:"summary" gorm:"type:text;not null"`
	BlobSHA       string `json:"blob_sha"        gorm:"index"`
	LastCommitSHA string `json:"last_commit_sha" gorm:"index"`
}

func (FileSummaryModel) TableName() string { return "file_summaries" }
