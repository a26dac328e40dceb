package models

// DocStyle is a documentation output style.
const (
	StylePlainText = "plainText"
	StyleResearch  = "research"
	StyleLatex     = "latex"
)

// ComplexityUnset is the sentinel for "no complexity hint".
const ComplexityUnset = -1

// RepositoryModel mirrors a GitHub repository owned by a user.
type RepositoryModel struct {
	Base
	Name        string `json:"name"         gorm:"index;not null"`
	FullName    string `json:"full_name"    gorm:"index"`
	URL         string `json:"url"`
	LastUpdated string `json:"last_updated"`

	// IsActive toggles commit monitoring.
	IsActive bool `json:"is_active" gorm:"default:false"`

	// Repo documentation automation settings. Style and complexity here
	// drive push-triggered rebuilds.
	DocsActive     bool   `json:"docs_active"     gorm:"default:false"`
	DocsStyle      string `json:"docs_style"      gorm:"default:'plainText'"`
	DocsComplexity int    `json:"docs_complexity" gorm:"default:-1"`

	OwnerID string `json:"-" gorm:"index;not null"`

	RepoDocs      []RepoDocumentationModel `json:"-" gorm:"foreignKey:RepoID"`
	FileSummaries []FileSummaryModel       `json:"-" gorm:"foreignKey:RepoID"`
}

func (RepositoryModel) TableName() string { return "repositories" }

// ValidStyle reports whether s is one of the supported documentation styles.
func ValidStyle(s string) bool {
	switch s {
	case StylePlainText, StyleResearch, StyleLatex:
		return true
	}
	return false
}
