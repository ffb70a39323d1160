// Package ingest implements the TTL-aware ingestion path: classifying a
// discovered external document, computing its cache lifetime, extracting
// its metadata, and handing it to the metadata store and content side
// store for later indexing by the external pipeline.
package ingest

import (
	"regexp"
	"strings"

	"github.com/bmeyer99/docaiche/internal/model"
)

// classifierRule pairs a DocumentType with the title/content substrings
// that suggest it. Rules are checked in order; the first match wins, so
// more specific markers are listed before their more general siblings.
type classifierRule struct {
	docType model.DocumentType
	titleMarkers   []string
	contentMarkers []string
}

var classifierRules = []classifierRule{
	{model.DocumentTypeChangelog, []string{"changelog", "release notes", "what's new"}, []string{"## changelog", "### v", "breaking change"}},
	{model.DocumentTypeInstallation, []string{"install", "installation", "setup"}, []string{"npm install", "pip install", "go get", "getting set up"}},
	{model.DocumentTypeGettingStarted, []string{"getting started", "quickstart", "quick start"}, []string{"first steps", "hello world"}},
	{model.DocumentTypeAPI, []string{"api reference", "api docs"}, []string{"parameters:", "returns:", "function signature"}},
	{model.DocumentTypeReference, []string{"reference"}, []string{"reference manual"}},
	{model.DocumentTypeTutorial, []string{"tutorial", "how to", "guide to"}, []string{"step 1", "step one", "in this tutorial"}},
	{model.DocumentTypeGuide, []string{"guide"}, nil},
	{model.DocumentTypeNews, []string{"announcing", "news"}, nil},
	{model.DocumentTypeBlog, []string{"blog"}, nil},
}

// Classify heuristically assigns a DocumentType from a document's title
// and content, defaulting to DocumentTypeGuide when nothing matches.
func Classify(title, content string) model.DocumentType {
	lowerTitle := strings.ToLower(title)
	lowerContent := strings.ToLower(content)

	for _, rule := range classifierRules {
		for _, marker := range rule.titleMarkers {
			if strings.Contains(lowerTitle, marker) {
				return rule.docType
			}
		}
		for _, marker := range rule.contentMarkers {
			if strings.Contains(lowerContent, marker) {
				return rule.docType
			}
		}
	}
	return model.DocumentTypeGuide
}

var (
	versionPattern = regexp.MustCompile(`(?i)\bv?(\d+\.\d+(?:\.\d+)?)\b`)
	codeBlockPattern = regexp.MustCompile("```")
	linkPattern      = regexp.MustCompile(`\[[^\]]+\]\([^)]+\)|https?://\S+`)
	headerPattern    = regexp.MustCompile(`(?m)^#{1,6}\s`)
)

// ExtractVersion returns the first semver-shaped token found in text, or
// "" if none is present.
func ExtractVersion(text string) string {
	m := versionPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractQuality derives the cheap structural signals the TTL content
// multiplier and quality multiplier consult.
func ExtractQuality(content string) model.QualityIndicators {
	words := strings.Fields(content)
	return model.QualityIndicators{
		HasCode:     codeBlockPattern.MatchString(content),
		LinkCount:   len(linkPattern.FindAllString(content, -1)),
		WordCount:   len(words),
		HeaderCount: len(headerPattern.FindAllString(content, -1)),
	}
}
