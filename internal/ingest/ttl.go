package ingest

import (
	"strings"

	"github.com/bmeyer99/docaiche/internal/model"
)

// techMultipliers scores how quickly a technology's documentation tends to
// go stale: fast-moving frameworks age faster than stable standards, so
// their cached TTL shrinks accordingly.
var techMultipliers = map[string]float64{
	"react":      0.8,
	"vue":        0.8,
	"angular":    0.8,
	"next.js":    0.75,
	"svelte":     0.8,
	"node":       0.9,
	"python":     1.1,
	"go":         1.1,
	"rust":       1.1,
	"html":       1.4,
	"css":        1.3,
	"http":       1.5,
	"sql":        1.4,
	"posix":      1.5,
	"javascript": 1.0,
	"typescript": 0.9,
}

const defaultTechMultiplier = 1.0

func techMultiplier(technology string) float64 {
	if m, ok := techMultipliers[strings.ToLower(technology)]; ok {
		return m
	}
	return defaultTechMultiplier
}

// typeMultipliers rank document types by how slowly their content changes:
// reference/api material outlives tutorials, which outlive blog/news posts.
var typeMultipliers = map[model.DocumentType]float64{
	model.DocumentTypeReference:      1.4,
	model.DocumentTypeAPI:            1.3,
	model.DocumentTypeChangelog:      1.2,
	model.DocumentTypeGuide:          1.1,
	model.DocumentTypeGettingStarted: 1.0,
	model.DocumentTypeInstallation:   1.0,
	model.DocumentTypeTutorial:       0.9,
	model.DocumentTypeBlog:           0.6,
	model.DocumentTypeNews:           0.4,
}

func typeMultiplier(t model.DocumentType) float64 {
	if m, ok := typeMultipliers[t]; ok {
		return m
	}
	return 1.0
}

var (
	deprecatedMarkers   = []string{"deprecated", "legacy"}
	stableMarkers       = []string{"stable", "production", "recommended"}
	previewMarkers      = []string{"alpha", "beta", "preview"}
	comprehensiveMarkers = []string{"comprehensive", "detailed"}
)

// contentMultiplier inspects the lowercased content for the marker sets
// named in the ingestion spec, applying the first matching bucket; markers
// are checked in the documented priority order (deprecated/legacy first,
// since a "comprehensive but deprecated" doc should still shrink).
func contentMultiplier(content string) float64 {
	lower := strings.ToLower(content)
	if containsAny(lower, deprecatedMarkers) {
		return 0.5
	}
	if containsAny(lower, stableMarkers) {
		return 1.5
	}
	if containsAny(lower, previewMarkers) {
		return 0.7
	}
	if containsAny(lower, comprehensiveMarkers) {
		return 1.2
	}
	return 1.0
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// versionMultiplier rewards documents tagged against the latest/stable
// release or a mature major version, and shrinks pre-release documents.
func versionMultiplier(version string) float64 {
	lower := strings.ToLower(version)
	switch {
	case containsAny(lower, []string{"latest", "stable"}):
		return 1.3
	case containsAny(lower, []string{"alpha", "beta", "rc"}):
		return 0.6
	}
	if major := leadingMajor(version); major >= 3 {
		return 1.2
	}
	return 1.0
}

func leadingMajor(version string) int {
	major := 0
	for _, r := range version {
		if r < '0' || r > '9' {
			break
		}
		major = major*10 + int(r-'0')
	}
	return major
}

// qualityMultiplier rewards high-confidence documents and shrinks
// low-confidence ones, leaving the broad middle unchanged.
func qualityMultiplier(quality float64) float64 {
	switch {
	case quality > 0.9:
		return 1.2
	case quality < 0.5:
		return 0.7
	default:
		return 1.0
	}
}

// Inputs bundles the signals the TTL formula combines.
type Inputs struct {
	Technology string
	DocType    model.DocumentType
	Content    string
	Version    string
	Quality    float64
}

// ComputeTTLDays applies the documented formula —
// base x tech x type x content x version x quality, clamped to
// [minDays, maxDays] — and always returns an integer within bounds.
func ComputeTTLDays(in Inputs, baseDays, minDays, maxDays int) int {
	multiplier := techMultiplier(in.Technology) *
		typeMultiplier(in.DocType) *
		contentMultiplier(in.Content) *
		versionMultiplier(in.Version) *
		qualityMultiplier(in.Quality)

	days := int(float64(baseDays)*multiplier + 0.5)
	if days < minDays {
		return minDays
	}
	if days > maxDays {
		return maxDays
	}
	return days
}
