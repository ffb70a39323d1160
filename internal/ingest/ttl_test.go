package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bmeyer99/docaiche/internal/model"
)

func TestComputeTTLDays_ClampsToBounds(t *testing.T) {
	days := ComputeTTLDays(Inputs{
		Technology: "html", // 1.4
		DocType:    model.DocumentTypeReference, // 1.4
		Content:    "stable production recommended comprehensive detailed",
		Version:    "latest",
		Quality:    0.95,
	}, 30, 1, 90)
	assert.Equal(t, 90, days)
}

func TestComputeTTLDays_DeprecatedShrinksTTL(t *testing.T) {
	stable := ComputeTTLDays(Inputs{Technology: "react", DocType: model.DocumentTypeGuide, Content: "stable", Version: "", Quality: 0.7}, 30, 1, 90)
	deprecated := ComputeTTLDays(Inputs{Technology: "react", DocType: model.DocumentTypeGuide, Content: "deprecated", Version: "", Quality: 0.7}, 30, 1, 90)
	assert.Less(t, deprecated, stable)
}

func TestComputeTTLDays_NeverBelowMin(t *testing.T) {
	days := ComputeTTLDays(Inputs{
		Technology: "next.js",
		DocType:    model.DocumentTypeNews,
		Content:    "deprecated legacy alpha beta",
		Version:    "0.1.0-alpha",
		Quality:    0.1,
	}, 30, 5, 90)
	assert.Equal(t, 5, days)
}

func TestClassify_DetectsChangelog(t *testing.T) {
	assert.Equal(t, model.DocumentTypeChangelog, Classify("v2.0 Release Notes", "breaking change: removed foo"))
}

func TestClassify_DefaultsToGuide(t *testing.T) {
	assert.Equal(t, model.DocumentTypeGuide, Classify("Random title", "unrelated content"))
}
