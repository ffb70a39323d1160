package decision

import (
	"fmt"
	"math"
)

// StatisticalResult is the outcome of analyzing an ABTest's accumulated
// variant metrics: p-value, effect size, achieved power, the sample size
// that would be required to detect the observed effect reliably, and a
// plain-language recommendation.
type StatisticalResult struct {
	TestID             string
	ControlVariantID   string
	TreatmentVariantID string
	PValue             float64
	CohensD            float64
	AchievedPower      float64
	RequiredSampleSize int
	WinnerVariantID    string
	Recommendation     string
}

// significanceLevel is the two-sided alpha used throughout analysis.
const significanceLevel = 0.05

// Analyze compares the test's control against its first non-control
// variant (in Variants order) using the declared success metric; any
// further variants are not analyzed. It runs a two-proportion z-test when
// the metric is "error_rate" (a boolean outcome) and Welch's t-test
// otherwise (a continuous outcome: quality, latency, or satisfaction). A
// winner is declared only when p < 0.05 AND both compared variants have
// reached the minimum per-variant sample size.
func (t *ABTest) Analyze() (*StatisticalResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	control, treatment, err := t.controlAndChallenger()
	if err != nil {
		return nil, err
	}

	var result StatisticalResult
	if t.SuccessMetricKey == "error_rate" {
		result = twoProportionTest(control, treatment)
	} else {
		result = welchTTest(control, treatment, t.SuccessMetricKey)
	}
	result.TestID = t.ID
	result.ControlVariantID = control.ID
	result.TreatmentVariantID = treatment.ID

	minReached := control.SampleSize >= t.MinimumSampleSize && treatment.SampleSize >= t.MinimumSampleSize
	switch {
	case result.PValue < significanceLevel && minReached:
		if treatmentIsBetter(t.SuccessMetricKey, control, treatment) {
			result.WinnerVariantID = treatment.ID
			result.Recommendation = fmt.Sprintf("promote variant %s: statistically significant improvement over control", treatment.ID)
		} else {
			result.WinnerVariantID = control.ID
			result.Recommendation = fmt.Sprintf("keep control %s: challenger performed significantly worse", control.ID)
		}
	case !minReached:
		result.Recommendation = fmt.Sprintf("continue collecting data: need %d samples per variant, required sample size estimated at %d", t.MinimumSampleSize, result.RequiredSampleSize)
	default:
		result.Recommendation = "no significant difference detected; continue or conclude as inconclusive"
	}

	return &result, nil
}

func (t *ABTest) controlAndChallenger() (TestVariant, TestVariant, error) {
	var control *TestVariant
	var challenger *TestVariant
	for i := range t.Variants {
		v := &t.Variants[i]
		if v.IsControl {
			control = v
		} else if challenger == nil {
			challenger = v
		}
	}
	if control == nil || challenger == nil {
		return TestVariant{}, TestVariant{}, fmt.Errorf("ab test %s: analysis requires a control and at least one challenger variant", t.ID)
	}
	return *control, *challenger, nil
}

func treatmentIsBetter(metricKey string, control, treatment TestVariant) bool {
	if metricKey == "error_rate" {
		return treatment.Metrics.ErrorRate() < control.Metrics.ErrorRate()
	}
	return treatment.Metrics.Mean(metricKey) > control.Metrics.Mean(metricKey)
}

// twoProportionTest runs a two-sided two-proportion z-test on the
// variants' error rates and derives Cohen's h as the effect size.
func twoProportionTest(control, treatment TestVariant) StatisticalResult {
	n1, n2 := float64(control.Metrics.Observations), float64(treatment.Metrics.Observations)
	if n1 == 0 || n2 == 0 {
		return StatisticalResult{PValue: 1, RequiredSampleSize: minSamplePerArm}
	}

	p1, p2 := control.Metrics.ErrorRate(), treatment.Metrics.ErrorRate()
	pooled := (control.Metrics.ErrorRate()*n1 + treatment.Metrics.ErrorRate()*n2) / (n1 + n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))

	var z float64
	if se > 0 {
		z = (p1 - p2) / se
	}
	pValue := twoSidedPValue(z)

	effect := cohensH(p1, p2)
	power := achievedPower(effect, n1, n2)
	required := requiredSampleSize(effect)

	return StatisticalResult{
		PValue:             pValue,
		CohensD:            effect,
		AchievedPower:      power,
		RequiredSampleSize: required,
	}
}

// welchTTest runs Welch's t-test (unequal variance) on the metric named by
// metricKey, approximating the t-distribution's tail with the normal
// distribution at every sample size.
func welchTTest(control, treatment TestVariant, metricKey string) StatisticalResult {
	n1, n2 := float64(control.Metrics.Observations), float64(treatment.Metrics.Observations)
	if n1 < 2 || n2 < 2 {
		return StatisticalResult{PValue: 1, RequiredSampleSize: minSamplePerArm}
	}

	mean1, mean2 := control.Metrics.Mean(metricKey), treatment.Metrics.Mean(metricKey)
	var1, var2 := control.Metrics.Variance(), treatment.Metrics.Variance()

	se := math.Sqrt(var1/n1 + var2/n2)
	var t float64
	if se > 0 {
		t = (mean1 - mean2) / se
	}
	pValue := twoSidedPValue(t)

	pooledSD := math.Sqrt(((n1-1)*var1 + (n2-1)*var2) / (n1 + n2 - 2))
	var effect float64
	if pooledSD > 0 {
		effect = (mean1 - mean2) / pooledSD
	}
	power := achievedPower(effect, n1, n2)
	required := requiredSampleSize(effect)

	return StatisticalResult{
		PValue:             pValue,
		CohensD:            effect,
		AchievedPower:      power,
		RequiredSampleSize: required,
	}
}

// cohensH is the arcsine effect size for two proportions.
func cohensH(p1, p2 float64) float64 {
	phi1 := 2 * math.Asin(math.Sqrt(math.Max(0, math.Min(1, p1))))
	phi2 := 2 * math.Asin(math.Sqrt(math.Max(0, math.Min(1, p2))))
	return phi1 - phi2
}

// minSamplePerArm is the floor used when there isn't yet enough data to
// compute a meaningful required-sample-size estimate.
const minSamplePerArm = 30

// zAlpha and zBeta are the standard normal critical values for alpha=0.05
// (two-sided) and power=0.8, the study design this service targets.
const (
	zAlpha = 1.959963985
	zBeta  = 0.841621234
)

// requiredSampleSize estimates the per-arm sample size needed to detect
// effect at 80% power and alpha=0.05, using the standard two-sample normal
// approximation. A near-zero effect size is floored to avoid reporting an
// unbounded requirement.
func requiredSampleSize(effect float64) int {
	abs := math.Abs(effect)
	if abs < 0.01 {
		abs = 0.01
	}
	n := 2 * math.Pow(zAlpha+zBeta, 2) / (abs * abs)
	if n < minSamplePerArm {
		return minSamplePerArm
	}
	return int(math.Ceil(n))
}

// achievedPower computes the post-hoc power of the test actually run,
// given its observed effect size and per-arm sample sizes.
func achievedPower(effect float64, n1, n2 float64) float64 {
	if n1 == 0 || n2 == 0 {
		return 0
	}
	nHarmonic := 2 / (1/n1 + 1/n2)
	ncp := math.Abs(effect) * math.Sqrt(nHarmonic/2)
	z := ncp - zAlpha
	return standardNormalCDF(z)
}

// twoSidedPValue converts a z/t statistic into a two-sided p-value using
// the standard normal approximation.
func twoSidedPValue(stat float64) float64 {
	return 2 * (1 - standardNormalCDF(math.Abs(stat)))
}

// standardNormalCDF is Φ(z), computed from the error function.
func standardNormalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}
