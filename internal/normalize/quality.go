package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/avramidis/tradewinds/internal/domain"
)

var (
	outturnPattern     = regexp.MustCompile(`OUTTURN\s*[:\-]?\s*(\d+\.?\d*)\s*(?:LBS|#)?`)
	nutCountPattern    = regexp.MustCompile(`(\d+)\s*(?:NUTS?|NUT)\s*/?\s*KG`)
	kernelGradePattern = regexp.MustCompile(`(W\s?180|W\s?210|W\s?240|W\s?320|W\s?450|WW\d+|SW\d+|LWP|SWP|BB|SS)`)
	purityPattern      = regexp.MustCompile(`(\d{2}\.?\d*)\s*%\s*(?:PURITY|PURE)`)
	brokenPattern      = regexp.MustCompile(`(\d+)\s*%?\s*(?:BROKEN|BRKN|PCT)`)
	proteinPattern     = regexp.MustCompile(`(\d+\.?\d*)\s*%?\s*PROTEIN`)
	moisturePattern    = regexp.MustCompile(`(\d+\.?\d*)\s*%?\s*MOISTURE`)
)

// qualityParser turns an upper-cased product description into a quality
// estimate for one commodity family.
type qualityParser func(text string) domain.QualityEstimate

// qualityRegistry routes an hct_id to the parser that understands its
// family. First matching predicate wins.
var qualityRegistry = []struct {
	matches func(hctID string) bool
	parse   qualityParser
}{
	{hctFamily("RCN"), parseCashewRCN},
	{hctFamily("KERNEL"), parseCashewKernel},
	{hctFamily("SESAME"), parseSesame},
	{hctFamily("RICE"), parseRice},
	{hctFamily("SOYBEAN"), parseSoybean},
}

func hctFamily(fragment string) func(string) bool {
	return func(hctID string) bool { return strings.Contains(hctID, fragment) }
}

// ParseQuality extracts grade, confidence and the detection signals that
// fired from a free-text product description. The parser is selected by
// hct_id family; commodities without a dedicated parser fall back to a
// low-confidence Standard grade.
func ParseQuality(productText, hctID string) domain.QualityEstimate {
	if productText == "" {
		return domain.QualityEstimate{Grade: "Unknown", Confidence: 0, SignalsUsed: []string{}, Details: "No description"}
	}
	text := strings.TrimSpace(strings.ToUpper(productText))
	for _, entry := range qualityRegistry {
		if entry.matches(hctID) {
			return entry.parse(text)
		}
	}
	return domain.QualityEstimate{Grade: "Standard", Confidence: 0.3, SignalsUsed: []string{}}
}

// estimate assembles the result and caps confidence at 0.95.
func estimate(grade string, base, perSignal float64, signals, details []string) domain.QualityEstimate {
	confidence := base + float64(len(signals))*perSignal
	if confidence > 0.95 {
		confidence = 0.95
	}
	if signals == nil {
		signals = []string{}
	}
	return domain.QualityEstimate{
		Grade:       grade,
		Confidence:  confidence,
		SignalsUsed: signals,
		Details:     strings.Join(details, "; "),
	}
}

var cashewOriginClaims = []string{
	"IVORY COAST", "GHANA", "NIGERIA", "TANZANIA", "MOZAMBIQUE",
	"GUINEA BISSAU", "BENIN", "COTE D'IVOIRE",
}

func parseCashewRCN(text string) domain.QualityEstimate {
	var signals, details []string
	grade := "Standard"

	state := "raw_in_shell"
	switch {
	case strings.Contains(text, "KERNEL") || containsAny(text, "W180", "W240", "W320", "W450"):
		state = "kernel"
	case strings.Contains(text, "SHELLED"):
		state = "shelled"
	}
	details = append(details, "state="+state)

	// Kernel outturn in lbs per 80 kg bag is the primary RCN quality measure.
	if m := outturnPattern.FindStringSubmatch(text); m != nil {
		outturn, _ := strconv.ParseFloat(m[1], 64)
		signals = append(signals, "outturn_detected")
		details = append(details, fmt.Sprintf("outturn=%s lbs", ftoa(outturn)))
		switch {
		case outturn >= 48:
			grade = "Premium"
		case outturn >= 44:
			grade = "Grade A"
		default:
			grade = "Grade B"
		}
	}

	if m := nutCountPattern.FindStringSubmatch(text); m != nil {
		count, _ := strconv.Atoi(m[1])
		signals = append(signals, "nut_count_detected")
		details = append(details, fmt.Sprintf("nut_count=%d/kg", count))
	}

	for _, origin := range cashewOriginClaims {
		if strings.Contains(text, origin) {
			signals = append(signals, "origin_claim")
			details = append(details, "origin="+origin)
			break
		}
	}

	return estimate(grade, 0.3, 0.2, signals, details)
}

func parseCashewKernel(text string) domain.QualityEstimate {
	var signals, details []string
	grade := "Standard"

	if m := kernelGradePattern.FindStringSubmatch(text); m != nil {
		grade = strings.ReplaceAll(m[1], " ", "")
		signals = append(signals, "kernel_grade_detected")
		details = append(details, "grade="+grade)
	}

	if strings.Contains(text, "SCORCHED") {
		signals = append(signals, "processing_note")
		details = append(details, "scorched")
	}
	if strings.Contains(text, "DESSERT") {
		signals = append(signals, "processing_note")
		details = append(details, "dessert")
	}

	return estimate(grade, 0.4, 0.25, signals, details)
}

func parseSesame(text string) domain.QualityEstimate {
	var signals, details []string
	grade := "Standard"

	if m := purityPattern.FindStringSubmatch(text); m != nil {
		purity, _ := strconv.ParseFloat(m[1], 64)
		signals = append(signals, "purity_detected")
		details = append(details, fmt.Sprintf("purity=%s%%", ftoa(purity)))
		if purity >= 99.95 {
			grade = "Premium Hulled"
		} else if purity >= 99.90 {
			grade = "Hulled"
		}
	}

	// "UNHULLED" contains "HULLED", so that branch wins for unhulled seed.
	if strings.Contains(text, "HULLED") {
		signals = append(signals, "processing_state")
		details = append(details, "hulled")
		if grade == "Standard" {
			grade = "Hulled"
		}
	} else if strings.Contains(text, "NATURAL") || strings.Contains(text, "UNHULLED") {
		signals = append(signals, "processing_state")
		details = append(details, "natural/unhulled")
		grade = "Natural"
	}

	if strings.Contains(text, "AFLATOXIN") && strings.Contains(text, "FREE") {
		signals = append(signals, "quality_certification")
		details = append(details, "aflatoxin-free")
	}

	for _, color := range []string{"WHITE", "BLACK", "BROWN", "MIXED"} {
		if strings.Contains(text, color) {
			signals = append(signals, "color_detected")
			details = append(details, "color="+strings.ToLower(color))
			break
		}
	}

	return estimate(grade, 0.3, 0.2, signals, details)
}

func parseRice(text string) domain.QualityEstimate {
	var signals, details []string
	grade := "Standard"

	if m := brokenPattern.FindStringSubmatch(text); m != nil {
		pct, _ := strconv.Atoi(m[1])
		signals = append(signals, "broken_pct_detected")
		details = append(details, fmt.Sprintf("broken=%d%%", pct))
		switch {
		case pct <= 5:
			grade = "5% Broken (Premium)"
		case pct <= 15:
			grade = fmt.Sprintf("%d%% Broken (Mid)", pct)
		case pct <= 25:
			grade = "25% Broken (Standard)"
		default:
			grade = "100% Broken (Value)"
		}
	}

	if strings.Contains(text, "BASMATI") {
		grade = "Basmati"
		signals = append(signals, "variety_detected")
		if strings.Contains(text, "1121") {
			details = append(details, "variety=1121")
		}
		if strings.Contains(text, "SELLA") {
			details = append(details, "processing=sella/parboiled")
		}
		if strings.Contains(text, "STEAM") {
			details = append(details, "processing=steamed")
		}
	}

	if strings.Contains(text, "LONG GRAIN") {
		signals = append(signals, "type_detected")
		details = append(details, "long grain")
	}
	if strings.Contains(text, "PARBOILED") && !strings.Contains(text, "BASMATI") {
		signals = append(signals, "processing_detected")
		details = append(details, "parboiled")
	}

	for _, variety := range []string{"PONNI", "SONA MASURI", "SONA MASOORI", "SUGANDHA", "PUSA"} {
		if strings.Contains(text, variety) {
			signals = append(signals, "variety_detected")
			details = append(details, "variety="+variety)
			break
		}
	}

	return estimate(grade, 0.3, 0.2, signals, details)
}

func parseSoybean(text string) domain.QualityEstimate {
	var signals, details []string
	grade := "Standard"

	if strings.Contains(text, "FEED") {
		grade = "Feed Grade"
		signals = append(signals, "grade_detected")
		details = append(details, "feed grade")
	}

	if strings.Contains(text, "NON-GMO") || strings.Contains(text, "NON GMO") {
		signals = append(signals, "gmo_status")
		details = append(details, "non-GMO")
	}

	if m := proteinPattern.FindStringSubmatch(text); m != nil {
		protein, _ := strconv.ParseFloat(m[1], 64)
		signals = append(signals, "protein_detected")
		details = append(details, fmt.Sprintf("protein=%s%%", ftoa(protein)))
	}
	if m := moisturePattern.FindStringSubmatch(text); m != nil {
		moisture, _ := strconv.ParseFloat(m[1], 64)
		signals = append(signals, "moisture_detected")
		details = append(details, fmt.Sprintf("moisture=%s%%", ftoa(moisture)))
	}

	return estimate(grade, 0.3, 0.2, signals, details)
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

// ftoa renders a float without a trailing zero fraction for detail strings.
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
