package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// amountPattern は "$650,000" / "650,000" / "500k" / "1.2m" / "800000 CAD" などの金額表記
var amountPattern = regexp.MustCompile(`(?i)(\$\s*)?(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?\s*(million|thousand|mil|k|m)?\b`)

// measurePattern は数字の直後に続く面積・長さの単位
var measurePattern = regexp.MustCompile(`(?i)^\s*(?:sq\.?\s*(?:ft|feet|foot|m)\b|square\s+(?:feet|foot|met(?:er|re)s?)\b|ft²|m²|ft\b|feet\b|foot\b|sf\b|'|"|met(?:er|re)s?\b)`)

// dimensionPattern は寸法の続き（"3m x 4m"、"3m wide"、"3m²"）
var dimensionPattern = regexp.MustCompile(`(?i)^\s*(?:²|[x×*]|by\b|wide\b|long\b|deep\b|high\b|tall\b)`)

// dimensionBeforePattern は寸法の後半（"3m x 4m" の "4m"）
var dimensionBeforePattern = regexp.MustCompile(`(?i)(?:[x×*]|\bby)\s*$`)

// minPlainAmount は記号・単位なしの数字を金額とみなす下限
const minPlainAmount = 1000

// ParseAmount は文中の最初の金額表記を数値に変換
// 通貨記号・桁区切り・単位のいずれもない小さな数字（寸法や階数）と
// 面積・長さの単位が続く数字は無視する
func ParseAmount(text string) (float64, bool) {
	for _, loc := range amountPattern.FindAllStringSubmatchIndex(text, -1) {
		if v, ok := amountAt(text, loc); ok {
			return v, true
		}
	}
	return 0, false
}

// ParseLeadingAmount は先頭（空白を除く）にある金額表記だけを数値に変換
func ParseLeadingAmount(text string) (float64, bool) {
	trimmed := strings.TrimLeft(text, " \t")
	loc := amountPattern.FindStringSubmatchIndex(trimmed)
	if loc == nil || loc[0] != 0 {
		return 0, false
	}
	return amountAt(trimmed, loc)
}

// amountAt はamountPatternのマッチ位置locを金額として解釈する
func amountAt(text string, loc []int) (float64, bool) {
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}

	hasDollar := group(1) != ""
	digits := strings.ReplaceAll(group(2), ",", "")
	grouped := strings.Contains(group(2), ",")
	suffix := strings.ToLower(group(4))
	rest := text[loc[1]:]

	if !hasDollar && measurePattern.MatchString(rest) {
		return 0, false
	}
	// "3m" は長さの場合がある
	if !hasDollar && (suffix == "" || suffix == "m") &&
		(dimensionPattern.MatchString(rest) || dimensionBeforePattern.MatchString(text[:loc[0]])) {
		return 0, false
	}

	v, err := strconv.ParseFloat(digits+group(3), 64)
	if err != nil {
		return 0, false
	}

	switch suffix {
	case "k", "thousand":
		v *= 1_000
	case "m", "mil", "million":
		v *= 1_000_000
	}

	if !hasDollar && !grouped && suffix == "" && v < minPlainAmount {
		return 0, false
	}
	if v <= 0 {
		return 0, false
	}
	return v, true
}
