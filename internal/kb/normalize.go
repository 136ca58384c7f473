package kb

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"hmo-benefits-core/internal/profile"
)

var (
	phoneRE = regexp.MustCompile(`\d{2,3}-\d{6,7}|\d{1}-\d{3}-\d{2}-\d{2}-\d{2}|\*?\d{3,4}`)
	extRE   = regexp.MustCompile(`שלוחה\s*(\d+)`)
	// tierHeaderRE splits a table cell on an inner tier label like "זהב:".
	tierHeaderRE = regexp.MustCompile(`(זהב|כסף|ארד)\s*[:：]\s*`)
	spaceRunRE   = regexp.MustCompile(`[ \t]+`)
	newlineRunRE = regexp.MustCompile(`\n+`)
)

// clean unescapes HTML entities, collapses whitespace runs, and applies
// NFC normalization so visually-identical Hebrew text compares equal
// regardless of how the source HTML composed it.
func clean(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	s = newlineRunRE.ReplaceAllString(s, " ")
	s = spaceRunRE.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return norm.NFC.String(s)
}

// tierCut is one (tierLabel, benefitText) pair extracted from a table cell.
type tierCut struct {
	tier profile.Tier
	text string
}

// splitTiers extracts inline "זהב: ... / כסף: ... / ארד: ..." blocks from a
// table cell. If no tier markers are present, the whole cell is returned
// as a single untagged cut.
func splitTiers(cellText string) []tierCut {
	locs := tierHeaderRE.FindAllStringSubmatchIndex(cellText, -1)
	if len(locs) == 0 {
		return []tierCut{{tier: "", text: cellText}}
	}

	var cuts []tierCut
	for i, loc := range locs {
		labelStart, labelEnd := loc[2], loc[3]
		bodyStart := loc[1]
		bodyEnd := len(cellText)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		label := profile.Tier(cellText[labelStart:labelEnd])
		body := strings.TrimSpace(cellText[bodyStart:bodyEnd])
		cuts = append(cuts, tierCut{tier: label, text: body})
	}
	return cuts
}

// guessHMOFromText looks for an HMO's Hebrew or English name anywhere in s.
func guessHMOFromText(s string) profile.HMO {
	low := strings.ToLower(s)
	switch {
	case strings.Contains(s, "מכבי") || strings.Contains(low, "maccabi"):
		return profile.HMOMaccabi
	case strings.Contains(s, "מאוחדת") || strings.Contains(low, "meuhedet"):
		return profile.HMOMeuhedet
	case strings.Contains(s, "כללית") || strings.Contains(low, "clalit"):
		return profile.HMOClalit
	default:
		return ""
	}
}

func hmoFromHeader(header string) profile.HMO {
	return guessHMOFromText(header)
}

// normalizeForEmbedding builds a compact fielded string that improves
// retrieval quality versus embedding raw chunk text alone.
func normalizeForEmbedding(c KBChunk) string {
	var bits []string
	if c.Section != "" {
		bits = append(bits, "section:"+c.Section)
	}
	if c.Service != "" {
		bits = append(bits, "service:"+c.Service)
	}
	if c.HMO != "" {
		bits = append(bits, "hmo:"+string(c.HMO))
	}
	if len(c.TierTags) > 0 {
		tags := make([]string, len(c.TierTags))
		for i, t := range c.TierTags {
			tags[i] = string(t)
		}
		bits = append(bits, "tier:"+strings.Join(tags, "|"))
	}
	bits = append(bits, fmt.Sprintf("kind:%s", c.Kind))
	bits = append(bits, "text:"+c.Text)
	return strings.Join(bits, " | ")
}
