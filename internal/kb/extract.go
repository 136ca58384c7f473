package kb

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"hmo-benefits-core/internal/profile"
)

var topLevelTags = map[string]bool{
	"h1": true, "h2": true, "h3": true,
	"table": true, "ul": true, "p": true,
}

// extractChunksFromHTML walks doc in document order, tracking the nearest
// preceding heading as the current section, and dispatches tables/lists/
// paragraphs to their respective atomizers.
func (kb *HtmlKB) extractChunksFromHTML(path string, doc *html.Node) []KBChunk {
	var chunks []KBChunk
	var section string
	anchor := 0 // monotonic per-document counter, unique source_uri fragments

	for _, node := range collectTags(doc, topLevelTags) {
		switch node.Data {
		case "h1", "h2", "h3":
			section = clean(textOf(node))
		case "table":
			chunks = append(chunks, kb.extractTableRecords(path, node, section)...)
		case "ul":
			chunks = append(chunks, kb.extractListContacts(path, node, section, &anchor)...)
		case "p":
			chunks = append(chunks, kb.extractParagraph(path, node, section, &anchor)...)
		}
	}
	return chunks
}

// extractTableRecords builds one chunk per (service × HMO × tier) cell,
// splitting cells that embed multiple tier labels.
func (kb *HtmlKB) extractTableRecords(path string, table *html.Node, section string) []KBChunk {
	rows := findAllDescendants(table, "tr")
	if len(rows) == 0 {
		return nil
	}

	headerCells := findAllDescendantsAny(rows[0], map[string]bool{"th": true, "td": true})
	hmoCols := make(map[int]profile.HMO, len(headerCells))
	for idx, h := range headerCells {
		if hmo := hmoFromHeader(clean(textOf(h))); hmo != "" {
			hmoCols[idx] = hmo
		}
	}

	var out []KBChunk
	for rIdx, tr := range rows[1:] {
		cells := findAllDescendantsAny(tr, map[string]bool{"td": true, "th": true})
		if len(cells) == 0 {
			continue
		}
		service := clean(textOf(cells[0]))

		for cIdx, td := range cells[1:] {
			colIdx := cIdx + 1
			hmo, ok := hmoCols[colIdx]
			if !ok {
				continue
			}
			cellText := clean(textOf(td))
			for _, cut := range splitTiers(cellText) {
				tags := []profile.Tier(nil)
				if cut.tier != "" {
					tags = []profile.Tier{cut.tier}
				}
				out = append(out, KBChunk{
					Text:      cut.text,
					SourceURI: fmt.Sprintf("file://%s#t%d_%d", path, rIdx+1, colIdx),
					HMO:       hmo,
					TierTags:  tags,
					Section:   section,
					Service:   service,
					Kind:      KindBenefit,
				})
			}
		}
	}
	return out
}

// extractListContacts handles three bullet patterns: plain service
// bullets, HMO contact bullets with phone numbers, and "more info" bullets
// that pair a phone number with a URL.
func (kb *HtmlKB) extractListContacts(path string, ul *html.Node, section string, anchor *int) []KBChunk {
	var out []KBChunk

	for _, li := range directChildren(ul, "li") {
		rawTxt := textOf(li)
		txt := clean(rawTxt)
		if txt == "" {
			continue
		}

		var urls []string
		for _, a := range findAllDescendants(li, "a") {
			if href := attr(a, "href"); href != "" {
				urls = append(urls, href)
			}
		}
		phones := phoneRE.FindAllString(txt, -1)
		hmo := guessHMOFromText(txt)
		extMatch := extRE.FindStringSubmatch(txt)
		hasPhone := len(phones) > 0
		hasURL := len(urls) > 0

		if hasPhone || strings.Contains(txt, "טלפון") || hasURL {
			var bits []string
			if len(phones) > 0 {
				bits = append(bits, strings.Join(phones, "; "))
			}
			if len(extMatch) > 1 {
				bits = append(bits, "שלוחה "+extMatch[1])
			}
			if len(urls) > 0 {
				bits = append(bits, strings.Join(urls, "; "))
			}
			payload := txt
			if len(bits) > 0 {
				payload = strings.Join(bits, " | ")
			}
			out = append(out, KBChunk{
				Text:      payload,
				SourceURI: fmt.Sprintf("file://%s#c%d", path, *anchor),
				HMO:       hmo,
				Section:   section,
				Kind:      KindContact,
			})
			*anchor++
			continue
		}

		out = append(out, KBChunk{
			Text:      txt,
			SourceURI: fmt.Sprintf("file://%s#s%d", path, *anchor),
			Section:   section,
			Service:   txt,
			Kind:      KindService,
		})
		*anchor++
	}
	return out
}

// extractParagraph turns a <p> into one or more blurb chunks. Paragraphs
// longer than BlurbSplitCharMin are broken at sentence boundaries so a
// single embedding vector never has to represent an oversized span of
// unrelated sentences.
func (kb *HtmlKB) extractParagraph(path string, p *html.Node, section string, anchor *int) []KBChunk {
	txt := clean(textOf(p))
	if txt == "" {
		return nil
	}

	pieces := []string{txt}
	if kb.blurbSplitCharMin > 0 && utf8.RuneCountInString(txt) > kb.blurbSplitCharMin && kb.splitter != nil {
		pieces = kb.splitter.Split(txt)
	}

	out := make([]KBChunk, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		out = append(out, KBChunk{
			Text:      piece,
			SourceURI: fmt.Sprintf("file://%s#p%d", path, *anchor),
			Section:   section,
			Kind:      KindBlurb,
		})
		*anchor++
	}
	return out
}
