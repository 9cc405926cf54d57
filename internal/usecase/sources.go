package usecase

import (
	"strings"

	"tgn-site/internal/domain"
)

// sourceRule maps one keyword group to the contextual link it contributes.
// Evaluation order is fixed; each group contributes at most one source.
type sourceRule struct {
	keywords []string
	source   domain.Source
}

var sourceRules = []sourceRule{
	{
		keywords: []string{"tgn", "つくば院生ネットワーク", "どんな団体", "とは"},
		source:   domain.Source{Title: "TGNについて", URL: "/qchan#about"},
	},
	{
		keywords: []string{"院生ひろば", "院生の虎", "花見", "qxq", "イベント"},
		source:   domain.Source{Title: "イベント情報", URL: "/news"},
	},
	{
		keywords: []string{"参加", "入りたい", "join", "加入"},
		source:   domain.Source{Title: "参加方法", URL: "/qchan#join"},
	},
	{
		keywords: []string{"連絡", "問い合わせ", "メール", "twitter", "contact"},
		source:   domain.Source{Title: "お問い合わせ", URL: "/qchan#contact"},
	},
}

// ClassifySources tags a message/reply pair with contextual links. It is a
// pure keyword heuristic: the inputs are lower-cased into one search buffer,
// each keyword group that matches contributes its fixed source, and results
// are deduplicated by URL with first-match order preserved.
func ClassifySources(message, reply string) []domain.Source {
	buffer := strings.ToLower(message + "\n" + reply)

	var out []domain.Source
	seen := make(map[string]bool, len(sourceRules))
	for _, rule := range sourceRules {
		if !matchesAny(buffer, rule.keywords) {
			continue
		}
		if seen[rule.source.URL] {
			continue
		}
		seen[rule.source.URL] = true
		out = append(out, rule.source)
	}
	return out
}

func matchesAny(buffer string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(buffer, kw) {
			return true
		}
	}
	return false
}
