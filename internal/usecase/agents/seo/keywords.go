package seo

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxKeywords   = 15
	minWordLength = 4
)

var wordPattern = regexp.MustCompile(`\p{L}+`)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		para como mais sobre isso esse essa este esta pelo pela pelos pelas outro outra outros outras
		todo toda todos todas muito muita muitos muitas pode podem fazer sendo sido seria mesmo mesma
		entre ainda depois antes quando onde qual quais cada deve apenas assim forma tipo tambem aqui
		that this with from have been were will would could should about which there their they what
		when where some many more most other than then also just only very such into over after before
		your them these those does each`) {
		stopWords[w] = struct{}{}
	}
}

type keyword struct {
	term  string
	count int
}

// ExtractKeywords ranks frequent words and word pairs of text, most frequent
// first. Ties keep first-seen order.
func ExtractKeywords(text string, max int) []string {
	if max <= 0 {
		max = maxKeywords
	}

	var words []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(w) < minWordLength {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		words = append(words, w)
	}

	unigrams := count(words, max)
	pairs := make([]string, 0, len(words))
	for i := 0; i+1 < len(words); i++ {
		pairs = append(pairs, words[i]+" "+words[i+1])
	}
	bigrams := count(pairs, max/2)

	all := append(unigrams, bigrams...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].count > all[j].count })
	if len(all) > max {
		all = all[:max]
	}

	out := make([]string, len(all))
	for i, k := range all {
		out[i] = k.term
	}
	return out
}

func count(terms []string, top int) []keyword {
	index := make(map[string]int)
	var ranked []keyword
	for _, t := range terms {
		if at, ok := index[t]; ok {
			ranked[at].count++
			continue
		}
		index[t] = len(ranked)
		ranked = append(ranked, keyword{term: t, count: 1})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].count > ranked[j].count })
	if len(ranked) > top {
		ranked = ranked[:top]
	}
	return ranked
}
