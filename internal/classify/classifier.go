// Package classify assigns taxonomy labels to index-page content blocks.
//
// The forum index interleaves section headers and question lists inside
// generic "item text" containers, so classification is heuristic: a
// priority-ordered rule table is evaluated against each block's text and
// the first matching rule wins. When several rules of the same priority
// match, the conflict is logged instead of being silently resolved by
// iteration order.
package classify

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gretools/greharvest/internal/taxonomy"
)

// State models the running-category tracker: a block either continues the
// previously established category or establishes a new one.
type State int

const (
	// StateNoCategory means no section marker has been seen yet.
	StateNoCategory State = iota

	// StateCategory means a section marker established a current label.
	StateCategory
)

// Result is a successful block classification.
type Result struct {
	Label taxonomy.Label

	// CombinedDiagnostic marks the "Math Diagnostic Test & Verbal
	// Diagnostic Test" combined header: the block must be harvested
	// twice, once per diagnostic test, filtered by question type.
	CombinedDiagnostic bool

	// Rule names the rule that matched, for run auditing.
	Rule string
}

var (
	styledHeaderRe = regexp.MustCompile(`(?i)color\s*:\s*(#ff0000|red)`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// Classifier evaluates the section rule table.
type Classifier struct {
	logger *slog.Logger
}

// New creates a Classifier.
func New(logger *slog.Logger) *Classifier {
	return &Classifier{
		logger: logger.With("component", "classifier"),
	}
}

// ClassifyBlock assigns a label to one index-page content block, or
// reports false when the block carries no recognizable section marker.
func (c *Classifier) ClassifyBlock(sel *goquery.Selection) (Result, bool) {
	text := normalize(sel.Text())

	// Rule 1: explicit styled header span (red/bold section titles).
	if res, ok := c.styledHeader(sel); ok {
		return res, true
	}

	// Rule 2: combined diagnostic-test marker.
	if strings.Contains(text, "math diagnostic test") && strings.Contains(text, "verbal diagnostic test") {
		return Result{
			Label:              taxonomy.Label{Main: taxonomy.MathDiagnostic},
			CombinedDiagnostic: true,
			Rule:               "combined_diagnostic",
		}, true
	}

	// Rule 3: single diagnostic-test marker.
	if strings.Contains(text, "math diagnostic") {
		return Result{Label: taxonomy.Label{Main: taxonomy.MathDiagnostic}, Rule: "math_diagnostic"}, true
	}
	if strings.Contains(text, "verbal diagnostic") {
		return Result{Label: taxonomy.Label{Main: taxonomy.VerbalDiagnostic}, Rule: "verbal_diagnostic"}, true
	}

	// Rule 4: GRE-prefixed section header in the block text.
	if folder, ok := c.greSectionFolder(text); ok {
		return Result{
			Label: taxonomy.Label{Main: taxonomy.QuantSection, Sub: folder},
			Rule:  "gre_section",
		}, true
	}

	// Rule 5: named section headers.
	if strings.Contains(text, "the verbal section") {
		return Result{Label: taxonomy.Label{Main: taxonomy.VerbalSection}, Rule: "named_section"}, true
	}
	if strings.Contains(text, "the quant section") {
		res := Result{Label: taxonomy.Label{Main: taxonomy.QuantSection}, Rule: "named_section"}
		if sub := c.quantSubsection(text); sub != "" {
			res.Label.Sub = sub
		}
		return res, true
	}

	// Rule 6: verbal subsection keywords (outside diagnostic context).
	if !strings.Contains(text, "diagnostic") {
		if sub, ok := c.verbalSubsection(text); ok {
			return Result{
				Label: taxonomy.Label{Main: taxonomy.VerbalSection, Sub: sub},
				Rule:  "verbal_subsection",
			}, true
		}
	}

	// Rule 7: quant subsection presence fallback.
	if sub := c.quantSubsection(text); sub != "" {
		return Result{
			Label: taxonomy.Label{Main: taxonomy.QuantSection, Sub: sub},
			Rule:  "quant_subsection",
		}, true
	}

	return Result{}, false
}

// styledHeader checks for a span styled red, the forum's convention for
// major section titles.
func (c *Classifier) styledHeader(sel *goquery.Selection) (Result, bool) {
	var res Result
	var found bool

	sel.Find("span[style]").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		style, _ := span.Attr("style")
		if !styledHeaderRe.MatchString(style) {
			return true
		}
		header := normalize(span.Text())

		if strings.Contains(header, "math diagnostic test") && strings.Contains(header, "verbal diagnostic test") {
			res = Result{
				Label:              taxonomy.Label{Main: taxonomy.MathDiagnostic},
				CombinedDiagnostic: true,
				Rule:               "styled_header",
			}
			found = true
			return false
		}

		for key, folder := range taxonomy.SectionFolders {
			if strings.Contains(header, strings.ToLower(key)) {
				res = Result{
					Label: taxonomy.Label{Main: taxonomy.QuantSection, Sub: folder},
					Rule:  "styled_header",
				}
				found = true
				return false
			}
		}
		return true
	})

	return res, found
}

// greSectionFolder matches "GRE Arithmetic"-style headers anywhere in the
// block text. Longer keys are preferred so "GRE Algebra & Word Problems"
// beats "GRE Algebra"; additional matches are logged as conflicts.
func (c *Classifier) greSectionFolder(text string) (string, bool) {
	var bestKey, bestFolder string
	var matches []string

	for key, folder := range taxonomy.SectionFolders {
		if strings.Contains(text, strings.ToLower(key)) {
			matches = append(matches, key)
			if len(key) > len(bestKey) {
				bestKey, bestFolder = key, folder
			}
		}
	}

	if len(matches) > 1 {
		c.logger.Debug("overlapping section headers in block", "matches", matches, "chosen", bestKey)
	}
	return bestFolder, bestKey != ""
}

// quantSubsection finds the most specific quant topic named in the block
// text, logging when several topics overlap (e.g. "word problems" inside
// "two variables word problems").
func (c *Classifier) quantSubsection(text string) string {
	var best string
	var matches []string

	for _, sub := range taxonomy.Tree[taxonomy.QuantSection] {
		if strings.Contains(text, strings.ToLower(sub)) {
			matches = append(matches, sub)
			if len(sub) > len(best) {
				best = sub
			}
		}
	}
	for alias, folder := range taxonomy.SubsectionAliases {
		if strings.Contains(text, strings.ToLower(alias)) {
			matches = append(matches, alias)
			if len(alias) > len(best) {
				best = folder
			}
		}
	}

	if len(matches) > 1 {
		c.logger.Debug("overlapping quant subsections in block", "matches", matches, "chosen", best)
	}
	return best
}

// verbalSubsection matches verbal topic headers.
func (c *Classifier) verbalSubsection(text string) (string, bool) {
	switch {
	case strings.Contains(text, "verbal practice adaptive sections"):
		return "Verbal Practice Adaptive Sections", true
	case strings.Contains(text, "verbal practice sections"):
		return "Verbal Practice Sections", true
	case strings.Contains(text, "paragraph argument"), strings.Contains(text, "passage paragraph"):
		return "Passage Paragraph Argument", true
	case strings.Contains(text, "text completion"):
		return "Text Completion", true
	case strings.Contains(text, "sentence equivalence"):
		return "Sentence Equivalence", true
	case strings.Contains(text, "reading comprehension"):
		return "Reading Comprehension", true
	}
	return "", false
}

// DetectQuestionTypeMarker recognizes inline question-type markers such
// as "QCQ -" or "PS -" that precede a run of question links.
func DetectQuestionTypeMarker(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	short := len(t) <= 5
	dashed := strings.Contains(t, "-")

	switch {
	case strings.HasPrefix(t, "qcq"):
		return taxonomy.TypeQCQ
	case strings.HasPrefix(t, "mac"):
		return taxonomy.TypeMAC
	case strings.HasPrefix(t, "ps") && (dashed || short):
		return taxonomy.TypePS
	case strings.HasPrefix(t, "ne") && (dashed || short):
		return taxonomy.TypeNE
	case strings.HasPrefix(t, "di") && (dashed || short):
		return taxonomy.TypeDI
	case strings.HasPrefix(t, "tc") && (dashed || short):
		return taxonomy.TypeTC
	case strings.HasPrefix(t, "se") && (dashed || short):
		return taxonomy.TypeSE
	case strings.HasPrefix(t, "rc") && (dashed || short):
		return taxonomy.TypeRC
	}
	return ""
}

// DetectTopicSubsection recognizes inline topic headings that rename a
// quant subcategory ("Overlapping Sets", "Rate and Time", ...). Long text
// runs are ignored so question bodies don't trigger it.
func DetectTopicSubsection(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" || len(t) >= 100 {
		return ""
	}
	for alias, folder := range taxonomy.SubsectionAliases {
		if strings.Contains(t, strings.ToLower(alias)) {
			return folder
		}
	}
	return ""
}

// normalize lowercases and collapses all whitespace runs to single spaces.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " ")))
}
