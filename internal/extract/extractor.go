// Package extract pulls question text, answer choices, the official
// answer, and the explanation out of a fetched question page.
package extract

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/gretools/greharvest/internal/config"
	"github.com/gretools/greharvest/internal/taxonomy"
	"github.com/gretools/greharvest/internal/types"
)

var (
	strippedClassRe  = regexp.MustCompile(`(?i)spoiler|answer|explanation|signature|navigation`)
	letterChoiceRe   = regexp.MustCompile(`[(（]([A-Ea-e])[)）]`)
	numberChoiceRe   = regexp.MustCompile(`\d+[.)]`)
	officialAnswerRe = regexp.MustCompile(`(?i)OA[:\s]*([A-E])`)
	singleLetterRe   = regexp.MustCompile(`\b([A-E])\b`)
	manyNewlinesRe   = regexp.MustCompile(`\n{3,}`)
)

// Extractor turns question pages into QuestionRecords.
type Extractor struct {
	cfg    *config.Extract
	logger *slog.Logger
}

// New creates an Extractor.
func New(cfg *config.Config, logger *slog.Logger) *Extractor {
	return &Extractor{
		cfg:    &cfg.Extract,
		logger: logger.With("component", "extractor"),
	}
}

// Extract builds a QuestionRecord from a fetched question page. A page
// whose content cannot be located, is too short, or still looks like
// navigation boilerplate yields a typed error and no record.
func (e *Extractor) Extract(resp *types.Response) (*types.QuestionRecord, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ExtractError{URL: resp.FinalURL, Stage: "parse", Err: err}
	}

	record := &types.QuestionRecord{
		AnswerChoices: []string{},
		SourceURL:     resp.FinalURL,
	}

	region, strategy := selectRegion(doc)
	if region != nil {
		e.logger.Debug("content region selected", "url", resp.FinalURL, "strategy", strategy)

		record.Question = questionText(region)
		// Choices are sliced from the stripped question text so spoiler
		// and signature content cannot leak into the last choice.
		record.AnswerChoices = answerChoices(record.Question)
		record.CorrectAnswer = e.correctAnswer(doc)
		record.Explanation = e.explanation(doc)
		record.QuestionType = ClassifyQuestionType(record.Question, record.AnswerChoices)
	} else {
		e.logger.Debug("no content region found, using body fallback", "url", resp.FinalURL)
		record.Question = e.bodyFallback(doc)
		record.QuestionType = ClassifyQuestionType(record.Question, nil)
	}

	if err := e.validate(record); err != nil {
		return nil, &types.ExtractError{URL: resp.FinalURL, Stage: "validate", Err: err}
	}

	return record, nil
}

// validate rejects records the archiver must never see.
func (e *Extractor) validate(record *types.QuestionRecord) error {
	if len([]rune(record.Question)) < e.cfg.MinQuestionLength {
		return types.ErrContentTooShort
	}

	head := strings.ToLower(record.Question)
	if len(head) > 100 {
		head = head[:100]
	}
	if strings.Contains(head, "forum") || strings.Contains(head, "navigation") {
		return types.ErrBoilerplate
	}
	return nil
}

// questionText extracts the question body from the content region,
// preserving line breaks and dropping spoiler/answer/explanation and
// signature subtrees first.
func questionText(region *goquery.Selection) string {
	clone := region.Clone()
	clone.Find("div, span").Each(func(_ int, s *goquery.Selection) {
		if class, ok := s.Attr("class"); ok && strippedClassRe.MatchString(class) {
			s.Remove()
		}
	})

	text := textWithNewlines(clone)
	text = manyNewlinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// textWithNewlines joins every stripped text run in the selection with a
// newline, mirroring how the archive format keeps choice and quantity
// lines apart.
func textWithNewlines(sel *goquery.Selection) string {
	var parts []string
	for _, node := range sel.Nodes {
		collectText(node, &parts)
	}
	return strings.Join(parts, "\n")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
			*parts = append(*parts, trimmed)
		}
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, parts)
	}
}

// answerChoices extracts the ordered answer-choice strings from the
// region text. Lettered choices "(A) ... (B) ..." win; numbered choices
// "1) ..." are tried only when no lettered markers exist.
func answerChoices(text string) []string {
	if choices := sliceBetweenMarkers(text, letterChoiceRe); len(choices) > 0 {
		return choices
	}
	return sliceBetweenMarkers(text, numberChoiceRe)
}

// sliceBetweenMarkers finds every marker occurrence and returns the
// trimmed text between consecutive markers.
func sliceBetweenMarkers(text string, marker *regexp.Regexp) []string {
	locs := marker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	choices := make([]string, 0, len(locs))
	for i, loc := range locs {
		start := loc[1]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if choice := strings.TrimSpace(text[start:end]); choice != "" {
			choices = append(choices, choice)
		}
	}
	return choices
}

// correctAnswer looks for the forum's "OA" (Official Answer) marker in
// any text node on the page, then falls back to a spoiler element.
func (e *Extractor) correctAnswer(doc *goquery.Document) string {
	if root := documentNode(doc); root != nil {
		// XPath text-node search covers markers buried outside the
		// content region (post footers, quote blocks).
		textNodes, err := htmlquery.QueryAll(root, "//text()[contains(translate(., 'oa', 'OA'), 'OA')]")
		if err == nil {
			for _, node := range textNodes {
				if m := officialAnswerRe.FindStringSubmatch(node.Data); m != nil {
					return strings.ToUpper(m[1])
				}
			}
		}
	}

	var answer string
	doc.Find("div, span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, ok := s.Attr("class")
		if !ok || !strings.Contains(strings.ToLower(class), "spoiler") {
			return true
		}
		spoilerText := strings.TrimSpace(s.Text())
		if m := singleLetterRe.FindStringSubmatch(spoilerText); m != nil {
			answer = m[1]
		} else {
			answer = spoilerText
		}
		return false
	})
	return answer
}

// explanation walks an ordered fallback chain: explanation-tagged
// sections, expert/solution posts, posts authored by an expert account,
// then the second post on the page if it is substantial.
func (e *Extractor) explanation(doc *goquery.Document) string {
	// Explicit explanation sections.
	var sections []string
	doc.Find("div, p").Each(func(_ int, s *goquery.Selection) {
		if class, ok := s.Attr("class"); ok && strings.Contains(strings.ToLower(class), "explanation") {
			if text := textWithNewlines(s); strings.TrimSpace(text) != "" {
				sections = append(sections, strings.TrimSpace(text))
			}
		}
	})
	if len(sections) > 0 {
		return strings.Join(sections, "\n\n")
	}

	// Expert/solution-tagged posts.
	doc.Find("div").Each(func(_ int, s *goquery.Selection) {
		class, ok := s.Attr("class")
		if !ok {
			return
		}
		lower := strings.ToLower(class)
		if !strings.Contains(lower, "expert") && !strings.Contains(lower, "solution") {
			return
		}
		if text := strings.TrimSpace(textWithNewlines(s)); len(text) > 100 {
			sections = append(sections, text)
		}
	})
	if len(sections) > 0 {
		return strings.Join(sections, "\n\n")
	}

	// Posts by an author whose display name marks them as an expert.
	var byAuthor string
	doc.Find("div[class*='author'], span[class*='author'], div[class*='username'], span[class*='username']").
		EachWithBreak(func(_ int, author *goquery.Selection) bool {
			if !strings.Contains(strings.ToLower(author.Text()), "expert") {
				return true
			}
			post := author.Closest("div[class*='post']")
			if post.Length() == 0 {
				return true
			}
			content := post.Find("div[class*='content'], div[class*='postbody']").First()
			if content.Length() == 0 {
				return true
			}
			if text := strings.TrimSpace(textWithNewlines(content)); len(text) > 100 {
				byAuthor = text
				return false
			}
			return true
		})
	if byAuthor != "" {
		return byAuthor
	}

	// Second post, when long enough and not labeled as something else.
	posts := doc.Find("div[class*='post']")
	if posts.Length() > 1 {
		content := posts.Eq(1).Find("div[class*='content'], div[class*='postbody']").First()
		if content.Length() > 0 {
			text := strings.TrimSpace(textWithNewlines(content))
			head := strings.ToLower(text)
			if len(head) > 50 {
				head = head[:50]
			}
			if len(text) > 150 && !strings.Contains(head, "explanation") {
				return text
			}
		}
	}

	return ""
}

// bodyFallback extracts truncated body text when no content region was
// found, preferring an id-tagged main container.
func (e *Extractor) bodyFallback(doc *goquery.Document) string {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return ""
	}

	target := body.Find("div[id*='content'], div[id*='main'], div[id*='post']").First()
	if target.Length() == 0 {
		target = body
	}

	text := strings.TrimSpace(textWithNewlines(target))
	runes := []rune(text)
	if len(runes) > e.cfg.BodyFallbackLimit {
		text = string(runes[:e.cfg.BodyFallbackLimit])
	}
	return text
}

// ClassifyQuestionType infers the question-type tag from the question
// text and choice count.
func ClassifyQuestionType(questionText string, choices []string) string {
	lower := strings.ToLower(questionText)

	// Quantitative Comparison always presents both quantities.
	if strings.Contains(lower, "quantity a") && strings.Contains(lower, "quantity b") {
		return taxonomy.TypeQCQ
	}

	multiSelect := strings.Contains(lower, "select all") ||
		strings.Contains(lower, "select one or more") ||
		strings.Contains(lower, "mark all")
	if multiSelect || len(choices) > 5 {
		return taxonomy.TypeMAC
	}

	if len(choices) == 0 &&
		(strings.Contains(lower, "enter") || strings.Contains(lower, "numeric") || strings.Contains(lower, "your answer")) {
		return taxonomy.TypeNE
	}

	if len(choices) > 0 && len(choices) <= 5 && !multiSelect {
		return taxonomy.TypePS
	}

	if strings.Contains(lower, "blank") || strings.Contains(lower, "complete") {
		return "Text Completion"
	}
	if strings.Contains(lower, "sentence") && strings.Contains(lower, "equivalence") {
		return "Sentence Equivalence"
	}
	if strings.Contains(lower, "passage") {
		return "Reading Comprehension"
	}

	if len(choices) > 0 {
		return taxonomy.TypePS
	}
	return taxonomy.TypeUnknown
}

// documentNode returns the document's root *html.Node for XPath queries.
func documentNode(doc *goquery.Document) *html.Node {
	if len(doc.Selection.Nodes) == 0 {
		return nil
	}
	return doc.Selection.Nodes[0]
}
