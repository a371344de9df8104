// Package harvest collects question links from a forum index page and
// groups them by taxonomy label.
package harvest

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gretools/greharvest/internal/classify"
	"github.com/gretools/greharvest/internal/config"
	"github.com/gretools/greharvest/internal/taxonomy"
	"github.com/gretools/greharvest/internal/types"
)

// Bucket is the ordered, deduplicated set of links harvested for one
// (main category, subcategory) pair.
type Bucket struct {
	Label taxonomy.Label
	Links []types.LinkRecord
}

// Harvester walks index-page content blocks and collects question links.
type Harvester struct {
	cfg        *config.Harvest
	classifier *classify.Classifier
	logger     *slog.Logger
}

// New creates a Harvester.
func New(cfg *config.Config, logger *slog.Logger) *Harvester {
	return &Harvester{
		cfg:        &cfg.Harvest,
		classifier: classify.New(logger),
		logger:     logger.With("component", "harvester"),
	}
}

// Harvest scans the index page for question-list containers and returns
// the link buckets in discovery order. It fails only when no container
// is present at all, which aborts the run.
func (h *Harvester) Harvest(resp *types.Response) ([]*Bucket, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(resp.FinalURL)
	if err != nil {
		return nil, types.ErrInvalidURL
	}

	blocks := doc.Find("div.item.text")
	if blocks.Length() == 0 {
		return nil, types.ErrNoQuestionLists
	}
	h.logger.Debug("question-list containers found", "count", blocks.Length())

	run := &runState{
		harvester: h,
		base:      base,
		tracker:   classify.NewTracker(),
		index:     make(map[taxonomy.Label]*Bucket),
		seen:      make(map[taxonomy.Label]map[string]bool),
	}

	blocks.Each(func(i int, block *goquery.Selection) {
		res, ok := h.classifier.ClassifyBlock(block)
		run.tracker.Observe(res, ok)

		current, active := run.tracker.Current()
		if !active {
			if block.Find("a.postlink-local").Length() > 0 {
				h.logger.Warn("block has question links but no recognizable section header", "block", i+1)
			}
			return
		}

		if current.CombinedDiagnostic {
			// The combined header lists both diagnostic tests in one
			// block; harvest it once per test, keeping only that
			// test's question types.
			run.scanBlock(block, taxonomy.Label{Main: taxonomy.MathDiagnostic}, filterMath)
			run.scanBlock(block, taxonomy.Label{Main: taxonomy.VerbalDiagnostic}, filterVerbal)
			return
		}

		run.scanBlock(block, current.Label, filterNone)
	})

	return run.buckets, nil
}

// typeFilter restricts which question-type markers a scan accepts.
type typeFilter int

const (
	filterNone typeFilter = iota
	filterMath
	filterVerbal
)

var mathTypes = map[string]bool{
	taxonomy.TypeQCQ: true,
	taxonomy.TypePS:  true,
	taxonomy.TypeMAC: true,
	taxonomy.TypeNE:  true,
	taxonomy.TypeDI:  true,
}

var verbalTypes = map[string]bool{
	taxonomy.TypeTC: true,
	taxonomy.TypeSE: true,
	taxonomy.TypeRC: true,
}

func (f typeFilter) accepts(questionType string) bool {
	switch f {
	case filterMath:
		return questionType == "" || mathTypes[questionType]
	case filterVerbal:
		return questionType == "" || verbalTypes[questionType]
	default:
		return true
	}
}

// runState carries the per-page harvesting state: the category tracker,
// the ordered buckets, and the per-bucket dedup sets.
type runState struct {
	harvester *Harvester
	base      *url.URL
	tracker   *classify.Tracker
	buckets   []*Bucket
	index     map[taxonomy.Label]*Bucket
	seen      map[taxonomy.Label]map[string]bool

	// lastSub remembers the most recently closed subcategory so trailing
	// links that appear after a subsection's marker ran out are not
	// silently lost.
	lastSub map[string]string
}

// blockContext is the running state while one block's subtree is walked
// in document order.
type blockContext struct {
	label        taxonomy.Label
	filter       typeFilter
	questionType string
	topicSub     string
}

// scanBlock walks a classified block's DOM subtree in document order,
// updating question-type and topic-subsection context from text runs and
// collecting question links as they appear.
func (r *runState) scanBlock(block *goquery.Selection, label taxonomy.Label, filter typeFilter) {
	ctx := &blockContext{label: label, filter: filter}
	for _, node := range block.Nodes {
		r.walk(node, ctx)
	}
}

func (r *runState) walk(n *html.Node, ctx *blockContext) {
	if n.Type == html.ElementNode {
		text := nodeText(n)

		if marker := classify.DetectQuestionTypeMarker(text); marker != "" {
			ctx.questionType = marker
			ctx.topicSub = ""
		}
		if topic := classify.DetectTopicSubsection(text); topic != "" {
			ctx.topicSub = topic
		}

		if n.Data == "a" && hasClass(n, "postlink-local") {
			r.collect(n, text, ctx)
			return
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		r.walk(child, ctx)
	}
}

// collect validates one anchor and files it into its bucket.
func (r *runState) collect(n *html.Node, linkText string, ctx *blockContext) {
	href := attrValue(n, "href")
	if href == "" {
		return
	}

	normalized, ok := r.normalizeURL(href)
	if !ok {
		return
	}
	if r.harvester.denied(normalized) {
		return
	}
	if !questionLinkShape(normalized) {
		r.harvester.logger.Debug("link rejected by shape heuristic", "url", normalized)
		return
	}
	if !ctx.filter.accepts(ctx.questionType) {
		return
	}

	sub := finalSubcategory(ctx)
	if sub == "" {
		// Best-effort: attach trailing links to the most recently
		// closed subcategory rather than dropping them.
		if r.lastSub != nil {
			sub = r.lastSub[ctx.label.Main]
		}
		if sub == "" {
			r.harvester.logger.Debug("link has no active subcategory, dropped", "url", normalized)
			return
		}
		r.harvester.logger.Debug("link attached to last-closed subcategory", "url", normalized, "subcategory", sub)
	}

	label := taxonomy.Label{Main: ctx.label.Main, Sub: sub}
	if r.lastSub == nil {
		r.lastSub = make(map[string]string)
	}
	r.lastSub[label.Main] = sub

	if r.seen[label] == nil {
		r.seen[label] = make(map[string]bool)
	}
	if r.seen[label][normalized] {
		return
	}
	r.seen[label][normalized] = true

	bucket := r.index[label]
	if bucket == nil {
		bucket = &Bucket{Label: label}
		r.index[label] = bucket
		r.buckets = append(r.buckets, bucket)
	}

	text := strings.TrimSpace(linkText)
	if text == "" {
		text = normalized
	}
	bucket.Links = append(bucket.Links, types.LinkRecord{
		URL:          normalized,
		Text:         text,
		QuestionType: ctx.questionType,
		Section:      ctx.label.Sub,
	})
}

// finalSubcategory resolves the folder a link files under, combining the
// block's section label with the running marker context.
func finalSubcategory(ctx *blockContext) string {
	switch ctx.label.Main {
	case taxonomy.MathDiagnostic, taxonomy.VerbalDiagnostic:
		// Diagnostic tests file directly by question type.
		return ctx.questionType

	case taxonomy.QuantSection:
		if ctx.topicSub != "" {
			return ctx.topicSub
		}
		if ctx.label.Sub != "" {
			return ctx.label.Sub
		}
		return ctx.questionType

	case taxonomy.VerbalSection:
		if ctx.topicSub != "" {
			return ctx.topicSub
		}
		if ctx.label.Sub != "" {
			return ctx.label.Sub
		}
		return ctx.questionType

	default:
		if ctx.topicSub != "" {
			return ctx.topicSub
		}
		if ctx.questionType != "" {
			return ctx.questionType
		}
		return ctx.label.Sub
	}
}

// normalizeURL resolves a possibly-relative href against the page base,
// strips the fragment, and keeps only http(s) URLs.
func (r *runState) normalizeURL(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return "", false
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := r.base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	resolved.Fragment = ""
	return resolved.String(), true
}

// denied reports whether the URL matches the not-a-question denylist.
func (h *Harvester) denied(u string) bool {
	lower := strings.ToLower(u)
	for _, pattern := range h.cfg.DenyPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// questionLinkShape accepts URLs that look like forum question threads:
// an .html page path or a topic-id query parameter.
func questionLinkShape(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if strings.HasSuffix(u.Path, ".html") {
		return true
	}
	return u.Query().Get("t") != ""
}

// nodeText returns the concatenated text content of a node's subtree.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(n)
	return strings.TrimSpace(sb.String())
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attrValue(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
