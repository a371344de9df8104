package harvest

import (
	"log/slog"
	"os"
	"testing"

	"github.com/gretools/greharvest/internal/config"
	"github.com/gretools/greharvest/internal/taxonomy"
	"github.com/gretools/greharvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const baseURL = "https://gre.myprepclub.com/forum/the-5-lb-book-34935.html"

func makeResp(body string) *types.Response {
	req, _ := types.NewRequest(baseURL)
	return &types.Response{
		Request:     req,
		StatusCode:  200,
		Body:        []byte(body),
		ContentType: "text/html",
		FinalURL:    baseURL,
	}
}

func newHarvester() *Harvester {
	return New(config.DefaultConfig(), testLogger)
}

const indexHTML = `<!DOCTYPE html>
<html><body>
<div class="item text">
  <span style="font-weight: bold; color: #FF0000">GRE Arithmetic</span><br>
  <a class="postlink-local" href="sum-of-integers-1234.html">Sum of integers</a><br>
  <a class="postlink-local" href="/forum/fractions-question-5678.html">Fractions question</a><br>
  <a class="postlink-local" href="https://gre.myprepclub.com/forum/percents-question-9012.html#p100">Percents question</a><br>
</div>
</body></html>`

func TestHarvestStyledHeaderBucket(t *testing.T) {
	h := newHarvester()
	buckets, err := h.Harvest(makeResp(indexHTML))
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}

	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	b := buckets[0]
	want := taxonomy.Label{Main: taxonomy.QuantSection, Sub: "Arithmetic"}
	if b.Label != want {
		t.Errorf("label = %v, want %v", b.Label, want)
	}
	if len(b.Links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(b.Links))
	}

	// Links come back in document order, absolute and fragment-free.
	wantURLs := []string{
		"https://gre.myprepclub.com/forum/sum-of-integers-1234.html",
		"https://gre.myprepclub.com/forum/fractions-question-5678.html",
		"https://gre.myprepclub.com/forum/percents-question-9012.html",
	}
	for i, wantURL := range wantURLs {
		if b.Links[i].URL != wantURL {
			t.Errorf("link %d = %q, want %q", i, b.Links[i].URL, wantURL)
		}
	}
	if b.Links[0].Text != "Sum of integers" {
		t.Errorf("link text = %q", b.Links[0].Text)
	}
}

func TestHarvestCarryOverBlock(t *testing.T) {
	// The second block has no marker of its own; its links belong to the
	// category established by the first block.
	html := `<html><body>
<div class="item text"><span style="color:#ff0000">GRE Geometry</span>
  <a class="postlink-local" href="triangle-q-1.html">Triangle question</a>
</div>
<div class="item text">
  <a class="postlink-local" href="triangle-q-2.html">Another triangle</a>
</div>
</body></html>`

	h := newHarvester()
	buckets, err := h.Harvest(makeResp(html))
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	if len(buckets[0].Links) != 2 {
		t.Errorf("expected 2 links, got %d", len(buckets[0].Links))
	}
	if buckets[0].Label.Sub != "Triangles" {
		t.Errorf("label = %v", buckets[0].Label)
	}
}

func TestHarvestDeduplicatesWithinCategory(t *testing.T) {
	html := `<html><body>
<div class="item text"><span style="color:#ff0000">GRE Arithmetic</span>
  <a class="postlink-local" href="same-q-1.html">First mention</a>
  <a class="postlink-local" href="same-q-1.html#p5">Same thread again</a>
</div>
</body></html>`

	h := newHarvester()
	buckets, err := h.Harvest(makeResp(html))
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if len(buckets[0].Links) != 1 {
		t.Errorf("expected dedup to 1 link, got %d", len(buckets[0].Links))
	}
}

func TestHarvestDenylist(t *testing.T) {
	html := `<html><body>
<div class="item text"><span style="color:#ff0000">GRE Arithmetic</span>
  <a class="postlink-local" href="real-question-1.html">Real question</a>
  <a class="postlink-local" href="gre-prep-whatsapp-group-2.html">Join our group</a>
  <a class="postlink-local" href="the-best-gre-books-3.html">Book list</a>
</div>
</body></html>`

	h := newHarvester()
	buckets, err := h.Harvest(makeResp(html))
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if len(buckets[0].Links) != 1 {
		t.Fatalf("expected 1 link after denylist, got %d", len(buckets[0].Links))
	}
	if buckets[0].Links[0].Text != "Real question" {
		t.Errorf("wrong survivor: %q", buckets[0].Links[0].Text)
	}
}

func TestHarvestLinkShape(t *testing.T) {
	html := `<html><body>
<div class="item text"><span style="color:#ff0000">GRE Arithmetic</span>
  <a class="postlink-local" href="question-page-1.html">HTML page</a>
  <a class="postlink-local" href="viewtopic.php?t=4242">Topic param</a>
  <a class="postlink-local" href="memberlist.php">Member list</a>
  <a class="postlink-local" href="mailto:admin@example.com">Mail</a>
</div>
</body></html>`

	h := newHarvester()
	buckets, err := h.Harvest(makeResp(html))
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if len(buckets[0].Links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(buckets[0].Links))
	}
}

func TestHarvestQuestionTypeMarkers(t *testing.T) {
	html := `<html><body>
<div class="item text">Math Diagnostic Test
  <b>QCQ - Quantitative Comparison</b><br>
  <a class="postlink-local" href="qcq-question-1.html">Compare quantities</a><br>
  <b>NE - Numeric Entry</b><br>
  <a class="postlink-local" href="ne-question-2.html">Enter a number</a><br>
</div>
</body></html>`

	h := newHarvester()
	buckets, err := h.Harvest(makeResp(html))
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}

	// Diagnostic links file directly under their question-type folder.
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if buckets[0].Label.Sub != taxonomy.TypeQCQ {
		t.Errorf("bucket 0 = %v", buckets[0].Label)
	}
	if buckets[1].Label.Sub != taxonomy.TypeNE {
		t.Errorf("bucket 1 = %v", buckets[1].Label)
	}
	if buckets[0].Links[0].QuestionType != taxonomy.TypeQCQ {
		t.Errorf("link type = %q", buckets[0].Links[0].QuestionType)
	}
}

func TestHarvestCombinedDiagnosticSplits(t *testing.T) {
	html := `<html><body>
<div class="item text"><span style="color:#ff0000">Math Diagnostic Test &amp; Verbal Diagnostic Test</span>
  <b>QCQ - Quantitative Comparison</b><br>
  <a class="postlink-local" href="math-diag-1.html">Quantity A or B</a><br>
  <b>TC - Text Completion</b><br>
  <a class="postlink-local" href="verbal-diag-2.html">Fill the blank</a><br>
</div>
</body></html>`

	h := newHarvester()
	buckets, err := h.Harvest(makeResp(html))
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}

	byMain := make(map[string]*Bucket)
	for _, b := range buckets {
		byMain[b.Label.Main] = b
	}
	math := byMain[taxonomy.MathDiagnostic]
	verbal := byMain[taxonomy.VerbalDiagnostic]
	if math == nil || verbal == nil {
		t.Fatalf("missing diagnostic bucket: %v", buckets)
	}
	if len(math.Links) != 1 || math.Label.Sub != taxonomy.TypeQCQ {
		t.Errorf("math bucket: %v with %d links", math.Label, len(math.Links))
	}
	if len(verbal.Links) != 1 || verbal.Label.Sub != taxonomy.TypeTC {
		t.Errorf("verbal bucket: %v with %d links", verbal.Label, len(verbal.Links))
	}
}

func TestHarvestTopicAliasOverride(t *testing.T) {
	// An inline "Rate and Time" heading reroutes links into the Rates
	// and Work folder even while a quant section label is active.
	html := `<html><body>
<div class="item text"><span style="color:#ff0000">GRE Arithmetic</span>
  <a class="postlink-local" href="plain-arith-1.html">If the sum of three consecutive integers is 57, what is the smallest</a><br>
  <b>Rate and Time</b><br>
  <a class="postlink-local" href="rate-q-2.html">A train travels at a constant speed of 60 miles per hour</a><br>
</div>
</body></html>`

	h := newHarvester()
	buckets, err := h.Harvest(makeResp(html))
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if buckets[0].Label.Sub != "Arithmetic" {
		t.Errorf("bucket 0 = %v", buckets[0].Label)
	}
	if buckets[1].Label.Sub != "Rates and Work" {
		t.Errorf("bucket 1 = %v", buckets[1].Label)
	}
}

func TestHarvestNoContainers(t *testing.T) {
	h := newHarvester()
	_, err := h.Harvest(makeResp(`<html><body><p>nothing here</p></body></html>`))
	if err != types.ErrNoQuestionLists {
		t.Errorf("expected ErrNoQuestionLists, got %v", err)
	}
}

func TestQuestionLinkShape(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://example.com/forum/question-1.html", true},
		{"https://example.com/forum/viewtopic.php?t=99", true},
		{"https://example.com/forum/memberlist.php", false},
		{"https://example.com/forum/", false},
	}
	for _, tc := range cases {
		if got := questionLinkShape(tc.url); got != tc.want {
			t.Errorf("questionLinkShape(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}
