package extract

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/gretools/greharvest/internal/config"
	"github.com/gretools/greharvest/internal/taxonomy"
	"github.com/gretools/greharvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func makeResp(body string) *types.Response {
	req, _ := types.NewRequest("https://gre.myprepclub.com/forum/test-question-1.html")
	return &types.Response{
		Request:     req,
		StatusCode:  200,
		Body:        []byte(body),
		ContentType: "text/html",
		FinalURL:    "https://gre.myprepclub.com/forum/test-question-1.html",
	}
}

func newExtractor() *Extractor {
	return New(config.DefaultConfig(), testLogger)
}

const questionPageHTML = `<!DOCTYPE html>
<html><body>
<div class="post-wrapper">
  <div class="item text">
    If x is a positive integer and 3x + 5 = 20, what is the value of x?
    (A) one (B) two (C) three (D) four (E) five
    <div class="spoiler-content">OA: C</div>
  </div>
</div>
<div class="post-wrapper">
  <div class="postbody">
    Explanation placeholder that is not tagged as an explanation section.
  </div>
</div>
</body></html>`

func TestExtractQuestionPage(t *testing.T) {
	e := newExtractor()
	record, err := e.Extract(makeResp(questionPageHTML))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if !strings.Contains(record.Question, "3x + 5 = 20") {
		t.Errorf("question text missing equation: %q", record.Question)
	}
	// Spoiler content must not leak into the question body.
	if strings.Contains(record.Question, "OA") {
		t.Errorf("spoiler leaked into question: %q", record.Question)
	}

	want := []string{"one", "two", "three", "four", "five"}
	if len(record.AnswerChoices) != len(want) {
		t.Fatalf("choices = %v", record.AnswerChoices)
	}
	for i, choice := range want {
		if record.AnswerChoices[i] != choice {
			t.Errorf("choice %d = %q, want %q", i, record.AnswerChoices[i], choice)
		}
	}

	if record.CorrectAnswer != "C" {
		t.Errorf("correct answer = %q, want C", record.CorrectAnswer)
	}
	if record.QuestionType != taxonomy.TypePS {
		t.Errorf("question type = %q", record.QuestionType)
	}
	if record.SourceURL != "https://gre.myprepclub.com/forum/test-question-1.html" {
		t.Errorf("source url = %q", record.SourceURL)
	}
}

func TestExtractQuantitativeComparison(t *testing.T) {
	html := `<html><body>
<div class="post"><div class="item text">
  x is an integer greater than zero and less than ten in this problem.
  Quantity A: 2x + 3
  Quantity B: 3x - 2
  (A) Quantity A is greater (B) Quantity B is greater (C) The two quantities are equal (D) The relationship cannot be determined
</div></div>
</body></html>`

	e := newExtractor()
	record, err := e.Extract(makeResp(html))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if record.QuestionType != taxonomy.TypeQCQ {
		t.Errorf("question type = %q, want QCQ", record.QuestionType)
	}
}

func TestExtractNumberedChoicesFallback(t *testing.T) {
	html := `<html><body>
<div class="post"><div class="item text">
  A rectangle has a perimeter of 24 and its length is twice its width. What is its area?
  1) 16
  2) 24
  3) 32
</div></div>
</body></html>`

	e := newExtractor()
	record, err := e.Extract(makeResp(html))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(record.AnswerChoices) != 3 {
		t.Fatalf("choices = %v", record.AnswerChoices)
	}
	if record.AnswerChoices[0] != "16" || record.AnswerChoices[2] != "32" {
		t.Errorf("choices = %v", record.AnswerChoices)
	}
}

func TestExtractTooShortRejected(t *testing.T) {
	html := `<html><body>
<div class="post"><div class="item text">Too short.</div></div>
</body></html>`

	e := newExtractor()
	_, err := e.Extract(makeResp(html))
	if err == nil {
		t.Fatal("expected rejection")
	}
	if !errors.Is(err, types.ErrContentTooShort) {
		t.Errorf("expected ErrContentTooShort, got %v", err)
	}
	var ee *types.ExtractError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExtractError, got %T", err)
	}
	if ee.Stage != "validate" {
		t.Errorf("stage = %q", ee.Stage)
	}
}

func TestExtractBoilerplateRejected(t *testing.T) {
	html := `<html><body>
<div class="post"><div class="item text">
  Forum navigation links and other chrome that somehow ended up selected as the question region of this page.
</div></div>
</body></html>`

	e := newExtractor()
	_, err := e.Extract(makeResp(html))
	if !errors.Is(err, types.ErrBoilerplate) {
		t.Errorf("expected ErrBoilerplate, got %v", err)
	}
}

func TestExtractOfficialAnswerOutsideRegion(t *testing.T) {
	// The OA marker sits in a footer outside the content region; the
	// whole-document text search must still find it.
	html := `<html><body>
<div class="post"><div class="item text">
  What is the remainder when 7 to the power of 12 is divided by 5?
  (A) 0 (B) 1 (C) 2 (D) 3 (E) 4
</div></div>
<div class="footer">OA: B</div>
</body></html>`

	e := newExtractor()
	record, err := e.Extract(makeResp(html))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if record.CorrectAnswer != "B" {
		t.Errorf("correct answer = %q, want B", record.CorrectAnswer)
	}
}

func TestExtractExplanationSection(t *testing.T) {
	html := `<html><body>
<div class="post"><div class="item text">
  If a fair coin is flipped three times, what is the probability of exactly two heads?
  (A) 1/8 (B) 3/8 (C) 1/2
</div></div>
<div class="explanation">There are three favorable outcomes out of eight equally likely ones, so the probability is 3/8.</div>
</body></html>`

	e := newExtractor()
	record, err := e.Extract(makeResp(html))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(record.Explanation, "three favorable outcomes") {
		t.Errorf("explanation = %q", record.Explanation)
	}
}

func TestExtractBodyFallback(t *testing.T) {
	// No post wrapper, no item text, no itemprop: the truncated body
	// fallback has to carry the page.
	html := `<html><body>
<div id="main-content">
  <p>` + strings.Repeat("A question statement that lives outside any recognized container. ", 5) + `</p>
</div>
</body></html>`

	e := newExtractor()
	record, err := e.Extract(makeResp(html))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if record.Question == "" {
		t.Fatal("fallback produced no text")
	}
	if len([]rune(record.Question)) > config.DefaultConfig().Extract.BodyFallbackLimit {
		t.Errorf("fallback not truncated: %d runes", len([]rune(record.Question)))
	}
}

func TestSelectRegionRanking(t *testing.T) {
	cases := []struct {
		name string
		html string
		want string
	}{
		{
			"item text wins",
			`<div class="post"><div class="item text">x</div><div class="postbody">y</div></div>`,
			"post_item_text",
		},
		{
			"postbody next",
			`<div class="post"><div class="postbody">y</div></div>`,
			"post_content",
		},
		{
			"itemprop next",
			`<div itemprop="text">z</div>`,
			"itemprop_text",
		},
		{
			"none",
			`<p>just a paragraph</p>`,
			"",
		},
	}
	for _, tc := range cases {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(tc.html))
		if err != nil {
			t.Fatalf("%s: parse: %v", tc.name, err)
		}
		_, strategy := selectRegion(doc)
		if strategy != tc.want {
			t.Errorf("%s: strategy = %q, want %q", tc.name, strategy, tc.want)
		}
	}
}

func TestSubstantialDivStrategy(t *testing.T) {
	long := strings.Repeat("substantive question text goes here and keeps going ", 6)
	html := `<div class="post">
  <div class="nav">short forum chrome</div>
  <div class="misc">` + long + `</div>
</div>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	region, strategy := selectRegion(doc)
	if strategy != "substantial_div" {
		t.Fatalf("strategy = %q", strategy)
	}
	if !strings.Contains(region.Text(), "substantive question text") {
		t.Errorf("wrong region: %q", region.Text())
	}
}

func TestClassifyQuestionType(t *testing.T) {
	cases := []struct {
		question string
		choices  []string
		want     string
	}{
		{"Quantity A: x Quantity B: y", []string{"a", "b", "c", "d"}, taxonomy.TypeQCQ},
		{"Select all that apply.", []string{"a", "b", "c"}, taxonomy.TypeMAC},
		{"Which values work?", []string{"a", "b", "c", "d", "e", "f"}, taxonomy.TypeMAC},
		{"Enter your answer in the box.", nil, taxonomy.TypeNE},
		{"What is 2 + 2?", []string{"3", "4", "5"}, taxonomy.TypePS},
		{"Mysterious question with nothing to go on.", nil, taxonomy.TypeUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyQuestionType(tc.question, tc.choices); got != tc.want {
			t.Errorf("ClassifyQuestionType(%q, %d choices) = %q, want %q", tc.question, len(tc.choices), got, tc.want)
		}
	}
}

func TestAnswerChoicesLetteredBeatsNumbered(t *testing.T) {
	text := "Pick one: (A) first option 1) not a choice (B) second option"
	choices := answerChoices(text)
	if len(choices) != 2 {
		t.Fatalf("choices = %v", choices)
	}
	if !strings.HasPrefix(choices[0], "first option") {
		t.Errorf("choices = %v", choices)
	}
}
