package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// regionStrategy is one way of locating the question's content region on
// a thread page. Strategies are tried in rank order of decreasing
// confidence; each is independently testable by name.
type regionStrategy struct {
	name string
	find func(doc *goquery.Document) *goquery.Selection
}

// regionStrategies is the ranked strategy list. The generic body fallback
// is not part of the list: it produces truncated text rather than a
// region and is handled separately.
var regionStrategies = []regionStrategy{
	{name: "post_item_text", find: findPostItemText},
	{name: "post_content", find: findPostContent},
	{name: "itemprop_text", find: findItemprop},
	{name: "substantial_div", find: findSubstantialDiv},
}

// findPostItemText locates an "item text" container inside a post
// wrapper, the forum's primary markup for question bodies.
func findPostItemText(doc *goquery.Document) *goquery.Selection {
	var region *goquery.Selection
	doc.Find("div[class*='post']").EachWithBreak(func(_ int, wrapper *goquery.Selection) bool {
		itemText := wrapper.Find("div.item.text").First()
		if itemText.Length() > 0 {
			region = itemText
			return false
		}
		return true
	})
	return region
}

// findPostContent falls back to a content/postbody div inside the first
// post wrapper.
func findPostContent(doc *goquery.Document) *goquery.Selection {
	wrapper := doc.Find("div[class*='post']").First()
	if wrapper.Length() == 0 {
		return nil
	}
	content := wrapper.Find("div[class*='content'], div[class*='postbody']").First()
	if content.Length() == 0 {
		return nil
	}
	return content
}

// findItemprop uses the schema.org text annotation when present.
func findItemprop(doc *goquery.Document) *goquery.Selection {
	sel := doc.Find("div[itemprop='text']").First()
	if sel.Length() == 0 {
		return nil
	}
	return sel
}

// findSubstantialDiv scores divs inside the first post wrapper and picks
// the first one with enough text that does not open with navigation
// boilerplate.
func findSubstantialDiv(doc *goquery.Document) *goquery.Selection {
	wrapper := doc.Find("div[class*='post']").First()
	if wrapper.Length() == 0 {
		return nil
	}

	var region *goquery.Selection
	wrapper.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		text := strings.TrimSpace(div.Text())
		if len(text) <= 200 {
			return true
		}
		head := strings.ToLower(text)
		if len(head) > 100 {
			head = head[:100]
		}
		if strings.Contains(head, "forum") || strings.Contains(head, "navigation") {
			return true
		}
		region = div
		return false
	})
	return region
}

// selectRegion tries each strategy in rank order and returns the first
// hit together with the strategy's name.
func selectRegion(doc *goquery.Document) (*goquery.Selection, string) {
	for _, strat := range regionStrategies {
		if region := strat.find(doc); region != nil {
			return region, strat.name
		}
	}
	return nil, ""
}
