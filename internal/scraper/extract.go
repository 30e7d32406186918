package scraper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// selector reads the text of the first match, or an attribute when attr is set.
type selector struct {
	css  string
	attr string
}

type siteSelectors struct {
	address []selector
	price   []selector
	beds    []selector
	baths   []selector
	sqft    []selector
	// rows holding "Label: value" facts such as year built or HOA dues
	factRows string
	// og:title separator before which the address sits
	titleSep string
}

var selectorsBySite = map[Site]siteSelectors{
	SiteRedfin: {
		address: []selector{
			{css: `[data-rf-test-id="abp-streetLine"]`},
			{css: `h1.full-address`},
			{css: `.street-address`},
		},
		price: []selector{
			{css: `[data-rf-test-id="abp-price"] .statsValue`},
			{css: `.price-section .price`},
			{css: `meta[name="twitter:data1"]`, attr: "content"},
		},
		beds: []selector{
			{css: `[data-rf-test-id="abp-beds"] .statsValue`},
			{css: `.beds-section .statsValue`},
		},
		baths: []selector{
			{css: `[data-rf-test-id="abp-baths"] .statsValue`},
			{css: `.baths-section .statsValue`},
		},
		sqft: []selector{
			{css: `[data-rf-test-id="abp-sqFt"] .statsValue`},
			{css: `.sqft-section .statsValue`},
		},
		factRows: `.keyDetails-row, .keyDetailsList .keyDetail, .amenity-group li`,
		titleSep: " | ",
	},
	SiteRealtor: {
		address: []selector{
			{css: `[data-testid="address-line-1"]`},
			{css: `h1[data-testid="address"]`},
			{css: `.address-value`},
		},
		price: []selector{
			{css: `[data-testid="list-price"]`},
			{css: `.list-price`},
			{css: `meta[itemprop="price"]`, attr: "content"},
		},
		beds: []selector{
			{css: `[data-testid="property-meta-beds"] [data-testid="meta-value"]`},
			{css: `li[data-label="property-meta-beds"] span`},
		},
		baths: []selector{
			{css: `[data-testid="property-meta-baths"] [data-testid="meta-value"]`},
			{css: `li[data-label="property-meta-bath"] span`},
		},
		sqft: []selector{
			{css: `[data-testid="property-meta-sqft"] [data-testid="meta-value"]`},
			{css: `li[data-label="property-meta-sqft"] span`},
		},
		factRows: `[data-testid="key-facts"] li, .listing-key-facts li, .property-details li`,
		titleSep: " - ",
	},
}

// Extract parses a listing page. A page without an address or price is an
// ErrExtraction.
func Extract(site Site, url, html string) (Listing, error) {
	sel, ok := selectorsBySite[site]
	if !ok {
		return Listing{}, ErrUnsupportedSite
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Listing{}, fmt.Errorf("%w: parse html: %v", ErrExtraction, err)
	}

	ld := readLinkedData(doc)
	l := Listing{
		URL:       url,
		Site:      site,
		Address:   firstText(doc, sel.address),
		ScrapedAt: time.Now().UTC(),
	}

	if l.Address == "" {
		l.Address = ld.address
	}
	if l.Address == "" {
		l.Address = addressFromTitle(metaContent(doc, "og:title"), sel.titleSep)
	}

	l.Price = firstNumber(doc, sel.price)
	if l.Price == 0 {
		l.Price = ld.price
	}
	l.Beds = firstNumber(doc, sel.beds)
	if l.Beds == 0 {
		l.Beds = ld.beds
	}
	l.Baths = firstNumber(doc, sel.baths)
	l.Sqft = firstNumber(doc, sel.sqft)
	if l.Sqft == 0 {
		l.Sqft = ld.sqft
	}

	facts := readFacts(doc, sel.factRows)
	if v, ok := ParseNumber(facts.get("year built")); ok {
		l.YearBuilt = int(v)
	}
	l.HOAMonthly = monthly(facts.get("hoa"))
	l.PropertyTaxAnnual = annual(facts.get("property tax", "taxes"))
	l.PropertyType = facts.get("property type", "style", "home type")
	l.ImageURL = metaContent(doc, "og:image")

	var missing []string
	if l.Address == "" {
		missing = append(missing, "address")
	}
	if l.Price == 0 {
		missing = append(missing, "price")
	}
	if len(missing) > 0 {
		return l, fmt.Errorf("%w: missing %s", ErrExtraction, strings.Join(missing, " and "))
	}
	return l, nil
}

func firstText(doc *goquery.Document, sels []selector) string {
	for _, s := range sels {
		node := doc.Find(s.css).First()
		if node.Length() == 0 {
			continue
		}
		var text string
		if s.attr != "" {
			text = node.AttrOr(s.attr, "")
		} else {
			text = node.Text()
		}
		if text = cleanText(text); text != "" {
			return text
		}
	}
	return ""
}

func firstNumber(doc *goquery.Document, sels []selector) float64 {
	for _, s := range sels {
		if v, ok := ParseNumber(firstText(doc, []selector{s})); ok {
			return v
		}
	}
	return 0
}

func metaContent(doc *goquery.Document, property string) string {
	content := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).AttrOr("content", "")
	if content == "" {
		content = doc.Find(fmt.Sprintf(`meta[name=%q]`, property)).AttrOr("content", "")
	}
	return cleanText(content)
}

func addressFromTitle(title, sep string) string {
	if title == "" {
		return ""
	}
	if i := strings.Index(title, sep); i > 0 {
		title = title[:i]
	}
	// titles without a street number are page names, not addresses
	if !strings.ContainsAny(title[:1], "0123456789") {
		return ""
	}
	return strings.TrimSpace(title)
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func cleanText(s string) string {
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(s, " "))
}

type fact struct {
	label string
	value string
}

type facts []fact

// get returns the value of the first fact whose label contains any of names.
func (f facts) get(names ...string) string {
	for _, name := range names {
		for _, fc := range f {
			if strings.Contains(fc.label, name) {
				return fc.value
			}
		}
	}
	return ""
}

func readFacts(doc *goquery.Document, rows string) facts {
	var out facts
	if rows == "" {
		return out
	}
	doc.Find(rows).Each(func(_ int, row *goquery.Selection) {
		label, value := splitFact(row)
		if label != "" && value != "" {
			out = append(out, fact{label: label, value: value})
		}
	})
	return out
}

// splitFact handles both "<span>Label</span><span>Value</span>" rows and
// plain "Label: Value" text.
func splitFact(row *goquery.Selection) (string, string) {
	children := row.Children()
	if children.Length() >= 2 {
		label := cleanText(children.First().Text())
		value := cleanText(children.Last().Text())
		return strings.ToLower(strings.TrimSuffix(label, ":")), value
	}
	text := cleanText(row.Text())
	if i := strings.Index(text, ":"); i > 0 {
		return strings.ToLower(strings.TrimSpace(text[:i])), strings.TrimSpace(text[i+1:])
	}
	return "", ""
}

func monthly(text string) float64 {
	v, ok := ParseNumber(text)
	if !ok {
		return 0
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "/yr") || strings.Contains(lower, "annual") || strings.Contains(lower, "year") {
		return v / 12
	}
	return v
}

func annual(text string) float64 {
	v, ok := ParseNumber(text)
	if !ok {
		return 0
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "/mo") || strings.Contains(lower, "month") {
		return v * 12
	}
	return v
}

var numberPattern = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)(?:\s?([kKmM])(?:[^a-zA-Z]|$))?`)

// ParseNumber reads the first number in listing text such as "$1,250,000",
// "$1.2M", "450K", "2,100 sq ft" or "3-4". Placeholders like "—" report false.
func ParseNumber(s string) (float64, bool) {
	m := numberPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "k":
		v *= 1_000
	case "m":
		v *= 1_000_000
	}
	return v, true
}

type linkedData struct {
	address string
	price   float64
	beds    float64
	sqft    float64
}

// readLinkedData collects schema.org facts from ld+json blocks, which both
// sites embed for search engines.
func readLinkedData(doc *goquery.Document) linkedData {
	var out linkedData
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var raw any
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return
		}
		walkLinkedData(raw, &out)
	})
	return out
}

func walkLinkedData(node any, out *linkedData) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			walkLinkedData(item, out)
		}
	case map[string]any:
		if addr, ok := v["address"].(map[string]any); ok && out.address == "" {
			out.address = postalAddress(addr)
		}
		if offers, ok := v["offers"].(map[string]any); ok && out.price == 0 {
			out.price = number(offers["price"])
		}
		if out.beds == 0 {
			out.beds = number(v["numberOfRooms"])
		}
		if size, ok := v["floorSize"].(map[string]any); ok && out.sqft == 0 {
			out.sqft = number(size["value"])
		}
		for _, key := range []string{"@graph", "mainEntity", "itemOffered"} {
			if child, ok := v[key]; ok {
				walkLinkedData(child, out)
			}
		}
	}
}

func postalAddress(addr map[string]any) string {
	var parts []string
	for _, key := range []string{"streetAddress", "addressLocality"} {
		if s, ok := addr[key].(string); ok && strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	region, _ := addr["addressRegion"].(string)
	postal, _ := addr["postalCode"].(string)
	if tail := strings.TrimSpace(region + " " + postal); tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

func number(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		n, _ := ParseNumber(x)
		return n
	}
	return 0
}
