package scrape

import (
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rumoo/internal/model"
)

// genericTypes are schema.org types that say nothing about the dwelling.
var genericTypes = map[string]bool{
	"Product": true, "Place": true, "Offer": true, "Residence": true,
	"RealEstateListing": true, "Thing": true, "WebPage": true,
}

// ParseListingHTML extracts listing fields from a listing page. JSON-LD
// blocks are preferred; Open Graph tags fill in whatever they leave empty.
func ParseListingHTML(pageURL string, r io.Reader) (*model.ListingCapture, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}

	lc := &model.ListingCapture{SourceURL: pageURL}

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return true
		}
		for _, node := range ldNodes(v) {
			if applyLDNode(lc, node) {
				return false
			}
		}
		return true
	})

	meta := func(prop string) string {
		val, _ := doc.Find(`meta[property="` + prop + `"]`).First().Attr("content")
		return strings.TrimSpace(val)
	}
	if lc.Title == "" {
		lc.Title = meta("og:title")
	}
	if lc.Title == "" {
		lc.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if lc.Description == "" {
		lc.Description = meta("og:description")
	}
	if lc.Price == nil {
		if p, ok := toFloat(meta("product:price:amount")); ok {
			lc.Price = &p
		}
	}
	if len(lc.ImageURLs) == 0 {
		doc.Find(`meta[property="og:image"]`).Each(func(_ int, s *goquery.Selection) {
			if src, ok := s.Attr("content"); ok && src != "" {
				lc.ImageURLs = append(lc.ImageURLs, src)
			}
		})
	}
	lc.ImageURLs = capImages(lc.ImageURLs)
	return lc, nil
}

// ldNodes flattens a decoded JSON-LD value into its object nodes.
func ldNodes(v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		var out []map[string]any
		for _, item := range t {
			out = append(out, ldNodes(item)...)
		}
		return out
	case map[string]any:
		if graph, ok := t["@graph"]; ok {
			return ldNodes(graph)
		}
		return []map[string]any{t}
	}
	return nil
}

// applyLDNode copies a dwelling node into lc. It reports whether the node
// carried a street address.
func applyLDNode(lc *model.ListingCapture, node map[string]any) bool {
	addr, ok := node["address"].(map[string]any)
	if !ok {
		return false
	}
	street := str(addr["streetAddress"])
	if street == "" {
		return false
	}
	lc.Address = JoinAddress(street, str(addr["addressLocality"]), str(addr["addressRegion"]), str(addr["postalCode"]))
	lc.Title = str(node["name"])
	lc.Description = str(node["description"])

	if t := str(node["@type"]); t != "" && !genericTypes[t] {
		lc.PropertyType = HumanizeType(splitCamel(t))
	}
	if n, ok := toFloat(first(node, "numberOfBedrooms", "numberOfRooms")); ok {
		beds := int(n)
		lc.Beds = &beds
	}
	if n, ok := toFloat(first(node, "numberOfBathroomsTotal", "numberOfFullBathrooms")); ok {
		lc.Baths = &n
	}
	if fs, ok := node["floorSize"].(map[string]any); ok {
		if n, ok := toFloat(fs["value"]); ok {
			sqft := int(math.Round(n))
			lc.Sqft = &sqft
		}
	}
	if n, ok := toFloat(node["yearBuilt"]); ok {
		year := int(n)
		lc.YearBuilt = &year
	}
	if offers, ok := node["offers"].(map[string]any); ok {
		if n, ok := toFloat(offers["price"]); ok {
			lc.Price = &n
		}
	}
	lc.ImageURLs = images(node["image"])
	return true
}

func first(node map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := node[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		if len(t) > 0 {
			return str(t[0])
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(t)
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		return f, err == nil
	case map[string]any:
		return toFloat(t["value"])
	}
	return 0, false
}

func images(v any) []string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return []string{t}
		}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, images(item)...)
		}
		return out
	case map[string]any:
		return images(t["url"])
	}
	return nil
}

// splitCamel turns SingleFamilyResidence into Single_Family_Residence.
func splitCamel(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return b.String()
}
