// Package shopping builds retailer search links for a styling profile.
package shopping

import "strings"

// Retailer base URLs
const (
	AmazonBase = "https://www.amazon.in/s?k="
	MyntraBase = "https://www.myntra.com/"
	ZaraBase   = "https://www.zara.com/in/"
)

// Links holds one URL per retailer
type Links struct {
	Amazon string `json:"Amazon"`
	Myntra string `json:"Myntra"`
	Zara   string `json:"Zara"`
}

// Link is a single labelled shopping link
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Query returns the search phrase for a gender and skin tone
func Query(gender, skinTone string) string {
	return gender + " " + skinTone + " fashion outfit"
}

// BuildLinks templates the retailer links for gender and skinTone
func BuildLinks(gender, skinTone string) Links {
	q := Query(gender, skinTone)
	return Links{
		Amazon: AmazonBase + strings.ReplaceAll(q, " ", "+"),
		Myntra: MyntraBase + strings.ReplaceAll(q, " ", "-"),
		Zara:   ZaraBase,
	}
}

// AmazonLink returns the Amazon search as a named link
func (l Links) AmazonLink() Link {
	return Link{Name: "Shop on Amazon", URL: l.Amazon}
}

// Map returns the links keyed by retailer name
func (l Links) Map() map[string]string {
	return map[string]string{
		"Amazon": l.Amazon,
		"Myntra": l.Myntra,
		"Zara":   l.Zara,
	}
}
