package reveal

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Markup conventions shared with the browser script.
const (
	TargetClass = "animate-on-scroll"
	RevealClass = "animate-fade-in-up"
	IDAttr      = "data-reveal-id"
)

var crawlerHints = []string{"bot", "crawl", "spider", "slurp", "facebookexternalhit", "linkcheck", "preview"}

// NeedsServerReveal reports whether the client is unlikely to run the reveal
// script, in which case targets must be revealed before the page is sent.
func NeedsServerReveal(r *http.Request) bool {
	if r.URL.Query().Get("nojs") == "1" {
		return true
	}
	ua := strings.ToLower(r.UserAgent())
	if ua == "" {
		return true
	}
	for _, hint := range crawlerHints {
		if strings.Contains(ua, hint) {
			return true
		}
	}
	return false
}

// Result summarizes an Annotate pass.
type Result struct {
	Targets  int
	Revealed int
}

// Annotate stamps every reveal target in the HTML read from r with a stable
// id and writes the document to w. With revealAll the targets are pushed
// through an Observer at full visibility so they carry the reveal class.
func Annotate(r io.Reader, w io.Writer, revealAll bool) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("parse page: %w", err)
	}

	targets := doc.Find("." + TargetClass)
	ids := make([]string, 0, targets.Length())
	byID := make(map[string]*goquery.Selection, targets.Length())
	targets.Each(func(i int, s *goquery.Selection) {
		id := "r" + strconv.Itoa(i)
		s.SetAttr(IDAttr, id)
		ids = append(ids, id)
		byID[id] = s
	})

	res := Result{Targets: len(ids)}
	if revealAll && len(ids) > 0 {
		obs := NewObserver(DefaultThreshold)
		obs.Observe(ids...)
		entries := make([]Entry, len(ids))
		for i, id := range ids {
			entries[i] = Entry{ID: id, Ratio: 1}
		}
		for _, id := range obs.Update(entries...) {
			byID[id].AddClass(RevealClass)
			res.Revealed++
		}
		obs.Disconnect()
	}

	html, err := doc.Html()
	if err != nil {
		return Result{}, fmt.Errorf("render page: %w", err)
	}
	if _, err := io.WriteString(w, html); err != nil {
		return Result{}, fmt.Errorf("write page: %w", err)
	}
	return res, nil
}
