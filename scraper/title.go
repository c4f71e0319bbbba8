package scraper

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/nijaru/yt-summary/apperrors"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	userAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxPageBytes = 6 << 20
)

var errNoTitle = errors.New("no <title> element")

type TitleFetcher struct {
	HTTPClient *http.Client
}

func NewTitleFetcher(timeout time.Duration) *TitleFetcher {
	return &TitleFetcher{HTTPClient: &http.Client{Timeout: timeout}}
}

// Fetch downloads rawURL and returns the text of its first <title> element.
func (f *TitleFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	const op = "TitleFetcher.Fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperrors.TitleUnavailable(op, err, "invalid page URL")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return "", apperrors.TitleUnavailable(op, err, "could not fetch video page")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperrors.TitleUnavailable(op, errors.Errorf("status %d", resp.StatusCode),
			"video page returned an error status")
	}

	title, err := ExtractTitle(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", apperrors.TitleUnavailable(op, err, "video page has no title")
	}

	logrus.WithFields(logrus.Fields{
		"url":   rawURL,
		"title": title,
	}).Debug("Title fetched")
	return title, nil
}

// ExtractTitle parses an HTML document and returns its first <title> text.
func ExtractTitle(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", errors.Wrap(err, "parse html")
	}

	sel := doc.Find("title").First()
	if sel.Length() == 0 {
		return "", errNoTitle
	}
	return strings.TrimSpace(sel.Text()), nil
}
