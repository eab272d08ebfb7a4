// Package fetcher locates the dataset archive on its listing page and downloads
// it into the local download directory.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"

	"github.com/jo-hoe/imageset/internal/failure"
	"golang.org/x/net/html"
)

const (
	DefaultBaseURL     = "https://www.cs.toronto.edu/~kriz/"
	DefaultListingPage = "cifar.html"
	DefaultSuffix      = "python.tar.gz"
)

// Resolver picks a dataset archive link from an HTML listing page.
type Resolver struct {
	baseURL     string
	listingPage string
	suffix      string
	client      *http.Client
	rng         *rand.Rand
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverClient sets the HTTP client used for the listing request.
func WithResolverClient(client *http.Client) ResolverOption {
	return func(r *Resolver) {
		r.client = client
	}
}

// WithRand pins the random source used to choose between candidates.
func WithRand(rng *rand.Rand) ResolverOption {
	return func(r *Resolver) {
		r.rng = rng
	}
}

// NewResolver creates a Resolver. Empty arguments fall back to the CIFAR defaults.
func NewResolver(baseURL, listingPage, suffix string, opts ...ResolverOption) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if listingPage == "" {
		listingPage = DefaultListingPage
	}
	if suffix == "" {
		suffix = DefaultSuffix
	}
	r := &Resolver{
		baseURL:     baseURL,
		listingPage: listingPage,
		suffix:      suffix,
		client:      http.DefaultClient,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = http.DefaultClient
	}
	return r
}

// ResolveSourceURL fetches the listing page and returns the absolute URL and
// the raw href of one randomly chosen anchor whose href contains the suffix.
func (r *Resolver) ResolveSourceURL(ctx context.Context) (string, string, error) {
	const op = "resolve source url"

	base, err := url.Parse(r.baseURL)
	if err != nil {
		return "", "", failure.New(failure.KindSourceUnavailable, op, fmt.Errorf("invalid base url %q: %w", r.baseURL, err))
	}
	listing := base.JoinPath(r.listingPage)
	listingURL := listing.String()

	slog.Debug("fetching listing page", "url", listingURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return "", "", failure.New(failure.KindSourceUnavailable, op, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", "", failure.New(failure.KindSourceUnavailable, op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", failure.Newf(failure.KindSourceUnavailable, op, "listing page %s returned status %d", listingURL, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", "", failure.New(failure.KindSourceUnavailable, op, fmt.Errorf("failed to parse listing page: %w", err))
	}

	candidates := filterHrefs(anchorHrefs(doc), r.suffix)
	if len(candidates) == 0 {
		return "", "", failure.Newf(failure.KindNoCandidates, op, "no link on %s contains %q", listingURL, r.suffix)
	}

	var pick int
	if r.rng != nil {
		pick = r.rng.IntN(len(candidates))
	} else {
		pick = rand.IntN(len(candidates))
	}
	href := candidates[pick]

	ref, err := url.Parse(href)
	if err != nil {
		return "", "", failure.New(failure.KindSourceUnavailable, op, fmt.Errorf("invalid href %q: %w", href, err))
	}
	// hrefs are relative to the listing page, not to the configured base
	fullURL := listing.ResolveReference(ref).String()

	slog.Info("resolved dataset archive", "url", fullURL, "candidates", len(candidates))
	return fullURL, href, nil
}

// anchorHrefs collects the href attribute of every <a> element in document order.
func anchorHrefs(n *html.Node) []string {
	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					hrefs = append(hrefs, attr.Val)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return hrefs
}

func filterHrefs(hrefs []string, suffix string) []string {
	var out []string
	for _, h := range hrefs {
		if strings.Contains(h, suffix) {
			out = append(out, h)
		}
	}
	return out
}
