// Package extractor reads the local links out of HTML documents.
package extractor

import (
	"io"
	"io/fs"
	"io/ioutil"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/xerrors"
)

// ErrUndecodable is reported for documents that none of the configured
// encodings could decode.
var ErrUndecodable = xerrors.New("no supported encoding could decode the document")

var nonLocalPrefixes = []string{"mailto:", "#", "javascript:"}

// Normalizer is implemented by types that can canonicalize an href found
// inside the document at base.
type Normalizer interface {
	NormalizeFrom(raw, base string) string
}

// Config encapsulates the settings for configuring the link extractor.
type Config struct {
	// The file system that documents are read from.
	FS fs.FS

	// The normalizer applied to every accepted href.
	Normalizer Normalizer

	// The encodings to attempt in priority order. If not specified,
	// DefaultEncodings will be used instead.
	Encodings []Encoding

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.FS == nil {
		err = multierror.Append(err, xerrors.Errorf("file system has not been provided"))
	}
	if cfg.Normalizer == nil {
		err = multierror.Append(err, xerrors.Errorf("path normalizer has not been provided"))
	}
	if len(cfg.Encodings) == 0 {
		cfg.Encodings = DefaultEncodings
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Result captures the outcome of extracting links from a single document.
type Result struct {
	// Path of the document inside the extractor's file system.
	Path string

	// Normalized local links in document order, duplicates retained.
	Links []string

	// Name of the encoding the document was decoded with.
	Encoding string

	// Err is set when the document had to be skipped.
	Err error
}

// Skipped returns true if no links could be extracted because of an error.
func (r *Result) Skipped() bool { return r.Err != nil }

// Extractor pulls local anchor links out of HTML documents.
type Extractor struct {
	cfg Config
}

// New creates a new link extractor with the specified config.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("link extractor: config validation failed: %w", err)
	}
	return &Extractor{cfg: cfg}, nil
}

// Extract returns the normalized local links of the document at path. It
// never fails hard: undecodable or unreadable documents produce a Result
// with no links and a non-nil Err, and a warning is logged.
func (e *Extractor) Extract(path string) *Result {
	res := &Result{Path: path}
	logger := e.cfg.Logger.WithField("file", path)

	raw, err := fs.ReadFile(e.cfg.FS, path)
	if err != nil {
		res.Err = xerrors.Errorf("read document: %w", err)
		logger.WithError(err).Warnf("Error processing %s", path)
		return res
	}

	text, encName, err := decode(raw, e.cfg.Encodings)
	if err != nil {
		res.Err = err
		logger.Warnf("Could not decode %s with any supported encoding", path)
		return res
	}
	res.Encoding = encName

	hrefs, err := anchorHrefs(text)
	if err != nil {
		res.Err = xerrors.Errorf("parse document: %w", err)
		logger.WithError(err).Warnf("Error processing %s", path)
		return res
	}

	for _, href := range hrefs {
		if !IsLocalLink(href) {
			continue
		}
		res.Links = append(res.Links, e.cfg.Normalizer.NormalizeFrom(href, path))
	}
	return res
}

// IsLocalLink returns true if href refers to a document of the local site:
// it is non-empty, carries no network location and is neither a mail,
// fragment-only nor javascript link.
func IsLocalLink(href string) bool {
	if href == "" || hasNetworkLocation(href) {
		return false
	}
	for _, prefix := range nonLocalPrefixes {
		if strings.HasPrefix(href, prefix) {
			return false
		}
	}
	return true
}

func hasNetworkLocation(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		// Unparsable refs are classified by the presence of an authority.
		return strings.HasPrefix(href, "//") || strings.Contains(href, "://")
	}
	return u.Host != ""
}

// anchorHrefs returns the href value of every <a> tag as it appears in the
// markup, in source order. Tags are read from the token stream rather than
// a parsed tree, so misnested or unclosed anchors are never duplicated or
// moved. When a tag repeats the attribute, the last value wins.
func anchorHrefs(doc string) ([]string, error) {
	var hrefs []string
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			return hrefs, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if atom.Lookup(name) != atom.A || !hasAttr {
				continue
			}
			if href := lastHref(z); href != "" {
				hrefs = append(hrefs, href)
			}
		}
	}
}

func lastHref(z *html.Tokenizer) string {
	var href string
	for more := true; more; {
		var key, val []byte
		key, val, more = z.TagAttr()
		if string(key) == "href" {
			href = string(val)
		}
	}
	return href
}
