package extractor

import (
	"testing"
	"testing/fstest"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"

	"sitegraph/linkgraph/pathnorm"
)

var _ = gc.Suite(new(ExtractorTestSuite))

func Test(t *testing.T) { gc.TestingT(t) }

type ExtractorTestSuite struct {
	fsys    fstest.MapFS
	logHook *test.Hook
	ex      *Extractor
}

func (s *ExtractorTestSuite) SetUpTest(c *gc.C) {
	s.fsys = fstest.MapFS{}
	s.ex = s.newExtractor(c, nil)
}

func (s *ExtractorTestSuite) newExtractor(c *gc.C, encodings []Encoding) *Extractor {
	norm, err := pathnorm.New("/site", pathnorm.FSPathKind{FS: s.fsys})
	c.Assert(err, gc.IsNil)

	logger, hook := test.NewNullLogger()
	s.logHook = hook
	ex, err := New(Config{
		FS:         s.fsys,
		Normalizer: norm,
		Encodings:  encodings,
		Logger:     logrus.NewEntry(logger),
	})
	c.Assert(err, gc.IsNil)
	return ex
}

func (s *ExtractorTestSuite) TestIsLocalLink(c *gc.C) {
	rejected := []string{
		"",
		"https://example.com/x",
		"http://example.com",
		"//cdn.example.com/lib.js",
		"mailto:a@b.com",
		"#top",
		"javascript:void(0)",
	}
	for _, href := range rejected {
		c.Assert(IsLocalLink(href), gc.Equals, false, gc.Commentf("href %q", href))
	}

	accepted := []string{"page.html", "../sibling.html", "/abs/page.html", "docs/", "?page=2", "file:///tmp/x.html"}
	for _, href := range accepted {
		c.Assert(IsLocalLink(href), gc.Equals, true, gc.Commentf("href %q", href))
	}
}

func (s *ExtractorTestSuite) TestExtractDocumentOrder(c *gc.C) {
	s.fsys["docs/index.html"] = &fstest.MapFile{Data: []byte(`<html><body>
<nav><a href="../index.html">Home</a><a href="about.html">About</a></nav>
<p>See <a href="about.html#team">the team</a> and <a href="https://example.com">elsewhere</a>.</p>
<a href="mailto:me@example.com">mail</a><a href="#top">top</a><a>no href</a><a href="">empty</a>
<div><a href="guide/">Guide</a><a href="javascript:void(0)">js</a><a href="faq?lang=en">FAQ</a></div>
</body></html>`)}

	res := s.ex.Extract("docs/index.html")
	c.Assert(res.Err, gc.IsNil)
	c.Assert(res.Skipped(), gc.Equals, false)
	c.Assert(res.Encoding, gc.Equals, "utf-8")
	c.Assert(res.Links, gc.DeepEquals, []string{
		"index.html",
		"docs/about.html",
		"docs/about.html",
		"docs/guide/index.html",
		"docs/faq.html",
	})
	c.Assert(s.logHook.AllEntries(), gc.HasLen, 0)
}

func (s *ExtractorTestSuite) TestMalformedMarkup(c *gc.C) {
	s.fsys["broken.html"] = &fstest.MapFile{Data: []byte(`<div><a href="one.html">one</a></span></b><p>text<a href=two.html>two</a><ul><li><a href='three'>three</a><li>x</div`)}

	res := s.ex.Extract("broken.html")
	c.Assert(res.Err, gc.IsNil)
	c.Assert(res.Links, gc.DeepEquals, []string{"one.html", "two.html", "three.html"})

	// Each literal anchor tag yields exactly one link in source order, no
	// matter how the markup around it is nested.
	cases := []struct {
		markup string
		exp    []string
	}{
		{`<p><a href="x.html">x</p><p>y</p><p>z</p>`, []string{"x.html"}},
		{`<b><a href="y.html">one</b>two`, []string{"y.html"}},
		{`<table><tr><td><a href="1.html">1</a></td></tr><a href="2.html">2</a></table>`, []string{"1.html", "2.html"}},
		{`<a href="first.html" href="second.html">dup</a>`, []string{"second.html"}},
		{`<script>var s = '<a href="fake.html">';</script><!-- <a href="old.html"> --><a href="real.html">`, []string{"real.html"}},
	}
	for _, tc := range cases {
		s.fsys["nested.html"] = &fstest.MapFile{Data: []byte(tc.markup)}
		res = s.ex.Extract("nested.html")
		c.Assert(res.Err, gc.IsNil)
		c.Assert(res.Links, gc.DeepEquals, tc.exp, gc.Commentf("markup %q", tc.markup))
	}
}

func (s *ExtractorTestSuite) TestLatin1Fallback(c *gc.C) {
	// 0xE9 is a lone continuation-less byte in UTF-8 but "é" in latin1.
	s.fsys["cafe.html"] = &fstest.MapFile{Data: []byte("<p>caf\xe9</p><a href=\"menu.html\">menu</a>")}

	res := s.ex.Extract("cafe.html")
	c.Assert(res.Err, gc.IsNil)
	c.Assert(res.Encoding, gc.Equals, "latin1")
	c.Assert(res.Links, gc.DeepEquals, []string{"menu.html"})
}

func (s *ExtractorTestSuite) TestUndecodable(c *gc.C) {
	failing := Encoding{Name: "never", Decode: func([]byte) (string, error) {
		return "", xerrors.New("nope")
	}}
	ex := s.newExtractor(c, []Encoding{failing, failing})
	s.fsys["odd.html"] = &fstest.MapFile{Data: []byte(`<a href="x.html">x</a>`)}

	res := ex.Extract("odd.html")
	c.Assert(res.Skipped(), gc.Equals, true)
	c.Assert(xerrors.Is(res.Err, ErrUndecodable), gc.Equals, true)
	c.Assert(res.Links, gc.HasLen, 0)
	c.Assert(s.logHook.LastEntry(), gc.NotNil)
	c.Assert(s.logHook.LastEntry().Level, gc.Equals, logrus.WarnLevel)
	c.Assert(s.logHook.LastEntry().Message, gc.Equals, "Could not decode odd.html with any supported encoding")
}

func (s *ExtractorTestSuite) TestUnreadableDocument(c *gc.C) {
	res := s.ex.Extract("missing.html")
	c.Assert(res.Skipped(), gc.Equals, true)
	c.Assert(res.Links, gc.HasLen, 0)
	c.Assert(s.logHook.LastEntry(), gc.NotNil)
	c.Assert(s.logHook.LastEntry().Message, gc.Equals, "Error processing missing.html")
}

func (s *ExtractorTestSuite) TestConfigValidation(c *gc.C) {
	_, err := New(Config{})
	c.Assert(err, gc.ErrorMatches, "(?s)link extractor: config validation failed: .*file system has not been provided.*path normalizer has not been provided.*")
}
