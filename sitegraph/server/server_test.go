package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(ServerTestSuite))

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

type ServerTestSuite struct {
	svc *Service
}

func (s *ServerTestSuite) SetUpTest(c *gc.C) {
	site := fstest.MapFS{
		"index.html":       {Data: []byte("<p>home</p>")},
		"graph_data.json":  {Data: []byte(`{"nodes":[],"links":[]}`)},
		"a/sub/logo.png":   {Data: []byte("nested-logo")},
		"pics/logo.png":    {Data: []byte("pics-logo")},
		"pics/photo.JPEG":  {Data: []byte("photo")},
		"docs/readme.html": {Data: []byte("readme")},
	}

	var err error
	s.svc, err = NewService(Config{FS: site})
	c.Assert(err, gc.IsNil)
}

func (s *ServerTestSuite) TestServeExistingFile(c *gc.C) {
	res := s.do(http.MethodGet, "/graph_data.json")
	c.Assert(res.Code, gc.Equals, http.StatusOK)
	c.Assert(res.Body.String(), gc.Equals, `{"nodes":[],"links":[]}`)
	c.Assert(res.Header().Get("Access-Control-Allow-Origin"), gc.Equals, "*")
}

func (s *ServerTestSuite) TestIndexServedWithoutRedirect(c *gc.C) {
	res := s.do(http.MethodGet, "/index.html")
	c.Assert(res.Code, gc.Equals, http.StatusOK)
	c.Assert(res.Body.String(), gc.Equals, "<p>home</p>")
	c.Assert(res.Header().Get("Location"), gc.Equals, "")
	c.Assert(res.Header().Get("Access-Control-Allow-Origin"), gc.Equals, "*")

	res = s.do(http.MethodGet, "/")
	c.Assert(res.Code, gc.Equals, http.StatusOK)
	c.Assert(res.Body.String(), gc.Equals, "<p>home</p>")
}

func (s *ServerTestSuite) TestQueryStringIgnored(c *gc.C) {
	res := s.do(http.MethodGet, "/docs/readme.html?v=2")
	c.Assert(res.Code, gc.Equals, http.StatusOK)
	c.Assert(res.Body.String(), gc.Equals, "readme")
}

func (s *ServerTestSuite) TestPreflight(c *gc.C) {
	res := s.do(http.MethodOptions, "/graph_data.json")
	c.Assert(res.Code, gc.Equals, http.StatusOK)
	c.Assert(res.Header().Get("Access-Control-Allow-Origin"), gc.Equals, "*")
	c.Assert(res.Header().Get("Access-Control-Allow-Methods"), gc.Equals, "GET, OPTIONS")
	c.Assert(res.Header().Get("Access-Control-Allow-Headers"), gc.Equals, "X-Requested-With")
	c.Assert(res.Body.Len(), gc.Equals, 0)
}

func (s *ServerTestSuite) TestImageFallbackUsesFirstTopDownMatch(c *gc.C) {
	res := s.do(http.MethodGet, "/images/logo.png")
	c.Assert(res.Code, gc.Equals, http.StatusOK)
	c.Assert(res.Body.String(), gc.Equals, "nested-logo")
	c.Assert(res.Header().Get("Access-Control-Allow-Origin"), gc.Equals, "*")
}

func (s *ServerTestSuite) TestImageFallbackIgnoresExtensionCase(c *gc.C) {
	res := s.do(http.MethodGet, "/gallery/photo.JPEG")
	c.Assert(res.Code, gc.Equals, http.StatusOK)
	c.Assert(res.Body.String(), gc.Equals, "photo")
}

func (s *ServerTestSuite) TestMissingImageWithoutMatch(c *gc.C) {
	res := s.do(http.MethodGet, "/images/none.gif")
	c.Assert(res.Code, gc.Equals, http.StatusNotFound)
	c.Assert(res.Header().Get("Access-Control-Allow-Origin"), gc.Equals, "*")
}

func (s *ServerTestSuite) TestMissingNonImageIsNotSearched(c *gc.C) {
	res := s.do(http.MethodGet, "/elsewhere/readme.html")
	c.Assert(res.Code, gc.Equals, http.StatusNotFound)
}

func (s *ServerTestSuite) TestUnsupportedMethodKeepsCORSHeader(c *gc.C) {
	res := s.do(http.MethodPost, "/index.html")
	c.Assert(res.Code, gc.Equals, http.StatusMethodNotAllowed)
	c.Assert(res.Header().Get("Access-Control-Allow-Origin"), gc.Equals, "*")
}

func (s *ServerTestSuite) TestFindFile(c *gc.C) {
	site := fstest.MapFS{
		"b/x.gif":      {Data: []byte("b")},
		"a/deep/x.gif": {Data: []byte("a")},
		"x.gif/y":      {Data: []byte("dir named like the target")},
	}
	c.Assert(findFile(site, "x.gif"), gc.Equals, "a/deep/x.gif")
	c.Assert(findFile(site, "y"), gc.Equals, "x.gif/y")
	c.Assert(findFile(site, "z.gif"), gc.Equals, "")
}

func (s *ServerTestSuite) TestSiteRelative(c *gc.C) {
	c.Assert(siteRelative("/"), gc.Equals, ".")
	c.Assert(siteRelative("/a/../b.png"), gc.Equals, "b.png")
	c.Assert(siteRelative("/../../etc/passwd"), gc.Equals, "etc/passwd")
}

func (s *ServerTestSuite) TestMissingRoot(c *gc.C) {
	_, err := NewService(Config{Root: c.MkDir() + "/missing"})
	c.Assert(err, gc.ErrorMatches, "server: config validation failed: unable to access site root.*")
}

func (s *ServerTestSuite) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	res := httptest.NewRecorder()
	s.svc.ServeHTTP(res, req)
	return res
}
