package routes_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"gorm.io/gorm"

	"github.com/addistalk/addistalk/config"
	"github.com/addistalk/addistalk/internal/testutil"
	"github.com/addistalk/addistalk/models"
	"github.com/addistalk/addistalk/routes"
	"github.com/addistalk/addistalk/utils"
)

type site struct {
	t   *testing.T
	db  *gorm.DB
	srv *httptest.Server
	h   http.Handler
}

func newSite(t *testing.T, mutate ...func(*config.AppConfig)) *site {
	t.Helper()
	cfg := testutil.Config()
	for _, m := range mutate {
		m(&cfg)
	}
	config.Set(cfg)
	testutil.NoRedis(t)
	db := testutil.DB(t)
	h := routes.SetupRouter(db)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &site{t: t, db: db, srv: srv, h: h}
}

// browser returns a cookie-keeping client, signed in as user when it is not nil.
func (s *site) browser(user *models.User) *http.Client {
	s.t.Helper()
	jar, err := cookiejar.New(nil)
	qt.Assert(s.t, err, qt.IsNil)
	if user != nil {
		tok, err := utils.GenerateToken(user.ID, user.Username, time.Hour)
		qt.Assert(s.t, err, qt.IsNil)
		u, _ := url.Parse(s.srv.URL)
		jar.SetCookies(u, []*http.Cookie{{Name: "token", Value: tok, Path: "/"}})
	}
	return &http.Client{Jar: jar}
}

func noRedirect(c *http.Client) *http.Client {
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return c
}

func (s *site) get(c *http.Client, path string) (*http.Response, string) {
	s.t.Helper()
	resp, err := c.Get(s.srv.URL + path)
	qt.Assert(s.t, err, qt.IsNil)
	return resp, readBody(s.t, resp)
}

func (s *site) post(c *http.Client, path string, form url.Values) (*http.Response, string) {
	s.t.Helper()
	resp, err := c.PostForm(s.srv.URL+path, form)
	qt.Assert(s.t, err, qt.IsNil)
	return resp, readBody(s.t, resp)
}

// api performs a JSON request with an optional bearer token.
func (s *site) api(method, path string, user *models.User, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		tok, err := utils.GenerateToken(user.ID, user.Username, time.Hour)
		qt.Assert(s.t, err, qt.IsNil)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	qt.Assert(t, err, qt.IsNil)
	return string(b)
}

func TestHealth(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)

	rec, body := s.api(http.MethodGet, "/health", nil, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(body["data"], qt.DeepEquals, map[string]interface{}{"status": "ok"})
}

func TestOnlyPublishedPostsAreVisible(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	testutil.Post(t, s.db, "draft", models.StatusDraft)
	testutil.Post(t, s.db, "live", models.StatusPublished)
	anon := s.browser(nil)

	resp, body := s.get(anon, "/")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Contains, "Title live")
	c.Assert(body, qt.Not(qt.Contains), "Title draft")

	resp, body = s.get(anon, "/post/live/")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Contains, "Body of live")

	resp, _ = s.get(anon, "/post/draft/")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)

	resp, _ = s.get(anon, "/post/missing/")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
}

func TestPostListPagination(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	for _, slug := range []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7"} {
		testutil.Post(t, s.db, slug, models.StatusPublished)
	}
	anon := s.browser(nil)

	_, body := s.get(anon, "/")
	c.Assert(body, qt.Contains, "Page 1 of 2")
	c.Assert(strings.Count(body, "<article>"), qt.Equals, 6)

	_, body = s.get(anon, "/?page=2")
	c.Assert(strings.Count(body, "<article>"), qt.Equals, 1)
}

func TestCommentRoutesRequireLogin(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	testutil.Post(t, s.db, "live", models.StatusPublished)
	anon := noRedirect(s.browser(nil))

	resp, _ := s.post(anon, "/post/live/comment/", url.Values{"body": {"hi"}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusFound)
	c.Assert(resp.Header.Get("Location"), qt.Equals, "/accounts/login/?next=%2Fpost%2Flive%2Fcomment%2F")

	var n int64
	s.db.Model(&models.Comment{}).Count(&n)
	c.Assert(n, qt.Equals, int64(0))
}

func TestAddCommentIsCreatedUnapproved(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	p := testutil.Post(t, s.db, "live", models.StatusPublished)
	alice := testutil.User(t, s.db, "alice")
	b := s.browser(alice)

	resp, body := s.post(b, "/post/live/comment/", url.Values{"body": {"  Great post!  "}, "approved": {"true"}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(resp.Request.URL.Path, qt.Equals, "/post/live/")
	c.Assert(body, qt.Contains, "Your comment has been submitted and is awaiting approval.")
	c.Assert(body, qt.Contains, "This comment is awaiting approval.")

	var comments []models.Comment
	c.Assert(s.db.Where("post_id = ?", p.ID).Find(&comments).Error, qt.IsNil)
	c.Assert(comments, qt.HasLen, 1)
	c.Assert(comments[0].Body, qt.Equals, "Great post!")
	c.Assert(comments[0].Approved, qt.IsFalse)
	c.Assert(comments[0].UserID, qt.Equals, alice.ID)

	// anonymous visitors do not see the pending comment
	_, body = s.get(s.browser(nil), "/post/live/")
	c.Assert(body, qt.Not(qt.Contains), "Great post!")
}

func TestAddEmptyComment(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	testutil.Post(t, s.db, "live", models.StatusPublished)
	b := s.browser(testutil.User(t, s.db, "alice"))

	_, body := s.post(b, "/post/live/comment/", url.Values{"body": {"   "}})
	c.Assert(body, qt.Contains, "Comment cannot be empty.")

	var n int64
	s.db.Model(&models.Comment{}).Count(&n)
	c.Assert(n, qt.Equals, int64(0))

	resp, _ := s.post(b, "/post/missing/comment/", url.Values{"body": {"x"}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
}

func TestEditComment(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	p := testutil.Post(t, s.db, "live", models.StatusPublished)
	alice := testutil.User(t, s.db, "alice")
	bob := testutil.User(t, s.db, "bob")
	cmt, err := models.AddComment(s.db, p, alice.ID, "original")
	c.Assert(err, qt.IsNil)
	_, err = models.ApproveComments(s.db, []uint{cmt.ID})
	c.Assert(err, qt.IsNil)
	editPath := "/post/live/comment/" + itoa(cmt.ID) + "/edit/"

	// another user is turned away
	_, body := s.post(s.browser(bob), editPath, url.Values{"body": {"hijacked"}})
	c.Assert(body, qt.Contains, "You can only edit your own comments.")
	got, _ := models.FindComment(s.db, cmt.ID)
	c.Assert(got.Body, qt.Equals, "original")
	c.Assert(got.Approved, qt.IsTrue)

	ab := s.browser(alice)
	resp, body := s.get(ab, editPath)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Contains, "original")

	_, body = s.post(ab, editPath, url.Values{"body": {""}})
	c.Assert(body, qt.Contains, "Comment cannot be empty.")

	// the legacy alias route behaves the same
	_, body = s.post(ab, "/post/live/edit/"+itoa(cmt.ID)+"/", url.Values{"body": {"edited"}})
	c.Assert(body, qt.Contains, "Comment updated successfully.")
	got, _ = models.FindComment(s.db, cmt.ID)
	c.Assert(got.Body, qt.Equals, "edited")
	c.Assert(got.Approved, qt.IsFalse)

	resp, _ = s.get(ab, "/post/live/comment/9999/edit/")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
}

func TestDeleteComment(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	p := testutil.Post(t, s.db, "live", models.StatusPublished)
	alice := testutil.User(t, s.db, "alice")
	bob := testutil.User(t, s.db, "bob")
	staff := testutil.User(t, s.db, "staff")
	first, _ := models.AddComment(s.db, p, alice.ID, "first")
	second, _ := models.AddComment(s.db, p, alice.ID, "second")

	_, body := s.post(s.browser(bob), "/post/live/comment/"+itoa(first.ID)+"/delete/", nil)
	c.Assert(body, qt.Contains, "You can only delete your own comments.")
	_, err := models.FindComment(s.db, first.ID)
	c.Assert(err, qt.IsNil)

	_, body = s.get(s.browser(alice), "/post/live/delete/"+itoa(first.ID)+"/")
	c.Assert(body, qt.Contains, "Comment deleted successfully.")
	_, err = models.FindComment(s.db, first.ID)
	c.Assert(err, qt.ErrorIs, models.ErrCommentNotFound)

	_, body = s.post(s.browser(staff), "/post/live/comment/"+itoa(second.ID)+"/delete/", nil)
	c.Assert(body, qt.Contains, "Comment deleted successfully.")
	_, err = models.FindComment(s.db, second.ID)
	c.Assert(err, qt.ErrorIs, models.ErrCommentNotFound)
}

func TestToggleLike(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	testutil.Post(t, s.db, "live", models.StatusPublished)
	testutil.Post(t, s.db, "draft", models.StatusDraft)
	alice := testutil.User(t, s.db, "alice")

	rec, _ := s.api(http.MethodPost, "/post/live/like/", nil, "")
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	rec, body := s.api(http.MethodPost, "/post/live/like/", alice, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(body["liked"], qt.Equals, true)
	c.Assert(body["like_count"], qt.Equals, float64(1))
	c.Assert(body["message"], qt.Equals, "Post liked!")

	rec, body = s.api(http.MethodPost, "/post/live/like/", alice, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(body["liked"], qt.Equals, false)
	c.Assert(body["like_count"], qt.Equals, float64(0))

	rec, _ = s.api(http.MethodPost, "/post/draft/like/", alice, "")
	c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
}

func TestContactForm(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	b := s.browser(nil)

	resp, body := s.get(b, "/contact/")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Contains, `name="subject"`)

	resp, body = s.post(b, "/contact/", url.Values{"name": {"Abebe"}, "email": {"not-an-email"}, "subject": {""}, "message": {"hi"}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
	c.Assert(body, qt.Contains, "Please check your form. There are errors.")
	c.Assert(body, qt.Contains, "Enter a valid email address.")
	c.Assert(body, qt.Contains, "This field is required.")
	c.Assert(body, qt.Contains, `value="Abebe"`)

	var n int64
	s.db.Model(&models.ContactMessage{}).Count(&n)
	c.Assert(n, qt.Equals, int64(0))

	resp, body = s.post(b, "/contact/", url.Values{
		"name":    {"Abebe"},
		"email":   {"abebe@example.com"},
		"subject": {"Hello"},
		"message": {"I enjoy the blog."},
	})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(resp.Request.URL.Path, qt.Equals, "/contact/")
	c.Assert(body, qt.Contains, "Thank you Abebe! Your message has been sent successfully. We will get back to you soon.")

	var msgs []models.ContactMessage
	c.Assert(s.db.Find(&msgs).Error, qt.IsNil)
	c.Assert(msgs, qt.HasLen, 1)
	c.Assert(msgs[0].Subject, qt.Equals, "Hello")
	c.Assert(msgs[0].IsRead, qt.IsFalse)
	c.Assert(msgs[0].Resolved, qt.IsFalse)
}

var captchaIDPattern = regexp.MustCompile(`name="captcha_id" value="([^"]+)"`)

func TestContactFormCaptcha(t *testing.T) {
	c := qt.New(t)
	s := newSite(t, func(cfg *config.AppConfig) { cfg.Contact.CaptchaEnabled = true })
	b := s.browser(nil)
	form := func(id, answer string) url.Values {
		return url.Values{
			"name": {"Sara"}, "email": {"sara@example.com"}, "subject": {"Hi"}, "message": {"hello"},
			"captcha_id": {id}, "captcha_answer": {answer},
		}
	}

	_, body := s.get(b, "/contact/")
	m := captchaIDPattern.FindStringSubmatch(body)
	c.Assert(m, qt.HasLen, 2)

	resp, body := s.post(b, "/contact/", form(m[1], "00000x"))
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
	c.Assert(body, qt.Contains, "Incorrect captcha")

	m = captchaIDPattern.FindStringSubmatch(body)
	c.Assert(m, qt.HasLen, 2)
	resp, _ = s.post(b, "/contact/", form(m[1], utils.CaptchaAnswer(m[1])))
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	var n int64
	s.db.Model(&models.ContactMessage{}).Count(&n)
	c.Assert(n, qt.Equals, int64(1))
}

func TestSignupLoginLogout(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	b := s.browser(nil)

	resp, body := s.post(b, "/accounts/signup/", url.Values{
		"username": {"liya"}, "email": {"liya@example.com"}, "password1": {"longpassword"}, "password2": {"different"},
	})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
	c.Assert(body, qt.Contains, "match")

	_, body = s.post(b, "/accounts/signup/", url.Values{
		"username": {"liya"}, "email": {"liya@example.com"}, "password1": {"longpassword"}, "password2": {"longpassword"},
	})
	c.Assert(body, qt.Contains, "Successfully signed in as liya.")
	c.Assert(body, qt.Contains, "Signed in as liya")

	_, body = s.post(b, "/accounts/logout/", nil)
	c.Assert(body, qt.Contains, "You have signed out.")
	c.Assert(body, qt.Not(qt.Contains), "Signed in as liya")

	resp, body = s.post(b, "/accounts/login/", url.Values{"username": {"liya"}, "password": {"wrong"}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Contains, "Please enter a correct username and password.")

	resp, body = s.post(b, "/accounts/login/", url.Values{"username": {"liya"}, "password": {"longpassword"}, "next": {"/contact/"}})
	c.Assert(resp.Request.URL.Path, qt.Equals, "/contact/")
	c.Assert(body, qt.Contains, "Signed in as liya")

	resp, _ = s.post(b, "/accounts/signup/", url.Values{
		"username": {"liya"}, "password1": {"longpassword"}, "password2": {"longpassword"},
	})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
}

func TestAPILoginAndLogout(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	hash, err := utils.HashPassword("longpassword")
	c.Assert(err, qt.IsNil)
	c.Assert(s.db.Create(&models.User{Username: "staff", PasswordHash: hash}).Error, qt.IsNil)

	rec, body := s.api(http.MethodPost, "/api/v1/auth/login", nil, `{"username":"staff","password":"nope"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	rec, body = s.api(http.MethodPost, "/api/v1/auth/login", nil, `{"username":"staff","password":"longpassword"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	data := body["data"].(map[string]interface{})
	token := data["token"].(string)
	c.Assert(data["user"].(map[string]interface{})["is_staff"], qt.Equals, true)

	call := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		s.h.ServeHTTP(rec, req)
		return rec.Code
	}
	c.Assert(call(http.MethodGet, "/api/v1/auth/me"), qt.Equals, http.StatusOK)
	c.Assert(call(http.MethodPost, "/api/v1/auth/logout"), qt.Equals, http.StatusOK)
	c.Assert(call(http.MethodGet, "/api/v1/auth/me"), qt.Equals, http.StatusUnauthorized)
}

func TestAdminRequiresStaff(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	alice := testutil.User(t, s.db, "alice")

	rec, _ := s.api(http.MethodGet, "/api/v1/admin/contact", nil, "")
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	rec, _ = s.api(http.MethodGet, "/api/v1/admin/contact", alice, "")
	c.Assert(rec.Code, qt.Equals, http.StatusForbidden)
}

func TestAdminPosts(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	staff := testutil.User(t, s.db, "staff")

	rec, body := s.api(http.MethodPost, "/api/v1/admin/posts", staff, `{"title":"Hello Addis","body":"First post"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	post := body["data"].(map[string]interface{})["post"].(map[string]interface{})
	c.Assert(post["slug"], qt.Equals, "hello-addis")
	c.Assert(post["status"], qt.Equals, float64(models.StatusDraft))
	id := itoa(uint(post["id"].(float64)))

	rec, _ = s.api(http.MethodPost, "/api/v1/admin/posts", staff, `{"title":"Other","slug":"hello-addis","body":"x"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusConflict)

	resp, _ := s.get(s.browser(nil), "/post/hello-addis/")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)

	rec, _ = s.api(http.MethodPost, "/api/v1/admin/posts/"+id+"/publish", staff, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	resp, _ = s.get(s.browser(nil), "/post/hello-addis/")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	rec, _ = s.api(http.MethodPut, "/api/v1/admin/posts/"+id, staff, `{"title":"Hello Addis","slug":"hello-again","body":"Updated","status":1}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	_, page := s.get(s.browser(nil), "/post/hello-again/")
	c.Assert(page, qt.Contains, "Updated")

	rec, _ = s.api(http.MethodPost, "/api/v1/admin/posts/"+id+"/unpublish", staff, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	resp, _ = s.get(s.browser(nil), "/post/hello-again/")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)

	rec, _ = s.api(http.MethodPost, "/api/v1/admin/posts/999/publish", staff, "")
	c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
}

func TestAdminCommentModeration(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	staff := testutil.User(t, s.db, "staff")
	alice := testutil.User(t, s.db, "alice")
	p := testutil.Post(t, s.db, "live", models.StatusPublished)
	first, _ := models.AddComment(s.db, p, alice.ID, "first")
	second, _ := models.AddComment(s.db, p, alice.ID, "second")

	rec, body := s.api(http.MethodGet, "/api/v1/admin/comments?approved=false", staff, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	items := body["data"].(map[string]interface{})["items"].([]interface{})
	c.Assert(items, qt.HasLen, 2)

	rec, body = s.api(http.MethodPost, "/api/v1/admin/comments/approve", staff, `{"ids":[`+itoa(first.ID)+`]}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(body["data"].(map[string]interface{})["message"], qt.Equals, "1 comment approved.")

	_, page := s.get(s.browser(nil), "/post/live/")
	c.Assert(page, qt.Contains, "first")
	c.Assert(page, qt.Not(qt.Contains), "second")

	rec, _ = s.api(http.MethodDelete, "/api/v1/admin/comments/"+itoa(second.ID), staff, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	rec, _ = s.api(http.MethodDelete, "/api/v1/admin/comments/"+itoa(second.ID), staff, "")
	c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
}

func TestAdminContactInbox(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	staff := testutil.User(t, s.db, "staff")
	for _, m := range []models.ContactMessage{
		{Name: "Abebe", Email: "a@example.com", Subject: "Hello", Message: "one"},
		{Name: "Sara", Email: "s@example.com", Subject: "Partnership", Message: "two"},
		{Name: "Liya", Email: "l@example.com", Subject: "Bug", Message: "three"},
	} {
		m := m
		c.Assert(s.db.Create(&m).Error, qt.IsNil)
	}

	rec, body := s.api(http.MethodPost, "/api/v1/admin/contact/mark-read", staff, `{"ids":[1,2]}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	data := body["data"].(map[string]interface{})
	c.Assert(data["updated"], qt.Equals, float64(2))
	c.Assert(data["message"], qt.Equals, "2 messages marked as read.")

	rec, body = s.api(http.MethodPost, "/api/v1/admin/contact/mark-resolved", staff, `{"ids":[3]}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(body["data"].(map[string]interface{})["message"], qt.Equals, "1 message marked as resolved.")

	rec, body = s.api(http.MethodGet, "/api/v1/admin/contact?is_read=true&resolved=false", staff, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	data = body["data"].(map[string]interface{})
	c.Assert(data["items"].([]interface{}), qt.HasLen, 2)

	rec, body = s.api(http.MethodGet, "/api/v1/admin/contact?search=partner", staff, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	items := body["data"].(map[string]interface{})["items"].([]interface{})
	c.Assert(items, qt.HasLen, 1)
	c.Assert(items[0].(map[string]interface{})["name"], qt.Equals, "Sara")

	rec, _ = s.api(http.MethodGet, "/api/v1/admin/contact?is_read=maybe", staff, "")
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)

	rec, _ = s.api(http.MethodPost, "/api/v1/admin/contact/mark-read", staff, `{"ids":[]}`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
}

func TestStats(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	p := testutil.Post(t, s.db, "live", models.StatusPublished)
	testutil.Post(t, s.db, "draft", models.StatusDraft)
	alice := testutil.User(t, s.db, "alice")
	_, _, err := models.TogglePostLike(s.db, p.ID, alice.ID)
	c.Assert(err, qt.IsNil)

	for i := 0; i < 2; i++ {
		rec, _ := s.api(http.MethodGet, "/post/live/", nil, "")
		c.Assert(rec.Code, qt.Equals, http.StatusOK)
	}

	rec, body := s.api(http.MethodGet, "/api/v1/stats", nil, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	data := body["data"].(map[string]interface{})
	c.Assert(data["post_count"], qt.Equals, float64(1))
	c.Assert(data["like_count"], qt.Equals, float64(1))
	c.Assert(data["today_page_views"], qt.Equals, float64(2))

	rec, body = s.api(http.MethodGet, "/api/v1/posts/live/stats", nil, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	data = body["data"].(map[string]interface{})
	c.Assert(data["pv"], qt.Equals, float64(2))
	c.Assert(data["like_count"], qt.Equals, float64(1))
}

func TestNotFoundPages(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)

	rec, body := s.api(http.MethodGet, "/api/v1/nope", nil, "")
	c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
	c.Assert(body["code"], qt.Equals, float64(40400))

	resp, page := s.get(s.browser(nil), "/nope/")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
	c.Assert(page, qt.Contains, "does not exist")
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestSiteConfig(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)

	rec, body := s.api(http.MethodGet, "/api/v1/config/site", nil, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	data := body["data"].(map[string]interface{})
	c.Assert(data["site_name"], qt.Equals, "AddisTalk")
	c.Assert(data["posts_per_page"], qt.Equals, float64(6))
	c.Assert(data["captcha_enabled"], qt.Equals, false)
}

func TestCachedPagesFollowPublishing(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	mr := testutil.Redis(t)
	p := testutil.Post(t, s.db, "live", models.StatusPublished)
	staff := testutil.User(t, s.db, "staff")
	anon := s.browser(nil)

	_, body := s.get(anon, "/")
	c.Assert(body, qt.Contains, "Title live")
	resp, _ := s.get(anon, "/post/live/")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(mr.Exists("cache:posts:list:page=1"), qt.IsTrue)
	c.Assert(mr.Exists("cache:posts:detail:live"), qt.IsTrue)

	// a write behind the cache's back is not seen until the next invalidation
	c.Assert(s.db.Model(p).Update("title", "Renamed").Error, qt.IsNil)
	_, body = s.get(anon, "/")
	c.Assert(body, qt.Contains, "Title live")

	rec, _ := s.api(http.MethodPost, "/api/v1/admin/posts/"+itoa(p.ID)+"/unpublish", staff, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(mr.Exists("cache:posts:list:page=1"), qt.IsFalse)
	c.Assert(mr.Exists("cache:posts:detail:live"), qt.IsFalse)

	resp, _ = s.get(anon, "/post/live/")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
	_, body = s.get(anon, "/")
	c.Assert(body, qt.Not(qt.Contains), "Title live")
	c.Assert(body, qt.Not(qt.Contains), "Renamed")
	c.Assert(body, qt.Contains, "No posts yet.")
}

func TestHugePageNumber(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	testutil.Post(t, s.db, "live", models.StatusPublished)

	resp, body := s.get(s.browser(nil), "/?page=9223372036854775807")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Not(qt.Contains), "Title live")
	c.Assert(body, qt.Contains, "No posts yet.")
}

func TestAdminContactDateFilter(t *testing.T) {
	c := qt.New(t)
	s := newSite(t)
	staff := testutil.User(t, s.db, "staff")
	old := models.ContactMessage{Name: "Old", Email: "o@example.com", Subject: "s", Message: "m"}
	fresh := models.ContactMessage{Name: "Fresh", Email: "f@example.com", Subject: "s", Message: "m"}
	c.Assert(s.db.Create(&old).Error, qt.IsNil)
	c.Assert(s.db.Create(&fresh).Error, qt.IsNil)
	c.Assert(s.db.Model(&old).Update("created_at", time.Now().AddDate(0, 0, -30)).Error, qt.IsNil)

	since := time.Now().AddDate(0, 0, -7).Format(time.DateOnly)
	rec, body := s.api(http.MethodGet, "/api/v1/admin/contact?since="+since, staff, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	items := body["data"].(map[string]interface{})["items"].([]interface{})
	c.Assert(items, qt.HasLen, 1)
	c.Assert(items[0].(map[string]interface{})["name"], qt.Equals, "Fresh")

	until := time.Now().AddDate(0, 0, -7).Format(time.DateOnly)
	rec, body = s.api(http.MethodGet, "/api/v1/admin/contact?until="+until, staff, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	items = body["data"].(map[string]interface{})["items"].([]interface{})
	c.Assert(items, qt.HasLen, 1)
	c.Assert(items[0].(map[string]interface{})["name"], qt.Equals, "Old")

	rec, _ = s.api(http.MethodGet, "/api/v1/admin/contact?since=yesterday", staff, "")
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
}
