package router

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"parallel/internal/db"
	"parallel/internal/models"
	"parallel/internal/services"
	"parallel/internal/services/mocks"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"
)

type stubGenerator struct {
	mu    sync.Mutex
	reply string
	calls int
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.reply, nil
}

func (g *stubGenerator) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	conn   *gorm.DB
}

// newTestServer gen 为 nil 时模拟未配置 API Key
func newTestServer(t *testing.T, gen services.Generator) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	ai := services.NewAIService(gen, time.Second)
	engine := New(Deps{
		DB:          conn,
		Auth:        services.NewAuthService("test-secret", 0),
		AI:          ai,
		Recommender: services.NewRecommender(conn, ai),
	})
	return &testServer{t: t, engine: engine, conn: conn}
}

func (s *testServer) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// register 注册并登录，返回用户 id 与 token
func (s *testServer) register(name string) (uint, string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", gin.H{
		"username": name, "email": name + "@x.com", "password": "pw123456",
	}, "")
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	user := decode[models.User](s.t, w)

	w = s.do(http.MethodPost, "/api/auth/login", gin.H{"username": name, "password": "pw123456"}, "")
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return user.ID, decode[map[string]string](s.t, w)["access_token"]
}

func (s *testServer) postDecision(userID uint, content string) uint {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/decisions/", gin.H{
		"user_id": userID, "content": content, "option_a": "Do it", "option_b": "Don't do it",
	}, "")
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode[struct {
		ID uint `json:"id"`
	}](s.t, w).ID
}

func (s *testServer) vote(userID, decisionID uint, choice string) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.do(http.MethodPost, "/api/votes/", gin.H{"user_id": userID, "decision_id": decisionID, "choice": choice}, "")
}

func TestRootAndAbout(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Parallel API is running"}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/about/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	about := decode[map[string]interface{}](t, w)
	assert.Equal(t, "Parallel", about["name"])
	assert.Equal(t, "1.0.0", about["version"])
	assert.NotEmpty(t, about["features"])
}

func TestRegisterLoginMe(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/auth/register", gin.H{
		"username": "alice", "email": "alice@x.com", "password": "pw123456",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	profile := decode[map[string]interface{}](t, w)
	assert.Equal(t, "alice", profile["username"])
	assert.Equal(t, "alice@x.com", profile["email"])
	assert.NotContains(t, w.Body.String(), "password")
	for _, key := range []string{"id", "bio", "avatar_url", "created_at"} {
		assert.Contains(t, profile, key)
	}

	w = s.do(http.MethodPost, "/api/auth/login", gin.H{"username": "alice", "password": "pw123456"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[map[string]string](t, w)
	assert.Equal(t, "bearer", login["token_type"])
	require.NotEmpty(t, login["access_token"])

	w = s.do(http.MethodGet, "/api/auth/me", nil, login["access_token"])
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode[map[string]interface{}](t, w)["username"])

	// 邮箱同样可以登录
	w = s.do(http.MethodPost, "/api/auth/login", gin.H{"username": "alice@x.com", "password": "pw123456"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginWithMixedCaseEmail(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/auth/register", gin.H{
		"username": "bob", "email": "Bob@X.com", "password": "pw123456",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "bob@x.com", decode[map[string]interface{}](t, w)["email"])

	w = s.do(http.MethodPost, "/api/auth/login", gin.H{"username": "Bob@X.com", "password": "pw123456"}, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestLoginWithForm(t *testing.T) {
	s := newTestServer(t, nil)
	s.register("alice")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("username=alice&password=pw123456"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t, nil)
	s.register("alice")

	cases := []gin.H{
		{"username": "", "email": "b@x.com", "password": "pw123456"},
		{"username": "bob", "email": "b@x.com", "password": "short"},
		{"username": "bob", "email": "not-an-email", "password": "pw123456"},
		{"username": "alice", "email": "other@x.com", "password": "pw123456"},
		{"username": "bob", "email": "alice@x.com", "password": "pw123456"},
	}
	for _, body := range cases {
		w := s.do(http.MethodPost, "/api/auth/register", body, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v: %s", body, w.Body.String())
		assert.NotEmpty(t, decode[map[string]string](t, w)["detail"])
	}
}

func TestAuthFailures(t *testing.T) {
	s := newTestServer(t, nil)
	s.register("alice")

	w := s.do(http.MethodPost, "/api/auth/login", gin.H{"username": "alice", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = s.do(http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = s.do(http.MethodGet, "/api/auth/me", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateMe(t *testing.T) {
	s := newTestServer(t, nil)
	_, token := s.register("alice")

	w := s.do(http.MethodPut, "/api/auth/me", gin.H{"bio": "<b>Hello</b> there", "avatar_url": "https://img/a.png"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Message string      `json:"message"`
		User    models.User `json:"user"`
	}](t, w)
	assert.Equal(t, "Hello there", resp.User.Bio)
	assert.Equal(t, "https://img/a.png", resp.User.AvatarURL)

	w = s.do(http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, "Hello there", decode[models.User](t, w).Bio)
}

func TestFreeTextKeepsPunctuation(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, token := s.register("alice")

	w := s.do(http.MethodPut, "/api/auth/me", gin.H{"bio": "Tom & Jerry's fan"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, "Tom & Jerry's fan", decode[models.User](t, w).Bio)

	id := s.postDecision(aliceID, "Move abroad?")
	w = s.do(http.MethodPost, "/api/comments/", gin.H{"decision_id": id, "content": `I'd go & "try" it`}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, fmt.Sprintf("/api/comments/%d", id), nil, "")
	comments := decode[[]map[string]interface{}](t, w)
	require.Len(t, comments, 1)
	assert.Equal(t, `I'd go & "try" it`, comments[0]["content"])
}

func TestDeprecatedCreateUser(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(http.MethodPost, "/api/users/", gin.H{"username": "x"}, "")
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Contains(t, w.Body.String(), "/api/auth/register")
}

func TestCreateDecisionWithoutAIKey(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, token := s.register("alice")

	w := s.do(http.MethodPost, "/api/decisions/", gin.H{
		"content": "Should I quit my job?", "option_a": "Quit", "option_b": "Stay",
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	d := decode[map[string]interface{}](t, w)
	assert.Equal(t, float64(aliceID), d["user_id"])
	for _, key := range []string{"ai_consequence_good", "ai_consequence_bad", "ai_consequence_weird"} {
		assert.Equal(t, "AI predictions unavailable (API key not configured)", d[key])
	}
	author := d["author"].(map[string]interface{})
	assert.Equal(t, "alice", author["username"])
	assert.NotContains(t, author, "email")
}

func TestCreateDecisionUsesAIOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return(`{"good":"g","bad":"b","weird":"w"}`, nil).
		Times(1)

	s := newTestServer(t, gen)
	aliceID, _ := s.register("alice")
	id := s.postDecision(aliceID, "Should I learn Go?")

	// 读取详情不会再次调用模型
	w := s.do(http.MethodGet, fmt.Sprintf("/api/decisions/%d", id), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	d := decode[map[string]interface{}](t, w)
	assert.Equal(t, "g", d["ai_consequence_good"])
	assert.Equal(t, "b", d["ai_consequence_bad"])
	assert.Equal(t, "w", d["ai_consequence_weird"])
}

func TestResponsesAreGzipped(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/about/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"name":"Parallel"`)
}

func TestCreateDecisionErrors(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, _ := s.register("alice")

	w := s.do(http.MethodPost, "/api/decisions/", gin.H{"user_id": aliceID, "content": "x", "option_a": "A"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/decisions/", gin.H{"user_id": aliceID, "content": " ", "option_a": "A", "option_b": "B"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/decisions/", gin.H{"user_id": 999, "content": "x", "option_a": "A", "option_b": "B"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"User not found"}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/decisions/999", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVotingAndTallies(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, _ := s.register("alice")
	bobID, _ := s.register("bob")
	carolID, _ := s.register("carol")
	id := s.postDecision(aliceID, "Should I move abroad?")

	assert.Equal(t, http.StatusOK, s.vote(aliceID, id, "option_a").Code)
	assert.Equal(t, http.StatusOK, s.vote(bobID, id, "dont_do_it").Code)
	w := s.vote(carolID, id, "Do it")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ChoiceOptionA, decode[models.Vote](t, w).Choice)

	// 同一用户重复投票
	w = s.vote(aliceID, id, "option_b")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/votes/%d", id), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"decision_id":%d,"option_a":2,"option_b":1,"total":3}`, id), w.Body.String())

	w = s.do(http.MethodGet, fmt.Sprintf("/api/decisions/%d", id), nil, "")
	d := decode[map[string]interface{}](t, w)
	assert.Equal(t, map[string]interface{}{"option_a": float64(2), "option_b": float64(1)}, d["votes"])
	assert.Equal(t, float64(3), d["total_votes"])

	var stored int64
	require.NoError(t, s.conn.Model(&models.Vote{}).Where("decision_id = ?", id).Count(&stored).Error)
	assert.Equal(t, int64(3), stored)
}

func TestVoteErrors(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, _ := s.register("alice")
	id := s.postDecision(aliceID, "Should I?")

	assert.Equal(t, http.StatusNotFound, s.vote(aliceID, 999, "option_a").Code)
	assert.Equal(t, http.StatusNotFound, s.vote(999, id, "option_a").Code)
	assert.Equal(t, http.StatusBadRequest, s.vote(aliceID, id, "maybe").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/votes/999", nil, "").Code)
}

func TestListDecisionFilters(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, _ := s.register("alice")
	bobID, _ := s.register("bob")
	carolID, _ := s.register("carol")

	s.postDecision(aliceID, "Alice wants a Cat")
	s.postDecision(bobID, "Bob wants a dog")
	s.postDecision(carolID, "Carol wants a CAT too")

	list := func(query string) []map[string]interface{} {
		w := s.do(http.MethodGet, "/api/decisions/"+query, nil, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[[]map[string]interface{}](t, w)
	}

	all := list("")
	require.Len(t, all, 3)
	assert.Equal(t, "Carol wants a CAT too", all[0]["content"])

	assert.Len(t, list("?limit=2"), 2)
	assert.Len(t, list("?offset=2"), 1)

	byUser := list(fmt.Sprintf("?user_id=%d", bobID))
	require.Len(t, byUser, 1)
	assert.Equal(t, "Bob wants a dog", byUser[0]["content"])

	assert.Len(t, list("?search=cat"), 2)

	// alice 关注 carol
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, fmt.Sprintf("/api/users/%d/follow/%d", aliceID, carolID), nil, "").Code)
	feed := list(fmt.Sprintf("?following_user_id=%d", aliceID))
	require.Len(t, feed, 1)
	assert.Equal(t, "Carol wants a CAT too", feed[0]["content"])

	// user_id 优先于 following_user_id 和 search
	mixed := list(fmt.Sprintf("?user_id=%d&following_user_id=%d&search=cat", bobID, aliceID))
	require.Len(t, mixed, 1)
	assert.Equal(t, "Bob wants a dog", mixed[0]["content"])

	// following_user_id 优先于 search
	assert.Len(t, list(fmt.Sprintf("?following_user_id=%d&search=dog", aliceID)), 1)
}

func TestComments(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, aliceToken := s.register("alice")
	_, bobToken := s.register("bob")
	id := s.postDecision(aliceID, "Should I?")

	w := s.do(http.MethodPost, "/api/comments/", gin.H{"decision_id": id, "content": "first"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/comments/", gin.H{"decision_id": 999, "content": "x"}, aliceToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/comments/", gin.H{"decision_id": id, "content": "  "}, aliceToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/comments/", gin.H{"decision_id": id, "content": "first"}, aliceToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[map[string]interface{}](t, w)
	assert.Equal(t, "alice", first["user"].(map[string]interface{})["username"])

	w = s.do(http.MethodPost, "/api/comments/", gin.H{"decision_id": id, "content": "<script>x</script>second"}, bobToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/comments/%d", id), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	comments := decode[[]map[string]interface{}](t, w)
	require.Len(t, comments, 2)
	assert.Equal(t, "second", comments[0]["content"])
	assert.Equal(t, "first", comments[1]["content"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/decisions/%d", id), nil, "")
	assert.Equal(t, float64(2), decode[map[string]interface{}](t, w)["comments_count"])

	commentID := uint(first["id"].(float64))
	w = s.do(http.MethodDelete, fmt.Sprintf("/api/comments/%d", commentID), nil, bobToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/comments/%d", commentID), nil, aliceToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/comments/%d", commentID), nil, aliceToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/comments/999", nil, "").Code)
}

func TestFollowRules(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, _ := s.register("alice")
	bobID, _ := s.register("bob")
	follow := func(method string, a, b uint) int {
		return s.do(method, fmt.Sprintf("/api/users/%d/follow/%d", a, b), nil, "").Code
	}

	assert.Equal(t, http.StatusBadRequest, follow(http.MethodPost, aliceID, aliceID))
	assert.Equal(t, http.StatusBadRequest, follow(http.MethodPost, 999, 999))
	assert.Equal(t, http.StatusNotFound, follow(http.MethodPost, aliceID, 999))
	assert.Equal(t, http.StatusNotFound, follow(http.MethodPost, 999, aliceID))

	assert.Equal(t, http.StatusOK, follow(http.MethodPost, aliceID, bobID))
	assert.Equal(t, http.StatusBadRequest, follow(http.MethodPost, aliceID, bobID))
	// 自己关注自己与已有状态无关
	assert.Equal(t, http.StatusBadRequest, follow(http.MethodPost, aliceID, aliceID))

	w := s.do(http.MethodGet, fmt.Sprintf("/api/users/%d/following", aliceID), nil, "")
	following := decode[[]models.PublicUser](t, w)
	require.Len(t, following, 1)
	assert.Equal(t, "bob", following[0].Username)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d/followers", bobID), nil, "")
	followers := decode[[]models.PublicUser](t, w)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice", followers[0].Username)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d", bobID), nil, "")
	profile := decode[map[string]interface{}](t, w)
	assert.Equal(t, float64(1), profile["followers_count"])
	assert.Equal(t, float64(0), profile["following_count"])

	assert.Equal(t, http.StatusOK, follow(http.MethodDelete, aliceID, bobID))
	assert.Equal(t, http.StatusNotFound, follow(http.MethodDelete, aliceID, bobID))
	assert.Equal(t, http.StatusOK, follow(http.MethodPost, aliceID, bobID))
}

func TestUserProfileAndSearch(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, _ := s.register("alice")
	s.register("alicia")
	s.register("bob")
	s.postDecision(aliceID, "one")
	s.postDecision(aliceID, "two")

	w := s.do(http.MethodGet, fmt.Sprintf("/api/users/%d", aliceID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[map[string]interface{}](t, w)
	assert.Equal(t, float64(2), profile["decisions_count"])
	assert.NotContains(t, profile, "email")

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/users/999", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/users/abc", nil, "").Code)

	w = s.do(http.MethodGet, "/api/users/search?q=ALI", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.PublicUser](t, w), 2)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d/decisions", aliceID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decisions := decode[[]map[string]interface{}](t, w)
	require.Len(t, decisions, 2)
	assert.Equal(t, "two", decisions[0]["content"])
}

func TestPersonalityAndLifeAreas(t *testing.T) {
	gen := &stubGenerator{reply: "You are **decisive**."}
	s := newTestServer(t, gen)
	aliceID, _ := s.register("alice")

	w := s.do(http.MethodGet, fmt.Sprintf("/api/users/%d/personality", aliceID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	empty := decode[map[string]string](t, w)
	assert.Equal(t, "Not enough data - post some decisions first!", empty["personality_report"])
	assert.Equal(t, 0, gen.count())

	s.conn.Create(&models.Decision{UserID: aliceID, Content: "Skydive?", OptionA: "Yes", OptionB: "No"})
	w = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d/personality", aliceID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[map[string]string](t, w)
	assert.Equal(t, "You are **decisive**.", report["personality_report"])
	assert.Contains(t, report["personality_html"], "<strong>decisive</strong>")

	w = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d/life-areas", aliceID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	areas := decode[services.LifeAreaAnalysis](t, w)
	assert.Len(t, areas.LifeAreas, 4)
	assert.Equal(t, 50, areas.LifeAreas["career"])

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/users/999/personality", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/users/999/life-areas", nil, "").Code)
}

func TestRecommendEndpoint(t *testing.T) {
	gen := &stubGenerator{reply: "The community says go for it."}
	s := newTestServer(t, gen)
	aliceID, _ := s.register("alice")
	bobID, _ := s.register("bob")

	w := s.do(http.MethodGet, "/api/decisions/recommend/quit%20my%20job", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	empty := decode[services.Recommendation](t, w)
	assert.Equal(t, services.NotEnoughDataMessage, empty.Recommendation)
	assert.Equal(t, 0, empty.SimilarDecisionsCount)

	// 没有票数的决定不参与推荐
	id := s.postDecision(aliceID, "Should I quit my job?")
	before := gen.count()
	w = s.do(http.MethodGet, "/api/decisions/recommend/Should%20I%20quit%20my%20job%3F", nil, "")
	assert.Equal(t, services.NotEnoughDataMessage, decode[services.Recommendation](t, w).Recommendation)
	assert.Equal(t, before, gen.count())

	require.Equal(t, http.StatusOK, s.vote(bobID, id, "option_a").Code)
	w = s.do(http.MethodGet, "/api/decisions/recommend/should%20i%20quit%20my%20job", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[services.Recommendation](t, w)
	assert.Equal(t, "The community says go for it.", rec.Recommendation)
	assert.Equal(t, 1, rec.SimilarDecisionsCount)
	require.Len(t, rec.TopSimilarDecisions, 1)
	assert.Equal(t, id, rec.TopSimilarDecisions[0].Decision.ID)
	assert.Equal(t, int64(1), rec.TopSimilarDecisions[0].TotalVotes)
}

func TestLeaderboard(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, _ := s.register("alice")
	bobID, _ := s.register("bob")
	s.register("carol")

	s.postDecision(bobID, "b1")
	s.postDecision(aliceID, "a1")
	s.postDecision(aliceID, "a2")

	w := s.do(http.MethodGet, "/api/leaderboard/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[[]map[string]interface{}](t, w)
	require.Len(t, board, 2)
	assert.Equal(t, float64(1), board[0]["rank"])
	assert.Equal(t, "alice", board[0]["username"])
	assert.Equal(t, float64(2), board[0]["decisions_count"])
	assert.Equal(t, "bob", board[1]["username"])
}
