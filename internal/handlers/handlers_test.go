package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/config"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/mail"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/routes"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/services"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/testutil"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/tokens"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "handler-test-secret"

type testAPI struct {
	app    *fiber.App
	db     *gorm.DB
	issuer *tokens.Issuer
	outbox *mail.Outbox
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := &config.Config{JWTSecret: testSecret, PageSize: 2, CORSOrigins: "*"}
	issuer := tokens.NewIssuer(testSecret, time.Hour, time.Hour)
	outbox := &mail.Outbox{}

	h := routes.Handlers{
		Auth:    handlers.NewAuthHandler(services.NewAuthService(db, issuer, outbox)),
		Health:  handlers.NewHealthHandler(db),
		User:    handlers.NewUserHandler(services.NewUserService(db), cfg.PageSize),
		Catalog: handlers.NewCatalogHandler(services.NewCatalogService(db), cfg.PageSize),
		Title:   handlers.NewTitleHandler(services.NewTitleService(db), cfg.PageSize),
		Review:  handlers.NewReviewHandler(services.NewReviewService(db), cfg.PageSize),
		Comment: handlers.NewCommentHandler(services.NewCommentService(db), cfg.PageSize),
	}

	app := fiber.New()
	routes.Setup(app, cfg, db, h, nil)
	return &testAPI{app: app, db: db, issuer: issuer, outbox: outbox}
}

func (a *testAPI) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := a.issuer.IssueAccessToken(user.ID, user.Username)
	require.NoError(t, err)
	return token
}

// do sends a request and decodes a JSON body into a map when there is one.
func (a *testAPI) do(t *testing.T, method, target, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["db"])
}

func TestSignupAndTokenExchange(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(t, http.MethodPost, "/v1/auth/signup/", "", map[string]string{
		"email": "neo@example.com", "username": "neo",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "neo", body["username"])

	msg, ok := api.outbox.Last("neo@example.com")
	require.True(t, ok)
	_, code, found := strings.Cut(msg.Body, ": ")
	require.True(t, found)

	status, body = api.do(t, http.MethodPost, "/v1/auth/token/", "", map[string]string{
		"username": "neo", "confirmation_code": code,
	})
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	status, body = api.do(t, http.MethodGet, "/v1/users/me/", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "neo", body["username"])
	assert.Equal(t, "user", body["role"])

	// A code works once.
	status, body = api.do(t, http.MethodPost, "/v1/auth/token/", "", map[string]string{
		"username": "neo", "confirmation_code": code,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, map[string]interface{}{"confirmation_code": "invalid"}, body)
}

func TestTokenErrors(t *testing.T) {
	api := newTestAPI(t)
	testutil.CreateUser(t, api.db, "trinity", models.RoleUser)

	status, _ := api.do(t, http.MethodPost, "/v1/auth/token/", "", map[string]string{
		"username": "ghost", "confirmation_code": "whatever",
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, body := api.do(t, http.MethodPost, "/v1/auth/token/", "", map[string]string{
		"username": "trinity", "confirmation_code": "forged",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid", body["confirmation_code"])

	status, body = api.do(t, http.MethodPost, "/v1/auth/token/", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["fields"], "username")
}

func TestBadBearerTokenIsUnauthorized(t *testing.T) {
	api := newTestAPI(t)

	status, _ := api.do(t, http.MethodGet, "/v1/titles/", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(t, http.MethodGet, "/v1/titles/", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestDeletedUserTokenIsUnauthorized(t *testing.T) {
	api := newTestAPI(t)
	user := testutil.CreateUser(t, api.db, "morpheus", models.RoleUser)
	token := api.tokenFor(t, user)
	require.NoError(t, api.db.Delete(user).Error)

	status, _ := api.do(t, http.MethodGet, "/v1/users/me/", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUsersEndpointsAreAdminOnly(t *testing.T) {
	api := newTestAPI(t)
	plain := testutil.CreateUser(t, api.db, "plain", models.RoleUser)
	moderator := testutil.CreateUser(t, api.db, "mod", models.RoleModerator)
	admin := testutil.CreateUser(t, api.db, "boss", models.RoleAdmin)

	status, _ := api.do(t, http.MethodGet, "/v1/users/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(t, http.MethodGet, "/v1/users/", api.tokenFor(t, plain), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(t, http.MethodGet, "/v1/users/", api.tokenFor(t, moderator), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := api.do(t, http.MethodGet, "/v1/users/?search=plain", api.tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, body = api.do(t, http.MethodPost, "/v1/users/", api.tokenFor(t, admin), map[string]string{
		"username": "fresh", "email": "fresh@example.com", "role": "moderator",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "moderator", body["role"])

	status, body = api.do(t, http.MethodPatch, "/v1/users/fresh/", api.tokenFor(t, admin), map[string]string{
		"role": "admin",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "admin", body["role"])

	status, _ = api.do(t, http.MethodDelete, "/v1/users/fresh/", api.tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = api.do(t, http.MethodGet, "/v1/users/fresh/", api.tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUpdateMeIgnoresRole(t *testing.T) {
	api := newTestAPI(t)
	user := testutil.CreateUser(t, api.db, "smith", models.RoleUser)

	status, body := api.do(t, http.MethodPatch, "/v1/users/me/", api.tokenFor(t, user), map[string]string{
		"role": "admin", "bio": "agent",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user", body["role"])
	assert.Equal(t, "agent", body["bio"])

	status, _ = api.do(t, http.MethodPatch, "/v1/users/me/", "", map[string]string{"bio": "x"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCatalogWritesNeedAdmin(t *testing.T) {
	api := newTestAPI(t)
	user := testutil.CreateUser(t, api.db, "reader", models.RoleUser)
	admin := testutil.CreateUser(t, api.db, "boss", models.RoleAdmin)

	status, _ := api.do(t, http.MethodPost, "/v1/categories/", "", map[string]string{"name": "Movies", "slug": "movies"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(t, http.MethodPost, "/v1/categories/", api.tokenFor(t, user), map[string]string{"name": "Movies", "slug": "movies"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := api.do(t, http.MethodPost, "/v1/categories/", api.tokenFor(t, admin), map[string]string{"name": "Movies", "slug": "bad slug!"})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body["message"])
	assert.Contains(t, body["fields"], "slug")

	status, body = api.do(t, http.MethodPost, "/v1/categories/", api.tokenFor(t, admin), map[string]string{"name": "Movies", "slug": "movies"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, map[string]interface{}{"name": "Movies", "slug": "movies"}, body)

	status, body = api.do(t, http.MethodGet, "/v1/categories/", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, _ = api.do(t, http.MethodDelete, "/v1/categories/movies/", api.tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = api.do(t, http.MethodDelete, "/v1/categories/movies/", api.tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateTitleReturnsNestedObjects(t *testing.T) {
	api := newTestAPI(t)
	admin := testutil.CreateUser(t, api.db, "boss", models.RoleAdmin)
	token := api.tokenFor(t, admin)

	require.NoError(t, api.db.Create(&models.Category{Name: "Movies", Slug: "movies"}).Error)
	require.NoError(t, api.db.Create(&models.Genre{Name: "Drama", Slug: "drama"}).Error)

	status, body := api.do(t, http.MethodPost, "/v1/titles/", token, map[string]interface{}{
		"name": "Stalker", "year": 1979, "category": "movies", "genre": []string{"drama"},
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, map[string]interface{}{"name": "Movies", "slug": "movies"}, body["category"])
	assert.Equal(t, []interface{}{map[string]interface{}{"name": "Drama", "slug": "drama"}}, body["genre"])
	assert.Nil(t, body["rating"])

	titleURL := "/v1/titles/" + itoa(uint(body["id"].(float64))) + "/"
	status, body = api.do(t, http.MethodPatch, titleURL, token, map[string]interface{}{"name": ""})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["fields"], "name")
	_, body = api.do(t, http.MethodGet, titleURL, "", nil)
	assert.Equal(t, "Stalker", body["name"])

	status, body = api.do(t, http.MethodPost, "/v1/titles/", token, map[string]interface{}{
		"name": "Nope", "year": 1979, "category": "missing", "genre": []string{},
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["fields"], "category")

	status, _ = api.do(t, http.MethodGet, "/v1/titles/999/", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(t, http.MethodGet, "/v1/titles/abc/", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTitleListPagination(t *testing.T) {
	api := newTestAPI(t)
	for _, name := range []string{"Alien", "Aliens", "Alien 3"} {
		testutil.CreateTitle(t, api.db, name, 1990, nil)
	}

	status, body := api.do(t, http.MethodGet, "http://example.com/v1/titles/?name=alien", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["count"])
	assert.Len(t, body["results"], 2)
	assert.Nil(t, body["previous"])
	next, _ := body["next"].(string)
	assert.Contains(t, next, "page=2")
	assert.Contains(t, next, "name=alien")

	status, body = api.do(t, http.MethodGet, "http://example.com/v1/titles/?name=alien&page=2", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["results"], 1)
	assert.Nil(t, body["next"])
	previous, _ := body["previous"].(string)
	assert.Contains(t, previous, "name=alien")
	assert.NotContains(t, previous, "page=")

	status, body = api.do(t, http.MethodGet, "/v1/titles/?page=9223372036854775807", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["count"])
	assert.Empty(t, body["results"])
	assert.Nil(t, body["next"])

	for _, name := range []string{"a_b", "axb"} {
		testutil.CreateTitle(t, api.db, name, 2000, nil)
	}
	status, body = api.do(t, http.MethodGet, "/v1/titles/?name=a_b", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, body = api.do(t, http.MethodGet, "/v1/titles/?name=%25", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["count"])

	status, body = api.do(t, http.MethodGet, "/v1/titles/?year=soon", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["fields"], "year")
}

func TestReviewPermissions(t *testing.T) {
	api := newTestAPI(t)
	author := testutil.CreateUser(t, api.db, "author", models.RoleUser)
	other := testutil.CreateUser(t, api.db, "other", models.RoleUser)
	moderator := testutil.CreateUser(t, api.db, "mod", models.RoleModerator)
	title := testutil.CreateTitle(t, api.db, "Solaris", 1972, nil)
	base := "/v1/titles/" + itoa(title.ID) + "/reviews/"

	status, _ := api.do(t, http.MethodPost, base, "", map[string]interface{}{"text": "great", "score": 9})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := api.do(t, http.MethodPost, base, api.tokenFor(t, author), map[string]interface{}{"text": "great", "score": 9})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "author", body["author"])
	assert.EqualValues(t, title.ID, body["title"])
	reviewURL := base + itoa(uint(body["id"].(float64))) + "/"

	status, body = api.do(t, http.MethodPost, base, api.tokenFor(t, author), map[string]interface{}{"text": "again", "score": 3})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["fields"], "non_field_errors")

	status, _ = api.do(t, http.MethodPatch, reviewURL, api.tokenFor(t, other), map[string]interface{}{"text": "mine now"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = api.do(t, http.MethodPatch, reviewURL, api.tokenFor(t, author), map[string]interface{}{"score": 7})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 7, body["score"])
	assert.Equal(t, "great", body["text"])

	status, _ = api.do(t, http.MethodPatch, reviewURL, api.tokenFor(t, moderator), map[string]interface{}{"text": "moderated"})
	assert.Equal(t, http.StatusOK, status)

	status, body = api.do(t, http.MethodGet, "/v1/titles/"+itoa(title.ID)+"/", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 7, body["rating"])

	status, _ = api.do(t, http.MethodDelete, reviewURL, api.tokenFor(t, other), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(t, http.MethodDelete, reviewURL, api.tokenFor(t, author), nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = api.do(t, http.MethodGet, reviewURL, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCommentLifecycle(t *testing.T) {
	api := newTestAPI(t)
	author := testutil.CreateUser(t, api.db, "author", models.RoleUser)
	other := testutil.CreateUser(t, api.db, "other", models.RoleUser)
	admin := testutil.CreateUser(t, api.db, "boss", models.RoleAdmin)
	title := testutil.CreateTitle(t, api.db, "Mirror", 1975, nil)
	review := testutil.CreateReview(t, api.db, title, author, 8)
	base := "/v1/titles/" + itoa(title.ID) + "/reviews/" + itoa(review.ID) + "/comments/"

	status, _ := api.do(t, http.MethodPost, base, "", map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := api.do(t, http.MethodPost, base, api.tokenFor(t, other), map[string]string{"text": "agreed"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "other", body["author"])
	assert.EqualValues(t, review.ID, body["review"])
	commentURL := base + itoa(uint(body["id"].(float64))) + "/"

	status, body = api.do(t, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, _ = api.do(t, http.MethodPatch, commentURL, api.tokenFor(t, author), map[string]string{"text": "edited"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = api.do(t, http.MethodPatch, commentURL, api.tokenFor(t, other), map[string]string{"text": "edited"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "edited", body["text"])

	// The review must belong to the title in the path.
	otherTitle := testutil.CreateTitle(t, api.db, "Nostalghia", 1983, nil)
	status, _ = api.do(t, http.MethodGet, "/v1/titles/"+itoa(otherTitle.ID)+"/reviews/"+itoa(review.ID)+"/comments/", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(t, http.MethodDelete, commentURL, api.tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
