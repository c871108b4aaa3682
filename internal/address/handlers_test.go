package address

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/storefront/internal/httpx"
)

// stubRepo keeps the same default-address rules as PGRepo, in memory.
type stubRepo struct {
	list []Address
}

func (s *stubRepo) find(userID, id string) int {
	for i, a := range s.list {
		if a.ID == id && a.UserID == userID {
			return i
		}
	}
	return -1
}

func (s *stubRepo) clearDefault(userID string) {
	for i := range s.list {
		if s.list[i].UserID == userID {
			s.list[i].IsDefault = false
		}
	}
}

func (s *stubRepo) List(_ context.Context, userID string) ([]Address, error) {
	out := []Address{}
	for _, a := range s.list {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubRepo) Get(_ context.Context, userID, id string) (*Address, error) {
	i := s.find(userID, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	a := s.list[i]
	return &a, nil
}

func (s *stubRepo) Create(ctx context.Context, a *Address) error {
	mine, _ := s.List(ctx, a.UserID)
	if len(mine) == 0 {
		a.IsDefault = true
	}
	if a.IsDefault {
		s.clearDefault(a.UserID)
	}
	s.list = append(s.list, *a)
	return nil
}

func (s *stubRepo) Update(_ context.Context, a *Address) error {
	i := s.find(a.UserID, a.ID)
	if i < 0 {
		return ErrNotFound
	}
	if a.IsDefault {
		s.clearDefault(a.UserID)
	}
	a.IsDefault = a.IsDefault || s.list[i].IsDefault
	s.list[i] = *a
	return nil
}

func (s *stubRepo) Delete(_ context.Context, userID, id string) error {
	i := s.find(userID, id)
	if i < 0 {
		return ErrNotFound
	}
	was := s.list[i].IsDefault
	s.list = append(s.list[:i], s.list[i+1:]...)
	if was {
		for j := range s.list {
			if s.list[j].UserID == userID {
				s.list[j].IsDefault = true
				break
			}
		}
	}
	return nil
}

func (s *stubRepo) SetDefault(_ context.Context, userID, id string) error {
	i := s.find(userID, id)
	if i < 0 {
		return ErrNotFound
	}
	s.clearDefault(userID)
	s.list[i].IsDefault = true
	return nil
}

func defaults(list []Address) int {
	n := 0
	for _, a := range list {
		if a.IsDefault {
			n++
		}
	}
	return n
}

const home = `{"label":"Home","recipient":"Asha","phone":"9800000000","line1":"12 MG Road","city":"Bengaluru","state":"KA","postal_code":"560001","country":"IN"}`

func call(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, Address) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, bytes.NewBufferString(body)))
	var env struct {
		Data Address `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env.Data
}

func setup() (*gin.Engine, *stubRepo) {
	repo := &stubRepo{}
	r := gin.New()
	Register(r.Group("/", httpx.SetUser("u1", "customer")), NewService(repo))
	return r, repo
}

func TestCreate_FirstAddressBecomesDefault(t *testing.T) {
	r, repo := setup()

	w, first := call(t, r, http.MethodPost, "/addresses", home)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, first.IsDefault)

	w, second := call(t, r, http.MethodPost, "/addresses", home)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, second.IsDefault)
	assert.Equal(t, 1, defaults(repo.list))
}

func TestSetDefault_ClearsPrevious(t *testing.T) {
	r, repo := setup()
	_, first := call(t, r, http.MethodPost, "/addresses", home)
	_, second := call(t, r, http.MethodPost, "/addresses", home)

	w, got := call(t, r, http.MethodPost, "/addresses/"+second.ID+"/default", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, got.IsDefault)
	assert.Equal(t, 1, defaults(repo.list))

	a, err := repo.Get(context.Background(), "u1", first.ID)
	require.NoError(t, err)
	assert.False(t, a.IsDefault)
}

func TestDelete_DefaultIsReassigned(t *testing.T) {
	r, repo := setup()
	_, first := call(t, r, http.MethodPost, "/addresses", home)
	_, _ = call(t, r, http.MethodPost, "/addresses", home)

	w, _ := call(t, r, http.MethodDelete, "/addresses/"+first.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.list, 1)
	assert.True(t, repo.list[0].IsDefault)
}

func TestCreate_MissingFieldIs400(t *testing.T) {
	r, _ := setup()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/addresses", bytes.NewBufferString(`{"recipient":"Asha"}`)))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var env struct {
		Code string         `json:"code"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "validation_error", env.Code)
	assert.Equal(t, "phone", env.Data["field"])
}

func TestCreate_BlankCityIs400(t *testing.T) {
	r, repo := setup()
	body := strings.Replace(home, `"city":"Bengaluru"`, `"city":"   "`, 1)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/addresses", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	var env struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "validation_error", env.Code)
	assert.Equal(t, "city", env.Data["field"])
	assert.Equal(t, "city is required", env.Message)
	assert.Empty(t, repo.list)
}

func TestUnknownAddressIs404(t *testing.T) {
	r, _ := setup()
	for _, path := range []string{"/addresses/not-a-uuid/default", "/addresses/6f1c2d44-0000-4000-8000-000000000000/default"} {
		w, _ := call(t, r, http.MethodPost, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestOneLine(t *testing.T) {
	a := Address{Line1: "12 MG Road", City: "Bengaluru", PostalCode: "560001", Country: "IN"}
	assert.Equal(t, "12 MG Road, Bengaluru, 560001, IN", a.OneLine())
}

func init() {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
}
