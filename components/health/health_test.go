package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/formcheck/internal/component"
	"github.com/yanizio/formcheck/internal/form"
)

func serve(t *testing.T, c *Component, path string) (*httptest.ResponseRecorder, status) {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var st status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	return rec, st
}

func loaded(t *testing.T) *form.Registry {
	t.Helper()
	reg := form.NewRegistry()
	require.NoError(t, reg.LoadDefaults())
	return reg
}

func TestHealthz(t *testing.T) {
	c := &Component{}
	require.NoError(t, c.Init(component.Deps{Forms: loaded(t)}))

	rec, st := serve(t, c, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", st.Status)
	assert.Equal(t, 2, st.Forms)
}

func TestReadyzWithoutForms(t *testing.T) {
	c := &Component{}
	require.NoError(t, c.Init(component.Deps{Forms: form.NewRegistry()}))

	rec, _ := serve(t, c, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadyzPingsDatabase(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer raw.Close()

	c := &Component{}
	require.NoError(t, c.Init(component.Deps{Forms: loaded(t), DB: sqlx.NewDb(raw, "sqlmock")}))

	mock.ExpectPing()
	rec, st := serve(t, c, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", st.Database)

	mock.ExpectPing().WillReturnError(errors.New("gone"))
	rec, st = serve(t, c, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "gone", st.Database)

	assert.NoError(t, mock.ExpectationsWereMet())
}
