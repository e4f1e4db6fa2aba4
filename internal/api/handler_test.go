package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"lab-reservation-backend/internal/auth"
	"lab-reservation-backend/internal/broadcast"
	"lab-reservation-backend/internal/db"
	"lab-reservation-backend/internal/model"
	"lab-reservation-backend/internal/notification"
	"lab-reservation-backend/internal/reservation"
	"lab-reservation-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router     *gin.Engine
	db         *gorm.DB
	registry   *broadcast.Registry
	verifier   *auth.Verifier
	user       model.User
	other      model.User
	admin      model.User
	equipment  model.Equipment
	userToken  string
	otherToken string
	adminToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithStream(t, StreamOptions{Heartbeat: 20 * time.Millisecond, BufferSize: 8})
}

func newTestServerWithStream(t *testing.T, stream StreamOptions) *testServer {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	ts := &testServer{
		db:       gormDB,
		registry: broadcast.NewRegistry(broadcast.DefaultMaxFailures),
		verifier: auth.NewVerifier("test-secret", "lab-reservation"),
	}
	ts.user = model.User{Name: "Ada", Email: "ada@lab.test", Role: model.RoleUser}
	ts.other = model.User{Name: "Eve", Email: "eve@lab.test", Role: model.RoleUser}
	ts.admin = model.User{Name: "Root", Email: "root@lab.test", Role: model.RoleAdmin}
	for _, u := range []*model.User{&ts.user, &ts.other, &ts.admin} {
		require.NoError(t, gormDB.Create(u).Error)
	}
	ts.equipment = model.Equipment{Name: "Spectrometer", Location: "B12", Available: true, Status: model.EquipmentAvailable}
	require.NoError(t, gormDB.Create(&ts.equipment).Error)

	ts.userToken = ts.token(t, ts.user)
	ts.otherToken = ts.token(t, ts.other)
	ts.adminToken = ts.token(t, ts.admin)

	s := store.NewGormStore(gormDB)
	svc := reservation.NewService(s, notification.NewDispatcher(s, nil), ts.registry, reservation.Options{})
	handler := NewHandler(Deps{
		Store:        s,
		Reservations: svc,
		Registry:     ts.registry,
		Stream:       stream,
	})
	ts.router = NewRouter(handler, ts.verifier, RouterOptions{RateLimit: 1000, Burst: 1000, CacheTTL: time.Minute})
	return ts
}

func (ts *testServer) token(t *testing.T, u model.User) string {
	t.Helper()
	tok, err := ts.verifier.GenerateToken(u.ID, u.Role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(method, target, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) createReservation(t *testing.T, start, end string) model.Reservation {
	t.Helper()
	w := ts.do(http.MethodPost, "/api/reservations", ts.userToken, gin.H{
		"equipment_id": ts.equipment.ID,
		"start_date":   start,
		"end_date":     end,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.Reservation](t, w)
}
