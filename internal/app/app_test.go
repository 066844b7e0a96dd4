package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"artiefy_backend/internal/config"
	"artiefy_backend/internal/model"
	"artiefy_backend/internal/testutil"
	"artiefy_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	*App
	t  *testing.T
	db *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	rdb, _ := testutil.Redis(t)
	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Mode: "test"},
		JWT:       config.JWTConfig{Secret: testSecret},
		Storage:   config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
		Grading:   config.GradingConfig{MaxGrade: 5, PassingGrade: 3, MaxWeight: 100, SubmissionTTLHours: 720},
	}
	a := New(cfg, db, rdb)
	t.Cleanup(a.cancel)
	return &testApp{App: a, t: t, db: db}
}

func (a *testApp) token(userID string, role model.UserRole) string {
	a.t.Helper()
	tok, err := util.GenerateJWT(userID, role, testSecret, time.Hour)
	require.NoError(a.t, err)
	return tok
}

func (a *testApp) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func TestHealthAndAuth(t *testing.T) {
	a := newTestApp(t)

	rec, env := a.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"kv":"up"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = a.do(http.MethodGet, "/api/courses/1/progress", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = a.do(http.MethodGet, "/api/educadores/parametros?courseId=1", a.token("s1", model.Student), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	a := newTestApp(t)
	student := a.token("s1", model.Student)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"bad path id", http.MethodGet, "/api/courses/abc/progress", nil, http.StatusBadRequest, "bad_request"},
		{"unknown course", http.MethodGet, "/api/courses/999/progress", nil, http.StatusNotFound, "course_not_found"},
		{"unknown lesson", http.MethodPost, "/api/lessons/999/progress", gin.H{"progress": 10}, http.StatusNotFound, "lesson_not_found"},
		{"progress out of range", http.MethodPost, "/api/lessons/1/progress", gin.H{"progress": 101}, http.StatusBadRequest, "invalid_progress"},
		{"missing progress", http.MethodPost, "/api/lessons/1/progress", gin.H{}, http.StatusBadRequest, ""},
		{"unknown program", http.MethodGet, "/api/programs/42/certificate/eligibility", nil, http.StatusNotFound, "program_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := a.do(tt.method, tt.path, student, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, env.Error)
			}
		})
	}
}

func TestSubmitAndGradeFlow(t *testing.T) {
	a := newTestApp(t)
	course := testutil.SeedCourse(t, a.db, "Diseño")
	lessons := testutil.SeedLessons(t, a.db, course.ID, "Clase 1", "Clase 2")
	param := testutil.SeedParametro(t, a.db, course.ID, "Talleres", 100)
	activity := testutil.SeedActivity(t, a.db, lessons[0].ID, &param.ID, 0)

	student := a.token("u1", model.Student)
	educator := a.token("e1", model.Educator)

	rec, env := a.do(http.MethodPost, fmt.Sprintf("/api/courses/%d/enroll", course.ID), student, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var progress struct {
		Lessons []struct {
			LessonID uint `json:"lessonId"`
			IsLocked bool `json:"isLocked"`
		} `json:"lessons"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &progress))
	require.Len(t, progress.Lessons, 2)
	assert.False(t, progress.Lessons[0].IsLocked)
	assert.True(t, progress.Lessons[1].IsLocked)

	// 替别人提交
	rec, _ = a.do(http.MethodPost, "/api/activities/saveFileSubmission", student, gin.H{
		"activityId": activity.ID,
		"userId":     "someone-else",
		"fileInfo":   gin.H{"fileName": "taller.pdf", "fileUrl": "https://files/taller.pdf"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = a.do(http.MethodPost, "/api/activities/saveFileSubmission", student, gin.H{
		"activityId": activity.ID,
		"userId":     "u1",
		"fileInfo":   gin.H{"fileName": "taller.pdf", "fileUrl": "https://files/taller.pdf", "documentKey": "docs/taller.pdf"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved struct {
		SubmissionKey    string `json:"submissionKey"`
		UnlockedLessonID *uint  `json:"unlockedLessonId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &saved))
	assert.Equal(t, fmt.Sprintf("activity:%d:user:u1:submission", activity.ID), saved.SubmissionKey)
	require.NotNil(t, saved.UnlockedLessonID)
	assert.Equal(t, lessons[1].ID, *saved.UnlockedLessonID)

	// 学生不能批改
	gradeBody := gin.H{
		"activityId":    fmt.Sprint(activity.ID),
		"userId":        "u1",
		"grade":         4.5,
		"submissionKey": saved.SubmissionKey,
	}
	rec, _ = a.do(http.MethodPost, "/api/educadores/submissions/grade", student, gradeBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = a.do(http.MethodPost, "/api/educadores/submissions/grade", educator, gradeBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"finalGrade":4.5`)

	rec, env = a.do(http.MethodGet, fmt.Sprintf("/api/educadores/activities/%d/submissions/u1", activity.ID), educator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"status":"reviewed"`)

	rec, env = a.do(http.MethodGet, fmt.Sprintf("/api/courses/%d/grades", course.ID), student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var grade struct {
		FinalGrade float64 `json:"finalGrade"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &grade))
	assert.Equal(t, 4.5, grade.FinalGrade)

	rec, _ = a.do(http.MethodPost, "/api/grades/updateGrades", educator, gin.H{"courseId": course.ID, "userId": "u1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParametroBudgetOverHTTP(t *testing.T) {
	a := newTestApp(t)
	course := testutil.SeedCourse(t, a.db, "Go")
	educator := a.token("e1", model.Educator)

	rec, _ := a.do(http.MethodPost, "/api/educadores/parametros", educator, gin.H{"courseId": course.ID, "name": "Parcial", "porcentaje": 50})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := a.do(http.MethodPost, "/api/educadores/parametros", educator, gin.H{"courseId": course.ID, "name": "Final", "porcentaje": 60})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "weight_budget_exceeded", env.Error)

	rec, env = a.do(http.MethodGet, fmt.Sprintf("/api/educadores/parametros?courseId=%d", course.ID), a.token("adm", model.SuperAdmin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var params []model.Parametro
	require.NoError(t, json.Unmarshal(env.Data, &params))
	require.Len(t, params, 1)
	assert.Equal(t, 50, params[0].Porcentaje)

	rec, env = a.do(http.MethodDelete, fmt.Sprintf("/api/educadores/parametros?courseId=%d", course.ID), educator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":1}`, string(env.Data))
}

func TestGradingSettingsReload(t *testing.T) {
	a := newTestApp(t)
	cfg := *a.Config
	cfg.Grading.PassingGrade = 4
	a.applyConfig(&cfg)
	assert.Equal(t, 4.0, a.settings.Grading().PassingGrade)
}
