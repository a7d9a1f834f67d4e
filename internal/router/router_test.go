package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macrolog/internal/db"
	"github.com/macrolog/internal/handler"
	"github.com/macrolog/internal/provider/openfoodfacts"
	"github.com/macrolog/internal/service"
	"github.com/macrolog/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeHTTPClient struct {
	handler func(*http.Request) (*http.Response, error)
}

func (f fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if f.handler == nil {
		return nil, errors.New("no handler configured")
	}
	return f.handler(req)
}

func completion(content string) *http.Response {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
	})
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(body))}
}

type testEnv struct {
	router  *gin.Engine
	cookies []*http.Cookie
	aiReply string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, nil)
}

// failingSaveStore 在 failing 为 true 时拒绝所有写入
type failingSaveStore struct {
	*store.MemoryStore
	failing bool
}

func (s *failingSaveStore) Save(ctx context.Context, key string, value []byte) error {
	if s.failing {
		return errors.New("disk unavailable")
	}
	return s.MemoryStore.Save(ctx, key, value)
}

// newTestEnvWithStore 构造完整路由，kv 为 nil 时使用 SQLite 键值表
func newTestEnvWithStore(t *testing.T, kv store.Store) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	off := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/product/12345678.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":1,"product":{"product_name":"Granola Bar","nutriments":{"energy-kcal_serving":190,"proteins_serving":4,"carbohydrates_serving":29,"fat_serving":7,"sugars_serving":11}}}`))
	}))
	t.Cleanup(off.Close)

	env := &testEnv{}
	if kv == nil {
		kv = store.NewSQLStore(gdb)
	}
	profiles := service.NewProfileService(kv)
	ledger := service.NewLedgerService(kv, profiles)
	ai := service.NewAINutritionService(service.AIClientConfig{Provider: "openai", OpenAIAPIKey: "sk-test"})
	ai.SetHTTPClient(fakeHTTPClient{handler: func(*http.Request) (*http.Response, error) {
		return completion(env.aiReply), nil
	}})

	api := handler.NewAPI(handler.Services{
		Accounts:    service.NewAccountService(gdb),
		Profiles:    profiles,
		Ledger:      ledger,
		Progress:    service.NewProgressService(ledger, profiles),
		Recipes:     service.NewRecipeService(kv),
		Preferences: service.NewPreferenceService(kv),
		AI:          ai,
		Barcodes:    service.NewBarcodeService(openfoodfacts.NewClient(off.URL)),
	})
	env.router = SetupRouter(Options{SessionSecret: "test-secret", CORSOrigins: []string{"http://localhost:3000"}}, api)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req)
}

func (e *testEnv) send(req *http.Request) *httptest.ResponseRecorder {
	for _, cookie := range e.cookies {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	if cookies := rr.Result().Cookies(); len(cookies) > 0 {
		e.cookies = cookies
	}
	return rr
}

func (e *testEnv) signUp(t *testing.T) {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/auth/signup", gin.H{
		"name": "Lin", "email": "lin@example.com", "avatar": "🍎", "password": "correct horse",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected signup to succeed, got %d: %s", rr.Code, rr.Body.String())
	}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestOperationalRoutes(t *testing.T) {
	env := newTestEnv(t)

	if rr := env.do(t, http.MethodGet, "/ping", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected ping 200, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/healthz", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rr.Code)
	}
	rr := env.do(t, http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "macrolog_http_requests_total") {
		t.Fatalf("expected metrics output, got %d", rr.Code)
	}
}

func TestSignUpStateAndAuthGate(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/profile", nil)
	state := decode[map[string]any](t, rr)
	if state["signedUp"] != false || state["hasAccount"] != false {
		t.Fatalf("expected sign-up state, got %v", state)
	}

	if rr := env.do(t, http.MethodGet, "/api/today", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rr.Code)
	}

	env.signUp(t)
	rr = env.do(t, http.MethodGet, "/api/profile", nil)
	profile := decode[map[string]any](t, rr)
	if profile["signedUp"] != true || profile["name"] != "Lin" {
		t.Fatalf("expected profile view, got %v", profile)
	}

	if rr := env.do(t, http.MethodPost, "/api/auth/signup", gin.H{
		"name": "Other", "email": "o@example.com", "avatar": "x", "password": "another secret",
	}); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second account, got %d", rr.Code)
	}

	env.do(t, http.MethodPost, "/api/auth/logout", nil)
	env.cookies = nil
	if rr := env.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "lin@example.com", "password": "nope"}); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "lin@example.com", "password": "correct horse"}); rr.Code != http.StatusOK {
		t.Fatalf("expected login to succeed, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/api/today", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected session to grant access, got %d", rr.Code)
	}
}

func TestSignUpRollsBackAccountWhenProfileSaveFails(t *testing.T) {
	kv := &failingSaveStore{MemoryStore: store.NewMemoryStore(), failing: true}
	env := newTestEnvWithStore(t, kv)

	payload := gin.H{"name": "Lin", "email": "lin@example.com", "avatar": "🍎", "password": "correct horse"}
	if rr := env.do(t, http.MethodPost, "/api/auth/signup", payload); rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when profile cannot be saved, got %d", rr.Code)
	}

	state := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/profile", nil))
	if state["signedUp"] != false || state["hasAccount"] != false {
		t.Fatalf("expected failed sign-up to leave no account, got %v", state)
	}

	kv.failing = false
	if rr := env.do(t, http.MethodPost, "/api/auth/signup", payload); rr.Code != http.StatusCreated {
		t.Fatalf("expected retry to succeed, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := env.do(t, http.MethodGet, "/api/today", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected session after retry, got %d", rr.Code)
	}
}

func TestLedgerRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t)

	rr := env.do(t, http.MethodPost, "/api/log/entries", gin.H{"entries": []gin.H{{
		"type": "meal",
		"items": []gin.H{
			{"name": "Rice", "calories": 300, "protein": 20, "carbs": 60, "fat": 2},
			{"name": "Salad", "calories": 200, "protein": 5, "carbs": 25, "fat": 5},
		},
	}}})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	added := decode[struct {
		Added []struct {
			ID string `json:"id"`
		} `json:"added"`
	}](t, rr)
	mealID := added.Added[0].ID

	if rr := env.do(t, http.MethodPost, "/api/log/exercise", gin.H{"activity": "Run", "caloriesBurned": 150}); rr.Code != http.StatusCreated {
		t.Fatalf("expected exercise 201, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/log/meal", gin.H{"name": "", "calories": 100}); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for nameless meal, got %d", rr.Code)
	}

	today := decode[service.DaySnapshot](t, env.do(t, http.MethodGet, "/api/today", nil))
	if today.Totals.Calories != 350 || today.Totals.Protein != 25 {
		t.Fatalf("unexpected totals %+v", today.Totals)
	}

	rr = env.do(t, http.MethodPut, "/api/log/entries/"+mealID+"/items/9", gin.H{"name": "Rice", "calories": 1})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for out-of-range edit, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodDelete, "/api/log/entries/"+mealID+"/items/abc", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad index, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodDelete, "/api/log/entries/"+mealID+"/items/1", nil)
	resp := decode[struct {
		EntryRemoved bool                `json:"entryRemoved"`
		Today        service.DaySnapshot `json:"today"`
	}](t, rr)
	if resp.EntryRemoved || resp.Today.Totals.Calories != 150 {
		t.Fatalf("unexpected delete item response %+v", resp)
	}

	water := decode[map[string]int](t, env.do(t, http.MethodPost, "/api/water", gin.H{"delta": -3}))
	if water["water"] != 0 {
		t.Fatalf("expected water clamp at 0, got %v", water)
	}
	env.do(t, http.MethodPost, "/api/water", gin.H{"delta": 2})

	if rr := env.do(t, http.MethodDelete, "/api/log", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected clear 200, got %d", rr.Code)
	}
	today = decode[service.DaySnapshot](t, env.do(t, http.MethodGet, "/api/today", nil))
	if len(today.Entries) != 0 || today.Water != 0 || today.Totals.Calories != 0 {
		t.Fatalf("expected cleared day, got %+v", today)
	}

	if rr := env.do(t, http.MethodDelete, "/api/log/entries/missing", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown entry, got %d", rr.Code)
	}

	progress := decode[struct {
		Days []service.DayRollup `json:"days"`
	}](t, env.do(t, http.MethodGet, "/api/progress?days=7", nil))
	if len(progress.Days) != 1 || progress.Days[0].EntryCount != 0 {
		t.Fatalf("unexpected progress %+v", progress)
	}
	if rr := env.do(t, http.MethodGet, "/api/progress?days=-1", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative days, got %d", rr.Code)
	}
}

func TestProfileAndPreferenceRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t)

	rr := env.do(t, http.MethodPut, "/api/profile", gin.H{
		"unitSystem": "imperial", "heightFeet": 5, "heightInches": 10, "currentWeight": 180,
		"age": 35, "activityLevel": "Lightly Active", "fitnessGoal": "Maintain Weight",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	view := decode[service.ProfileView](t, rr)
	if view.DisplayWeight != 180 || view.DisplayHeightFeet != 5 || view.DisplayHeightInches != 10 || view.SuggestedCalorieGoal == 0 {
		t.Fatalf("unexpected view %+v", view)
	}

	if rr := env.do(t, http.MethodPut, "/api/profile", gin.H{"fitnessGoal": "Get Huge"}); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad goal, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/profile/weight", gin.H{"weight": 178.5}); rr.Code != http.StatusOK {
		t.Fatalf("expected weight log 200, got %d", rr.Code)
	}

	if rr := env.do(t, http.MethodPut, "/api/theme", gin.H{"theme": "dark"}); rr.Code != http.StatusOK {
		t.Fatalf("expected theme 200, got %d", rr.Code)
	}
	theme := decode[map[string]string](t, env.do(t, http.MethodGet, "/api/theme", nil))
	if theme["theme"] != "dark" {
		t.Fatalf("expected dark theme, got %v", theme)
	}
	if rr := env.do(t, http.MethodPut, "/api/theme", gin.H{"theme": "blue"}); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown theme, got %d", rr.Code)
	}
}

func TestRecipeRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t)

	rr := env.do(t, http.MethodPost, "/api/recipes/custom", gin.H{"name": "Protein pancakes", "calories": 380, "protein": 30})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decode[struct {
		Recipe struct {
			ID string `json:"id"`
		} `json:"recipe"`
	}](t, rr)

	if rr := env.do(t, http.MethodPost, "/api/favorites", gin.H{"id": created.Recipe.ID, "name": "Protein pancakes", "calories": 380}); rr.Code != http.StatusCreated {
		t.Fatalf("expected favorite 201, got %d", rr.Code)
	}
	favorites := decode[struct {
		Recipes []json.RawMessage `json:"recipes"`
	}](t, env.do(t, http.MethodGet, "/api/favorites", nil))
	if len(favorites.Recipes) != 1 {
		t.Fatalf("expected one favorite, got %d", len(favorites.Recipes))
	}

	if rr := env.do(t, http.MethodDelete, "/api/recipes/custom/"+created.Recipe.ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodDelete, "/api/favorites/unknown", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestAIAndBarcodeRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t)

	env.aiReply = `{"items":[{"name":"Toast","calories":120,"protein":4,"carbs":20,"fat":2}]}`
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "meal.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if err := png.Encode(part, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	_ = writer.WriteField("log", "true")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/ai/analyze", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := env.send(req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected analyzed meal to be logged, got %d: %s", rr.Code, rr.Body.String())
	}
	logged := decode[struct {
		Today service.DaySnapshot `json:"today"`
	}](t, rr)
	if logged.Today.Totals.Calories != 120 {
		t.Fatalf("expected analyzed meal in totals, got %+v", logged.Today.Totals)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/ai/analyze", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if rr := env.send(req); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without image, got %d", rr.Code)
	}

	env.aiReply = "not json at all"
	if rr := env.do(t, http.MethodPost, "/api/mealplans/generate", nil); rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for malformed plan, got %d", rr.Code)
	}

	env.aiReply = "Try **lentils**."
	reply := decode[service.ChatReply](t, env.do(t, http.MethodPost, "/api/ai/chat", gin.H{
		"messages": []gin.H{{"role": "user", "content": "protein ideas?"}},
	}))
	if !strings.Contains(reply.HTML, "<strong>lentils</strong>") {
		t.Fatalf("unexpected chat reply %+v", reply)
	}

	item := decode[struct {
		Item struct {
			Name     string  `json:"name"`
			Calories float64 `json:"calories"`
		} `json:"item"`
	}](t, env.do(t, http.MethodGet, "/api/barcode/12345678", nil))
	if item.Item.Name != "Granola Bar" || item.Item.Calories != 190 {
		t.Fatalf("unexpected barcode item %+v", item)
	}
	if rr := env.do(t, http.MethodGet, "/api/barcode/87654321", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown barcode, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/api/barcode/abc", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed barcode, got %d", rr.Code)
	}
}
