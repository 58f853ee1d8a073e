package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/linelog/internal/model/entity"
	"github.com/bitfantasy/linelog/internal/repository"
	"github.com/bitfantasy/linelog/internal/service"
	"github.com/bitfantasy/linelog/internal/testutil"
	"github.com/gin-gonic/gin"
)

func setupRecordTest(t *testing.T) *gin.Engine {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := service.NewRecordService(repos.Record)
	h := NewRecordHandler(svc)

	router := testutil.SetupRouter()
	items := router.Group("/api/items")
	{
		items.POST("", h.Create)
		items.GET("", h.List)
		items.GET("/:id", h.Get)
		items.PUT("/:id", h.Update)
		items.DELETE("/:id", h.Delete)
	}
	return router
}

func createItem(t *testing.T, router *gin.Engine, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	w := testutil.DoRequest(router, "POST", "/api/items", body)
	if w.Code != http.StatusCreated && w.Code != http.StatusOK {
		t.Fatalf("Create failed with %d: %s", w.Code, w.Body.String())
	}
	return testutil.ResponseData(w)
}

func silveringBody() map[string]interface{} {
	return map[string]interface{}{
		"category":      entity.CategorySilvering,
		"squeegeeSpeed": map[string]interface{}{"value": 120},
		"printPressure": map[string]interface{}{"value": 35},
		"inkViscosity":  map[string]interface{}{"value": 18},
		"operator":      "alice",
	}
}

func TestItemCreate(t *testing.T) {
	router := setupRecordTest(t)

	w := testutil.DoRequest(router, "POST", "/api/items", silveringBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	data := testutil.ResponseData(w)
	if data["id"] == nil || data["id"] == "" {
		t.Error("Expected non-empty id")
	}
	if data["priority"] != entity.PriorityMedium {
		t.Errorf("Expected default priority medium, got %v", data["priority"])
	}
	if data["classificationCode"] != "1100" {
		t.Errorf("Expected classification code 1100, got %v", data["classificationCode"])
	}
}

func TestItemCreateValidationError(t *testing.T) {
	router := setupRecordTest(t)

	body := silveringBody()
	delete(body, "inkViscosity")

	w := testutil.DoRequest(router, "POST", "/api/items", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestItemCreateMissingCategory(t *testing.T) {
	router := setupRecordTest(t)

	w := testutil.DoRequest(router, "POST", "/api/items", map[string]interface{}{
		"operator": "alice",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestItemReconciliationReturns200(t *testing.T) {
	router := setupRecordTest(t)

	first := createItem(t, router, map[string]interface{}{
		"category":      entity.CategoryQualityControl,
		"businessId":    "P100",
		"outcome":       entity.OutcomePendingRework,
		"failureCauses": []string{"Voids"},
	})

	// 同一业务ID的第二次提交归并为更新，返回200
	w := testutil.DoRequest(router, "POST", "/api/items", map[string]interface{}{
		"category":   entity.CategoryQualityControl,
		"businessId": "p100",
		"outcome":    entity.OutcomePass,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for reconciled submit, got %d: %s", w.Code, w.Body.String())
	}

	data := testutil.ResponseData(w)
	if data["id"] != first["id"] {
		t.Errorf("Expected same record id, got %v vs %v", data["id"], first["id"])
	}
	if data["wasReworked"] != true {
		t.Errorf("Expected wasReworked true, got %v", data["wasReworked"])
	}
}

func TestItemList(t *testing.T) {
	router := setupRecordTest(t)

	createItem(t, router, silveringBody())
	createItem(t, router, map[string]interface{}{
		"category":    entity.CategoryStreeting,
		"temperature": map[string]interface{}{"value": 21},
		"speed":       map[string]interface{}{"value": 40},
	})

	w := testutil.DoRequest(router, "GET", "/api/items", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if items, ok := resp["data"].([]interface{}); !ok || len(items) != 2 {
		t.Errorf("Expected 2 items, got %v", resp["data"])
	}

	// 类别过滤
	w = testutil.DoRequest(router, "GET", "/api/items?category=Streeting", nil)
	resp = testutil.ParseResponse(w)
	if items, ok := resp["data"].([]interface{}); !ok || len(items) != 1 {
		t.Errorf("Expected 1 streeting item, got %v", resp["data"])
	}
}

func TestItemGet(t *testing.T) {
	router := setupRecordTest(t)

	item := createItem(t, router, silveringBody())
	id := item["id"].(string)

	w := testutil.DoRequest(router, "GET", "/api/items/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ResponseData(w)
	if data["operator"] != "alice" {
		t.Errorf("Expected operator alice, got %v", data["operator"])
	}
}

func TestItemGetNotFound(t *testing.T) {
	router := setupRecordTest(t)

	w := testutil.DoRequest(router, "GET", "/api/items/nonexistent", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestItemUpdate(t *testing.T) {
	router := setupRecordTest(t)

	item := createItem(t, router, silveringBody())
	id := item["id"].(string)

	w := testutil.DoRequest(router, "PUT", "/api/items/"+id, map[string]interface{}{
		"comments": "recalibrated",
		"priority": entity.PriorityHigh,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ResponseData(w)
	if data["comments"] != "recalibrated" {
		t.Errorf("Expected updated comments, got %v", data["comments"])
	}
	if data["priority"] != entity.PriorityHigh {
		t.Errorf("Expected priority high, got %v", data["priority"])
	}
	// 未提交的字段保留
	if data["operator"] != "alice" {
		t.Errorf("Expected operator preserved, got %v", data["operator"])
	}
}

func TestItemUpdateNotFound(t *testing.T) {
	router := setupRecordTest(t)

	w := testutil.DoRequest(router, "PUT", "/api/items/nonexistent", map[string]interface{}{
		"comments": "x",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestItemDeleteIdempotent(t *testing.T) {
	router := setupRecordTest(t)

	item := createItem(t, router, silveringBody())
	id := item["id"].(string)

	w := testutil.DoRequest(router, "DELETE", "/api/items/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 再删一次照常返回200
	w = testutil.DoRequest(router, "DELETE", "/api/items/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on repeated delete, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "GET", "/api/items/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 after delete, got %d", w.Code)
	}
}
