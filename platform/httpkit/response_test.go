package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatdesk_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

func testContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestError_MessageOnly(t *testing.T) {
	c, rec := testContext(t)

	Error(c, http.StatusBadRequest, "invalid conversation id")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if string(body["error"]) != `"invalid conversation id"` {
		t.Fatalf("unexpected error field: %s", body["error"])
	}
	if _, ok := body["details"]; ok {
		t.Fatalf("details should be omitted when not provided: %s", rec.Body.String())
	}
}

func TestError_WithDetails(t *testing.T) {
	c, rec := testContext(t)

	Error(c, http.StatusBadRequest, "invalid request body", map[string]string{"field": "name"})

	if !strings.Contains(rec.Body.String(), `"field":"name"`) {
		t.Fatalf("expected details in body, got %s", rec.Body.String())
	}
}

func TestHandleError_MapsDomainKind(t *testing.T) {
	c, rec := testContext(t)

	if !HandleError(c, apperr.NotFound("lead not found")) {
		t.Fatal("expected the error to be handled")
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleError_NilIsNotHandled(t *testing.T) {
	c, _ := testContext(t)

	if HandleError(c, nil) {
		t.Fatal("nil error must not be handled")
	}
}
