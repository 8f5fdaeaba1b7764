package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"chatdesk_backend/internal/conversation/repository"
	"chatdesk_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeAttachmentStore struct {
	presigned string
}

func (f *fakeAttachmentStore) Upload(_ context.Context, _ uuid.UUID, _, _ string, _ int64, _ io.Reader) (string, error) {
	return "", nil
}

func (f *fakeAttachmentStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	f.presigned = key
	return "https://storage.example.com/" + key, nil
}

func attachmentURLRequest(t *testing.T, h *WidgetHandler, orgID uuid.UUID, objectKey string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/widget/attachments/url?key="+url.QueryEscape(objectKey), nil)
	c.Set(contextWidgetKey, &repository.WidgetAPIKey{ID: uuid.New(), OrganizationID: orgID})
	h.AttachmentURL(c)
	return rec
}

func TestAttachmentURL_OwnOrganizationKey(t *testing.T) {
	store := &fakeAttachmentStore{}
	h := NewWidgetHandler(nil, store, logger.New("test"))
	orgID := uuid.New()

	objectKey := orgID.String() + "/2026/08/doc.pdf"
	rec := attachmentURLRequest(t, h, orgID, objectKey)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.presigned != objectKey {
		t.Fatalf("expected the store to presign %q, got %q", objectKey, store.presigned)
	}
}

func TestAttachmentURL_ForeignOrganizationKeyRejected(t *testing.T) {
	store := &fakeAttachmentStore{}
	h := NewWidgetHandler(nil, store, logger.New("test"))

	objectKey := uuid.NewString() + "/2026/08/doc.pdf"
	rec := attachmentURLRequest(t, h, uuid.New(), objectKey)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a foreign key, got %d", rec.Code)
	}
	if store.presigned != "" {
		t.Fatalf("store must not be asked to presign a foreign key")
	}
}
