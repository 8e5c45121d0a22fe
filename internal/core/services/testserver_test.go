package services_test

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"fingate-portal/internal/adapters/rest"
	"fingate-portal/internal/core/domain"
	"fingate-portal/internal/core/services"
	"fingate-portal/internal/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory implementation of the portal REST contract,
// served by fiber so the full transport path is exercised over loopback.
type fakeBackend struct {
	mu       sync.Mutex
	nextID   uint
	docs     map[uint]*domain.Document
	files    map[uint][]byte
	messages map[uint]*domain.Message
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextID:   100,
		docs:     make(map[uint]*domain.Document),
		files:    make(map[uint][]byte),
		messages: make(map[uint]*domain.Message),
	}
}

func (b *fakeBackend) newID() uint {
	b.nextID++
	return b.nextID
}

// expireDocument simulates backend TTL garbage collection of a temporary upload
func (b *fakeBackend) expireDocument(id uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.docs, id)
	delete(b.files, id)
}

// seedMessage installs a message directly, bypassing the HTTP surface
func (b *fakeBackend) seedMessage(m *domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m.ID == 0 {
		m.ID = b.newID()
	}
	b.messages[m.ID] = m
}

func (b *fakeBackend) document(id uint) *domain.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.docs[id]
}

func (b *fakeBackend) message(id uint) *domain.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.messages[id]
}

func (b *fakeBackend) requireAuth(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "access token required"})
	}
	claims, err := token.Parse(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid access token"})
	}
	c.Locals("userID", claims.UserID)
	c.Locals("role", domain.Role(claims.Role))
	return c.Next()
}

func (b *fakeBackend) app() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(b.requireAuth)

	app.Post("/uploads", func(c *fiber.Ctx) error {
		return b.handleUpload(c, c.FormValue("context"))
	})
	app.Post("/applications/:id/documents", func(c *fiber.Ctx) error {
		return b.handleUpload(c, "application:"+c.Params("id"))
	})
	app.Post("/uploads/:id/confirm", b.handleConfirm)
	app.Post("/uploads/:id/replace", b.handleReplace)
	app.Post("/documents/:id/replace", b.handleReplace)
	app.Delete("/uploads/:id", b.handleDelete)
	app.Delete("/documents/:id", b.handleDelete)
	app.Get("/uploads/:id/download", b.handleDownload)
	app.Get("/documents/:id/download", b.handleDownload)
	app.Get("/uploads", func(c *fiber.Ctx) error {
		return b.handleList(c, c.Query("context"))
	})
	app.Get("/applications/:id/documents", func(c *fiber.Ctx) error {
		return b.handleList(c, "application:"+c.Params("id"))
	})

	app.Get("/applications/:id/messages", b.handleListMessages)
	app.Post("/messages", b.handleSendMessage)
	app.Patch("/messages/:id", b.handleEditMessage)
	app.Delete("/messages/:id", b.handleDeleteMessage)
	app.Post("/admin/chat/messages/:id/approve", func(c *fiber.Ctx) error {
		return b.handleModerate(c, domain.ModerationApproved)
	})
	app.Post("/admin/chat/messages/:id/reject", func(c *fiber.Ctx) error {
		return b.handleModerate(c, domain.ModerationRejected)
	})

	return app
}

func (b *fakeBackend) handleUpload(c *fiber.Ctx, contextKey string) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	expires := time.Now().Add(15 * time.Minute)
	doc := &domain.Document{
		ID:         b.newID(),
		Context:    contextKey,
		DocType:    c.FormValue("doc_type"),
		Status:     domain.DocumentTemporary,
		FileName:   fileHeader.Filename,
		Size:       fileHeader.Size,
		UploadedAt: time.Now(),
		ExpiresAt:  &expires,
	}
	b.docs[doc.ID] = doc
	b.files[doc.ID] = content

	return c.JSON(uploadReply(doc))
}

func (b *fakeBackend) handleConfirm(c *fiber.Ctx) error {
	id := paramID(c)

	b.mu.Lock()
	defer b.mu.Unlock()

	doc, ok := b.docs[id]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "upload not found or expired"})
	}
	if doc.Status != domain.DocumentTemporary {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "upload already confirmed"})
	}

	doc.Status = domain.DocumentConfirmed
	doc.ExpiresAt = nil
	return c.SendStatus(fiber.StatusNoContent)
}

func (b *fakeBackend) handleReplace(c *fiber.Ctx) error {
	id := paramID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	target, ok := b.docs[id]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "document not found"})
	}
	if target.Status != domain.DocumentConfirmed {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "replace target is not confirmed"})
	}

	target.Status = domain.DocumentArchived

	successor := &domain.Document{
		ID:            b.newID(),
		Context:       target.Context,
		DocType:       target.DocType,
		Status:        domain.DocumentConfirmed,
		FileName:      fileHeader.Filename,
		Size:          fileHeader.Size,
		UploadedAt:    time.Now(),
		ReplacesID:    &target.ID,
		ReplaceReason: c.FormValue("reason"),
	}
	b.docs[successor.ID] = successor

	return c.JSON(uploadReply(successor))
}

func (b *fakeBackend) handleDelete(c *fiber.Ctx) error {
	id := paramID(c)

	b.mu.Lock()
	defer b.mu.Unlock()

	doc, ok := b.docs[id]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "document not found"})
	}
	if doc.Status != domain.DocumentConfirmed {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "only confirmed documents can be deleted"})
	}

	delete(b.docs, id)
	delete(b.files, id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (b *fakeBackend) handleDownload(c *fiber.Ctx) error {
	id := paramID(c)

	b.mu.Lock()
	defer b.mu.Unlock()

	doc, ok := b.docs[id]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "document not found"})
	}

	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.FileName))
	return c.Send(b.files[id])
}

func (b *fakeBackend) handleList(c *fiber.Ctx, contextKey string) error {
	includeArchived := c.Query("include_archived") == "true"

	b.mu.Lock()
	defer b.mu.Unlock()

	docs := make([]*domain.Document, 0)
	for _, doc := range b.docs {
		if doc.Context != contextKey {
			continue
		}
		if doc.Status == domain.DocumentConfirmed || (includeArchived && doc.Status == domain.DocumentArchived) {
			docs = append(docs, doc)
		}
	}

	return c.JSON(docs)
}

func (b *fakeBackend) handleListMessages(c *fiber.Ctx) error {
	appID, _ := strconv.ParseUint(c.Params("id"), 10, 32)
	userID := c.Locals("userID").(uint)
	role := c.Locals("role").(domain.Role)

	b.mu.Lock()
	defer b.mu.Unlock()

	messages := make([]*domain.Message, 0)
	for _, m := range b.messages {
		if m.ApplicationID != uint(appID) {
			continue
		}
		// Non-admins see everyone's approved messages plus their own
		if role != domain.RoleAdmin && m.ModerationStatus != domain.ModerationApproved && m.SenderUserID != userID {
			continue
		}
		messages = append(messages, m)
	}

	// Deliberately not sorted: map iteration order checks the client re-sorts
	return c.JSON(messages)
}

func (b *fakeBackend) handleSendMessage(c *fiber.Ctx) error {
	var in struct {
		ApplicationID uint   `json:"application_id"`
		Body          string `json:"body"`
	}
	if err := c.BodyParser(&in); err != nil || strings.TrimSpace(in.Body) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "body is required"})
	}

	role := c.Locals("role").(domain.Role)
	status := domain.ModerationApproved
	if role == domain.RoleAgent || role == domain.RoleClient || role == domain.RolePartner {
		status = domain.ModerationPending
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	message := &domain.Message{
		ID:               b.newID(),
		ApplicationID:    in.ApplicationID,
		SenderUserID:     c.Locals("userID").(uint),
		SenderRole:       role,
		Body:             in.Body,
		ModerationStatus: status,
		CreatedAt:        time.Now(),
	}
	b.messages[message.ID] = message

	return c.JSON(message)
}

func (b *fakeBackend) handleEditMessage(c *fiber.Ctx) error {
	var in struct {
		Body string `json:"body"`
	}
	if err := c.BodyParser(&in); err != nil || strings.TrimSpace(in.Body) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "body is required"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	message, ok := b.messages[paramID(c)]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "message not found"})
	}
	if message.SenderUserID != c.Locals("userID").(uint) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not the message sender"})
	}

	now := time.Now()
	message.Body = in.Body
	message.EditedAt = &now
	return c.JSON(message)
}

func (b *fakeBackend) handleDeleteMessage(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	message, ok := b.messages[paramID(c)]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "message not found"})
	}
	if message.SenderUserID != c.Locals("userID").(uint) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not the message sender"})
	}

	delete(b.messages, message.ID)
	return c.SendStatus(fiber.StatusNoContent)
}

func (b *fakeBackend) handleModerate(c *fiber.Ctx, verdict domain.ModerationStatus) error {
	if c.Locals("role").(domain.Role) != domain.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin only"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	message, ok := b.messages[paramID(c)]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "message not found"})
	}
	if message.ModerationStatus == verdict {
		// Repeating the same verdict is a no-op
		return c.SendStatus(fiber.StatusNoContent)
	}
	if message.ModerationStatus != domain.ModerationPending {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "message already moderated"})
	}

	message.ModerationStatus = verdict
	return c.SendStatus(fiber.StatusNoContent)
}

func paramID(c *fiber.Ctx) uint {
	id, _ := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id)
}

// uploadReply mirrors the backend upload/replace reply envelope
func uploadReply(doc *domain.Document) fiber.Map {
	return fiber.Map{
		"id":             doc.ID,
		"url":            fmt.Sprintf("/uploads/%d/download", doc.ID),
		"file_name":      doc.FileName,
		"size":           doc.Size,
		"context":        doc.Context,
		"doc_type":       doc.DocType,
		"is_temporary":   doc.Status == domain.DocumentTemporary,
		"expires_at":     doc.ExpiresAt,
		"uploaded_at":    doc.UploadedAt,
		"replaces_id":    doc.ReplacesID,
		"replace_reason": doc.ReplaceReason,
	}
}

// testEnv wires a session and both services against a fake backend
type testEnv struct {
	backend   *fakeBackend
	baseURL   string
	session   *services.Session
	documents *services.DocumentService
	docStore  *services.DocumentStore
	messages  *services.MessageService
	msgStore  *services.MessageStore
}

// startEnv boots the fake backend on a loopback listener and logs in a user
// with the given identity.
func startEnv(t *testing.T, userID uint, username string, role domain.Role) *testEnv {
	t.Helper()

	backend := newFakeBackend()
	app := backend.app()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.Shutdown()
	})

	session := services.NewSession(t.TempDir() + "/token")
	_, err = session.SetToken(mintToken(t, userID, username, role))
	require.NoError(t, err)

	baseURL := "http://" + ln.Addr().String()
	client := rest.NewClient(baseURL, 5*time.Second, session)
	docStore := services.NewDocumentStore()
	msgStore := services.NewMessageStore()

	return &testEnv{
		backend:   backend,
		baseURL:   baseURL,
		session:   session,
		documents: services.NewDocumentService(rest.NewDocumentAPI(client), docStore),
		docStore:  docStore,
		messages:  services.NewMessageService(rest.NewMessageAPI(client), session, msgStore),
		msgStore:  msgStore,
	}
}

// mintToken signs a throwaway HS256 token; the client parses it unverified
func mintToken(t *testing.T, userID uint, username string, role domain.Role) string {
	t.Helper()

	claims := jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"role":     string(role),
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}
