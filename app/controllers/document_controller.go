package controllers

import (
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/fieldpass/fieldpass/app/models"
	"github.com/fieldpass/fieldpass/app/repository"
	"github.com/fieldpass/fieldpass/internal/pkg/docstore"
	"github.com/fieldpass/fieldpass/internal/pkg/entitlements"
	"github.com/fieldpass/fieldpass/internal/pkg/env"
	"github.com/fieldpass/fieldpass/internal/pkg/security"
	"github.com/fieldpass/fieldpass/internal/pkg/usercontext"
)

// maxDocumentBytes caps a single compliance document upload.
const maxDocumentBytes = 20 << 20

// uploadTokenTTL is how long an issued upload token stays valid.
const uploadTokenTTL = 15 * time.Minute

var (
	docstoreOnce   sync.Once
	docstoreClient *docstore.Client
	docstoreErr    error
)

func documentStore() (*docstore.Client, error) {
	docstoreOnce.Do(func() {
		cfg, err := docstore.LoadConfig()
		if err != nil {
			docstoreErr = err
			return
		}
		docstoreClient, docstoreErr = docstore.NewClient(cfg)
	})
	return docstoreClient, docstoreErr
}

func uploadTokenSecret() string {
	return env.GetEnv("UPLOAD_TOKEN_SECRET", "")
}

type uploadTokenRequest struct {
	DocType string `json:"doc_type"`
}

// HandleIssueUploadToken hands out a short-lived signed token that authorizes
// exactly one document upload. The upload endpoint itself only trusts the
// token, so it can sit behind a separate ingress without session state.
func HandleIssueUploadToken(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		return unauthorized(c)
	}

	var req uploadTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if !models.IsValidDocType(req.DocType) {
		return badRequest(c, "Unknown doc_type")
	}

	token, err := security.GenerateUploadToken(userCtx.UserID, userCtx.AcademyID,
		req.DocType, maxDocumentBytes, uploadTokenTTL, uploadTokenSecret())
	if err != nil {
		return internalError(c, "Failed to issue upload token")
	}
	return c.JSON(fiber.Map{
		"token":      token,
		"max_bytes":  maxDocumentBytes,
		"expires_in": int(uploadTokenTTL.Seconds()),
	})
}

// HandleUploadDocument stores a compliance document in object storage and
// records its metadata. Authorization comes from the upload token, storage
// quota from the academy's plan.
func HandleUploadDocument(c *fiber.Ctx) error {
	claims, err := security.VerifyUploadToken(c.FormValue("token"), uploadTokenSecret())
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid or expired upload token")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	if file.Size <= 0 || file.Size > claims.MaxBytes {
		return badRequest(c, "File is empty or exceeds the allowed size")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	academy, err := repos.Academy.GetByID(claims.AcademyID)
	if err != nil {
		return notFound(c, "Academy not found")
	}

	used, err := repos.Document.SumSizeByAcademy(academy.ID)
	if err != nil {
		return internalError(c, "Failed to load storage usage")
	}
	tier := resolveAcademyTier(repos, academy.ID)
	if !entitlements.CanStoreDocument(tier, used, file.Size) {
		return jsonError(c, fiber.StatusPaymentRequired, "limit_reached", "Document storage limit reached for the current plan")
	}

	doc := models.NewComplianceDocument(academy.ID, claims.DocType, file.Filename, "",
		contentTypeFor(file.Filename), file.Size, claims.UserID)

	// Optional links to a player and/or transfer within the same academy.
	if playerUUID := c.FormValue("player_uuid"); playerUUID != "" {
		player, err := repos.Player.GetByUUID(playerUUID)
		if err != nil || player.AcademyID != academy.ID {
			return notFound(c, "Player not found")
		}
		doc.PlayerID = &player.ID
	}
	if transferUUID := c.FormValue("transfer_uuid"); transferUUID != "" {
		transfer, err := repos.Transfer.GetByUUID(transferUUID)
		if err != nil || transfer.AcademyID != academy.ID {
			return notFound(c, "Transfer not found")
		}
		doc.TransferID = &transfer.ID
	}
	if expiresAt := c.FormValue("expires_at"); expiresAt != "" {
		t, err := time.Parse("2006-01-02", expiresAt)
		if err != nil {
			return badRequest(c, "expires_at must be YYYY-MM-DD")
		}
		doc.ExpiresAt = &t
	}

	cfg, err := docstore.LoadConfig()
	if err != nil || !cfg.IsEnabled() {
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "Document storage is not configured")
	}
	doc.ObjectKey = cfg.GetObjectKey(academy.UUID, doc.UUID, strings.ToLower(filepath.Ext(file.Filename)), time.Now().Year())

	store, err := documentStore()
	if err != nil {
		log.Errorf("[Document] Object storage unavailable: %v", err)
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "Document storage is not available")
	}

	src, err := file.Open()
	if err != nil {
		return internalError(c, "Failed to read upload")
	}
	defer src.Close()

	ctx, cancel := providerContext()
	defer cancel()
	if err := store.Upload(ctx, doc.ObjectKey, src, file.Size); err != nil {
		log.Errorf("[Document] Upload to object storage failed for %s: %v", doc.UUID, err)
		return internalError(c, "Failed to store document")
	}

	if err := repos.Document.Create(doc); err != nil {
		// The metadata row is the source of truth; remove the orphaned object.
		if delErr := store.Delete(ctx, doc.ObjectKey); delErr != nil {
			log.Errorf("[Document] Failed to remove orphaned object %s: %v", doc.ObjectKey, delErr)
		}
		return internalError(c, "Failed to record document")
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// HandleListDocuments lists the academy's compliance documents.
func HandleListDocuments(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		return unauthorized(c)
	}

	offset, limit := parsePagination(c)
	repos := repository.GetGlobalFactory().GetRepositories()
	docs, err := repos.Document.ListByAcademy(userCtx.AcademyID, offset, limit)
	if err != nil {
		return internalError(c, "Failed to load documents")
	}
	used, err := repos.Document.SumSizeByAcademy(userCtx.AcademyID)
	if err != nil {
		return internalError(c, "Failed to load storage usage")
	}
	return c.JSON(fiber.Map{"documents": docs, "count": len(docs), "bytes_used": used})
}

// HandleDownloadDocument streams a document from object storage.
func HandleDownloadDocument(c *fiber.Ctx) error {
	doc, ok := loadOwnedDocument(c)
	if !ok {
		return nil
	}

	store, err := documentStore()
	if err != nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "Document storage is not available")
	}

	ctx, cancel := providerContext()
	defer cancel()
	body, err := store.Download(ctx, doc.ObjectKey)
	if err != nil {
		log.Errorf("[Document] Download failed for %s: %v", doc.UUID, err)
		return internalError(c, "Failed to fetch document")
	}

	if doc.ContentType != "" {
		c.Set(fiber.HeaderContentType, doc.ContentType)
	}
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+doc.FileName+`"`)
	return c.SendStream(body)
}

// HandleDeleteDocument removes a document and its stored object.
func HandleDeleteDocument(c *fiber.Ctx) error {
	if !usercontext.IsAdmin(c) {
		return forbidden(c, "Admin access required")
	}
	doc, ok := loadOwnedDocument(c)
	if !ok {
		return nil
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	if err := repos.Document.Delete(doc.ID); err != nil {
		return internalError(c, "Failed to delete document")
	}

	// Best effort: a dangling object is recoverable, a dangling row is not.
	if store, err := documentStore(); err == nil {
		ctx, cancel := providerContext()
		defer cancel()
		if err := store.Delete(ctx, doc.ObjectKey); err != nil {
			log.Warnf("[Document] Failed to delete object %s: %v", doc.ObjectKey, err)
		}
	}
	return c.JSON(fiber.Map{"message": "Document deleted"})
}

func contentTypeFor(fileName string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// resolveAcademyTier resolves the entitlement tier from the academy's active
// subscription, outside of any session. A PAST_DUE subscription keeps its
// tier until reconciliation expires it.
func resolveAcademyTier(repos *repository.Repositories, academyID uint) entitlements.Tier {
	sub, err := repos.Subscription.GetActiveByAcademy(academyID)
	if err != nil {
		subs, lerr := repos.Subscription.ListByAcademy(academyID)
		if lerr != nil || len(subs) == 0 || !subs[0].IsEntitling() {
			return entitlements.TierStarter
		}
		sub = &subs[0]
	}
	plan, err := repos.Plan.GetByID(sub.PlanID)
	if err != nil {
		return entitlements.TierStarter
	}
	return entitlements.Normalize(plan.Tier)
}

// loadOwnedDocument resolves the :uuid route param and enforces tenancy.
func loadOwnedDocument(c *fiber.Ctx) (*models.ComplianceDocument, bool) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		_ = unauthorized(c)
		return nil, false
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	doc, err := repos.Document.GetByUUID(c.Params("uuid"))
	if err != nil || doc.AcademyID != userCtx.AcademyID {
		_ = notFound(c, "Document not found")
		return nil, false
	}
	return doc, true
}
