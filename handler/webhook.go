package handler

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Ultra2000/pdfBot/config"
	"github.com/Ultra2000/pdfBot/job"
	"github.com/Ultra2000/pdfBot/model"
	"github.com/Ultra2000/pdfBot/parser"
	"github.com/Ultra2000/pdfBot/pkg/logger"
	"github.com/Ultra2000/pdfBot/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var menuCodePattern = regexp.MustCompile(`^([1-6]|2[1-3]|4[1-3]|5[1-5])$`)

// menuCommands maps menu and submenu codes to the command they stand for.
// Codes 2, 4 and 5 open submenus instead.
var menuCommands = map[string]string{
	"1":  "COMPRESS whatsapp",
	"3":  "OCR text",
	"6":  "SECURE password",
	"21": "CONVERT docx",
	"22": "CONVERT xlsx",
	"23": "CONVERT img",
	"41": "SUMMARIZE short",
	"42": "SUMMARIZE medium",
	"43": "SUMMARIZE long",
	"51": "TRANSLATE fr",
	"52": "TRANSLATE en",
	"53": "TRANSLATE es",
	"54": "TRANSLATE de",
	"55": "TRANSLATE it",
}

// WebhookHandler receives inbound WhatsApp messages relayed by the provider
// and turns them into processing jobs, menus, or informational replies.
// It always answers 200 so the provider does not retry.
type WebhookHandler struct {
	store      *service.DocumentStore
	sessions   *service.SessionStore
	messenger  service.Messenger
	dispatcher *job.Dispatcher

	expireAfter time.Duration

	mu       sync.Mutex
	welcomed map[string]bool
}

func NewWebhookHandler(
	store *service.DocumentStore,
	sessions *service.SessionStore,
	messenger service.Messenger,
	dispatcher *job.Dispatcher,
	cfg *config.Config,
) *WebhookHandler {
	return &WebhookHandler{
		store:       store,
		sessions:    sessions,
		messenger:   messenger,
		dispatcher:  dispatcher,
		expireAfter: cfg.Documents.ExpireAfter(),
		welcomed:    make(map[string]bool),
	}
}

// Handle processes one inbound message.
func (h *WebhookHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	from := c.PostForm("From")
	body := strings.TrimSpace(c.PostForm("Body"))
	mediaURL := c.PostForm("MediaUrl0")
	mediaContentType := c.PostForm("MediaContentType0")

	userID := strings.TrimPrefix(from, "whatsapp:")

	logger.Info(ctx, "webhook received",
		"from", from, "has_media", mediaURL != "", "media_type", mediaContentType)

	isPdf := mediaURL != "" && mediaContentType == "application/pdf"

	// Greet first-time users. When the first message already carries a PDF,
	// keep handling it so it is not lost.
	if h.isFirstInteraction(userID) {
		h.messenger.SendText(ctx, from, welcomeMessage)
		if !isPdf {
			c.String(http.StatusOK, "OK")
			return
		}
	}

	switch {
	case isPdf:
		h.handlePdf(c, userID, from, body, mediaURL)

	case menuCodePattern.MatchString(body):
		h.handleMenuSelection(c, userID, from, body)

	case body != "":
		h.handleText(c, userID, from, body)

	default:
		h.messenger.SendText(ctx, from, helpMessage)
	}

	c.String(http.StatusOK, "OK")
}

// handlePdf dispatches directly when the message carries a command, and
// otherwise parks the media in a session and offers the menu.
func (h *WebhookHandler) handlePdf(c *gin.Context, userID, from, body, mediaURL string) {
	ctx := c.Request.Context()

	if cmd := parser.Parse(body); cmd != nil {
		h.dispatch(c, userID, from, cmd, mediaURL)
		return
	}

	h.sessions.Put(userID, service.PdfSession{MediaURL: mediaURL, ReceivedAt: time.Now()})
	h.messenger.SendText(ctx, from, pdfMenu)

	logger.Info(ctx, "pdf received, menu sent", "user", userID)
}

func (h *WebhookHandler) handleMenuSelection(c *gin.Context, userID, from, selection string) {
	ctx := c.Request.Context()

	session, ok := h.sessions.Get(userID)
	if !ok {
		h.messenger.SendText(ctx, from, "❌ Session expirée. Veuillez renvoyer votre PDF.")
		return
	}

	switch selection {
	case "2":
		h.messenger.SendText(ctx, from, convertSubmenu)
		return
	case "4":
		h.messenger.SendText(ctx, from, summarizeSubmenu)
		return
	case "5":
		h.messenger.SendText(ctx, from, translateSubmenu)
		return
	}

	command, ok := menuCommands[selection]
	if !ok {
		h.messenger.SendText(ctx, from, "❌ Choix invalide. Choisissez entre 1 et 6.")
		return
	}

	cmd := parser.Parse(command)
	if cmd == nil {
		h.messenger.SendText(ctx, from, "❌ Erreur de traitement. Veuillez réessayer.")
		return
	}

	h.dispatch(c, userID, from, cmd, session.MediaURL)
	h.sessions.Forget(userID)
}

func (h *WebhookHandler) handleText(c *gin.Context, userID, from, body string) {
	ctx := c.Request.Context()

	switch strings.ToUpper(body) {
	case "HELP", "AIDE":
		h.messenger.SendText(ctx, from, helpMessage)
	case "STATUS", "STATUT":
		h.messenger.SendText(ctx, from, h.statusMessage(userID))
	default:
		h.messenger.SendText(ctx, from,
			"📄 Veuillez envoyer un PDF avec votre commande.\n\nExemple: Envoyez un PDF avec le texte 'COMPRESS whatsapp'")
	}
}

// dispatch creates the document and job records and hands the task to the
// worker pool.
func (h *WebhookHandler) dispatch(c *gin.Context, userID, from string, cmd *parser.Command, mediaURL string) {
	ctx := c.Request.Context()
	now := time.Now()

	doc := &model.Document{
		ID:             uuid.NewString(),
		OriginalName:   "whatsapp_pdf_" + now.Format("2006-01-02_15-04-05") + ".pdf",
		WhatsAppUserID: userID,
		Status:         model.StatusPending,
		Metadata: map[string]string{
			"media_url": mediaURL,
			"command":   cmd.Parameters["original_command"],
			"from":      from,
		},
		ExpiresAt: now.Add(h.expireAfter),
	}
	h.store.CreateDocument(doc)

	taskJob := &model.TaskJob{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Type:       cmd.Type,
		Status:     model.StatusPending,
		Parameters: cmd.Parameters,
	}
	h.store.CreateJob(taskJob)

	if !h.dispatcher.Enqueue(job.Task{DocumentID: doc.ID, JobID: taskJob.ID, ReplyTo: from}) {
		// The task will never run, so the records must not linger in pending.
		h.store.DeleteDocument(doc.ID)
		h.messenger.SendText(ctx, from,
			"⏳ Trop de demandes en cours. Veuillez réessayer dans quelques instants.")
		logger.Warn(ctx, "task rejected, queue full", "user", userID)
		return
	}

	h.messenger.SendText(ctx, from,
		fmt.Sprintf("⚡ *%s en cours...*\n\nVous recevrez le résultat dans quelques instants !", operationName(cmd.Type)))

	logger.Info(ctx, "job dispatched",
		"document_id", doc.ID, "job_id", taskJob.ID, "type", cmd.Type, "user", userID)
}

func (h *WebhookHandler) isFirstInteraction(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.welcomed[userID] || h.store.HasDocumentsForUser(userID) {
		return false
	}
	h.welcomed[userID] = true
	return true
}

func (h *WebhookHandler) statusMessage(userID string) string {
	jobs := h.store.RecentJobsForUser(userID, 5)
	if len(jobs) == 0 {
		return "📊 Aucune tâche récente trouvée."
	}

	var b strings.Builder
	b.WriteString("📊 *Vos dernières tâches:*\n\n")
	for _, j := range jobs {
		b.WriteString(fmt.Sprintf("• %s - %s (%s)\n", j.Type, statusLabel(j.Status), frenchAgo(time.Since(j.CreatedAt))))
	}
	return b.String()
}

func statusLabel(status string) string {
	switch status {
	case model.StatusPending:
		return "⏳ En attente"
	case model.StatusRunning:
		return "⚡ En cours"
	case model.StatusCompleted:
		return "✅ Terminé"
	case model.StatusFailed:
		return "❌ Échoué"
	default:
		return "❓ Inconnu"
	}
}

func operationName(op model.OperationType) string {
	switch op {
	case model.OpCompress:
		return "Compression PDF"
	case model.OpConvert:
		return "Conversion PDF"
	case model.OpOcr:
		return "Extraction de texte"
	case model.OpSummarize:
		return "Résumé automatique"
	case model.OpTranslate:
		return "Traduction"
	case model.OpSecure:
		return "Sécurisation PDF"
	default:
		return "Traitement PDF"
	}
}

func frenchAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "à l'instant"
	case d < time.Hour:
		return fmt.Sprintf("il y a %d min", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("il y a %d h", int(d.Hours()))
	default:
		return fmt.Sprintf("il y a %d j", int(d.Hours()/24))
	}
}

const welcomeMessage = "🎉 *Bienvenue sur PDF Bot !*\n\n" +
	"Je suis votre assistant intelligent pour traiter vos PDF.\n\n" +
	"🔹 *Ce que je peux faire :*\n" +
	"• Compresser vos PDF\n" +
	"• Convertir en Word/Excel\n" +
	"• Extraire le texte (OCR)\n" +
	"• Faire des résumés automatiques\n" +
	"• Traduire vos documents\n" +
	"• Sécuriser avec mot de passe\n\n" +
	"📎 *Pour commencer :*\n" +
	"Envoyez-moi simplement un fichier PDF et je vous proposerai un menu d'options !\n\n" +
	"💡 *Aide :* Tapez HELP à tout moment"

const helpMessage = "🤖 *Bot PDF WhatsApp*\n\n" +
	"📄 *Envoyez un PDF avec une commande:*\n\n" +
	"🗜️ *COMPRESS [mode]*\n" +
	"   • whatsapp (défaut)\n" +
	"   • impression\n" +
	"   • équilibré\n\n" +
	"🔄 *CONVERT [format]*\n" +
	"   • docx\n" +
	"   • xlsx\n" +
	"   • img\n\n" +
	"👁️ *OCR* - Extrait le texte\n\n" +
	"📝 *SUMMARIZE [taille]*\n" +
	"   • short (défaut)\n" +
	"   • medium\n" +
	"   • long\n\n" +
	"🌍 *TRANSLATE [langue]*\n" +
	"   • fr, en, es, de...\n\n" +
	"🔒 *SECURE [option]*\n" +
	"   • password\n" +
	"   • watermark\n\n" +
	"ℹ️ Tapez STATUS pour voir vos tâches"

const pdfMenu = "📄 *PDF reçu !* Que voulez-vous faire ?\n\n" +
	"1️⃣ *Compresser* - Réduire la taille\n" +
	"2️⃣ *Convertir* - Vers Word/Excel/Image\n" +
	"3️⃣ *OCR* - Extraire le texte\n" +
	"4️⃣ *Résumer* - Résumé automatique\n" +
	"5️⃣ *Traduire* - Changer la langue\n" +
	"6️⃣ *Sécuriser* - Ajouter mot de passe\n\n" +
	"💬 *Répondez avec le numéro de votre choix* (1-6)"

const convertSubmenu = "📄 *Conversion* - Choisissez le format :\n\n" +
	"2️⃣1️⃣ Word (.docx)\n" +
	"2️⃣2️⃣ Excel (.xlsx)\n" +
	"2️⃣3️⃣ Images (.jpg)\n\n" +
	"💬 *Répondez avec le code* (21, 22 ou 23)"

const summarizeSubmenu = "📝 *Résumé* - Choisissez la taille :\n\n" +
	"4️⃣1️⃣ Court (2-3 lignes)\n" +
	"4️⃣2️⃣ Moyen (1 paragraphe)\n" +
	"4️⃣3️⃣ Détaillé (plusieurs paragraphes)\n\n" +
	"💬 *Répondez avec le code* (41, 42 ou 43)"

const translateSubmenu = "🌍 *Traduction* - Choisissez la langue :\n\n" +
	"5️⃣1️⃣ Français\n" +
	"5️⃣2️⃣ Anglais\n" +
	"5️⃣3️⃣ Espagnol\n" +
	"5️⃣4️⃣ Allemand\n" +
	"5️⃣5️⃣ Italien\n\n" +
	"💬 *Répondez avec le code* (51-55)"
