// Package chat implements the Telegram adapter drivers use from the road:
// PIN login, pending task lookup, and photo replacement for illegible
// evidence.
package chat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/google/uuid"

	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/service"
	"github.com/pilotos/fleetcore/internal/storage"
)

// Config holds the Telegram adapter configuration.
type Config struct {
	Token string

	// UpdateTimeout is the long-poll timeout in seconds.
	// Default: 60
	UpdateTimeout int

	// DownloadTimeout bounds a single photo download.
	// Default: 30 seconds
	DownloadTimeout time.Duration
}

// Bot is the Telegram chat adapter. Drivers authenticate with their phone
// and PIN; the session maps the chat to a person for the rest of the
// conversation.
type Bot struct {
	api      *tgbotapi.BotAPI
	config   Config
	people   service.PersonService
	tasks    service.TaskService
	evidence service.EvidenceService
	files    storage.Storage
	client   *http.Client
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[int64]uuid.UUID // chat id -> person id

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New creates the Telegram adapter.
func New(config Config, people service.PersonService, tasks service.TaskService, evidence service.EvidenceService, files storage.Storage, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	if config.UpdateTimeout <= 0 {
		config.UpdateTimeout = 60
	}
	if config.DownloadTimeout <= 0 {
		config.DownloadTimeout = 30 * time.Second
	}

	return &Bot{
		api:      api,
		config:   config,
		people:   people,
		tasks:    tasks,
		evidence: evidence,
		files:    files,
		client:   &http.Client{Timeout: config.DownloadTimeout},
		logger:   logger,
		sessions: make(map[int64]uuid.UUID),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins consuming updates. Call Stop to shut down.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.config.UpdateTimeout
	updates := b.api.GetUpdatesChan(u)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-b.stopCh:
				return
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil {
					b.handleMessage(ctx, update.Message)
				}
			}
		}
	}()

	b.logger.Info("telegram adapter started", "bot", b.api.Self.UserName)
}

// Stop shuts the update loop down.
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
	close(b.stopCh)
	b.wg.Wait()
	b.logger.Info("telegram adapter stopped")
}

func (b *Bot) session(chatID int64) (uuid.UUID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.sessions[chatID]
	return id, ok
}

func (b *Bot) setSession(chatID int64, personID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[chatID] = personID
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("telegram reply failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.Photo != nil {
		b.handlePhoto(ctx, chatID, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		b.reply(chatID, "Hola. Identifícate con /pin <teléfono> <pin> para empezar.")
	case strings.HasPrefix(text, "/pin"):
		b.handlePIN(ctx, chatID, text)
	case strings.HasPrefix(text, "/tareas"):
		b.handleTasks(ctx, chatID)
	default:
		b.reply(chatID, "No te he entendido. Usa /pin, /tareas o envía una foto para reemplazar un ticket ilegible.")
	}
}

func (b *Bot) handlePIN(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		b.reply(chatID, "Formato: /pin <teléfono> <pin>")
		return
	}

	person, err := b.people.VerifyPIN(ctx, fields[1], fields[2])
	if err != nil {
		b.reply(chatID, "Teléfono o PIN incorrectos.")
		return
	}

	b.setSession(chatID, person.ID)
	b.logger.Info("chat session opened", "person_id", person.ID, "chat_id", chatID)
	b.reply(chatID, fmt.Sprintf("Hola %s. Sesión iniciada.", person.Name))
}

func (b *Bot) handleTasks(ctx context.Context, chatID int64) {
	personID, ok := b.session(chatID)
	if !ok {
		b.reply(chatID, "Identifícate primero con /pin <teléfono> <pin>.")
		return
	}

	tasks, err := b.tasks.ListByDriver(ctx, personID)
	if err != nil {
		b.reply(chatID, "No he podido consultar tus tareas. Inténtalo más tarde.")
		return
	}

	pending := 0
	for _, task := range tasks {
		if !task.Resolved {
			pending++
		}
	}
	if pending == 0 {
		b.reply(chatID, "No tienes tareas pendientes. ✔")
		return
	}
	b.reply(chatID, fmt.Sprintf("Tienes %d tarea(s) pendiente(s): envía una foto nueva del ticket ilegible para resolverlas.", pending))
}

// handlePhoto treats an incoming photo as a replacement for the driver's
// oldest unresolved evidence task.
func (b *Bot) handlePhoto(ctx context.Context, chatID int64, msg *tgbotapi.Message) {
	personID, ok := b.session(chatID)
	if !ok {
		b.reply(chatID, "Identifícate primero con /pin <teléfono> <pin>.")
		return
	}

	task := b.oldestUnresolvedTask(ctx, personID)
	if task == nil {
		b.reply(chatID, "No tienes ninguna tarea pendiente que resolver con una foto.")
		return
	}

	// Telegram orders photo sizes ascending; the last is the original.
	photo := msg.Photo[len(msg.Photo)-1]
	key, err := b.storePhoto(ctx, photo.FileID)
	if err != nil {
		b.logger.Error("chat photo store failed", "chat_id", chatID, "error", err)
		b.reply(chatID, "No he podido descargar la foto. Inténtalo de nuevo.")
		return
	}

	updated, err := b.evidence.Replace(ctx, task.EntityID, key, "reemplazo por chat")
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.ELOCKED:
			b.reply(chatID, "Has agotado los intentos para esta foto. Abre una incidencia con tu responsable.")
		default:
			b.reply(chatID, "No he podido procesar la foto. Inténtalo de nuevo.")
		}
		return
	}

	switch updated.Status {
	case domain.EvidenceStatusReplaced, domain.EvidenceStatusValid:
		b.reply(chatID, "Foto aceptada. Tarea resuelta. ✔")
	case domain.EvidenceStatusLocked:
		b.reply(chatID, "La foto sigue sin leerse y has agotado los intentos. Abre una incidencia con tu responsable.")
	default:
		b.reply(chatID, "La foto sigue sin leerse bien. Haz otra con mejor luz y enfoque.")
	}
}

func (b *Bot) oldestUnresolvedTask(ctx context.Context, personID uuid.UUID) *domain.PendingTask {
	tasks, err := b.tasks.ListByDriver(ctx, personID)
	if err != nil {
		b.logger.Error("chat task lookup failed", "person_id", personID, "error", err)
		return nil
	}

	var oldest *domain.PendingTask
	for i := range tasks {
		if tasks[i].Resolved || tasks[i].Kind != domain.TaskKindIllegibleEvidence {
			continue
		}
		if oldest == nil || tasks[i].CreatedAt.Before(oldest.CreatedAt) {
			oldest = &tasks[i]
		}
	}
	return oldest
}

// storePhoto downloads the Telegram file and stores it under a fresh photo
// key.
func (b *Bot) storePhoto(ctx context.Context, fileID string) (string, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, storage.MaxPhotoSize+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > storage.MaxPhotoSize {
		return "", fmt.Errorf("photo exceeds the size limit")
	}

	key := storage.PhotoKey(uuid.New(), "telegram.jpg")
	err = b.files.Put(ctx, key, bytes.NewReader(data), storage.PutOptions{
		ContentType: "image/jpeg",
		MaxSize:     storage.MaxPhotoSize,
	})
	if err != nil {
		return "", fmt.Errorf("store: %w", err)
	}
	return key, nil
}
