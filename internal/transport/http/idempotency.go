package http

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/adepetun22/shopapp/internal/domain"
)

// HeaderIdempotencyKey — заголовок, которым клиент помечает повторяемый запрос.
const HeaderIdempotencyKey = "Idempotency-Key"

// defaultIdempotencyTTL — срок хранения записи для replay ответа.
const defaultIdempotencyTTL = 24 * time.Hour

// bodyCapturer перехватывает тело ответа, чтобы сохранить его для replay.
type bodyCapturer struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCapturer) Write(p []byte) (int, error) {
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

// Idempotent делает обёрнутый обработчик идемпотентным по Idempotency-Key.
// Ключ привязывается к хешу тела запроса: повтор с тем же ключом и телом
// получает сохранённый ответ, повтор с другим телом — 409. Запрос без
// ключа обрабатывается как обычный.
func Idempotent(repo domain.IdempotencyRepository, logger *log.Entry) gin.HandlerFunc {
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondError(c, http.StatusBadRequest, "failed to read request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		requestHash := hashRequest(c.Request.Method, c.Request.URL.Path, c.GetString(ctxUserID), body)

		_, err = repo.CreateProcessing(key, requestHash, time.Now().UTC().Add(defaultIdempotencyTTL))
		if errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
			replay(c, repo, key, requestHash)
			return
		}
		if errors.Is(err, domain.ErrIdempotencyHashMismatch) {
			respondDomainError(c, domain.ErrIdempotencyHashMismatch)
			c.Abort()
			return
		}
		if err != nil {
			logger.WithError(err).Error("failed to register idempotency key")
			respondError(c, http.StatusInternalServerError, "internal server error")
			c.Abort()
			return
		}

		capturer := &bodyCapturer{ResponseWriter: c.Writer}
		c.Writer = capturer
		c.Next()

		status := capturer.Status()
		responseBody := capturer.buf.Bytes()
		if status >= http.StatusOK && status < http.StatusMultipleChoices {
			err = repo.MarkDone(key, responseBody, status)
		} else {
			err = repo.MarkFailed(key, responseBody, status)
		}
		if err != nil {
			logger.WithError(err).WithField("idempotency_key", key).
				Warn("failed to finalize idempotency record")
		}
	}
}

// replay отдаёт сохранённый ответ повторного запроса или 409, если
// исходный запрос ещё обрабатывается либо тело не совпадает.
func replay(c *gin.Context, repo domain.IdempotencyRepository, key, requestHash string) {
	defer c.Abort()

	record, err := repo.Get(key)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if record.RequestHash != requestHash {
		respondDomainError(c, domain.ErrIdempotencyHashMismatch)
		return
	}
	if record.Status == domain.IdempotencyStatusProcessing {
		respondError(c, http.StatusConflict, "request is already being processed")
		return
	}
	c.Data(record.HTTPStatus, "application/json; charset=utf-8", record.ResponseBody)
}

func hashRequest(method, path, userID string, body []byte) string {
	h := sha256.New()
	io.WriteString(h, method)
	io.WriteString(h, "\n")
	io.WriteString(h, path)
	io.WriteString(h, "\n")
	io.WriteString(h, userID)
	io.WriteString(h, "\n")
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
