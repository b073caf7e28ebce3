package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const ledgerKeyPrefix = "nfse:download:"

// DownloadEntry records where the artifacts of one document were stored
type DownloadEntry struct {
	Chave        string    `json:"chave"`
	ArquivoXML   string    `json:"arquivo_xml"`
	ArquivoPDF   string    `json:"arquivo_pdf"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// DownloadLedger remembers downloaded documents so batch runs can skip them.
// Redis is used when available, with an in-memory fallback.
type DownloadLedger struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger

	memEntries map[string]ledgerItem
	memMutex   sync.RWMutex
}

type ledgerItem struct {
	entry     DownloadEntry
	expiresAt time.Time
}

// NewDownloadLedger creates a new download ledger. A nil client keeps entries
// in memory only.
func NewDownloadLedger(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *DownloadLedger {
	return &DownloadLedger{
		client:     client,
		ttl:        ttl,
		logger:     logger,
		memEntries: make(map[string]ledgerItem),
	}
}

// Get returns the entry recorded for key
func (l *DownloadLedger) Get(ctx context.Context, key string) (*DownloadEntry, bool) {
	if l.client != nil {
		val, err := l.client.Get(ctx, ledgerKeyPrefix+key).Result()
		if err == nil {
			var entry DownloadEntry
			if err := json.Unmarshal([]byte(val), &entry); err == nil {
				return &entry, true
			}
			l.logger.WithField("chave", key).Warn("Corrupt ledger entry in Redis, ignoring")
		} else if err != redis.Nil {
			l.logger.WithFields(logrus.Fields{
				"chave": key,
				"error": err.Error(),
			}).Warn("Redis get error, falling back to memory ledger")
		}
	}

	l.memMutex.RLock()
	item, exists := l.memEntries[key]
	l.memMutex.RUnlock()

	if !exists {
		return nil, false
	}
	if l.ttl > 0 && time.Now().After(item.expiresAt) {
		l.memMutex.Lock()
		delete(l.memEntries, key)
		l.memMutex.Unlock()
		return nil, false
	}

	entry := item.entry
	return &entry, true
}

// Seen reports whether key was already downloaded
func (l *DownloadLedger) Seen(ctx context.Context, key string) bool {
	_, ok := l.Get(ctx, key)
	return ok
}

// Record stores entry, stamping DownloadedAt when unset
func (l *DownloadLedger) Record(ctx context.Context, entry DownloadEntry) error {
	if entry.Chave == "" {
		return fmt.Errorf("ledger entry without chave")
	}
	if entry.DownloadedAt.IsZero() {
		entry.DownloadedAt = time.Now().UTC()
	}

	if l.client != nil {
		payload, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode ledger entry: %w", err)
		}
		err = l.client.Set(ctx, ledgerKeyPrefix+entry.Chave, payload, l.ttl).Err()
		if err == nil {
			l.logger.WithField("chave", entry.Chave).Debug("Download recorded (Redis)")
			return nil
		}
		l.logger.WithFields(logrus.Fields{
			"chave": entry.Chave,
			"error": err.Error(),
		}).Warn("Redis set error, falling back to memory ledger")
	}

	l.memMutex.Lock()
	l.memEntries[entry.Chave] = ledgerItem{
		entry:     entry,
		expiresAt: time.Now().Add(l.ttl),
	}
	l.memMutex.Unlock()

	l.logger.WithField("chave", entry.Chave).Debug("Download recorded (memory)")
	return nil
}

// Health returns ledger health status
func (l *DownloadLedger) Health() map[string]interface{} {
	health := make(map[string]interface{})

	if l.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.client.Ping(ctx).Err(); err != nil {
			health["redis"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
		} else {
			health["redis"] = map[string]interface{}{
				"status": "healthy",
			}
		}
	} else {
		health["redis"] = map[string]interface{}{
			"status": "disabled",
		}
	}

	l.memMutex.RLock()
	size := len(l.memEntries)
	l.memMutex.RUnlock()

	health["memory"] = map[string]interface{}{
		"status":  "healthy",
		"entries": size,
	}
	return health
}
