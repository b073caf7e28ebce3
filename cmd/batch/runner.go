package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nexconsult/nfse-api/internal/services"
	"github.com/nexconsult/nfse-api/internal/utils"
)

type batchSummary struct {
	Total      int `json:"total"`
	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// batchRunner downloads every document of a search, one key at a time
type batchRunner struct {
	service        services.NFSeServiceInterface
	ledger         services.DownloadLedgerInterface
	skipDownloaded bool
	logger         *logrus.Logger
}

// Run searches [start, end] and downloads each result. A failing key is
// logged and skipped; an expired session that survives the re-login stops
// the batch.
func (r *batchRunner) Run(ctx context.Context, start, end time.Time) (batchSummary, error) {
	var summary batchSummary

	r.logger.WithFields(logrus.Fields{
		"data_inicio": start.Format(utils.ISODateLayout),
		"data_fim":    end.Format(utils.ISODateLayout),
	}).Info("Searching issued documents")

	items, err := r.service.Search(ctx, start, end)
	if err != nil {
		return summary, fmt.Errorf("search failed: %w", err)
	}
	summary.Total = len(items)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		log := r.logger.WithFields(logrus.Fields{
			"progress": fmt.Sprintf("%d/%d", i+1, len(items)),
			"chave":    item.Chave,
		})

		if r.skipDownloaded && r.ledger.Seen(ctx, item.Chave) {
			summary.Skipped++
			log.Info("Already downloaded, skipping")
			continue
		}

		entry, err := r.download(ctx, item.Chave)
		if err != nil {
			if services.IsUnauthenticated(err) {
				log.WithError(err).Error("Portal session could not be renewed, stopping batch")
				return summary, err
			}
			summary.Failed++
			log.WithError(err).Warn("Download failed, continuing")
			continue
		}

		if err := r.ledger.Record(ctx, entry); err != nil {
			log.WithError(err).Warn("Failed to record download")
		}
		summary.Downloaded++
		log.WithFields(logrus.Fields{
			"arquivo_xml": entry.ArquivoXML,
			"arquivo_pdf": entry.ArquivoPDF,
		}).Info("Document downloaded")
	}

	return summary, nil
}

func (r *batchRunner) download(ctx context.Context, key string) (services.DownloadEntry, error) {
	detail, err := r.service.Detail(ctx, key)
	if err != nil {
		return services.DownloadEntry{}, err
	}

	pdf, err := r.service.PDF(ctx, key)
	if err != nil {
		return services.DownloadEntry{}, err
	}

	return services.DownloadEntry{
		Chave:      key,
		ArquivoXML: detail.StoredXMLPath(),
		ArquivoPDF: pdf,
	}, nil
}
