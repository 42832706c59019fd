package service

import (
	"github.com/newsmill/newsmill/internal/config"
	"github.com/newsmill/newsmill/internal/models"
)

// NewPayload snapshots the current generation settings into a job payload.
// The copy is what makes later config edits safe: queued jobs keep the
// settings they were scheduled with.
func NewPayload(ai config.AIConfig, images config.ImageConfig, linkToSource bool) models.PostPayload {
	return models.PostPayload{
		AIModel:         ai.Model,
		Language:        ai.Language,
		Tone:            ai.Tone,
		InternalLinking: ai.InternalLinks,
		UseScrapedImage: images.UseScraped,
		UseAIImage:      images.UseAI,
		ImageStyle:      images.Style,
		LinkToSource:    linkToSource,
	}
}
