package client

import (
	"context"
	"fmt"

	"github.com/newsmill/newsmill/internal/service"
)

// PassthroughGenerator republishes scraped content unchanged. It stands in
// for the AI sidecar when none is configured so the pipeline still runs end
// to end.
type PassthroughGenerator struct{}

func NewPassthroughGenerator() *PassthroughGenerator {
	return &PassthroughGenerator{}
}

func (PassthroughGenerator) GenerateContent(_ context.Context, req *service.GenerateRequest) (*service.GeneratedContent, error) {
	return &service.GeneratedContent{
		Title:   req.Title,
		Content: req.Content,
	}, nil
}

func (PassthroughGenerator) GenerateImage(context.Context, string, string, string) (string, error) {
	return "", fmt.Errorf("image generation requires a content API")
}

func (PassthroughGenerator) GenerateInternalLinks(_ context.Context, content string) (string, error) {
	return content, nil
}
