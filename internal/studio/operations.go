package studio

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// GenerateIdeas asks the service for new book ideas.
func (c *Client) GenerateIdeas(ctx context.Context, req IdeasRequest) ([]Idea, error) {
	var resp IdeasResponse
	if err := c.post(ctx, "generate ideas", PathIdeas, req, &resp, c.ideasSchema); err != nil {
		return nil, err
	}
	return resp.Ideas, nil
}

// GeneratePageIdeas returns one idea text per page, in page order.
func (c *Client) GeneratePageIdeas(ctx context.Context, req PageIdeasRequest) ([]string, error) {
	var resp PageIdeasResponse
	if err := c.post(ctx, "generate page ideas", PathPageIdeas, req, &resp, c.pageIdeasSchema); err != nil {
		return nil, err
	}
	out := make([]string, len(resp.Pages))
	for i, p := range resp.Pages {
		out[i] = p.IdeaText
	}
	return out, nil
}

// ImprovePrompt turns one page idea into a final image prompt.
func (c *Client) ImprovePrompt(ctx context.Context, req ImprovePromptRequest) (*ImprovePromptResponse, error) {
	var resp ImprovePromptResponse
	if err := c.post(ctx, "improve prompt", PathImprovePrompt, req, &resp, nil); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.FinalPrompt) == "" {
		return nil, &Error{Op: "improve prompt", Message: "empty prompt returned"}
	}
	return &resp, nil
}

// GenerateImage generates one page image. A status other than "done" is an
// error carrying the service's warning. A warning on a done image is kept.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	if req.Size == "" {
		req.Size = c.imageSize
	}
	var resp ImageResponse
	if err := c.post(ctx, "generate image", PathGenerateImage, req, &resp, nil); err != nil {
		return nil, err
	}
	if resp.Status != ImageStatusDone {
		msg := resp.Warning
		if msg == "" {
			msg = fmt.Sprintf("generation ended with status %q", resp.Status)
		}
		return nil, &Error{Op: "generate image", Message: msg}
	}
	img, err := decodeBase64("generate image", resp.ImageBase64)
	if err != nil {
		return nil, err
	}
	return &ImageResult{Image: img, Warning: resp.Warning}, nil
}

// EnhanceImage upscales an image and optionally reframes it to letter size.
func (c *Client) EnhanceImage(ctx context.Context, req EnhanceRequest) (*EnhanceResult, error) {
	var resp EnhanceResponse
	if err := c.post(ctx, "enhance image", PathEnhanceImage, req, &resp, nil); err != nil {
		return nil, err
	}
	enhanced, err := decodeBase64("enhance image", resp.EnhancedBase64)
	if err != nil {
		return nil, err
	}
	out := &EnhanceResult{Enhanced: enhanced, WasEnhanced: true}
	if resp.WasEnhanced != nil {
		out.WasEnhanced = *resp.WasEnhanced
	}
	if resp.FinalLetterBase64 != "" {
		if out.FinalLetter, err = decodeBase64("enhance image", resp.FinalLetterBase64); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ExportPDF assembles a PDF from the given pages.
func (c *Client) ExportPDF(ctx context.Context, req PDFRequest) (*PDFResult, error) {
	var resp PDFResponse
	if err := c.post(ctx, "export pdf", PathExportPDF, req, &resp, nil); err != nil {
		return nil, err
	}
	data, err := decodeBase64("export pdf", resp.PDFBase64)
	if err != nil {
		return nil, err
	}
	return &PDFResult{PDF: data, TotalPages: resp.TotalPages}, nil
}

// ExportZIP packages the given pages into an archive.
func (c *Client) ExportZIP(ctx context.Context, req ZIPRequest) (*ZIPResult, error) {
	var resp ZIPResponse
	if err := c.post(ctx, "export zip", PathExportZIP, req, &resp, nil); err != nil {
		return nil, err
	}
	data, err := decodeBase64("export zip", resp.ZipBase64)
	if err != nil {
		return nil, err
	}
	return &ZIPResult{ZIP: data, Filename: resp.Filename, ProcessedPages: resp.ProcessedPages}, nil
}

// EncodeImage encodes image bytes for a request body.
func EncodeImage(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// decodeBase64 accepts raw base64 or a data URL.
func decodeBase64(op, s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+len(";base64,"):]
	}
	if s == "" {
		return nil, &Error{Op: op, Message: "response carried no data"}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &Error{Op: op, Message: "invalid base64 payload: " + err.Error()}
	}
	return b, nil
}
