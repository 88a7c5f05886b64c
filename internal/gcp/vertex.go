package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/docinsight/internal/models"
)

// --- Page OCR Model Prompts ---
const OCRSystemPrompt = "You are an OCR engine. Your task is to read a single page of a PDF document and return its text exactly as written. Accuracy and completeness are of utmost importance."
const OCRUserPrompt = `You will be provided with one page of a PDF document.

Follow these instructions to transcribe it:

Text: Return all text in natural reading order, one paragraph per line block.
Tables: Return each table row on its own line, with cells separated by " | ".
Images: Ignore images unless they contain readable text, in which case transcribe that text.
Headers and Footers: Ignore page numbers and repeated running headers or footers.
Do not summarize, translate, correct or comment on the content.

Return ONLY the transcribed plain text. Do not wrap it in code fences.`

var relaxedSafety = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
}

// VertexClient holds the Vertex AI connection and the pre-configured OCR model.
type VertexClient struct {
	OCRModel   *genai.GenerativeModel
	baseClient *genai.Client
}

// NewVertexClient creates a client for projectID in region. The OCR model defaults to gemini-1.5-pro.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	c := &VertexClient{baseClient: baseClient}
	c.UseOCRModel("gemini-1.5-pro")
	return c, nil
}

// UseOCRModel swaps the model used for page OCR.
func (c *VertexClient) UseOCRModel(name string) {
	ocrModel := c.baseClient.GenerativeModel(name)
	ocrModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(OCRSystemPrompt)},
	}
	// Transcription should be deterministic.
	ocrModel.SetTemperature(0)
	ocrModel.SafetySettings = relaxedSafety
	c.OCRModel = ocrModel
}

// ReadPDFPage transcribes the single-page PDF at gcsURI.
func (c *VertexClient) ReadPDFPage(ctx context.Context, gcsURI string) (string, error) {
	filePart := genai.FileData{
		MIMEType: "application/pdf",
		FileURI:  gcsURI,
	}
	resp, err := c.OCRModel.GenerateContent(ctx, filePart, genai.Text(OCRUserPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	return responseText(resp), nil
}

// Generator returns a text generator backed by the named model. Closing it closes the client.
func (c *VertexClient) Generator(model string) *VertexGenerator {
	return &VertexGenerator{client: c, model: model}
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// VertexGenerator answers prompts with a Gemini model.
type VertexGenerator struct {
	client *VertexClient
	model  string
}

// Generate applies opts to a fresh model handle so concurrent callers do not share settings.
func (g *VertexGenerator) Generate(ctx context.Context, prompt string, opts models.GenerationOptions) (string, error) {
	model := g.client.baseClient.GenerativeModel(g.model)
	model.SafetySettings = relaxedSafety
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		model.SetTemperature(float32(opts.Temperature))
	}
	if opts.TopP > 0 {
		model.SetTopP(float32(opts.TopP))
	}
	if opts.TopK > 0 {
		model.SetTopK(int32(opts.TopK))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from %s: %w", g.model, err)
	}
	return responseText(resp), nil
}

func (g *VertexGenerator) Close() error {
	return g.client.Close()
}

// responseText concatenates the text parts of the first candidate and strips code fences.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}

	content := strings.TrimSpace(b.String())
	content = strings.TrimPrefix(content, "```text")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
