package studio

import "time"

// Settings mirrors the book settings bag on the wire.
type Settings struct {
	DecorationLevel      string `json:"decorationLevel,omitempty"`
	TypographyStyle      string `json:"typographyStyle,omitempty"`
	CharacterDescription string `json:"characterDescription,omitempty"`
}

// IdeasRequest asks for new book ideas.
type IdeasRequest struct {
	Count     int      `json:"count"`
	Themes    []string `json:"themes"`
	TargetAge string   `json:"targetAge"`
	BookType  string   `json:"bookType,omitempty"`
}

// Idea is one generated book idea.
type Idea struct {
	Title     string `json:"title"`
	BookType  string `json:"bookType"`
	Concept   string `json:"concept"`
	TargetAge string `json:"targetAge,omitempty"`
	BookMode  string `json:"bookMode,omitempty"`
	PageCount int    `json:"pageCount,omitempty"`
}

type IdeasResponse struct {
	Ideas []Idea `json:"ideas"`
}

// PageIdeasRequest asks for one idea text per page of a book.
type PageIdeasRequest struct {
	BookID    string   `json:"bookId"`
	BookType  string   `json:"bookType"`
	Concept   string   `json:"concept"`
	PageCount int      `json:"pageCount"`
	Settings  Settings `json:"settings"`
	TargetAge string   `json:"targetAge"`
}

type PageIdea struct {
	IdeaText string `json:"ideaText"`
}

// PageIdeasResponse pages are aligned with page indices: Pages[0] is page 1.
type PageIdeasResponse struct {
	Pages []PageIdea `json:"pages"`
}

// ImprovePromptRequest turns a page idea into a final image prompt.
type ImprovePromptRequest struct {
	BookID    string   `json:"bookId"`
	PageID    string   `json:"pageId"`
	PageIndex int      `json:"pageIndex"`
	IdeaText  string   `json:"ideaText"`
	BookType  string   `json:"bookType"`
	Concept   string   `json:"concept"`
	Settings  Settings `json:"settings"`
	TargetAge string   `json:"targetAge"`
}

type ImprovePromptResponse struct {
	FinalPrompt string    `json:"finalPrompt"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// ImageRequest generates one page image.
type ImageRequest struct {
	PageIndex            int    `json:"pageIndex"`
	Prompt               string `json:"prompt"`
	Size                 string `json:"size"`
	BookType             string `json:"bookType,omitempty"`
	IsStorybookMode      bool   `json:"isStorybookMode"`
	CharacterDescription string `json:"characterDescription,omitempty"`
	AnchorImageBase64    string `json:"anchorImageBase64,omitempty"`
	ValidateOutline      bool   `json:"validateOutline"`
	ValidateNoColor      bool   `json:"validateNoColor"`
}

// ImageStatusDone is the only image status that carries a usable image.
const ImageStatusDone = "done"

type ImageResponse struct {
	Status      string `json:"status"`
	ImageBase64 string `json:"imageBase64,omitempty"`
	Warning     string `json:"warning,omitempty"`
}

// ImageResult is a decoded successful generation.
type ImageResult struct {
	Image   []byte
	Warning string
}

// EnhanceRequest upscales an image and reframes it to letter size.
type EnhanceRequest struct {
	ImageBase64   string  `json:"imageBase64"`
	Scale         int     `json:"scale,omitempty"`
	MarginPercent float64 `json:"marginPercent,omitempty"`
}

type EnhanceResponse struct {
	EnhancedBase64    string `json:"enhancedBase64"`
	FinalLetterBase64 string `json:"finalLetterBase64,omitempty"`
	WasEnhanced       *bool  `json:"wasEnhanced,omitempty"`
}

// EnhanceResult holds the decoded enhancement artifacts.
type EnhanceResult struct {
	Enhanced    []byte
	FinalLetter []byte
	WasEnhanced bool
}

// ExportPage is one page sent to an export endpoint.
type ExportPage struct {
	Index       int    `json:"index"`
	ImageBase64 string `json:"imageBase64"`
	Title       string `json:"title,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
}

// PDFRequest assembles a printable PDF.
type PDFRequest struct {
	Pages            []ExportPage `json:"pages"`
	IncludeTitlePage bool         `json:"includeTitlePage"`
	IncludeCopyright bool         `json:"includeCopyrightPage"`
	IncludeBelongsTo bool         `json:"includeBelongsToPage"`
	InsertBlankPages bool         `json:"insertBlankPages"`
	Title            string       `json:"title,omitempty"`
	Author           string       `json:"author,omitempty"`
	CopyrightText    string       `json:"copyrightText,omitempty"`
}

type PDFResponse struct {
	PDFBase64  string `json:"pdfBase64"`
	TotalPages int    `json:"totalPages"`
}

// PDFResult is the decoded PDF.
type PDFResult struct {
	PDF        []byte
	TotalPages int
}

// ZIPRequest packages page images into an archive.
type ZIPRequest struct {
	Pages []ExportPage `json:"pages"`
}

type ZIPResponse struct {
	ZipBase64      string `json:"zipBase64"`
	Filename       string `json:"filename"`
	ProcessedPages int    `json:"processedPages"`
}

// ZIPResult is the decoded archive.
type ZIPResult struct {
	ZIP            []byte
	Filename       string
	ProcessedPages int
}

// errorBody is the failure payload every endpoint may return.
type errorBody struct {
	Error string `json:"error"`
}
