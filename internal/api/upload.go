package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"

	apierrors "github.com/diogo/mira/internal/errors"
	"github.com/diogo/mira/internal/models"
)

const (
	MaxImageSize = 20 * 1024 * 1024 // 20MB

	// maxAnalysisBody caps how much of the analysis response is read
	maxAnalysisBody = 4 * 1024 * 1024
)

// SupportedImageTypes returns the list of supported MIME types for upload
func SupportedImageTypes() []string {
	return []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
	}
}

// Doer executes HTTP requests. tls_client.HttpClient satisfies it.
type Doer interface {
	Do(req *fhttp.Request) (*fhttp.Response, error)
}

// ImageAnalyzer posts images to the analysis endpoint
type ImageAnalyzer struct {
	client Doer
	url    string
	log    zerolog.Logger
}

// AnalyzerOption configures an ImageAnalyzer
type AnalyzerOption func(*ImageAnalyzer)

// WithAnalyzerLogger sets the analyzer's logger
func WithAnalyzerLogger(logger zerolog.Logger) AnalyzerOption {
	return func(a *ImageAnalyzer) {
		a.log = logger
	}
}

// NewImageAnalyzer creates an analyzer posting to uploadURL
func NewImageAnalyzer(client Doer, uploadURL string, opts ...AnalyzerOption) *ImageAnalyzer {
	if uploadURL == "" {
		uploadURL = models.DefaultUploadURL
	}
	a := &ImageAnalyzer{
		client: client,
		url:    uploadURL,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeFile uploads an image file from disk.
//
// The returned Reply always carries displayable text: the description, the
// server's error, or an "Error uploading image" placeholder. err is non-nil
// only when the request could not be made or decoded.
func (a *ImageAnalyzer) AnalyzeFile(ctx context.Context, filePath string) (models.Reply, error) {
	fileName := filepath.Base(filePath)

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return failedUpload(fmt.Errorf("failed to stat file: %w", err))
	}
	if fileInfo.IsDir() {
		return failedUpload(apierrors.NewUploadError(0, fileName, "is a directory"))
	}
	if fileInfo.Size() > MaxImageSize {
		return failedUpload(apierrors.NewUploadError(0, fileName,
			fmt.Sprintf("file size exceeds maximum %d bytes", MaxImageSize)))
	}

	mimeType, err := DetectImageType(filePath)
	if err != nil {
		return failedUpload(err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return failedUpload(fmt.Errorf("failed to open file: %w", err))
	}
	defer file.Close()

	return a.AnalyzeReader(ctx, file, fileName, mimeType)
}

// AnalyzeReader uploads image data read from r
func (a *ImageAnalyzer) AnalyzeReader(
	ctx context.Context,
	r io.Reader,
	fileName string,
	mimeType string,
) (models.Reply, error) {
	if !isSupportedType(mimeType) {
		return failedUpload(fmt.Errorf("%w: %s", apierrors.ErrUnsupportedImage, mimeType))
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return failedUpload(fmt.Errorf("failed to read data: %w", err))
	}
	if len(data) > MaxImageSize {
		return failedUpload(apierrors.NewUploadError(0, fileName,
			fmt.Sprintf("data size exceeds maximum %d bytes", MaxImageSize)))
	}

	return a.upload(ctx, data, fileName, mimeType)
}

func (a *ImageAnalyzer) upload(ctx context.Context, data []byte, fileName, mimeType string) (models.Reply, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`,
		models.UploadFieldName, fileName))
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return failedUpload(fmt.Errorf("failed to create form file: %w", err))
	}
	if _, err := part.Write(data); err != nil {
		return failedUpload(fmt.Errorf("failed to write file data: %w", err))
	}
	if err := writer.Close(); err != nil {
		return failedUpload(fmt.Errorf("failed to finish form: %w", err))
	}

	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodPost, a.url, &body)
	if err != nil {
		return failedUpload(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	a.log.Debug().Str("file", fileName).Int("bytes", len(data)).Str("url", a.url).Msg("uploading image")

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn().Err(err).Str("file", fileName).Msg("upload request failed")
		return failedUpload(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAnalysisBody))
	if err != nil {
		return failedUpload(fmt.Errorf("failed to read response: %w", err))
	}

	reply := models.ParseAnalysisResponse(respBody)
	if reply.Kind == models.ReplyMalformed {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return failedUpload(apierrors.NewUploadError(resp.StatusCode, fileName,
				strings.TrimSpace(string(respBody))))
		}
		return reply, reply.Err
	}

	a.log.Debug().Str("file", fileName).Str("kind", reply.Kind.String()).Msg("analysis received")
	return reply, nil
}

// DetectImageType returns the MIME type of an image path or ErrUnsupportedImage
func DetectImageType(filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		switch ext {
		case ".jpg", ".jpeg":
			mimeType = "image/jpeg"
		case ".png":
			mimeType = "image/png"
		case ".gif":
			mimeType = "image/gif"
		case ".webp":
			mimeType = "image/webp"
		}
	}
	if !isSupportedType(mimeType) {
		return "", fmt.Errorf("%w: %s", apierrors.ErrUnsupportedImage, filepath.Base(filePath))
	}
	return mimeType, nil
}

func isSupportedType(mimeType string) bool {
	if mimeType == "" {
		return false
	}
	for _, supported := range SupportedImageTypes() {
		if strings.HasPrefix(mimeType, supported) {
			return true
		}
	}
	return false
}

func failedUpload(err error) (models.Reply, error) {
	return models.Reply{
		Kind: models.ReplyFailed,
		Text: apierrors.UploadPlaceholder(err),
		Err:  err,
	}, err
}
