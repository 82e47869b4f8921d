package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brainboard/brainboard/internal/core"
	"github.com/brainboard/brainboard/internal/observability"
	"github.com/brainboard/brainboard/internal/session"
)

var (
	uploadType         string
	uploadMIME         string
	uploadMaxDimension int
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a photo, video or document",
	Long: `Upload a photo, video or document.

The content type is detected from the file's bytes unless --mime is given.
Without --type the category follows the detected type. Photos larger than
--max-dimension are scaled down locally before they are sent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close() // nolint:errcheck // read-only

		info, err := file.Stat()
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}

		mimeType := strings.TrimSpace(uploadMIME)
		if mimeType == "" {
			detected, err := mimetype.DetectReader(file)
			if err != nil {
				return fmt.Errorf("detect content type: %w", err)
			}
			mimeType = detected.String()
			if _, err := file.Seek(0, io.SeekStart); err != nil {
				return err
			}
		}

		category, err := uploadCategory(uploadType, mimeType)
		if err != nil {
			return err
		}
		candidate := session.File{
			Name:    filepath.Base(path),
			MIME:    mimeType,
			Size:    info.Size(),
			Content: file,
		}
		if category == core.UploadPhoto && uploadMaxDimension > 0 {
			data, resizedMIME, resized, err := shrinkPhoto(file, uploadMaxDimension, defaultJPEGQuality)
			if err != nil {
				return fmt.Errorf("%w: %v", session.ErrInvalidFile, err)
			}
			if resized {
				candidate.MIME = resizedMIME
				candidate.Size = int64(len(data))
				candidate.Content = bytes.NewReader(data)
			} else if _, err := file.Seek(0, io.SeekStart); err != nil {
				return err
			}
		}

		observability.Logger().Debug("Uploading file",
			zap.String("path", path),
			zap.String("mime", candidate.MIME),
			zap.String("category", string(category)),
			zap.Int64("size", candidate.Size))

		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			upload, err := client.UploadFile(ctx, candidate, category)
			if err != nil {
				return err
			}
			return writeOutput(cmd, upload)
		})
	},
}

// uploadCategory resolves --type, inferring it from mimeType when empty.
func uploadCategory(flagValue, mimeType string) (core.UploadCategory, error) {
	switch value := core.UploadCategory(strings.ToLower(strings.TrimSpace(flagValue))); value {
	case core.UploadPhoto, core.UploadVideo, core.UploadDocument:
		return value, nil
	case "":
	default:
		return "", fmt.Errorf("%w: unknown upload type %q", session.ErrInvalidInput, flagValue)
	}

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return core.UploadPhoto, nil
	case strings.HasPrefix(mimeType, "video/"):
		return core.UploadVideo, nil
	default:
		return core.UploadDocument, nil
	}
}

func init() {
	uploadCmd.Flags().StringVar(&uploadType, "type", "", "Upload type: photo|video|document (default: from content type)")
	uploadCmd.Flags().StringVar(&uploadMIME, "mime", "", "Override the detected content type")
	uploadCmd.Flags().IntVar(&uploadMaxDimension, "max-dimension", 0, "Scale photos down to this many pixels on the longer side (0 = off)")
	rootCmd.AddCommand(uploadCmd)
}
