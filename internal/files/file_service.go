package files

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// maxFileSize mirrors the Telegram bot API download limit.
const maxFileSize = 20 << 20

type fileGetter interface {
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
}

// File is a downloaded Telegram attachment held in memory.
type File struct {
	Name      string
	MediaKind string
	Data      []byte
}

type FileService struct {
	botAPI fileGetter
	http   *http.Client
	link   func(tgbotapi.File) string
}

func NewFileService(botAPI *tgbotapi.BotAPI, httpClient *http.Client) *FileService {
	return newFileService(botAPI, httpClient, func(f tgbotapi.File) string {
		return f.Link(botAPI.Token)
	})
}

func newFileService(getter fileGetter, httpClient *http.Client, link func(tgbotapi.File) string) *FileService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &FileService{
		botAPI: getter,
		http:   httpClient,
		link:   link,
	}
}

// Fetch downloads a file by its Telegram id. name and mediaKind come from the
// message when Telegram provides them; photos arrive without either.
func (fs *FileService) Fetch(ctx context.Context, fileID, name, mediaKind string) (*File, error) {
	file, err := fs.botAPI.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("FileService.Fetch: cannot get file: %w", err)
	}

	if file.FileSize > maxFileSize {
		return nil, fmt.Errorf("FileService.Fetch: file too large: %d bytes", file.FileSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fs.link(file), nil)
	if err != nil {
		return nil, fmt.Errorf("FileService.Fetch: %w", err)
	}

	resp, err := fs.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FileService.Fetch: cannot download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FileService.Fetch: cannot download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("FileService.Fetch: cannot read file: %w", err)
	}

	if len(data) > maxFileSize {
		return nil, fmt.Errorf("FileService.Fetch: file too large")
	}

	fileExt := filepath.Ext(file.FilePath)
	if fileExt == "" {
		fileExt = ".jpg"
	}

	if name == "" {
		name = fmt.Sprintf("%s%s", uuid.New().String(), fileExt)
	}

	if mediaKind == "" {
		mediaKind = mime.TypeByExtension(filepath.Ext(name))
	}

	if mediaKind == "" {
		mediaKind = http.DetectContentType(data)
	}

	return &File{Name: name, MediaKind: mediaKind, Data: data}, nil
}
