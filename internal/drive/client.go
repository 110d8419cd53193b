package drive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/teemow/workspace-mcp/internal/google"
)

const (
	// FolderMimeType marks folders.
	FolderMimeType = "application/vnd.google-apps.folder"

	DefaultPageSize = 25
	MaxPageSize     = 1000

	fileFields = "id,name,mimeType,size,modifiedTime,owners(emailAddress),webViewLink,trashed"
)

// Client lists Drive metadata with the session's credentials.
type Client struct {
	files *drive.FilesService
}

// NewClient builds a client on the live session of provider. opts come
// after the credentials so tests can point it at another endpoint.
func NewClient(ctx context.Context, provider google.TokenProvider, opts ...option.ClientOption) (*Client, error) {
	clientOpts, err := google.ClientOptions(ctx, provider, opts...)
	if err != nil {
		return nil, fmt.Errorf("no Google session available: %w", err)
	}
	svc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &Client{files: svc.Files}, nil
}

// ListFiles returns one page of files. Trashed files are left out unless
// IncludeTrashed is set; PageSize is clamped to 1..MaxPageSize.
func (c *Client) ListFiles(ctx context.Context, opts ListOptions) (*Page, error) {
	size := opts.PageSize
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}

	call := c.files.List().
		Context(ctx).
		Fields("nextPageToken", "files("+fileFields+")").
		Q(searchQuery(opts.Query, opts.IncludeTrashed)).
		PageSize(int64(size))
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}

	res, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	page := &Page{Files: make([]File, 0, len(res.Files)), NextPageToken: res.NextPageToken}
	for _, f := range res.Files {
		page.Files = append(page.Files, fromAPI(f))
	}
	return page, nil
}

// GetFile returns the metadata of one file.
func (c *Client) GetFile(ctx context.Context, id string) (*File, error) {
	if id == "" {
		return nil, errors.New("file ID is required")
	}
	f, err := c.files.Get(id).Context(ctx).Fields(fileFields).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", id, err)
	}
	file := fromAPI(f)
	return &file, nil
}

func searchQuery(query string, includeTrashed bool) string {
	query = strings.TrimSpace(query)
	switch {
	case includeTrashed:
		return query
	case query == "":
		return "trashed=false"
	default:
		return "(" + query + ") and trashed=false"
	}
}

func fromAPI(f *drive.File) File {
	out := File{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		IsFolder:    f.MimeType == FolderMimeType,
		Size:        f.Size,
		WebViewLink: f.WebViewLink,
		Trashed:     f.Trashed,
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		out.ModifiedTime = &t
	}
	if len(f.Owners) > 0 {
		out.Owner = f.Owners[0].EmailAddress
	}
	return out
}
